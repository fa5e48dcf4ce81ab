package reports

import (
	"context"
	"errors"
	"fmt"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/logger"
	"github.com/ougirez/muniportal/internal/pkg/store"
)

const (
	MinYear = 2000
	MaxYear = 2100
)

type Store interface {
	GetMunicipality(ctx context.Context, id int64) (*domain.Municipality, error)
	ListMunicipalities(ctx context.Context, onlyID *int64) ([]*domain.Municipality, error)
	ListCatalog(ctx context.Context, kind domain.ValueKind, filter *string) ([]*domain.CatalogItem, error)
	UpsertValues(ctx context.Context, batch store.ValueBatch) (int, error)
	GetValues(ctx context.Context, kind domain.ValueKind, municipalityID int64, period domain.Period) ([]*domain.ValueRecord, error)
	ListPeriods(ctx context.Context, kind domain.ValueKind) ([]*domain.Period, error)
}

type Service struct {
	store Store
}

func NewReportsService(store Store) *Service {
	return &Service{store: store}
}

// UpsertRequest: пакет значений одного муниципалитета за период.
// Filter: ожидаемая форма (показатели) или категория (услуги).
type UpsertRequest struct {
	Kind           domain.ValueKind
	MunicipalityID int64
	Period         domain.Period
	Filter         *string
	Entries        []domain.ValueEntry
	UpdatedBy      *int64
}

type UpsertResult struct {
	Saved   int   `json:"saved"`
	Dropped []int `json:"dropped"`
}

func ValidatePeriod(p domain.Period) error {
	if p.Year < MinYear || p.Year > MaxYear {
		return constants.ErrInvalidPeriod.WithMessage(fmt.Sprintf("year must be within [%d, %d]", MinYear, MaxYear))
	}
	if p.Month < 1 || p.Month > 12 {
		return constants.ErrInvalidPeriod.WithMessage("month must be within [1, 12]")
	}
	return nil
}

// DefaultFilter: форма по умолчанию для ручного ввода показателей.
func DefaultFilter(kind domain.ValueKind, filter *string) *string {
	if filter == nil && kind == domain.KindIndicator {
		f := domain.FormGMU
		return &f
	}
	return filter
}

func (svc *Service) municipality(ctx context.Context, id int64) (*domain.Municipality, error) {
	m, err := svc.store.GetMunicipality(ctx, id)
	if errors.Is(err, constants.ErrDBNotFound) {
		return nil, constants.ErrNotFound.WithMessage("municipality not found")
	}
	return m, err
}

// ActiveItems загружает действующие id справочника заново на каждый вызов.
func (svc *Service) ActiveItems(ctx context.Context, kind domain.ValueKind, filter *string) (map[int64]*domain.CatalogItem, error) {
	items, err := svc.store.ListCatalog(ctx, kind, filter)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*domain.CatalogItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return byID, nil
}

// UpsertValues отбрасывает позиции с неизвестным id или пустым значением, остальное
// пишет одной транзакцией. Dropped содержит индексы отброшенных позиций во входном списке.
func (svc *Service) UpsertValues(ctx context.Context, req UpsertRequest) (*UpsertResult, error) {
	if err := ValidatePeriod(req.Period); err != nil {
		return nil, err
	}
	if _, err := svc.municipality(ctx, req.MunicipalityID); err != nil {
		return nil, err
	}

	active, err := svc.ActiveItems(ctx, req.Kind, req.Filter)
	if err != nil {
		return nil, err
	}

	kept, dropped := partition(req.Entries, active)
	result := &UpsertResult{Dropped: dropped}
	if len(kept) == 0 {
		return result, nil
	}

	saved, err := svc.store.UpsertValues(ctx, store.ValueBatch{
		Kind:           req.Kind,
		MunicipalityID: req.MunicipalityID,
		Period:         req.Period,
		Entries:        kept,
		UpdatedBy:      req.UpdatedBy,
	})
	if err != nil {
		logger.Errorf(ctx, "upsert %s values for municipality %d %d-%02d: %v",
			req.Kind, req.MunicipalityID, req.Period.Year, req.Period.Month, err)
		return nil, err
	}
	result.Saved = saved

	logger.Info(ctx, "values saved",
		"kind", req.Kind,
		"municipality", req.MunicipalityID,
		"year", req.Period.Year,
		"month", req.Period.Month,
		"saved", saved,
		"dropped", len(dropped),
	)
	return result, nil
}

func partition(entries []domain.ValueEntry, active map[int64]*domain.CatalogItem) ([]domain.ValueEntry, []int) {
	kept := make([]domain.ValueEntry, 0, len(entries))
	dropped := []int{}
	for i, e := range entries {
		if _, ok := active[e.ItemID]; !ok || e.Value == nil {
			dropped = append(dropped, i)
			continue
		}
		kept = append(kept, e)
	}
	return kept, dropped
}

func (svc *Service) GetValues(ctx context.Context, kind domain.ValueKind, municipalityID int64, period domain.Period) ([]*domain.ValueRecord, error) {
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}
	return svc.store.GetValues(ctx, kind, municipalityID, period)
}

func (svc *Service) ListPeriods(ctx context.Context, kind domain.ValueKind) ([]*domain.Period, error) {
	return svc.store.ListPeriods(ctx, kind)
}

func (svc *Service) Catalog(ctx context.Context, kind domain.ValueKind, filter *string) ([]*domain.CatalogItem, error) {
	return svc.store.ListCatalog(ctx, kind, filter)
}

func (svc *Service) Municipalities(ctx context.Context, onlyID *int64) ([]*domain.Municipality, error) {
	return svc.store.ListMunicipalities(ctx, onlyID)
}
