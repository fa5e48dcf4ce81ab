package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/logger"
	"github.com/ougirez/muniportal/internal/pkg/store"
	"github.com/ougirez/muniportal/internal/pkg/store/xpgx"
	"github.com/ougirez/muniportal/internal/pkg/utils"
	"golang.org/x/sync/errgroup"
)

const (
	topLimit           = 10
	defaultRecentLimit = 20
)

type Store interface {
	store.AnalyticsStore
	HasTable(name string) bool
}

type Service struct {
	store          Store
	recentMaxLimit int
}

func NewDashboardService(store Store, recentMaxLimit int) *Service {
	return &Service{store: store, recentMaxLimit: recentMaxLimit}
}

type Query struct {
	Kind           domain.ValueKind
	Year           domain.Year
	Month          *domain.Month
	MunicipalityID *int64
	Filter         *string
}

func (q Query) filter() store.AnalyticsFilter {
	return store.AnalyticsFilter{
		Kind:           q.Kind,
		Year:           q.Year,
		Month:          q.Month,
		MunicipalityID: q.MunicipalityID,
		Filter:         q.Filter,
	}
}

// previous: предыдущий месяц, а без месяца предыдущий год.
func (q Query) previous() store.AnalyticsFilter {
	f := q.filter()
	if q.Month == nil {
		f.Year--
		return f
	}
	m := *q.Month - 1
	if m == 0 {
		m = 12
		f.Year--
	}
	f.Month = &m
	return f
}

type KPI struct {
	Total         float64  `json:"total"`
	PrevTotal     float64  `json:"prev_total"`
	ChangePercent *float64 `json:"change_percent"`
}

type Data struct {
	KPI               KPI                         `json:"kpi"`
	MonthlyDynamics   []domain.MonthTotal         `json:"monthly_dynamics"`
	TopEntities       []*domain.ItemTotal         `json:"top_entities"`
	Categories        []*domain.CategoryTotal     `json:"categories"`
	TopMunicipalities []*domain.MunicipalityTotal `json:"top_municipalities"`
	Degraded          bool                        `json:"degraded,omitempty"`
}

func emptyData() *Data {
	return &Data{
		MonthlyDynamics:   zeroFill(nil),
		TopEntities:       []*domain.ItemTotal{},
		Categories:        []*domain.CategoryTotal{},
		TopMunicipalities: []*domain.MunicipalityTotal{},
	}
}

// zeroFill раскладывает суммы по двенадцати месяцам, пустые месяцы нулевые.
func zeroFill(totals []*domain.MonthTotal) []domain.MonthTotal {
	series := make([]domain.MonthTotal, 12)
	for i := range series {
		series[i].Month = i + 1
	}
	for _, t := range totals {
		if t.Month >= 1 && t.Month <= 12 {
			series[t.Month-1] = *t
		}
	}
	return series
}

// degradable: отсутствующая таблица или сбой инфраструктуры, дашборд тогда отдаёт нули.
func degradable(err error) bool {
	return errors.Is(err, constants.ErrDBTableMissing) || xpgx.IsInfraError(err)
}

func (svc *Service) tablePresent(kind domain.ValueKind) bool {
	t := kind.Tables()
	return svc.store.HasTable(t.Values) && svc.store.HasTable(t.Catalog)
}

// Data считает свёртки параллельно. При отсутствии таблиц или сбое инфраструктуры
// возвращает пустой ответ вместо ошибки.
func (svc *Service) Data(ctx context.Context, q Query) (*Data, error) {
	if q.Month != nil && (*q.Month < 1 || *q.Month > 12) {
		return nil, constants.ErrInvalidPeriod.WithMessage("month must be within [1, 12]")
	}
	if !svc.tablePresent(q.Kind) {
		logger.Warnf(ctx, "dashboard: tables for %s are missing, returning empty data", q.Kind)
		data := emptyData()
		data.Degraded = true
		return data, nil
	}

	var (
		data    = emptyData()
		monthly []*domain.MonthTotal
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		data.KPI.Total, err = svc.store.SumValues(egCtx, q.filter())
		return wrap("sum", err)
	})
	eg.Go(func() (err error) {
		data.KPI.PrevTotal, err = svc.store.SumValues(egCtx, q.previous())
		return wrap("previous sum", err)
	})
	eg.Go(func() (err error) {
		monthly, err = svc.store.MonthlyTotals(egCtx, q.filter())
		return wrap("monthly totals", err)
	})
	eg.Go(func() error {
		items, err := svc.store.TopItems(egCtx, q.filter(), topLimit)
		if items != nil {
			data.TopEntities = items
		}
		return wrap("top items", err)
	})
	eg.Go(func() error {
		categories, err := svc.store.CategoryTotals(egCtx, q.filter())
		if categories != nil {
			data.Categories = categories
		}
		return wrap("categories", err)
	})
	eg.Go(func() error {
		municipalities, err := svc.store.TopMunicipalities(egCtx, q.filter(), topLimit)
		if municipalities != nil {
			data.TopMunicipalities = municipalities
		}
		return wrap("top municipalities", err)
	})

	if err := eg.Wait(); err != nil {
		if degradable(err) {
			logger.Warnf(ctx, "dashboard degraded: %v", err)
			data = emptyData()
			data.Degraded = true
			return data, nil
		}
		logger.Errorf(ctx, "dashboard: %v", err)
		return nil, err
	}

	data.MonthlyDynamics = zeroFill(monthly)
	data.KPI.ChangePercent = utils.ChangePercent(data.KPI.Total, data.KPI.PrevTotal)
	return data, nil
}

func wrap(stage string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", stage, err)
}

// ClampLimit ограничивает размер ленты: 0 даёт значение по умолчанию, не больше recentMaxLimit.
func (svc *Service) ClampLimit(limit int) int {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > svc.recentMaxLimit {
		limit = svc.recentMaxLimit
	}
	return limit
}

func (svc *Service) Recent(ctx context.Context, kind domain.ValueKind, municipalityID *int64, limit int) ([]*domain.RecentValue, error) {
	if !svc.tablePresent(kind) {
		return []*domain.RecentValue{}, nil
	}

	items, err := svc.store.RecentValues(ctx, kind, municipalityID, svc.ClampLimit(limit))
	if err != nil {
		if degradable(err) {
			logger.Warnf(ctx, "recent values degraded: %v", err)
			return []*domain.RecentValue{}, nil
		}
		return nil, err
	}
	if items == nil {
		items = []*domain.RecentValue{}
	}
	return items, nil
}

type Stats struct {
	Municipalities  int64 `json:"municipalities"`
	IndicatorValues int64 `json:"indicator_values"`
	ServiceValues   int64 `json:"service_values"`
}

// Stats: общие счётчики; отсутствующие таблицы считаются пустыми.
func (svc *Service) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	count := func(table string, dst *int64, fn func(ctx context.Context) (int64, error)) func() error {
		return func() error {
			if !svc.store.HasTable(table) {
				return nil
			}
			n, err := fn(ctx)
			if err != nil {
				if degradable(err) {
					logger.Warnf(ctx, "stats %s degraded: %v", table, err)
					return nil
				}
				return wrap(table, err)
			}
			*dst = n
			return nil
		}
	}

	var eg errgroup.Group
	eg.Go(count("municipalities", &stats.Municipalities, svc.store.CountMunicipalities))
	eg.Go(count(domain.KindIndicator.Tables().Values, &stats.IndicatorValues, func(ctx context.Context) (int64, error) {
		return svc.store.CountValues(ctx, domain.KindIndicator)
	}))
	eg.Go(count(domain.KindService.Tables().Values, &stats.ServiceValues, func(ctx context.Context) (int64, error) {
		return svc.store.CountValues(ctx, domain.KindService)
	}))

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
