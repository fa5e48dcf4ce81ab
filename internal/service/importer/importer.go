package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/logger"
	"github.com/ougirez/muniportal/internal/pkg/utils"
	"github.com/ougirez/muniportal/internal/service/reports"
)

type Kind string

const (
	KindGIBDD      Kind = "gibdd"
	KindIndicators Kind = "indicators"
	KindServices   Kind = "services"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindGIBDD, KindIndicators, KindServices:
		return k, nil
	case "":
		return KindGIBDD, nil
	default:
		return "", constants.BadRequest(fmt.Sprintf("unknown import type %q", s))
	}
}

// Scoped: требует ли тип импорта муниципалитет в параметрах запроса.
func (k Kind) Scoped() bool {
	return k != KindGIBDD
}

func (k Kind) valueKind() domain.ValueKind {
	if k == KindServices {
		return domain.KindService
	}
	return domain.KindIndicator
}

type Catalog interface {
	ListMunicipalities(ctx context.Context, onlyID *int64) ([]*domain.Municipality, error)
	ListCatalog(ctx context.Context, kind domain.ValueKind, filter *string) ([]*domain.CatalogItem, error)
}

// Writer: контракт записи значений, реализуется reports.Service.
type Writer interface {
	UpsertValues(ctx context.Context, req reports.UpsertRequest) (*reports.UpsertResult, error)
}

type Request struct {
	Kind           Kind
	Data           []byte
	Period         *domain.Period
	MunicipalityID *int64
	Filter         *string
	UpdatedBy      *int64
}

type Service struct {
	catalog Catalog
	writer  Writer
	summary Summary
}

func NewImporterService(catalog Catalog, writer Writer, summaryPatterns []string) *Service {
	return &Service{catalog: catalog, writer: writer, summary: NewSummary(summaryPatterns)}
}

// Import разбирает файл и пишет значения. Ошибки строк попадают в результат,
// ошибкой запроса заканчиваются только структурные проблемы файла.
func (svc *Service) Import(ctx context.Context, req Request) (*ImportResult, error) {
	sheets, err := ReadSheets(req.Data)
	if err != nil {
		return nil, err
	}
	sheet := sheets[0]
	if len(sheet.Rows) < 2 {
		return nil, constants.BadRequest("sheet has no data rows")
	}

	var res ImportResult
	switch req.Kind {
	case KindGIBDD:
		res, err = svc.importGIBDD(ctx, sheet, req)
	case KindIndicators, KindServices:
		res, err = svc.importItems(ctx, sheet, req)
	default:
		return nil, constants.BadRequest(fmt.Sprintf("unknown import type %q", req.Kind))
	}
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "import finished",
		"kind", res.Kind,
		"year", res.Period.Year,
		"month", res.Period.Month,
		"imported", res.Imported,
		"errors", len(res.Errors),
		"skipped", len(res.Skipped),
	)
	return &res, nil
}

func (svc *Service) resolvePeriod(sheet Sheet, fallback *domain.Period) (domain.Period, error) {
	if p, ok := ParsePeriod(sheet.Name); ok {
		return p, reports.ValidatePeriod(p)
	}
	if fallback != nil {
		return *fallback, reports.ValidatePeriod(*fallback)
	}
	return domain.Period{}, constants.ErrInvalidPeriod.WithMessage(
		fmt.Sprintf("cannot determine period from sheet name %q, expected \"Month YYYY\"", sheet.Name))
}

func (svc *Service) municipalityIndex(ctx context.Context) (map[string]int64, error) {
	items, err := svc.catalog.ListMunicipalities(ctx, nil)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int64, len(items))
	for _, m := range items {
		index[NormalizeMunicipality(m.Name)] = m.ID
	}
	return index, nil
}

func (svc *Service) importGIBDD(ctx context.Context, sheet Sheet, req Request) (ImportResult, error) {
	period, err := svc.resolvePeriod(sheet, req.Period)
	if err != nil {
		return ImportResult{}, err
	}

	municipalities, err := svc.municipalityIndex(ctx)
	if err != nil {
		return ImportResult{}, err
	}

	form := domain.FormGIBDD
	items, err := svc.catalog.ListCatalog(ctx, domain.KindIndicator, &form)
	if err != nil {
		return ImportResult{}, err
	}
	codes := make(map[string]int64, len(items))
	for _, item := range items {
		codes[item.Code] = item.ID
	}

	if last := gibddFirstColumn + len(gibddColumns) - 1; sheet.Width() < last {
		return ImportResult{}, constants.BadRequest(fmt.Sprintf(
			"missing required columns: traffic safety sheet needs %d columns, got %d", last, sheet.Width()))
	}

	columns := make([]int64, len(gibddColumns))
	var known int
	for i, code := range gibddColumns {
		if id, ok := codes[code]; ok {
			columns[i] = id
			known++
		}
	}
	if known == 0 {
		return ImportResult{}, constants.BadRequest("traffic safety indicators are missing from the catalog")
	}

	outcomes := make([]outcome, 0, len(sheet.Rows)-1)
	for row := 1; row < len(sheet.Rows); row++ {
		if err := ctx.Err(); err != nil {
			return ImportResult{}, err
		}

		label := sheet.Cell(row, 1)
		if label == "" {
			continue
		}
		if svc.summary.Match(label) {
			outcomes = append(outcomes, skipped(fmt.Sprintf("Пропущена итоговая строка: %s", label)))
			continue
		}
		municipalityID, ok := municipalities[NormalizeMunicipality(label)]
		if !ok {
			outcomes = append(outcomes, failed(fmt.Sprintf("Муниципалитет не найден: %s", label)))
			continue
		}

		entries := make([]domain.ValueEntry, 0, known)
		for i, itemID := range columns {
			if itemID == 0 {
				continue
			}
			v := utils.NumericOrZero(sheet.Cell(row, gibddFirstColumn+i))
			entries = append(entries, domain.ValueEntry{ItemID: itemID, Value: &v})
		}

		_, err := svc.writer.UpsertValues(ctx, reports.UpsertRequest{
			Kind:           domain.KindIndicator,
			MunicipalityID: municipalityID,
			Period:         period,
			Filter:         &form,
			Entries:        entries,
			UpdatedBy:      req.UpdatedBy,
		})
		if err != nil {
			logger.Errorf(ctx, "import row %d (%s): %v", row+1, label, err)
			outcomes = append(outcomes, failed(fmt.Sprintf("Строка %d (%s): %s", row+1, label, err.Error())))
			continue
		}
		outcomes = append(outcomes, imported(1))
	}

	return collect(KindGIBDD, period, outcomes), nil
}

// valueColumn: колонка со значением: по заголовку «значение», иначе вторая.
func valueColumn(sheet Sheet) int {
	for col := 2; col <= len(sheet.Rows[0]); col++ {
		if strings.Contains(fold(sheet.Cell(0, col)), "значение") {
			return col
		}
	}
	return 2
}

func (svc *Service) importItems(ctx context.Context, sheet Sheet, req Request) (ImportResult, error) {
	if req.MunicipalityID == nil {
		return ImportResult{}, constants.ErrMissingScope
	}
	var period domain.Period
	var err error
	if req.Period != nil {
		period, err = *req.Period, reports.ValidatePeriod(*req.Period)
	} else {
		period, err = svc.resolvePeriod(sheet, nil)
	}
	if err != nil {
		return ImportResult{}, err
	}

	kind := req.Kind.valueKind()
	filter := reports.DefaultFilter(kind, req.Filter)
	items, err := svc.catalog.ListCatalog(ctx, kind, filter)
	if err != nil {
		return ImportResult{}, err
	}
	index := make(map[string]int64, 2*len(items))
	for _, item := range items {
		index[NormalizeItem(item.Name)] = item.ID
		index[strings.ToLower(item.Code)] = item.ID
	}

	col := valueColumn(sheet)
	outcomes := make([]outcome, 0, len(sheet.Rows))
	entries := make([]domain.ValueEntry, 0, len(sheet.Rows)-1)
	for row := 1; row < len(sheet.Rows); row++ {
		label := sheet.Cell(row, 1)
		if label == "" {
			continue
		}
		if svc.summary.Match(label) {
			outcomes = append(outcomes, skipped(fmt.Sprintf("Пропущена итоговая строка: %s", label)))
			continue
		}
		itemID, ok := index[NormalizeItem(label)]
		if !ok {
			outcomes = append(outcomes, failed(fmt.Sprintf("Показатель не найден: %s", label)))
			continue
		}
		v := utils.NumericOrZero(sheet.Cell(row, col))
		entries = append(entries, domain.ValueEntry{ItemID: itemID, Value: &v})
	}

	if len(entries) > 0 {
		res, err := svc.writer.UpsertValues(ctx, reports.UpsertRequest{
			Kind:           kind,
			MunicipalityID: *req.MunicipalityID,
			Period:         period,
			Filter:         filter,
			Entries:        entries,
			UpdatedBy:      req.UpdatedBy,
		})
		if err != nil {
			return ImportResult{}, err
		}
		outcomes = append(outcomes, imported(res.Saved))
	}

	return collect(req.Kind, period, outcomes), nil
}
