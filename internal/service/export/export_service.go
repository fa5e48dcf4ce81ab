package export

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/logger"
	"github.com/ougirez/muniportal/internal/pkg/store"
	"github.com/xuri/excelize/v2"
)

const (
	SheetReports = "Отчеты"
	SheetSummary = "Сводка"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	allMunicipalities = "Все_муниципалитеты"
	dateLayout        = "02.01.2006"
)

var (
	reportHeaders  = []string{"Период", "Муниципалитет", "Код", "Показатель", "Единица", "Значение", "Обновлено"}
	summaryHeaders = []string{"Муниципалитет", "Количество записей", "Общая сумма", "Среднее значение", "Первое обновление", "Последнее обновление"}
)

type Store interface {
	ExportRows(ctx context.Context, f store.AnalyticsFilter) ([]*domain.ExportRow, error)
	GetMunicipality(ctx context.Context, id int64) (*domain.Municipality, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewExportService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

type Query struct {
	Kind           domain.ValueKind
	Year           domain.Year
	Month          *domain.Month
	MunicipalityID *int64
	Filter         *string
}

type File struct {
	Name string
	Rows int
	Data []byte
}

func (svc *Service) Export(ctx context.Context, q Query) (*File, error) {
	if q.Year < 2000 || q.Year > 2100 {
		return nil, constants.ErrInvalidPeriod.WithMessage("year must be within [2000, 2100]")
	}
	if q.Month != nil && (*q.Month < 1 || *q.Month > 12) {
		return nil, constants.ErrInvalidPeriod.WithMessage("month must be within [1, 12]")
	}

	scope := allMunicipalities
	if q.MunicipalityID != nil {
		mun, err := svc.store.GetMunicipality(ctx, *q.MunicipalityID)
		if err != nil {
			return nil, err
		}
		scope = strings.Join(strings.Fields(mun.Name), "_")
	}

	rows, err := svc.store.ExportRows(ctx, store.AnalyticsFilter{
		Kind:           q.Kind,
		Year:           q.Year,
		Month:          q.Month,
		MunicipalityID: q.MunicipalityID,
		Filter:         q.Filter,
	})
	if err != nil {
		logger.Errorf(ctx, "export rows: %v", err)
		return nil, err
	}

	data, err := Workbook(rows)
	if err != nil {
		logger.Errorf(ctx, "export workbook: %v", err)
		return nil, constants.ErrInternal.Wrap(err)
	}

	logger.Infof(ctx, "export %s %d: %d rows", q.Kind, q.Year, len(rows))
	return &File{
		Name: fmt.Sprintf("%s_%s_%s.xlsx", SheetReports, scope, svc.now().Format("2006-01-02")),
		Rows: len(rows),
		Data: data,
	}, nil
}

type summary struct {
	name        string
	count       int
	total       float64
	first, last time.Time
}

func summarize(rows []*domain.ExportRow) []*summary {
	byName := make(map[string]*summary)
	for _, row := range rows {
		s, ok := byName[row.MunicipalityName]
		if !ok {
			s = &summary{name: row.MunicipalityName, first: row.UpdatedAt, last: row.UpdatedAt}
			byName[row.MunicipalityName] = s
		}
		s.count++
		s.total += row.Value
		if row.UpdatedAt.Before(s.first) {
			s.first = row.UpdatedAt
		}
		if row.UpdatedAt.After(s.last) {
			s.last = row.UpdatedAt
		}
	}

	out := make([]*summary, 0, len(byName))
	for _, s := range byName {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].total != out[j].total {
			return out[i].total > out[j].total
		}
		return out[i].name < out[j].name
	})
	return out
}

// Workbook собирает xlsx из строк выгрузки: детальный лист и сводку по муниципалитетам.
func Workbook(rows []*domain.ExportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetReports); err != nil {
		return nil, fmt.Errorf("excelize.SetSheetName: %w", err)
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return nil, fmt.Errorf("excelize.NewSheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E0E0E0"}},
	})
	if err != nil {
		return nil, fmt.Errorf("excelize.NewStyle: %w", err)
	}

	reports := make([][]any, 0, len(rows))
	for _, row := range rows {
		var unit string
		if row.Unit != nil {
			unit = *row.Unit
		}
		reports = append(reports, []any{
			fmt.Sprintf("%02d.%d", row.PeriodMonth, row.PeriodYear),
			row.MunicipalityName,
			row.ItemCode,
			row.ItemName,
			unit,
			row.Value,
			row.UpdatedAt.Format(dateLayout),
		})
	}
	if err = writeSheet(f, SheetReports, reportHeaders, reports, header); err != nil {
		return nil, err
	}

	sums := summarize(rows)
	totals := make([][]any, 0, len(sums))
	for _, s := range sums {
		totals = append(totals, []any{
			s.name,
			s.count,
			s.total,
			s.total / float64(s.count),
			s.first.Format(dateLayout),
			s.last.Format(dateLayout),
		})
	}
	if err = writeSheet(f, SheetSummary, summaryHeaders, totals, header); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err = f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("excelize.WriteTo: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any, headerStyle int) error {
	widths := make([]int, len(headers))
	head := make([]any, len(headers))
	for i, h := range headers {
		head[i] = h
		widths[i] = utf8.RuneCountInString(h)
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return fmt.Errorf("excelize.SetSheetRow: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err = f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("excelize.SetSheetRow: %w", err)
		}
		for j, v := range row {
			if n := utf8.RuneCountInString(fmt.Sprint(v)); n > widths[j] {
				widths[j] = n
			}
		}
	}

	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err = f.SetCellStyle(sheet, "A1", last+"1", headerStyle); err != nil {
		return fmt.Errorf("excelize.SetCellStyle: %w", err)
	}

	// ширина колонки в пределах [10, 50]
	for j, w := range widths {
		col, _ := excelize.ColumnNumberToName(j + 1)
		width := float64(min(max(w+2, 10), 50))
		if err = f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("excelize.SetColWidth: %w", err)
		}
	}
	return nil
}
