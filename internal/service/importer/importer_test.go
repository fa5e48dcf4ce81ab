package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/store"
	"github.com/ougirez/muniportal/internal/pkg/store/storetest"
	"github.com/ougirez/muniportal/internal/service/reports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var defaultSummary = []string{"липецкая область", "итого", "всего по"}

func str(s string) *string {
	return &s
}

func xlsx(t *testing.T, sheet string, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func setup(t *testing.T) (*Service, *storetest.Memory) {
	t.Helper()
	mem := storetest.NewMemory()
	mem.AddMunicipality(1, "Елецкий муниципальный район")
	mem.AddMunicipality(2, "г. Елец")
	mem.AddMunicipality(3, "Данковский район")

	for i, code := range gibddColumns {
		mem.AddCatalogItem(domain.KindIndicator, domain.CatalogItem{ID: int64(100 + i), Code: code, Name: code, FormCode: str(domain.FormGIBDD)})
	}
	for i := 1; i <= 9; i++ {
		mem.AddCatalogItem(domain.KindIndicator, domain.CatalogItem{
			ID:       int64(i),
			Code:     fmt.Sprintf("gmu_%d", i),
			Name:     fmt.Sprintf("Показатель номер %d", i),
			FormCode: str(domain.FormGMU),
		})
	}

	return NewImporterService(mem, reports.NewReportsService(mem), defaultSummary), mem
}

func gibddRow(label string, base int) []interface{} {
	row := []interface{}{label}
	for i := range gibddColumns {
		row = append(row, base+i)
	}
	return row
}

func TestImportGIBDD(t *testing.T) {
	svc, mem := setup(t)

	data := xlsx(t, "Август 2025", [][]interface{}{
		{"Территория", "ДТП всего"},
		gibddRow("Липецкая область", 1000),
		gibddRow("Елецкий район", 10),
		gibddRow("  г.  Елец ", 20),
		{"", 1, 2},
		gibddRow("Неизвестный округ", 30),
	})

	res, err := svc.Import(context.Background(), Request{Kind: KindGIBDD, Data: data})
	require.NoError(t, err)

	assert.Equal(t, domain.Period{Year: 2025, Month: 8}, res.Period)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, []string{"Пропущена итоговая строка: Липецкая область"}, res.Skipped)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Неизвестный округ")

	period := domain.Period{Year: 2025, Month: 8}
	rec, ok := mem.Value(domain.KindIndicator, 1, 100, period)
	require.True(t, ok)
	assert.Equal(t, 10.0, rec.Value)
	rec, ok = mem.Value(domain.KindIndicator, 2, 141, period)
	require.True(t, ok)
	assert.Equal(t, 61.0, rec.Value)
	assert.Equal(t, 2*len(gibddColumns), mem.ValueCount(domain.KindIndicator))
}

// gibddHeader: заголовок полной ширины формы безопасности дорожного движения.
func gibddHeader() []interface{} {
	row := []interface{}{"Территория"}
	for _, code := range gibddColumns {
		row = append(row, code)
	}
	return row
}

func TestImportGIBDDLenientCells(t *testing.T) {
	svc, mem := setup(t)

	data := xlsx(t, "Сведения за сентября 2024 г.", [][]interface{}{
		gibddHeader(),
		{"Данковский район", "н/д", "", "5"},
	})

	res, err := svc.Import(context.Background(), Request{Kind: KindGIBDD, Data: data})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	period := domain.Period{Year: 2024, Month: 9}
	rec, ok := mem.Value(domain.KindIndicator, 3, 100, period)
	require.True(t, ok)
	assert.Zero(t, rec.Value)
	rec, ok = mem.Value(domain.KindIndicator, 3, 102, period)
	require.True(t, ok)
	assert.Equal(t, 5.0, rec.Value)
}

func TestImportGIBDDRowFailureDoesNotAbort(t *testing.T) {
	svc, mem := setup(t)
	mem.Errors["UpsertValues"] = fmt.Errorf("deadlock detected")

	data := xlsx(t, "Август 2025", [][]interface{}{
		{"Территория"},
		gibddRow("Елецкий район", 1),
		gibddRow("Данковский район", 1),
	})

	res, err := svc.Import(context.Background(), Request{Kind: KindGIBDD, Data: data})
	require.NoError(t, err)
	assert.Zero(t, res.Imported)
	assert.Len(t, res.Errors, 2)
}

func TestImportGIBDDNarrowSheetKeepsStoredValues(t *testing.T) {
	svc, mem := setup(t)
	period := domain.Period{Year: 2025, Month: 8}
	stored := 77.0
	_, err := mem.UpsertValues(context.Background(), store.ValueBatch{
		Kind:           domain.KindIndicator,
		MunicipalityID: 1,
		Period:         period,
		Entries:        []domain.ValueEntry{{ItemID: 100, Value: &stored}},
	})
	require.NoError(t, err)

	data := xlsx(t, "Август 2025", [][]interface{}{
		{"Территория"},
		{"Елецкий район"},
	})
	_, err = svc.Import(context.Background(), Request{Kind: KindGIBDD, Data: data})
	require.True(t, constants.IsCode(err, 400), "got %v", err)
	assert.Contains(t, err.Error(), "missing required columns")

	rec, ok := mem.Value(domain.KindIndicator, 1, 100, period)
	require.True(t, ok)
	assert.Equal(t, 77.0, rec.Value)
	assert.Equal(t, 1, mem.ValueCount(domain.KindIndicator))
}

func TestImportGIBDDMissingPeriod(t *testing.T) {
	svc, _ := setup(t)

	data := xlsx(t, "Лист1", [][]interface{}{{"Территория"}, gibddRow("Елецкий район", 1)})
	_, err := svc.Import(context.Background(), Request{Kind: KindGIBDD, Data: data})
	assert.True(t, constants.IsCode(err, 400))

	res, err := svc.Import(context.Background(), Request{Kind: KindGIBDD, Data: data, Period: &domain.Period{Year: 2025, Month: 3}})
	require.NoError(t, err)
	assert.Equal(t, domain.Period{Year: 2025, Month: 3}, res.Period)
}

func TestImportIndicatorsOneUnmatched(t *testing.T) {
	svc, mem := setup(t)

	rows := [][]interface{}{{"Показатель", "Единица", "Значение"}}
	for i := 1; i <= 9; i++ {
		rows = append(rows, []interface{}{fmt.Sprintf("%d.1. Показатель  номер %d", i, i), "ед.", i * 10})
	}
	rows = append(rows, []interface{}{"Несуществующий показатель", "ед.", 5})

	municipality := int64(1)
	res, err := svc.Import(context.Background(), Request{
		Kind:           KindIndicators,
		Data:           xlsx(t, "Лист1", rows),
		Period:         &domain.Period{Year: 2025, Month: 8},
		MunicipalityID: &municipality,
	})
	require.NoError(t, err)

	assert.Equal(t, 9, res.Imported)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Несуществующий показатель")
	assert.Empty(t, res.Skipped)

	rec, ok := mem.Value(domain.KindIndicator, 1, 3, domain.Period{Year: 2025, Month: 8})
	require.True(t, ok)
	assert.Equal(t, 30.0, rec.Value)
}

func TestImportIndicatorsRequiresScope(t *testing.T) {
	svc, _ := setup(t)

	data := xlsx(t, "Август 2025", [][]interface{}{{"Показатель"}, {"Показатель номер 1", 1}})
	_, err := svc.Import(context.Background(), Request{Kind: KindIndicators, Data: data})
	assert.ErrorIs(t, err, constants.ErrMissingScope)
}

func TestImportHTMLTable(t *testing.T) {
	svc, _ := setup(t)

	var b strings.Builder
	b.WriteString(`<html><head><meta charset="utf-8"><title>Август 2025</title></head><body><table>`)
	b.WriteString(`<tr><th colspan="2">Территория</th></tr>`)
	b.WriteString(`<tr><td>Елецкий район</td>`)
	for i := range gibddColumns {
		fmt.Fprintf(&b, "<td>%d</td>", i)
	}
	b.WriteString(`</tr><tr><td>Итого по области</td><td>1</td></tr></table></body></html>`)

	res, err := svc.Import(context.Background(), Request{Kind: KindGIBDD, Data: []byte(b.String())})
	require.NoError(t, err)
	assert.Equal(t, domain.Period{Year: 2025, Month: 8}, res.Period)
	assert.Equal(t, 1, res.Imported)
	assert.Len(t, res.Skipped, 1)
}

func TestImportStructuralFailures(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	for name, data := range map[string][]byte{
		"empty":       nil,
		"binary":      {0x00, 0x01, 0x02},
		"broken zip":  []byte("PK\x03\x04garbage"),
		"header only": xlsx(t, "Август 2025", [][]interface{}{{"Территория"}}),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Import(ctx, Request{Kind: KindGIBDD, Data: data})
			assert.True(t, constants.IsCode(err, 400), "got %v", err)
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindGIBDD, k)

	k, err = ParseKind("Services")
	require.NoError(t, err)
	assert.Equal(t, KindServices, k)
	assert.True(t, k.Scoped())

	_, err = ParseKind("finance")
	assert.True(t, constants.IsCode(err, 400))
}
