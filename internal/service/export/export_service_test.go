package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/store"
	"github.com/ougirez/muniportal/internal/pkg/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func ptr[T any](v T) *T { return &v }

func seed(t *testing.T) *storetest.Memory {
	t.Helper()
	mem := storetest.NewMemory()
	mem.AddMunicipality(1, "Елецкий район")
	mem.AddMunicipality(2, "Грязи")
	mem.AddCatalogItem(domain.KindIndicator, domain.CatalogItem{ID: 10, Code: "1.1", Name: "Численность", Unit: ptr("чел."), FormCode: ptr(domain.FormGMU)})
	mem.AddCatalogItem(domain.KindIndicator, domain.CatalogItem{ID: 11, Code: "1.2", Name: "Бюджет", FormCode: ptr(domain.FormGMU)})

	write := func(mun int64, period domain.Period, values map[int64]float64) {
		var entries []domain.ValueEntry
		for id, v := range values {
			entries = append(entries, domain.ValueEntry{ItemID: id, Value: ptr(v)})
		}
		_, err := mem.UpsertValues(context.Background(), store.ValueBatch{
			Kind: domain.KindIndicator, MunicipalityID: mun, Period: period, Entries: entries,
		})
		require.NoError(t, err)
	}
	write(1, domain.Period{Year: 2025, Month: 3}, map[int64]float64{10: 100, 11: 20})
	write(2, domain.Period{Year: 2025, Month: 3}, map[int64]float64{10: 5})
	write(2, domain.Period{Year: 2024, Month: 3}, map[int64]float64{10: 999})
	return mem
}

func fixedNow() time.Time { return time.Date(2025, 4, 2, 15, 0, 0, 0, time.UTC) }

func TestExportWorkbook(t *testing.T) {
	svc := NewExportService(seed(t))
	svc.now = fixedNow

	file, err := svc.Export(context.Background(), Query{Kind: domain.KindIndicator, Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, "Отчеты_Все_муниципалитеты_2025-04-02.xlsx", file.Name)
	assert.Equal(t, 3, file.Rows)

	f, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetReports, SheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(SheetReports)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, reportHeaders, rows[0])
	assert.Equal(t, []string{"03.2025", "Грязи", "1.1", "Численность", "чел.", "5", "01.01.2025"}, rows[1])
	assert.Equal(t, "Елецкий район", rows[2][1])

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, []string{"Елецкий район", "2", "120", "60"}, summary[1][:4])
	assert.Equal(t, []string{"Грязи", "1", "5", "5"}, summary[2][:4])
}

func TestExportScopedFileName(t *testing.T) {
	svc := NewExportService(seed(t))
	svc.now = fixedNow

	file, err := svc.Export(context.Background(), Query{
		Kind:           domain.KindIndicator,
		Year:           2025,
		Month:          ptr(3),
		MunicipalityID: ptr[int64](1),
	})
	require.NoError(t, err)
	assert.Equal(t, "Отчеты_Елецкий_район_2025-04-02.xlsx", file.Name)
	assert.Equal(t, 2, file.Rows)
}

func TestExportErrors(t *testing.T) {
	svc := NewExportService(seed(t))

	_, err := svc.Export(context.Background(), Query{Kind: domain.KindIndicator, Year: 1999})
	assert.True(t, constants.IsCode(err, 400))

	_, err = svc.Export(context.Background(), Query{Kind: domain.KindIndicator, Year: 2025, Month: ptr(0)})
	assert.True(t, constants.IsCode(err, 400))

	_, err = svc.Export(context.Background(), Query{Kind: domain.KindIndicator, Year: 2025, MunicipalityID: ptr[int64](77)})
	assert.ErrorIs(t, err, constants.ErrDBNotFound)
}

func TestWorkbookEmpty(t *testing.T) {
	data, err := Workbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, [][]string{summaryHeaders}, rows)
}
