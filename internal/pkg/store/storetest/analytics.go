package storetest

import (
	"context"
	"sort"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/store"
)

func (m *Memory) item(kind domain.ValueKind, id int64) *domain.CatalogItem {
	for _, item := range m.catalog[kind] {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// matching возвращает значения под фильтр. Вызывается под m.mu.
func (m *Memory) matching(f store.AnalyticsFilter) []*domain.ValueRecord {
	var out []*domain.ValueRecord
	for k, rec := range m.values[f.Kind] {
		if k.year != f.Year {
			continue
		}
		if f.Month != nil && k.month != *f.Month {
			continue
		}
		if f.MunicipalityID != nil && k.municipality != *f.MunicipalityID {
			continue
		}
		if f.Filter != nil {
			item := m.item(f.Kind, k.item)
			if item == nil {
				continue
			}
			if v := filterOf(f.Kind, item); v == nil || *v != *f.Filter {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

func (m *Memory) SumValues(ctx context.Context, f store.AnalyticsFilter) (float64, error) {
	if err := m.call("SumValues"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var total float64
	for _, rec := range m.matching(f) {
		total += rec.Value
	}
	return total, nil
}

func (m *Memory) MonthlyTotals(ctx context.Context, f store.AnalyticsFilter) ([]*domain.MonthTotal, error) {
	if err := m.call("MonthlyTotals"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f.Month = nil
	byMonth := make(map[domain.Month]*domain.MonthTotal)
	for _, rec := range m.matching(f) {
		t, ok := byMonth[rec.PeriodMonth]
		if !ok {
			t = &domain.MonthTotal{Month: rec.PeriodMonth}
			byMonth[rec.PeriodMonth] = t
		}
		t.Total += rec.Value
		t.Records++
	}
	out := make([]*domain.MonthTotal, 0, len(byMonth))
	for _, t := range byMonth {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (m *Memory) TopItems(ctx context.Context, f store.AnalyticsFilter, limit int) ([]*domain.ItemTotal, error) {
	if err := m.call("TopItems"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byItem := make(map[int64]*domain.ItemTotal)
	for _, rec := range m.matching(f) {
		t, ok := byItem[rec.ItemID]
		if !ok {
			item := m.item(f.Kind, rec.ItemID)
			if item == nil {
				continue
			}
			t = &domain.ItemTotal{ID: item.ID, Name: item.Name, Category: filterOf(f.Kind, item)}
			byItem[rec.ItemID] = t
		}
		t.Total += rec.Value
	}
	out := make([]*domain.ItemTotal, 0, len(byItem))
	for _, t := range byItem {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) CategoryTotals(ctx context.Context, f store.AnalyticsFilter) ([]*domain.CategoryTotal, error) {
	if err := m.call("CategoryTotals"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byCategory := make(map[string]*domain.CategoryTotal)
	for _, rec := range m.matching(f) {
		item := m.item(f.Kind, rec.ItemID)
		if item == nil {
			continue
		}
		var name string
		if c := filterOf(f.Kind, item); c != nil {
			name = *c
		}
		t, ok := byCategory[name]
		if !ok {
			t = &domain.CategoryTotal{Category: name}
			byCategory[name] = t
		}
		t.Total += rec.Value
	}
	out := make([]*domain.CategoryTotal, 0, len(byCategory))
	for _, t := range byCategory {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out, nil
}

func (m *Memory) TopMunicipalities(ctx context.Context, f store.AnalyticsFilter, limit int) ([]*domain.MunicipalityTotal, error) {
	if err := m.call("TopMunicipalities"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byMun := make(map[int64]*domain.MunicipalityTotal)
	for _, rec := range m.matching(f) {
		t, ok := byMun[rec.MunicipalityID]
		if !ok {
			mun, found := m.municipalities[rec.MunicipalityID]
			if !found {
				continue
			}
			t = &domain.MunicipalityTotal{ID: mun.ID, Name: mun.Name}
			byMun[rec.MunicipalityID] = t
		}
		t.Total += rec.Value
	}
	out := make([]*domain.MunicipalityTotal, 0, len(byMun))
	for _, t := range byMun {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) RecentValues(ctx context.Context, kind domain.ValueKind, municipalityID *int64, limit int) ([]*domain.RecentValue, error) {
	if err := m.call("RecentValues"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.RecentValue
	for k, rec := range m.values[kind] {
		if municipalityID != nil && k.municipality != *municipalityID {
			continue
		}
		rv := &domain.RecentValue{
			MunicipalityID: rec.MunicipalityID,
			ItemID:         rec.ItemID,
			PeriodYear:     rec.PeriodYear,
			PeriodMonth:    rec.PeriodMonth,
			Value:          rec.Value,
			UpdatedAt:      rec.UpdatedAt,
		}
		if mun, ok := m.municipalities[rec.MunicipalityID]; ok {
			rv.MunicipalityName = mun.Name
		}
		if item := m.item(kind, rec.ItemID); item != nil {
			rv.ItemName = item.Name
		}
		out = append(out, rv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ExportRows(ctx context.Context, f store.AnalyticsFilter) ([]*domain.ExportRow, error) {
	if err := m.call("ExportRows"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ExportRow
	for _, rec := range m.matching(f) {
		row := &domain.ExportRow{
			PeriodYear:  rec.PeriodYear,
			PeriodMonth: rec.PeriodMonth,
			Value:       rec.Value,
			UpdatedAt:   rec.UpdatedAt,
		}
		if mun, ok := m.municipalities[rec.MunicipalityID]; ok {
			row.MunicipalityName = mun.Name
		}
		if item := m.item(f.Kind, rec.ItemID); item != nil {
			row.ItemCode, row.ItemName, row.Unit = item.Code, item.Name, item.Unit
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PeriodMonth != b.PeriodMonth {
			return a.PeriodMonth < b.PeriodMonth
		}
		if a.MunicipalityName != b.MunicipalityName {
			return a.MunicipalityName < b.MunicipalityName
		}
		return a.ItemCode < b.ItemCode
	})
	return out, nil
}

func (m *Memory) CountMunicipalities(ctx context.Context) (int64, error) {
	if err := m.call("CountMunicipalities"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.municipalities)), nil
}

func (m *Memory) CountValues(ctx context.Context, kind domain.ValueKind) (int64, error) {
	if err := m.call("CountValues"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.values[kind])), nil
}
