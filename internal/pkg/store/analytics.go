package store

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/store/xpgx"
)

// AnalyticsFilter: ключ выборки для свёрток. Month и MunicipalityID необязательны,
// Filter отбирает форму показателей или категорию услуг.
type AnalyticsFilter struct {
	Kind           domain.ValueKind
	Year           domain.Year
	Month          *domain.Month
	MunicipalityID *int64
	Filter         *string
}

func (f AnalyticsFilter) apply(query squirrel.SelectBuilder) squirrel.SelectBuilder {
	t := f.Kind.Tables()
	query = query.Where(squirrel.Eq{"v.period_year": f.Year})
	if f.Month != nil {
		query = query.Where(squirrel.Eq{"v.period_month": *f.Month})
	}
	if f.MunicipalityID != nil {
		query = query.Where(squirrel.Eq{"v.municipality_id": *f.MunicipalityID})
	}
	if f.Filter != nil {
		query = query.Where(squirrel.Expr("v."+t.ItemFK+" IN (SELECT id FROM "+t.Catalog+" WHERE "+t.Filter+" = ?)", *f.Filter))
	}
	return query
}

const sumExpr = "COALESCE(SUM(v.value_numeric), 0)::float8 AS total"

func selectx[T any](ctx context.Context, s *store, query squirrel.Sqlizer) ([]*T, error) {
	var items []*T
	err := s.db.Read(ctx, func(ctx context.Context, q xpgx.Querier) (err error) {
		items, err = xpgx.Selectx[T](ctx, q, query)
		return err
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return items, nil
}

func (s *store) SumValues(ctx context.Context, f AnalyticsFilter) (float64, error) {
	query := f.apply(builder().Select(sumExpr).From(f.Kind.Tables().Values + " v"))

	var total float64
	err := s.db.Read(ctx, func(ctx context.Context, q xpgx.Querier) error {
		return xpgx.QueryRowx(ctx, q, query, &total)
	})
	if err != nil {
		return 0, wrapErr(err)
	}
	return total, nil
}

// MonthlyTotals возвращает только месяцы, в которых есть данные. Дополнение нулями делает сервис.
func (s *store) MonthlyTotals(ctx context.Context, f AnalyticsFilter) ([]*domain.MonthTotal, error) {
	f.Month = nil
	query := f.apply(builder().
		Select("v.period_month AS month", sumExpr, "COUNT(*)::int8 AS records").
		From(f.Kind.Tables().Values + " v")).
		GroupBy("v.period_month").
		OrderBy("month")

	return selectx[domain.MonthTotal](ctx, s, query)
}

func (s *store) TopItems(ctx context.Context, f AnalyticsFilter, limit int) ([]*domain.ItemTotal, error) {
	t := f.Kind.Tables()
	query := f.apply(builder().
		Select("c.id", "c.name", "c."+t.Filter+" AS category", sumExpr).
		From(t.Values + " v").
		Join(t.Catalog + " c ON c.id = v." + t.ItemFK)).
		GroupBy("c.id", "c.name", "c."+t.Filter).
		OrderBy("total DESC", "c.id").
		Limit(uint64(limit))

	return selectx[domain.ItemTotal](ctx, s, query)
}

func (s *store) CategoryTotals(ctx context.Context, f AnalyticsFilter) ([]*domain.CategoryTotal, error) {
	t := f.Kind.Tables()
	query := f.apply(builder().
		Select("COALESCE(c."+t.Filter+", '') AS category", sumExpr).
		From(t.Values + " v").
		Join(t.Catalog + " c ON c.id = v." + t.ItemFK)).
		GroupBy("1").
		OrderBy("total DESC")

	return selectx[domain.CategoryTotal](ctx, s, query)
}

func (s *store) TopMunicipalities(ctx context.Context, f AnalyticsFilter, limit int) ([]*domain.MunicipalityTotal, error) {
	query := f.apply(builder().
		Select("m.id", "m.name", sumExpr).
		From(f.Kind.Tables().Values + " v").
		Join(tableMunicipalities + " m ON m.id = v.municipality_id")).
		GroupBy("m.id", "m.name").
		OrderBy("total DESC", "m.id").
		Limit(uint64(limit))

	return selectx[domain.MunicipalityTotal](ctx, s, query)
}

func (s *store) RecentValues(ctx context.Context, kind domain.ValueKind, municipalityID *int64, limit int) ([]*domain.RecentValue, error) {
	t := kind.Tables()
	query := builder().
		Select(
			"v.municipality_id",
			"m.name AS municipality_name",
			"v."+t.ItemFK+" AS item_id",
			"c.name AS item_name",
			"v.period_year",
			"v.period_month",
			"v.value_numeric::float8 AS value_numeric",
			"v.updated_at",
		).
		From(t.Values + " v").
		Join(tableMunicipalities + " m ON m.id = v.municipality_id").
		Join(t.Catalog + " c ON c.id = v." + t.ItemFK).
		OrderBy("v.updated_at DESC", "v.id DESC").
		Limit(uint64(limit))
	if municipalityID != nil {
		query = query.Where(squirrel.Eq{"v.municipality_id": *municipalityID})
	}

	return selectx[domain.RecentValue](ctx, s, query)
}

func (s *store) ExportRows(ctx context.Context, f AnalyticsFilter) ([]*domain.ExportRow, error) {
	t := f.Kind.Tables()
	query := f.apply(builder().
		Select(
			"v.period_year",
			"v.period_month",
			"m.name AS municipality_name",
			"c.code AS item_code",
			"c.name AS item_name",
			"c.unit",
			"v.value_numeric::float8 AS value_numeric",
			"v.updated_at",
		).
		From(t.Values + " v").
		Join(tableMunicipalities + " m ON m.id = v.municipality_id").
		Join(t.Catalog + " c ON c.id = v." + t.ItemFK)).
		OrderBy("v.period_year", "v.period_month", "m.name", "c.sort_order NULLS LAST", "c.id")

	return selectx[domain.ExportRow](ctx, s, query)
}

func (s *store) CountMunicipalities(ctx context.Context) (int64, error) {
	return s.count(ctx, builder().Select("COUNT(*)").From(tableMunicipalities).Where("is_active"))
}

func (s *store) CountValues(ctx context.Context, kind domain.ValueKind) (int64, error) {
	return s.count(ctx, builder().Select("COUNT(*)").From(kind.Tables().Values))
}

func (s *store) count(ctx context.Context, query squirrel.Sqlizer) (int64, error) {
	var n int64
	err := s.db.Read(ctx, func(ctx context.Context, q xpgx.Querier) error {
		return xpgx.QueryRowx(ctx, q, query, &n)
	})
	if err != nil {
		return 0, wrapErr(err)
	}
	return n, nil
}
