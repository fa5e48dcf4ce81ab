package store

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/store/xpgx"
)

// ValueBatch: проверенный пакет значений одного муниципалитета за один период.
type ValueBatch struct {
	Kind           domain.ValueKind
	MunicipalityID int64
	Period         domain.Period
	Entries        []domain.ValueEntry
	UpdatedBy      *int64
}

func upsertValueQuery(t domain.Tables, b ValueBatch, e domain.ValueEntry) squirrel.InsertBuilder {
	return builder().Insert(t.Values).
		Columns("municipality_id", t.ItemFK, "period_year", "period_month", "value_numeric", "updated_by").
		Values(b.MunicipalityID, e.ItemID, b.Period.Year, b.Period.Month, *e.Value, b.UpdatedBy).
		Suffix(fmt.Sprintf("ON CONFLICT (municipality_id, %s, period_year, period_month) DO UPDATE SET "+
			"value_numeric = excluded.value_numeric, updated_at = now(), updated_by = excluded.updated_by", t.ItemFK))
}

// UpsertValues пишет весь пакет в одной транзакции primary в порядке входа.
// Любая ошибка откатывает пакет целиком. Entries с пустым Value сюда попадать не должны.
func (s *store) UpsertValues(ctx context.Context, b ValueBatch) (int, error) {
	t := b.Kind.Tables()

	var saved int
	err := s.db.WriteTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, e := range b.Entries {
			if e.Value == nil {
				return fmt.Errorf("item %d: nil value in batch", e.ItemID)
			}
			if _, err := xpgx.Execx(ctx, tx, upsertValueQuery(t, b, e)); err != nil {
				return fmt.Errorf("upsert %s item %d: %w", t.Values, e.ItemID, err)
			}
		}
		saved = len(b.Entries)
		return nil
	})
	if err != nil {
		return 0, wrapErr(err)
	}
	return saved, nil
}

func (s *store) GetValues(ctx context.Context, kind domain.ValueKind, municipalityID int64, period domain.Period) ([]*domain.ValueRecord, error) {
	t := kind.Tables()
	query := builder().Select(
		"municipality_id",
		t.ItemFK+" AS item_id",
		"period_year",
		"period_month",
		"value_numeric::float8 AS value_numeric",
		"updated_at",
	).
		From(t.Values).
		Where("municipality_id = ?", municipalityID).
		Where("period_year = ?", period.Year).
		Where("period_month = ?", period.Month).
		OrderBy(t.ItemFK)

	var records []*domain.ValueRecord
	err := s.db.Read(ctx, func(ctx context.Context, q xpgx.Querier) (err error) {
		records, err = xpgx.Selectx[domain.ValueRecord](ctx, q, query)
		return err
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return records, nil
}

func (s *store) ListPeriods(ctx context.Context, kind domain.ValueKind) ([]*domain.Period, error) {
	query := builder().Select("period_year AS year", "period_month AS month").
		Distinct().
		From(kind.Tables().Values).
		OrderBy("year DESC", "month DESC")

	var periods []*domain.Period
	err := s.db.Read(ctx, func(ctx context.Context, q xpgx.Querier) (err error) {
		periods, err = xpgx.Selectx[domain.Period](ctx, q, query)
		return err
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return periods, nil
}
