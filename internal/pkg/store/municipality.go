package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/store/xpgx"
)

var municipalityColumns = []string{"id", "name", "head_name", "head_position", "is_active", "created_at"}

func (s *store) ListMunicipalities(ctx context.Context, onlyID *int64) ([]*domain.Municipality, error) {
	query := builder().Select(municipalityColumns...).
		From(tableMunicipalities).
		Where("is_active").
		OrderBy("name")
	if onlyID != nil {
		query = query.Where("id = ?", *onlyID)
	}

	var items []*domain.Municipality
	err := s.db.Read(ctx, func(ctx context.Context, q xpgx.Querier) (err error) {
		items, err = xpgx.Selectx[domain.Municipality](ctx, q, query)
		return err
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return items, nil
}

// GetMunicipality читает с primary, чтобы проверка перед записью не зависела от отставания реплики.
func (s *store) GetMunicipality(ctx context.Context, id int64) (*domain.Municipality, error) {
	query := builder().Select(municipalityColumns...).
		From(tableMunicipalities).
		Where("id = ?", id)

	var item *domain.Municipality
	err := s.db.Write(ctx, func(ctx context.Context, q xpgx.Querier) (err error) {
		item, err = xpgx.Getx[domain.Municipality](ctx, q, query)
		return err
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return item, nil
}

// UpsertMunicipalities сопоставляет по имени и обновляет данные главы.
func (s *store) UpsertMunicipalities(ctx context.Context, items []*domain.Municipality) (int, error) {
	var saved int
	err := s.db.WriteTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, m := range items {
			query := builder().Insert(tableMunicipalities).
				Columns("name", "head_name", "head_position").
				Values(m.Name, m.HeadName, m.HeadPosition).
				Suffix("ON CONFLICT (name) DO UPDATE SET " +
					"head_name = COALESCE(excluded.head_name, municipalities.head_name), " +
					"head_position = COALESCE(excluded.head_position, municipalities.head_position), " +
					"is_active = true")
			if _, err := xpgx.Execx(ctx, tx, query); err != nil {
				return err
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, wrapErr(err)
	}
	return saved, nil
}

// DeleteMunicipality отклоняется внешним ключом, пока на муниципалитет ссылаются значения.
func (s *store) DeleteMunicipality(ctx context.Context, id int64) error {
	return s.execOne(ctx, builder().Delete(tableMunicipalities).Where("id = ?", id))
}
