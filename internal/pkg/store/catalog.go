package store

import (
	"context"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/store/xpgx"
)

// ListCatalog возвращает активные записи справочника. filter отбирает форму (показатели)
// или категорию (услуги).
func (s *store) ListCatalog(ctx context.Context, kind domain.ValueKind, filter *string) ([]*domain.CatalogItem, error) {
	t := kind.Tables()
	query := builder().Select("id", "code", "name", "unit", "sort_order", t.Filter).
		From(t.Catalog).
		Where("is_active").
		OrderBy("sort_order NULLS LAST", "id")
	if filter != nil {
		query = query.Where(t.Filter+" = ?", *filter)
	}

	var items []*domain.CatalogItem
	err := s.db.Read(ctx, func(ctx context.Context, q xpgx.Querier) (err error) {
		items, err = xpgx.Selectx[domain.CatalogItem](ctx, q, query)
		return err
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return items, nil
}
