package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/logger"
	"github.com/ougirez/muniportal/internal/pkg/store/xpgx"
)

type Store interface {
	UserStore
	MunicipalityStore
	CatalogStore
	ValueStore
	AnalyticsStore

	ResolveTables(ctx context.Context) error
	HasTable(name string) bool
	Ping(ctx context.Context) error
}

type UserStore interface {
	FindLoginUser(ctx context.Context, role domain.Role, municipalityID *int64) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, patch UserPatch) error
	UpdatePassword(ctx context.Context, id int64, hash string, resetRequired bool) error
	TouchLastLogin(ctx context.Context, id int64) error
	DeleteUser(ctx context.Context, id int64) error
}

type MunicipalityStore interface {
	ListMunicipalities(ctx context.Context, onlyID *int64) ([]*domain.Municipality, error)
	GetMunicipality(ctx context.Context, id int64) (*domain.Municipality, error)
	UpsertMunicipalities(ctx context.Context, items []*domain.Municipality) (int, error)
	DeleteMunicipality(ctx context.Context, id int64) error
}

type CatalogStore interface {
	ListCatalog(ctx context.Context, kind domain.ValueKind, filter *string) ([]*domain.CatalogItem, error)
}

type ValueStore interface {
	UpsertValues(ctx context.Context, batch ValueBatch) (int, error)
	GetValues(ctx context.Context, kind domain.ValueKind, municipalityID int64, period domain.Period) ([]*domain.ValueRecord, error)
	ListPeriods(ctx context.Context, kind domain.ValueKind) ([]*domain.Period, error)
}

type AnalyticsStore interface {
	SumValues(ctx context.Context, f AnalyticsFilter) (float64, error)
	MonthlyTotals(ctx context.Context, f AnalyticsFilter) ([]*domain.MonthTotal, error)
	TopItems(ctx context.Context, f AnalyticsFilter, limit int) ([]*domain.ItemTotal, error)
	CategoryTotals(ctx context.Context, f AnalyticsFilter) ([]*domain.CategoryTotal, error)
	TopMunicipalities(ctx context.Context, f AnalyticsFilter, limit int) ([]*domain.MunicipalityTotal, error)
	RecentValues(ctx context.Context, kind domain.ValueKind, municipalityID *int64, limit int) ([]*domain.RecentValue, error)
	ExportRows(ctx context.Context, f AnalyticsFilter) ([]*domain.ExportRow, error)
	CountMunicipalities(ctx context.Context) (int64, error)
	CountValues(ctx context.Context, kind domain.ValueKind) (int64, error)
}

type store struct {
	db *xpgx.Database

	tablesMx sync.RWMutex
	tables   map[string]bool
}

func NewStore(db *xpgx.Database) Store {
	return &store{db: db, tables: make(map[string]bool)}
}

// ResolveTables один раз определяет, какие таблицы есть в схеме.
// Кэш не инвалидируется: изменения схемы требуют перезапуска.
func (s *store) ResolveTables(ctx context.Context) error {
	names := []string{
		tableMunicipalities,
		tableIndicatorsCatalog,
		tableIndicatorValues,
		tableServicesCatalog,
		tableServiceValues,
	}

	resolved := make(map[string]bool, len(names))
	err := s.db.Read(ctx, func(ctx context.Context, q xpgx.Querier) error {
		for _, name := range names {
			var exists bool
			if err := q.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, "public."+name).Scan(&exists); err != nil {
				return fmt.Errorf("to_regclass %s: %w", name, err)
			}
			resolved[name] = exists
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.tablesMx.Lock()
	s.tables = resolved
	s.tablesMx.Unlock()

	logger.Info(ctx, "resolved tables", "tables", resolved)
	return nil
}

func (s *store) HasTable(name string) bool {
	s.tablesMx.RLock()
	defer s.tablesMx.RUnlock()
	return s.tables[name]
}

func (s *store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
