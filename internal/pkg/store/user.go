package store

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/store/xpgx"
)

// UserPatch: частичное обновление пользователя, nil поля не трогаются.
type UserPatch struct {
	Role           *domain.Role
	MunicipalityID *int64
	ClearScope     bool
	IsActive       *bool
}

func (p UserPatch) Empty() bool {
	return p.Role == nil && p.MunicipalityID == nil && !p.ClearScope && p.IsActive == nil
}

var userColumns = []string{
	"u.id",
	"u.role",
	"u.municipality_id",
	"m.name AS municipality_name",
	"u.password_hash",
	"u.is_active",
	"u.password_reset_required",
	"u.last_login_at",
	"u.created_at",
	"u.updated_at",
}

func selectUsers() squirrel.SelectBuilder {
	return builder().Select(userColumns...).
		From(tableUsers + " u").
		LeftJoin(tableMunicipalities + " m ON m.id = u.municipality_id")
}

// FindLoginUser ищет учётную запись для входа. Для operator нужен municipalityID,
// для admin и governor он игнорируется.
func (s *store) FindLoginUser(ctx context.Context, role domain.Role, municipalityID *int64) (*domain.User, error) {
	query := selectUsers().Where("u.role = ?", role)
	if role == domain.RoleOperator {
		query = query.Where("u.municipality_id = ?", municipalityID)
	} else {
		query = query.Where("u.municipality_id IS NULL")
	}
	query = query.OrderBy("u.id").Limit(1)

	var user *domain.User
	err := s.db.Read(ctx, func(ctx context.Context, q xpgx.Querier) (err error) {
		user, err = xpgx.Getx[domain.User](ctx, q, query)
		return err
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return user, nil
}

// GetUserByID читает с primary: используется сразу после записи.
func (s *store) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	query := selectUsers().Where("u.id = ?", id)

	var user *domain.User
	err := s.db.Write(ctx, func(ctx context.Context, q xpgx.Querier) (err error) {
		user, err = xpgx.Getx[domain.User](ctx, q, query)
		return err
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return user, nil
}

func (s *store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	query := selectUsers().OrderBy("u.role", "m.name NULLS FIRST", "u.id")

	var users []*domain.User
	err := s.db.Read(ctx, func(ctx context.Context, q xpgx.Querier) (err error) {
		users, err = xpgx.Selectx[domain.User](ctx, q, query)
		return err
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return users, nil
}

func (s *store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := builder().Insert(tableUsers).
		Columns("role", "municipality_id", "password_hash", "is_active", "password_reset_required").
		Values(user.Role, user.MunicipalityID, user.PasswordHash, user.IsActive, user.PasswordResetRequired).
		Suffix("RETURNING id")

	var id int64
	err := s.db.Write(ctx, func(ctx context.Context, q xpgx.Querier) error {
		return xpgx.QueryRowx(ctx, q, query, &id)
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return s.GetUserByID(ctx, id)
}

func (s *store) UpdateUser(ctx context.Context, id int64, patch UserPatch) error {
	query := builder().Update(tableUsers).
		Set("updated_at", time.Now()).
		Where("id = ?", id)
	if patch.Role != nil {
		query = query.Set("role", *patch.Role)
	}
	if patch.ClearScope {
		query = query.Set("municipality_id", nil)
	} else if patch.MunicipalityID != nil {
		query = query.Set("municipality_id", *patch.MunicipalityID)
	}
	if patch.IsActive != nil {
		query = query.Set("is_active", *patch.IsActive)
	}

	return s.execOne(ctx, query)
}

func (s *store) UpdatePassword(ctx context.Context, id int64, hash string, resetRequired bool) error {
	query := builder().Update(tableUsers).
		Set("password_hash", hash).
		Set("password_reset_required", resetRequired).
		Set("updated_at", time.Now()).
		Where("id = ?", id)

	return s.execOne(ctx, query)
}

func (s *store) TouchLastLogin(ctx context.Context, id int64) error {
	query := builder().Update(tableUsers).
		Set("last_login_at", time.Now()).
		Where("id = ?", id)

	return s.execOne(ctx, query)
}

func (s *store) DeleteUser(ctx context.Context, id int64) error {
	return s.execOne(ctx, builder().Delete(tableUsers).Where("id = ?", id))
}

// execOne выполняет запрос на primary и возвращает ErrDBNotFound, если ни одна строка не затронута.
func (s *store) execOne(ctx context.Context, query squirrel.Sqlizer) error {
	return wrapErr(s.db.Write(ctx, func(ctx context.Context, q xpgx.Querier) error {
		tag, err := xpgx.Execx(ctx, q, query)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	}))
}
