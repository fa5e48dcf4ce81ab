package user

import (
	"context"
	"testing"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/domain/dto"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/store"
	"github.com/ougirez/muniportal/internal/pkg/store/storetest"
	"github.com/ougirez/muniportal/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var admin = domain.Admin{ID: 1}

func setup(t *testing.T) (*Service, *storetest.Memory) {
	t.Helper()
	mem := storetest.NewMemory()
	mem.AddMunicipality(42, "Елецкий район")
	mem.AddMunicipality(43, "Данковский район")
	mem.AddUser(domain.User{ID: 1, Role: domain.RoleAdmin, IsActive: true})

	passwords := auth.NewService(mem, auth.Options{BcryptCost: bcrypt.MinCost, MinPasswordLen: 8})
	return NewUserService(mem, passwords), mem
}

func mun(id int64) *int64 {
	return &id
}

func TestCreateOperator(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, admin, &dto.CreateUserRequest{Role: domain.RoleOperator, MunicipalityID: mun(42), Password: "operator-pass"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOperator, u.Role)
	assert.True(t, u.IsActive)
	assert.True(t, u.PasswordResetRequired)
	require.NotNil(t, u.MunicipalityName)
	assert.Equal(t, "Елецкий район", *u.MunicipalityName)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("operator-pass")))

	_, err = svc.Create(ctx, admin, &dto.CreateUserRequest{Role: domain.RoleOperator, MunicipalityID: mun(42), Password: "operator-pass"})
	assert.ErrorIs(t, err, ErrOperatorTaken)
	assert.True(t, constants.IsCode(err, 409))
}

func TestCreateValidatesBinding(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  dto.CreateUserRequest
		code int
	}{
		{"operator without municipality", dto.CreateUserRequest{Role: domain.RoleOperator, Password: "long-enough"}, 400},
		{"governor with municipality", dto.CreateUserRequest{Role: domain.RoleGovernor, MunicipalityID: mun(42), Password: "long-enough"}, 400},
		{"unknown municipality", dto.CreateUserRequest{Role: domain.RoleOperator, MunicipalityID: mun(7), Password: "long-enough"}, 404},
		{"unknown role", dto.CreateUserRequest{Role: "root", Password: "long-enough"}, 400},
		{"short password", dto.CreateUserRequest{Role: domain.RoleGovernor, Password: "short"}, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, admin, &tt.req)
			assert.True(t, constants.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestUpdate(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, admin, &dto.CreateUserRequest{Role: domain.RoleOperator, MunicipalityID: mun(42), Password: "operator-pass"})
	require.NoError(t, err)

	moved, err := svc.Update(ctx, admin, u.ID, &dto.UpdateUserRequest{MunicipalityID: mun(43)})
	require.NoError(t, err)
	assert.Equal(t, int64(43), *moved.MunicipalityID)

	governor := domain.RoleGovernor
	promoted, err := svc.Update(ctx, admin, u.ID, &dto.UpdateUserRequest{Role: &governor})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleGovernor, promoted.Role)
	assert.Nil(t, promoted.MunicipalityID)

	inactive := false
	_, err = svc.Update(ctx, admin, admin.ID, &dto.UpdateUserRequest{IsActive: &inactive})
	assert.ErrorIs(t, err, ErrSelfModification)

	_, err = svc.Update(ctx, admin, 999, &dto.UpdateUserRequest{IsActive: &inactive})
	assert.ErrorIs(t, err, constants.ErrDBNotFound)
}

func TestSetPasswordAndDelete(t *testing.T) {
	svc, mem := setup(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, admin, &dto.CreateUserRequest{Role: domain.RoleGovernor, Password: "governor-pass", PasswordResetRequired: new(bool)})
	require.NoError(t, err)
	assert.False(t, u.PasswordResetRequired)

	require.NoError(t, svc.SetPassword(ctx, admin, u.ID, &dto.SetPasswordRequest{Password: "another-pass"}))
	got, err := mem.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.PasswordResetRequired)

	assert.ErrorIs(t, svc.Delete(ctx, admin, admin.ID), ErrSelfModification)
	require.NoError(t, svc.Delete(ctx, admin, u.ID))
	_, err = mem.GetUserByID(ctx, u.ID)
	assert.ErrorIs(t, err, constants.ErrDBNotFound)
}

func TestDeleteMunicipalityReferenced(t *testing.T) {
	svc, mem := setup(t)
	ctx := context.Background()

	item := mem.AddCatalogItem(domain.KindIndicator, domain.CatalogItem{ID: 5, Code: "x", Name: "x"})
	v := 1.0
	_, err := mem.UpsertValues(ctx, store.ValueBatch{
		Kind:           domain.KindIndicator,
		MunicipalityID: 42,
		Period:         domain.Period{Year: 2025, Month: 1},
		Entries:        []domain.ValueEntry{{ItemID: item.ID, Value: &v}},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteMunicipality(ctx, admin, 42), ErrMunicipalityInUse)
	require.NoError(t, svc.DeleteMunicipality(ctx, admin, 43))
}
