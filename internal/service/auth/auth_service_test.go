package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/store"
	"github.com/ougirez/muniportal/internal/pkg/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const password = "correct-horse"

func setup(t *testing.T) (*Service, *storetest.Memory) {
	t.Helper()
	mem := storetest.NewMemory()
	mem.AddMunicipality(42, "Елецкий район")

	hash, err := HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)

	mun := int64(42)
	mem.AddUser(domain.User{ID: 1, Role: domain.RoleAdmin, PasswordHash: hash, IsActive: true})
	mem.AddUser(domain.User{ID: 2, Role: domain.RoleGovernor, PasswordHash: hash, IsActive: true})
	mem.AddUser(domain.User{ID: 3, Role: domain.RoleOperator, MunicipalityID: &mun, PasswordHash: hash, IsActive: true, PasswordResetRequired: true})

	return NewService(mem, Options{BcryptCost: bcrypt.MinCost, MinPasswordLen: 8}), mem
}

func TestAuthenticate(t *testing.T) {
	svc, mem := setup(t)
	ctx := context.Background()

	identity, err := svc.Authenticate(ctx, "admin", password)
	require.NoError(t, err)
	assert.Equal(t, domain.Admin{ID: 1}, identity)

	identity, err = svc.Authenticate(ctx, "Governor", password)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleGovernor, identity.Role())

	identity, err = svc.Authenticate(ctx, "42", password)
	require.NoError(t, err)
	assert.Equal(t, domain.Operator{ID: 3, Municipality: 42, MunicipalityName: "Елецкий район", ResetRequired: true}, identity)
	assert.Equal(t, 3, mem.Calls["TouchLastLogin"])

	u, err := mem.GetUserByID(ctx, 3)
	require.NoError(t, err)
	assert.NotNil(t, u.LastLoginAt)
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	svc, mem := setup(t)
	ctx := context.Background()

	inactive := false
	require.NoError(t, mem.UpdateUser(ctx, 2, store.UserPatch{IsActive: &inactive}))

	cases := map[string][2]string{
		"wrong password":   {"admin", "nope"},
		"unknown operator": {"77", password},
		"inactive":         {"governor", password},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, c[0], c[1])
			require.Error(t, err)
			assert.Same(t, constants.ErrInvalidCredentials, err)
			assert.Equal(t, "invalid municipality or password", err.Error())
		})
	}
}

func TestAuthenticateBadInput(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	for _, c := range [][2]string{{"", password}, {"admin", ""}, {"root", password}, {"-5", password}} {
		_, err := svc.Authenticate(ctx, c[0], c[1])
		assert.True(t, constants.IsCode(err, 400), c[0])
	}
}

func TestAuthenticateStorageFailure(t *testing.T) {
	svc, mem := setup(t)
	boom := errors.New("db down")
	mem.Errors["FindLoginUser"] = boom

	_, err := svc.Authenticate(context.Background(), "admin", password)
	assert.ErrorIs(t, err, boom)
}

func TestChangePassword(t *testing.T) {
	svc, mem := setup(t)
	ctx := context.Background()
	op := domain.Operator{ID: 3, Municipality: 42}

	assert.True(t, constants.IsCode(svc.ChangePassword(ctx, op, password, password), 400))
	assert.True(t, constants.IsCode(svc.ChangePassword(ctx, op, password, "short"), 400))
	assert.True(t, constants.IsCode(svc.ChangePassword(ctx, op, "wrong-old", "new-password-1"), 401))

	require.NoError(t, svc.ChangePassword(ctx, op, password, "new-password-1"))

	u, err := mem.GetUserByID(ctx, 3)
	require.NoError(t, err)
	assert.False(t, u.PasswordResetRequired)

	_, err = svc.Authenticate(ctx, "42", password)
	assert.ErrorIs(t, err, constants.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "42", "new-password-1")
	assert.NoError(t, err)
}
