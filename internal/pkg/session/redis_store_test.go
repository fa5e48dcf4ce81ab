package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), "redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestCreateAndGet(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	op := domain.Operator{ID: 7, Municipality: 42, MunicipalityName: "Елецкий", ResetRequired: true}
	id, err := s.Create(ctx, RecordOf(op))
	require.NoError(t, err)
	assert.True(t, mr.Exists("session:"+id))
	assert.Equal(t, time.Hour, mr.TTL("session:"+id))

	rec, err := s.Get(ctx, id)
	require.NoError(t, err)

	identity, err := rec.Identity()
	require.NoError(t, err)
	assert.Equal(t, op, identity)
}

func TestGetExpired(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	id, err := s.Create(ctx, RecordOf(domain.Admin{ID: 1}))
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, constants.ErrUnauthorized)
}

func TestDelete(t *testing.T) {
	s, _ := setupTestRedis(t)
	ctx := context.Background()

	id, err := s.Create(ctx, RecordOf(domain.Governor{ID: 2}))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, id))

	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, constants.ErrUnauthorized)
}

func TestUpdateKeepsTTL(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	rec := RecordOf(domain.Admin{ID: 1, ResetRequired: true})
	id, err := s.Create(ctx, rec)
	require.NoError(t, err)

	mr.FastForward(30 * time.Minute)
	rec.PasswordResetRequired = false
	require.NoError(t, s.Update(ctx, id, rec))
	assert.Equal(t, 30*time.Minute, mr.TTL("session:"+id))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.PasswordResetRequired)

	assert.ErrorIs(t, s.Update(ctx, "missing", rec), constants.ErrUnauthorized)
}

func TestRecordIdentityRejectsBrokenRecords(t *testing.T) {
	_, err := Record{UserID: 1, Role: domain.RoleOperator}.Identity()
	assert.Error(t, err)

	_, err = Record{UserID: 1, Role: "root"}.Identity()
	assert.Error(t, err)
}
