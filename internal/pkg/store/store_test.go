package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/ougirez/muniportal/internal/pkg/store/xpgx"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s := NewStore(xpgx.NewDatabase(mock, nil, time.Second)).(*store)
	return s, mock
}

func value(v float64) *float64 {
	return &v
}

func testBatch() ValueBatch {
	return ValueBatch{
		Kind:           domain.KindIndicator,
		MunicipalityID: 42,
		Period:         domain.Period{Year: 2025, Month: 8},
		Entries: []domain.ValueEntry{
			{ItemID: 1, Value: value(10)},
			{ItemID: 2, Value: value(20)},
			{ItemID: 3, Value: value(30)},
		},
	}
}

var upsertSQL = regexp.QuoteMeta("INSERT INTO indicator_values (municipality_id,indicator_id,period_year,period_month,value_numeric,updated_by)") +
	".*" + regexp.QuoteMeta("ON CONFLICT (municipality_id, indicator_id, period_year, period_month) DO UPDATE SET value_numeric = excluded.value_numeric")

func TestUpsertValuesCommitsInInputOrder(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	for _, e := range testBatch().Entries {
		mock.ExpectExec(upsertSQL).
			WithArgs(int64(42), e.ItemID, 2025, 8, *e.Value, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	saved, err := s.UpsertValues(context.Background(), testBatch())
	require.NoError(t, err)
	assert.Equal(t, 3, saved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertValuesRollsBackWholeBatch(t *testing.T) {
	s, mock := newMockStore(t)

	entries := testBatch().Entries
	mock.ExpectBegin()
	for _, e := range entries[:2] {
		mock.ExpectExec(upsertSQL).
			WithArgs(int64(42), e.ItemID, 2025, 8, *e.Value, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectExec(upsertSQL).
		WithArgs(int64(42), entries[2].ItemID, 2025, 8, *entries[2].Value, pgxmock.AnyArg()).
		WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	saved, err := s.UpsertValues(context.Background(), testBatch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection lost")
	assert.Zero(t, saved)
	// порядок ожиданий строгий: откат идёт сразу после третьей вставки, commit не вызывается
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertValuesServiceKind(t *testing.T) {
	s, mock := newMockStore(t)

	b := testBatch()
	b.Kind = domain.KindService
	b.Entries = b.Entries[:1]

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO service_values") + ".*" + regexp.QuoteMeta("ON CONFLICT (municipality_id, service_id, period_year, period_month)")).
		WithArgs(int64(42), int64(1), 2025, 8, 10.0, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	saved, err := s.UpsertValues(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMunicipality(t *testing.T) {
	t.Run("referenced", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM municipalities WHERE id = $1")).
			WithArgs(int64(5)).
			WillReturnError(&pgconn.PgError{Code: xpgx.CodeForeignKeyViolation})

		err := s.DeleteMunicipality(context.Background(), 5)
		assert.ErrorIs(t, err, constants.ErrDBReferenced)
		assert.True(t, constants.IsCode(err, 409))
	})

	t.Run("missing", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM municipalities WHERE id = $1")).
			WithArgs(int64(5)).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := s.DeleteMunicipality(context.Background(), 5)
		assert.ErrorIs(t, err, constants.ErrDBNotFound)
	})

	t.Run("ok", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM municipalities WHERE id = $1")).
			WithArgs(int64(5)).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, s.DeleteMunicipality(context.Background(), 5))
	})
}

func TestWrapErr(t *testing.T) {
	assert.Nil(t, wrapErr(nil))
	assert.ErrorIs(t, wrapErr(pgx.ErrNoRows), constants.ErrDBNotFound)
	assert.ErrorIs(t, wrapErr(&pgconn.PgError{Code: xpgx.CodeUniqueViolation}), constants.ErrDBConflict)
	assert.ErrorIs(t, wrapErr(&pgconn.PgError{Code: xpgx.CodeUndefinedTable}), constants.ErrDBTableMissing)

	plain := errors.New("boom")
	assert.Equal(t, plain, wrapErr(plain))
}

func TestApplyMigrationsSkipsApplied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	fsys := fstest.MapFS{
		"migrations/0001_a.up.sql": {Data: []byte("CREATE TABLE a (id int)")},
		"migrations/0002_b.up.sql": {Data: []byte("CREATE TABLE b (id int)")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("0001_a.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("0002_b.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b (id int)")).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("0002_b.up.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, applyMigrations(context.Background(), mock, fsys))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddedMigrationsSorted(t *testing.T) {
	files, err := migrationFiles(migrationsFS)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "migrations/0001_init.up.sql", files[0])
}
