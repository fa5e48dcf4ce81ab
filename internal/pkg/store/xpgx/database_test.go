package xpgx

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selectOne(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, "SELECT 1")
	return err
}

func connReset() error {
	return &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}
}

func TestReadFallsBackToPrimary(t *testing.T) {
	ctx := context.Background()

	primary, err := pgxmock.NewPool()
	require.NoError(t, err)
	replica, err := pgxmock.NewPool()
	require.NoError(t, err)

	db := NewDatabase(primary, replica, time.Second)
	require.True(t, db.ReplicaAvailable())

	replica.ExpectExec("SELECT 1").WillReturnError(connReset())
	primary.ExpectExec("SELECT 1").WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, db.Read(ctx, selectOne))
	assert.False(t, db.ReplicaAvailable())

	// реплика выключена, следующее чтение сразу идёт в primary
	primary.ExpectExec("SELECT 1").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	require.NoError(t, db.Read(ctx, selectOne))

	replica.ExpectPing()
	assert.True(t, db.ProbeReplica(ctx))
	assert.True(t, db.ReplicaAvailable())

	require.NoError(t, primary.ExpectationsWereMet())
	require.NoError(t, replica.ExpectationsWereMet())
}

func TestReadQueryErrorIsNotRetried(t *testing.T) {
	ctx := context.Background()

	primary, err := pgxmock.NewPool()
	require.NoError(t, err)
	replica, err := pgxmock.NewPool()
	require.NoError(t, err)

	db := NewDatabase(primary, replica, time.Second)

	queryErr := errors.New("syntax error")
	replica.ExpectExec("SELECT 1").WillReturnError(queryErr)

	err = db.Read(ctx, selectOne)
	require.ErrorIs(t, err, queryErr)
	assert.True(t, db.ReplicaAvailable())

	require.NoError(t, primary.ExpectationsWereMet())
	require.NoError(t, replica.ExpectationsWereMet())
}

func TestReadWithoutReplica(t *testing.T) {
	primary, err := pgxmock.NewPool()
	require.NoError(t, err)

	db := NewDatabase(primary, nil, 0)
	assert.False(t, db.ReplicaAvailable())
	assert.False(t, db.ProbeReplica(context.Background()))

	primary.ExpectExec("SELECT 1").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	require.NoError(t, db.Read(context.Background(), selectOne))
	require.NoError(t, primary.ExpectationsWereMet())
}

func TestWriteTxRollsBackOnError(t *testing.T) {
	primary, err := pgxmock.NewPool()
	require.NoError(t, err)

	db := NewDatabase(primary, nil, time.Second)

	primary.ExpectBegin()
	primary.ExpectExec("INSERT INTO a").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	primary.ExpectExec("INSERT INTO b").WillReturnError(connReset())
	primary.ExpectRollback()

	err = db.WriteTx(context.Background(), func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "INSERT INTO a VALUES (1)"); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, "INSERT INTO b VALUES (2)")
		return err
	})
	require.Error(t, err)
	require.NoError(t, primary.ExpectationsWereMet())
}

func TestIsInfraError(t *testing.T) {
	assert.True(t, IsInfraError(connReset()))
	assert.True(t, IsInfraError(context.DeadlineExceeded))
	assert.False(t, IsInfraError(nil))
	assert.False(t, IsInfraError(pgx.ErrNoRows))
}
