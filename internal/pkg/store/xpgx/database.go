package xpgx

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ougirez/muniportal/internal/pkg/logger"
)

// Database объединяет пул на запись и пул реплики.
// Флаг доступности реплики меняется только через MarkReplica*/ProbeReplica.
type Database struct {
	primary      Pool
	replica      Pool
	replicaUp    atomic.Bool
	queryTimeout time.Duration
}

// NewDatabase принимает replica == nil, тогда все чтения идут в primary.
func NewDatabase(primary, replica Pool, queryTimeout time.Duration) *Database {
	db := &Database{primary: primary, replica: replica, queryTimeout: queryTimeout}
	db.replicaUp.Store(replica != nil)
	return db
}

func (d *Database) Primary() Pool {
	return d.primary
}

func (d *Database) ReplicaAvailable() bool {
	return d.replica != nil && d.replicaUp.Load()
}

func (d *Database) MarkReplicaUnavailable() {
	d.replicaUp.Store(false)
}

func (d *Database) MarkReplicaAvailable() {
	if d.replica != nil {
		d.replicaUp.Store(true)
	}
}

func (d *Database) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.queryTimeout)
}

// Write выполняет fn на primary.
func (d *Database) Write(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	return fn(ctx, d.primary)
}

// WriteTx выполняет fn в транзакции на primary.
func (d *Database) WriteTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	return InTx(ctx, d.primary, func(tx pgx.Tx) error {
		return fn(ctx, tx)
	})
}

// Read идёт в реплику, если она доступна. При инфраструктурной ошибке реплика
// помечается недоступной и запрос один раз повторяется на primary.
func (d *Database) Read(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	if d.ReplicaAvailable() {
		err := d.readOn(ctx, d.replica, fn)
		if err == nil || !IsInfraError(err) {
			return err
		}

		logger.Warnf(ctx, "replica read failed, falling back to primary: %s", err.Error())
		d.MarkReplicaUnavailable()
	}

	err := d.readOn(ctx, d.primary, fn)
	if err != nil && IsInfraError(err) && d.replica != nil {
		// реплику проверяем только при сбоях, отдельного расписания нет
		d.ProbeReplica(ctx)
	}
	return err
}

func (d *Database) readOn(ctx context.Context, p Pool, fn func(ctx context.Context, q Querier) error) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	return fn(ctx, p)
}

// ProbeReplica пингует реплику и возвращает её в работу при успехе.
func (d *Database) ProbeReplica(ctx context.Context) bool {
	if d.replica == nil {
		return false
	}

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.replica.Ping(pctx); err != nil {
		d.MarkReplicaUnavailable()
		return false
	}

	if !d.replicaUp.Swap(true) {
		logger.Infof(ctx, "replica is available again")
	}
	return true
}

// Ping проверяет оба пула; ошибка реплики не фатальна, но помечает её.
func (d *Database) Ping(ctx context.Context) error {
	if err := d.primary.Ping(ctx); err != nil {
		return fmt.Errorf("primary ping: %w", err)
	}
	d.ProbeReplica(ctx)
	return nil
}

func (d *Database) Close() {
	d.primary.Close()
	if d.replica != nil {
		d.replica.Close()
	}
}
