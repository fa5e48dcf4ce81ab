package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ougirez/muniportal/internal/pkg/config"
	"github.com/ougirez/muniportal/internal/pkg/logger"
	"github.com/ougirez/muniportal/internal/pkg/session"
	"github.com/ougirez/muniportal/internal/pkg/store"
	"github.com/ougirez/muniportal/internal/pkg/store/xpgx"
)

const connectRetries = 10

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	if err = logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		return config.Config{}, fmt.Errorf("logger: %w", err)
	}
	return cfg, nil
}

func retryPolicy(ctx context.Context) backoff.BackOffContext {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(policy, connectRetries), ctx)
}

func notify(ctx context.Context, what string) backoff.Notify {
	return func(err error, wait time.Duration) {
		logger.Warnf(ctx, "%s is not ready: %v, retry in %s", what, err, wait)
	}
}

func openPool(ctx context.Context, name, dsn string, cfg config.DB) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	err := backoff.RetryNotify(
		func() error {
			p, err := xpgx.NewPool(ctx, dsn, xpgx.PoolOptions{
				MaxConns:         cfg.MaxConns,
				ConnectTimeout:   cfg.ConnectTimeout,
				StatementTimeout: cfg.StatementTimeout,
			})
			if err != nil {
				return backoff.Permanent(err)
			}
			if err = p.Ping(ctx); err != nil {
				p.Close()
				return fmt.Errorf("ping: %w", err)
			}
			pool = p
			return nil
		},
		retryPolicy(ctx),
		notify(ctx, name),
	)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", name, err)
	}
	return pool, nil
}

// connectDatabase открывает primary и, если задана, реплику. Недоступная на старте
// реплика не мешает запуску: чтения уходят в primary до удачной проверки.
func connectDatabase(ctx context.Context, cfg config.DB) (*xpgx.Database, error) {
	primary, err := openPool(ctx, "postgres primary", cfg.PrimaryDSN, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.ReplicaDSN == "" {
		return xpgx.NewDatabase(primary, nil, cfg.QueryTimeout), nil
	}

	replica, err := xpgx.NewPool(ctx, cfg.ReplicaDSN, xpgx.PoolOptions{
		MaxConns:         cfg.MaxConns,
		ConnectTimeout:   cfg.ConnectTimeout,
		StatementTimeout: cfg.StatementTimeout,
	})
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("replica pool: %w", err)
	}

	db := xpgx.NewDatabase(primary, replica, cfg.QueryTimeout)
	if !db.ProbeReplica(ctx) {
		logger.Warnf(ctx, "replica is unavailable at startup, reads go to primary")
	}
	return db, nil
}

func connectSessions(ctx context.Context, cfg config.Config) (*session.RedisStore, error) {
	var sessions *session.RedisStore
	err := backoff.RetryNotify(
		func() (err error) {
			sessions, err = session.NewRedisStore(ctx, cfg.RedisURL, cfg.Session.TTL)
			return err
		},
		retryPolicy(ctx),
		notify(ctx, "redis"),
	)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// openStore подключается к базе и накатывает миграции. Нужен всем командам.
func openStore(ctx context.Context, cfg config.Config) (*xpgx.Database, store.Store, error) {
	db, err := connectDatabase(ctx, cfg.DB)
	if err != nil {
		return nil, nil, err
	}

	if err = store.ApplyMigrations(ctx, db.Primary()); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}

	st := store.NewStore(db)
	if err = st.ResolveTables(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("resolve tables: %w", err)
	}
	return db, st, nil
}
