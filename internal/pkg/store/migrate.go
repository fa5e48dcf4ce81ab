package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/ougirez/muniportal/internal/pkg/logger"
	"github.com/ougirez/muniportal/internal/pkg/store/xpgx"
)

//go:embed migrations/*.up.sql
var migrationsFS embed.FS

// ApplyMigrations применяет встроенные миграции по порядку имён, каждую в своей транзакции.
func ApplyMigrations(ctx context.Context, pool xpgx.Pool) error {
	return applyMigrations(ctx, pool, migrationsFS)
}

func applyMigrations(ctx context.Context, pool xpgx.Pool, fsys fs.FS) error {
	if err := ensureMigrationsTable(ctx, pool); err != nil {
		return err
	}

	files, err := migrationFiles(fsys)
	if err != nil {
		return err
	}

	for _, file := range files {
		version := file[strings.LastIndex(file, "/")+1:]
		migrated, err := isMigrated(ctx, pool, version)
		if err != nil {
			return err
		}
		if migrated {
			continue
		}

		contents, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", version, err)
		}

		err = xpgx.InTx(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(contents)); err != nil {
				return fmt.Errorf("execute migration %s: %w", version, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations(version) VALUES($1)`, version); err != nil {
				return fmt.Errorf("record migration %s: %w", version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		logger.Infof(ctx, "applied migration %s", version)
	}

	return nil
}

func migrationFiles(fsys fs.FS) ([]string, error) {
	files, err := fs.Glob(fsys, "migrations/*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func ensureMigrationsTable(ctx context.Context, pool xpgx.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	return nil
}

func isMigrated(ctx context.Context, pool xpgx.Pool, version string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, version).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", version, err)
	}
	return exists, nil
}
