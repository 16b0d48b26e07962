package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"

	"invoicebook/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies pending migrations in file name order, each in its own
// transaction, and records them in schema_migrations.
func Migrate(ctx context.Context, pool *Pool) error {
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := migrationFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}

		applied, err := applyMigration(ctx, pool, name, string(body))
		if err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if applied {
			logger.Info(ctx, "migration applied", "version", name)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, pool *Pool, version, body string) (bool, error) {
	applied := false
	err := pgx.BeginFunc(ctx, pool, func(t pgx.Tx) error {
		tag, err := t.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING`, version)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if _, err := t.Exec(ctx, body); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}
