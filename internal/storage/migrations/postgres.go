package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"bar-backtest-lab/internal/storage/postgres"
)

const postgresVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	name       TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// RunPostgresMigrations applies embedded files not yet recorded in schema_migrations.
// Each file and its bookkeeping row commit in one transaction.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	all, err := load(PostgresFS, "postgres")
	if err != nil {
		return fmt.Errorf("load postgres migrations: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresVersionTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedPostgres(ctx, pool)
	if err != nil {
		return err
	}

	todo := pending(all, applied)
	for _, m := range todo {
		err := pool.InTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.sql); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, m.name)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		logger.Debug("applied postgres migration", zap.String("file", m.name))
	}

	logger.Info("postgres schema up to date", zap.Int("applied", len(todo)), zap.Int("total", len(all)))
	return nil
}

func appliedPostgres(ctx context.Context, pool *postgres.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}

	applied := make(map[string]bool, len(names))
	for _, n := range names {
		applied[n] = true
	}
	return applied, nil
}
