// Package backends opens the store set used by the commands.
// Bars come from ClickHouse and runs from PostgreSQL when their DSNs are set;
// anything unconfigured falls back to in-memory stores.
package backends

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bar-backtest-lab/internal/config"
	"bar-backtest-lab/internal/storage"
	chstore "bar-backtest-lab/internal/storage/clickhouse"
	"bar-backtest-lab/internal/storage/memory"
	"bar-backtest-lab/internal/storage/migrations"
	pgstore "bar-backtest-lab/internal/storage/postgres"
)

// Set holds one store per concern.
type Set struct {
	Bars   storage.BarStore
	Runs   storage.RunStore
	Trades storage.TradeStore
	Events storage.SignalEventStore

	// PersistentBars and PersistentRuns report which halves are database backed.
	PersistentBars bool
	PersistentRuns bool

	closers []func()
}

// Memory returns a set backed entirely by in-memory stores.
func Memory() *Set {
	return &Set{
		Bars:   memory.NewBarStore(),
		Runs:   memory.NewRunStore(),
		Trades: memory.NewTradeStore(),
		Events: memory.NewSignalEventStore(),
	}
}

// Open connects to the configured databases and applies migrations.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*Set, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := Memory()

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN, logger)
		if err != nil {
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		set.Bars = chstore.NewBarStore(conn)
		set.PersistentBars = true
		set.closers = append(set.closers, func() { _ = conn.Close() })
		logger.Info("bar store: clickhouse")
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			set.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
			pool.Close()
			set.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		set.Runs = pgstore.NewRunStore(pool)
		set.Trades = pgstore.NewTradeStore(pool)
		set.Events = pgstore.NewSignalEventStore(pool)
		set.PersistentRuns = true
		set.closers = append(set.closers, pool.Close)
		logger.Info("run store: postgres")
	}

	return set, nil
}

// Close releases database connections in reverse order of opening.
func (s *Set) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
