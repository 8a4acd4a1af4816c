package storage

import (
	"context"

	"bar-backtest-lab/internal/domain"
)

// BarStore provides access to bars storage.
type BarStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, bars []*domain.StoredBar) error

	// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.StoredBar, error)

	// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.StoredBar, error)

	// Symbols returns the distinct symbols with stored bars, sorted.
	Symbols(ctx context.Context) ([]string, error)
}

// RunStore provides access to backtest_runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)

	// GetByFingerprint retrieves all runs sharing a configuration fingerprint, oldest first.
	GetByFingerprint(ctx context.Context, fingerprint string) ([]*domain.RunRecord, error)

	// List retrieves up to limit runs, newest first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]*domain.RunRecord, error)
}

// TradeStore provides access to backtest_trades storage.
type TradeStore interface {
	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate trade id.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.Trade, error)

	// GetByRunID retrieves all trades of a run, ordered by seq ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error)
}

// SignalEventStore provides access to signal_events storage.
type SignalEventStore interface {
	// InsertBulk adds multiple events atomically. Fails entire batch on duplicate (run_id, seq).
	InsertBulk(ctx context.Context, events []*domain.SignalEvent) error

	// GetByRunID retrieves the event log of a run, ordered by seq ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.SignalEvent, error)
}
