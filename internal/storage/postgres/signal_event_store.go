package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/storage"
)

// SignalEventStore implements storage.SignalEventStore using PostgreSQL.
// Events are written with a CopyFrom batch inside a transaction.
type SignalEventStore struct {
	pool *Pool
}

// NewSignalEventStore creates a new SignalEventStore.
func NewSignalEventStore(pool *Pool) *SignalEventStore {
	return &SignalEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalEventStore = (*SignalEventStore)(nil)

var signalEventColumns = []string{
	"run_id", "seq", "kind", "symbol", "ts", "take_profit", "stop_loss",
	"open", "high", "low", "close", "volume", "swap_long", "swap_short",
	"bar_index", "previous", "reason",
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *SignalEventStore) InsertBulk(ctx context.Context, events []*domain.SignalEvent) (err error) {
	defer observeQuery("insert_signal_events", time.Now(), &err)

	if len(events) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(events))
	for _, e := range events {
		if e == nil || e.RunID == "" || e.Seq < 0 {
			return storage.ErrInvalidInput
		}
		sig := e.Signal
		rows = append(rows, []any{
			e.RunID, e.Seq, string(sig.Kind), sig.Symbol, sig.Timestamp, sig.TakeProfit, sig.StopLoss,
			sig.Open, sig.High, sig.Low, sig.Close, sig.Volume, sig.SwapLong, sig.SwapShort,
			sig.BarIndex, sig.Previous, sig.Reason,
		})
	}

	return s.pool.InTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"signal_events"}, signalEventColumns, pgx.CopyFromRows(rows))
		return translate("copy signal events", err)
	})
}

// GetByRunID retrieves the event log of a run, ordered by seq ASC.
func (s *SignalEventStore) GetByRunID(ctx context.Context, runID string) ([]*domain.SignalEvent, error) {
	query := `
		SELECT run_id, seq, kind, symbol, ts, take_profit, stop_loss,
			open, high, low, close, volume, swap_long, swap_short,
			bar_index, previous, reason
		FROM signal_events
		WHERE run_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get signal events by run id: %w", err)
	}
	defer rows.Close()

	var events []*domain.SignalEvent
	for rows.Next() {
		var e domain.SignalEvent
		var kind string
		sig := &e.Signal

		err := rows.Scan(
			&e.RunID, &e.Seq, &kind, &sig.Symbol, &sig.Timestamp, &sig.TakeProfit, &sig.StopLoss,
			&sig.Open, &sig.High, &sig.Low, &sig.Close, &sig.Volume, &sig.SwapLong, &sig.SwapShort,
			&sig.BarIndex, &sig.Previous, &sig.Reason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan signal event row: %w", err)
		}

		sig.Kind = domain.SignalKind(kind)
		if sig.Timestamp != nil {
			ts := sig.Timestamp.UTC()
			sig.Timestamp = &ts
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal event rows: %w", err)
	}

	return events, nil
}
