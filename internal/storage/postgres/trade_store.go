package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, run_id, seq, ts, bar_index, action, kind, signed_size,
	fill_price, entry_price, realized_profit, balance_after, commission,
	stop_loss, take_profit, exit_reason, swap_accrued
`

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) (err error) {
	defer observeQuery("insert_trades", time.Now(), &err)

	if len(trades) == 0 {
		return nil
	}

	query := `INSERT INTO backtest_trades (` + tradeColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8,
		$9, $10, $11, $12, $13,
		$14, $15, $16, $17
	)`

	return s.pool.InTx(ctx, func(tx pgx.Tx) error {
		for _, t := range trades {
			if t == nil || t.ID == "" || t.RunID == "" {
				return storage.ErrInvalidInput
			}
			_, err := tx.Exec(ctx, query,
				t.ID, t.RunID, t.Seq, t.Timestamp, t.BarIndex, string(t.Action), string(t.Kind), t.SignedSize,
				t.FillPrice, t.EntryPrice, t.RealizedProfit, t.BalanceAfter, t.Commission,
				t.StopLoss, t.TakeProfit, t.ExitReason, t.SwapAccrued,
			)
			if err != nil {
				return translate("insert trade "+t.ID, err)
			}
		}
		return nil
	})
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM backtest_trades WHERE trade_id = $1`

	t, err := scanTrade(s.pool.QueryRow(ctx, query, tradeID))
	if err != nil {
		return nil, translate("get trade by id", err)
	}
	return t, nil
}

// GetByRunID retrieves all trades of a run, ordered by seq ASC.
func (s *TradeStore) GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM backtest_trades
		WHERE run_id = $1
		ORDER BY seq ASC`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trades by run id: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}

// scanTrade scans a single row into a Trade.
func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade
	var action, kind string

	err := row.Scan(
		&t.ID, &t.RunID, &t.Seq, &t.Timestamp, &t.BarIndex, &action, &kind, &t.SignedSize,
		&t.FillPrice, &t.EntryPrice, &t.RealizedProfit, &t.BalanceAfter, &t.Commission,
		&t.StopLoss, &t.TakeProfit, &t.ExitReason, &t.SwapAccrued,
	)
	if err != nil {
		return nil, err
	}

	t.Action = domain.TradeAction(action)
	t.Kind = domain.SignalKind(kind)
	t.Timestamp = t.Timestamp.UTC()
	return &t, nil
}
