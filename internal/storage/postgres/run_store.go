package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, fingerprint, strategy_id, symbol, instrument, price_mode,
	bar_count, event_count, trade_count, first_bar_at, last_bar_at,
	started_at, finished_at, initial_balance, final_balance, final_equity
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunRecord) (err error) {
	defer observeQuery("insert_run", time.Now(), &err)

	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	instrument, err := json.Marshal(r.Instrument)
	if err != nil {
		return fmt.Errorf("marshal instrument: %w", err)
	}

	query := `INSERT INTO backtest_runs (` + runColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10, $11,
		$12, $13, $14, $15, $16
	)`

	_, err = s.pool.Exec(ctx, query,
		r.RunID, r.Fingerprint, r.StrategyID, r.Symbol, instrument, r.PriceMode,
		r.BarCount, r.EventCount, r.TradeCount, r.FirstBarAt, r.LastBarAt,
		r.StartedAt, r.FinishedAt, r.InitialBalance, r.FinalBalance, r.FinalEquity,
	)
	return translate("insert backtest run", err)
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM backtest_runs WHERE run_id = $1`

	r, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		return nil, translate("get backtest run by id", err)
	}
	return r, nil
}

// GetByFingerprint retrieves all runs sharing a fingerprint, oldest first.
func (s *RunStore) GetByFingerprint(ctx context.Context, fingerprint string) ([]*domain.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM backtest_runs
		WHERE fingerprint = $1
		ORDER BY started_at ASC, run_id ASC`

	rows, err := s.pool.Query(ctx, query, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("get backtest runs by fingerprint: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// List retrieves up to limit runs, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]*domain.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM backtest_runs
		ORDER BY started_at DESC, run_id ASC`

	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.pool.Query(ctx, query+` LIMIT $1`, limit)
	} else {
		rows, err = s.pool.Query(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list backtest runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// scanRun scans a single row into a RunRecord.
func scanRun(row pgx.Row) (*domain.RunRecord, error) {
	var r domain.RunRecord
	var instrument []byte

	err := row.Scan(
		&r.RunID, &r.Fingerprint, &r.StrategyID, &r.Symbol, &instrument, &r.PriceMode,
		&r.BarCount, &r.EventCount, &r.TradeCount, &r.FirstBarAt, &r.LastBarAt,
		&r.StartedAt, &r.FinishedAt, &r.InitialBalance, &r.FinalBalance, &r.FinalEquity,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(instrument, &r.Instrument); err != nil {
		return nil, fmt.Errorf("unmarshal instrument: %w", err)
	}
	return &r, nil
}

// scanRuns scans multiple rows into a slice of RunRecord.
func scanRuns(rows pgx.Rows) ([]*domain.RunRecord, error) {
	var runs []*domain.RunRecord

	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest run row: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest run rows: %w", err)
	}

	return runs, nil
}
