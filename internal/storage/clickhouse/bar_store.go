package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/observability"
	"bar-backtest-lab/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, timestamp_ms).
// MergeTree does not enforce keys, so duplicates are checked before the batch is sent.
func (s *BarStore) InsertBulk(ctx context.Context, bars []*domain.StoredBar) (err error) {
	if len(bars) == 0 {
		return nil
	}
	defer observeQuery("insert_bars", time.Now(), &err)

	type key struct {
		symbol      string
		timestampMs int64
	}
	seen := make(map[key]struct{}, len(bars))
	for _, b := range bars {
		if b == nil || b.Symbol == "" || b.TimestampMs < 0 {
			return storage.ErrInvalidInput
		}
		k := key{b.Symbol, b.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, b := range bars {
		exists, err := s.exists(ctx, b.Symbol, b.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bars (
			symbol, timestamp_ms, open, high, low, close, volume, swap_long, swap_short
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Symbol, uint64(b.TimestampMs),
			b.Open, b.High, b.Low, b.Close,
			b.Volume, b.SwapLong, b.SwapShort,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	observability.RecordBarsStored(len(bars))
	return nil
}

// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
func (s *BarStore) GetBySymbol(ctx context.Context, symbol string) (bars []*domain.StoredBar, err error) {
	defer observeQuery("bars_by_symbol", time.Now(), &err)

	query := `
		SELECT symbol, timestamp_ms, open, high, low, close, volume, swap_long, swap_short
		FROM bars
		WHERE symbol = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query by symbol: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *BarStore) GetByTimeRange(ctx context.Context, symbol string, start, end int64) (bars []*domain.StoredBar, err error) {
	defer observeQuery("bars_by_time_range", time.Now(), &err)

	query := `
		SELECT symbol, timestamp_ms, open, high, low, close, volume, swap_long, swap_short
		FROM bars
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// Symbols returns the distinct symbols with stored bars, sorted.
func (s *BarStore) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT symbol FROM bars ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol row: %w", err)
		}
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbol rows: %w", err)
	}
	return symbols, nil
}

// exists checks if a bar with the given key exists.
func (s *BarStore) exists(ctx context.Context, symbol string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM bars
		WHERE symbol = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, symbol, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// observeQuery records duration and outcome of a store operation.
func observeQuery(operation string, start time.Time, err *error) {
	observability.RecordDBQuery("clickhouse", operation, time.Since(start).Seconds(), *err)
}

// scanBars scans multiple rows.
func scanBars(rows driver.Rows) ([]*domain.StoredBar, error) {
	var bars []*domain.StoredBar

	for rows.Next() {
		var b domain.StoredBar
		var timestampMs uint64

		err := rows.Scan(
			&b.Symbol, &timestampMs,
			&b.Open, &b.High, &b.Low, &b.Close,
			&b.Volume, &b.SwapLong, &b.SwapShort,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}

		b.TimestampMs = int64(timestampMs)
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}
