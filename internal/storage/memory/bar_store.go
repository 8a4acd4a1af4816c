package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[string]*domain.StoredBar // keyed by (symbol, timestamp_ms)
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[string]*domain.StoredBar),
	}
}

// barKey generates a unique key for a bar.
func barKey(symbol string, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", symbol, timestampMs)
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate.
func (s *BarStore) InsertBulk(_ context.Context, bars []*domain.StoredBar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(bars))

	// First pass: check for duplicates (existing + intra-batch)
	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(b.Symbol, b.TimestampMs)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, b := range bars {
		barCopy := *b
		s.data[barKey(b.Symbol, b.TimestampMs)] = &barCopy
	}

	return nil
}

// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
func (s *BarStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.StoredBar, error) {
	return s.filter(func(b *domain.StoredBar) bool {
		return b.Symbol == symbol
	}), nil
}

// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *BarStore) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]*domain.StoredBar, error) {
	return s.filter(func(b *domain.StoredBar) bool {
		return b.Symbol == symbol && b.TimestampMs >= start && b.TimestampMs <= end
	}), nil
}

// Symbols returns the distinct symbols with stored bars, sorted.
func (s *BarStore) Symbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, b := range s.data {
		seen[b.Symbol] = struct{}{}
	}

	result := make([]string, 0, len(seen))
	for sym := range seen {
		result = append(result, sym)
	}
	sort.Strings(result)

	return result, nil
}

func (s *BarStore) filter(keep func(*domain.StoredBar) bool) []*domain.StoredBar {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StoredBar
	for _, b := range s.data {
		if keep(b) {
			barCopy := *b
			result = append(result, &barCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result
}

var _ storage.BarStore = (*BarStore)(nil)
