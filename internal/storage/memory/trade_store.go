package memory

import (
	"context"
	"sort"
	"sync"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trade // keyed by trade id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.Trade),
	}
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(_ context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(trades))

	for _, t := range trades {
		if t == nil || t.ID == "" || t.RunID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[t.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[t.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.ID] = struct{}{}
	}

	for _, t := range trades {
		copy := *t
		s.data[t.ID] = &copy
	}

	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(_ context.Context, tradeID string) (*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tradeID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *t
	return &copy, nil
}

// GetByRunID retrieves all trades of a run, ordered by seq ASC.
func (s *TradeStore) GetByRunID(_ context.Context, runID string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.RunID == runID {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})

	return result, nil
}

var _ storage.TradeStore = (*TradeStore)(nil)
