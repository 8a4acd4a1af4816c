package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/storage"
)

// SignalEventStore is an in-memory implementation of storage.SignalEventStore.
type SignalEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SignalEvent // keyed by (run_id, seq)
}

// NewSignalEventStore creates a new in-memory signal event store.
func NewSignalEventStore() *SignalEventStore {
	return &SignalEventStore{
		data: make(map[string]*domain.SignalEvent),
	}
}

func eventKey(runID string, seq int) string {
	return fmt.Sprintf("%s|%d", runID, seq)
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *SignalEventStore) InsertBulk(_ context.Context, events []*domain.SignalEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(events))

	for _, e := range events {
		if e == nil || e.RunID == "" || e.Seq < 0 {
			return storage.ErrInvalidInput
		}
		key := eventKey(e.RunID, e.Seq)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, e := range events {
		s.data[eventKey(e.RunID, e.Seq)] = copyEvent(e)
	}

	return nil
}

// GetByRunID retrieves the event log of a run, ordered by seq ASC.
func (s *SignalEventStore) GetByRunID(_ context.Context, runID string) ([]*domain.SignalEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SignalEvent
	for _, e := range s.data {
		if e.RunID == runID {
			result = append(result, copyEvent(e))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})

	return result, nil
}

// copyEvent copies the event and every optional signal field.
func copyEvent(e *domain.SignalEvent) *domain.SignalEvent {
	c := *e
	sig := &c.Signal
	sig.Symbol = clonePtr(sig.Symbol)
	sig.Timestamp = clonePtr(sig.Timestamp)
	sig.TakeProfit = clonePtr(sig.TakeProfit)
	sig.StopLoss = clonePtr(sig.StopLoss)
	sig.Open = clonePtr(sig.Open)
	sig.High = clonePtr(sig.High)
	sig.Low = clonePtr(sig.Low)
	sig.Close = clonePtr(sig.Close)
	sig.Volume = clonePtr(sig.Volume)
	sig.SwapLong = clonePtr(sig.SwapLong)
	sig.SwapShort = clonePtr(sig.SwapShort)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

var _ storage.SignalEventStore = (*SignalEventStore)(nil)
