// Package metrics computes performance summaries of backtest runs.
package metrics

import (
	"context"
	"fmt"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/storage"
)

// Aggregator computes summaries for persisted runs.
type Aggregator struct {
	runStore   storage.RunStore
	tradeStore storage.TradeStore
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(runStore storage.RunStore, tradeStore storage.TradeStore) *Aggregator {
	return &Aggregator{
		runStore:   runStore,
		tradeStore: tradeStore,
	}
}

// Summarize loads a run and its trades and computes the summary.
// Returns storage.ErrNotFound if the run does not exist.
func (a *Aggregator) Summarize(ctx context.Context, runID string) (*domain.Summary, error) {
	run, err := a.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	stored, err := a.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades for run %s: %w", runID, err)
	}

	trades := make([]domain.Trade, len(stored))
	for i, t := range stored {
		trades[i] = *t
	}

	s := Compute(run.InitialBalance, trades)
	s.RunID = run.RunID
	s.StrategyID = run.StrategyID
	return s, nil
}

// Compare summarizes several runs in the given order.
// Missing runs fail the whole call.
func (a *Aggregator) Compare(ctx context.Context, runIDs []string) ([]*domain.Summary, error) {
	out := make([]*domain.Summary, 0, len(runIDs))
	for _, id := range runIDs {
		s, err := a.Summarize(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
