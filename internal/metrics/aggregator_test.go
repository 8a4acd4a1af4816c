package metrics

import (
	"context"
	"errors"
	"testing"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/storage"
	"bar-backtest-lab/internal/storage/memory"
)

func seedRun(t *testing.T, runs *memory.RunStore, trades *memory.TradeStore, runID string) {
	t.Helper()
	ctx := context.Background()

	if err := runs.Insert(ctx, &domain.RunRecord{RunID: runID, StrategyID: "SCRIPTED_4", InitialBalance: 10000}); err != nil {
		t.Fatalf("Insert run failed: %v", err)
	}

	log := sampleTrades()
	ptrs := make([]*domain.Trade, len(log))
	for i := range log {
		log[i].RunID = runID
		log[i].Seq = i
		log[i].ID = runID + "-" + string(rune('a'+i))
		ptrs[i] = &log[i]
	}
	if err := trades.InsertBulk(ctx, ptrs); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
}

func TestAggregator_Summarize(t *testing.T) {
	runs, trades := memory.NewRunStore(), memory.NewTradeStore()
	seedRun(t, runs, trades, "run-1")

	s, err := NewAggregator(runs, trades).Summarize(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.RunID != "run-1" || s.StrategyID != "SCRIPTED_4" {
		t.Errorf("unexpected identity %s/%s", s.RunID, s.StrategyID)
	}
	if s.ClosedTrades != 4 {
		t.Errorf("expected 4 closed trades, got %d", s.ClosedTrades)
	}
	if s.InitialBalance != 10000 {
		t.Errorf("expected initial balance 10000, got %f", s.InitialBalance)
	}
}

func TestAggregator_MissingRun(t *testing.T) {
	agg := NewAggregator(memory.NewRunStore(), memory.NewTradeStore())

	_, err := agg.Summarize(context.Background(), "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAggregator_Compare(t *testing.T) {
	runs, trades := memory.NewRunStore(), memory.NewTradeStore()
	seedRun(t, runs, trades, "run-1")
	seedRun(t, runs, trades, "run-2")
	agg := NewAggregator(runs, trades)

	out, err := agg.Compare(context.Background(), []string{"run-2", "run-1"})
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if len(out) != 2 || out[0].RunID != "run-2" || out[1].RunID != "run-1" {
		t.Fatalf("unexpected order: %+v", out)
	}

	if _, err := agg.Compare(context.Background(), []string{"run-1", "missing"}); err == nil {
		t.Fatal("expected error for missing run")
	}
}
