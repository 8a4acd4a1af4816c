package memory

import (
	"context"
	"errors"
	"testing"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/storage"
)

func TestTradeStore_InsertAndGet(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trades := []*domain.Trade{
		{ID: "t2", RunID: "run1", Seq: 1, Action: domain.TradeClose, RealizedProfit: 480},
		{ID: "t1", RunID: "run1", Seq: 0, Action: domain.TradeOpen},
		{ID: "t3", RunID: "run2", Seq: 0, Action: domain.TradeOpen},
	}
	if err := store.InsertBulk(ctx, trades); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByID(ctx, "t2")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.RealizedProfit != 480 {
		t.Errorf("RealizedProfit mismatch: got %f, want %f", got.RealizedProfit, 480.0)
	}

	byRun, err := store.GetByRunID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(byRun) != 2 || byRun[0].ID != "t1" || byRun[1].ID != "t2" {
		t.Errorf("Expected [t1 t2] ordered by seq, got %+v", byRun)
	}
}

func TestTradeStore_DuplicateKey(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trade := &domain.Trade{ID: "t1", RunID: "run1"}
	if err := store.InsertBulk(ctx, []*domain.Trade{trade}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.Trade{trade})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeStore_NotFoundAndInvalid(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if _, err := store.GetByID(ctx, "nonexistent"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := store.InsertBulk(ctx, []*domain.Trade{{ID: "t1"}}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for missing run id, got %v", err)
	}
}
