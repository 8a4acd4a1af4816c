package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/storage/memory"
)

func makeBars(n int) []*domain.StoredBar {
	bars := make([]*domain.StoredBar, n)
	for i := range bars {
		bars[i] = &domain.StoredBar{
			Symbol:      "EURUSD",
			TimestampMs: int64(i) * 60_000,
			Open:        1.1, High: 1.1, Low: 1.1, Close: 1.1,
		}
	}
	return bars
}

func TestStoreBatches(t *testing.T) {
	tests := []struct {
		name      string
		bars      int
		batchSize int
	}{
		{"exact multiple", 6, 3},
		{"partial last batch", 7, 3},
		{"single batch", 5, 100},
		{"default batch size", 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewBarStore()
			n, err := storeBatches(context.Background(), store, makeBars(tt.bars), tt.batchSize, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tt.bars, n)

			got, err := store.GetBySymbol(context.Background(), "EURUSD")
			require.NoError(t, err)
			assert.Len(t, got, tt.bars)
		})
	}
}

func TestStoreBatches_DuplicateStopsAtBatch(t *testing.T) {
	store := memory.NewBarStore()
	bars := makeBars(4)
	bars[3].TimestampMs = bars[2].TimestampMs

	n, err := storeBatches(context.Background(), store, bars, 2, zap.NewNop())
	if err == nil {
		t.Fatal("expected duplicate error")
	}
	if n != 2 {
		t.Errorf("stored = %d, want 2", n)
	}
}

func TestStoreBatches_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := storeBatches(ctx, memory.NewBarStore(), makeBars(3), 1, zap.NewNop())
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}
