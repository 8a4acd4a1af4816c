package backtest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/engine"
	"bar-backtest-lab/internal/marketdata"
	"bar-backtest-lab/internal/storage"
	"bar-backtest-lab/internal/storage/memory"
	"bar-backtest-lab/internal/strategy"
)

type memoryStores struct {
	bars   *memory.BarStore
	runs   *memory.RunStore
	trades *memory.TradeStore
	events *memory.SignalEventStore
}

func newMemoryRunner(t *testing.T) (*Runner, memoryStores) {
	t.Helper()
	stores := memoryStores{
		bars:   memory.NewBarStore(),
		runs:   memory.NewRunStore(),
		trades: memory.NewTradeStore(),
		events: memory.NewSignalEventStore(),
	}

	clock := baseTime
	seq := 0
	r := NewRunner(RunnerOptions{
		Bars:   stores.bars,
		Runs:   stores.runs,
		Trades: stores.trades,
		Events: stores.events,
		Logger: zaptest.NewLogger(t),
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
		NewRunID: func() string {
			seq++
			return fmt.Sprintf("run-%03d", seq)
		},
	})
	return r, stores
}

func TestRunner_PersistsRun(t *testing.T) {
	ctx := context.Background()
	r, stores := newMemoryRunner(t)
	d := newTestDriver(t, engine.Options{})

	out, err := r.Run(ctx, d, buyThenExitFrame(), strategy.NewScriptedStrategy(buyThenExitScript()))
	require.NoError(t, err)

	rec := out.Record
	assert.Equal(t, "run-001", rec.RunID)
	assert.Equal(t, "EURUSD", rec.Symbol)
	assert.Equal(t, "OPEN", rec.PriceMode)
	assert.Equal(t, 3, rec.BarCount)
	assert.Equal(t, 5, rec.EventCount)
	assert.Equal(t, 2, rec.TradeCount)
	assert.NotEmpty(t, rec.Fingerprint)
	require.NotNil(t, rec.FirstBarAt)
	assert.Equal(t, baseTime, *rec.FirstBarAt)
	assert.True(t, rec.FinishedAt.After(rec.StartedAt))
	assert.InDelta(t, out.Result.Final.Balance, rec.FinalBalance, eps)

	stored, err := stores.runs.GetByID(ctx, "run-001")
	require.NoError(t, err)
	assert.Equal(t, rec.Fingerprint, stored.Fingerprint)

	trades, err := stores.trades.GetByRunID(ctx, "run-001")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, out.Result.Trades[1], *trades[1])

	events, err := stores.events.GetByRunID(ctx, "run-001")
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, 4, events[4].Seq)
	assert.Equal(t, domain.SignalReasonEndOfSeries, events[4].Signal.Reason)
}

func TestRunner_RerunSharesFingerprint(t *testing.T) {
	ctx := context.Background()
	r, stores := newMemoryRunner(t)
	d := newTestDriver(t, engine.Options{})

	first, err := r.Run(ctx, d, buyThenExitFrame(), strategy.NewScriptedStrategy(buyThenExitScript()))
	require.NoError(t, err)
	second, err := r.Run(ctx, d, buyThenExitFrame(), strategy.NewScriptedStrategy(buyThenExitScript()))
	require.NoError(t, err)

	assert.NotEqual(t, first.Record.RunID, second.Record.RunID)
	assert.Equal(t, first.Record.Fingerprint, second.Record.Fingerprint)

	runs, err := stores.runs.GetByFingerprint(ctx, first.Record.Fingerprint)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	for i := range first.Result.Trades {
		a, b := first.Result.Trades[i], second.Result.Trades[i]
		assert.NotEqual(t, a.ID, b.ID)
		assert.Equal(t, a.FillPrice, b.FillPrice)
		assert.Equal(t, a.RealizedProfit, b.RealizedProfit)
	}

	other, err := r.Run(ctx, newTestDriver(t, engine.Options{StopLossPips: 5}), buyThenExitFrame(),
		strategy.NewScriptedStrategy(buyThenExitScript()))
	require.NoError(t, err)
	assert.NotEqual(t, first.Record.Fingerprint, other.Record.Fingerprint)
}

func TestRunner_FingerprintCoversCostsAndLevels(t *testing.T) {
	ctx := context.Background()
	r, _ := newMemoryRunner(t)

	base, err := r.Run(ctx, newTestDriver(t, engine.Options{}), buyThenExitFrame(),
		strategy.NewScriptedStrategy(buyThenExitScript()))
	require.NoError(t, err)

	costly := testInstrument()
	costly.Commission = 500
	costly.SpreadPoints = 0.0010
	d, err := NewDriver(DriverOptions{
		Instrument:     costly,
		InitialBalance: 10000,
		Logger:         zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	expensive, err := r.Run(ctx, d, buyThenExitFrame(), strategy.NewScriptedStrategy(buyThenExitScript()))
	require.NoError(t, err)
	assert.NotEqual(t, base.Record.FinalBalance, expensive.Record.FinalBalance)
	assert.NotEqual(t, base.Record.Fingerprint, expensive.Record.Fingerprint, "instrument costs")

	script := buyThenExitScript()
	script[0].StopLossPips = ptr(50.0)
	leveled, err := r.Run(ctx, newTestDriver(t, engine.Options{}), buyThenExitFrame(), strategy.NewScriptedStrategy(script))
	require.NoError(t, err)
	assert.Equal(t, base.Record.StrategyID, leveled.Record.StrategyID)
	assert.NotEqual(t, base.Record.Fingerprint, leveled.Record.Fingerprint, "scripted levels")

	plain, err := r.Run(ctx, newTestDriver(t, engine.Options{}), buyThenExitFrame(), strategy.NewSMACrossStrategy(1, 2, nil, nil))
	require.NoError(t, err)
	stopped, err := r.Run(ctx, newTestDriver(t, engine.Options{}), buyThenExitFrame(), strategy.NewSMACrossStrategy(1, 2, ptr(20.0), nil))
	require.NoError(t, err)
	assert.NotEqual(t, plain.Record.Fingerprint, stopped.Record.Fingerprint, "strategy stop-loss")
}

func TestRunner_FailedRunPersistsNothing(t *testing.T) {
	ctx := context.Background()
	r, stores := newMemoryRunner(t)
	d := newTestDriver(t, engine.Options{})
	frame := marketdata.NewFrame([]string{domain.ColumnOpen}, "", nil)

	_, err := r.Run(ctx, d, frame, strategy.NewScriptedStrategy(nil))
	require.Error(t, err)

	runs, err := stores.runs.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunner_RunStored(t *testing.T) {
	ctx := context.Background()
	r, stores := newMemoryRunner(t)
	d := newTestDriver(t, engine.Options{})

	require.NoError(t, stores.bars.InsertBulk(ctx, marketdata.ToStoredBars(buyThenExitFrame(), "EURUSD")))

	out, err := r.RunStored(ctx, d, "EURUSD", 0, 0, strategy.NewScriptedStrategy(buyThenExitScript()))
	require.NoError(t, err)
	require.Len(t, out.Result.Trades, 2)
	assert.InDelta(t, 480.0, out.Result.Trades[1].RealizedProfit, 1e-6)

	from := baseTime.Add(time.Hour).UnixMilli()
	to := baseTime.Add(2 * time.Hour).UnixMilli()
	out, err = r.RunStored(ctx, d, "EURUSD", from, to, strategy.NewScriptedStrategy(nil))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Record.BarCount)
}

func TestRunner_RunStoredNoBars(t *testing.T) {
	r, _ := newMemoryRunner(t)
	d := newTestDriver(t, engine.Options{})

	_, err := r.RunStored(context.Background(), d, "GBPUSD", 0, 0, strategy.NewScriptedStrategy(nil))
	assert.True(t, errors.Is(err, ErrNoBars))
}

func TestRunner_WithoutStores(t *testing.T) {
	r := NewRunner(RunnerOptions{})
	d := newTestDriver(t, engine.Options{})

	out, err := r.Run(context.Background(), d, buyThenExitFrame(), strategy.NewScriptedStrategy(buyThenExitScript()))
	require.NoError(t, err)
	assert.NotEmpty(t, out.Record.RunID)

	_, err = r.RunStored(context.Background(), d, "EURUSD", 0, 0, strategy.NewScriptedStrategy(nil))
	assert.ErrorIs(t, err, storage.ErrNotConfigured)
}
