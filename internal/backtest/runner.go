package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/idhash"
	"bar-backtest-lab/internal/marketdata"
	"bar-backtest-lab/internal/observability"
	"bar-backtest-lab/internal/storage"
	"bar-backtest-lab/internal/strategy"
)

// ErrNoBars is returned when the bar store holds nothing for the requested range.
var ErrNoBars = errors.New("no bars for symbol in range")

// RunnerOptions wires a Runner to its dependencies.
// Stores are optional; a nil store skips that part of persistence.
type RunnerOptions struct {
	Bars   storage.BarStore
	Runs   storage.RunStore
	Trades storage.TradeStore
	Events storage.SignalEventStore

	Logger   *zap.Logger
	Now      func() time.Time // defaults to time.Now
	NewRunID func() string    // defaults to uuid.NewString
}

// Runner executes backtests and persists their results.
type Runner struct {
	opts   RunnerOptions
	logger *zap.Logger
}

// NewRunner creates a new backtest runner.
func NewRunner(opts RunnerOptions) *Runner {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	return &Runner{opts: opts, logger: opts.Logger}
}

// Output bundles the driver result with its persisted run record.
type Output struct {
	Record *domain.RunRecord
	Result *RunResult
}

// Run executes strat over frame with a fresh run id and persists the outcome.
func (r *Runner) Run(ctx context.Context, driver *Driver, frame *marketdata.Frame, strat strategy.Strategy) (*Output, error) {
	runID := r.opts.NewRunID()
	startedAt := r.opts.Now().UTC()

	strategyID, settings := "unknown", "unknown"
	if strat != nil {
		strategyID = strat.ID()
		settings = strategy.Settings(strat)
	}

	res, err := driver.Run(ctx, runID, frame, strat)
	finishedAt := r.opts.Now().UTC()
	duration := finishedAt.Sub(startedAt).Seconds()
	if err != nil {
		observability.RecordRun(strategyID, "error", duration)
		return nil, err
	}

	record := r.buildRecord(driver, frame, res, settings, startedAt, finishedAt)

	if err := r.persist(ctx, record, res); err != nil {
		observability.RecordRun(strategyID, "error", duration)
		return nil, err
	}

	observability.RecordRun(strategyID, "ok", duration)
	observability.MarkRunSucceeded(finishedAt.Unix())

	r.logger.Info("run completed",
		zap.String("run_id", runID),
		zap.String("fingerprint", record.Fingerprint),
		zap.Int("trades", record.TradeCount),
		zap.Float64("final_balance", record.FinalBalance),
	)

	return &Output{Record: record, Result: res}, nil
}

// RunStored loads bars for symbol within [from, to] (Unix ms) and runs strat over them.
// A non-positive to loads every stored bar of the symbol.
func (r *Runner) RunStored(ctx context.Context, driver *Driver, symbol string, from, to int64, strat strategy.Strategy) (*Output, error) {
	if r.opts.Bars == nil {
		return nil, fmt.Errorf("run stored %s: bar %w", symbol, storage.ErrNotConfigured)
	}

	var (
		stored []*domain.StoredBar
		err    error
	)
	if to <= 0 {
		stored, err = r.opts.Bars.GetBySymbol(ctx, symbol)
	} else {
		stored, err = r.opts.Bars.GetByTimeRange(ctx, symbol, from, to)
	}
	if err != nil {
		return nil, fmt.Errorf("load bars for %s: %w", symbol, err)
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("%s [%d, %d]: %w", symbol, from, to, ErrNoBars)
	}

	return r.Run(ctx, driver, marketdata.FromStoredBars(stored), strat)
}

func (r *Runner) buildRecord(driver *Driver, frame *marketdata.Frame, res *RunResult, settings string, startedAt, finishedAt time.Time) *domain.RunRecord {
	inst := driver.Instrument()
	opts := driver.EngineOptions()
	first, last := frame.TimeRange()

	record := &domain.RunRecord{
		RunID:          res.RunID,
		StrategyID:     res.StrategyID,
		Symbol:         inst.Symbol,
		Instrument:     inst,
		PriceMode:      string(opts.PriceMode),
		BarCount:       res.BarCount,
		EventCount:     len(res.Events),
		TradeCount:     len(res.Trades),
		FirstBarAt:     first,
		LastBarAt:      last,
		StartedAt:      startedAt,
		FinishedAt:     finishedAt,
		InitialBalance: res.InitialBalance,
		FinalBalance:   res.Final.Balance,
		FinalEquity:    res.Final.Equity,
	}
	if record.PriceMode == "" {
		record.PriceMode = "OPEN"
	}

	var firstMs, lastMs int64
	if first != nil {
		firstMs = first.UnixMilli()
	}
	if last != nil {
		lastMs = last.UnixMilli()
	}
	// Everything that can change the trade log is part of the key.
	optsKey := fmt.Sprintf("sl=%g|tp=%g|mode=%s|reversal=%t|instrument=%+v|strategy=%s",
		opts.StopLossPips, opts.TakeProfitPips, record.PriceMode, opts.CloseOnReversal, inst, settings)
	record.Fingerprint = idhash.ComputeRunFingerprint(
		res.StrategyID, inst.Symbol, res.InitialBalance, firstMs, lastMs, res.BarCount, optsKey,
	)
	return record
}

// persist writes the run, its trades and its event log.
// The run row goes first so trade foreign keys resolve.
func (r *Runner) persist(ctx context.Context, record *domain.RunRecord, res *RunResult) error {
	if r.opts.Runs != nil {
		if err := r.opts.Runs.Insert(ctx, record); err != nil {
			return fmt.Errorf("insert run %s: %w", record.RunID, err)
		}
	}

	if r.opts.Trades != nil && len(res.Trades) > 0 {
		trades := make([]*domain.Trade, len(res.Trades))
		for i := range res.Trades {
			trades[i] = &res.Trades[i]
		}
		if err := r.opts.Trades.InsertBulk(ctx, trades); err != nil {
			return fmt.Errorf("insert trades for run %s: %w", record.RunID, err)
		}
	}

	if r.opts.Events != nil && len(res.Events) > 0 {
		events := make([]*domain.SignalEvent, len(res.Events))
		for i := range res.Events {
			events[i] = &domain.SignalEvent{RunID: record.RunID, Seq: i, Signal: res.Events[i]}
		}
		if err := r.opts.Events.InsertBulk(ctx, events); err != nil {
			return fmt.Errorf("insert events for run %s: %w", record.RunID, err)
		}
	}

	return nil
}
