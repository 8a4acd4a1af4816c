// Package backtest replays a bar series through a strategy and the trade engine.
package backtest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/engine"
	"bar-backtest-lab/internal/idhash"
	"bar-backtest-lab/internal/marketdata"
	"bar-backtest-lab/internal/observability"
	"bar-backtest-lab/internal/strategy"
)

// DriverOptions configures a Driver.
type DriverOptions struct {
	Instrument     domain.Instrument
	InitialBalance float64
	Engine         engine.Options
	Logger         *zap.Logger // optional, defaults to a no-op logger
}

// Driver owns the bar loop, the account state and the event and trade logs of a run.
// A Driver holds no per-run state and may be reused sequentially or concurrently.
type Driver struct {
	engine         *engine.Engine
	opts           engine.Options
	initialBalance float64
	logger         *zap.Logger
}

// NewDriver validates options and creates a driver.
func NewDriver(opts DriverOptions) (*Driver, error) {
	if err := opts.Instrument.Validate(); err != nil {
		return nil, err
	}
	if opts.InitialBalance <= 0 {
		return nil, &domain.ConfigurationError{
			Op:    "driver",
			Field: "initial_balance",
			Bar:   -1,
			Msg:   "initial balance must be positive",
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	eng := engine.New(opts.Instrument, opts.Engine)
	return &Driver{
		engine:         eng,
		opts:           opts.Engine,
		initialBalance: opts.InitialBalance,
		logger:         logger,
	}, nil
}

// Instrument returns the instrument the driver trades.
func (d *Driver) Instrument() domain.Instrument {
	return d.engine.Instrument()
}

// EngineOptions returns the engine options in effect.
func (d *Driver) EngineOptions() engine.Options {
	return d.opts
}

// InitialBalance returns the starting balance of every run.
func (d *Driver) InitialBalance() float64 {
	return d.initialBalance
}

// RunResult is the complete output of one run.
type RunResult struct {
	RunID          string
	StrategyID     string
	InitialBalance float64
	BarCount       int

	Events []domain.SignalRequest // enriched signals in processing order
	Trades []domain.Trade         // emitted trades in order
	Final  domain.AccountState

	Rejected int // entries refused for insufficient equity
}

// Run replays every bar of frame through strat.
// Configuration errors and cancellation abort the run and return no partial result.
func (d *Driver) Run(ctx context.Context, runID string, frame *marketdata.Frame, strat strategy.Strategy) (*RunResult, error) {
	if strat == nil {
		return nil, &domain.ConfigurationError{Op: "run", Field: "strategy", Bar: -1, Msg: "a strategy is required"}
	}
	if frame == nil {
		return nil, &domain.ConfigurationError{Op: "run", Field: "frame", Bar: -1, Msg: "market data is required"}
	}

	schema, err := marketdata.NegotiateSchema(frame)
	if err != nil {
		return nil, err
	}
	enricher := NewEnricher(schema)

	n := frame.Len()
	res := &RunResult{
		RunID:          runID,
		StrategyID:     strat.ID(),
		InitialBalance: d.initialBalance,
		BarCount:       n,
		Events:         make([]domain.SignalRequest, 0, n+2),
	}
	state := domain.NewAccountState(d.initialBalance)

	logger := d.logger.With(zap.String("run_id", runID), zap.String("strategy", res.StrategyID))
	logger.Info("backtest started", zap.Int("bars", n), zap.Float64("balance", d.initialBalance))

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run %s stopped at bar %d: %w", runID, i, err)
		}

		bar := frame.Bar(i)
		signals := strategy.Normalize(strat.NextCandle(bar, frame.History(i)))
		signals = appendBoundarySignals(signals, i, n)

		for _, sig := range signals {
			if err := enricher.Enrich(&sig, bar, i, len(res.Events)); err != nil {
				return nil, err
			}
			res.Events = append(res.Events, sig)

			out := d.engine.Apply(&sig, state)
			state = out.State
			d.observe(logger, &sig, out, &res.Rejected)

			if out.Trade != nil {
				trade := *out.Trade
				trade.RunID = runID
				trade.Seq = len(res.Trades)
				trade.ID = idhash.ComputeTradeID(runID, trade.Seq, trade.BarIndex, string(trade.Action))
				res.Trades = append(res.Trades, trade)
			}
		}

		observability.RecordBar()
	}

	res.Final = state
	logger.Info("backtest finished",
		zap.Int("events", len(res.Events)),
		zap.Int("trades", len(res.Trades)),
		zap.Float64("balance", state.Balance),
		zap.Int("rejected", res.Rejected),
	)

	return res, nil
}

// appendBoundarySignals adds the warm-up NONE on the first bar and the closing EXIT on the last.
// Both follow the strategy's own signals.
func appendBoundarySignals(signals []domain.SignalRequest, i, n int) []domain.SignalRequest {
	if i == 0 {
		warmup := domain.NewSignal(domain.SignalNone)
		warmup.Reason = domain.SignalReasonWarmup
		signals = append(signals, warmup)
	}
	if i == n-1 {
		exit := domain.NewSignal(domain.SignalExit)
		exit.Reason = domain.SignalReasonEndOfSeries
		signals = append(signals, exit)
	}
	return signals
}

// observe logs and counts one engine transition.
func (d *Driver) observe(logger *zap.Logger, sig *domain.SignalRequest, out engine.Result, rejected *int) {
	observability.RecordSignal(string(sig.Kind))

	switch out.Outcome {
	case engine.OutcomeInsufficientEquity:
		*rejected++
		observability.RecordRejectedEntry(string(out.Outcome))
		logger.Debug("entry rejected",
			zap.Int("bar", sig.BarIndex),
			zap.String("kind", string(sig.Kind)),
			zap.Float64("equity", out.State.Equity),
			zap.Float64("required_margin", d.engine.Instrument().RequiredMargin()),
		)
	case engine.OutcomeInvalidSignal:
		observability.RecordRejectedEntry(string(out.Outcome))
		logger.Debug("invalid signal ignored", zap.Int("bar", sig.BarIndex), zap.String("kind", string(sig.Kind)))
	case engine.OutcomeOpened:
		observability.RecordTrade(string(domain.TradeOpen), "")
		logger.Debug("position opened",
			zap.Int("bar", sig.BarIndex),
			zap.String("kind", string(sig.Kind)),
			zap.Float64("price", out.Trade.FillPrice),
		)
	case engine.OutcomeClosed:
		observability.RecordTrade(string(domain.TradeClose), out.Trade.ExitReason)
		logger.Debug("position closed",
			zap.Int("bar", sig.BarIndex),
			zap.String("reason", out.Trade.ExitReason),
			zap.Bool("synthetic", sig.Synthetic()),
			zap.Float64("price", out.Trade.FillPrice),
			zap.Float64("profit", out.Trade.RealizedProfit),
			zap.Time("at", out.Trade.Timestamp),
		)
	}
}
