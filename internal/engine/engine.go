// Package engine implements the trade-lifecycle state machine.
// Apply is a pure transition: it never performs I/O and never mutates its inputs.
package engine

import (
	"bar-backtest-lab/internal/domain"
)

// PriceMode selects which bar prices stop-loss and take-profit levels are compared with.
type PriceMode string

// PriceMode constants.
const (
	// PriceModeOpen compares levels with the bar open (ask-adjusted for shorts).
	PriceModeOpen PriceMode = "OPEN"
	// PriceModeHighLow compares levels with the bar extremes.
	PriceModeHighLow PriceMode = "HIGH_LOW"
)

// Options are call-time engine settings.
type Options struct {
	// StopLossPips and TakeProfitPips override signal distances when non-zero.
	StopLossPips   float64
	TakeProfitPips float64

	// PriceMode defaults to PriceModeOpen.
	PriceMode PriceMode

	// CloseOnReversal closes an open position when the opposite direction is signalled.
	// The new direction is not opened by the same signal.
	CloseOnReversal bool
}

// Engine applies signals to an account state for one instrument.
type Engine struct {
	instrument domain.Instrument
	opts       Options
}

// New creates an engine for the instrument.
func New(instrument domain.Instrument, opts Options) *Engine {
	if opts.PriceMode == "" {
		opts.PriceMode = PriceModeOpen
	}
	return &Engine{instrument: instrument, opts: opts}
}

// Instrument returns the descriptor the engine prices against.
func (e *Engine) Instrument() domain.Instrument {
	return e.instrument
}

// Outcome explains what Apply did with a signal.
type Outcome string

// Outcome constants.
const (
	OutcomeWarmup             Outcome = "WARMUP"
	OutcomeIgnored            Outcome = "IGNORED"
	OutcomeInsufficientEquity Outcome = "INSUFFICIENT_EQUITY"
	OutcomeInvalidSignal      Outcome = "INVALID_SIGNAL"
	OutcomeOpened             Outcome = "OPENED"
	OutcomeHeld               Outcome = "HELD"
	OutcomeClosed             Outcome = "CLOSED"
)

// Result is the transition produced by Apply.
type Result struct {
	State   domain.AccountState
	Trade   *domain.Trade // nil unless a position opened or closed
	Outcome Outcome
}

// Apply evaluates one enriched signal against the current state.
// The first bar of a run is a warm-up and never trades.
func (e *Engine) Apply(sig *domain.SignalRequest, state domain.AccountState) Result {
	if sig.BarIndex <= 1 {
		return Result{State: state, Outcome: OutcomeWarmup}
	}

	if state.Flat() {
		return e.enter(sig, state)
	}
	return e.manage(sig, state)
}

// insufficientEquity reports whether equity is at or below the required margin.
func (e *Engine) insufficientEquity(state domain.AccountState) bool {
	return state.Equity <= e.instrument.RequiredMargin()
}
