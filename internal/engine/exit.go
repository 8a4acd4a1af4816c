package engine

import (
	"math"

	"bar-backtest-lab/internal/domain"
)

// manage handles a signal while a position is open.
// Closing is driven by EXIT, margin call, stop/take levels and optionally reversal.
// A signal that closes a position never reopens one.
func (e *Engine) manage(sig *domain.SignalRequest, state domain.AccountState) Result {
	next := state
	e.accrueSwap(sig, &next)

	if sig.Kind == domain.SignalExit {
		reason := domain.ExitReasonSignal
		if sig.Reason == domain.SignalReasonEndOfSeries {
			reason = domain.ExitReasonEndOfSeries
		}
		return e.close(sig, next, e.marketExitPrice(sig, next.Kind), reason)
	}

	if e.insufficientEquity(next) {
		return e.close(sig, next, e.marketExitPrice(sig, next.Kind), domain.ExitReasonMarginCall)
	}

	if price, reason, hit := e.levelHit(sig, next); hit {
		return e.close(sig, next, price, reason)
	}

	if e.opts.CloseOnReversal && sig.Kind == next.Kind.Opposite() {
		return e.close(sig, next, e.marketExitPrice(sig, next.Kind), domain.ExitReasonReversal)
	}

	return Result{State: next, Outcome: OutcomeHeld}
}

// marketExitPrice is the fill for unconditional closes.
// Longs sell at the bid close; shorts buy back at the ask.
func (e *Engine) marketExitPrice(sig *domain.SignalRequest, held domain.SignalKind) float64 {
	_, _, _, closePrice := sig.Prices()
	if held == domain.SignalSell {
		return closePrice + e.instrument.SpreadPoints
	}
	return closePrice
}

// levelHit checks stop-loss then take-profit; stop-loss wins when both are breached.
func (e *Engine) levelHit(sig *domain.SignalRequest, state domain.AccountState) (price float64, reason string, hit bool) {
	if !state.StopLossEnabled && !state.TakeProfitEnabled {
		return 0, "", false
	}

	open, high, low, _ := sig.Prices()
	spread := e.instrument.SpreadPoints

	if state.Kind == domain.SignalSell {
		// Shorts exit at the ask.
		open, high, low = open+spread, high+spread, low+spread
	}

	if e.opts.PriceMode == PriceModeHighLow {
		return levelHitHighLow(state, open, high, low)
	}
	return levelHitOpen(state, open)
}

// levelHitOpen compares levels with the (side-adjusted) open and fills there.
func levelHitOpen(state domain.AccountState, ref float64) (float64, string, bool) {
	long := state.Kind == domain.SignalBuy

	if state.StopLossEnabled {
		if (long && state.StopLoss >= ref) || (!long && state.StopLoss <= ref) {
			return ref, domain.ExitReasonStopLoss, true
		}
	}
	if state.TakeProfitEnabled {
		if (long && state.TakeProfit <= ref) || (!long && state.TakeProfit >= ref) {
			return ref, domain.ExitReasonTakeProfit, true
		}
	}
	return 0, "", false
}

// levelHitHighLow compares levels with the bar range and fills at the level,
// or at the open when the bar gapped through it.
func levelHitHighLow(state domain.AccountState, open, high, low float64) (float64, string, bool) {
	long := state.Kind == domain.SignalBuy

	if state.StopLossEnabled {
		if long && low <= state.StopLoss {
			return math.Min(open, state.StopLoss), domain.ExitReasonStopLoss, true
		}
		if !long && high >= state.StopLoss {
			return math.Max(open, state.StopLoss), domain.ExitReasonStopLoss, true
		}
	}
	if state.TakeProfitEnabled {
		if long && high >= state.TakeProfit {
			return math.Max(open, state.TakeProfit), domain.ExitReasonTakeProfit, true
		}
		if !long && low <= state.TakeProfit {
			return math.Min(open, state.TakeProfit), domain.ExitReasonTakeProfit, true
		}
	}
	return 0, "", false
}

// close realizes the position at exitPrice and returns the flat state.
func (e *Engine) close(sig *domain.SignalRequest, state domain.AccountState, exitPrice float64, reason string) Result {
	profit := (exitPrice - state.AdjustedPrice) * state.Size

	next := state
	next.Balance += profit
	next.Equity = next.Balance
	next.Kind = domain.SignalNone
	next.Size = 0
	next.AdjustedPrice = 0
	next.EntryPrice = 0
	next.StopLoss = 0
	next.TakeProfit = 0
	next.StopLossEnabled = false
	next.TakeProfitEnabled = false
	next.EntryBar = 0
	next.LastSwapBar = 0

	trade := &domain.Trade{
		Timestamp:      sig.Time(),
		BarIndex:       sig.BarIndex,
		Action:         domain.TradeClose,
		Kind:           domain.SignalExit,
		SignedSize:     state.Size,
		FillPrice:      exitPrice,
		EntryPrice:     state.AdjustedPrice,
		RealizedProfit: profit,
		BalanceAfter:   next.Balance,
		StopLoss:       state.StopLoss,
		TakeProfit:     state.TakeProfit,
		ExitReason:     reason,
		SwapAccrued:    state.SwapAccrued,
	}

	return Result{State: next, Trade: trade, Outcome: OutcomeClosed}
}

// accrueSwap adds one bar of financing for every new bar the position is held.
// Forex rates are in pips per unit; other instruments quote cash per unit.
func (e *Engine) accrueSwap(sig *domain.SignalRequest, state *domain.AccountState) {
	if sig.BarIndex <= state.LastSwapBar || sig.BarIndex <= state.EntryBar {
		return
	}
	state.LastSwapBar = sig.BarIndex

	rate := sig.SwapLong
	if state.Kind == domain.SignalSell {
		rate = sig.SwapShort
	}
	if rate == nil || *rate == 0 {
		return
	}

	units := math.Abs(state.Size)
	if e.instrument.Type == domain.InstrumentForex {
		state.SwapAccrued += *rate * e.instrument.PipSize * units
		return
	}
	state.SwapAccrued += *rate * units
}
