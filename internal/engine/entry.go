package engine

import (
	"bar-backtest-lab/internal/domain"
)

// enter handles a signal while no position is open.
func (e *Engine) enter(sig *domain.SignalRequest, state domain.AccountState) Result {
	if !sig.Kind.Valid() {
		return Result{State: state, Outcome: OutcomeInvalidSignal}
	}
	if !sig.Kind.Opens() {
		return Result{State: state, Outcome: OutcomeIgnored}
	}
	if e.insufficientEquity(state) {
		return Result{State: state, Outcome: OutcomeInsufficientEquity}
	}

	inst := e.instrument
	open, _, _, _ := sig.Prices()

	slPips, slEnabled := resolveDistance(e.opts.StopLossPips, sig.StopLoss)
	tpPips, tpEnabled := resolveDistance(e.opts.TakeProfitPips, sig.TakeProfit)

	next := state
	next.Kind = sig.Kind
	next.Size = signedSize(sig.Kind, inst.PositionSize)
	next.AdjustedPrice = adjustedEntry(sig.Kind, open, inst.SpreadPoints)
	next.EntryPrice = next.AdjustedPrice
	next.EntryBar = sig.BarIndex
	next.SwapAccrued = 0

	next.StopLossEnabled = slEnabled
	next.StopLoss = 0
	if slEnabled {
		next.StopLoss = stopLossLevel(sig.Kind, open, inst.SpreadPoints, slPips*inst.PipSize)
	}
	next.TakeProfitEnabled = tpEnabled
	next.TakeProfit = 0
	if tpEnabled {
		next.TakeProfit = takeProfitLevel(sig.Kind, open, inst.SpreadPoints, tpPips*inst.PipSize)
	}

	next.Balance -= inst.Commission
	next.Equity = next.Balance

	trade := &domain.Trade{
		Timestamp:      sig.Time(),
		BarIndex:       sig.BarIndex,
		Action:         domain.TradeOpen,
		Kind:           sig.Kind,
		SignedSize:     next.Size,
		FillPrice:      next.AdjustedPrice,
		EntryPrice:     next.AdjustedPrice,
		RealizedProfit: 0,
		BalanceAfter:   next.Balance,
		Commission:     inst.Commission,
		StopLoss:       next.StopLoss,
		TakeProfit:     next.TakeProfit,
	}

	return Result{State: next, Trade: trade, Outcome: OutcomeOpened}
}
