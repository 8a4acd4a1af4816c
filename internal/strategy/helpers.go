package strategy

import (
	"bar-backtest-lab/internal/domain"
)

// sma returns the simple moving average of closes ending at position end.
// Returns false if fewer than period bars are available.
func sma(history []domain.Bar, end, period int) (float64, bool) {
	if period <= 0 || end < period-1 || end >= len(history) {
		return 0, false
	}

	sum := 0.0
	for i := end - period + 1; i <= end; i++ {
		sum += history[i].Close
	}
	return sum / float64(period), true
}

// channel returns the highest high and lowest low of the period bars before position end.
func channel(history []domain.Bar, end, period int) (high, low float64, ok bool) {
	if period <= 0 || end < period || end >= len(history) {
		return 0, 0, false
	}

	high = history[end-period].High
	low = history[end-period].Low
	for i := end - period + 1; i < end; i++ {
		if history[i].High > high {
			high = history[i].High
		}
		if history[i].Low < low {
			low = history[i].Low
		}
	}
	return high, low, true
}

// opening builds an opening signal with optional levels attached.
func opening(kind domain.SignalKind, stopLossPips, takeProfitPips *float64) domain.SignalRequest {
	sig := domain.NewSignal(kind)
	if stopLossPips != nil {
		sig = sig.WithStopLoss(*stopLossPips)
	}
	if takeProfitPips != nil {
		sig = sig.WithTakeProfit(*takeProfitPips)
	}
	return sig
}
