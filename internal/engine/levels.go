package engine

import (
	"bar-backtest-lab/internal/domain"
)

// resolveDistance picks the effective distance in pips.
// A non-zero call-time value wins, then a non-zero signal value; otherwise disabled.
func resolveDistance(callTime float64, signal *float64) (pips float64, enabled bool) {
	if callTime != 0 {
		return callTime, true
	}
	if signal != nil && *signal != 0 {
		return *signal, true
	}
	return 0, false
}

// stopLossLevel returns the absolute stop-loss price.
// Short levels are expressed against the ask so both sides compare with the same quote.
func stopLossLevel(kind domain.SignalKind, open, spread, distance float64) float64 {
	if kind == domain.SignalBuy {
		return open - distance
	}
	return open + spread + distance
}

// takeProfitLevel returns the absolute take-profit price.
func takeProfitLevel(kind domain.SignalKind, open, spread, distance float64) float64 {
	if kind == domain.SignalBuy {
		return open + distance
	}
	return open + spread - distance
}

// adjustedEntry charges the spread to the buyer at entry.
func adjustedEntry(kind domain.SignalKind, open, spread float64) float64 {
	if kind == domain.SignalBuy {
		return open + spread
	}
	return open
}

// signedSize returns the position size with direction encoded in the sign.
func signedSize(kind domain.SignalKind, size float64) float64 {
	if kind == domain.SignalSell {
		return -size
	}
	return size
}
