package strategy

import (
	"fmt"

	"bar-backtest-lab/internal/domain"
)

// SMACrossStrategy trades crossovers of a fast and a slow simple moving average of closes.
// A cross closes any open position and opens in the direction of the cross.
type SMACrossStrategy struct {
	FastPeriod     int
	SlowPeriod     int
	StopLossPips   *float64
	TakeProfitPips *float64
}

// NewSMACrossStrategy creates a new SMA crossover strategy.
func NewSMACrossStrategy(fast, slow int, stopLossPips, takeProfitPips *float64) *SMACrossStrategy {
	return &SMACrossStrategy{
		FastPeriod:     fast,
		SlowPeriod:     slow,
		StopLossPips:   stopLossPips,
		TakeProfitPips: takeProfitPips,
	}
}

// ID returns strategy identifier.
// Format: SMA_CROSS_<fast>_<slow>
func (s *SMACrossStrategy) ID() string {
	return fmt.Sprintf("%s_%d_%d", domain.StrategyTypeSMACross, s.FastPeriod, s.SlowPeriod)
}

// Settings implements Configured.
func (s *SMACrossStrategy) Settings() string {
	return fmt.Sprintf("%s|sl=%s|tp=%s", s.ID(), pips(s.StopLossPips), pips(s.TakeProfitPips))
}

// NextCandle emits EXIT followed by BUY on an upward cross and EXIT followed by SELL on a downward cross.
func (s *SMACrossStrategy) NextCandle(_ domain.Bar, history []domain.Bar) Output {
	i := len(history) - 1
	if i < 1 {
		return NoSignal{}
	}

	fastNow, ok1 := sma(history, i, s.FastPeriod)
	slowNow, ok2 := sma(history, i, s.SlowPeriod)
	fastPrev, ok3 := sma(history, i-1, s.FastPeriod)
	slowPrev, ok4 := sma(history, i-1, s.SlowPeriod)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return NoSignal{}
	}

	switch {
	case fastPrev <= slowPrev && fastNow > slowNow:
		return ManySignals{
			domain.NewSignal(domain.SignalExit),
			opening(domain.SignalBuy, s.StopLossPips, s.TakeProfitPips),
		}
	case fastPrev >= slowPrev && fastNow < slowNow:
		return ManySignals{
			domain.NewSignal(domain.SignalExit),
			opening(domain.SignalSell, s.StopLossPips, s.TakeProfitPips),
		}
	default:
		return NoSignal{}
	}
}

// Ensure SMACrossStrategy implements Strategy
var _ Strategy = (*SMACrossStrategy)(nil)
var _ Configured = (*SMACrossStrategy)(nil)
