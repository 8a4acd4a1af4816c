package strategy

import (
	"fmt"

	"bar-backtest-lab/internal/domain"
)

// BreakoutStrategy opens in the direction of a close outside the prior N-bar channel.
type BreakoutStrategy struct {
	ChannelPeriod  int
	StopLossPips   *float64
	TakeProfitPips *float64
}

// NewBreakoutStrategy creates a new channel breakout strategy.
func NewBreakoutStrategy(period int, stopLossPips, takeProfitPips *float64) *BreakoutStrategy {
	return &BreakoutStrategy{
		ChannelPeriod:  period,
		StopLossPips:   stopLossPips,
		TakeProfitPips: takeProfitPips,
	}
}

// ID returns strategy identifier.
// Format: BREAKOUT_<period>
func (s *BreakoutStrategy) ID() string {
	return fmt.Sprintf("%s_%d", domain.StrategyTypeBreakout, s.ChannelPeriod)
}

// Settings implements Configured.
func (s *BreakoutStrategy) Settings() string {
	return fmt.Sprintf("%s|sl=%s|tp=%s", s.ID(), pips(s.StopLossPips), pips(s.TakeProfitPips))
}

// NextCandle emits BUY when the close exceeds the channel high and SELL when it falls below the channel low.
func (s *BreakoutStrategy) NextCandle(current domain.Bar, history []domain.Bar) Output {
	high, low, ok := channel(history, len(history)-1, s.ChannelPeriod)
	if !ok {
		return NoSignal{}
	}

	switch {
	case current.Close > high:
		return OneSignal{Signal: opening(domain.SignalBuy, s.StopLossPips, s.TakeProfitPips)}
	case current.Close < low:
		return OneSignal{Signal: opening(domain.SignalSell, s.StopLossPips, s.TakeProfitPips)}
	default:
		return NoSignal{}
	}
}

// Ensure BreakoutStrategy implements Strategy
var _ Strategy = (*BreakoutStrategy)(nil)
var _ Configured = (*BreakoutStrategy)(nil)
