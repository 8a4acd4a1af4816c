package metrics

import (
	"math"
	"sort"

	"bar-backtest-lab/internal/domain"
)

// Compute calculates run statistics from a trade log.
// Trades must be in log order; the balance curve starts at initialBalance and
// moves with every trade's BalanceAfter, so opening commissions count toward drawdown.
func Compute(initialBalance float64, trades []domain.Trade) *domain.Summary {
	s := &domain.Summary{
		ExitReasons:    make(map[string]int),
		InitialBalance: initialBalance,
		FinalBalance:   initialBalance,
	}
	if len(trades) == 0 {
		return s
	}

	var profits []float64
	for i := range trades {
		t := &trades[i]
		s.TotalCommission += t.Commission
		if t.Action != domain.TradeClose {
			continue
		}

		profits = append(profits, t.RealizedProfit)
		s.ExitReasons[t.ExitReason]++
		if t.Win() {
			s.Wins++
			s.GrossProfit += t.RealizedProfit
		} else {
			s.Losses++
			s.GrossLoss -= t.RealizedProfit
		}
	}

	s.FinalBalance = trades[len(trades)-1].BalanceAfter
	s.NetProfit = s.FinalBalance - initialBalance

	s.ClosedTrades = len(profits)
	s.WinRate = computeWinRate(s.Wins, s.ClosedTrades)
	if s.GrossLoss > 0 {
		pf := s.GrossProfit / s.GrossLoss
		s.ProfitFactor = &pf
	}

	if n := len(profits); n > 0 {
		sorted := make([]float64, n)
		copy(sorted, profits)
		sort.Float64s(sorted)

		s.ProfitMean = computeMean(profits)
		s.ProfitStddev = computeStddev(profits, s.ProfitMean)
		s.ProfitMedian = computePercentile(sorted, 0.50)
		s.ProfitMin = sorted[0]
		s.ProfitMax = sorted[n-1]
	}

	s.MaxDrawdown, s.MaxDrawdownPct = computeMaxDrawdown(initialBalance, balanceCurve(trades))
	s.MaxConsecutiveLosses = computeMaxConsecutiveLosses(profits)

	return s
}

// balanceCurve returns the balance after each trade.
func balanceCurve(trades []domain.Trade) []float64 {
	curve := make([]float64, len(trades))
	for i := range trades {
		curve[i] = trades[i].BalanceAfter
	}
	return curve
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// computeMean calculates arithmetic mean of values.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown finds the worst peak-to-trough fall of the balance curve.
// Returns the absolute fall and the fall relative to the peak it started from.
func computeMaxDrawdown(start float64, curve []float64) (float64, float64) {
	peak := start
	maxDrawdown, maxPct := 0.0, 0.0

	for _, balance := range curve {
		if balance > peak {
			peak = balance
		}
		drawdown := peak - balance
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
		if peak > 0 && drawdown/peak > maxPct {
			maxPct = drawdown / peak
		}
	}
	return maxDrawdown, maxPct
}

// computeMaxConsecutiveLosses finds longest streak of profit <= 0.
// Profits must be in chronological order.
func computeMaxConsecutiveLosses(profits []float64) int {
	maxStreak := 0
	currentStreak := 0

	for _, p := range profits {
		if p <= 0 {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}
