package metrics

import (
	"math"
	"testing"

	"bar-backtest-lab/internal/domain"
)

// roundTrip builds the open/close trade pair of one position.
func roundTrip(balance *float64, commission, profit float64, reason string) []domain.Trade {
	*balance -= commission
	open := domain.Trade{Action: domain.TradeOpen, Commission: commission, BalanceAfter: *balance}
	*balance += profit
	closing := domain.Trade{
		Action:         domain.TradeClose,
		RealizedProfit: profit,
		ExitReason:     reason,
		BalanceAfter:   *balance,
	}
	return []domain.Trade{open, closing}
}

func sampleTrades() []domain.Trade {
	balance := 10000.0
	var trades []domain.Trade
	trades = append(trades, roundTrip(&balance, 7, 100, domain.ExitReasonTakeProfit)...)
	trades = append(trades, roundTrip(&balance, 7, -50, domain.ExitReasonStopLoss)...)
	trades = append(trades, roundTrip(&balance, 7, -30, domain.ExitReasonStopLoss)...)
	trades = append(trades, roundTrip(&balance, 7, 200, domain.ExitReasonSignal)...)
	return trades
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(10000, nil)

	if s.ClosedTrades != 0 || s.WinRate != 0 {
		t.Errorf("expected empty summary, got %+v", s)
	}
	if s.FinalBalance != 10000 || s.NetProfit != 0 {
		t.Errorf("expected untouched balance, got final=%f net=%f", s.FinalBalance, s.NetProfit)
	}
	if s.ProfitFactor != nil {
		t.Errorf("expected nil profit factor, got %f", *s.ProfitFactor)
	}
}

func TestCompute_Counts(t *testing.T) {
	s := Compute(10000, sampleTrades())

	if s.ClosedTrades != 4 {
		t.Errorf("expected 4 closed trades, got %d", s.ClosedTrades)
	}
	if s.Wins != 2 || s.Losses != 2 {
		t.Errorf("expected 2 wins and 2 losses, got %d/%d", s.Wins, s.Losses)
	}
	if s.WinRate != 0.5 {
		t.Errorf("expected win rate 0.5, got %f", s.WinRate)
	}
	if s.ExitReasons[domain.ExitReasonStopLoss] != 2 {
		t.Errorf("expected 2 stop-loss exits, got %d", s.ExitReasons[domain.ExitReasonStopLoss])
	}
	if s.MaxConsecutiveLosses != 2 {
		t.Errorf("expected 2 consecutive losses, got %d", s.MaxConsecutiveLosses)
	}
}

func TestCompute_Profit(t *testing.T) {
	s := Compute(10000, sampleTrades())

	if s.GrossProfit != 300 {
		t.Errorf("expected gross profit 300, got %f", s.GrossProfit)
	}
	if s.GrossLoss != 80 {
		t.Errorf("expected gross loss 80, got %f", s.GrossLoss)
	}
	if s.ProfitFactor == nil || math.Abs(*s.ProfitFactor-3.75) > 1e-9 {
		t.Errorf("expected profit factor 3.75, got %v", s.ProfitFactor)
	}
	if s.TotalCommission != 28 {
		t.Errorf("expected commission 28, got %f", s.TotalCommission)
	}
	// 300 - 80 - 28
	if math.Abs(s.NetProfit-192) > 1e-9 {
		t.Errorf("expected net profit 192, got %f", s.NetProfit)
	}
	if s.ProfitMean != 55 {
		t.Errorf("expected mean 55, got %f", s.ProfitMean)
	}
	// sorted: -50, -30, 100, 200
	if s.ProfitMedian != 35 {
		t.Errorf("expected median 35, got %f", s.ProfitMedian)
	}
	if s.ProfitMin != -50 || s.ProfitMax != 200 {
		t.Errorf("expected min/max -50/200, got %f/%f", s.ProfitMin, s.ProfitMax)
	}
}

func TestCompute_Drawdown(t *testing.T) {
	s := Compute(10000, sampleTrades())

	// balance: 9993, 10093 peak, 10086, 10036, 10029, 9999, 9992 trough, 10192
	if math.Abs(s.MaxDrawdown-101) > 1e-9 {
		t.Errorf("expected drawdown 101, got %f", s.MaxDrawdown)
	}
	if math.Abs(s.MaxDrawdownPct-101.0/10093.0) > 1e-12 {
		t.Errorf("expected drawdown pct %f, got %f", 101.0/10093.0, s.MaxDrawdownPct)
	}
}

func TestCompute_NoLossesLeavesProfitFactorUnset(t *testing.T) {
	balance := 10000.0
	s := Compute(10000, roundTrip(&balance, 0, 10, domain.ExitReasonSignal))

	if s.ProfitFactor != nil {
		t.Errorf("expected nil profit factor, got %f", *s.ProfitFactor)
	}
	if s.WinRate != 1 {
		t.Errorf("expected win rate 1, got %f", s.WinRate)
	}
}

func TestCompute_OpenOnlyCountsCommission(t *testing.T) {
	trades := []domain.Trade{{Action: domain.TradeOpen, Commission: 7, BalanceAfter: 9993}}
	s := Compute(10000, trades)

	if s.ClosedTrades != 0 {
		t.Errorf("expected no closed trades, got %d", s.ClosedTrades)
	}
	if s.NetProfit != -7 || s.MaxDrawdown != 7 {
		t.Errorf("expected net -7 and drawdown 7, got %f/%f", s.NetProfit, s.MaxDrawdown)
	}
}

func TestComputePercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty", nil, 0.5, 0},
		{"single", []float64{3}, 0.9, 3},
		{"median odd", []float64{1, 2, 3}, 0.5, 2},
		{"interpolated", []float64{0, 10}, 0.25, 2.5},
		{"top", []float64{1, 2, 3}, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computePercentile(tt.sorted, tt.p); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestComputeMaxConsecutiveLosses(t *testing.T) {
	got := computeMaxConsecutiveLosses([]float64{-1, 0, 5, -2, -3, -4, 1})
	if got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}
