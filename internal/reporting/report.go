package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"bar-backtest-lab/internal/domain"
)

// Decimal places used when rendering numbers.
const (
	pricePlaces = 5
	moneyPlaces = 2
	ratioPlaces = 4
)

// Report is the rendered view of one run.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`

	Run     *domain.RunRecord `json:"run,omitempty"` // nil for unpersisted runs
	Summary *domain.Summary   `json:"summary"`
	Trades  []domain.Trade    `json:"trades"` // in log order
}

// Comparison lists summaries of several runs, typically one sweep.
type Comparison struct {
	GeneratedAt time.Time
	Rows        []ComparisonRow // sorted by net profit DESC, run_id ASC
}

// ComparisonRow is one run in a comparison table.
type ComparisonRow struct {
	RunID        string
	StrategyID   string
	ClosedTrades int
	WinRate      float64
	NetProfit    float64
	ProfitFactor *float64
	MaxDrawdown  float64
}

// price formats a price with fixed precision.
func price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(pricePlaces)
}

// money formats an account-currency amount.
func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(moneyPlaces)
}

// ratio formats a fraction.
func ratio(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(ratioPlaces)
}

// optionalRatio formats a ratio that may be undefined.
func optionalRatio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return ratio(*v)
}
