package domain

// Summary holds performance statistics of one run.
// Profit figures are in account currency; ratios are fractions, not percents.
type Summary struct {
	RunID      string `json:"run_id,omitempty"`
	StrategyID string `json:"strategy_id,omitempty"`

	// Counts (closed trades only)
	ClosedTrades int            `json:"closed_trades"`
	Wins         int            `json:"wins"`
	Losses       int            `json:"losses"`
	WinRate      float64        `json:"win_rate"`
	ExitReasons  map[string]int `json:"exit_reasons"`

	// Profit
	GrossProfit     float64  `json:"gross_profit"`
	GrossLoss       float64  `json:"gross_loss"`    // positive magnitude
	ProfitFactor    *float64 `json:"profit_factor"` // nil when there are no losing trades
	NetProfit       float64  `json:"net_profit"`    // final balance minus initial balance
	TotalCommission float64  `json:"total_commission"`

	// Per-trade profit distribution
	ProfitMean   float64 `json:"profit_mean"`
	ProfitMedian float64 `json:"profit_median"`
	ProfitStddev float64 `json:"profit_stddev"`
	ProfitMin    float64 `json:"profit_min"`
	ProfitMax    float64 `json:"profit_max"`

	// Risk (order dependent)
	MaxDrawdown          float64 `json:"max_drawdown"`     // peak-to-trough on the balance curve
	MaxDrawdownPct       float64 `json:"max_drawdown_pct"` // drawdown relative to its peak
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`

	InitialBalance float64 `json:"initial_balance"`
	FinalBalance   float64 `json:"final_balance"`
}
