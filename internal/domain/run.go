package domain

import "time"

// RunRecord summarizes one backtest run for persistence.
// Corresponds to the backtest_runs table.
type RunRecord struct {
	RunID       string     `json:"run_id"`      // uuid
	Fingerprint string     `json:"fingerprint"` // base58 hash of the run configuration, equal for identical reruns
	StrategyID  string     `json:"strategy_id"` // strategy identifier including parameters
	Symbol      string     `json:"symbol"`      // instrument symbol
	Instrument  Instrument `json:"instrument"`  // cost parameters used
	PriceMode   string     `json:"price_mode"`  // level comparison mode used by the engine

	BarCount   int        `json:"bar_count"`
	EventCount int        `json:"event_count"`
	TradeCount int        `json:"trade_count"`
	FirstBarAt *time.Time `json:"first_bar_at,omitempty"` // nil when the frame has no timestamps
	LastBarAt  *time.Time `json:"last_bar_at,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`

	InitialBalance float64 `json:"initial_balance"`
	FinalBalance   float64 `json:"final_balance"`
	FinalEquity    float64 `json:"final_equity"`
}

// SignalEvent is a persisted, enriched signal from a run's event log.
// Corresponds to the signal_events table.
type SignalEvent struct {
	RunID  string        `json:"run_id"`
	Seq    int           `json:"seq"` // position in the event log
	Signal SignalRequest `json:"signal"`
}
