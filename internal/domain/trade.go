package domain

import "time"

// TradeAction tells whether a trade opened or closed a position.
type TradeAction string

// TradeAction constants.
const (
	TradeOpen  TradeAction = "OPEN"
	TradeClose TradeAction = "CLOSE"
)

// Exit reason codes.
const (
	ExitReasonSignal      = "EXIT"
	ExitReasonStopLoss    = "STOP_LOSS"
	ExitReasonTakeProfit  = "TAKE_PROFIT"
	ExitReasonMarginCall  = "MARGIN_CALL"
	ExitReasonEndOfSeries = "END_OF_SERIES"
	ExitReasonReversal    = "REVERSAL"
)

// Trade is an immutable record emitted when a position opens or closes.
type Trade struct {
	ID         string      `json:"id"`     // deterministic hash, set by the driver
	RunID      string      `json:"run_id"` // set by the driver
	Seq        int         `json:"seq"`    // position in the run's trade log
	Timestamp  time.Time   `json:"timestamp"`
	BarIndex   int         `json:"bar_index"`
	Action     TradeAction `json:"action"`
	Kind       SignalKind  `json:"kind"` // BUY/SELL at open, EXIT at close
	SignedSize float64     `json:"signed_size"`

	FillPrice      float64 `json:"fill_price"`
	EntryPrice     float64 `json:"entry_price"` // adjusted entry of the position
	RealizedProfit float64 `json:"realized_profit"`
	BalanceAfter   float64 `json:"balance_after"`
	Commission     float64 `json:"commission"`

	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	ExitReason string  `json:"exit_reason,omitempty"`

	SwapAccrued float64 `json:"swap_accrued"` // financing tracked while held; not in balance
}

// Win reports whether a closing trade realized a positive profit.
func (t *Trade) Win() bool {
	return t.Action == TradeClose && t.RealizedProfit > 0
}
