package domain

import "time"

// SignalKind represents the action a strategy requests for a bar.
type SignalKind string

// SignalKind constants.
const (
	SignalNone SignalKind = "NONE"
	SignalBuy  SignalKind = "BUY"
	SignalSell SignalKind = "SELL"
	SignalExit SignalKind = "EXIT"
)

// Valid reports whether k is one of the recognized kinds.
func (k SignalKind) Valid() bool {
	switch k {
	case SignalNone, SignalBuy, SignalSell, SignalExit:
		return true
	default:
		return false
	}
}

// Opens reports whether k may open a position.
func (k SignalKind) Opens() bool {
	return k == SignalBuy || k == SignalSell
}

// Opposite returns the reverse direction for BUY/SELL and NONE otherwise.
func (k SignalKind) Opposite() SignalKind {
	switch k {
	case SignalBuy:
		return SignalSell
	case SignalSell:
		return SignalBuy
	default:
		return SignalNone
	}
}

// NoPrevious marks the first signal of a run.
const NoPrevious = -1

// Reasons attached to signals synthesized by the driver.
const (
	SignalReasonWarmup      = "WARMUP"
	SignalReasonEndOfSeries = "END_OF_SERIES"
)

// SignalRequest is one strategy decision for one bar.
// Pointer fields are nil until set by the strategy or by enrichment.
type SignalRequest struct {
	Kind      SignalKind `json:"kind"`
	Symbol    *string    `json:"symbol,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`

	// Distances in pips; converted to price units with Instrument.PipSize.
	TakeProfit *float64 `json:"take_profit,omitempty"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`

	// Market context, filled from the current bar.
	Open      *float64 `json:"open,omitempty"`
	High      *float64 `json:"high,omitempty"`
	Low       *float64 `json:"low,omitempty"`
	Close     *float64 `json:"close,omitempty"`
	Volume    *float64 `json:"volume,omitempty"`
	SwapLong  *float64 `json:"swap_long,omitempty"`
	SwapShort *float64 `json:"swap_short,omitempty"`

	BarIndex int    `json:"bar_index"`        // 1-based position of the producing bar
	Previous int    `json:"previous"`         // index of the preceding signal in the event log, NoPrevious if none
	Reason   string `json:"reason,omitempty"` // empty for strategy signals
}

// NewSignal creates a strategy signal of the given kind.
func NewSignal(kind SignalKind) SignalRequest {
	return SignalRequest{Kind: kind, Previous: NoPrevious}
}

// WithStopLoss sets the stop-loss distance in pips.
func (s SignalRequest) WithStopLoss(pips float64) SignalRequest {
	s.StopLoss = &pips
	return s
}

// WithTakeProfit sets the take-profit distance in pips.
func (s SignalRequest) WithTakeProfit(pips float64) SignalRequest {
	s.TakeProfit = &pips
	return s
}

// WithTimestamp overrides the bar timestamp.
func (s SignalRequest) WithTimestamp(ts time.Time) SignalRequest {
	s.Timestamp = &ts
	return s
}

// WithSymbol overrides the bar symbol.
func (s SignalRequest) WithSymbol(symbol string) SignalRequest {
	s.Symbol = &symbol
	return s
}

// Enriched reports whether all market-context fields required by the engine are set.
func (s *SignalRequest) Enriched() bool {
	return s.Open != nil && s.High != nil && s.Low != nil && s.Close != nil &&
		s.Timestamp != nil && s.SwapLong != nil && s.SwapShort != nil
}

// Synthetic reports whether the driver created the signal.
func (s *SignalRequest) Synthetic() bool {
	return s.Reason != ""
}

// Prices returns the bar prices, zero for unset fields.
func (s *SignalRequest) Prices() (open, high, low, close float64) {
	return deref(s.Open), deref(s.High), deref(s.Low), deref(s.Close)
}

// Time returns the signal timestamp or the zero time.
func (s *SignalRequest) Time() time.Time {
	if s.Timestamp == nil {
		return time.Time{}
	}
	return *s.Timestamp
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
