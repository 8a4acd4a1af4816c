package domain

// AccountState is the per-run balance and position model.
// A zero Size always pairs with Kind == SignalNone.
type AccountState struct {
	Balance float64 // realized cash
	Equity  float64 // balance adjusted for unrealized P&L; marked only at close

	Kind          SignalKind // direction of the open position, SignalNone when flat
	Size          float64    // signed: positive long, negative short
	AdjustedPrice float64    // entry price including spread
	EntryPrice    float64

	StopLoss          float64 // absolute level, meaningful only when StopLossEnabled
	TakeProfit        float64 // absolute level, meaningful only when TakeProfitEnabled
	StopLossEnabled   bool
	TakeProfitEnabled bool

	EntryBar    int     // 1-based bar index of the open, 0 when flat
	LastSwapBar int     // last bar financing was accrued for
	SwapAccrued float64 // informational; never applied to balance
}

// NewAccountState creates a flat account with the initial balance.
func NewAccountState(balance float64) AccountState {
	return AccountState{
		Balance: balance,
		Equity:  balance,
		Kind:    SignalNone,
	}
}

// Flat reports whether no position is open.
func (a AccountState) Flat() bool {
	return a.Kind == SignalNone
}

// Consistent reports whether the size/kind invariant holds.
func (a AccountState) Consistent() bool {
	switch a.Kind {
	case SignalNone:
		return a.Size == 0
	case SignalBuy:
		return a.Size > 0
	case SignalSell:
		return a.Size < 0
	default:
		return false
	}
}
