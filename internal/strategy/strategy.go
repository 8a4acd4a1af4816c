package strategy

import (
	"fmt"

	"bar-backtest-lab/internal/domain"
)

// Strategy produces signals bar by bar.
type Strategy interface {
	// NextCandle is called once per bar with the current bar and all bars up
	// to and including it. Future bars are never visible.
	NextCandle(current domain.Bar, history []domain.Bar) Output

	// ID returns strategy identifier (includes parameters).
	ID() string
}

// Configured is implemented by strategies whose signals depend on more than ID shows.
type Configured interface {
	// Settings returns a stable text form of every parameter that shapes the signals.
	Settings() string
}

// Settings returns s.Settings() when available, otherwise s.ID().
func Settings(s Strategy) string {
	if c, ok := s.(Configured); ok {
		return c.Settings()
	}
	return s.ID()
}

// pips formats an optional level distance, "-" when unset.
func pips(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

// Output is the result of one NextCandle call.
// It is one of NoSignal, OneSignal or ManySignals.
type Output interface {
	signals() []domain.SignalRequest
}

// NoSignal means the strategy has nothing to say for the bar.
type NoSignal struct{}

func (NoSignal) signals() []domain.SignalRequest { return nil }

// OneSignal carries a single signal.
type OneSignal struct {
	Signal domain.SignalRequest
}

func (o OneSignal) signals() []domain.SignalRequest {
	return []domain.SignalRequest{o.Signal}
}

// ManySignals carries signals processed in order.
type ManySignals []domain.SignalRequest

func (m ManySignals) signals() []domain.SignalRequest { return m }

// Normalize converts an Output into the ordered signals for a bar.
// A nil or empty output becomes a single NONE signal so the engine still
// evaluates open positions on every bar.
func Normalize(out Output) []domain.SignalRequest {
	var sigs []domain.SignalRequest
	if out != nil {
		sigs = out.signals()
	}
	if len(sigs) == 0 {
		return []domain.SignalRequest{domain.NewSignal(domain.SignalNone)}
	}

	normalized := make([]domain.SignalRequest, len(sigs))
	copy(normalized, sigs)
	return normalized
}
