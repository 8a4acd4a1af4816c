package strategy

import (
	"fmt"
	"strings"

	"bar-backtest-lab/internal/domain"
)

// ScriptedStrategy replays fixed signals at given bar positions.
// Several entries for the same position are emitted in script order.
type ScriptedStrategy struct {
	byBar  map[int][]domain.ScriptedSignal
	script []domain.ScriptedSignal
}

// NewScriptedStrategy creates a strategy from a script.
func NewScriptedStrategy(script []domain.ScriptedSignal) *ScriptedStrategy {
	byBar := make(map[int][]domain.ScriptedSignal)
	for _, s := range script {
		byBar[s.Bar] = append(byBar[s.Bar], s)
	}
	return &ScriptedStrategy{byBar: byBar, script: append([]domain.ScriptedSignal(nil), script...)}
}

// ID returns strategy identifier.
// Format: SCRIPTED_<signal count>
func (s *ScriptedStrategy) ID() string {
	return fmt.Sprintf("%s_%d", domain.StrategyTypeScripted, len(s.script))
}

// Settings implements Configured. Every entry is listed in script order.
func (s *ScriptedStrategy) Settings() string {
	entries := make([]string, len(s.script))
	for i, e := range s.script {
		entries[i] = fmt.Sprintf("%d:%s:sl=%s:tp=%s", e.Bar, e.Kind, pips(e.StopLossPips), pips(e.TakeProfitPips))
	}
	return s.ID() + "|" + strings.Join(entries, ",")
}

// NextCandle emits the scripted signals for the current position.
func (s *ScriptedStrategy) NextCandle(_ domain.Bar, history []domain.Bar) Output {
	entries := s.byBar[len(history)-1]
	switch len(entries) {
	case 0:
		return NoSignal{}
	case 1:
		return OneSignal{Signal: scriptedSignal(entries[0])}
	}

	out := make(ManySignals, 0, len(entries))
	for _, e := range entries {
		out = append(out, scriptedSignal(e))
	}
	return out
}

func scriptedSignal(e domain.ScriptedSignal) domain.SignalRequest {
	return opening(e.Kind, e.StopLossPips, e.TakeProfitPips)
}

// Ensure ScriptedStrategy implements Strategy
var _ Strategy = (*ScriptedStrategy)(nil)
var _ Configured = (*ScriptedStrategy)(nil)
