package strategy

import (
	"errors"
	"testing"

	"bar-backtest-lab/internal/domain"
)

func intPtr(v int) *int { return &v }

func TestFromConfig_SMACross(t *testing.T) {
	sl := 20.0
	cfg := domain.StrategyConfig{
		StrategyType: domain.StrategyTypeSMACross,
		FastPeriod:   intPtr(5),
		SlowPeriod:   intPtr(20),
		StopLossPips: &sl,
	}

	s, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}

	sc, ok := s.(*SMACrossStrategy)
	if !ok {
		t.Fatalf("expected *SMACrossStrategy, got %T", s)
	}
	if sc.FastPeriod != 5 || sc.SlowPeriod != 20 {
		t.Errorf("expected periods 5/20, got %d/%d", sc.FastPeriod, sc.SlowPeriod)
	}
	if sc.StopLossPips == nil || *sc.StopLossPips != 20 {
		t.Errorf("expected stop loss 20, got %v", sc.StopLossPips)
	}
}

func TestFromConfig_Breakout(t *testing.T) {
	s, err := FromConfig(domain.StrategyConfig{
		StrategyType:  domain.StrategyTypeBreakout,
		ChannelPeriod: intPtr(12),
	})
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	if b, ok := s.(*BreakoutStrategy); !ok || b.ChannelPeriod != 12 {
		t.Errorf("expected *BreakoutStrategy with period 12, got %#v", s)
	}
}

func TestFromConfig_Scripted(t *testing.T) {
	s, err := FromConfig(domain.StrategyConfig{
		StrategyType: domain.StrategyTypeScripted,
		Script:       []domain.ScriptedSignal{{Bar: 2, Kind: domain.SignalSell}},
	})
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	if _, ok := s.(*ScriptedStrategy); !ok {
		t.Errorf("expected *ScriptedStrategy, got %T", s)
	}
}

func TestFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  domain.StrategyConfig
		want error
	}{
		{"unknown type", domain.StrategyConfig{StrategyType: "MOMENTUM"}, ErrUnknownStrategyType},
		{"missing fast", domain.StrategyConfig{StrategyType: domain.StrategyTypeSMACross, SlowPeriod: intPtr(10)}, ErrMissingFastPeriod},
		{"missing slow", domain.StrategyConfig{StrategyType: domain.StrategyTypeSMACross, FastPeriod: intPtr(3)}, ErrMissingSlowPeriod},
		{"fast not below slow", domain.StrategyConfig{StrategyType: domain.StrategyTypeSMACross, FastPeriod: intPtr(10), SlowPeriod: intPtr(10)}, ErrInvalidPeriods},
		{"zero fast", domain.StrategyConfig{StrategyType: domain.StrategyTypeSMACross, FastPeriod: intPtr(0), SlowPeriod: intPtr(10)}, ErrInvalidPeriods},
		{"missing channel", domain.StrategyConfig{StrategyType: domain.StrategyTypeBreakout}, ErrMissingChannelPeriod},
		{"zero channel", domain.StrategyConfig{StrategyType: domain.StrategyTypeBreakout, ChannelPeriod: intPtr(0)}, ErrMissingChannelPeriod},
		{"empty script", domain.StrategyConfig{StrategyType: domain.StrategyTypeScripted}, ErrEmptyScript},
		{"negative bar", domain.StrategyConfig{StrategyType: domain.StrategyTypeScripted, Script: []domain.ScriptedSignal{{Bar: -1, Kind: domain.SignalBuy}}}, ErrInvalidScript},
		{"bad kind", domain.StrategyConfig{StrategyType: domain.StrategyTypeScripted, Script: []domain.ScriptedSignal{{Bar: 1, Kind: "HOLD"}}}, ErrInvalidScript},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromConfig(tt.cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
