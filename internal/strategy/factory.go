package strategy

import (
	"errors"

	"bar-backtest-lab/internal/domain"
)

// Factory errors
var (
	ErrUnknownStrategyType  = errors.New("unknown strategy type")
	ErrMissingFastPeriod    = errors.New("SMA_CROSS requires FastPeriod")
	ErrMissingSlowPeriod    = errors.New("SMA_CROSS requires SlowPeriod")
	ErrInvalidPeriods       = errors.New("SMA_CROSS requires 0 < FastPeriod < SlowPeriod")
	ErrMissingChannelPeriod = errors.New("BREAKOUT requires ChannelPeriod > 0")
	ErrEmptyScript          = errors.New("SCRIPTED requires at least one signal")
	ErrInvalidScript        = errors.New("SCRIPTED signal has negative bar or unknown kind")
)

// FromConfig creates a Strategy from domain.StrategyConfig.
// Validates required parameters per strategy type.
func FromConfig(cfg domain.StrategyConfig) (Strategy, error) {
	switch cfg.StrategyType {
	case domain.StrategyTypeSMACross:
		return fromSMACrossConfig(cfg)
	case domain.StrategyTypeBreakout:
		return fromBreakoutConfig(cfg)
	case domain.StrategyTypeScripted:
		return fromScriptedConfig(cfg)
	default:
		return nil, ErrUnknownStrategyType
	}
}

// fromSMACrossConfig creates SMACrossStrategy from config.
func fromSMACrossConfig(cfg domain.StrategyConfig) (*SMACrossStrategy, error) {
	if cfg.FastPeriod == nil {
		return nil, ErrMissingFastPeriod
	}
	if cfg.SlowPeriod == nil {
		return nil, ErrMissingSlowPeriod
	}
	if *cfg.FastPeriod <= 0 || *cfg.FastPeriod >= *cfg.SlowPeriod {
		return nil, ErrInvalidPeriods
	}

	return NewSMACrossStrategy(*cfg.FastPeriod, *cfg.SlowPeriod, cfg.StopLossPips, cfg.TakeProfitPips), nil
}

// fromBreakoutConfig creates BreakoutStrategy from config.
func fromBreakoutConfig(cfg domain.StrategyConfig) (*BreakoutStrategy, error) {
	if cfg.ChannelPeriod == nil || *cfg.ChannelPeriod <= 0 {
		return nil, ErrMissingChannelPeriod
	}

	return NewBreakoutStrategy(*cfg.ChannelPeriod, cfg.StopLossPips, cfg.TakeProfitPips), nil
}

// fromScriptedConfig creates ScriptedStrategy from config.
func fromScriptedConfig(cfg domain.StrategyConfig) (*ScriptedStrategy, error) {
	if len(cfg.Script) == 0 {
		return nil, ErrEmptyScript
	}
	for _, s := range cfg.Script {
		if s.Bar < 0 || !s.Kind.Valid() {
			return nil, ErrInvalidScript
		}
	}

	return NewScriptedStrategy(cfg.Script), nil
}
