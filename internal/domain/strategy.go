package domain

// StrategyConfig represents strategy configuration parameters.
type StrategyConfig struct {
	StrategyType string `yaml:"type" mapstructure:"type" json:"type"` // "SMA_CROSS" | "BREAKOUT" | "SCRIPTED"

	// SMA_CROSS parameters
	FastPeriod *int `yaml:"fast_period" mapstructure:"fast_period" json:"fast_period,omitempty"`
	SlowPeriod *int `yaml:"slow_period" mapstructure:"slow_period" json:"slow_period,omitempty"`

	// BREAKOUT parameters
	ChannelPeriod *int `yaml:"channel_period" mapstructure:"channel_period" json:"channel_period,omitempty"`

	// SCRIPTED parameters
	Script []ScriptedSignal `yaml:"script" mapstructure:"script" json:"script,omitempty"`

	// Common parameters, distances in pips attached to opening signals
	StopLossPips   *float64 `yaml:"stop_loss_pips" mapstructure:"stop_loss_pips" json:"stop_loss_pips,omitempty"`
	TakeProfitPips *float64 `yaml:"take_profit_pips" mapstructure:"take_profit_pips" json:"take_profit_pips,omitempty"`
}

// ScriptedSignal is a fixed signal emitted at a 0-based bar position.
type ScriptedSignal struct {
	Bar            int        `yaml:"bar" mapstructure:"bar" json:"bar"`
	Kind           SignalKind `yaml:"kind" mapstructure:"kind" json:"kind"`
	StopLossPips   *float64   `yaml:"stop_loss_pips" mapstructure:"stop_loss_pips" json:"stop_loss_pips,omitempty"`
	TakeProfitPips *float64   `yaml:"take_profit_pips" mapstructure:"take_profit_pips" json:"take_profit_pips,omitempty"`
}

// Strategy type constants
const (
	StrategyTypeSMACross = "SMA_CROSS"
	StrategyTypeBreakout = "BREAKOUT"
	StrategyTypeScripted = "SCRIPTED"
)
