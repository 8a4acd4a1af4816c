// Package config loads command settings from YAML files, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/engine"
)

// EnvPrefix is prepended to environment overrides, e.g. BACKTEST_LOG_LEVEL.
const EnvPrefix = "BACKTEST"

// Config errors
var (
	ErrInvalidBalance   = errors.New("run.initial_balance must be positive")
	ErrInvalidPriceMode = errors.New("run.price_mode must be OPEN or HIGH_LOW")
	ErrInvalidDistance  = errors.New("stop-loss and take-profit distances must not be negative")
)

// Config is the full command configuration.
type Config struct {
	Log      LogConfig             `mapstructure:"log"`
	Storage  StorageConfig         `mapstructure:"storage"`
	Run      RunConfig             `mapstructure:"run"`
	Strategy domain.StrategyConfig `mapstructure:"strategy"`
	Server   ServerConfig          `mapstructure:"server"`
}

// LogConfig selects logger level and encoding.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig holds database connection strings. Empty disables the store.
type StorageConfig struct {
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
}

// RunConfig holds backtest defaults.
type RunConfig struct {
	Symbol          string  `mapstructure:"symbol"`
	InstrumentsFile string  `mapstructure:"instruments_file"`
	InitialBalance  float64 `mapstructure:"initial_balance"`

	PriceMode       string  `mapstructure:"price_mode"`
	StopLossPips    float64 `mapstructure:"stop_loss_pips"`
	TakeProfitPips  float64 `mapstructure:"take_profit_pips"`
	CloseOnReversal bool    `mapstructure:"close_on_reversal"`

	SweepWorkers int `mapstructure:"sweep_workers"`
}

// ServerConfig configures cmd/server.
type ServerConfig struct {
	Addr           string `mapstructure:"addr"`
	StreamInterval string `mapstructure:"stream_interval"`
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")

	v.SetDefault("run.symbol", "EURUSD")
	v.SetDefault("run.instruments_file", "")
	v.SetDefault("run.initial_balance", 10000.0)
	v.SetDefault("run.price_mode", string(engine.PriceModeOpen))
	v.SetDefault("run.stop_loss_pips", 0.0)
	v.SetDefault("run.take_profit_pips", 0.0)
	v.SetDefault("run.close_on_reversal", false)
	v.SetDefault("run.sweep_workers", 4)

	v.SetDefault("strategy.type", domain.StrategyTypeSMACross)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.stream_interval", "0s")
}

// Load reads configuration from path (optional) and BACKTEST_* environment variables.
// An empty path looks for config.yaml in the working directory and tolerates its absence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks run settings.
func (c *Config) Validate() error {
	if c.Run.InitialBalance <= 0 {
		return ErrInvalidBalance
	}
	switch engine.PriceMode(strings.ToUpper(c.Run.PriceMode)) {
	case engine.PriceModeOpen, engine.PriceModeHighLow:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPriceMode, c.Run.PriceMode)
	}
	if c.Run.StopLossPips < 0 || c.Run.TakeProfitPips < 0 {
		return ErrInvalidDistance
	}
	return nil
}

// EngineOptions converts run settings into engine options.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		StopLossPips:    c.Run.StopLossPips,
		TakeProfitPips:  c.Run.TakeProfitPips,
		PriceMode:       engine.PriceMode(strings.ToUpper(c.Run.PriceMode)),
		CloseOnReversal: c.Run.CloseOnReversal,
	}
}

// LoadDotEnv loads .env files into the process environment, best-effort.
// Missing files are ignored; existing variables are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}
