// Package sweep runs several strategy configurations over one bar series concurrently.
package sweep

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bar-backtest-lab/internal/backtest"
	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/marketdata"
	"bar-backtest-lab/internal/strategy"
)

// DefaultWorkers bounds concurrent runs when no limit is given.
const DefaultWorkers = 4

// Sweep executes independent runs sharing a read-only frame and instrument.
// Each run gets its own account state inside the driver.
type Sweep struct {
	runner  *backtest.Runner
	driver  *backtest.Driver
	workers int
	logger  *zap.Logger
}

// New creates a sweep. workers <= 0 uses DefaultWorkers.
func New(runner *backtest.Runner, driver *backtest.Driver, workers int, logger *zap.Logger) *Sweep {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweep{runner: runner, driver: driver, workers: workers, logger: logger}
}

// Run executes every configuration and returns outputs in input order.
// All configurations are validated before the first run starts; the first
// failing run cancels the rest.
func (s *Sweep) Run(ctx context.Context, frame *marketdata.Frame, configs []domain.StrategyConfig) ([]*backtest.Output, error) {
	strategies := make([]strategy.Strategy, len(configs))
	for i, cfg := range configs {
		strat, err := strategy.FromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("sweep config %d: %w", i, err)
		}
		strategies[i] = strat
	}

	outputs := make([]*backtest.Output, len(configs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, strat := range strategies {
		g.Go(func() error {
			out, err := s.runner.Run(gctx, s.driver, frame, strat)
			if err != nil {
				return fmt.Errorf("sweep %s: %w", strat.ID(), err)
			}
			outputs[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("sweep finished", zap.Int("runs", len(outputs)), zap.Int("workers", s.workers))
	return outputs, nil
}

// SMAGrid returns SMA_CROSS configurations for every fast < slow pair.
func SMAGrid(fasts, slows []int, stopLossPips, takeProfitPips *float64) []domain.StrategyConfig {
	var out []domain.StrategyConfig
	for _, f := range fasts {
		for _, sl := range slows {
			if f <= 0 || f >= sl {
				continue
			}
			fast, slow := f, sl
			out = append(out, domain.StrategyConfig{
				StrategyType:   domain.StrategyTypeSMACross,
				FastPeriod:     &fast,
				SlowPeriod:     &slow,
				StopLossPips:   stopLossPips,
				TakeProfitPips: takeProfitPips,
			})
		}
	}
	return out
}

// BreakoutGrid returns BREAKOUT configurations for each channel period.
func BreakoutGrid(periods []int, stopLossPips, takeProfitPips *float64) []domain.StrategyConfig {
	out := make([]domain.StrategyConfig, 0, len(periods))
	for _, p := range periods {
		period := p
		out = append(out, domain.StrategyConfig{
			StrategyType:   domain.StrategyTypeBreakout,
			ChannelPeriod:  &period,
			StopLossPips:   stopLossPips,
			TakeProfitPips: takeProfitPips,
		})
	}
	return out
}
