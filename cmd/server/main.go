// Package main serves stored backtest runs over HTTP.
// It exposes Prometheus metrics, the run API and websocket trade streams,
// and starts new runs against the bar store on POST /runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bar-backtest-lab/internal/api"
	"bar-backtest-lab/internal/backtest"
	"bar-backtest-lab/internal/config"
	"bar-backtest-lab/internal/logging"
	"bar-backtest-lab/internal/storage/backends"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to config YAML (default ./config.yaml if present)")
	addr := flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger := logging.Must(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	interval, err := time.ParseDuration(cfg.Server.StreamInterval)
	if err != nil {
		return fmt.Errorf("server.stream_interval: %w", err)
	}
	instrument, err := cfg.Instrument()
	if err != nil {
		return err
	}

	stores, err := backends.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer stores.Close()
	if !stores.PersistentRuns {
		logger.Warn("storage.postgres_dsn not set, runs are kept in memory only")
	}

	opts := api.Options{
		Runs:           stores.Runs,
		Trades:         stores.Trades,
		Events:         stores.Events,
		StreamInterval: interval,
		Logger:         logger,
	}
	if stores.PersistentBars {
		driver, err := backtest.NewDriver(backtest.DriverOptions{
			Instrument:     instrument,
			InitialBalance: cfg.Run.InitialBalance,
			Engine:         cfg.EngineOptions(),
			Logger:         logger,
		})
		if err != nil {
			return err
		}
		opts.Driver = driver
		opts.Runner = backtest.NewRunner(backtest.RunnerOptions{
			Bars:   stores.Bars,
			Runs:   stores.Runs,
			Trades: stores.Trades,
			Events: stores.Events,
			Logger: logger,
		})
	} else {
		logger.Warn("storage.clickhouse_dsn not set, POST /runs disabled")
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewServer(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("symbol", instrument.Symbol))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
