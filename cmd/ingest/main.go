package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"bar-backtest-lab/internal/config"
	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/logging"
	"bar-backtest-lab/internal/marketdata"
	"bar-backtest-lab/internal/storage"
	"bar-backtest-lab/internal/storage/backends"
)

// defaultBatchSize bounds one InsertBulk call.
const defaultBatchSize = 5000

func main() {
	configPath := flag.String("config", "", "Path to config YAML (default ./config.yaml if present)")
	csvPath := flag.String("csv", "", "CSV file of bars to ingest (required)")
	symbol := flag.String("symbol", "", "Symbol to store the bars under (default run.symbol)")
	tsColumn := flag.String("timestamp-column", "", "CSV timestamp column name (default timestamp)")
	batchSize := flag.Int("batch-size", defaultBatchSize, "Bars per insert batch")
	dryRun := flag.Bool("dry-run", false, "Parse and validate the CSV without writing")
	flag.Parse()

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -csv is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *symbol != "" {
		cfg.Run.Symbol = strings.ToUpper(*symbol)
	}

	logger := logging.Must(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	n, err := ingest(ctx, cfg, *csvPath, *tsColumn, *batchSize, *dryRun, logger)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("ingest interrupted", zap.Int("stored", n))
			os.Exit(130)
		}
		logger.Fatal("ingest failed", zap.Error(err), zap.Int("stored", n))
	}
	logger.Info("ingest complete", zap.String("symbol", cfg.Run.Symbol), zap.Int("stored", n))
}

// ingest reads the CSV and writes its bars in batches. Returns the number stored.
func ingest(ctx context.Context, cfg *config.Config, path, tsColumn string, batchSize int, dryRun bool, logger *zap.Logger) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	frame, err := marketdata.ReadCSV(file, marketdata.CSVOptions{TimestampColumn: tsColumn})
	if err != nil {
		return 0, err
	}
	if _, err := marketdata.NegotiateSchema(frame); err != nil {
		return 0, err
	}
	first, _ := frame.TimeRange()
	if first == nil {
		return 0, errors.New("bars need timestamps to be stored")
	}

	bars := marketdata.ToStoredBars(frame, cfg.Run.Symbol)
	logger.Info("csv parsed", zap.String("file", path), zap.Int("bars", len(bars)))
	if dryRun {
		return 0, nil
	}

	if cfg.Storage.ClickhouseDSN == "" {
		return 0, errors.New("storage.clickhouse_dsn is required to store bars")
	}
	stores, err := backends.Open(ctx, config.StorageConfig{ClickhouseDSN: cfg.Storage.ClickhouseDSN}, logger)
	if err != nil {
		return 0, err
	}
	defer stores.Close()

	return storeBatches(ctx, stores.Bars, bars, batchSize, logger)
}

func storeBatches(ctx context.Context, store storage.BarStore, bars []*domain.StoredBar, batchSize int, logger *zap.Logger) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	stored := 0
	for start := 0; start < len(bars); start += batchSize {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		end := min(start+batchSize, len(bars))
		if err := store.InsertBulk(ctx, bars[start:end]); err != nil {
			return stored, fmt.Errorf("insert bars %d-%d: %w", start, end, err)
		}
		stored = end
		logger.Debug("batch stored", zap.Int("from", start), zap.Int("to", end))
	}
	return stored, nil
}
