package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"bar-backtest-lab/internal/config"
	"bar-backtest-lab/internal/logging"
	"bar-backtest-lab/internal/reporting"
	"bar-backtest-lab/internal/storage/backends"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML (default ./config.yaml if present)")
	runID := flag.String("run-id", "", "Run to report on")
	compare := flag.String("compare", "", "Comma-separated run IDs to compare")
	list := flag.Int("list", 0, "List the N most recent runs and exit")
	format := flag.String("format", "markdown", "Output format: markdown, csv, json")
	out := flag.String("out", "", "Write output to file instead of stdout")
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
	if cfg.Storage.PostgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: storage.postgres_dsn (BACKTEST_STORAGE_POSTGRES_DSN) is required")
		os.Exit(1)
	}

	logger := logging.Must(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	stores, err := backends.Open(ctx, config.StorageConfig{PostgresDSN: cfg.Storage.PostgresDSN}, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer stores.Close()

	w := io.Writer(os.Stdout)
	if *out != "" {
		file, err := os.Create(*out)
		if err != nil {
			logger.Fatal("create output", zap.Error(err))
		}
		defer file.Close()
		w = file
	}

	gen := reporting.NewGenerator(stores.Runs, stores.Trades).WithClock(func() time.Time { return time.Now().UTC() })

	switch {
	case *list > 0:
		err = listRuns(ctx, w, stores, *list)
	case *compare != "":
		err = writeComparison(ctx, w, gen, splitIDs(*compare), *format)
	case *runID != "":
		err = writeReport(ctx, w, gen, *runID, *format)
	default:
		err = errors.New("one of -run-id, -compare or -list is required")
	}
	if err != nil {
		logger.Fatal("report failed", zap.Error(err))
	}
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func writeReport(ctx context.Context, w io.Writer, gen *reporting.Generator, runID, format string) error {
	r, err := gen.Generate(ctx, runID)
	if err != nil {
		return err
	}
	switch format {
	case "markdown", "md":
		_, err = io.WriteString(w, reporting.RenderMarkdown(r))
	case "csv":
		_, err = io.WriteString(w, reporting.RenderTradesCSV(r))
	case "json":
		err = writeJSON(w, r)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	return err
}

func writeComparison(ctx context.Context, w io.Writer, gen *reporting.Generator, ids []string, format string) error {
	c, err := gen.GenerateComparison(ctx, ids)
	if err != nil {
		return err
	}
	switch format {
	case "markdown", "md":
		_, err = io.WriteString(w, reporting.RenderComparisonMarkdown(c))
	case "csv":
		_, err = io.WriteString(w, reporting.RenderComparisonCSV(c))
	case "json":
		err = writeJSON(w, c)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	return err
}

func listRuns(ctx context.Context, w io.Writer, stores *backends.Set, limit int) error {
	runs, err := stores.Runs.List(ctx, limit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n",
			r.RunID, r.StartedAt.Format(time.RFC3339), r.Symbol, r.StrategyID, r.FinalBalance-r.InitialBalance); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
