package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bar-backtest-lab/internal/backtest"
	"bar-backtest-lab/internal/config"
	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/logging"
	"bar-backtest-lab/internal/marketdata"
	"bar-backtest-lab/internal/reporting"
	"bar-backtest-lab/internal/storage/backends"
	"bar-backtest-lab/internal/strategy"
	"bar-backtest-lab/internal/sweep"
)

// Output formats
const (
	formatText     = "text"
	formatJSON     = "json"
	formatCSV      = "csv"
	formatMarkdown = "markdown"
)

type flags struct {
	configPath string
	csvPath    string
	tsIndex    bool
	tsColumn   string
	from       string
	to         string
	format     string
	out        string
	persist    bool

	sweepFast    string
	sweepSlow    string
	sweepChannel string
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to config YAML (default ./config.yaml if present)")
	flag.StringVar(&f.csvPath, "csv", "", "Read bars from a CSV file instead of the bar store (numeric timestamps of 10+ digits are Unix ms)")
	flag.BoolVar(&f.tsIndex, "timestamp-index", false, "Treat the CSV timestamp column as the frame index")
	flag.StringVar(&f.tsColumn, "timestamp-column", "", "CSV timestamp column name (default timestamp)")
	flag.StringVar(&f.from, "from", "", "Start of the stored bar range (RFC3339 or Unix ms)")
	flag.StringVar(&f.to, "to", "", "End of the stored bar range (RFC3339 or Unix ms)")
	flag.StringVar(&f.format, "format", formatText, "Output format: text, json, csv, markdown")
	flag.StringVar(&f.out, "out", "", "Write output to file instead of stdout")
	flag.BoolVar(&f.persist, "persist", false, "Persist runs to PostgreSQL when storage.postgres_dsn is set")
	flag.StringVar(&f.sweepFast, "sweep-fast", "", "Comma-separated SMA fast periods for a sweep")
	flag.StringVar(&f.sweepSlow, "sweep-slow", "", "Comma-separated SMA slow periods for a sweep")
	flag.StringVar(&f.sweepChannel, "sweep-channel", "", "Comma-separated breakout channel periods for a sweep")

	symbol := flag.String("symbol", "", "Instrument symbol (overrides run.symbol)")
	balance := flag.Float64("balance", 0, "Initial balance (overrides run.initial_balance)")
	priceMode := flag.String("price-mode", "", "Level check mode: OPEN or HIGH_LOW")
	stopLoss := flag.Float64("sl", 0, "Default stop-loss distance in pips")
	takeProfit := flag.Float64("tp", 0, "Default take-profit distance in pips")
	reversal := flag.Bool("close-on-reversal", false, "Close an open position on an opposite signal")
	strategyType := flag.String("strategy", "", "Strategy type: SMA_CROSS, BREAKOUT, SCRIPTED")
	fast := flag.Int("fast", 0, "SMA fast period")
	slow := flag.Int("slow", 0, "SMA slow period")
	channel := flag.Int("channel", 0, "Breakout channel period")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Explicit flags win over config and environment.
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "symbol":
			cfg.Run.Symbol = *symbol
		case "balance":
			cfg.Run.InitialBalance = *balance
		case "price-mode":
			cfg.Run.PriceMode = *priceMode
		case "sl":
			cfg.Run.StopLossPips = *stopLoss
		case "tp":
			cfg.Run.TakeProfitPips = *takeProfit
		case "close-on-reversal":
			cfg.Run.CloseOnReversal = *reversal
		case "strategy":
			cfg.Strategy.StrategyType = strings.ToUpper(*strategyType)
		case "fast":
			cfg.Strategy.FastPeriod = fast
		case "slow":
			cfg.Strategy.SlowPeriod = slow
		case "channel":
			cfg.Strategy.ChannelPeriod = channel
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Must(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, f, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("backtest interrupted")
			os.Exit(130)
		}
		logger.Fatal("backtest failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, f flags, logger *zap.Logger) error {
	instrument, err := cfg.Instrument()
	if err != nil {
		return err
	}

	storageCfg := cfg.Storage
	if !f.persist {
		storageCfg.PostgresDSN = ""
	}
	if f.csvPath != "" {
		storageCfg.ClickhouseDSN = ""
	}
	stores, err := backends.Open(ctx, storageCfg, logger)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer stores.Close()

	driver, err := backtest.NewDriver(backtest.DriverOptions{
		Instrument:     instrument,
		InitialBalance: cfg.Run.InitialBalance,
		Engine:         cfg.EngineOptions(),
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	runner := backtest.NewRunner(backtest.RunnerOptions{
		Bars:   stores.Bars,
		Runs:   stores.Runs,
		Trades: stores.Trades,
		Events: stores.Events,
		Logger: logger,
	})

	frame, err := loadFrame(ctx, f, instrument.Symbol, stores)
	if err != nil {
		return err
	}
	logger.Info("bars loaded", zap.String("symbol", instrument.Symbol), zap.Int("bars", frame.Len()))

	w, closeOut, err := openOutput(f.out)
	if err != nil {
		return err
	}
	defer closeOut()

	configs, err := sweepConfigs(f, cfg)
	if err != nil {
		return err
	}
	if len(configs) > 0 {
		outputs, err := sweep.New(runner, driver, cfg.Run.SweepWorkers, logger).Run(ctx, frame, configs)
		if err != nil {
			return err
		}
		return writeComparison(w, f.format, outputs)
	}

	strat, err := strategy.FromConfig(cfg.Strategy)
	if err != nil {
		return err
	}
	out, err := runner.Run(ctx, driver, frame, strat)
	if err != nil {
		return err
	}
	return writeReport(w, f.format, reporting.Build(time.Now().UTC(), out.Record, out.Result.Trades))
}

// loadFrame reads bars from CSV when given, otherwise from the bar store.
func loadFrame(ctx context.Context, f flags, symbol string, stores *backends.Set) (*marketdata.Frame, error) {
	if f.csvPath != "" {
		file, err := os.Open(f.csvPath)
		if err != nil {
			return nil, fmt.Errorf("open csv: %w", err)
		}
		defer file.Close()
		return marketdata.ReadCSV(file, marketdata.CSVOptions{
			TimestampColumn:  f.tsColumn,
			TimestampAsIndex: f.tsIndex,
		})
	}

	if !stores.PersistentBars {
		return nil, errors.New("no bar source: pass -csv or set storage.clickhouse_dsn")
	}
	from, err := parseBound(f.from)
	if err != nil {
		return nil, err
	}
	to, err := parseBound(f.to)
	if err != nil {
		return nil, err
	}

	var stored []*domain.StoredBar
	if to <= 0 {
		stored, err = stores.Bars.GetBySymbol(ctx, symbol)
	} else {
		stored, err = stores.Bars.GetByTimeRange(ctx, symbol, from, to)
	}
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("%w: %s", backtest.ErrNoBars, symbol)
	}
	return marketdata.FromStoredBars(stored), nil
}

func parseBound(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	ts, err := marketdata.ParseTimestamp(s)
	if err != nil {
		return 0, err
	}
	return ts.UnixMilli(), nil
}

// sweepConfigs builds a grid from the sweep flags. Empty flags mean a single run.
func sweepConfigs(f flags, cfg *config.Config) ([]domain.StrategyConfig, error) {
	fasts, err := parseInts(f.sweepFast)
	if err != nil {
		return nil, fmt.Errorf("sweep-fast: %w", err)
	}
	slows, err := parseInts(f.sweepSlow)
	if err != nil {
		return nil, fmt.Errorf("sweep-slow: %w", err)
	}
	channels, err := parseInts(f.sweepChannel)
	if err != nil {
		return nil, fmt.Errorf("sweep-channel: %w", err)
	}

	sl, tp := cfg.Strategy.StopLossPips, cfg.Strategy.TakeProfitPips
	configs := sweep.SMAGrid(fasts, slows, sl, tp)
	configs = append(configs, sweep.BreakoutGrid(channels, sl, tp)...)
	if (len(fasts) > 0 || len(slows) > 0) && len(configs) == 0 {
		return nil, errors.New("sweep grid is empty: need fast < slow")
	}
	return configs, nil
}

func parseInts(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return file, func() { file.Close() }, nil
}

func writeReport(w io.Writer, format string, r *reporting.Report) error {
	var err error
	switch format {
	case formatText:
		err = writeText(w, r)
	case formatJSON:
		err = writeJSON(w, r)
	case formatCSV:
		_, err = io.WriteString(w, reporting.RenderTradesCSV(r))
	case formatMarkdown:
		_, err = io.WriteString(w, reporting.RenderMarkdown(r))
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return err
}

func writeComparison(w io.Writer, format string, outputs []*backtest.Output) error {
	reports := make([]*reporting.Report, 0, len(outputs))
	for _, out := range outputs {
		reports = append(reports, reporting.Build(time.Now().UTC(), out.Record, out.Result.Trades))
	}
	summaries := make([]*domain.Summary, 0, len(reports))
	for _, r := range reports {
		summaries = append(summaries, r.Summary)
	}
	c := reporting.BuildComparison(time.Now().UTC(), summaries)

	var err error
	switch format {
	case formatText, formatMarkdown:
		_, err = io.WriteString(w, reporting.RenderComparisonMarkdown(c))
	case formatJSON:
		err = writeJSON(w, c)
	case formatCSV:
		_, err = io.WriteString(w, reporting.RenderComparisonCSV(c))
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeText(w io.Writer, r *reporting.Report) error {
	s := r.Summary
	pf := "n/a"
	if s.ProfitFactor != nil {
		pf = strconv.FormatFloat(*s.ProfitFactor, 'f', 4, 64)
	}
	_, err := fmt.Fprintf(w,
		"run:            %s\nstrategy:       %s\nbars:           %d\ntrades:         %d closed (%d wins, %d losses)\nwin rate:       %.2f%%\nnet profit:     %.2f\nprofit factor:  %s\nmax drawdown:   %.2f (%.2f%%)\nbalance:        %.2f -> %.2f\n",
		r.Run.RunID, r.Run.StrategyID, r.Run.BarCount,
		s.ClosedTrades, s.Wins, s.Losses,
		s.WinRate*100, s.NetProfit, pf,
		s.MaxDrawdown, s.MaxDrawdownPct*100,
		s.InitialBalance, s.FinalBalance,
	)
	return err
}
