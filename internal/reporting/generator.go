// Package reporting renders backtest runs as Markdown and CSV.
package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/metrics"
	"bar-backtest-lab/internal/storage"
)

// Generator produces reports from stored runs.
type Generator struct {
	runStore   storage.RunStore
	tradeStore storage.TradeStore
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.RunStore, tradeStore storage.TradeStore) *Generator {
	return &Generator{
		runStore:   runStore,
		tradeStore: tradeStore,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report of a stored run.
// Returns storage.ErrNotFound if the run does not exist.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	stored, err := g.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades for run %s: %w", runID, err)
	}

	trades := make([]domain.Trade, len(stored))
	for i, t := range stored {
		trades[i] = *t
	}

	return Build(g.now(), run, trades), nil
}

// GenerateComparison builds a comparison of stored runs.
func (g *Generator) GenerateComparison(ctx context.Context, runIDs []string) (*Comparison, error) {
	summaries, err := metrics.NewAggregator(g.runStore, g.tradeStore).Compare(ctx, runIDs)
	if err != nil {
		return nil, err
	}
	return BuildComparison(g.now(), summaries), nil
}

// Build assembles a report from a run record and its trade log.
func Build(generatedAt time.Time, run *domain.RunRecord, trades []domain.Trade) *Report {
	summary := metrics.Compute(run.InitialBalance, trades)
	summary.RunID = run.RunID
	summary.StrategyID = run.StrategyID

	return &Report{
		GeneratedAt: generatedAt,
		Run:         run,
		Summary:     summary,
		Trades:      trades,
	}
}

// BuildComparison ranks summaries by net profit DESC, run_id ASC.
func BuildComparison(generatedAt time.Time, summaries []*domain.Summary) *Comparison {
	rows := make([]ComparisonRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, ComparisonRow{
			RunID:        s.RunID,
			StrategyID:   s.StrategyID,
			ClosedTrades: s.ClosedTrades,
			WinRate:      s.WinRate,
			NetProfit:    s.NetProfit,
			ProfitFactor: s.ProfitFactor,
			MaxDrawdown:  s.MaxDrawdown,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].NetProfit != rows[j].NetProfit {
			return rows[i].NetProfit > rows[j].NetProfit
		}
		return rows[i].RunID < rows[j].RunID
	})

	return &Comparison{GeneratedAt: generatedAt, Rows: rows}
}
