package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	if r.Run != nil {
		sb.WriteString("## Run\n\n")
		sb.WriteString("| Field | Value |\n")
		sb.WriteString("|-------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", r.Run.RunID))
		sb.WriteString(fmt.Sprintf("| Fingerprint | %s |\n", r.Run.Fingerprint))
		sb.WriteString(fmt.Sprintf("| Strategy | %s |\n", r.Run.StrategyID))
		sb.WriteString(fmt.Sprintf("| Symbol | %s |\n", r.Run.Symbol))
		sb.WriteString(fmt.Sprintf("| Price Mode | %s |\n", r.Run.PriceMode))
		sb.WriteString(fmt.Sprintf("| Bars | %d |\n", r.Run.BarCount))
		sb.WriteString(fmt.Sprintf("| Signals | %d |\n", r.Run.EventCount))
		if r.Run.FirstBarAt != nil && r.Run.LastBarAt != nil {
			sb.WriteString(fmt.Sprintf("| Period | %s to %s |\n",
				r.Run.FirstBarAt.Format(time.RFC3339), r.Run.LastBarAt.Format(time.RFC3339)))
		}
		sb.WriteString("\n")
	}

	s := r.Summary
	sb.WriteString("## Summary\n\n")
	if s != nil {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Initial Balance | %s |\n", money(s.InitialBalance)))
		sb.WriteString(fmt.Sprintf("| Final Balance | %s |\n", money(s.FinalBalance)))
		sb.WriteString(fmt.Sprintf("| Net Profit | %s |\n", money(s.NetProfit)))
		sb.WriteString(fmt.Sprintf("| Closed Trades | %d |\n", s.ClosedTrades))
		sb.WriteString(fmt.Sprintf("| Wins / Losses | %d / %d |\n", s.Wins, s.Losses))
		sb.WriteString(fmt.Sprintf("| Win Rate | %s |\n", ratio(s.WinRate)))
		sb.WriteString(fmt.Sprintf("| Gross Profit | %s |\n", money(s.GrossProfit)))
		sb.WriteString(fmt.Sprintf("| Gross Loss | %s |\n", money(s.GrossLoss)))
		sb.WriteString(fmt.Sprintf("| Profit Factor | %s |\n", optionalRatio(s.ProfitFactor)))
		sb.WriteString(fmt.Sprintf("| Total Commission | %s |\n", money(s.TotalCommission)))
		sb.WriteString(fmt.Sprintf("| Max Drawdown | %s (%s) |\n", money(s.MaxDrawdown), ratio(s.MaxDrawdownPct)))
		sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", s.MaxConsecutiveLosses))
		sb.WriteString("\n")

		if len(s.ExitReasons) > 0 {
			reasons := make([]string, 0, len(s.ExitReasons))
			for reason := range s.ExitReasons {
				reasons = append(reasons, reason)
			}
			sort.Strings(reasons)

			sb.WriteString("### Exit Reasons\n\n")
			sb.WriteString("| Reason | Count |\n")
			sb.WriteString("|--------|-------|\n")
			for _, reason := range reasons {
				sb.WriteString(fmt.Sprintf("| %s | %d |\n", reason, s.ExitReasons[reason]))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No summary available.\n\n")
	}

	sb.WriteString("## Trades\n\n")
	if len(r.Trades) > 0 {
		sb.WriteString("| # | Time | Bar | Action | Size | Fill | Profit | Balance | Reason |\n")
		sb.WriteString("|---|------|-----|--------|------|------|--------|---------|--------|\n")
		for _, t := range r.Trades {
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | %s | %g | %s | %s | %s | %s |\n",
				t.Seq, t.Timestamp.UTC().Format(time.RFC3339), t.BarIndex, t.Action,
				t.SignedSize, price(t.FillPrice), money(t.RealizedProfit), money(t.BalanceAfter), t.ExitReason))
		}
	} else {
		sb.WriteString("No trades.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderComparisonMarkdown renders a run comparison as Markdown string.
func RenderComparisonMarkdown(c *Comparison) string {
	var sb strings.Builder

	sb.WriteString("# Run Comparison\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", c.GeneratedAt.Format(time.RFC3339)))

	if len(c.Rows) == 0 {
		sb.WriteString("No runs to compare.\n")
		return sb.String()
	}

	sb.WriteString("| Run | Strategy | Trades | WinRate | Net | PF | MaxDD |\n")
	sb.WriteString("|-----|----------|--------|---------|-----|----|-------|\n")
	for _, row := range c.Rows {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s | %s | %s |\n",
			row.RunID, row.StrategyID, row.ClosedTrades, ratio(row.WinRate),
			money(row.NetProfit), optionalRatio(row.ProfitFactor), money(row.MaxDrawdown)))
	}
	sb.WriteString("\n")

	return sb.String()
}
