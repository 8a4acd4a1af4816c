package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderTradesCSV renders a trade log as CSV string.
func RenderTradesCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("seq,trade_id,timestamp,bar_index,action,kind,size,fill_price,entry_price,")
	sb.WriteString("stop_loss,take_profit,realized_profit,commission,balance_after,exit_reason,swap_accrued\n")

	for _, t := range r.Trades {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%d,%s,%s,%g,%s,%s,%s,%s,%s,%s,%s,%s,%s\n",
			t.Seq,
			t.ID,
			t.Timestamp.UTC().Format(time.RFC3339),
			t.BarIndex,
			t.Action,
			t.Kind,
			t.SignedSize,
			price(t.FillPrice),
			price(t.EntryPrice),
			price(t.StopLoss),
			price(t.TakeProfit),
			money(t.RealizedProfit),
			money(t.Commission),
			money(t.BalanceAfter),
			t.ExitReason,
			money(t.SwapAccrued),
		))
	}

	return sb.String()
}

// RenderComparisonCSV renders a run comparison as CSV string.
func RenderComparisonCSV(c *Comparison) string {
	var sb strings.Builder

	sb.WriteString("run_id,strategy_id,closed_trades,win_rate,net_profit,profit_factor,max_drawdown\n")

	for _, row := range c.Rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%s,%s,%s\n",
			row.RunID,
			row.StrategyID,
			row.ClosedTrades,
			ratio(row.WinRate),
			money(row.NetProfit),
			optionalRatio(row.ProfitFactor),
			money(row.MaxDrawdown),
		))
	}

	return sb.String()
}
