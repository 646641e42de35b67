package cli

import (
	"fmt"
	"strconv"
	"strings"

	"pivot-trader/internal/models"
	"pivot-trader/internal/trading"
	"pivot-trader/pkg/utils"
)

const dateLayout = "2006-01-02"

// planLine formats a plan on one line.
func planLine(o *Output, p models.TradePlan) string {
	if !p.IsActionable() {
		return o.Action(models.ActionWait)
	}
	return fmt.Sprintf("%s  entry %s  tp1 %s  tp2 %s  sl %s  r:r %s",
		o.Action(p.Action),
		utils.FormatPrice(p.Entry),
		utils.FormatPrice(p.TP1),
		utils.FormatPrice(p.TP2),
		utils.FormatPrice(p.SL),
		rewardRisk(p))
}

// rewardRisk returns the first-target reward per unit of risk.
func rewardRisk(p models.TradePlan) string {
	risk := p.Entry - p.SL
	reward := p.TP1 - p.Entry
	if p.Action == models.ActionShort {
		risk, reward = -risk, -reward
	}
	if risk <= 0 {
		return "-"
	}
	return strconv.FormatFloat(reward/risk, 'f', 2, 64)
}

// displayDecision renders a decision for humans.
func displayDecision(o *Output, symbol string, bars int, d *models.Decision) {
	title := fmt.Sprintf("%s  %s  (%s pivots, %d bars)", symbol, d.Horizon, periodName(d.Period), bars)
	o.Bold("%s", strings.TrimSpace(title))
	o.Dim("as of %s", d.AsOf.Format(dateLayout))
	o.Println()

	o.Printf("  Price:    %s\n", utils.FormatPrice(d.Price))
	o.Printf("  Regime:   %s\n", o.Regime(d.Context.Regime))
	o.Printf("  ATR:      %s    RSI: %.1f\n", utils.FormatPrice(d.Features.ATR), d.Features.RSI)
	if d.Context.Overheat {
		o.Printf("  Overheat: %s  (HA streak %d, hist streak %d, pullback %s-%s)\n",
			o.Yellow("yes"), d.Context.HAStreak, d.Context.HistStreak,
			utils.FormatPrice(d.Context.PullbackZone[0]), utils.FormatPrice(d.Context.PullbackZone[1]))
	} else {
		o.Printf("  Overheat: no\n")
	}
	o.Println()

	displayLevels(o, d.Pivots, d.Price)
	o.Println()

	o.Printf("  Base: %s\n", planLine(o, d.Base))
	o.Printf("  Alt:  %s\n", planLine(o, d.Alt))
}

// displayLevels prints pivot levels top-down with a price marker.
func displayLevels(o *Output, p models.PivotLevels, price float64) {
	marked := false
	for _, name := range []string{"R3", "R2", "R1", "P", "S1", "S2", "S3"} {
		v := p.Level(name)
		if !marked && price >= v {
			o.Printf("  %s\n", o.Cyan(fmt.Sprintf("-> %-3s %s", "px", utils.FormatPrice(price))))
			marked = true
		}
		o.Printf("     %-3s %s\n", name, utils.FormatPrice(v))
	}
	if !marked {
		o.Printf("  %s\n", o.Cyan(fmt.Sprintf("-> %-3s %s", "px", utils.FormatPrice(price))))
	}
}

func periodName(p models.Period) string {
	switch p {
	case models.PeriodWeek:
		return "weekly"
	case models.PeriodMonth:
		return "monthly"
	case models.PeriodYear:
		return "yearly"
	}
	return "bar"
}

// displayStats prints a backtest summary.
func displayStats(o *Output, symbol string, r *trading.BacktestResult, s trading.Stats) {
	o.Bold("Backtest %s  %s", symbol, r.Horizon)
	o.Println()
	o.Printf("  Initial capital:  %s\n", utils.FormatMoney(r.Initial))
	o.Printf("  Final capital:    %s\n", utils.FormatMoney(s.FinalCapital))
	pnl, _ := s.TotalPnL.Float64()
	o.Printf("  Total PnL:        %s\n", o.Signed(pnl, utils.FormatPnL(s.TotalPnL)))
	o.Printf("  Total return:     %s\n", o.Signed(s.TotalReturn, utils.FormatPercent(s.TotalReturn)))
	o.Printf("  Max drawdown:     %s\n", o.Signed(s.MaxDrawdown, utils.FormatPercent(s.MaxDrawdown)))
	o.Printf("  Trades:           %d  (won %d, lost %d)\n", s.TotalTrades, s.WinningTrades, s.LosingTrades)
	o.Printf("  TP1 hit rate:     %.1f%%\n", s.HitRate)
	if r.Open != nil {
		o.Printf("  Open position:    %s %s @ %s since %s\n",
			o.Action(r.Open.Side), utils.FormatQuantity(r.Open.Size),
			utils.FormatPrice(r.Open.Entry), r.Open.EntryDate.Format(dateLayout))
	}
}

// displayTrades prints the last limit trades, or all when limit <= 0.
func displayTrades(o *Output, trades []models.BacktestTrade, limit int) {
	if len(trades) == 0 {
		o.Dim("No closed trades.")
		return
	}
	shown := trades
	if limit > 0 && len(trades) > limit {
		shown = trades[len(trades)-limit:]
		o.Dim("Showing last %d of %d trades", limit, len(trades))
	}

	table := NewTable(o, "SIDE", "ENTRY DATE", "EXIT DATE", "ENTRY", "EXIT", "SIZE", "TP1", "PNL", "REASON")
	for _, t := range shown {
		pnl, _ := t.PnL.Float64()
		tp1 := "-"
		if t.TP1Hit {
			tp1 = "hit"
		}
		table.AddRow(
			o.Action(t.Side),
			t.EntryDate.Format(dateLayout),
			t.ExitDate.Format(dateLayout),
			utils.FormatPrice(t.Entry),
			utils.FormatPrice(t.Exit),
			utils.FormatQuantity(t.Size),
			tp1,
			o.Signed(pnl, utils.FormatPnL(t.PnL)),
			string(t.ExitReason),
		)
	}
	table.Render()
}
