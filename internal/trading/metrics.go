package trading

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"pivot-trader/internal/models"
)

// Stats summarizes a backtest.
type Stats struct {
	TotalTrades   int             `json:"total_trades"`
	TP1Hits       int             `json:"tp1_hits"`
	HitRate       float64         `json:"hit_rate"`
	WinningTrades int             `json:"winning_trades"`
	LosingTrades  int             `json:"losing_trades"`
	TotalPnL      decimal.Decimal `json:"total_pnl"`
	FinalCapital  decimal.Decimal `json:"final_capital"`
	TotalReturn   float64         `json:"total_return"`
	MaxDrawdown   float64         `json:"max_drawdown"`
	OpenPosition  bool            `json:"open_position"`
}

// Summarize calculates hit rate (share of trades reaching TP1), win/loss
// counts, total PnL, return and maximum drawdown. Percentages are in percent;
// the drawdown is negative or zero.
func Summarize(result *BacktestResult) Stats {
	stats := Stats{
		TotalTrades:  len(result.Trades),
		TotalPnL:     decimal.Zero,
		FinalCapital: result.FinalCapital,
		OpenPosition: result.Open != nil,
	}

	for _, trade := range result.Trades {
		stats.TotalPnL = stats.TotalPnL.Add(trade.PnL)
		if trade.TP1Hit {
			stats.TP1Hits++
		}
		if trade.IsWin() {
			stats.WinningTrades++
		} else {
			stats.LosingTrades++
		}
	}

	stats.HitRate = 100 * float64(stats.TP1Hits) / float64(max(1, stats.TotalTrades))

	if !result.Initial.IsZero() {
		ret, _ := result.FinalCapital.Sub(result.Initial).Div(result.Initial).Float64()
		stats.TotalReturn = ret * 100
	}
	stats.MaxDrawdown = MaxDrawdown(result.Equity) * 100
	return stats
}

// MaxDrawdown returns min over t of (equity - running peak) / running peak.
func MaxDrawdown(equity []models.EquityPoint) float64 {
	var worst float64
	var peak decimal.Decimal
	for i, p := range equity {
		if i == 0 || p.Capital.GreaterThan(peak) {
			peak = p.Capital
		}
		if !peak.IsPositive() {
			continue
		}
		dd, _ := p.Capital.Sub(peak).Div(peak).Float64()
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

// EquityChartASCII renders the equity curve as a fixed-size text chart.
func EquityChartASCII(result *BacktestResult, width, height int) string {
	if len(result.Equity) == 0 || width <= 0 || height <= 0 {
		return "No data to display"
	}

	values := make([]float64, len(result.Equity))
	for i, p := range result.Equity {
		values[i], _ = p.Capital.Float64()
	}

	// Find min/max equity
	minEquity, maxEquity := values[0], values[0]
	for _, v := range values {
		if v < minEquity {
			minEquity = v
		}
		if v > maxEquity {
			maxEquity = v
		}
	}

	// Add padding
	equityRange := maxEquity - minEquity
	if equityRange == 0 {
		equityRange = 1
	}
	minEquity -= equityRange * 0.05
	maxEquity += equityRange * 0.05
	equityRange = maxEquity - minEquity

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}

	// Sample points to fit width
	step := len(values) / width
	if step == 0 {
		step = 1
	}
	for x := 0; x < width && x*step < len(values); x++ {
		y := int((values[x*step] - minEquity) / equityRange * float64(height-1))
		if y >= 0 && y < height {
			grid[height-1-y][x] = '█'
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Equity Curve (%.0f - %.0f)\n", minEquity, maxEquity))
	sb.WriteString(strings.Repeat("─", width+2) + "\n")
	for _, row := range grid {
		sb.WriteRune('│')
		sb.WriteString(string(row))
		sb.WriteRune('│')
		sb.WriteRune('\n')
	}
	sb.WriteString(strings.Repeat("─", width+2) + "\n")
	return sb.String()
}

// HorizonComparison is one row of a cross-horizon comparison.
type HorizonComparison struct {
	Horizon models.Horizon `json:"horizon"`
	Stats   Stats          `json:"stats"`
}

// CompareHorizons ranks backtest results by total return, best first.
func CompareHorizons(results map[models.Horizon]*BacktestResult) []HorizonComparison {
	comparisons := make([]HorizonComparison, 0, len(results))
	for h, r := range results {
		comparisons = append(comparisons, HorizonComparison{Horizon: h, Stats: Summarize(r)})
	}
	sort.Slice(comparisons, func(i, j int) bool {
		if comparisons[i].Stats.TotalReturn == comparisons[j].Stats.TotalReturn {
			return comparisons[i].Horizon < comparisons[j].Horizon
		}
		return comparisons[i].Stats.TotalReturn > comparisons[j].Stats.TotalReturn
	})
	return comparisons
}
