package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pivot-trader/internal/analysis/strategy"
	apperrors "pivot-trader/internal/errors"
	"pivot-trader/internal/logging"
	"pivot-trader/internal/models"
	"pivot-trader/internal/store"
	"pivot-trader/internal/trading"
	"pivot-trader/pkg/utils"
)

// backtestReport is the JSON form of the backtest command.
type backtestReport struct {
	Result *trading.BacktestResult `json:"result"`
	Stats  trading.Stats           `json:"stats"`
}

func newBacktestCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest <symbol>",
		Short: "Replay the decision logic over history",
		Long: `Walk forward through a symbol's daily history, asking for a decision on every
bar after the warmup and simulating a single position: half the size exits at
target 1, the rest at target 2 or the stop. Position size risks a fixed
fraction of current capital.

With --compare the run is repeated for ST, MID and LT and ranked by return.`,
		Example: `  trader backtest AAPL
  trader backtest AAPL --horizon ST --risk 0.005 --chart
  trader backtest SPY --csv spy.csv --export-trades trades.csv
  trader backtest MSFT --compare`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			csvPath, _ := cmd.Flags().GetString("csv")
			compare, _ := cmd.Flags().GetBool("compare")

			cfg, err := app.backtestConfig(cmd, symbol)
			if err != nil {
				return err
			}

			candles, err := app.LoadCandles(ctx, output, symbol, csvPath)
			if err != nil {
				output.Error("Failed to load history for %s: %v", symbol, err)
				return err
			}
			if len(candles) <= cfg.Warmup {
				output.Warning("%d bars is not more than the %d-bar warmup; nothing will be simulated", len(candles), cfg.Warmup)
			}

			engine, err := app.Engine(ctx)
			if err != nil {
				return err
			}

			if compare {
				return app.compareHorizons(ctx, output, engine, candles, cfg)
			}

			start := time.Now()
			result, err := trading.NewSimulator(engine.ForSymbol(symbol)).Run(ctx, candles, cfg)
			if err != nil {
				output.Error("Backtest failed: %v", err)
				return err
			}
			logging.LogBacktest(app.Logger, symbol, result.Horizon, len(result.Trades), result.FinalCapital, time.Since(start))
			stats := trading.Summarize(result)

			if err := exportResult(cmd, output, result); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(backtestReport{Result: result, Stats: stats})
			}

			displayStats(output, symbol, result, stats)
			output.Println()
			limit, _ := cmd.Flags().GetInt("trades")
			displayTrades(output, result.Trades, limit)

			if chart, _ := cmd.Flags().GetBool("chart"); chart {
				output.Println()
				output.Printf("%s", trading.EquityChartASCII(result, 60, 12))
			}
			return nil
		},
	}

	cmd.Flags().StringP("horizon", "H", "", "Horizon: ST, MID, LT or AUTO (default from config)")
	cmd.Flags().Float64("capital", 0, "Initial capital (default from config)")
	cmd.Flags().Float64("risk", 0, "Fraction of capital risked per trade, 0.002-0.05 (default from config)")
	cmd.Flags().Int("warmup", 0, "Bars before the first decision (default from config)")
	cmd.Flags().String("tie-break", "", "Same-bar stop/target rule: stop_first, target_first, open_nearest")
	cmd.Flags().String("csv", "", "Read history from a CSV file instead of the store")
	cmd.Flags().String("export-trades", "", "Write closed trades to a CSV file")
	cmd.Flags().String("export-equity", "", "Write the equity curve to a CSV file")
	cmd.Flags().Bool("chart", false, "Print an ASCII equity chart")
	cmd.Flags().Bool("compare", false, "Run ST, MID and LT and compare them")
	cmd.Flags().Int("trades", 20, "Number of most recent trades to list (0 for all)")

	return cmd
}

// backtestConfig merges flags over configured defaults.
func (app *App) backtestConfig(cmd *cobra.Command, symbol string) (trading.BacktestConfig, error) {
	def := app.Config.Backtest
	cfg := trading.BacktestConfig{
		Symbol:         symbol,
		InitialCapital: def.InitialCapital,
		RiskPerTrade:   def.RiskPerTrade,
		Warmup:         def.Warmup,
		TieBreak:       trading.TieBreak(def.TieBreak),
	}

	horizonFlag, _ := cmd.Flags().GetString("horizon")
	horizon, err := app.DefaultHorizon(horizonFlag)
	if err != nil {
		return cfg, err
	}
	cfg.Horizon = horizon

	if v, _ := cmd.Flags().GetFloat64("capital"); v != 0 {
		cfg.InitialCapital = v
	}
	if v, _ := cmd.Flags().GetFloat64("risk"); v != 0 {
		cfg.RiskPerTrade = v
	}
	if v, _ := cmd.Flags().GetInt("warmup"); v != 0 {
		cfg.Warmup = v
	}
	if v, _ := cmd.Flags().GetString("tie-break"); v != "" {
		cfg.TieBreak = trading.TieBreak(v)
	}
	if err := trading.PrepareConfig(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (app *App) compareHorizons(ctx context.Context, output *Output, engine *strategy.Engine, candles []models.Candle, cfg trading.BacktestConfig) error {
	results := make(map[models.Horizon]*trading.BacktestResult, 3)
	for _, h := range models.AllHorizons() {
		run := cfg
		run.Horizon = h
		result, err := trading.NewSimulator(engine.ForSymbol(cfg.Symbol)).Run(ctx, candles, run)
		if err != nil {
			return apperrors.Wrapf(err, "%s backtest", h)
		}
		results[h] = result
	}
	ranked := trading.CompareHorizons(results)

	if output.IsJSON() {
		return output.JSON(ranked)
	}

	output.Bold("Horizon comparison %s", cfg.Symbol)
	output.Println()
	table := NewTable(output, "HORIZON", "TRADES", "TP1 HIT", "PNL", "RETURN", "MAX DD")
	for _, c := range ranked {
		pnl, _ := c.Stats.TotalPnL.Float64()
		table.AddRow(
			string(c.Horizon),
			fmt.Sprintf("%d", c.Stats.TotalTrades),
			fmt.Sprintf("%.1f%%", c.Stats.HitRate),
			output.Signed(pnl, utils.FormatPnL(c.Stats.TotalPnL)),
			output.Signed(c.Stats.TotalReturn, utils.FormatPercent(c.Stats.TotalReturn)),
			utils.FormatPercent(c.Stats.MaxDrawdown),
		)
	}
	table.Render()
	return nil
}

func exportResult(cmd *cobra.Command, output *Output, result *trading.BacktestResult) error {
	if path, _ := cmd.Flags().GetString("export-trades"); path != "" {
		if err := writeFile(path, func(f *os.File) error { return store.WriteTradesCSV(f, result.Trades) }); err != nil {
			return err
		}
		if !output.IsJSON() {
			output.Success("Wrote %d trades to %s", len(result.Trades), path)
		}
	}
	if path, _ := cmd.Flags().GetString("export-equity"); path != "" {
		if err := writeFile(path, func(f *os.File) error { return store.WriteEquityCSV(f, result.Equity) }); err != nil {
			return err
		}
		if !output.IsJSON() {
			output.Success("Wrote %d equity points to %s", len(result.Equity), path)
		}
	}
	return nil
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrapf(err, "creating %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return apperrors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}
