package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pivot-trader/internal/analysis/strategy"
	"pivot-trader/internal/logging"
	"pivot-trader/internal/models"
	"pivot-trader/pkg/utils"
)

func newScanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [symbol...]",
		Short: "Decide on many stored symbols at once",
		Long: `Evaluate the latest bar of several stored symbols concurrently. Symbols come
from the arguments, a named watchlist, or both. A symbol that cannot be
evaluated is reported without failing the scan.`,
		Example: `  trader scan AAPL MSFT NVDA
  trader scan --watchlist core --horizon ST
  trader scan --watchlist core --actionable --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			horizonFlag, _ := cmd.Flags().GetString("horizon")
			listName, _ := cmd.Flags().GetString("watchlist")
			workers, _ := cmd.Flags().GetInt("workers")
			actionable, _ := cmd.Flags().GetBool("actionable")

			horizon, err := app.DefaultHorizon(horizonFlag)
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = app.Config.Scan.Workers
			}

			symbols := args
			if listName != "" {
				ds, err := app.OpenStore()
				if err != nil {
					return err
				}
				listed, err := ds.GetWatchlist(ctx, listName)
				if err != nil {
					return err
				}
				symbols = append(symbols, listed...)
			}
			symbols = uniqueSymbols(symbols)
			if len(symbols) == 0 {
				output.Error("No symbols to scan. Pass symbols or --watchlist.")
				return fmt.Errorf("no symbols to scan")
			}

			// Open before fanning out so workers only read app.Store.
			if _, err := app.OpenStore(); err != nil {
				return err
			}
			engine, err := app.Engine(ctx)
			if err != nil {
				return err
			}
			src := strategy.CandleSourceFunc(func(ctx context.Context, symbol string) ([]models.Candle, error) {
				return app.LoadCandles(ctx, output, symbol, "")
			})

			start := time.Now()
			results, err := engine.Scan(ctx, src, symbols, horizon, workers)
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					app.Logger.Debug().Err(r.Err).Str("symbol", r.Symbol).Msg("Scan skipped symbol")
				}
			}
			logging.LogScan(app.Logger, len(symbols), failed, time.Since(start))

			if actionable {
				results = filterActionable(results)
			}

			if output.IsJSON() {
				return output.JSON(results)
			}
			displayScan(output, results)
			if failed > 0 {
				output.Warning("%d of %d symbols could not be evaluated", failed, len(symbols))
			}
			return nil
		},
	}

	cmd.Flags().StringP("horizon", "H", "", "Horizon: ST, MID, LT or AUTO (default from config)")
	cmd.Flags().StringP("watchlist", "w", "", "Add the symbols of a watchlist")
	cmd.Flags().Int("workers", 0, "Concurrent evaluations (default from config)")
	cmd.Flags().Bool("actionable", false, "Only list symbols with a LONG or SHORT base plan")

	return cmd
}

func uniqueSymbols(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func filterActionable(results []strategy.ScanResult) []strategy.ScanResult {
	out := results[:0:0]
	for _, r := range results {
		if r.Decision != nil && r.Decision.Base.IsActionable() {
			out = append(out, r)
		}
	}
	return out
}

func displayScan(output *Output, results []strategy.ScanResult) {
	table := NewTable(output, "SYMBOL", "HZ", "PRICE", "REGIME", "BASE", "ENTRY", "TP1", "SL", "ALT")
	for _, r := range results {
		if r.Decision == nil {
			table.AddRow(r.Symbol, "-", "-", "-", output.Red("error"), output.DimText(r.Error))
			continue
		}
		d := r.Decision
		entry, tp1, sl := "-", "-", "-"
		if d.Base.IsActionable() {
			entry, tp1, sl = utils.FormatPrice(d.Base.Entry), utils.FormatPrice(d.Base.TP1), utils.FormatPrice(d.Base.SL)
		}
		table.AddRow(
			r.Symbol,
			string(d.Horizon),
			utils.FormatPrice(d.Price),
			output.Regime(d.Context.Regime),
			output.Action(d.Base.Action),
			entry, tp1, sl,
			output.Action(d.Alt.Action),
		)
	}
	table.Render()
}
