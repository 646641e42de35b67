package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pivot-trader/internal/models"
	"pivot-trader/internal/store"
	"pivot-trader/pkg/utils"
)

func newDataCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Manage stored daily price history",
		Long: `Import, inspect and delete the daily candles kept in the local SQLite store.

CSV files use a Yahoo-style header: Date,Open,High,Low,Close[,Adj Close][,Volume].
Rows with empty or null values are dropped; repeated dates keep the last row.`,
	}

	cmd.AddCommand(newDataImportCmd(app))
	cmd.AddCommand(newDataListCmd(app))
	cmd.AddCommand(newDataShowCmd(app))
	cmd.AddCommand(newDataDeleteCmd(app))
	cmd.AddCommand(newDataStatusCmd(app))

	return cmd
}

func newDataImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <symbol> <file.csv>",
		Short: "Import daily candles from a CSV file",
		Example: `  trader data import AAPL ~/Downloads/AAPL.csv
  trader data import SPY spy.csv --replace`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			replace, _ := cmd.Flags().GetBool("replace")

			f, err := os.Open(args[1])
			if err != nil {
				output.Error("Cannot open %s: %v", args[1], err)
				return err
			}
			defer f.Close()

			candles, report, err := store.ReadCandlesCSV(f)
			if err != nil {
				output.Error("Import failed: %v", err)
				return err
			}

			ds, err := app.OpenStore()
			if err != nil {
				return err
			}
			if replace {
				if _, err := ds.DeleteCandles(ctx, symbol, store.TimeframeDaily); err != nil {
					return err
				}
			}
			if err := ds.SaveCandles(ctx, symbol, store.TimeframeDaily, candles); err != nil {
				output.Error("Failed to save candles: %v", err)
				return err
			}
			if err := store.NewSyncTracker(ds, nil).MarkSynced(store.SyncTypeCandles); err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to record sync time")
			}
			app.Logger.Info().Str("symbol", symbol).Int("bars", len(candles)).Msg("Candles imported")

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol":     symbol,
					"imported":   len(candles),
					"rows":       report.Rows,
					"dropped":    report.Dropped,
					"duplicates": report.Duplicates,
					"first":      candles[0].Timestamp.Format(dateLayout),
					"last":       candles[len(candles)-1].Timestamp.Format(dateLayout),
				})
			}
			output.Success("Imported %d bars for %s (%s to %s)", len(candles), symbol,
				candles[0].Timestamp.Format(dateLayout), candles[len(candles)-1].Timestamp.Format(dateLayout))
			if report.Dropped > 0 || report.Duplicates > 0 {
				output.Dim("Dropped %d incomplete rows and %d duplicate dates of %d", report.Dropped, report.Duplicates, report.Rows)
			}
			return nil
		},
	}
	cmd.Flags().Bool("replace", false, "Delete the symbol's stored bars before importing")
	return cmd
}

func newDataListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ds, err := app.OpenStore()
			if err != nil {
				return err
			}
			summaries, err := ds.ListSymbols(cmd.Context(), store.TimeframeDaily)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(summaries)
			}
			if len(summaries) == 0 {
				output.Dim("No stored symbols. Import one with 'trader data import <symbol> <file.csv>'.")
				return nil
			}
			displaySymbols(output, summaries, app.Config.Data.MinBars)
			return nil
		},
	}
}

func displaySymbols(output *Output, summaries []models.SymbolSummary, minBars int) {
	table := NewTable(output, "SYMBOL", "BARS", "FIRST", "LAST")
	for _, s := range summaries {
		bars := utils.FormatQuantity(int64(s.Bars))
		if s.Bars < minBars {
			bars = output.Yellow(bars)
		}
		table.AddRow(s.Symbol, bars, s.First.Format(dateLayout), s.Last.Format(dateLayout))
	}
	table.Render()
}

func newDataShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <symbol>",
		Short: "Show stored candles for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol := strings.ToUpper(args[0])
			limit, _ := cmd.Flags().GetInt("limit")

			candles, err := app.LoadCandles(cmd.Context(), output, symbol, "")
			if err != nil {
				output.Error("%v", err)
				return err
			}
			if limit > 0 && len(candles) > limit {
				candles = candles[len(candles)-limit:]
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol":  symbol,
					"count":   len(candles),
					"candles": candles,
				})
			}
			displayCandles(output, symbol, candles)
			return nil
		},
	}
	cmd.Flags().IntP("limit", "l", 20, "Number of most recent candles to display (0 for all)")
	return cmd
}

func displayCandles(output *Output, symbol string, candles []models.Candle) {
	output.Bold("%s - daily", symbol)
	output.Printf("  %d candles\n\n", len(candles))

	table := NewTable(output, "DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME", "CHANGE")
	for i, c := range candles {
		change := "-"
		if i > 0 && candles[i-1].Close != 0 {
			pct := (c.Close - candles[i-1].Close) / candles[i-1].Close * 100
			change = output.Signed(pct, utils.FormatPercent(pct))
		}
		table.AddRow(
			c.Timestamp.Format(dateLayout),
			utils.FormatPrice(c.Open),
			utils.FormatPrice(c.High),
			utils.FormatPrice(c.Low),
			utils.FormatPrice(c.Close),
			utils.FormatCompact(float64(c.Volume)),
			change,
		)
	}
	table.Render()
}

func newDataDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <symbol>",
		Short: "Delete stored candles for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol := strings.ToUpper(args[0])
			ds, err := app.OpenStore()
			if err != nil {
				return err
			}
			n, err := ds.DeleteCandles(cmd.Context(), symbol, store.TimeframeDaily)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"symbol": symbol, "deleted": n})
			}
			if n == 0 {
				output.Warning("No stored bars for %s", symbol)
				return nil
			}
			output.Success("Deleted %d bars for %s", n, symbol)
			return nil
		},
	}
}

func newDataStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status [symbol...]",
		Short: "Show data freshness",
		Long:  "Show when candles and events were last imported and how old each symbol's latest bar is.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ds, err := app.OpenStore()
			if err != nil {
				return err
			}
			tracker := store.NewSyncTracker(ds, nil)

			symbols := uniqueSymbols(args)
			if len(symbols) == 0 {
				summaries, err := ds.ListSymbols(cmd.Context(), store.TimeframeDaily)
				if err != nil {
					return err
				}
				for _, s := range summaries {
					symbols = append(symbols, s.Symbol)
				}
			}

			fresh := make([]*store.DataFreshness, 0, len(symbols))
			for _, symbol := range symbols {
				f, err := tracker.SymbolFreshness(cmd.Context(), symbol)
				if err != nil {
					return fmt.Errorf("%s: %w", symbol, err)
				}
				fresh = append(fresh, f)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"sync":    tracker.GetAllSyncStatus(),
					"symbols": fresh,
				})
			}

			output.Bold("Imports")
			for _, s := range tracker.GetAllSyncStatus() {
				line := "  " + store.FormatSyncStatus(s)
				if s.IsStale {
					line = output.Yellow(line)
				}
				output.Println(line)
			}
			if len(fresh) == 0 {
				return nil
			}
			output.Println()
			table := NewTable(output, "SYMBOL", "LAST BAR", "STATUS")
			for _, f := range fresh {
				status := store.FormatFreshness(f)
				if !f.IsFresh {
					status = output.Yellow(status)
				}
				last := "-"
				if !f.LastUpdated.IsZero() {
					last = f.LastUpdated.Format(dateLayout)
				}
				table.AddRow(f.Symbol, last, status)
			}
			table.Render()
			return nil
		},
	}
}
