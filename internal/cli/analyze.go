package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pivot-trader/internal/analysis/strategy"
	"pivot-trader/internal/logging"
	"pivot-trader/internal/models"
)

// analyzeResult is the JSON form of the analyze command.
type analyzeResult struct {
	Symbol    string           `json:"symbol"`
	Bars      int              `json:"bars"`
	Decision  *models.Decision `json:"decision"`
	Narration string           `json:"narration,omitempty"`
}

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Trade plan for the latest bar of a symbol",
		Long: `Compute the pivot-based decision for the last bar of a symbol's daily history:
prior-period Fibonacci pivots, trend/overheat context, a base plan and an
alternative plan, followed by a short narration.

Horizons: ST (weekly pivots), MID (monthly), LT (yearly) or AUTO, which picks
one from where the price sits in its 60-bar range.`,
		Example: `  trader analyze AAPL
  trader analyze AAPL --horizon ST
  trader analyze SPY --csv spy.csv --llm
  trader analyze MSFT --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			horizonFlag, _ := cmd.Flags().GetString("horizon")
			csvPath, _ := cmd.Flags().GetString("csv")
			useLLM, _ := cmd.Flags().GetBool("llm")

			horizon, err := app.DefaultHorizon(horizonFlag)
			if err != nil {
				return err
			}

			candles, err := app.LoadCandles(ctx, output, symbol, csvPath)
			if err != nil {
				output.Error("Failed to load history for %s: %v", symbol, err)
				return err
			}
			if minBars := app.Config.Data.MinBars; len(candles) < minBars {
				output.Warning("Only %d bars for %s; at least %d are recommended", len(candles), symbol, minBars)
			}

			engine, err := app.Engine(ctx)
			if err != nil {
				return err
			}
			d, err := engine.DecideSymbol(symbol, candles, strategy.Resolve(horizon, candles))
			if err != nil {
				output.Error("Analysis failed: %v", err)
				return err
			}
			logging.LogDecision(app.Logger, symbol, d)

			text, err := app.Narrator(useLLM).Narrate(ctx, symbol, d)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(analyzeResult{Symbol: symbol, Bars: len(candles), Decision: d, Narration: text})
			}

			displayDecision(output, symbol, len(candles), d)
			output.Println()
			output.Println(text)
			return nil
		},
	}

	cmd.Flags().StringP("horizon", "H", "", "Horizon: ST, MID, LT or AUTO (default from config)")
	cmd.Flags().String("csv", "", "Read history from a CSV file instead of the store")
	cmd.Flags().Bool("llm", false, "Narrate with the language model (needs an OpenAI key)")

	return cmd
}
