package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pivot-trader/internal/models"
	"pivot-trader/internal/store"
)

func newEventsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Manage the event calendar",
		Long: `Scheduled events (earnings, dividends, splits, macro releases) veto new trades
on their date when strategy.use_events is on. An event without a symbol applies
to every symbol.`,
	}
	cmd.AddCommand(newEventsAddCmd(app))
	cmd.AddCommand(newEventsListCmd(app))
	cmd.AddCommand(newEventsImportCmd(app))
	return cmd
}

func newEventsAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <date>",
		Short: "Add an event",
		Example: `  trader events add 2024-07-25 --symbol AAPL --type earnings
  trader events add 2024-06-12 --type macro --desc "FOMC decision"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			date, err := time.Parse(dateLayout, args[0])
			if err != nil {
				return fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", args[0], err)
			}
			symbol, _ := cmd.Flags().GetString("symbol")
			typ, _ := cmd.Flags().GetString("type")
			desc, _ := cmd.Flags().GetString("desc")

			ev := &models.MarketEvent{
				Symbol:      strings.ToUpper(strings.TrimSpace(symbol)),
				Type:        models.ParseEventType(typ),
				Date:        date,
				Description: desc,
			}
			ds, err := app.OpenStore()
			if err != nil {
				return err
			}
			if err := ds.SaveEvent(cmd.Context(), ev); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(ev)
			}
			output.Success("Saved %s event on %s for %s", ev.Type, ev.Date.Format(dateLayout), scopeName(ev.Symbol))
			return nil
		},
	}
	cmd.Flags().StringP("symbol", "s", "", "Symbol (empty for a market-wide event)")
	cmd.Flags().StringP("type", "t", "OTHER", "Type: EARNINGS, DIVIDEND, SPLIT, MACRO, OTHER")
	cmd.Flags().StringP("desc", "d", "", "Description")
	return cmd
}

func newEventsListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [symbol...]",
		Short: "List events in a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			days, _ := cmd.Flags().GetInt("days")
			from, _ := cmd.Flags().GetString("from")

			start := time.Now().UTC()
			if from != "" {
				t, err := time.Parse(dateLayout, from)
				if err != nil {
					return fmt.Errorf("invalid --from %q: %w", from, err)
				}
				start = t
			}
			end := start.AddDate(0, 0, days)

			ds, err := app.OpenStore()
			if err != nil {
				return err
			}
			events, err := ds.GetEvents(cmd.Context(), uniqueSymbols(args), start, end)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(events)
			}
			if len(events) == 0 {
				output.Dim("No events between %s and %s", start.Format(dateLayout), end.Format(dateLayout))
				return nil
			}
			table := NewTable(output, "DATE", "SYMBOL", "TYPE", "DESCRIPTION")
			for _, e := range events {
				table.AddRow(e.Date.Format(dateLayout), scopeName(e.Symbol), string(e.Type), e.Description)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().String("from", "", "Start date YYYY-MM-DD (default today)")
	cmd.Flags().Int("days", 30, "Number of days to show")
	return cmd
}

func newEventsImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "import <file.csv>",
		Short:   "Import events from a CSV file (date,symbol,type,description)",
		Example: "  trader events import calendar.csv",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			events, err := store.ReadEventsCSV(f)
			if err != nil {
				output.Error("Import failed: %v", err)
				return err
			}
			ds, err := app.OpenStore()
			if err != nil {
				return err
			}
			for i := range events {
				if err := ds.SaveEvent(cmd.Context(), &events[i]); err != nil {
					return err
				}
			}
			if err := store.NewSyncTracker(ds, nil).MarkSynced(store.SyncTypeEvents); err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to record sync time")
			}

			if output.IsJSON() {
				return output.JSON(map[string]int{"imported": len(events)})
			}
			output.Success("Imported %d events", len(events))
			return nil
		},
	}
}

func scopeName(symbol string) string {
	if symbol == "" {
		return "all symbols"
	}
	return symbol
}
