package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

type workflow struct {
	title    string
	commands []string
}

var workflows = []workflow{
	{
		title: "Load History",
		commands: []string{
			"trader data import AAPL AAPL.csv   # Yahoo-style daily export",
			"trader data list                   # Stored symbols and bar counts",
			"trader data status                 # How old each symbol's last bar is",
		},
	},
	{
		title: "Daily Decision",
		commands: []string{
			"trader analyze AAPL                # Default horizon from config",
			"trader analyze AAPL -H ST          # Weekly pivots",
			"trader analyze AAPL --llm          # Model narration, template fallback",
		},
	},
	{
		title: "Scan a Watchlist",
		commands: []string{
			"trader watchlist add AAPL MSFT NVDA -l core",
			"trader scan -w core --actionable   # Only LONG/SHORT base plans",
		},
	},
	{
		title: "Backtest",
		commands: []string{
			"trader backtest AAPL --chart",
			"trader backtest AAPL --compare     # ST vs MID vs LT",
			"trader backtest AAPL --tie-break open_nearest --export-trades trades.csv",
		},
	},
	{
		title: "Event Calendar",
		commands: []string{
			"trader events add 2024-07-25 -s AAPL -t earnings",
			"trader events import calendar.csv  # date,symbol,type,description",
		},
	},
	{
		title: "HTTP API",
		commands: []string{
			"trader serve --port 8080",
			"curl -XPOST localhost:8080/api/v1/decision -d '{\"symbol\":\"AAPL\"}' -H 'Content-Type: application/json'",
		},
	},
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show common workflow examples",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				out := make(map[string][]string, len(workflows))
				for _, w := range workflows {
					out[w.title] = w.commands
				}
				return output.JSON(out)
			}

			output.Bold("Common Workflow Examples")
			output.Println()
			for _, w := range workflows {
				output.Bold(w.title)
				for _, c := range w.commands {
					parts := strings.SplitN(c, "#", 2)
					if len(parts) == 2 {
						output.Printf("  %s %s\n", output.Cyan(strings.TrimSpace(parts[0])), output.DimText(strings.TrimSpace(parts[1])))
					} else {
						output.Printf("  %s\n", output.Cyan(c))
					}
				}
				output.Println()
			}
			return nil
		},
	}
}
