package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

const defaultWatchlist = "default"

func newWatchlistCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watchlist",
		Aliases: []string{"wl"},
		Short:   "Manage named symbol lists for scans",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "add <symbol>...",
		Short:   "Add symbols to a watchlist",
		Example: "  trader watchlist add AAPL MSFT --list core",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			list, _ := cmd.Flags().GetString("list")
			ds, err := app.OpenStore()
			if err != nil {
				return err
			}
			symbols := uniqueSymbols(args)
			for _, symbol := range symbols {
				if err := ds.AddToWatchlist(cmd.Context(), symbol, list); err != nil {
					return err
				}
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"list": list, "added": symbols})
			}
			output.Success("Added %s to '%s'", strings.Join(symbols, ", "), list)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <symbol>...",
		Short: "Remove symbols from a watchlist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			list, _ := cmd.Flags().GetString("list")
			ds, err := app.OpenStore()
			if err != nil {
				return err
			}
			symbols := uniqueSymbols(args)
			for _, symbol := range symbols {
				if err := ds.RemoveFromWatchlist(cmd.Context(), symbol, list); err != nil {
					return err
				}
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"list": list, "removed": symbols})
			}
			output.Success("Removed %s from '%s'", strings.Join(symbols, ", "), list)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show watchlists",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ds, err := app.OpenStore()
			if err != nil {
				return err
			}
			lists, err := ds.GetAllWatchlists(cmd.Context())
			if err != nil {
				return err
			}
			if name, _ := cmd.Flags().GetString("list"); cmd.Flags().Changed("list") {
				lists = map[string][]string{name: lists[name]}
			}

			if output.IsJSON() {
				return output.JSON(lists)
			}
			if len(lists) == 0 {
				output.Dim("No watchlists yet. Create one with 'trader watchlist add <symbol>'.")
				return nil
			}
			names := make([]string, 0, len(lists))
			for name := range lists {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				output.Printf("%s (%d)\n", output.BoldText(name), len(lists[name]))
				if len(lists[name]) > 0 {
					output.Printf("  %s\n", strings.Join(lists[name], " "))
				}
			}
			return nil
		},
	})

	cmd.PersistentFlags().StringP("list", "l", defaultWatchlist, "Watchlist name")
	return cmd
}
