package cli

import (
	"github.com/spf13/cobra"

	"pivot-trader/internal/config"
	"pivot-trader/pkg/utils"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			shown := *app.Config
			shown.Credentials = shown.Credentials.Masked()
			if output.IsJSON() {
				return output.JSON(shown)
			}
			showConfig(output, &shown)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			path := config.ConfigFile(dir)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Data")
	output.Printf("  Database:        %s\n", cfg.Data.DBPath)
	output.Printf("  Min bars:        %d\n", cfg.Data.MinBars)
	output.Println()

	output.Bold("Strategy")
	output.Printf("  Default horizon: %s\n", cfg.Strategy.DefaultHorizon)
	output.Printf("  Min reward:risk: %.1f\n", cfg.Strategy.MinRewardRisk)
	output.Printf("  ATR / RSI:       %d / %d\n", cfg.Strategy.ATRPeriod, cfg.Strategy.RSIPeriod)
	output.Printf("  Event guard:     %v\n", cfg.Strategy.UseEvents)
	output.Println()

	output.Bold("Backtest")
	output.Printf("  Capital:         %s\n", utils.FormatCurrency(cfg.Backtest.InitialCapital))
	output.Printf("  Risk per trade:  %.2f%%\n", cfg.Backtest.RiskPerTrade*100)
	output.Printf("  Warmup:          %d bars\n", cfg.Backtest.Warmup)
	output.Printf("  Tie break:       %s\n", cfg.Backtest.TieBreak)
	output.Println()

	output.Bold("Server")
	output.Printf("  Address:         %s\n", cfg.Server.Addr())
	output.Println()

	output.Bold("Narration")
	output.Printf("  Mode:            %s\n", cfg.Narration.Mode)
	output.Printf("  Model:           %s\n", cfg.Narration.Model)
	output.Printf("  OpenAI key:      %s\n", orDash(cfg.Credentials.OpenAI.APIKey))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
