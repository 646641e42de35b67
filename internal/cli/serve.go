package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pivot-trader/internal/api"
	"pivot-trader/internal/models"
	"pivot-trader/internal/trading"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve decisions, backtests and scans over HTTP:

  GET  /healthz
  POST /api/v1/decision
  POST /api/v1/backtest
  POST /api/v1/scan
  GET  /metrics          (Prometheus)

Requests may carry candles inline or name a stored symbol.`,
		Example: `  trader serve
  trader serve --host 0.0.0.0 --port 9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := app.Config
			host, _ := cmd.Flags().GetString("host")
			port, _ := cmd.Flags().GetInt("port")
			rate, _ := cmd.Flags().GetFloat64("rate")
			if host == "" {
				host = cfg.Server.Host
			}
			if port == 0 {
				port = cfg.Server.Port
			}

			ds, err := app.OpenStore()
			if err != nil {
				return err
			}
			engine, err := app.Engine(ctx)
			if err != nil {
				return err
			}

			horizon, err := models.ParseHorizon(cfg.Strategy.DefaultHorizon)
			if err != nil {
				return err
			}
			logger := app.Logger.With().Str("component", "api").Logger()
			handler := api.NewHandler(engine,
				api.WithStore(ds),
				api.WithNarrator(app.Narrator(false)),
				api.WithHandlerLogger(logger),
				api.WithDefaults(api.Defaults{
					Horizon: horizon,
					Workers: cfg.Scan.Workers,
					MinBars: cfg.Data.MinBars,
					Backtest: trading.BacktestConfig{
						Horizon:        horizon,
						InitialCapital: cfg.Backtest.InitialCapital,
						RiskPerTrade:   cfg.Backtest.RiskPerTrade,
						Warmup:         cfg.Backtest.Warmup,
						TieBreak:       trading.TieBreak(cfg.Backtest.TieBreak),
					},
				}),
			)

			server := api.NewServer(handler,
				api.WithHost(host),
				api.WithPort(port),
				api.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, 0),
				api.WithRateLimit(rate, int(2*rate)),
				api.WithServerLogger(logger),
			)

			NewOutput(cmd).Info("Listening on http://%s", server.Addr())
			return server.Run(ctx)
		},
	}

	cmd.Flags().String("host", "", "Listen host (default from config)")
	cmd.Flags().Int("port", 0, "Listen port (default from config)")
	cmd.Flags().Float64("rate", 20, "Requests per second before 429 (0 disables)")
	return cmd
}
