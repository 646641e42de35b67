package cli

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pivot-trader/internal/analysis/strategy"
	"pivot-trader/internal/config"
	apperrors "pivot-trader/internal/errors"
	"pivot-trader/internal/logging"
	"pivot-trader/internal/models"
	"pivot-trader/internal/narrate"
	"pivot-trader/internal/store"
)

// Version information
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

// calendarEnd bounds event calendar queries.
var calendarEnd = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// App holds the application dependencies. Config and Logger may be preset;
// otherwise they are loaded before the first command runs.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.DataStore

	configured bool
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trader",
		Short: "Pivot Trader - pivot-based trade plans and backtests",
		Long: `Pivot Trader turns daily OHLC history into a trade plan: direction, entry,
two profit targets and a stop, derived from Fibonacci pivots of the prior
week, month or year. The same logic can be replayed bar by bar to backtest it.

Price history comes from CSV files or the local candle store ('trader data import').

Use 'trader <command> --help' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/pivot-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newBacktestCmd(app))
	rootCmd.AddCommand(newScanCmd(app))
	rootCmd.AddCommand(newDataCmd(app))
	rootCmd.AddCommand(newWatchlistCmd(app))
	rootCmd.AddCommand(newEventsCmd(app))
	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newExamplesCmd())

	return rootCmd
}

// Execute runs the CLI with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd(&App{}).ExecuteContext(ctx)
}

func (app *App) setup(cmd *cobra.Command) error {
	if app.configured {
		return nil
	}
	if app.Config == nil {
		dir, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		app.Config = cfg

		logCfg := logging.DefaultLogConfig()
		logCfg.Level = cfg.Logging.Level
		logCfg.File = cfg.Logging.File
		logCfg.FilePath = cfg.Logging.FilePath
		app.Logger = logging.NewLoggerWithConfig(logCfg)
	}

	if !app.Config.UI.ColorEnabled {
		color.NoColor = true
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logging.SetDebugLevel()
		app.Logger = app.Logger.Level(zerolog.DebugLevel)
	}
	app.configured = true
	return nil
}

// Close releases the store if one was opened.
func (app *App) Close() error {
	if app.Store == nil {
		return nil
	}
	err := app.Store.Close()
	app.Store = nil
	return err
}

// OpenStore opens the candle store on first use.
func (app *App) OpenStore() (store.DataStore, error) {
	if app.Store != nil {
		return app.Store, nil
	}
	path := app.Config.Data.DBPath
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, apperrors.Wrap(err, "creating data directory")
	}
	ds, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	app.Logger.Debug().Str("path", path).Msg("SQLite store opened")
	app.Store = ds
	return ds, nil
}

// Engine builds a decision engine from configuration. With events enabled
// the stored calendar is loaded as the event guard.
func (app *App) Engine(ctx context.Context) (*strategy.Engine, error) {
	opts := strategy.DefaultOptions()
	opts.MinRewardRisk = app.Config.Strategy.MinRewardRisk
	opts.ATRPeriod = app.Config.Strategy.ATRPeriod
	opts.RSIPeriod = app.Config.Strategy.RSIPeriod

	if app.Config.Strategy.UseEvents {
		ds, err := app.OpenStore()
		if err != nil {
			return nil, err
		}
		cal, err := store.LoadBlackoutCalendar(ctx, ds, time.Time{}, calendarEnd)
		if err != nil {
			return nil, err
		}
		opts.EventGuard = cal
	}
	return strategy.NewEngine(opts), nil
}

// Narrator returns the LLM narrator when configured, else the template one.
func (app *App) Narrator(forceLLM bool) narrate.Narrator {
	template := narrate.NewTemplateNarrator()
	key := app.Config.Credentials.OpenAI.APIKey
	if key == "" || !(forceLLM || app.Config.LLMEnabled()) {
		return template
	}
	client := narrate.NewOpenAIClient(key, app.Config.Narration.Model, app.Config.Narration.BaseURL)
	opts := []narrate.LLMOption{narrate.WithLogger(app.Logger)}
	if app.Config.Narration.Timeout > 0 {
		opts = append(opts, narrate.WithTimeout(app.Config.Narration.Timeout))
	}
	return narrate.NewLLMNarrator(client, template, opts...)
}

// LoadCandles reads history from a CSV file when csvPath is set, else from
// the store.
func (app *App) LoadCandles(ctx context.Context, output *Output, symbol, csvPath string) ([]models.Candle, error) {
	if csvPath != "" {
		return readCSVFile(output, csvPath)
	}
	ds, err := app.OpenStore()
	if err != nil {
		return nil, err
	}
	return ds.Candles(ctx, symbol)
}

// DefaultHorizon parses the flag value, falling back to the configured default.
func (app *App) DefaultHorizon(flag string) (models.Horizon, error) {
	if flag == "" {
		flag = app.Config.Strategy.DefaultHorizon
	}
	return models.ParseHorizon(flag)
}

func readCSVFile(output *Output, path string) ([]models.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	candles, report, err := store.ReadCandlesCSV(f)
	if err != nil {
		return nil, apperrors.Wrapf(err, "reading %s", path)
	}
	if report.Dropped > 0 || report.Duplicates > 0 {
		output.Warning("%s: dropped %d incomplete rows, %d duplicate dates", filepath.Base(path), report.Dropped, report.Duplicates)
	}
	return candles, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Pivot Trader v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}
