// Package config provides configuration management for the trading application.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "pivot-trader/internal/errors"
	"pivot-trader/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Data        DataConfig      `mapstructure:"data" json:"data"`
	Strategy    StrategyConfig  `mapstructure:"strategy" json:"strategy"`
	Backtest    BacktestConfig  `mapstructure:"backtest" json:"backtest"`
	Scan        ScanConfig      `mapstructure:"scan" json:"scan"`
	Server      ServerConfig    `mapstructure:"server" json:"server"`
	Narration   NarrationConfig `mapstructure:"narration" json:"narration"`
	Logging     LoggingConfig   `mapstructure:"logging" json:"logging"`
	UI          UIConfig        `mapstructure:"ui" json:"ui"`
	Credentials Credentials     `mapstructure:"-" json:"credentials"` // Loaded separately
}

// DataConfig holds price data settings.
type DataConfig struct {
	DBPath  string `mapstructure:"db_path" json:"db_path"`
	MinBars int    `mapstructure:"min_bars" json:"min_bars"` // warn below this many bars
}

// StrategyConfig holds decision engine settings.
type StrategyConfig struct {
	DefaultHorizon string  `mapstructure:"default_horizon" json:"default_horizon"` // ST, MID, LT, AUTO
	MinRewardRisk  float64 `mapstructure:"min_reward_risk" json:"min_reward_risk"`
	ATRPeriod      int     `mapstructure:"atr_period" json:"atr_period"`
	RSIPeriod      int     `mapstructure:"rsi_period" json:"rsi_period"`
	UseEvents      bool    `mapstructure:"use_events" json:"use_events"` // veto trades on stored calendar dates
}

// BacktestConfig holds simulator defaults.
type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital" json:"initial_capital"`
	RiskPerTrade   float64 `mapstructure:"risk_per_trade" json:"risk_per_trade"`
	Warmup         int     `mapstructure:"warmup" json:"warmup"`
	TieBreak       string  `mapstructure:"tie_break" json:"tie_break"` // stop_first, target_first, open_nearest
}

// ScanConfig holds watchlist scan settings.
type ScanConfig struct {
	Workers int `mapstructure:"workers" json:"workers"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host" json:"host"`
	Port         int           `mapstructure:"port" json:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// NarrationConfig holds narrator settings.
type NarrationConfig struct {
	Mode    string        `mapstructure:"mode" json:"mode"` // template, llm
	Model   string        `mapstructure:"model" json:"model"`
	BaseURL string        `mapstructure:"base_url" json:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `mapstructure:"level" json:"level"`
	File     bool   `mapstructure:"file" json:"file"`
	FilePath string `mapstructure:"file_path" json:"file_path"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled" json:"color_enabled"`
	DateFormat   string `mapstructure:"date_format" json:"date_format"`
}

// Credentials holds API credentials.
type Credentials struct {
	OpenAI OpenAICredentials `mapstructure:"openai" json:"openai"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key" json:"api_key"`
}

// Masked returns a copy safe for display.
func (c Credentials) Masked() Credentials {
	if c.OpenAI.APIKey != "" {
		c.OpenAI.APIKey = maskSecret(c.OpenAI.APIKey)
	}
	return c
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", 4) + s[len(s)-4:]
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/pivot-trader"
	}
	return filepath.Join(home, ".config", "pivot-trader")
}

// ConfigFile returns the path of the main config file.
func ConfigFile(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. Missing files are
// created from templates.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	loadDotEnv(configDir)

	cfg := &Config{}

	// Load main config
	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load credentials
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	if cfg.Data.DBPath == "" {
		cfg.Data.DBPath = filepath.Join(configDir, "candles.db")
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = filepath.Join(configDir, "logs", "trader.log")
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without touching the filesystem.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// loadDotEnv reads .env from the working directory and the config directory.
// Variables already set in the environment win.
func loadDotEnv(configDir string) {
	for _, path := range []string{".env", filepath.Join(configDir, ".env")} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.min_bars", 80)

	v.SetDefault("strategy.default_horizon", "MID")
	v.SetDefault("strategy.min_reward_risk", 2.0)
	v.SetDefault("strategy.atr_period", 14)
	v.SetDefault("strategy.rsi_period", 14)
	v.SetDefault("strategy.use_events", true)

	v.SetDefault("backtest.initial_capital", 100000.0)
	v.SetDefault("backtest.risk_per_trade", 0.01)
	v.SetDefault("backtest.warmup", 60)
	v.SetDefault("backtest.tie_break", "stop_first")

	v.SetDefault("scan.workers", 4)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")

	v.SetDefault("narration.mode", "template")
	v.SetDefault("narration.model", "gpt-4o-mini")
	v.SetDefault("narration.timeout", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", true)

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02")
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		// First run: write the template and continue on defaults.
		if err := createTemplate(configDir, "config.toml", configTemplate, 0644); err != nil {
			return err
		}
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		// Use restricted permissions for credentials file
		return createTemplate(configDir, "credentials.toml", credentialsTemplate, 0600)
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("PIVOT_TRADER_DB"); v != "" {
		cfg.Data.DBPath = v
	}
	if v := os.Getenv("PIVOT_TRADER_HORIZON"); v != "" {
		cfg.Strategy.DefaultHorizon = v
	}
	if v := os.Getenv("PIVOT_TRADER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := models.ParseHorizon(c.Strategy.DefaultHorizon); err != nil {
		return fmt.Errorf("%w: default_horizon: %v", apperrors.ErrConfigInvalid, err)
	}
	if c.Strategy.MinRewardRisk <= 0 {
		return fmt.Errorf("%w: min_reward_risk must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Strategy.ATRPeriod < 1 || c.Strategy.RSIPeriod < 1 {
		return fmt.Errorf("%w: indicator periods must be at least 1", apperrors.ErrConfigInvalid)
	}

	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial_capital must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Backtest.RiskPerTrade < 0.002 || c.Backtest.RiskPerTrade > 0.05 {
		return fmt.Errorf("%w: risk_per_trade must be between 0.002 and 0.05", apperrors.ErrConfigInvalid)
	}
	if c.Backtest.Warmup < 1 {
		return fmt.Errorf("%w: warmup must be at least 1", apperrors.ErrConfigInvalid)
	}
	switch c.Backtest.TieBreak {
	case "stop_first", "target_first", "open_nearest":
	default:
		return fmt.Errorf("%w: invalid tie_break: %s (must be stop_first, target_first or open_nearest)", apperrors.ErrConfigInvalid, c.Backtest.TieBreak)
	}

	if c.Scan.Workers < 1 {
		return fmt.Errorf("%w: scan workers must be at least 1", apperrors.ErrConfigInvalid)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port out of range: %d", apperrors.ErrConfigInvalid, c.Server.Port)
	}

	if c.Narration.Mode != "template" && c.Narration.Mode != "llm" {
		return fmt.Errorf("%w: invalid narration mode: %s (must be 'template' or 'llm')", apperrors.ErrConfigInvalid, c.Narration.Mode)
	}

	return nil
}

// LLMEnabled reports whether model narration is configured and usable.
func (c *Config) LLMEnabled() bool {
	return c.Narration.Mode == "llm" && c.Credentials.OpenAI.APIKey != ""
}
