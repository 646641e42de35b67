package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "pivot-trader/internal/errors"
)

func TestLoadCreatesTemplates(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PIVOT_TRADER_DB", "")
	t.Setenv("PIVOT_TRADER_HORIZON", "")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, name := range []string{"config.toml", "credentials.toml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
	if info, err := os.Stat(filepath.Join(dir, "credentials.toml")); err == nil && info.Mode().Perm() != 0600 {
		t.Errorf("credentials.toml perm = %v, want 0600", info.Mode().Perm())
	}

	if cfg.Strategy.DefaultHorizon != "MID" || cfg.Backtest.TieBreak != "stop_first" {
		t.Errorf("unexpected defaults: %+v %+v", cfg.Strategy, cfg.Backtest)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("read_timeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.Data.DBPath != filepath.Join(dir, "candles.db") {
		t.Errorf("db_path = %q", cfg.Data.DBPath)
	}

	// Second load reads the template it wrote.
	again, err := Load(dir)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if again.Backtest.InitialCapital != 100000 || again.Data.MinBars != 80 {
		t.Errorf("template values not read back: %+v", again)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "sk-test-1234567890")
	t.Setenv("PIVOT_TRADER_DB", "/tmp/other.db")
	t.Setenv("PIVOT_TRADER_HORIZON", "LT")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Credentials.OpenAI.APIKey != "sk-test-1234567890" {
		t.Errorf("api key override not applied")
	}
	if cfg.Data.DBPath != "/tmp/other.db" || cfg.Strategy.DefaultHorizon != "LT" {
		t.Errorf("overrides not applied: %+v %+v", cfg.Data, cfg.Strategy)
	}
	if got := cfg.Credentials.Masked().OpenAI.APIKey; got != "sk-t****7890" {
		t.Errorf("Masked = %q", got)
	}
	if cfg.LLMEnabled() {
		t.Error("LLM should stay off in template mode")
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PIVOT_TRADER_HORIZON", "")
	content := "[backtest]\ntie_break = \"coin_flip\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(dir)
	if !errors.Is(err, apperrors.ErrConfigInvalid) {
		t.Errorf("err = %v, want ErrConfigInvalid", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"auto horizon", func(c *Config) { c.Strategy.DefaultHorizon = "auto" }, true},
		{"bad horizon", func(c *Config) { c.Strategy.DefaultHorizon = "WEEK" }, false},
		{"risk too high", func(c *Config) { c.Backtest.RiskPerTrade = 0.1 }, false},
		{"risk too low", func(c *Config) { c.Backtest.RiskPerTrade = 0.001 }, false},
		{"zero capital", func(c *Config) { c.Backtest.InitialCapital = 0 }, false},
		{"zero workers", func(c *Config) { c.Scan.Workers = 0 }, false},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, false},
		{"bad narration", func(c *Config) { c.Narration.Mode = "poetry" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
