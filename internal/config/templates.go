package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Pivot Trader Configuration

[data]
# SQLite candle store; defaults to candles.db next to this file
# db_path = "/path/to/candles.db"
# Warn when a symbol has fewer daily bars than this
min_bars = 80

[strategy]
# Default horizon: ST, MID, LT or AUTO
default_horizon = "MID"
# Minimum reward:risk to TP2 for a plan to pass
min_reward_risk = 2.0
atr_period = 14
rsi_period = 14
# Veto new trades on dates in the stored event calendar
use_events = true

[backtest]
initial_capital = 100000.0
# Fraction of capital risked per trade (0.002 - 0.05)
risk_per_trade = 0.01
# Bars before the first decision
warmup = 60
# Same-bar stop/target resolution: stop_first, target_first, open_nearest
tie_break = "stop_first"

[scan]
workers = 4

[server]
host = "127.0.0.1"
port = 8080
read_timeout = "30s"
write_timeout = "60s"

[narration]
# template or llm (llm needs an OpenAI key in credentials.toml or OPENAI_API_KEY)
mode = "template"
model = "gpt-4o-mini"
timeout = "30s"

[logging]
level = "info"
file = true

[ui]
color_enabled = true
date_format = "2006-01-02"
`

const credentialsTemplate = `# Pivot Trader Credentials
# Keep this file private (chmod 600).

[openai]
api_key = ""
`

func createTemplate(configDir, name, content string, perm os.FileMode) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name)
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing %s template: %w", name, err)
	}
	return nil
}
