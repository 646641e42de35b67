// Package trading provides the walk-forward backtest simulator and its
// reporting.
package trading

import (
	"context"

	"github.com/shopspring/decimal"

	"pivot-trader/internal/models"
)

// BacktestEngine provides backtesting functionality.
type BacktestEngine interface {
	Run(ctx context.Context, candles []models.Candle, config BacktestConfig) (*BacktestResult, error)
}

// Decider produces a decision for the last bar of a history.
type Decider interface {
	Decide(candles []models.Candle, horizon models.Horizon) (*models.Decision, error)
}

// TieBreak resolves a bar that touches both the stop and a target.
type TieBreak string

const (
	// TieBreakStopFirst assumes the stop was hit first.
	TieBreakStopFirst TieBreak = "stop_first"
	// TieBreakTargetFirst assumes targets were hit first, then the stop.
	TieBreakTargetFirst TieBreak = "target_first"
	// TieBreakOpenNearest assumes whichever level is nearer the bar's open
	// was touched first.
	TieBreakOpenNearest TieBreak = "open_nearest"
)

// BacktestConfig represents backtesting configuration.
type BacktestConfig struct {
	Symbol         string         `json:"symbol"`
	Horizon        models.Horizon `json:"horizon" default:"MID" validate:"oneof=ST MID LT AUTO"`
	InitialCapital float64        `json:"initial_capital" default:"100000" validate:"gt=0"`
	RiskPerTrade   float64        `json:"risk_per_trade" default:"0.01" validate:"gte=0.002,lte=0.05"`
	Warmup         int            `json:"warmup" default:"60" validate:"gte=1"`
	TieBreak       TieBreak       `json:"tie_break" default:"stop_first" validate:"oneof=stop_first target_first open_nearest"`
}

// BacktestResult represents backtesting results.
type BacktestResult struct {
	Symbol       string                 `json:"symbol,omitempty"`
	Horizon      models.Horizon         `json:"horizon"`
	Initial      decimal.Decimal        `json:"initial_capital"`
	FinalCapital decimal.Decimal        `json:"final_capital"`
	Equity       []models.EquityPoint   `json:"equity"`
	Trades       []models.BacktestTrade `json:"trades"`
	Open         *models.Position       `json:"open_position,omitempty"`
}
