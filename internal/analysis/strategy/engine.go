// Package strategy turns price history into pivot-based trade decisions.
package strategy

import (
	"fmt"
	"math"

	"pivot-trader/internal/analysis"
	"pivot-trader/internal/analysis/indicators"
	"pivot-trader/internal/analysis/regime"
	apperrors "pivot-trader/internal/errors"
	"pivot-trader/internal/models"
)

// DefaultMinRewardRisk is the minimum first-target reward per unit of risk.
const DefaultMinRewardRisk = 2.0

// Options configures an Engine.
type Options struct {
	MinRewardRisk float64
	EventGuard    EventGuard
	Regime        regime.Config
	ATRPeriod     int
	RSIPeriod     int
}

// DefaultOptions returns the standard engine options.
func DefaultOptions() Options {
	return Options{
		MinRewardRisk: DefaultMinRewardRisk,
		EventGuard:    AllowAll{},
		Regime:        regime.DefaultConfig(),
		ATRPeriod:     14,
		RSIPeriod:     14,
	}
}

// Engine produces decisions. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	opts       Options
	atr        analysis.Indicator
	rsi        analysis.Indicator
	classifier *regime.Classifier
	filters    []Filter
}

// NewEngine creates a decision engine. Zero option fields take defaults.
func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.MinRewardRisk <= 0 {
		opts.MinRewardRisk = def.MinRewardRisk
	}
	if opts.EventGuard == nil {
		opts.EventGuard = def.EventGuard
	}
	if opts.Regime.MinBuckets == 0 {
		opts.Regime = def.Regime
	}
	if opts.ATRPeriod <= 0 {
		opts.ATRPeriod = def.ATRPeriod
	}
	if opts.RSIPeriod <= 0 {
		opts.RSIPeriod = def.RSIPeriod
	}
	return &Engine{
		opts:       opts,
		atr:        indicators.NewATR(opts.ATRPeriod),
		rsi:        indicators.NewRSI(opts.RSIPeriod),
		classifier: regime.NewClassifier(opts.Regime),
		filters:    DefaultFilters(opts.EventGuard),
	}
}

// Options returns the engine's effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Decide evaluates the last bar of candles for a concrete horizon.
func (e *Engine) Decide(candles []models.Candle, horizon models.Horizon) (*models.Decision, error) {
	return e.DecideSymbol("", candles, horizon)
}

// DecideSymbol is Decide with the symbol passed to the event guard.
func (e *Engine) DecideSymbol(symbol string, candles []models.Candle, horizon models.Horizon) (*models.Decision, error) {
	if !horizon.Valid() {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidHorizon, horizon)
	}
	if len(candles) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 bars, got %d", apperrors.ErrInsufficientData, len(candles))
	}
	if err := models.ValidateCandles(candles); err != nil {
		return nil, err
	}

	hlc, err := indicators.AggregatePrevHLC(candles, horizon)
	if err != nil {
		return nil, err
	}
	pivots := indicators.FibonacciPivots(hlc.High, hlc.Low, hlc.Close)

	last := candles[len(candles)-1]
	price := last.Close

	ctx := regime.DetectOverheat(candles, pivots, horizon)
	ctx.Regime = e.classifier.Classify(candles, horizon)

	atr, atrOK := e.lastValue(e.atr, candles)
	rsi, _ := e.lastValue(e.rsi, candles)

	facts := NewFacts(price, pivots, ctx, atr, atrOK, horizon)
	rule := Match(Rules(horizon), facts)

	fc := FilterContext{
		Bar:           last,
		Symbol:        symbol,
		Regime:        ctx.Regime,
		MinRewardRisk: e.opts.MinRewardRisk,
	}
	fc.Plan = roundPlan(rule.Base(facts), indicators.Round2)
	base, _ := ApplyFilters(e.filters, fc)
	fc.Plan = roundPlan(rule.Alt(facts), indicators.Round2)
	alt, _ := ApplyFilters(e.filters, fc)

	return &models.Decision{
		AsOf:    last.Timestamp,
		Price:   indicators.Round2(price),
		Horizon: horizon,
		Period:  hlc.Period,
		Pivots:  indicators.RoundPivots(pivots),
		Context: ctx,
		Features: models.Features{
			ATR: indicators.Round2(atr),
			RSI: indicators.Round2(rsi),
		},
		Base: base,
		Alt:  alt,
	}, nil
}

// SymbolDecider is an Engine bound to one symbol, so symbol-specific event
// blackouts apply during a replay.
type SymbolDecider struct {
	engine *Engine
	symbol string
}

// ForSymbol binds the engine to a symbol.
func (e *Engine) ForSymbol(symbol string) SymbolDecider {
	return SymbolDecider{engine: e, symbol: symbol}
}

func (d SymbolDecider) Decide(candles []models.Candle, horizon models.Horizon) (*models.Decision, error) {
	return d.engine.DecideSymbol(d.symbol, candles, horizon)
}

// Filters returns the engine's filter pipeline.
func (e *Engine) Filters() []Filter {
	return e.filters
}

func (e *Engine) lastValue(ind analysis.Indicator, candles []models.Candle) (float64, bool) {
	values, err := ind.Calculate(candles)
	if err != nil {
		return 0, false
	}
	v := indicators.Last(values)
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Decide evaluates candles with default options.
func Decide(candles []models.Candle, horizon models.Horizon) (*models.Decision, error) {
	return NewEngine(DefaultOptions()).Decide(candles, horizon)
}
