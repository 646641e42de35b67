// Package regime classifies the higher-timeframe trend and detects overheated
// moves into resistance.
package regime

import (
	"math"

	"pivot-trader/internal/analysis/indicators"
	"pivot-trader/internal/models"
)

// Config holds configuration for regime classification.
type Config struct {
	MinBuckets     int     // buckets required before a trend is reported
	MAPeriod       int     // moving average over bucket closes
	SlopeLookback  int     // MA slope is measured against the value this many buckets back
	SlopeThreshold float64 // relative MA change marking a trend
	VolPeriod      int     // window for the close standard deviation
	MaxVolatility  float64 // relative volatility above which no trend is reported
}

// DefaultConfig returns default regime classification configuration.
func DefaultConfig() Config {
	return Config{
		MinBuckets:     60,
		MAPeriod:       50,
		SlopeLookback:  10,
		SlopeThreshold: 0.01,
		VolPeriod:      14,
		MaxVolatility:  0.06,
	}
}

// Reading is the raw slope and volatility behind a classification.
type Reading struct {
	Regime     models.Regime
	Buckets    int
	Slope      float64
	Volatility float64
}

// Classifier classifies the trend of bucketed closes.
type Classifier struct {
	config Config
}

// NewClassifier creates a regime classifier.
func NewClassifier(config Config) *Classifier {
	return &Classifier{config: config}
}

// Classify resamples closes to the horizon's bucket and reports UP, DOWN or
// FLAT. Too few buckets always yields FLAT.
func (c *Classifier) Classify(candles []models.Candle, horizon models.Horizon) models.Regime {
	return c.Read(candles, horizon).Regime
}

// Read returns the classification together with its inputs.
func (c *Classifier) Read(candles []models.Candle, horizon models.Horizon) Reading {
	closes := indicators.BucketCloses(candles, horizon.BasePeriod())
	n := len(closes)
	reading := Reading{Regime: models.RegimeFlat, Buckets: n}
	if n < c.config.MinBuckets || n < c.config.SlopeLookback {
		return reading
	}

	ma := indicators.RollingMean(closes, c.config.MAPeriod)
	prev := ma[n-c.config.SlopeLookback]
	if math.IsNaN(prev) {
		return reading
	}
	reading.Slope = (ma[n-1] - prev) / math.Max(indicators.Epsilon, prev)

	std := indicators.Last(indicators.RollingStd(closes, c.config.VolPeriod))
	reading.Volatility = std / closes[n-1]

	calm := reading.Volatility < c.config.MaxVolatility
	switch {
	case reading.Slope > c.config.SlopeThreshold && calm:
		reading.Regime = models.RegimeUp
	case reading.Slope < -c.config.SlopeThreshold && calm:
		reading.Regime = models.RegimeDown
	}
	return reading
}

// Classify uses the default configuration.
func Classify(candles []models.Candle, horizon models.Horizon) models.Regime {
	return NewClassifier(DefaultConfig()).Classify(candles, horizon)
}
