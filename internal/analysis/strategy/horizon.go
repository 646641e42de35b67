package strategy

import (
	"math"

	"pivot-trader/internal/analysis/indicators"
	"pivot-trader/internal/models"
)

// horizonLookback is the window of closes used to place the price in its
// recent range.
const horizonLookback = 60

// RangePosition returns where the last close sits within the trailing
// 60-bar close range, in [0, 1]. ok is false with fewer than 60 bars.
func RangePosition(candles []models.Candle) (float64, bool) {
	if len(candles) < horizonLookback {
		return 0, false
	}
	window := candles[len(candles)-horizonLookback:]
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range window {
		lo = math.Min(lo, c.Close)
		hi = math.Max(hi, c.Close)
	}
	last := window[len(window)-1].Close
	return (last - lo) / math.Max(indicators.Epsilon, hi-lo), true
}

// ResolveHorizon picks a horizon for AUTO requests: extremes of the range
// favour LT, the middle favours MID, the shoulders ST. Short histories
// default to MID.
func ResolveHorizon(candles []models.Candle) models.Horizon {
	pos, ok := RangePosition(candles)
	if !ok {
		return models.HorizonMid
	}
	switch {
	case pos > 0.85 || pos < 0.15:
		return models.HorizonLong
	case pos > 0.25 && pos < 0.75:
		return models.HorizonMid
	}
	return models.HorizonShort
}

// Resolve returns h unchanged unless it is AUTO.
func Resolve(h models.Horizon, candles []models.Candle) models.Horizon {
	if h == models.HorizonAuto {
		return ResolveHorizon(candles)
	}
	return h
}
