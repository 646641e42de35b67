package regime

import (
	"math"
	"sort"

	"pivot-trader/internal/analysis/indicators"
	"pivot-trader/internal/models"
)

// Thresholds are the per-horizon overheat requirements.
type Thresholds struct {
	HAStreak   int     // consecutive rising Heikin-Ashi closes
	HistStreak int     // consecutive same-sign MACD histogram bars
	Tolerance  float64 // relative distance counted as "at" a level
}

var thresholds = map[models.Horizon]Thresholds{
	models.HorizonShort: {HAStreak: 4, HistStreak: 4, Tolerance: 0.006},
	models.HorizonMid:   {HAStreak: 5, HistStreak: 6, Tolerance: 0.009},
	models.HorizonLong:  {HAStreak: 6, HistStreak: 8, Tolerance: 0.012},
}

// ThresholdsFor returns the thresholds of a horizon. Unknown horizons get the
// MID thresholds.
func ThresholdsFor(h models.Horizon) Thresholds {
	if t, ok := thresholds[h]; ok {
		return t
	}
	return thresholds[models.HorizonMid]
}

// DetectOverheat measures trend persistence at the last bar against the
// given pivots. The regime is filled in by the caller.
func DetectOverheat(candles []models.Candle, pivots models.PivotLevels, horizon models.Horizon) models.OverheatContext {
	ctx := models.OverheatContext{Regime: models.RegimeFlat}
	if len(candles) == 0 {
		return ctx
	}
	th := ThresholdsFor(horizon)
	price := candles[len(candles)-1].Close

	haCloses := indicators.HACloses(indicators.HeikinAshi(candles))
	ctx.HAStreak = indicators.UpStreak(indicators.Diff(haCloses))

	hist := indicators.MACDHistogram(indicators.ClosePrices(candles))
	histStreak, flatness := indicators.HistogramStreakAndFlatness(hist)
	ctx.HistStreak = histStreak
	ctx.Flatness = indicators.Round(flatness, 6)

	ctx.AtResistance = indicators.Near(price, pivots.R2, th.Tolerance) ||
		indicators.Near(price, pivots.R3, th.Tolerance) ||
		price >= pivots.R2
	ctx.Overheat = ctx.HAStreak >= th.HAStreak && ctx.HistStreak >= th.HistStreak && ctx.AtResistance

	low := pivots.S1
	if price >= pivots.R2 && histStreak >= th.HistStreak+1 {
		low = pivots.S2
	}
	high := math.Max(pivots.P, pivots.S1)
	band := []float64{low, high}
	sort.Float64s(band)
	ctx.PullbackZone = [2]float64{indicators.Round2(band[0]), indicators.Round2(band[1])}

	return ctx
}
