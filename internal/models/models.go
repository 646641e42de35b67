// Package models provides domain models for the trading application.
package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "pivot-trader/internal/errors"
)

// Horizon represents the trading horizon a decision is made for.
type Horizon string

const (
	HorizonShort Horizon = "ST"  // 1-10 days, weekly pivots
	HorizonMid   Horizon = "MID" // 2-8 weeks, monthly pivots
	HorizonLong  Horizon = "LT"  // 1-6 months, yearly pivots
	HorizonAuto  Horizon = "AUTO"
)

// AllHorizons returns the concrete horizons in ascending length.
func AllHorizons() []Horizon {
	return []Horizon{HorizonShort, HorizonMid, HorizonLong}
}

// ParseHorizon parses a horizon name. AUTO is accepted; callers resolve it.
func ParseHorizon(s string) (Horizon, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ST", "SHORT":
		return HorizonShort, nil
	case "MID", "MEDIUM":
		return HorizonMid, nil
	case "LT", "LONG":
		return HorizonLong, nil
	case "", "AUTO":
		return HorizonAuto, nil
	}
	return "", fmt.Errorf("%w: %q (must be ST, MID, LT or AUTO)", apperrors.ErrInvalidHorizon, s)
}

// Valid reports whether h is one of the concrete horizons.
func (h Horizon) Valid() bool {
	return h == HorizonShort || h == HorizonMid || h == HorizonLong
}

// Period represents a resampling bucket.
type Period string

const (
	PeriodBar   Period = "D"
	PeriodWeek  Period = "W"
	PeriodMonth Period = "M"
	PeriodYear  Period = "Y"
)

// Finer returns the next finer bucket, or "" when none exists.
func (p Period) Finer() Period {
	switch p {
	case PeriodYear:
		return PeriodMonth
	case PeriodMonth:
		return PeriodWeek
	}
	return ""
}

// BasePeriod returns the aggregation bucket used for a horizon.
func (h Horizon) BasePeriod() Period {
	switch h {
	case HorizonShort:
		return PeriodWeek
	case HorizonMid:
		return PeriodMonth
	default:
		return PeriodYear
	}
}

// Action represents the direction of a trade plan.
type Action string

const (
	ActionLong  Action = "LONG"
	ActionShort Action = "SHORT"
	ActionWait  Action = "WAIT"
)

// Regime represents the higher-timeframe trend classification.
type Regime string

const (
	RegimeUp   Regime = "UP"
	RegimeDown Regime = "DOWN"
	RegimeFlat Regime = "FLAT"
)

// Candle represents OHLCV data for one daily bar.
type Candle struct {
	Timestamp time.Time `json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume,omitempty"`
}

// Range returns high minus low.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// ValidateCandles checks the ordering and sanity of a price table.
func ValidateCandles(candles []Candle) error {
	for i, c := range candles {
		for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return apperrors.NewPreconditionError("ohlc", i, "price is not finite")
			}
		}
		if c.Close <= 0 {
			return apperrors.NewPreconditionError("close", i, "close must be positive")
		}
		if c.High < c.Low {
			return apperrors.NewPreconditionError("high", i, "high below low")
		}
		if c.Timestamp.IsZero() {
			return apperrors.NewPreconditionError("date", i, "missing date")
		}
		if i > 0 && !c.Timestamp.After(candles[i-1].Timestamp) {
			return apperrors.NewPreconditionError("date", i, "dates must be strictly increasing")
		}
	}
	return nil
}
