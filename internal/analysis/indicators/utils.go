package indicators

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	apperrors "pivot-trader/internal/errors"
	"pivot-trader/internal/models"
)

var (
	// ErrInsufficientData is returned when there's not enough data for calculation.
	ErrInsufficientData = apperrors.ErrInsufficientData
	// ErrInvalidPeriod is returned when the period is invalid.
	ErrInvalidPeriod = fmt.Errorf("%w: invalid period", apperrors.ErrInputValidation)
)

// Epsilon is the floor applied to denominators that may collapse to zero.
const Epsilon = 1e-9

// Round rounds x half away from zero to the given number of decimal places.
// Non-finite values are returned unchanged.
func Round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	f, _ := decimal.NewFromFloat(x).Round(places).Float64()
	return f
}

// Round2 rounds a price to cents.
func Round2(x float64) float64 {
	return Round(x, 2)
}

// Near reports whether x is within a relative tolerance of lvl.
func Near(x, lvl, tol float64) bool {
	return math.Abs(x-lvl)/math.Max(Epsilon, x) <= tol
}

// mean calculates the arithmetic mean of a slice of float64.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// sampleStd calculates the sample standard deviation (n-1 denominator).
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	m := mean(values)
	var variance float64
	for _, v := range values {
		d := v - m
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)-1))
}

// trueRange calculates the true range for a candle.
func trueRange(current, previous models.Candle) float64 {
	highLow := current.Range()
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}

// ClosePrices extracts close prices from candles.
func ClosePrices(candles []models.Candle) []float64 {
	prices := make([]float64, len(candles))
	for i, c := range candles {
		prices[i] = c.Close
	}
	return prices
}

// Last returns the final element of values, or NaN when empty.
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}
