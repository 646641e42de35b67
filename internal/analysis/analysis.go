// Package analysis provides technical analysis functionality: indicators,
// regime and overheat detection, and the decision engine.
package analysis

import (
	"pivot-trader/internal/models"
)

// Indicator defines the interface for single-series technical indicators.
type Indicator interface {
	Name() string
	Calculate(candles []models.Candle) ([]float64, error)
	Period() int
}
