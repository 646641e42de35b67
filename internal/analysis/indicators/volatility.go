package indicators

import (
	"fmt"
	"math"

	"pivot-trader/internal/models"
)

// ATR calculates the Average True Range as a simple mean of true range.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator.
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR_%d", a.period)
}

func (a *ATR) Period() int {
	return a.period
}

// Calculate returns ATR for every bar. The first period-1 values are NaN.
// The first true range is high minus low.
func (a *ATR) Calculate(candles []models.Candle) ([]float64, error) {
	if a.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	n := len(candles)
	if n == 0 {
		return nil, ErrInsufficientData
	}

	tr := make([]float64, n)
	tr[0] = candles[0].Range()
	for i := 1; i < n; i++ {
		tr[i] = trueRange(candles[i], candles[i-1])
	}
	return RollingMean(tr, a.period), nil
}

// Last returns the ATR at the final bar and whether it is defined.
func (a *ATR) Last(candles []models.Candle) (float64, bool) {
	values, err := a.Calculate(candles)
	if err != nil {
		return 0, false
	}
	v := Last(values)
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// LastATR returns the 14-period ATR at the final bar.
func LastATR(candles []models.Candle) (float64, bool) {
	return NewATR(14).Last(candles)
}

// RollingStd calculates the sample standard deviation over a trailing
// window; the first period-1 values are NaN.
func RollingStd(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sampleStd(values[i-period+1 : i+1])
	}
	return out
}
