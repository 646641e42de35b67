package indicators

import (
	"fmt"
	"math"

	"pivot-trader/internal/models"
)

// EWM calculates an exponentially weighted mean with alpha = 2/(span+1),
// seeded with the first value and without bias correction.
func EWM(values []float64, span int) []float64 {
	return EWMAlpha(values, 2/(float64(span)+1))
}

// EWMAlpha calculates an exponentially weighted mean for an explicit alpha.
// Leading NaNs are carried through; the first finite value seeds the average.
func EWMAlpha(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	seeded := false
	var prev float64
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			if seeded {
				out[i] = prev
			}
			continue
		}
		if !seeded {
			prev = v
			seeded = true
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

// RollingMean calculates a simple moving average; the first period-1 values
// are NaN.
func RollingMean(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	var window float64
	for i, v := range values {
		window += v
		if i >= period {
			window -= values[i-period]
		}
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = window / float64(period)
	}
	return out
}

// MACD calculates the MACD histogram.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a new MACD indicator.
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

// DefaultMACD returns the 12/26/9 configuration.
func DefaultMACD() *MACD {
	return NewMACD(12, 26, 9)
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD_%d_%d_%d", m.fastPeriod, m.slowPeriod, m.signalPeriod)
}

// Period returns the number of bars before the signal line is meaningful.
func (m *MACD) Period() int {
	return m.slowPeriod + m.signalPeriod
}

// Calculate returns the histogram (MACD line minus signal line) for every bar.
// Every bar has a value since each average is seeded at the first close.
func (m *MACD) Calculate(candles []models.Candle) ([]float64, error) {
	if m.fastPeriod <= 0 || m.slowPeriod <= 0 || m.signalPeriod <= 0 {
		return nil, ErrInvalidPeriod
	}
	return m.Histogram(ClosePrices(candles)), nil
}

// Histogram computes the MACD histogram of a close series.
func (m *MACD) Histogram(closes []float64) []float64 {
	fast := EWM(closes, m.fastPeriod)
	slow := EWM(closes, m.slowPeriod)

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}
	signal := EWM(line, m.signalPeriod)

	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - signal[i]
	}
	return hist
}

// MACDHistogram computes the 12/26/9 MACD histogram of closes.
func MACDHistogram(closes []float64) []float64 {
	return DefaultMACD().Histogram(closes)
}
