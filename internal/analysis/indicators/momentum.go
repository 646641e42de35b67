package indicators

import (
	"fmt"
	"math"

	"pivot-trader/internal/models"
)

// RSINeutral is reported when the smoothed loss is zero or no change exists
// yet.
const RSINeutral = 50.0

// RSI calculates the Relative Strength Index with Wilder smoothing
// (alpha = 1/period).
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI_%d", r.period)
}

func (r *RSI) Period() int {
	return r.period
}

func (r *RSI) Calculate(candles []models.Candle) ([]float64, error) {
	if r.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	return WilderRSI(ClosePrices(candles), r.period), nil
}

// WilderRSI calculates RSI over closes. Gains and losses are smoothed from
// the first change onwards. When the smoothed loss is exactly zero, or at the
// first bar, the neutral value 50 is reported.
func WilderRSI(closes []float64, period int) []float64 {
	n := len(closes)
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	gains := make([]float64, n)
	losses := make([]float64, n)
	gains[0], losses[0] = math.NaN(), math.NaN()
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		gains[i] = math.Max(d, 0)
		losses[i] = math.Max(-d, 0)
	}

	alpha := 1 / float64(period)
	avgGain := EWMAlpha(gains, alpha)
	avgLoss := EWMAlpha(losses, alpha)

	for i := range closes {
		if math.IsNaN(avgLoss[i]) || avgLoss[i] == 0 {
			out[i] = RSINeutral
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}
