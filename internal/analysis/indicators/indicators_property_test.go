package indicators

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"pivot-trader/internal/models"
)

// candleGen generates valid candle data with realistic OHLCV values
func candleGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.Candle{}), map[string]gopter.Gen{
		"Open":   gen.Float64Range(100.0, 1000.0),
		"High":   gen.Float64Range(100.0, 1000.0),
		"Low":    gen.Float64Range(100.0, 1000.0),
		"Close":  gen.Float64Range(100.0, 1000.0),
		"Volume": gen.Int64Range(1000, 10000000),
	}).Map(func(c models.Candle) models.Candle {
		// Ensure OHLC constraints: High >= max(Open, Close) and Low <= min(Open, Close)
		c.High = math.Max(c.High, math.Max(c.Open, c.Close))
		c.Low = math.Min(c.Low, math.Min(c.Open, c.Close))
		return c
	})
}

// candleSliceGen generates a slice of daily candles with increasing dates
func candleSliceGen(minLen, maxLen int) gopter.Gen {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	return gen.SliceOfN(maxLen, candleGen()).SuchThat(func(candles []models.Candle) bool {
		return len(candles) > 0
	}).Map(func(candles []models.Candle) []models.Candle {
		for len(candles) < minLen {
			candles = append(candles, candles[len(candles)-1])
		}
		for i := range candles {
			candles[i].Timestamp = start.AddDate(0, 0, i)
		}
		return candles
	})
}

func TestProperty_PivotOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("S3 <= S2 <= S1 <= P <= R1 <= R2 <= R3 when H >= L", prop.ForAll(
		func(a, b, c float64) bool {
			h, l := math.Max(a, b), math.Min(a, b)
			return FibonacciPivots(h, l, c).Ordered()
		},
		gen.Float64Range(1, 10000),
		gen.Float64Range(1, 10000),
		gen.Float64Range(1, 10000),
	))

	properties.TestingRun(t)
}

func TestProperty_RSIWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("RSI values are within [0, 100]", prop.ForAll(
		func(candles []models.Candle) bool {
			values, err := NewRSI(14).Calculate(candles)
			if err != nil {
				return false
			}
			for _, v := range values {
				if math.IsNaN(v) || v < 0 || v > 100 {
					return false
				}
			}
			return len(values) == len(candles)
		},
		candleSliceGen(1, 60),
	))

	properties.TestingRun(t)
}

func TestProperty_ATRNonNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("ATR is undefined for the first 13 bars and non-negative after", prop.ForAll(
		func(candles []models.Candle) bool {
			values, err := NewATR(14).Calculate(candles)
			if err != nil {
				return false
			}
			for i, v := range values {
				if i < 13 {
					if !math.IsNaN(v) {
						return false
					}
					continue
				}
				if math.IsNaN(v) || v < 0 {
					return false
				}
			}
			return true
		},
		candleSliceGen(1, 50),
	))

	properties.TestingRun(t)
}

func TestProperty_PrevHLCWithinInput(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("selected period has H >= L and lies within the data range", prop.ForAll(
		func(candles []models.Candle, hIdx int) bool {
			horizon := models.AllHorizons()[hIdx]
			hlc, err := AggregatePrevHLC(candles, horizon)
			if err != nil {
				return false
			}
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, c := range candles {
				lo = math.Min(lo, c.Low)
				hi = math.Max(hi, c.High)
			}
			return hlc.High >= hlc.Low && hlc.Low >= lo && hlc.High <= hi
		},
		candleSliceGen(2, 120),
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t)
}

func TestProperty_StreakBoundedByLength(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("streak count never exceeds the number of non-zero values", prop.ForAll(
		func(values []float64) bool {
			count, dir := Streak(values)
			nonZero := 0
			for _, v := range values {
				if v != 0 {
					nonZero++
				}
			}
			if count == 0 {
				return dir == 0
			}
			return count <= nonZero && (dir == 1 || dir == -1)
		},
		gen.SliceOf(gen.Float64Range(-5, 5)),
	))

	properties.TestingRun(t)
}
