package indicators

import (
	"fmt"
	"time"

	apperrors "pivot-trader/internal/errors"
	"pivot-trader/internal/models"
)

// AggregationFallback names the step of the aggregation policy that produced
// a prior-period high/low/close.
type AggregationFallback string

const (
	// FallbackNative means the horizon's own bucket had at least two buckets.
	FallbackNative AggregationFallback = "native"
	// FallbackFiner means one step finer bucketing was used.
	FallbackFiner AggregationFallback = "finer"
	// FallbackBar means the second-to-last raw bar was used.
	FallbackBar AggregationFallback = "bar"
)

// Bucket is one resampled period.
type Bucket struct {
	Start time.Time
	End   time.Time
	High  float64
	Low   float64
	Close float64
}

// PeriodHLC is the completed prior period selected for pivot calculation.
type PeriodHLC struct {
	High     float64
	Low      float64
	Close    float64
	Period   models.Period
	Fallback AggregationFallback
}

// bucketKey maps a timestamp onto its calendar bucket.
func bucketKey(t time.Time, period models.Period) int {
	switch period {
	case models.PeriodWeek:
		y, w := t.ISOWeek()
		return y*100 + w
	case models.PeriodMonth:
		return t.Year()*100 + int(t.Month())
	case models.PeriodYear:
		return t.Year()
	}
	return int(t.Unix())
}

// Resample groups candles into calendar buckets: max high, min low, last
// close. Candles must be sorted by date. Empty buckets are never produced.
func Resample(candles []models.Candle, period models.Period) []Bucket {
	var buckets []Bucket
	prevKey := 0
	for i, c := range candles {
		key := bucketKey(c.Timestamp, period)
		if i == 0 || key != prevKey {
			buckets = append(buckets, Bucket{
				Start: c.Timestamp,
				End:   c.Timestamp,
				High:  c.High,
				Low:   c.Low,
				Close: c.Close,
			})
			prevKey = key
			continue
		}
		b := &buckets[len(buckets)-1]
		if c.High > b.High {
			b.High = c.High
		}
		if c.Low < b.Low {
			b.Low = c.Low
		}
		b.Close = c.Close
		b.End = c.Timestamp
	}
	return buckets
}

// BucketCloses returns the last close of every bucket.
func BucketCloses(candles []models.Candle, period models.Period) []float64 {
	buckets := Resample(candles, period)
	closes := make([]float64, len(buckets))
	for i, b := range buckets {
		closes[i] = b.Close
	}
	return closes
}

// AggregatePrevHLC selects the high, low and close of the last completed
// period for the horizon. When the native bucketing yields fewer than two
// buckets it falls back to one step finer, then to the second-to-last bar.
func AggregatePrevHLC(candles []models.Candle, horizon models.Horizon) (PeriodHLC, error) {
	if !horizon.Valid() {
		return PeriodHLC{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidHorizon, horizon)
	}
	if len(candles) < 2 {
		return PeriodHLC{}, fmt.Errorf("%w: need at least 2 bars, got %d", ErrInsufficientData, len(candles))
	}

	native := horizon.BasePeriod()
	if buckets := Resample(candles, native); len(buckets) >= 2 {
		return prevFromBuckets(buckets, native, FallbackNative), nil
	}
	if finer := native.Finer(); finer != "" {
		if buckets := Resample(candles, finer); len(buckets) >= 2 {
			return prevFromBuckets(buckets, finer, FallbackFiner), nil
		}
	}

	bar := candles[len(candles)-2]
	return PeriodHLC{
		High:     bar.High,
		Low:      bar.Low,
		Close:    bar.Close,
		Period:   models.PeriodBar,
		Fallback: FallbackBar,
	}, nil
}

func prevFromBuckets(buckets []Bucket, period models.Period, fallback AggregationFallback) PeriodHLC {
	b := buckets[len(buckets)-2]
	return PeriodHLC{
		High:     b.High,
		Low:      b.Low,
		Close:    b.Close,
		Period:   period,
		Fallback: fallback,
	}
}
