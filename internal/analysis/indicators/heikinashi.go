package indicators

import (
	"pivot-trader/internal/models"
)

// HACandle is a Heikin-Ashi smoothed candle. Only open and close are used by
// the overheat detector.
type HACandle struct {
	Open  float64
	Close float64
}

// HeikinAshi converts candles to Heikin-Ashi form. The first HA open is
// seeded with the first HA close.
func HeikinAshi(candles []models.Candle) []HACandle {
	ha := make([]HACandle, len(candles))
	for i, c := range candles {
		ha[i].Close = (c.Open + c.High + c.Low + c.Close) / 4
		if i == 0 {
			ha[i].Open = ha[i].Close
			continue
		}
		ha[i].Open = (ha[i-1].Open + ha[i-1].Close) / 2
	}
	return ha
}

// HACloses extracts the HA close series.
func HACloses(ha []HACandle) []float64 {
	closes := make([]float64, len(ha))
	for i, c := range ha {
		closes[i] = c.Close
	}
	return closes
}
