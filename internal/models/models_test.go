package models

import (
	"errors"
	"math"
	"testing"
	"time"

	apperrors "pivot-trader/internal/errors"
)

func TestCandleRange(t *testing.T) {
	c := Candle{Open: 100, High: 104.5, Low: 98.25, Close: 101}
	if got := c.Range(); got != 6.25 {
		t.Errorf("Range() = %v, want 6.25", got)
	}
}

func TestParseHorizon(t *testing.T) {
	tests := []struct {
		in   string
		want Horizon
	}{
		{"st", HorizonShort},
		{" MID ", HorizonMid},
		{"long", HorizonLong},
		{"", HorizonAuto},
	}
	for _, tt := range tests {
		got, err := ParseHorizon(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseHorizon(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseHorizon("weekly"); !errors.Is(err, apperrors.ErrInvalidHorizon) {
		t.Errorf("err = %v, want ErrInvalidHorizon", err)
	}
}

func TestValidateCandles(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	good := Candle{Timestamp: day(2), Open: 10, High: 11, Low: 9, Close: 10}

	tests := []struct {
		name  string
		bad   Candle
		field string
	}{
		{"nan", Candle{Timestamp: day(3), Open: math.NaN(), High: 11, Low: 9, Close: 10}, "ohlc"},
		{"non-positive close", Candle{Timestamp: day(3), Open: 10, High: 11, Low: 9, Close: 0}, "close"},
		{"high below low", Candle{Timestamp: day(3), Open: 10, High: 8, Low: 9, Close: 10}, "high"},
		{"repeated date", Candle{Timestamp: day(2), Open: 10, High: 11, Low: 9, Close: 10}, "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCandles([]Candle{good, tt.bad})
			var pre *apperrors.PreconditionError
			if !errors.As(err, &pre) || pre.Field != tt.field || pre.Index != 1 {
				t.Errorf("err = %v, want precondition on %s at 1", err, tt.field)
			}
		})
	}
	if err := ValidateCandles([]Candle{good}); err != nil {
		t.Errorf("valid table rejected: %v", err)
	}
}
