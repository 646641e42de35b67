package indicators

import (
	"errors"
	"math"
	"testing"
	"time"

	apperrors "pivot-trader/internal/errors"
	"pivot-trader/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func bar(ts time.Time, o, h, l, c float64) models.Candle {
	return models.Candle{Timestamp: ts, Open: o, High: h, Low: l, Close: c}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFibonacciPivots(t *testing.T) {
	p := FibonacciPivots(110, 100, 105)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"P", Round2(p.P), 105.00},
		{"R1", Round2(p.R1), 108.82},
		{"R2", Round2(p.R2), 111.18},
		{"R3", Round2(p.R3), 115.00},
		{"S1", Round2(p.S1), 101.18},
		{"S2", Round2(p.S2), 98.82},
		{"S3", Round2(p.S3), 95.00},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestFibonacciPivots_ZeroRange(t *testing.T) {
	p := FibonacciPivots(50, 50, 50)
	for _, name := range []string{"P", "R1", "R2", "R3", "S1", "S2", "S3"} {
		if p.Level(name) != 50 {
			t.Errorf("%s = %v, want 50", name, p.Level(name))
		}
	}
}

func TestAggregatePrevHLC_Weekly(t *testing.T) {
	// Mon 2024-01-01 .. Wed 2024-01-10 spans ISO weeks 1 and 2.
	var candles []models.Candle
	for i := 0; i < 10; i++ {
		ts := day(2024, 1, 1).AddDate(0, 0, i)
		candles = append(candles, bar(ts, 100, 100+float64(i), 90-float64(i), 95+float64(i)))
	}

	hlc, err := AggregatePrevHLC(candles, models.HorizonShort)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hlc.Fallback != FallbackNative || hlc.Period != models.PeriodWeek {
		t.Fatalf("got %s/%s, want native/W", hlc.Fallback, hlc.Period)
	}
	// Week one: days 0..6.
	if hlc.High != 106 || hlc.Low != 84 || hlc.Close != 101 {
		t.Errorf("got H=%v L=%v C=%v", hlc.High, hlc.Low, hlc.Close)
	}
}

func TestAggregatePrevHLC_Fallbacks(t *testing.T) {
	// Two months inside one year: yearly falls back to monthly.
	candles := []models.Candle{
		bar(day(2024, 1, 30), 10, 12, 9, 11),
		bar(day(2024, 1, 31), 11, 13, 10, 12),
		bar(day(2024, 2, 1), 12, 14, 11, 13),
	}
	hlc, err := AggregatePrevHLC(candles, models.HorizonLong)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hlc.Fallback != FallbackFiner || hlc.Period != models.PeriodMonth {
		t.Fatalf("got %s/%s, want finer/M", hlc.Fallback, hlc.Period)
	}
	if hlc.High != 13 || hlc.Low != 9 || hlc.Close != 12 {
		t.Errorf("got H=%v L=%v C=%v", hlc.High, hlc.Low, hlc.Close)
	}

	// Two bars in one ISO week: weekly has no finer step, raw bar is used.
	week := []models.Candle{
		bar(day(2024, 1, 2), 10, 12, 9, 11),
		bar(day(2024, 1, 3), 11, 13, 10, 12),
	}
	hlc, err = AggregatePrevHLC(week, models.HorizonShort)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hlc.Fallback != FallbackBar || hlc.High != 12 || hlc.Low != 9 || hlc.Close != 11 {
		t.Errorf("got %+v, want second-to-last bar", hlc)
	}
}

func TestAggregatePrevHLC_Errors(t *testing.T) {
	one := []models.Candle{bar(day(2024, 1, 2), 1, 1, 1, 1)}
	if _, err := AggregatePrevHLC(one, models.HorizonMid); !errors.Is(err, apperrors.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := AggregatePrevHLC(one, models.HorizonAuto); !errors.Is(err, apperrors.ErrInvalidHorizon) {
		t.Errorf("expected ErrInvalidHorizon, got %v", err)
	}
}

func TestHeikinAshi(t *testing.T) {
	candles := []models.Candle{
		bar(day(2024, 1, 1), 10, 14, 8, 12),
		bar(day(2024, 1, 2), 12, 16, 11, 15),
	}
	ha := HeikinAshi(candles)
	if ha[0].Close != 11 || ha[0].Open != 11 {
		t.Errorf("first HA candle = %+v, want open=close=11", ha[0])
	}
	if ha[1].Close != 13.5 || ha[1].Open != 11 {
		t.Errorf("second HA candle = %+v, want open=11 close=13.5", ha[1])
	}
}

func TestStreak(t *testing.T) {
	tests := []struct {
		name      string
		values    []float64
		wantCount int
		wantSign  int
	}{
		{"empty", nil, 0, 0},
		{"all zero", []float64{0, 0}, 0, 0},
		{"rising", []float64{-1, 1, 2, 3}, 3, 1},
		{"zeros skipped", []float64{1, 0, 2, 0}, 2, 1},
		{"falling", []float64{1, -1, -2}, 2, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, sign := Streak(tt.values)
			if count != tt.wantCount || sign != tt.wantSign {
				t.Errorf("Streak() = (%d, %d), want (%d, %d)", count, sign, tt.wantCount, tt.wantSign)
			}
		})
	}

	if got := UpStreak([]float64{1, -1, -2}); got != 0 {
		t.Errorf("UpStreak on a falling run = %d, want 0", got)
	}
}

func TestHistogramStreakAndFlatness(t *testing.T) {
	streak, flat := HistogramStreakAndFlatness([]float64{-3, -2, -1})
	if streak != 3 {
		t.Errorf("streak = %d, want 3", streak)
	}
	if !almostEqual(flat, 1) {
		t.Errorf("flatness = %v, want 1", flat)
	}

	// Only the trailing six differences count.
	streak, flat = HistogramStreakAndFlatness([]float64{100, 1, 2, 3, 4, 5, 6, 7})
	if streak != 8 || !almostEqual(flat, 1) {
		t.Errorf("got (%d, %v), want (8, 1)", streak, flat)
	}

	streak, flat = HistogramStreakAndFlatness(nil)
	if streak != 0 || flat != 0 {
		t.Errorf("empty histogram = (%d, %v), want (0, 0)", streak, flat)
	}
}

func TestEWM(t *testing.T) {
	got := EWM([]float64{1, 2, 3}, 3)
	want := []float64{1, 1.5, 2.25}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("EWM[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWilderRSI_RisingSeriesIsNeutral(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rsi := WilderRSI(closes, 14)
	for i, v := range rsi {
		if v != RSINeutral {
			t.Fatalf("RSI[%d] = %v, want %v", i, v, RSINeutral)
		}
	}
}

func TestWilderRSI_Falling(t *testing.T) {
	closes := []float64{10, 9, 8, 7}
	rsi := WilderRSI(closes, 14)
	if rsi[0] != RSINeutral {
		t.Errorf("RSI[0] = %v, want neutral", rsi[0])
	}
	if rsi[3] != 0 {
		t.Errorf("RSI on a falling series = %v, want 0", rsi[3])
	}
}

func TestATR(t *testing.T) {
	var candles []models.Candle
	for i := 0; i < 20; i++ {
		candles = append(candles, bar(day(2024, 1, 1).AddDate(0, 0, i), 100, 102, 98, 100))
	}
	v, ok := LastATR(candles)
	if !ok || !almostEqual(v, 4) {
		t.Errorf("LastATR() = (%v, %v), want (4, true)", v, ok)
	}
	if _, ok := LastATR(candles[:13]); ok {
		t.Error("ATR should be undefined with fewer than 14 bars")
	}
}

func TestRollingStd(t *testing.T) {
	got := RollingStd([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)
	if !math.IsNaN(got[6]) {
		t.Errorf("expected NaN before the window fills")
	}
	if !almostEqual(got[7], math.Sqrt(32.0/7.0)) {
		t.Errorf("sample std = %v", got[7])
	}
}

func TestNearAndRound(t *testing.T) {
	if !Near(100, 100.5, 0.006) {
		t.Error("100 should be near 100.5 at 0.6%")
	}
	if Near(100, 101, 0.006) {
		t.Error("100 should not be near 101 at 0.6%")
	}
	if got := Round2(1.005); got != 1.01 {
		t.Errorf("Round2(1.005) = %v, want 1.01", got)
	}
}
