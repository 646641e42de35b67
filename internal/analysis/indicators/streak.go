package indicators

import (
	"math"
)

// flatnessWindow is the number of trailing histogram values used for flatness.
const flatnessWindow = 6

// Diff returns first differences; the result has length n-1.
func Diff(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = values[i] - values[i-1]
	}
	return out
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Streak counts the trailing run of non-zero values that share the sign of
// the most recent non-zero value. Zeros and NaNs are skipped; a sign flip
// ends the run. Returns the count and the run's sign (0 when empty).
func Streak(values []float64) (int, int) {
	count, dir := 0, 0
	for i := len(values) - 1; i >= 0; i-- {
		s := sign(values[i])
		if s == 0 || math.IsNaN(values[i]) {
			continue
		}
		if dir == 0 {
			dir = s
		}
		if s != dir {
			break
		}
		count++
	}
	return count, dir
}

// UpStreak counts only an upward trailing run; a downward run yields 0.
func UpStreak(values []float64) int {
	count, dir := Streak(values)
	if dir > 0 {
		return count
	}
	return 0
}

// HistogramStreakAndFlatness returns the trailing histogram streak regardless
// of sign and the mean absolute change over the trailing six differences.
func HistogramStreakAndFlatness(hist []float64) (int, float64) {
	if len(hist) == 0 {
		return 0, 0
	}
	streak, _ := Streak(hist)

	// The difference series is aligned with hist, its first entry undefined.
	diffs := Diff(hist)
	if len(diffs) > flatnessWindow {
		diffs = diffs[len(diffs)-flatnessWindow:]
	}
	if len(diffs) == 0 {
		return streak, 0
	}
	var total float64
	for _, d := range diffs {
		total += math.Abs(d)
	}
	return streak, total / float64(len(diffs))
}
