package indicators

import (
	"pivot-trader/internal/models"
)

// Fibonacci ratios applied to the prior period's range.
const (
	fib382 = 0.382
	fib618 = 0.618
	fib100 = 1.000
)

// FibonacciPivots calculates Fibonacci pivot levels from a prior period's
// high, low and close.
func FibonacciPivots(high, low, close float64) models.PivotLevels {
	p := (high + low + close) / 3
	r := high - low
	return models.PivotLevels{
		P:  p,
		R1: p + fib382*r,
		R2: p + fib618*r,
		R3: p + fib100*r,
		S1: p - fib382*r,
		S2: p - fib618*r,
		S3: p - fib100*r,
	}
}

// RoundPivots rounds every level to cents.
func RoundPivots(p models.PivotLevels) models.PivotLevels {
	return models.PivotLevels{
		P:  Round2(p.P),
		R1: Round2(p.R1),
		R2: Round2(p.R2),
		R3: Round2(p.R3),
		S1: Round2(p.S1),
		S2: Round2(p.S2),
		S3: Round2(p.S3),
	}
}
