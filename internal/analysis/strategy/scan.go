package strategy

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"pivot-trader/internal/models"
)

// CandleSource supplies daily history for a symbol.
type CandleSource interface {
	Candles(ctx context.Context, symbol string) ([]models.Candle, error)
}

// CandleSourceFunc adapts a function to CandleSource.
type CandleSourceFunc func(ctx context.Context, symbol string) ([]models.Candle, error)

func (f CandleSourceFunc) Candles(ctx context.Context, symbol string) ([]models.Candle, error) {
	return f(ctx, symbol)
}

// ScanResult is the outcome for one symbol. Err is set instead of Decision
// when the symbol could not be evaluated.
type ScanResult struct {
	Symbol   string           `json:"symbol"`
	Decision *models.Decision `json:"decision,omitempty"`
	Err      error            `json:"-"`
	Error    string           `json:"error,omitempty"`
}

// Scan evaluates many symbols concurrently with at most workers goroutines.
// Results keep the order of symbols. Per-symbol failures are reported in the
// result; only context cancellation fails the scan.
func (e *Engine) Scan(ctx context.Context, src CandleSource, symbols []string, horizon models.Horizon, workers int) ([]ScanResult, error) {
	if workers <= 0 {
		workers = 4
	}
	results := make([]ScanResult, len(symbols))

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		p.Go(func(ctx context.Context) error {
			results[i] = e.scanOne(ctx, src, symbol, horizon)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) scanOne(ctx context.Context, src CandleSource, symbol string, horizon models.Horizon) ScanResult {
	res := ScanResult{Symbol: symbol}
	fail := func(err error) ScanResult {
		res.Err = err
		res.Error = err.Error()
		return res
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	candles, err := src.Candles(ctx, symbol)
	if err != nil {
		return fail(err)
	}
	d, err := e.DecideSymbol(symbol, candles, Resolve(horizon, candles))
	if err != nil {
		return fail(err)
	}
	res.Decision = d
	return res
}
