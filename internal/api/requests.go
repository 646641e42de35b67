package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"pivot-trader/internal/analysis/strategy"
	"pivot-trader/internal/models"
	"pivot-trader/internal/trading"
)

// CandleInput is one daily bar supplied inline with a request.
type CandleInput struct {
	Date   string  `json:"date" validate:"required"`
	Open   float64 `json:"open" validate:"gte=0"`
	High   float64 `json:"high" validate:"gt=0"`
	Low    float64 `json:"low" validate:"gte=0"`
	Close  float64 `json:"close" validate:"gt=0"`
	Volume int64   `json:"volume" validate:"gte=0"`
}

// DecisionRequest asks for a decision on a stored symbol or inline candles.
type DecisionRequest struct {
	Symbol  string        `json:"symbol" validate:"required_without=Candles,max=32"`
	Horizon string        `json:"horizon" default:"AUTO" validate:"oneof=ST MID LT AUTO"`
	Candles []CandleInput `json:"candles" validate:"omitempty,min=2,max=20000,dive"`
	Narrate bool          `json:"narrate"`
}

// DecisionResponse carries a decision and optional narration.
type DecisionResponse struct {
	Symbol    string           `json:"symbol,omitempty"`
	Bars      int              `json:"bars"`
	Decision  *models.Decision `json:"decision"`
	Narration string           `json:"narration,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
}

// BacktestRequest asks for a walk-forward replay.
type BacktestRequest struct {
	Symbol         string        `json:"symbol" validate:"required_without=Candles,max=32"`
	Candles        []CandleInput `json:"candles" validate:"omitempty,min=2,max=20000,dive"`
	Horizon        string        `json:"horizon" default:"MID" validate:"oneof=ST MID LT AUTO"`
	InitialCapital float64       `json:"initial_capital" default:"100000" validate:"gt=0"`
	RiskPerTrade   float64       `json:"risk_per_trade" default:"0.01" validate:"gte=0.002,lte=0.05"`
	Warmup         int           `json:"warmup" default:"60" validate:"gte=1"`
	TieBreak       string        `json:"tie_break" default:"stop_first" validate:"oneof=stop_first target_first open_nearest"`
	IncludeEquity  bool          `json:"include_equity"`
}

// Config converts the request into a simulator configuration.
func (r *BacktestRequest) Config() trading.BacktestConfig {
	return trading.BacktestConfig{
		Symbol:         r.Symbol,
		Horizon:        models.Horizon(r.Horizon),
		InitialCapital: r.InitialCapital,
		RiskPerTrade:   r.RiskPerTrade,
		Warmup:         r.Warmup,
		TieBreak:       trading.TieBreak(r.TieBreak),
	}
}

// BacktestResponse carries the replay result and its summary.
type BacktestResponse struct {
	Result *trading.BacktestResult `json:"result"`
	Stats  trading.Stats           `json:"stats"`
}

// ScanRequest asks for decisions on many stored symbols.
type ScanRequest struct {
	Symbols   []string `json:"symbols" validate:"required_without=Watchlist,max=500,dive,required,max=32"`
	Watchlist string   `json:"watchlist" validate:"max=64"`
	Horizon   string   `json:"horizon" default:"AUTO" validate:"oneof=ST MID LT AUTO"`
	Workers   int      `json:"workers" default:"4" validate:"gte=1,lte=32"`
}

// ScanResponse carries per-symbol results in request order.
type ScanResponse struct {
	Results []strategy.ScanResult `json:"results"`
	OK      int                   `json:"ok"`
	Failed  int                   `json:"failed"`
}

var inputDateLayouts = []string{"2006-01-02", time.RFC3339}

// toCandles converts inline bars. Ordering and price sanity are left to the
// engine's own validation.
func toCandles(inputs []CandleInput) ([]models.Candle, error) {
	candles := make([]models.Candle, 0, len(inputs))
	for i, in := range inputs {
		ts, err := parseInputDate(in.Date)
		if err != nil {
			field := fmt.Sprintf("candles[%d].date", i)
			return nil, NewAppError("ERR_DATE", field, fmt.Sprintf("%s: unrecognized date %q", field, in.Date), http.StatusBadRequest)
		}
		candles = append(candles, models.Candle{
			Timestamp: ts,
			Open:      in.Open,
			High:      in.High,
			Low:       in.Low,
			Close:     in.Close,
			Volume:    in.Volume,
		})
	}
	return candles, nil
}

func parseInputDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range inputDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
