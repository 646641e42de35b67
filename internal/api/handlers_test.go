package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"pivot-trader/internal/analysis/strategy"
	apperrors "pivot-trader/internal/errors"
	"pivot-trader/internal/models"
)

type fakeStore struct {
	candles    map[string][]models.Candle
	watchlists map[string][]string
}

func (f *fakeStore) Candles(_ context.Context, symbol string) ([]models.Candle, error) {
	c, ok := f.candles[symbol]
	if !ok {
		return nil, apperrors.NewDataError("candles", symbol, "no stored bars", apperrors.ErrDataNotFound)
	}
	return c, nil
}

func (f *fakeStore) GetWatchlist(_ context.Context, name string) ([]string, error) {
	return f.watchlists[name], nil
}

// hammerInputs is three ISO weeks ending on a hammer below the prior week's S2.
func hammerInputs() []CandleInput {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var out []CandleInput
	for i := 0; i < 20; i++ {
		ts := start.AddDate(0, 0, i)
		c := CandleInput{Date: ts.Format("2006-01-02")}
		switch d := ts.Day(); {
		case d <= 7:
			c.Open, c.High, c.Low, c.Close = 104, 105, 103, 104
		case d <= 14:
			c.Open, c.High, c.Low, c.Close = 105, 106, 104, 105
			if d == 10 {
				c.High = 110
			}
			if d == 12 {
				c.Low = 100
			}
		case d < 20:
			c.Open, c.High, c.Low, c.Close = 100, 101, 99, 100
		default:
			c.Open, c.High, c.Low, c.Close = 97.5, 98.3, 96, 98
		}
		out = append(out, c)
	}
	return out
}

func waveCandles(n int) []models.Candle {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	prev := 100.0
	for i := range out {
		c := 100 + 10*math.Sin(float64(i)/9) + 0.05*float64(i)
		out[i] = models.Candle{
			Timestamp: start.AddDate(0, 0, i),
			Open:      prev,
			High:      math.Max(prev, c) + 1,
			Low:       math.Min(prev, c) - 1,
			Close:     c,
		}
		prev = c
	}
	return out
}

func inputsOf(candles []models.Candle) []CandleInput {
	out := make([]CandleInput, len(candles))
	for i, c := range candles {
		out[i] = CandleInput{Date: c.Timestamp.Format("2006-01-02"), Open: c.Open, High: c.High, Low: c.Low, Close: c.Close}
	}
	return out
}

func newTestServer(t *testing.T, opts ...HandlerOption) *echo.Echo {
	t.Helper()
	h := NewHandler(strategy.NewEngine(strategy.DefaultOptions()), opts...)
	return NewServer(h, WithRateLimit(0, 0)).Echo()
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, e *echo.Echo, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func errorCodes(t *testing.T, env envelope) []string {
	t.Helper()
	var errs []ValidationError
	if err := json.Unmarshal(env.Data, &errs); err != nil {
		t.Fatalf("decode errors %s: %v", env.Data, err)
	}
	codes := make([]string, len(errs))
	for i, e := range errs {
		codes[i] = e.Code
	}
	return codes
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)
	rec, env := do(t, e, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || env.Status != http.StatusOK {
		t.Fatalf("status = %d/%d, want 200", rec.Code, env.Status)
	}
}

func TestDecision_InlineCandles(t *testing.T) {
	e := newTestServer(t)
	rec, env := do(t, e, http.MethodPost, "/api/v1/decision", map[string]interface{}{
		"horizon": "ST",
		"candles": hammerInputs(),
		"narrate": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp DecisionResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Bars != 20 {
		t.Errorf("bars = %d, want 20", resp.Bars)
	}
	if resp.Decision.Base.Action != models.ActionLong {
		t.Errorf("base = %s, want LONG", resp.Decision.Base.Action)
	}
	if len(resp.Warnings) != 1 {
		t.Errorf("warnings = %v, want one short-history warning", resp.Warnings)
	}
	if !strings.Contains(resp.Narration, "LONG") {
		t.Errorf("narration missing plan: %q", resp.Narration)
	}
}

func TestDecision_AutoResolvesHorizon(t *testing.T) {
	e := newTestServer(t)
	rec, env := do(t, e, http.MethodPost, "/api/v1/decision", map[string]interface{}{
		"candles": inputsOf(waveCandles(200)),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp DecisionResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Decision.Horizon.Valid() {
		t.Errorf("horizon = %q, want a concrete horizon", resp.Decision.Horizon)
	}
	if len(resp.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", resp.Warnings)
	}
}

func TestDecision_Validation(t *testing.T) {
	e := newTestServer(t)

	tests := []struct {
		name     string
		body     map[string]interface{}
		status   int
		wantCode string
	}{
		{"missing symbol and candles", map[string]interface{}{}, http.StatusBadRequest, "ERR_REQUIRED_WITHOUT"},
		{"bad horizon", map[string]interface{}{"symbol": "AAPL", "horizon": "WEEK"}, http.StatusBadRequest, "ERR_ONEOF"},
		{"one candle", map[string]interface{}{"candles": hammerInputs()[:1]}, http.StatusBadRequest, "ERR_MIN"},
		{"no store", map[string]interface{}{"symbol": "AAPL"}, http.StatusBadRequest, "ERR_NO_STORE"},
		{"bad date", map[string]interface{}{"candles": []CandleInput{
			{Date: "yesterday", Open: 1, High: 2, Low: 1, Close: 2},
			{Date: "2024-01-02", Open: 1, High: 2, Low: 1, Close: 2},
		}}, http.StatusBadRequest, "ERR_DATE"},
		{"unordered dates", map[string]interface{}{"candles": []CandleInput{
			{Date: "2024-01-03", Open: 1, High: 2, Low: 1, Close: 2},
			{Date: "2024-01-02", Open: 1, High: 2, Low: 1, Close: 2},
		}}, http.StatusUnprocessableEntity, "ERR_INVALID_CANDLES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, e, http.MethodPost, "/api/v1/decision", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			codes := errorCodes(t, env)
			if len(codes) == 0 || codes[0] != tt.wantCode {
				t.Errorf("codes = %v, want %s", codes, tt.wantCode)
			}
		})
	}
}

func TestDecision_StoredSymbol(t *testing.T) {
	store := &fakeStore{candles: map[string][]models.Candle{"AAPL": waveCandles(120)}}
	e := newTestServer(t, WithStore(store))

	rec, _ := do(t, e, http.MethodPost, "/api/v1/decision", map[string]interface{}{"symbol": "aapl", "horizon": "MID"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec, _ = do(t, e, http.MethodPost, "/api/v1/decision", map[string]interface{}{"symbol": "NOPE"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing symbol status = %d, want 404", rec.Code)
	}
}

func TestBacktest_Inline(t *testing.T) {
	e := newTestServer(t)
	candles := waveCandles(200)

	rec, env := do(t, e, http.MethodPost, "/api/v1/backtest", map[string]interface{}{
		"candles":        inputsOf(candles),
		"horizon":        "ST",
		"include_equity": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp BacktestResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got, want := len(resp.Result.Equity), len(candles)-60; got != want {
		t.Errorf("equity points = %d, want %d", got, want)
	}
	if resp.Stats.TotalTrades != len(resp.Result.Trades) {
		t.Errorf("stats trades = %d, result trades = %d", resp.Stats.TotalTrades, len(resp.Result.Trades))
	}
	if !resp.Stats.FinalCapital.Equal(resp.Result.FinalCapital) {
		t.Errorf("final capital mismatch: %s vs %s", resp.Stats.FinalCapital, resp.Result.FinalCapital)
	}
}

func TestBacktest_OmitsEquityAndRejectsRisk(t *testing.T) {
	e := newTestServer(t)
	body := map[string]interface{}{"candles": inputsOf(waveCandles(100))}

	rec, env := do(t, e, http.MethodPost, "/api/v1/backtest", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp BacktestResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Result.Equity) != 0 {
		t.Errorf("equity should be omitted, got %d points", len(resp.Result.Equity))
	}
	if resp.Result.Horizon != models.HorizonMid {
		t.Errorf("horizon = %s, want MID default", resp.Result.Horizon)
	}

	body["risk_per_trade"] = 0.2
	rec, env = do(t, e, http.MethodPost, "/api/v1/backtest", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if codes := errorCodes(t, env); codes[0] != "ERR_LTE" {
		t.Errorf("codes = %v, want ERR_LTE", codes)
	}
}

func TestScan_WatchlistAndFailures(t *testing.T) {
	store := &fakeStore{
		candles: map[string][]models.Candle{
			"AAPL": waveCandles(150),
			"MSFT": waveCandles(90),
		},
		watchlists: map[string][]string{"core": {"MSFT", "GONE"}},
	}
	e := newTestServer(t, WithStore(store))

	rec, env := do(t, e, http.MethodPost, "/api/v1/scan", map[string]interface{}{
		"symbols":   []string{"aapl", "AAPL"},
		"watchlist": "core",
		"workers":   2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp ScanResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	var symbols []string
	for _, r := range resp.Results {
		symbols = append(symbols, r.Symbol)
	}
	if got := strings.Join(symbols, ","); got != "AAPL,MSFT,GONE" {
		t.Errorf("symbols = %s, want AAPL,MSFT,GONE", got)
	}
	if resp.OK != 2 || resp.Failed != 1 {
		t.Errorf("ok/failed = %d/%d, want 2/1", resp.OK, resp.Failed)
	}
	if resp.Results[2].Error == "" || resp.Results[2].Decision != nil {
		t.Errorf("GONE should carry an error only: %+v", resp.Results[2])
	}
}

func TestScan_RequiresStoreAndSymbols(t *testing.T) {
	rec, _ := do(t, newTestServer(t), http.MethodPost, "/api/v1/scan", map[string]interface{}{"symbols": []string{"AAPL"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("no store status = %d, want 400", rec.Code)
	}

	e := newTestServer(t, WithStore(&fakeStore{}))
	rec, env := do(t, e, http.MethodPost, "/api/v1/scan", map[string]interface{}{"workers": 99, "symbols": []string{"AAPL"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if codes := errorCodes(t, env); codes[0] != "ERR_LTE" {
		t.Errorf("codes = %v, want ERR_LTE", codes)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestServer(t)
	do(t, e, http.MethodPost, "/api/v1/decision", map[string]interface{}{"horizon": "ST", "candles": hammerInputs()})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`pivot_trader_decisions_total{action="LONG",horizon="ST"} 1`,
		`pivot_trader_http_requests_total{method="POST",route="/api/v1/decision",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	if !rl.Allow() || !rl.Allow() {
		t.Fatal("burst of 2 should be allowed")
	}
	if rl.Allow() {
		t.Fatal("third request should be limited")
	}
	now = now.Add(500 * time.Millisecond)
	if rl.Allow() {
		t.Fatal("half a token should not admit a request")
	}
	now = now.Add(500 * time.Millisecond)
	if !rl.Allow() {
		t.Fatal("token should refill after one second")
	}
	now = now.Add(time.Hour)
	if !rl.Allow() || !rl.Allow() || rl.Allow() {
		t.Fatal("refill should be capped at the burst")
	}
}

func TestServer_RateLimited(t *testing.T) {
	h := NewHandler(strategy.NewEngine(strategy.DefaultOptions()))
	e := NewServer(h, WithRateLimit(0.001, 1)).Echo()

	rec, _ := do(t, e, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	rec, env := do(t, e, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if codes := errorCodes(t, env); codes[0] != "ERR_RATE_LIMITED" {
		t.Errorf("codes = %v", codes)
	}
}
