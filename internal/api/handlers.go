package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"pivot-trader/internal/analysis/strategy"
	"pivot-trader/internal/logging"
	"pivot-trader/internal/models"
	"pivot-trader/internal/narrate"
	"pivot-trader/internal/trading"
)

// CandleStore supplies stored history and named watchlists.
type CandleStore interface {
	strategy.CandleSource
	GetWatchlist(ctx context.Context, listName string) ([]string, error)
}

// Defaults are request defaults taken from configuration.
type Defaults struct {
	Horizon  models.Horizon
	Workers  int
	MinBars  int
	Backtest trading.BacktestConfig
}

// Handler serves the decision, backtest and scan endpoints.
type Handler struct {
	engine   *strategy.Engine
	store    CandleStore
	narrator narrate.Narrator
	metrics  *Metrics
	logger   zerolog.Logger
	defaults Defaults
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithStore lets requests refer to stored symbols and watchlists.
func WithStore(s CandleStore) HandlerOption {
	return func(h *Handler) { h.store = s }
}

// WithNarrator replaces the template narrator.
func WithNarrator(n narrate.Narrator) HandlerOption {
	return func(h *Handler) { h.narrator = n }
}

// WithMetrics sets the metric set. A fresh one is created otherwise.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithHandlerLogger sets the request logger.
func WithHandlerLogger(l zerolog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// WithDefaults sets request defaults.
func WithDefaults(d Defaults) HandlerOption {
	return func(h *Handler) { h.defaults = d }
}

// NewHandler creates a handler around an engine.
func NewHandler(engine *strategy.Engine, opts ...HandlerOption) *Handler {
	h := &Handler{
		engine:   engine,
		narrator: narrate.NewTemplateNarrator(),
		logger:   zerolog.Nop(),
		defaults: Defaults{
			Horizon: models.HorizonAuto,
			Workers: 4,
			MinBars: 80,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = NewMetrics()
	}
	return h
}

// Metrics returns the handler's metric set.
func (h *Handler) Metrics() *Metrics {
	return h.metrics
}

// Register mounts the routes on e.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.GET("/metrics", h.metrics.Handler())

	v1 := e.Group("/api/v1")
	v1.POST("/decision", h.Decision)
	v1.POST("/backtest", h.Backtest)
	v1.POST("/scan", h.Scan)
}

// Health reports liveness.
func (h *Handler) Health(c echo.Context) error {
	return SuccessResponse(c, map[string]interface{}{
		"store": h.store != nil,
		"time":  time.Now().UTC().Format(time.RFC3339),
	})
}

// Decision handles POST /api/v1/decision.
func (h *Handler) Decision(c echo.Context) error {
	req := DecisionRequest{Horizon: string(h.defaults.Horizon)}
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return BadRequestResponse(c, errs)
	}

	ctx := c.Request().Context()
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	candles, err := h.loadCandles(ctx, symbol, req.Candles)
	if err != nil {
		return AppErrorResponse(c, err)
	}

	horizon := strategy.Resolve(models.Horizon(req.Horizon), candles)
	d, err := h.engine.DecideSymbol(symbol, candles, horizon)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	h.metrics.ObserveDecision(d)
	logging.LogDecision(h.logger, symbol, d)

	resp := DecisionResponse{Symbol: symbol, Bars: len(candles), Decision: d}
	if h.defaults.MinBars > 0 && len(candles) < h.defaults.MinBars {
		resp.Warnings = append(resp.Warnings,
			fmt.Sprintf("only %d bars; at least %d recommended", len(candles), h.defaults.MinBars))
	}
	if req.Narrate {
		text, err := h.narrator.Narrate(ctx, symbol, d)
		if err != nil {
			return AppErrorResponse(c, err)
		}
		resp.Narration = text
	}
	return SuccessResponse(c, resp)
}

// Backtest handles POST /api/v1/backtest.
func (h *Handler) Backtest(c echo.Context) error {
	def := h.defaults.Backtest
	req := BacktestRequest{
		Horizon:        string(def.Horizon),
		InitialCapital: def.InitialCapital,
		RiskPerTrade:   def.RiskPerTrade,
		Warmup:         def.Warmup,
		TieBreak:       string(def.TieBreak),
	}
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return BadRequestResponse(c, errs)
	}

	ctx := c.Request().Context()
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	candles, err := h.loadCandles(ctx, req.Symbol, req.Candles)
	if err != nil {
		return AppErrorResponse(c, err)
	}

	start := time.Now()
	result, err := trading.NewSimulator(h.engine.ForSymbol(req.Symbol)).Run(ctx, candles, req.Config())
	if err != nil {
		return AppErrorResponse(c, err)
	}
	elapsed := time.Since(start)
	h.metrics.ObserveBacktest(result.Trades, elapsed)
	logging.LogBacktest(h.logger, req.Symbol, result.Horizon, len(result.Trades), result.FinalCapital, elapsed)

	stats := trading.Summarize(result)
	if !req.IncludeEquity {
		result.Equity = nil
	}
	return SuccessResponse(c, BacktestResponse{Result: result, Stats: stats})
}

// Scan handles POST /api/v1/scan.
func (h *Handler) Scan(c echo.Context) error {
	req := ScanRequest{Horizon: string(h.defaults.Horizon), Workers: h.defaults.Workers}
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return BadRequestResponse(c, errs)
	}
	if h.store == nil {
		return AppErrorResponse(c, errNoStore)
	}

	ctx := c.Request().Context()
	symbols := normalizeSymbols(req.Symbols)
	if req.Watchlist != "" {
		listed, err := h.store.GetWatchlist(ctx, req.Watchlist)
		if err != nil {
			return AppErrorResponse(c, err)
		}
		symbols = normalizeSymbols(append(symbols, listed...))
	}
	if len(symbols) == 0 {
		return AppErrorResponse(c, NewAppError("ERR_EMPTY_SCAN", "symbols", "no symbols to scan", http.StatusBadRequest))
	}

	start := time.Now()
	results, err := h.engine.Scan(ctx, h.store, symbols, models.Horizon(req.Horizon), req.Workers)
	if err != nil {
		return AppErrorResponse(c, err)
	}

	resp := ScanResponse{Results: results}
	for _, r := range results {
		if r.Err != nil {
			resp.Failed++
			continue
		}
		resp.OK++
		h.metrics.ObserveDecision(r.Decision)
	}
	h.metrics.ObserveScan(resp.OK, resp.Failed)
	logging.LogScan(h.logger, len(symbols), resp.Failed, time.Since(start))
	return SuccessResponse(c, resp)
}

var errNoStore = NewAppError("ERR_NO_STORE", "symbol", "no candle store configured; send candles inline", http.StatusBadRequest)

// loadCandles prefers inline bars and falls back to the store.
func (h *Handler) loadCandles(ctx context.Context, symbol string, inline []CandleInput) ([]models.Candle, error) {
	if len(inline) > 0 {
		return toCandles(inline)
	}
	if h.store == nil {
		return nil, errNoStore
	}
	return h.store.Candles(ctx, symbol)
}

// normalizeSymbols upper-cases symbols and drops blanks and repeats,
// keeping first-seen order.
func normalizeSymbols(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
