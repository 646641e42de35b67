package api

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pivot-trader/internal/models"
)

// Metrics records request and domain metrics on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        *prometheus.GaugeVec

	decisionsTotal  *prometheus.CounterVec
	backtestTrades  *prometheus.CounterVec
	backtestSeconds prometheus.Histogram
	scanSymbols     *prometheus.CounterVec
}

// NewMetrics creates the metric set and registers it with a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pivot_trader_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pivot_trader_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method", "class"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pivot_trader_http_in_flight_requests",
				Help: "Current number of in-flight HTTP requests",
			},
			[]string{"route"},
		),
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pivot_trader_decisions_total",
				Help: "Decisions produced, by horizon and base action",
			},
			[]string{"horizon", "action"},
		),
		backtestTrades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pivot_trader_backtest_trades_total",
				Help: "Closed backtest trades, by exit reason",
			},
			[]string{"reason"},
		),
		backtestSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pivot_trader_backtest_duration_seconds",
				Help:    "Backtest run time in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		scanSymbols: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pivot_trader_scan_symbols_total",
				Help: "Symbols evaluated by scans, by outcome",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(
		m.requestsTotal, m.requestDuration, m.inFlight,
		m.decisionsTotal, m.backtestTrades, m.backtestSeconds, m.scanSymbols,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latency. Routes are labelled by
// their template path to keep cardinality low.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.inFlight.WithLabelValues(route).Inc()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			m.inFlight.WithLabelValues(route).Dec()
			m.requestsTotal.WithLabelValues(route, c.Request().Method, strconv.Itoa(status)).Inc()
			m.requestDuration.WithLabelValues(route, c.Request().Method, statusClass(status)).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// ObserveDecision counts a decision.
func (m *Metrics) ObserveDecision(d *models.Decision) {
	m.decisionsTotal.WithLabelValues(string(d.Horizon), string(d.Base.Action)).Inc()
}

// ObserveBacktest counts closed trades and records run time.
func (m *Metrics) ObserveBacktest(trades []models.BacktestTrade, elapsed time.Duration) {
	for _, t := range trades {
		m.backtestTrades.WithLabelValues(string(t.ExitReason)).Inc()
	}
	m.backtestSeconds.Observe(elapsed.Seconds())
}

// ObserveScan counts evaluated and failed symbols.
func (m *Metrics) ObserveScan(ok, failed int) {
	m.scanSymbols.WithLabelValues("ok").Add(float64(ok))
	m.scanSymbols.WithLabelValues("failed").Add(float64(failed))
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
