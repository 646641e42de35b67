// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"pivot-trader/internal/models"
)

// TimeframeDaily is the only timeframe the decision engine consumes.
const TimeframeDaily = "1day"

// DataStore defines the interface for data persistence. It holds inputs
// only: candles, watchlists and the event calendar.
type DataStore interface {
	// Candles
	SaveCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error
	GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Candle, error)
	GetCandlesFreshness(ctx context.Context, symbol, timeframe string) (time.Time, error)
	ListSymbols(ctx context.Context, timeframe string) ([]models.SymbolSummary, error)
	DeleteCandles(ctx context.Context, symbol, timeframe string) (int64, error)
	// Candles returns the full daily history, or ErrDataNotFound when none is stored.
	Candles(ctx context.Context, symbol string) ([]models.Candle, error)

	// Watchlist
	AddToWatchlist(ctx context.Context, symbol, listName string) error
	RemoveFromWatchlist(ctx context.Context, symbol, listName string) error
	GetWatchlist(ctx context.Context, listName string) ([]string, error)
	GetAllWatchlists(ctx context.Context) (map[string][]string, error)

	// Events Calendar
	SaveEvent(ctx context.Context, event *models.MarketEvent) error
	GetEvents(ctx context.Context, symbols []string, from, to time.Time) ([]models.MarketEvent, error)

	// Sync
	GetLastSync(dataType string) time.Time
	SetLastSync(dataType string, t time.Time) error

	// Lifecycle
	Close() error
}
