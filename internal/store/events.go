package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"pivot-trader/internal/analysis/strategy"
	"pivot-trader/internal/models"
)

// EventID derives a stable identifier from an event's symbol, type and date,
// so re-importing the same calendar replaces rows instead of duplicating them.
func EventID(e *models.MarketEvent) string {
	key := strings.Join([]string{
		strings.ToUpper(e.Symbol),
		string(e.Type),
		e.Date.Format("2006-01-02"),
	}, "|")
	return strconv.FormatUint(xxhash.Sum64String(key), 16)
}

// LoadBlackoutCalendar builds an event guard from the stored calendar.
// Market-wide events black out every symbol.
func LoadBlackoutCalendar(ctx context.Context, ds DataStore, from, to time.Time) (*strategy.BlackoutCalendar, error) {
	events, err := ds.GetEvents(ctx, nil, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load event calendar: %w", err)
	}

	cal := strategy.NewBlackoutCalendar()
	for _, e := range events {
		if e.Symbol == "" {
			cal.AddDate(e.Date)
			continue
		}
		cal.AddSymbolDate(e.Symbol, e.Date)
	}
	return cal, nil
}
