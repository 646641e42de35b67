package models

import (
	"strings"
	"time"
)

// EventType categorizes a scheduled market event.
type EventType string

const (
	EventEarnings EventType = "EARNINGS"
	EventDividend EventType = "DIVIDEND"
	EventSplit    EventType = "SPLIT"
	EventMacro    EventType = "MACRO"
	EventOther    EventType = "OTHER"
)

// MarketEvent is a scheduled event around which new trades are vetoed.
// An empty Symbol applies the event to every symbol.
type MarketEvent struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol,omitempty"`
	Type        EventType `json:"type"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
}

// SymbolSummary describes the stored history of one symbol.
type SymbolSummary struct {
	Symbol string    `json:"symbol"`
	Bars   int       `json:"bars"`
	First  time.Time `json:"first"`
	Last   time.Time `json:"last"`
}

// ParseEventType parses an event type name; unknown names map to OTHER.
func ParseEventType(s string) EventType {
	switch t := EventType(strings.ToUpper(strings.TrimSpace(s))); t {
	case EventEarnings, EventDividend, EventSplit, EventMacro:
		return t
	}
	return EventOther
}
