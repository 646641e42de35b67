package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitStopLoss ExitReason = "stop_loss"
	ExitTarget   ExitReason = "target"
)

// Position is the single open simulated position.
type Position struct {
	Side      Action    `json:"side"`
	Entry     float64   `json:"entry"`
	TP1       float64   `json:"tp1"`
	TP2       float64   `json:"tp2"`
	SL        float64   `json:"sl"`
	Size      int64     `json:"size"`
	EntryDate time.Time `json:"entry_date"`
	TP1Hit    bool      `json:"tp1_hit"`

	// Realized holds PnL booked by partial exits while the position is open.
	Realized decimal.Decimal `json:"realized"`
}

// Half returns half the position size; an odd size yields a fractional unit.
func (p *Position) Half() decimal.Decimal {
	return decimal.NewFromInt(p.Size).Div(decimal.NewFromInt(2))
}

// Remaining returns the units still held.
func (p *Position) Remaining() decimal.Decimal {
	if p.TP1Hit {
		return p.Half()
	}
	return decimal.NewFromInt(p.Size)
}

// Direction returns +1 for LONG and -1 for SHORT.
func (p *Position) Direction() int64 {
	if p.Side == ActionShort {
		return -1
	}
	return 1
}

// BacktestTrade represents a closed simulated trade.
type BacktestTrade struct {
	Side       Action          `json:"side"`
	EntryDate  time.Time       `json:"entry_date"`
	ExitDate   time.Time       `json:"exit_date"`
	Entry      float64         `json:"entry"`
	Exit       float64         `json:"exit"`
	TP1        float64         `json:"tp1"`
	TP2        float64         `json:"tp2"`
	SL         float64         `json:"sl"`
	Size       int64           `json:"size"`
	TP1Hit     bool            `json:"tp1_hit"`
	PnL        decimal.Decimal `json:"pnl"`
	ExitReason ExitReason      `json:"exit_reason"`
}

// IsWin reports whether the trade closed with a positive PnL.
func (t BacktestTrade) IsWin() bool {
	return t.PnL.IsPositive()
}

// EquityPoint is the capital after exits on one simulated bar.
type EquityPoint struct {
	Date    time.Time       `json:"date"`
	Capital decimal.Decimal `json:"capital"`
}
