package strategy

import (
	"math"
	"sync"
	"time"

	"pivot-trader/internal/models"
)

// Confirmation candle shape limits.
const (
	minWickRatio = 0.4
	maxBodyRatio = 0.6
)

// EventGuard vetoes trades around scheduled events.
type EventGuard interface {
	Allow(date time.Time, symbol string) bool
}

// AllowAll is an EventGuard that never vetoes.
type AllowAll struct{}

func (AllowAll) Allow(time.Time, string) bool { return true }

// BlackoutCalendar vetoes trades on listed dates, either for every symbol or
// for one symbol.
type BlackoutCalendar struct {
	mu        sync.RWMutex
	global    map[string]struct{}
	perSymbol map[string]map[string]struct{}
}

// NewBlackoutCalendar creates a calendar blacking out the given dates for
// every symbol.
func NewBlackoutCalendar(dates ...time.Time) *BlackoutCalendar {
	c := &BlackoutCalendar{
		global:    make(map[string]struct{}),
		perSymbol: make(map[string]map[string]struct{}),
	}
	for _, d := range dates {
		c.global[dayKey(d)] = struct{}{}
	}
	return c
}

// AddDate blacks out one date for every symbol.
func (c *BlackoutCalendar) AddDate(date time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.global[dayKey(date)] = struct{}{}
}

// AddSymbolDate blacks out one date for one symbol.
func (c *BlackoutCalendar) AddSymbolDate(symbol string, date time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.perSymbol[symbol] == nil {
		c.perSymbol[symbol] = make(map[string]struct{})
	}
	c.perSymbol[symbol][dayKey(date)] = struct{}{}
}

func (c *BlackoutCalendar) Allow(date time.Time, symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := dayKey(date)
	if _, ok := c.global[key]; ok {
		return false
	}
	if _, ok := c.perSymbol[symbol][key]; ok {
		return false
	}
	return true
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// FilterContext is everything a filter may inspect.
type FilterContext struct {
	Plan          models.TradePlan
	Bar           models.Candle
	Symbol        string
	Regime        models.Regime
	MinRewardRisk float64
}

// Filter is one named veto in the pipeline.
type Filter interface {
	Name() string
	Check(fc FilterContext) bool
}

type filterFunc struct {
	name  string
	check func(fc FilterContext) bool
}

func (f filterFunc) Name() string { return f.name }
func (f filterFunc) Check(fc FilterContext) bool { return f.check(fc) }

// NewFilter wraps a function as a named Filter.
func NewFilter(name string, check func(fc FilterContext) bool) Filter {
	return filterFunc{name: name, check: check}
}

// EventsFilter consults the event guard.
func EventsFilter(guard EventGuard) Filter {
	if guard == nil {
		guard = AllowAll{}
	}
	return NewFilter("events", func(fc FilterContext) bool {
		return guard.Allow(fc.Bar.Timestamp, fc.Symbol)
	})
}

// ConfirmationFilter requires a rejection candle on the current bar: a long
// wick against the trade, a small body, and a close in the trade direction.
func ConfirmationFilter() Filter {
	return NewFilter("confirmation", func(fc FilterContext) bool {
		return Confirms(fc.Bar, fc.Plan.Action)
	})
}

// Confirms reports whether bar is a rejection candle for a trade on side.
func Confirms(bar models.Candle, side models.Action) bool {
	rng := bar.Range()
	if rng <= 0 {
		return false
	}
	body := math.Abs(bar.Close - bar.Open)
	if body/rng > maxBodyRatio {
		return false
	}
	switch side {
	case models.ActionLong:
		lower := math.Min(bar.Open, bar.Close) - bar.Low
		return lower/rng >= minWickRatio && bar.Close > bar.Open
	case models.ActionShort:
		upper := bar.High - math.Max(bar.Open, bar.Close)
		return upper/rng >= minWickRatio && bar.Close < bar.Open
	}
	return false
}

// RewardRiskFilter requires the first target to pay at least MinRewardRisk
// times the stop distance.
func RewardRiskFilter() Filter {
	return NewFilter("reward_risk", func(fc FilterContext) bool {
		return RewardRiskOK(fc.Plan, fc.MinRewardRisk)
	})
}

// RewardRiskOK reports whether |tp1-entry| >= min * |entry-sl| with a
// non-zero risk.
func RewardRiskOK(p models.TradePlan, min float64) bool {
	risk := math.Abs(p.Entry - p.SL)
	if risk <= 0 {
		return false
	}
	return math.Abs(p.TP1-p.Entry)/risk >= min
}

// RegimeFilter vetoes trades against the higher-timeframe trend.
func RegimeFilter() Filter {
	return NewFilter("regime", func(fc FilterContext) bool {
		switch fc.Plan.Action {
		case models.ActionLong:
			return fc.Regime != models.RegimeDown
		case models.ActionShort:
			return fc.Regime != models.RegimeUp
		}
		return true
	})
}

// DefaultFilters returns the standard pipeline in evaluation order.
func DefaultFilters(guard EventGuard) []Filter {
	return []Filter{
		EventsFilter(guard),
		ConfirmationFilter(),
		RewardRiskFilter(),
		RegimeFilter(),
	}
}

// ApplyFilters runs the pipeline on a plan. WAIT plans pass through
// unchanged; the first failing filter collapses the plan to WAIT and its
// name is returned.
func ApplyFilters(filters []Filter, fc FilterContext) (models.TradePlan, string) {
	if fc.Plan.Action != models.ActionLong && fc.Plan.Action != models.ActionShort {
		return fc.Plan, ""
	}
	for _, f := range filters {
		if !f.Check(fc) {
			return models.WaitPlan(), f.Name()
		}
	}
	return fc.Plan, ""
}
