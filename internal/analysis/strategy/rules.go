package strategy

import (
	"math"

	"pivot-trader/internal/models"
)

// Facts are the zone facts a rule is matched against.
type Facts struct {
	Price   float64
	Pivots  models.PivotLevels
	Context models.OverheatContext

	Top    bool // price >= R2
	Bottom bool // price <= S2
	Mid    bool // S1 < price < R1

	ATR   float64
	ATROK bool
	StopK float64 // stop distance in ATR multiples
}

// NewFacts derives zone facts for a price against unrounded pivots.
func NewFacts(price float64, pivots models.PivotLevels, ctx models.OverheatContext, atr float64, atrOK bool, horizon models.Horizon) Facts {
	return Facts{
		Price:   price,
		Pivots:  pivots,
		Context: ctx,
		Top:     price >= pivots.R2,
		Bottom:  price <= pivots.S2,
		Mid:     pivots.S1 < price && price < pivots.R1,
		ATR:     atr,
		ATROK:   atrOK,
		StopK:   StopMultiple(horizon),
	}
}

// StopMultiple returns the ATR multiple used for stop placement.
func StopMultiple(h models.Horizon) float64 {
	switch h {
	case models.HorizonShort:
		return 0.8
	case models.HorizonLong:
		return 1.3
	}
	return 1.0
}

// PlanTemplate builds an unfiltered plan from zone facts.
type PlanTemplate func(f Facts) models.TradePlan

// EntryFunc picks the entry price of a template.
type EntryFunc func(f Facts) float64

// AtPrice enters at the current close.
func AtPrice(f Facts) float64 { return f.Price }

// AtResistance enters a short no lower than R2.
func AtResistance(f Facts) float64 { return math.Max(f.Pivots.R2, f.Price) }

// AtPivot enters a long no higher than P.
func AtPivot(f Facts) float64 { return math.Min(f.Pivots.P, f.Price) }

// Wait never trades.
func Wait(Facts) models.TradePlan { return models.WaitPlan() }

// ReversalShort fades a move into R2 or R3.
func ReversalShort(entry EntryFunc) PlanTemplate {
	return func(f Facts) models.TradePlan {
		if !f.ATROK {
			return models.WaitPlan()
		}
		p := f.Pivots
		zone, tp1, tp2 := p.R2, math.Max(p.P, p.S1), math.Min(p.S1, p.S2)
		if f.Price >= p.R3 {
			zone, tp1, tp2 = p.R3, p.R2, p.P
		}
		e := entry(f)
		return models.TradePlan{
			Action: models.ActionShort,
			Entry:  e,
			TP1:    tp1,
			TP2:    tp2,
			SL:     math.Max(zone, e) + f.StopK*f.ATR,
		}
	}
}

// ReversalLong buys a move into S2 or S3.
func ReversalLong(entry EntryFunc) PlanTemplate {
	return func(f Facts) models.TradePlan {
		if !f.ATROK {
			return models.WaitPlan()
		}
		p := f.Pivots
		zone, tp1, tp2 := p.S2, math.Min(p.P, p.R1), math.Max(p.R1, p.R2)
		if f.Price <= p.S3 {
			zone, tp1, tp2 = p.S3, p.S2, p.P
		}
		e := entry(f)
		return models.TradePlan{
			Action: models.ActionLong,
			Entry:  e,
			TP1:    tp1,
			TP2:    tp2,
			SL:     math.Min(zone, e) - f.StopK*f.ATR,
		}
	}
}

// PivotLong is the standing contingent long from the pivot towards R1/R2.
func PivotLong(f Facts) models.TradePlan {
	if !f.ATROK {
		return models.WaitPlan()
	}
	e := AtPivot(f)
	return models.TradePlan{
		Action: models.ActionLong,
		Entry:  e,
		TP1:    f.Pivots.R1,
		TP2:    f.Pivots.R2,
		SL:     e - f.StopK*f.ATR,
	}
}

// Rule maps a zone condition to a base and an alternative plan.
type Rule struct {
	Name string
	When func(f Facts) bool
	Base PlanTemplate
	Alt  PlanTemplate
}

func always(Facts) bool { return true }

var ruleTables = map[models.Horizon][]Rule{
	models.HorizonShort: {
		{
			Name: "range",
			When: func(f Facts) bool { return f.Mid && !f.Top && !f.Bottom },
			Base: Wait,
			Alt:  Wait,
		},
		{
			Name: "overheated_top",
			When: func(f Facts) bool { return f.Top && f.Context.Overheat },
			Base: ReversalShort(AtPrice),
			Alt:  Wait,
		},
		{
			Name: "bottom",
			When: func(f Facts) bool { return f.Bottom },
			Base: ReversalLong(AtPrice),
			Alt:  Wait,
		},
		{Name: "default", When: always, Base: Wait, Alt: Wait},
	},
	models.HorizonMid: {
		{
			Name: "overheated_top",
			When: func(f Facts) bool { return f.Context.Overheat && f.Top },
			Base: Wait,
			Alt:  ReversalShort(AtResistance),
		},
		{
			Name: "bottom",
			When: func(f Facts) bool { return f.Bottom },
			Base: ReversalLong(AtPivot),
			Alt:  Wait,
		},
		{Name: "default", When: always, Base: Wait, Alt: PivotLong},
	},
	models.HorizonLong: {
		{
			Name: "overheated",
			When: func(f Facts) bool { return f.Context.Overheat },
			Base: Wait,
			Alt:  ReversalShort(AtResistance),
		},
		{
			Name: "bottom",
			When: func(f Facts) bool { return f.Bottom },
			Base: ReversalLong(AtPivot),
			Alt:  Wait,
		},
		{Name: "default", When: always, Base: Wait, Alt: PivotLong},
	},
}

// Rules returns the rule table of a horizon.
func Rules(h models.Horizon) []Rule {
	return ruleTables[h]
}

// Match returns the first rule whose condition holds. Every table ends with
// an unconditional rule.
func Match(rules []Rule, f Facts) Rule {
	for _, r := range rules {
		if r.When(f) {
			return r
		}
	}
	return Rule{Name: "none", When: always, Base: Wait, Alt: Wait}
}

// roundPlan rounds every price of a plan to cents. Decide rounds before the
// filters run, so reward:risk is judged on the prices that are emitted.
func roundPlan(p models.TradePlan, round func(float64) float64) models.TradePlan {
	if p.Action == models.ActionWait {
		return models.WaitPlan()
	}
	p.Entry = round(p.Entry)
	p.TP1 = round(p.TP1)
	p.TP2 = round(p.TP2)
	p.SL = round(p.SL)
	return p
}
