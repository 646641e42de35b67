package models

import "time"

// PivotLevels holds the Fibonacci pivot set of a prior period.
type PivotLevels struct {
	P  float64 `json:"P"`
	R1 float64 `json:"R1"`
	R2 float64 `json:"R2"`
	R3 float64 `json:"R3"`
	S1 float64 `json:"S1"`
	S2 float64 `json:"S2"`
	S3 float64 `json:"S3"`
}

// Level returns a level by name ("P", "R1".."R3", "S1".."S3").
func (p PivotLevels) Level(name string) float64 {
	switch name {
	case "R1":
		return p.R1
	case "R2":
		return p.R2
	case "R3":
		return p.R3
	case "S1":
		return p.S1
	case "S2":
		return p.S2
	case "S3":
		return p.S3
	}
	return p.P
}

// Ordered reports whether S3 <= S2 <= S1 <= P <= R1 <= R2 <= R3.
func (p PivotLevels) Ordered() bool {
	return p.S3 <= p.S2 && p.S2 <= p.S1 && p.S1 <= p.P &&
		p.P <= p.R1 && p.R1 <= p.R2 && p.R2 <= p.R3
}

// OverheatContext describes trend persistence and exhaustion at the last bar.
type OverheatContext struct {
	Overheat     bool       `json:"overheat"`
	HAStreak     int        `json:"ha_streak"`
	HistStreak   int        `json:"hist_streak"`
	AtResistance bool       `json:"at_resistance"`
	PullbackZone [2]float64 `json:"pullback_zone"`
	Flatness     float64    `json:"flatness"`
	Regime       Regime     `json:"regime"`
}

// TradePlan is one recommendation. WAIT plans carry no prices.
type TradePlan struct {
	Action Action  `json:"action"`
	Entry  float64 `json:"entry,omitempty"`
	TP1    float64 `json:"tp1,omitempty"`
	TP2    float64 `json:"tp2,omitempty"`
	SL     float64 `json:"sl,omitempty"`
}

// WaitPlan returns the empty WAIT plan.
func WaitPlan() TradePlan {
	return TradePlan{Action: ActionWait}
}

// IsActionable reports whether the plan is a LONG or SHORT with all prices set.
func (p TradePlan) IsActionable() bool {
	if p.Action != ActionLong && p.Action != ActionShort {
		return false
	}
	return p.Entry != 0 && p.TP1 != 0 && p.TP2 != 0 && p.SL != 0
}

// Features holds indicator readings at the evaluated bar.
type Features struct {
	ATR float64 `json:"atr"`
	RSI float64 `json:"rsi"`
}

// Decision is the output of one decision call.
type Decision struct {
	AsOf     time.Time       `json:"as_of"`
	Price    float64         `json:"price"`
	Horizon  Horizon         `json:"horizon"`
	Period   Period          `json:"period"`
	Pivots   PivotLevels     `json:"pivots"`
	Context  OverheatContext `json:"ctx"`
	Features Features        `json:"features"`
	Base     TradePlan       `json:"base"`
	Alt      TradePlan       `json:"alt"`
}
