package strategy

import (
	"testing"
	"time"

	"pivot-trader/internal/analysis/indicators"
	"pivot-trader/internal/models"
)

func testPivots() models.PivotLevels {
	return indicators.FibonacciPivots(110, 100, 105)
}

func TestMatch_RuleTables(t *testing.T) {
	piv := testPivots()
	hot := models.OverheatContext{Overheat: true}

	tests := []struct {
		name    string
		horizon models.Horizon
		price   float64
		ctx     models.OverheatContext
		want    string
	}{
		{"ST mid range", models.HorizonShort, 105, hot, "range"},
		{"ST overheated top", models.HorizonShort, 112, hot, "overheated_top"},
		{"ST cool top", models.HorizonShort, 112, models.OverheatContext{}, "default"},
		{"ST bottom", models.HorizonShort, 97, models.OverheatContext{}, "bottom"},
		{"MID overheated below top", models.HorizonMid, 110, hot, "default"},
		{"MID overheated top", models.HorizonMid, 112, hot, "overheated_top"},
		{"LT overheated anywhere", models.HorizonLong, 105, hot, "overheated"},
		{"LT bottom", models.HorizonLong, 97, models.OverheatContext{}, "bottom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFacts(tt.price, piv, tt.ctx, 1, true, tt.horizon)
			if got := Match(Rules(tt.horizon), f); got.Name != tt.want {
				t.Errorf("Match() = %s, want %s", got.Name, tt.want)
			}
		})
	}
}

func TestReversalShort_Targets(t *testing.T) {
	piv := testPivots()

	r2 := ReversalShort(AtPrice)(NewFacts(112, piv, models.OverheatContext{}, 2, true, models.HorizonShort))
	if r2.Action != models.ActionShort || r2.TP1 != piv.P || r2.TP2 != piv.S2 {
		t.Errorf("R2 zone plan = %+v", r2)
	}
	if want := 112 + 0.8*2; r2.SL != want {
		t.Errorf("R2 zone SL = %v, want %v", r2.SL, want)
	}

	r3 := ReversalShort(AtResistance)(NewFacts(116, piv, models.OverheatContext{}, 2, true, models.HorizonMid))
	if r3.TP1 != piv.R2 || r3.TP2 != piv.P || r3.Entry != 116 || r3.SL != 118 {
		t.Errorf("R3 zone plan = %+v", r3)
	}
}

func TestReversalLong_Targets(t *testing.T) {
	piv := testPivots()

	s2 := ReversalLong(AtPivot)(NewFacts(97, piv, models.OverheatContext{}, 1, true, models.HorizonLong))
	if s2.Entry != 97 || s2.TP1 != piv.P || s2.TP2 != piv.R2 {
		t.Errorf("S2 zone plan = %+v", s2)
	}
	if want := 97 - 1.3; s2.SL != want {
		t.Errorf("S2 zone SL = %v, want %v", s2.SL, want)
	}

	s3 := ReversalLong(AtPrice)(NewFacts(94, piv, models.OverheatContext{}, 1, true, models.HorizonShort))
	if s3.TP1 != piv.S2 || s3.TP2 != piv.P {
		t.Errorf("S3 zone plan = %+v", s3)
	}
}

func TestPivotLong(t *testing.T) {
	piv := testPivots()
	p := PivotLong(NewFacts(107, piv, models.OverheatContext{}, 2, true, models.HorizonMid))
	want := models.TradePlan{Action: models.ActionLong, Entry: piv.P, TP1: piv.R1, TP2: piv.R2, SL: piv.P - 2}
	if p != want {
		t.Errorf("PivotLong() = %+v, want %+v", p, want)
	}
}

func TestTemplates_UndefinedATRWaits(t *testing.T) {
	f := NewFacts(97, testPivots(), models.OverheatContext{}, 0, false, models.HorizonMid)
	for name, tmpl := range map[string]PlanTemplate{
		"short": ReversalShort(AtPrice),
		"long":  ReversalLong(AtPrice),
		"pivot": PivotLong,
	} {
		if p := tmpl(f); p != models.WaitPlan() {
			t.Errorf("%s: got %+v, want WAIT", name, p)
		}
	}
}

func TestConfirms(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		bar  models.Candle
		side models.Action
		want bool
	}{
		{"hammer long", models.Candle{Timestamp: ts, Open: 97.5, High: 98.3, Low: 96, Close: 98}, models.ActionLong, true},
		{"hammer short", models.Candle{Timestamp: ts, Open: 97.5, High: 98.3, Low: 96, Close: 98}, models.ActionShort, false},
		{"shooting star short", models.Candle{Timestamp: ts, Open: 101, High: 103, Low: 100, Close: 100.5}, models.ActionShort, true},
		{"red hammer long", models.Candle{Timestamp: ts, Open: 98, High: 98.3, Low: 96, Close: 97.5}, models.ActionLong, false},
		{"big body", models.Candle{Timestamp: ts, Open: 96, High: 100, Low: 95.9, Close: 99.9}, models.ActionLong, false},
		{"zero range", models.Candle{Timestamp: ts, Open: 100, High: 100, Low: 100, Close: 100}, models.ActionLong, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Confirms(tt.bar, tt.side); got != tt.want {
				t.Errorf("Confirms() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyFilters(t *testing.T) {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	hammer := models.Candle{Timestamp: ts, Open: 97.5, High: 98.3, Low: 96, Close: 98}
	long := models.TradePlan{Action: models.ActionLong, Entry: 98, TP1: 105, TP2: 111, SL: 95}

	tests := []struct {
		name       string
		plan       models.TradePlan
		regime     models.Regime
		guard      EventGuard
		wantAction models.Action
		wantReason string
	}{
		{"passes", long, models.RegimeFlat, AllowAll{}, models.ActionLong, ""},
		{"wait is a fixed point", models.WaitPlan(), models.RegimeDown, NewBlackoutCalendar(ts), models.ActionWait, ""},
		{"blackout", long, models.RegimeFlat, NewBlackoutCalendar(ts), models.ActionWait, "events"},
		{"poor reward", models.TradePlan{Action: models.ActionLong, Entry: 98, TP1: 99, TP2: 111, SL: 95}, models.RegimeFlat, AllowAll{}, models.ActionWait, "reward_risk"},
		{"against the trend", long, models.RegimeDown, AllowAll{}, models.ActionWait, "regime"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := FilterContext{Plan: tt.plan, Bar: hammer, Regime: tt.regime, MinRewardRisk: DefaultMinRewardRisk}
			got, reason := ApplyFilters(DefaultFilters(tt.guard), fc)
			if got.Action != tt.wantAction || reason != tt.wantReason {
				t.Errorf("ApplyFilters() = (%s, %q), want (%s, %q)", got.Action, reason, tt.wantAction, tt.wantReason)
			}
			if got.Action == models.ActionWait && got != models.WaitPlan() {
				t.Errorf("WAIT plan carries prices: %+v", got)
			}
		})
	}
}

func TestBlackoutCalendar(t *testing.T) {
	day := time.Date(2024, 5, 2, 15, 30, 0, 0, time.UTC)
	cal := NewBlackoutCalendar()
	cal.AddSymbolDate("AAPL", day)

	if cal.Allow(day.Add(-2*time.Hour), "AAPL") {
		t.Error("AAPL should be blacked out for the whole day")
	}
	if !cal.Allow(day, "MSFT") {
		t.Error("MSFT should be allowed")
	}
	if !cal.Allow(day.AddDate(0, 0, 1), "AAPL") {
		t.Error("the next day should be allowed")
	}
}
