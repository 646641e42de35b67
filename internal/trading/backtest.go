package trading

import (
	"context"
	"fmt"
	"math"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"pivot-trader/internal/analysis/strategy"
	apperrors "pivot-trader/internal/errors"
	"pivot-trader/internal/models"
)

var validate = validator.New()

// Simulator replays decisions bar by bar over history, holding at most one
// position.
type Simulator struct {
	decider Decider
}

// NewSimulator creates a simulator driven by decider.
func NewSimulator(decider Decider) *Simulator {
	return &Simulator{decider: decider}
}

// PrepareConfig fills defaults and validates a configuration.
func PrepareConfig(config *BacktestConfig) error {
	if err := defaults.Set(config); err != nil {
		return fmt.Errorf("applying defaults: %w", err)
	}
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInputValidation, err)
	}
	return nil
}

// backtestState holds the state during backtesting.
type backtestState struct {
	capital  decimal.Decimal
	position *models.Position
	trades   []models.BacktestTrade
}

// Run executes a backtest. For each bar from the warmup onwards the decision
// sees only history up to and including that bar. Exits on the bar are
// processed before any entry. An AUTO horizon is resolved bar by bar.
func (s *Simulator) Run(ctx context.Context, candles []models.Candle, config BacktestConfig) (*BacktestResult, error) {
	if err := PrepareConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := models.ValidateCandles(candles); err != nil {
		return nil, err
	}

	initial := decimal.NewFromFloat(config.InitialCapital)
	state := &backtestState{capital: initial}
	result := &BacktestResult{
		Symbol:  config.Symbol,
		Horizon: config.Horizon,
		Initial: initial,
		Equity:  make([]models.EquityPoint, 0, max(0, len(candles)-config.Warmup)),
		Trades:  make([]models.BacktestTrade, 0),
	}

	for i := config.Warmup; i < len(candles); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		window := candles[:i+1]
		bar := candles[i]

		if state.position != nil {
			s.processExits(state, bar, config.TieBreak)
		}

		horizon := strategy.Resolve(config.Horizon, window)
		d, err := s.decider.Decide(window, horizon)
		if err != nil {
			return nil, fmt.Errorf("deciding bar %d (%s): %w", i, bar.Timestamp.Format("2006-01-02"), err)
		}

		if state.position == nil && d.Base.IsActionable() {
			if err := s.openPosition(state, d.Base, bar, config.RiskPerTrade); err != nil {
				return nil, err
			}
		}

		result.Equity = append(result.Equity, models.EquityPoint{
			Date:    bar.Timestamp,
			Capital: state.capital,
		})
	}

	result.Trades = state.trades
	result.FinalCapital = state.capital
	result.Open = state.position
	return result, nil
}

// openPosition sizes and opens a position from a plan. Opening while a
// position is held is an internal consistency failure.
func (s *Simulator) openPosition(state *backtestState, plan models.TradePlan, bar models.Candle, riskPerTrade float64) error {
	if state.position != nil {
		return apperrors.NewConsistencyError("simulator", "open requested while a position is held")
	}
	size, ok := PositionSize(state.capital, riskPerTrade, plan.Entry, plan.SL)
	if !ok {
		return nil
	}
	state.position = &models.Position{
		Side:      plan.Action,
		Entry:     plan.Entry,
		TP1:       plan.TP1,
		TP2:       plan.TP2,
		SL:        plan.SL,
		Size:      size,
		EntryDate: bar.Timestamp,
		Realized:  decimal.Zero,
	}
	return nil
}

// PositionSize risks capital*riskPerTrade over the entry-to-stop distance.
// At least one unit is always taken; ok is false when the distance is zero.
func PositionSize(capital decimal.Decimal, riskPerTrade, entry, sl float64) (int64, bool) {
	perUnit := decimal.NewFromFloat(entry).Sub(decimal.NewFromFloat(sl)).Abs()
	if perUnit.IsZero() {
		return 0, false
	}
	risk := capital.Mul(decimal.NewFromFloat(riskPerTrade))
	size := risk.Div(perUnit).Floor().IntPart()
	if size < 1 {
		size = 1
	}
	return size, true
}

// processExits applies stop and target fills of bar to the open position.
func (s *Simulator) processExits(state *backtestState, bar models.Candle, tieBreak TieBreak) {
	pos := state.position
	long := pos.Side == models.ActionLong

	stopHit := bar.High >= pos.SL
	reached := func(level float64) bool { return bar.Low <= level }
	if long {
		stopHit = bar.Low <= pos.SL
		reached = func(level float64) bool { return bar.High >= level }
	}

	nextTarget := pos.TP1
	if pos.TP1Hit {
		nextTarget = pos.TP2
	}
	stopFirst := true
	switch tieBreak {
	case TieBreakTargetFirst:
		stopFirst = false
	case TieBreakOpenNearest:
		stopFirst = math.Abs(bar.Open-pos.SL) <= math.Abs(bar.Open-nextTarget)
	}

	if stopHit && stopFirst {
		s.realize(state, pos.SL, pos.Remaining())
		s.closePosition(state, pos.SL, bar, models.ExitStopLoss)
		return
	}

	if !pos.TP1Hit && reached(pos.TP1) {
		s.realize(state, pos.TP1, pos.Half())
		pos.TP1Hit = true
	}
	if pos.TP1Hit && reached(pos.TP2) {
		s.realize(state, pos.TP2, pos.Remaining())
		s.closePosition(state, pos.TP2, bar, models.ExitTarget)
		return
	}

	if stopHit {
		s.realize(state, pos.SL, pos.Remaining())
		s.closePosition(state, pos.SL, bar, models.ExitStopLoss)
	}
}

// realize books PnL for units filled at price into capital and the position.
func (s *Simulator) realize(state *backtestState, price float64, units decimal.Decimal) {
	pos := state.position
	move := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(pos.Entry))
	pnl := move.Mul(units).Mul(decimal.NewFromInt(pos.Direction()))
	state.capital = state.capital.Add(pnl)
	pos.Realized = pos.Realized.Add(pnl)
}

// closePosition moves the position to the trade log.
func (s *Simulator) closePosition(state *backtestState, exit float64, bar models.Candle, reason models.ExitReason) {
	pos := state.position
	state.trades = append(state.trades, models.BacktestTrade{
		Side:       pos.Side,
		EntryDate:  pos.EntryDate,
		ExitDate:   bar.Timestamp,
		Entry:      pos.Entry,
		Exit:       exit,
		TP1:        pos.TP1,
		TP2:        pos.TP2,
		SL:         pos.SL,
		Size:       pos.Size,
		TP1Hit:     pos.TP1Hit,
		PnL:        pos.Realized,
		ExitReason: reason,
	})
	state.position = nil
}
