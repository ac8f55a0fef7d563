// Package risk turns a guardrail-passed price into a bounded-risk trade
// plan: position size, ATR-derived stop, and a three-rung take-profit
// ladder with an enforced risk/reward floor. Precondition violations here
// are caller errors and fail loudly; nothing in this package degrades
// silently.
package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/tradeforge/signalguard/internal/domain"
)

// Input-contract failures. Text is part of the contract; callers match on it.
var (
	ErrNonPositiveBalance = errors.New("Account balance must be positive")
	ErrBadRiskTolerance   = errors.New("Risk tolerance must be between 0 and 100")
	ErrNoTradePosition    = errors.New("no risk plan is meaningful for a NO_TRADE position")
)

// Config tunes plan geometry.
type Config struct {
	// BaseRiskPct is the fraction of the account risked at full tolerance.
	BaseRiskPct float64 `yaml:"base_risk_pct" default:"2"`
	// StopATRMultiple sizes the stop distance in ATRs.
	StopATRMultiple float64 `yaml:"stop_atr_multiple" default:"1.5"`
	// TP multiples of the stop distance for the three ladder rungs.
	TP1Multiple float64 `yaml:"tp1_multiple" default:"2"`
	TP2Multiple float64 `yaml:"tp2_multiple" default:"3.5"`
	TP3Multiple float64 `yaml:"tp3_multiple" default:"5"`
	// MinRiskReward is the hard floor; tp1 widens to meet it, the stop never
	// shrinks.
	MinRiskReward float64 `yaml:"min_risk_reward" default:"2"`
}

// DefaultConfig returns the production plan geometry.
func DefaultConfig() Config {
	return Config{
		BaseRiskPct:     2,
		StopATRMultiple: 1.5,
		TP1Multiple:     2,
		TP2Multiple:     3.5,
		TP3Multiple:     5,
		MinRiskReward:   2,
	}
}

// Ladder allocations are fixed: half off at tp1, scale out the rest.
const (
	tp1AllocationPct = 50
	tp2AllocationPct = 30
	tp3AllocationPct = 20
)

// Request carries everything a plan computation needs.
type Request struct {
	AccountBalance   float64
	RiskTolerancePct float64 // 0-100
	EntryPrice       float64
	PositionType     domain.PositionType
	ATR              float64
	CurrentPrice     float64
}

// Calculator computes risk plans.
type Calculator struct {
	cfg Config
}

// New creates a Calculator.
func New(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Calculate produces a bounded-risk plan or fails on a contract violation.
func (c *Calculator) Calculate(req Request) (domain.RiskPlan, error) {
	if req.AccountBalance <= 0 {
		return domain.RiskPlan{}, ErrNonPositiveBalance
	}
	if req.RiskTolerancePct < 0 || req.RiskTolerancePct > 100 {
		return domain.RiskPlan{}, ErrBadRiskTolerance
	}
	if req.PositionType == domain.PositionNone {
		return domain.RiskPlan{}, ErrNoTradePosition
	}
	if req.PositionType != domain.PositionLong && req.PositionType != domain.PositionShort {
		return domain.RiskPlan{}, fmt.Errorf("unknown position type %q", req.PositionType)
	}
	if req.EntryPrice <= 0 {
		return domain.RiskPlan{}, fmt.Errorf("entry price must be positive, got %.2f", req.EntryPrice)
	}
	if req.ATR <= 0 {
		return domain.RiskPlan{}, fmt.Errorf("ATR must be positive, got %.4f", req.ATR)
	}

	maxLoss := req.AccountBalance * (c.cfg.BaseRiskPct / 100) * (req.RiskTolerancePct / 100)
	stopDistance := req.ATR * c.cfg.StopATRMultiple
	if stopDistance >= req.EntryPrice {
		return domain.RiskPlan{}, fmt.Errorf("stop distance %.2f exceeds entry price %.2f", stopDistance, req.EntryPrice)
	}

	positionSize := maxLoss / stopDistance

	tp1Distance := stopDistance * c.cfg.TP1Multiple
	tp2Distance := stopDistance * c.cfg.TP2Multiple
	tp3Distance := stopDistance * c.cfg.TP3Multiple

	// Enforce the risk/reward floor by widening tp1. The stop is left alone:
	// shrinking it would change the risk amount already validated above.
	if tp1Distance/stopDistance < c.cfg.MinRiskReward {
		tp1Distance = stopDistance * c.cfg.MinRiskReward
		if tp2Distance <= tp1Distance {
			tp2Distance = tp1Distance * 1.5
		}
		if tp3Distance <= tp2Distance {
			tp3Distance = tp2Distance * 1.5
		}
	}

	direction := 1.0
	if req.PositionType == domain.PositionShort {
		direction = -1.0
	}

	plan := domain.RiskPlan{
		PositionType:  req.PositionType,
		EntryPrice:    req.EntryPrice,
		PositionSize:  positionSize,
		StopLoss:      req.EntryPrice - direction*stopDistance,
		TakeProfit1:   domain.TakeProfit{Price: req.EntryPrice + direction*tp1Distance, AllocationPct: tp1AllocationPct},
		TakeProfit2:   domain.TakeProfit{Price: req.EntryPrice + direction*tp2Distance, AllocationPct: tp2AllocationPct},
		TakeProfit3:   domain.TakeProfit{Price: req.EntryPrice + direction*tp3Distance, AllocationPct: tp3AllocationPct},
		MaxLossAmount: maxLoss,
		MaxLossPct:    maxLoss / req.AccountBalance * 100,
		RiskReward:    tp1Distance / stopDistance,
	}

	if plan.StopLoss <= 0 {
		return domain.RiskPlan{}, fmt.Errorf("computed stop loss %.2f is not positive", plan.StopLoss)
	}
	return plan, nil
}

// AdjustStopLossForVolatility rescales a stop by the ratio of current to
// historical ATR. A ratio above 1 widens the stop (further from entry), below
// 1 tightens it; which side of entry "further" lies on depends on the
// position type.
func AdjustStopLossForVolatility(baseStop, currentATR, historicalATR, entryPrice float64, positionType domain.PositionType) (float64, error) {
	if currentATR <= 0 || historicalATR <= 0 {
		return 0, fmt.Errorf("ATR values must be positive, got current=%.4f historical=%.4f", currentATR, historicalATR)
	}
	if entryPrice <= 0 {
		return 0, fmt.Errorf("entry price must be positive, got %.2f", entryPrice)
	}

	distance := math.Abs(entryPrice-baseStop) * (currentATR / historicalATR)

	switch positionType {
	case domain.PositionLong:
		return entryPrice - distance, nil
	case domain.PositionShort:
		return entryPrice + distance, nil
	default:
		return 0, fmt.Errorf("unknown position type %q", positionType)
	}
}
