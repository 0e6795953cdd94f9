// Package policy enforces risk limits on match trading: per-match stake
// caps, total exposure, daily loss and order budgets, loss cooldowns, and
// market liquidity floors.
package policy

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// RiskLimits defines the risk parameters for match trading.
type RiskLimits struct {
	MaxStakePerMatch decimal.Decimal // total stake allowed on one match
	MaxTotalExposure decimal.Decimal // across all live matches
	MaxOrderSize     decimal.Decimal
	MinOrderSize     decimal.Decimal

	MaxDailyLoss   decimal.Decimal
	MaxDailyOrders int

	MinLiquidity decimal.Decimal // skip thin markets

	// After this many consecutive losing settlements, stop trading for the
	// cooldown duration.
	ConsecutiveLossLimit int
	LossCooldown         time.Duration
}

// DefaultRiskLimits returns conservative defaults for paper trading.
func DefaultRiskLimits() *RiskLimits {
	return &RiskLimits{
		MaxStakePerMatch: decimal.NewFromInt(200),
		MaxTotalExposure: decimal.NewFromInt(1000),
		MaxOrderSize:     decimal.NewFromInt(100),
		MinOrderSize:     decimal.NewFromInt(5),

		MaxDailyLoss:   decimal.NewFromInt(300),
		MaxDailyOrders: 50,

		MinLiquidity: decimal.NewFromInt(1000),

		ConsecutiveLossLimit: 3,
		LossCooldown:         30 * time.Minute,
	}
}

// Engine enforces limits and tracks exposure per match. Safe for concurrent
// use.
type Engine struct {
	limits *RiskLimits

	mu            sync.RWMutex
	matchExposure map[string]decimal.Decimal
	dailyLoss     decimal.Decimal
	dailyOrders   int
	lossStreak    int
	cooldownUntil time.Time
	lastTradeDay  int
}

// NewEngine creates a policy engine with the given limits, falling back to
// defaults.
func NewEngine(limits *RiskLimits) *Engine {
	if limits == nil {
		limits = DefaultRiskLimits()
	}
	return &Engine{
		limits:        limits,
		matchExposure: make(map[string]decimal.Decimal),
		lastTradeDay:  time.Now().YearDay(),
	}
}

// CheckOrder validates a proposed stake on a match against every limit.
// A nil error means the order may proceed.
func (e *Engine) CheckOrder(matchID string, stake, marketLiquidity decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetDailyIfNeeded()

	if stake.GreaterThan(e.limits.MaxOrderSize) {
		return fmt.Errorf("stake $%s exceeds max order $%s", stake, e.limits.MaxOrderSize)
	}
	if stake.LessThan(e.limits.MinOrderSize) {
		return fmt.Errorf("stake $%s below min order $%s", stake, e.limits.MinOrderSize)
	}

	if e.dailyOrders >= e.limits.MaxDailyOrders {
		return fmt.Errorf("daily order limit reached: %d", e.limits.MaxDailyOrders)
	}
	if e.dailyLoss.GreaterThanOrEqual(e.limits.MaxDailyLoss) {
		return fmt.Errorf("daily loss limit reached: $%s", e.dailyLoss)
	}

	if !e.cooldownUntil.IsZero() && time.Now().Before(e.cooldownUntil) {
		return fmt.Errorf("in loss cooldown until %s", e.cooldownUntil.Format(time.Kitchen))
	}

	if !marketLiquidity.IsZero() && marketLiquidity.LessThan(e.limits.MinLiquidity) {
		return fmt.Errorf("market liquidity $%s below floor $%s", marketLiquidity, e.limits.MinLiquidity)
	}

	newMatch := e.matchExposure[matchID].Add(stake)
	if newMatch.GreaterThan(e.limits.MaxStakePerMatch) {
		return fmt.Errorf("match exposure would reach $%s, cap $%s", newMatch, e.limits.MaxStakePerMatch)
	}

	newTotal := e.totalExposure().Add(stake)
	if newTotal.GreaterThan(e.limits.MaxTotalExposure) {
		return fmt.Errorf("total exposure would reach $%s, cap $%s", newTotal, e.limits.MaxTotalExposure)
	}

	return nil
}

// RecordOrder records a placed stake on a match.
func (e *Engine) RecordOrder(matchID string, stake decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetDailyIfNeeded()
	e.matchExposure[matchID] = e.matchExposure[matchID].Add(stake)
	e.dailyOrders++
}

// RecordSettlement records a match settlement. The match's exposure is
// released; losses feed the daily budget and the loss streak.
func (e *Engine) RecordSettlement(matchID string, pnl decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetDailyIfNeeded()

	delete(e.matchExposure, matchID)

	if pnl.IsNegative() {
		e.dailyLoss = e.dailyLoss.Add(pnl.Abs())
		e.lossStreak++
		if e.lossStreak >= e.limits.ConsecutiveLossLimit {
			e.cooldownUntil = time.Now().Add(e.limits.LossCooldown)
		}
	} else {
		e.lossStreak = 0
	}
}

// MatchExposure returns the live stake on a match.
func (e *Engine) MatchExposure(matchID string) decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matchExposure[matchID]
}

// TotalExposure returns the live stake across all matches.
func (e *Engine) TotalExposure() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.totalExposure()
}

// Status is a JSON-friendly summary of the policy state.
type Status struct {
	TotalExposure  string `json:"total_exposure"`
	MaxExposure    string `json:"max_exposure"`
	DailyLoss      string `json:"daily_loss"`
	MaxDailyLoss   string `json:"max_daily_loss"`
	DailyOrders    int    `json:"daily_orders"`
	MaxDailyOrders int    `json:"max_daily_orders"`
	LossStreak     int    `json:"loss_streak"`
	InCooldown     bool   `json:"in_cooldown"`
	CooldownRemain string `json:"cooldown_remaining,omitempty"`
	LiveMatches    int    `json:"live_matches"`
}

// CurrentStatus reports the engine state for the status API.
func (e *Engine) CurrentStatus() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := Status{
		TotalExposure:  e.totalExposure().String(),
		MaxExposure:    e.limits.MaxTotalExposure.String(),
		DailyLoss:      e.dailyLoss.String(),
		MaxDailyLoss:   e.limits.MaxDailyLoss.String(),
		DailyOrders:    e.dailyOrders,
		MaxDailyOrders: e.limits.MaxDailyOrders,
		LossStreak:     e.lossStreak,
		LiveMatches:    len(e.matchExposure),
	}
	if !e.cooldownUntil.IsZero() && time.Now().Before(e.cooldownUntil) {
		s.InCooldown = true
		s.CooldownRemain = time.Until(e.cooldownUntil).Round(time.Second).String()
	}
	return s
}

func (e *Engine) totalExposure() decimal.Decimal {
	total := decimal.Zero
	for _, v := range e.matchExposure {
		total = total.Add(v)
	}
	return total
}

func (e *Engine) resetDailyIfNeeded() {
	if day := time.Now().YearDay(); day != e.lastTradeDay {
		e.dailyLoss = decimal.Zero
		e.dailyOrders = 0
		e.lastTradeDay = day
	}
}
