// Package edge compares a model's fair price against a market price and
// turns the difference into a classified, sized trade recommendation.
package edge

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Action is the discrete recommendation band. The ladder is a plain
// threshold comparison with no hysteresis.
type Action string

const (
	StrongBuy  Action = "STRONG_BUY"
	Buy        Action = "BUY"
	SlightBuy  Action = "SLIGHT_BUY"
	Hold       Action = "HOLD"
	SlightSell Action = "SLIGHT_SELL"
	Sell       Action = "SELL"
	StrongSell Action = "STRONG_SELL"
)

// IsBuy reports whether the action recommends entering a long position.
func (a Action) IsBuy() bool {
	return a == StrongBuy || a == Buy || a == SlightBuy
}

// Result is the stateless output of one edge evaluation.
type Result struct {
	FairPrice   decimal.Decimal `json:"fair_price"`
	MarketPrice decimal.Decimal `json:"market_price"`
	Confidence  decimal.Decimal `json:"confidence"`

	// Edge is fair minus market; EffectiveEdge is edge scaled by model
	// confidence and is what the action thresholds compare against.
	Edge          decimal.Decimal `json:"edge"`
	EffectiveEdge decimal.Decimal `json:"effective_edge"`

	KellyFraction decimal.Decimal `json:"kelly_fraction"`
	Action        Action          `json:"action"`
	Tradeable     bool            `json:"tradeable"`
	Reason        string          `json:"reason"`
}

// Calculator evaluates edges against a fixed threshold ladder.
type Calculator struct {
	minEdge       decimal.Decimal // effective-edge floor for a tradeable signal
	strongEdge    decimal.Decimal
	normalEdge    decimal.Decimal
	slightEdge    decimal.Decimal
	minConfidence decimal.Decimal
}

// CalculatorConfig configures the edge calculator.
type CalculatorConfig struct {
	MinEdge       float64 // default 0.015
	StrongEdge    float64 // default 0.05
	NormalEdge    float64 // default 0.02
	SlightEdge    float64 // default 0.01
	MinConfidence float64 // default 0.6
}

// DefaultCalculatorConfig returns the standard ladder.
func DefaultCalculatorConfig() *CalculatorConfig {
	return &CalculatorConfig{
		MinEdge:       0.015,
		StrongEdge:    0.05,
		NormalEdge:    0.02,
		SlightEdge:    0.01,
		MinConfidence: 0.6,
	}
}

// NewCalculator creates a calculator, filling zero config fields with
// defaults.
func NewCalculator(config *CalculatorConfig) *Calculator {
	if config == nil {
		config = DefaultCalculatorConfig()
	}
	defaults := DefaultCalculatorConfig()
	if config.MinEdge == 0 {
		config.MinEdge = defaults.MinEdge
	}
	if config.StrongEdge == 0 {
		config.StrongEdge = defaults.StrongEdge
	}
	if config.NormalEdge == 0 {
		config.NormalEdge = defaults.NormalEdge
	}
	if config.SlightEdge == 0 {
		config.SlightEdge = defaults.SlightEdge
	}
	if config.MinConfidence == 0 {
		config.MinConfidence = defaults.MinConfidence
	}
	return &Calculator{
		minEdge:       decimal.NewFromFloat(config.MinEdge),
		strongEdge:    decimal.NewFromFloat(config.StrongEdge),
		normalEdge:    decimal.NewFromFloat(config.NormalEdge),
		slightEdge:    decimal.NewFromFloat(config.SlightEdge),
		minConfidence: decimal.NewFromFloat(config.MinConfidence),
	}
}

var one = decimal.NewFromInt(1)

// Evaluate computes the edge of fair price over market price, scaled by the
// model's confidence. A market price outside (0,1) yields a reasoned
// no-trade Result rather than an error: the caller always gets a
// well-defined value.
func (c *Calculator) Evaluate(fairPrice, marketPrice, confidence decimal.Decimal) *Result {
	result := &Result{
		FairPrice:   fairPrice,
		MarketPrice: marketPrice,
		Confidence:  confidence,
		Action:      Hold,
	}

	if marketPrice.LessThanOrEqual(decimal.Zero) || marketPrice.GreaterThanOrEqual(one) {
		result.Reason = fmt.Sprintf("market price %s outside (0,1)", marketPrice)
		return result
	}

	edge := fairPrice.Sub(marketPrice)
	effective := edge.Mul(confidence)
	result.Edge = edge
	result.EffectiveEdge = effective

	// Full Kelly for a binary buy: edge / (1 - price). Sized down later by
	// the Sizer's fractional multiplier.
	if edge.IsPositive() {
		result.KellyFraction = edge.Div(one.Sub(marketPrice))
	}

	result.Action = classify(effective, c)

	switch {
	case confidence.LessThan(c.minConfidence):
		result.Reason = "confidence below minimum"
	case effective.Abs().LessThan(c.minEdge):
		result.Reason = "effective edge below minimum threshold"
	default:
		result.Tradeable = true
		result.Reason = "effective edge above threshold"
	}
	return result
}

func classify(effective decimal.Decimal, c *Calculator) Action {
	switch {
	case effective.GreaterThan(c.strongEdge):
		return StrongBuy
	case effective.GreaterThan(c.normalEdge):
		return Buy
	case effective.GreaterThan(c.slightEdge):
		return SlightBuy
	case effective.LessThan(c.strongEdge.Neg()):
		return StrongSell
	case effective.LessThan(c.normalEdge.Neg()):
		return Sell
	case effective.LessThan(c.slightEdge.Neg()):
		return SlightSell
	default:
		return Hold
	}
}
