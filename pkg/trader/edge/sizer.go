package edge

import "github.com/shopspring/decimal"

// Size is the concrete stake recommendation produced from an edge Result.
type Size struct {
	Stake      decimal.Decimal `json:"stake"`
	Shares     decimal.Decimal `json:"shares"`
	KellyUsed  decimal.Decimal `json:"kelly_used"` // fraction of bankroll after scaling and caps
	Capped     bool            `json:"capped"`
	Reason     string          `json:"reason"`
	Actionable bool            `json:"actionable"`
}

// Sizer turns a Kelly fraction into a dollar stake under hard risk caps.
type Sizer struct {
	kellyMultiplier decimal.Decimal // fractional Kelly, default 1/4
	maxStakePct     decimal.Decimal // of bankroll
	maxStakeUSD     decimal.Decimal
	minStakeUSD     decimal.Decimal
}

// SizerConfig configures position sizing.
type SizerConfig struct {
	KellyMultiplier float64 // default 0.25
	MaxStakePct     float64 // default 0.05
	MaxStakeUSD     float64 // default 100
	MinStakeUSD     float64 // default 5
}

// DefaultSizerConfig returns quarter-Kelly with conservative caps.
func DefaultSizerConfig() *SizerConfig {
	return &SizerConfig{
		KellyMultiplier: 0.25,
		MaxStakePct:     0.05,
		MaxStakeUSD:     100,
		MinStakeUSD:     5,
	}
}

// NewSizer creates a sizer, filling zero config fields with defaults.
func NewSizer(config *SizerConfig) *Sizer {
	if config == nil {
		config = DefaultSizerConfig()
	}
	defaults := DefaultSizerConfig()
	if config.KellyMultiplier == 0 {
		config.KellyMultiplier = defaults.KellyMultiplier
	}
	if config.MaxStakePct == 0 {
		config.MaxStakePct = defaults.MaxStakePct
	}
	if config.MaxStakeUSD == 0 {
		config.MaxStakeUSD = defaults.MaxStakeUSD
	}
	if config.MinStakeUSD == 0 {
		config.MinStakeUSD = defaults.MinStakeUSD
	}
	return &Sizer{
		kellyMultiplier: decimal.NewFromFloat(config.KellyMultiplier),
		maxStakePct:     decimal.NewFromFloat(config.MaxStakePct),
		maxStakeUSD:     decimal.NewFromFloat(config.MaxStakeUSD),
		minStakeUSD:     decimal.NewFromFloat(config.MinStakeUSD),
	}
}

// SizePosition converts an evaluated edge into a stake. Full Kelly is scaled
// by the fractional multiplier and the model's confidence, then capped at
// the bankroll percentage and dollar ceilings. Stakes below the minimum are
// rejected rather than rounded up.
func (s *Sizer) SizePosition(result *Result, bankroll decimal.Decimal) Size {
	if !result.Tradeable || !result.Action.IsBuy() {
		return Size{Reason: "not a tradeable buy signal"}
	}
	if bankroll.LessThanOrEqual(decimal.Zero) {
		return Size{Reason: "no bankroll"}
	}

	kelly := result.KellyFraction.Mul(s.kellyMultiplier).Mul(result.Confidence)
	if kelly.LessThanOrEqual(decimal.Zero) {
		return Size{Reason: "non-positive kelly"}
	}

	capped := false
	if kelly.GreaterThan(s.maxStakePct) {
		kelly = s.maxStakePct
		capped = true
	}

	stake := bankroll.Mul(kelly)
	if stake.GreaterThan(s.maxStakeUSD) {
		stake = s.maxStakeUSD
		capped = true
	}
	if stake.LessThan(s.minStakeUSD) {
		return Size{Reason: "stake below minimum trade size"}
	}

	shares := stake.Div(result.MarketPrice)

	return Size{
		Stake:      stake.Round(2),
		Shares:     shares.Round(2),
		KellyUsed:  kelly,
		Capped:     capped,
		Reason:     "sized",
		Actionable: true,
	}
}
