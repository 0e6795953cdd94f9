// Package backtest replays recorded probability snapshots through the edge
// calculator, sizer, and paper engine. It answers "how would a different
// parameter set have traded the matches we already watched" without touching
// a live feed.
package backtest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/esports-edge/pkg/trader/edge"
	"github.com/phenomenon0/esports-edge/pkg/trader/paper"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Sample is one recorded model output with the market price seen at the time.
type Sample struct {
	Time       time.Time
	GameNumber int
	Minutes    float64
	Fair       float64 // model's series win probability for team 1
	Market     float64 // market price for team 1, 0 when no market matched
	Confidence float64
}

// Series is one completed match's replay data.
type Series struct {
	MatchID string
	Team1   string
	Team2   string
	Winner  int // 1 or 2
	Samples []Sample
}

// Variant is one parameter set under evaluation. Nil configs use defaults.
type Variant struct {
	Name  string
	Edge  *edge.CalculatorConfig
	Sizer *edge.SizerConfig
	Paper *paper.Config
}

// EquityPoint records account equity after one replayed sample.
type EquityPoint struct {
	Time     time.Time       `json:"time"`
	Equity   decimal.Decimal `json:"equity"`
	Drawdown decimal.Decimal `json:"drawdown"` // fraction off the running peak
}

// Result summarizes a variant's performance over the replayed series.
type Result struct {
	Variant        string          `json:"variant"`
	Series         int             `json:"series"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	FinalBalance   decimal.Decimal `json:"final_balance"`
	RealizedPnL    decimal.Decimal `json:"realized_pnl"`
	ReturnPct      decimal.Decimal `json:"return_pct"`
	MaxDrawdown    decimal.Decimal `json:"max_drawdown"`
	Trades         int             `json:"trades"`
	Settled        int             `json:"settled"`
	Wins           int             `json:"wins"`
	Losses         int             `json:"losses"`
	WinRate        decimal.Decimal `json:"win_rate"`
	Equity         []EquityPoint   `json:"equity,omitempty"`
}

// Replayer runs one variant over recorded series. The bankroll carries over
// between series, so ordering matters the same way it did live.
type Replayer struct {
	variant string
	calc    *edge.Calculator
	sizer   *edge.Sizer
	eng     *paper.Engine

	initial decimal.Decimal
	series  int
	trades  int
	peak    decimal.Decimal
	maxDD   decimal.Decimal
	equity  []EquityPoint
}

// NewReplayer creates a replayer for one variant.
func NewReplayer(v Variant) *Replayer {
	paperCfg := v.Paper
	if paperCfg == nil {
		paperCfg = paper.DefaultConfig()
	}
	eng := paper.NewEngine(paperCfg)
	initial := eng.Balance()
	return &Replayer{
		variant: v.Name,
		calc:    edge.NewCalculator(v.Edge),
		sizer:   edge.NewSizer(v.Sizer),
		eng:     eng,
		initial: initial,
		peak:    initial,
	}
}

// Replay runs one series through the pipeline and settles it at the recorded
// winner. Undecided series cannot be settled and are rejected.
func (r *Replayer) Replay(s *Series) error {
	if s.Winner != 1 && s.Winner != 2 {
		return fmt.Errorf("series %s has no recorded winner", s.MatchID)
	}
	if len(s.Samples) == 0 {
		return fmt.Errorf("series %s has no snapshots", s.MatchID)
	}
	r.series++

	for _, sample := range s.Samples {
		r.step(s, sample)
	}

	if pos, ok := r.eng.Position(s.MatchID); ok {
		winnerName := s.Team1
		if s.Winner == 2 {
			winnerName = s.Team2
		}
		if _, err := r.eng.SettleMatch(s.MatchID, pos.Outcome == winnerName); err != nil {
			return fmt.Errorf("settling %s: %w", s.MatchID, err)
		}
	}
	r.recordEquity(s.Samples[len(s.Samples)-1].Time)
	return nil
}

func (r *Replayer) step(s *Series, sample Sample) {
	defer r.recordEquity(sample.Time)

	if sample.Market <= 0 || sample.Market >= 1 {
		return
	}
	fair := decimal.NewFromFloat(sample.Fair)
	price := decimal.NewFromFloat(sample.Market)
	conf := decimal.NewFromFloat(sample.Confidence)

	if pos, ok := r.eng.Position(s.MatchID); ok {
		// Mark the open position; a holding on team 2 trades at the
		// complement of the team 1 price.
		mark := price
		if pos.Outcome == s.Team2 {
			mark = one.Sub(price)
		}
		r.eng.MarkPrice(s.MatchID, mark)
		return
	}

	result := r.calc.Evaluate(fair, price, conf)
	if result.Tradeable && result.Action.IsBuy() {
		r.enter(s.MatchID, s.Team1, result)
		return
	}

	// A sell signal on team 1 is a buy on team 2 at the complement price.
	flipped := r.calc.Evaluate(one.Sub(fair), one.Sub(price), conf)
	if flipped.Tradeable && flipped.Action.IsBuy() {
		r.enter(s.MatchID, s.Team2, flipped)
	}
}

func (r *Replayer) enter(matchID, outcome string, result *edge.Result) {
	size := r.sizer.SizePosition(result, r.eng.Balance())
	if !size.Actionable {
		return
	}
	if _, err := r.eng.Buy(matchID, outcome, result.MarketPrice, size.Stake); err != nil {
		return
	}
	r.trades++
}

func (r *Replayer) recordEquity(at time.Time) {
	stats := r.eng.ComputeStats()
	equity := stats.Equity

	if equity.GreaterThan(r.peak) {
		r.peak = equity
	}
	drawdown := decimal.Zero
	if r.peak.IsPositive() {
		drawdown = r.peak.Sub(equity).Div(r.peak)
	}
	if drawdown.GreaterThan(r.maxDD) {
		r.maxDD = drawdown
	}
	r.equity = append(r.equity, EquityPoint{Time: at, Equity: equity, Drawdown: drawdown})
}

// Result summarizes everything replayed so far.
func (r *Replayer) Result() *Result {
	stats := r.eng.ComputeStats()
	res := &Result{
		Variant:        r.variant,
		Series:         r.series,
		InitialBalance: r.initial,
		FinalBalance:   stats.Balance,
		RealizedPnL:    stats.RealizedPnL,
		MaxDrawdown:    r.maxDD,
		Trades:         r.trades,
		Settled:        stats.Settled,
		Wins:           stats.Wins,
		Losses:         stats.Losses,
		WinRate:        stats.WinRate,
		Equity:         r.equity,
	}
	if r.initial.IsPositive() {
		res.ReturnPct = stats.RealizedPnL.Div(r.initial).Mul(hundred)
	}
	return res
}

// Compare runs every variant over the same series and returns their results
// in variant order.
func Compare(variants []Variant, series []*Series) ([]*Result, error) {
	results := make([]*Result, 0, len(variants))
	for _, v := range variants {
		r := NewReplayer(v)
		for _, s := range series {
			if err := r.Replay(s); err != nil {
				return nil, fmt.Errorf("variant %s: %w", v.Name, err)
			}
		}
		results = append(results, r.Result())
	}
	return results, nil
}
