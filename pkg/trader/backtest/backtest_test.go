package backtest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/esports-edge/pkg/trader/edge"
	"github.com/phenomenon0/esports-edge/pkg/trader/paper"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// Thresholds higher than any mispricing in the fixtures.
var pickyEdgeConfig = edge.CalculatorConfig{
	MinEdge:       0.20,
	StrongEdge:    0.30,
	NormalEdge:    0.25,
	SlightEdge:    0.22,
	MinConfidence: 0.6,
}

func testVariant(name string) Variant {
	return Variant{
		Name:  name,
		Paper: &paper.Config{InitialBalance: decimal.NewFromInt(10000)},
	}
}

func sampleAt(minute, fair, market, conf float64) Sample {
	return Sample{
		Time:       time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC).Add(time.Duration(minute) * time.Minute),
		GameNumber: 1,
		Minutes:    minute,
		Fair:       fair,
		Market:     market,
		Confidence: conf,
	}
}

func TestReplayWinningSeries(t *testing.T) {
	s := &Series{
		MatchID: "m1",
		Team1:   "T1",
		Team2:   "G2",
		Winner:  1,
		Samples: []Sample{
			sampleAt(5, 0.55, 0.55, 0.7),  // no edge
			sampleAt(15, 0.75, 0.60, 0.8), // 15 point edge, enters here
			sampleAt(25, 0.80, 0.70, 0.8), // already positioned, mark only
		},
	}

	r := NewReplayer(testVariant("default"))
	if err := r.Replay(s); err != nil {
		t.Fatalf("Replay() error: %v", err)
	}
	res := r.Result()

	if res.Trades != 1 {
		t.Fatalf("trades = %d, want 1", res.Trades)
	}
	if res.Settled != 1 || res.Wins != 1 {
		t.Errorf("settled/wins = %d/%d, want 1/1", res.Settled, res.Wins)
	}
	// $100 cap at 0.60 buys 166.6667 shares paying $1 each.
	if !res.RealizedPnL.Equal(d(66.6667)) {
		t.Errorf("pnl = %s, want 66.6667", res.RealizedPnL)
	}
	if !res.FinalBalance.Equal(d(10066.6667)) {
		t.Errorf("balance = %s, want 10066.6667", res.FinalBalance)
	}
	if !res.MaxDrawdown.IsZero() {
		t.Errorf("drawdown = %s, want 0", res.MaxDrawdown)
	}
	if len(res.Equity) != len(s.Samples)+1 {
		t.Errorf("equity points = %d, want %d", len(res.Equity), len(s.Samples)+1)
	}
}

func TestReplayBuysComplementOnSellSignal(t *testing.T) {
	s := &Series{
		MatchID: "m1",
		Team1:   "T1",
		Team2:   "G2",
		Winner:  2,
		Samples: []Sample{
			// Market has team 1 far too rich, which is a buy on team 2
			// at the complement price.
			sampleAt(10, 0.30, 0.45, 0.8),
		},
	}

	r := NewReplayer(testVariant("default"))
	if err := r.Replay(s); err != nil {
		t.Fatalf("Replay() error: %v", err)
	}
	res := r.Result()

	if res.Trades != 1 || res.Wins != 1 {
		t.Fatalf("trades/wins = %d/%d, want 1/1", res.Trades, res.Wins)
	}
	// $100 at the 0.55 complement price buys 181.8182 shares.
	if !res.RealizedPnL.Equal(d(81.8182)) {
		t.Errorf("pnl = %s, want 81.8182", res.RealizedPnL)
	}
}

func TestReplayLosingSeries(t *testing.T) {
	s := &Series{
		MatchID: "m1",
		Team1:   "T1",
		Team2:   "G2",
		Winner:  2,
		Samples: []Sample{
			sampleAt(15, 0.75, 0.60, 0.8),
		},
	}

	r := NewReplayer(testVariant("default"))
	if err := r.Replay(s); err != nil {
		t.Fatalf("Replay() error: %v", err)
	}
	res := r.Result()

	if res.Losses != 1 {
		t.Fatalf("losses = %d, want 1", res.Losses)
	}
	if !res.RealizedPnL.Equal(d(-100)) {
		t.Errorf("pnl = %s, want -100", res.RealizedPnL)
	}
	if !res.FinalBalance.Equal(d(9900)) {
		t.Errorf("balance = %s, want 9900", res.FinalBalance)
	}
	if !res.WinRate.IsZero() {
		t.Errorf("win rate = %s, want 0", res.WinRate)
	}
}

func TestReplaySkipsSamplesWithoutMarket(t *testing.T) {
	s := &Series{
		MatchID: "m1",
		Team1:   "T1",
		Team2:   "G2",
		Winner:  1,
		Samples: []Sample{
			sampleAt(10, 0.80, 0, 0.9), // no market matched
		},
	}

	r := NewReplayer(testVariant("default"))
	if err := r.Replay(s); err != nil {
		t.Fatalf("Replay() error: %v", err)
	}
	if res := r.Result(); res.Trades != 0 {
		t.Errorf("trades = %d, want 0", res.Trades)
	}
}

func TestReplayRejectsUndecidedSeries(t *testing.T) {
	s := &Series{
		MatchID: "m1",
		Team1:   "T1",
		Team2:   "G2",
		Samples: []Sample{sampleAt(10, 0.6, 0.5, 0.8)},
	}

	r := NewReplayer(testVariant("default"))
	if err := r.Replay(s); err == nil {
		t.Fatal("Replay() of an undecided series should fail")
	}
}

func TestCompareRunsEveryVariant(t *testing.T) {
	series := []*Series{
		{
			MatchID: "m1",
			Team1:   "T1",
			Team2:   "G2",
			Winner:  1,
			Samples: []Sample{sampleAt(15, 0.75, 0.60, 0.8)},
		},
	}

	picky := testVariant("picky")
	picky.Edge = &pickyEdgeConfig

	results, err := Compare([]Variant{testVariant("default"), picky}, series)
	if err != nil {
		t.Fatalf("Compare() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Variant != "default" || results[1].Variant != "picky" {
		t.Errorf("result order = %s, %s", results[0].Variant, results[1].Variant)
	}
	if results[0].Trades != 1 {
		t.Errorf("default variant trades = %d, want 1", results[0].Trades)
	}
	// An edge floor above the recorded mispricing never trades.
	if results[1].Trades != 0 {
		t.Errorf("picky variant trades = %d, want 0", results[1].Trades)
	}
}
