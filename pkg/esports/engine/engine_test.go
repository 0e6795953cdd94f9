package engine

import (
	"math"
	"testing"

	"github.com/phenomenon0/esports-edge/pkg/esports/game"
	"github.com/phenomenon0/esports-edge/pkg/esports/impact"
	"github.com/phenomenon0/esports-edge/pkg/esports/rating"
)

func TestClampInvariant(t *testing.T) {
	e := New(game.TitleLoL)
	// Hammer one side with large events; probability must stay clamped.
	for i := 0; i < 200; i++ {
		snap := e.UpdateFromEvent(&game.Event{
			Time: float64(i) * 0.2, Type: game.EventBaron, Team: game.Team1,
			Context: game.ContextDefault,
		}, impact.Situation{Minutes: float64(i) * 0.2})
		if snap.Team1Prob < 0.02 || snap.Team1Prob > 0.98 {
			t.Fatalf("probability escaped clamp: %.4f", snap.Team1Prob)
		}
	}
	if e.Probability() != 0.98 {
		t.Errorf("expected saturation at 0.98, got %.4f", e.Probability())
	}
}

func TestEventSymmetry(t *testing.T) {
	sit := impact.Situation{Minutes: 20}
	ev1 := &game.Event{Time: 20, Type: game.EventTower, Team: game.Team1, Context: game.ContextInner}
	ev2 := &game.Event{Time: 20, Type: game.EventTower, Team: game.Team2, Context: game.ContextInner}

	a := New(game.TitleLoL)
	b := New(game.TitleLoL)
	pa := a.UpdateFromEvent(ev1, sit).Team1Prob
	pb := b.UpdateFromEvent(ev2, sit).Team1Prob

	if math.Abs((pa-0.5)+(pb-0.5)) > 1e-12 {
		t.Errorf("event impacts not symmetric: %.6f vs %.6f", pa, pb)
	}
}

func TestRecomputeIdempotent(t *testing.T) {
	e := New(game.TitleLoL)
	s := game.NewState("m1", game.TitleLoL, 1)
	s.Minutes = 25
	s.Team1.Gold = 48000
	s.Team2.Gold = 43000
	s.Team1.Kills = 12
	s.Team2.Kills = 7
	s.Team1.Towers = 6
	s.Team2.Towers = 2
	s.Team1.Dragons = 3

	p1 := e.CalculateFromState(s).Team1Prob
	p2 := e.CalculateFromState(s).Team1Prob
	if p1 != p2 {
		t.Errorf("recompute not idempotent: %.6f vs %.6f", p1, p2)
	}
	if p1 <= 0.5 {
		t.Errorf("team 1 clearly ahead but prob %.4f", p1)
	}
}

func TestGoldDiminishingReturns(t *testing.T) {
	// Doubling an already huge gold lead must add less than doubling a
	// small one: the transform is bounded, not linear.
	probAt := func(gold int) float64 {
		e := New(game.TitleLoL)
		s := game.NewState("m", game.TitleLoL, 1)
		s.Minutes = 25
		s.Team1.Gold = gold
		return e.CalculateFromState(s).Team1Prob
	}
	smallStep := probAt(4000) - probAt(0)
	largeStep := probAt(24000) - probAt(20000)
	if largeStep >= smallStep {
		t.Errorf("gold effect should diminish: step at 20k %.5f >= step at 0 %.5f", largeStep, smallStep)
	}
}

func TestExtremityScaling(t *testing.T) {
	if got := extremityScale(0.1, 0.5); got != 0.1 {
		t.Errorf("full impact at 50%%: got %.4f", got)
	}
	mid := extremityScale(0.1, 0.8)
	if mid >= 0.1 || mid <= 0.04 {
		t.Errorf("scaled impact at 80%% out of range: %.4f", mid)
	}
	// Quadratic falloff, never below the 40% floor.
	if got := extremityScale(0.1, 0.98); math.Abs(got-0.1*(1-2*0.48*0.48)) > 1e-12 {
		t.Errorf("quadratic falloff at 98%%: got %.4f", got)
	}
	for p := 0.0; p <= 1.0; p += 0.01 {
		if got := extremityScale(0.1, p); got < 0.04-1e-12 {
			t.Errorf("impact fell below 40%% floor at p=%.2f: %.4f", p, got)
		}
	}
}

func TestPriorsFromRatings(t *testing.T) {
	e := New(game.TitleLoL)
	t1 := rating.NewTeamStrength("T1")
	t1.Rating = 1800
	t2 := rating.NewTeamStrength("DRX")
	t2.Rating = 1600
	e.SetTeamPriors(t1, t2)

	if e.Probability() <= 0.5 {
		t.Errorf("higher-rated team should start favored, got %.4f", e.Probability())
	}
}

func TestMarketPriorRange(t *testing.T) {
	e := New(game.TitleLoL)
	e.SetMarketPrior(0.64)
	if e.Probability() != 0.64 {
		t.Errorf("market prior not applied: %.4f", e.Probability())
	}
	e.SetMarketPrior(1.7)
	if e.Probability() != 0.64 {
		t.Errorf("out-of-range prior must be ignored, got %.4f", e.Probability())
	}
}

func TestWithMomentumDecay(t *testing.T) {
	fast := New(game.TitleLoL, WithMomentumDecay(0.5))
	slow := New(game.TitleLoL)

	// Same impact four minutes old: the short horizon should have shed it,
	// the default should still carry most of it.
	for _, e := range []*Engine{fast, slow} {
		e.Momentum().Add(0, game.Team1, 0.05)
		e.Momentum().Add(4, game.Team1, 0.0001)
	}
	if fs, ss := fast.Momentum().Score(), slow.Momentum().Score(); fs >= ss {
		t.Errorf("short decay should score lower: fast %f slow %f", fs, ss)
	}

	// The overridden horizon survives a series reset.
	fast.Reset(true)
	fast.Momentum().Add(0, game.Team1, 0.05)
	fast.Momentum().Add(4, game.Team1, 0.0001)
	if s := fast.Momentum().Score(); s > 0.001 {
		t.Errorf("reset engine kept old impact past its horizon: %f", s)
	}

	if got := New(game.TitleLoL, WithMomentumDecay(-1)).Momentum(); got == nil {
		t.Fatal("non-positive override should keep the default tracker")
	}
}

func TestResetKeepPriors(t *testing.T) {
	e := New(game.TitleLoL)
	e.SetMarketPrior(0.6)
	e.UpdateFromEvent(&game.Event{Time: 10, Type: game.EventKill, Team: game.Team1, Context: game.ContextDefault}, impact.Situation{Minutes: 10})

	e.Reset(true)
	if e.Probability() != 0.6 {
		t.Errorf("reset(keep) should restore prior 0.6, got %.4f", e.Probability())
	}
	if e.EventsProcessed() != 0 || len(e.History()) != 0 {
		t.Errorf("reset should clear history and counters")
	}

	e.Reset(false)
	if e.Probability() != 0.5 {
		t.Errorf("reset(drop) should return to neutral, got %.4f", e.Probability())
	}
}

func TestTeamfightUpdate(t *testing.T) {
	e := New(game.TitleLoL)
	snap := e.UpdateFromTeamfight(4, 1, 27, impact.Situation{})
	if snap.Team1Prob <= 0.5 {
		t.Errorf("won fight should raise team 1 prob, got %.4f", snap.Team1Prob)
	}
	if e.EventsProcessed() != 5 {
		t.Errorf("fight should count all kills as events, got %d", e.EventsProcessed())
	}
	if e.Momentum().Score() <= 0 {
		t.Errorf("fight should register team 1 momentum")
	}
}

func TestStdDevFloor(t *testing.T) {
	e := New(game.TitleLoL)
	var last Snapshot
	for i := 0; i < 300; i++ {
		last = e.UpdateFromEvent(&game.Event{
			Time: float64(i) * 0.1, Type: game.EventKill, Team: game.Team(1 + i%2),
			Context: game.ContextDefault,
		}, impact.Situation{Minutes: float64(i) * 0.1})
	}
	if last.StdDev < 0.03 {
		t.Errorf("std dev fell below floor: %.4f", last.StdDev)
	}
	if math.Abs(last.StdDev-0.03) > 1e-9 {
		t.Errorf("std dev should converge to floor, got %.4f", last.StdDev)
	}
}

func TestNoNaN(t *testing.T) {
	e := New(game.TitleDota2)
	s := game.NewState("m", game.TitleDota2, 1)
	s.Minutes = 60
	s.Team1.Gold = 900000 // absurd input still yields a finite estimate
	s.Team1.Kills = 60
	s.Team1.Towers = 11
	s.Team1.Barracks = 6
	s.Team1.HasMega = true
	snap := e.CalculateFromState(s)
	if math.IsNaN(snap.Team1Prob) || math.IsInf(snap.Team1Prob, 0) {
		t.Fatalf("non-finite probability: %v", snap.Team1Prob)
	}
	if snap.Team1Prob != 0.98 {
		t.Errorf("expected clamp at 0.98, got %.4f", snap.Team1Prob)
	}
}

func TestUnknownEventAbsorbed(t *testing.T) {
	e := New(game.TitleLoL)
	before := e.Probability()
	snap := e.UpdateFromEvent(&game.Event{
		Time: 15, Type: game.EventType("comet"), Team: game.Team1, Context: game.ContextDefault,
	}, impact.Situation{Minutes: 15})
	if snap.Team1Prob <= before {
		t.Errorf("unknown event should still apply floor impact, got %.4f", snap.Team1Prob)
	}
	if snap.Team1Prob > before+0.01 {
		t.Errorf("unknown event impact should be near-zero, moved %.4f", snap.Team1Prob-before)
	}
}
