package impact

import (
	"math"
	"testing"

	"github.com/phenomenon0/esports-edge/pkg/esports/game"
)

func TestCurveMonotonic(t *testing.T) {
	for _, title := range []game.Title{game.TitleLoL, game.TitleDota2} {
		curve := CurveForTitle(title)
		prev := curve.Eval(0)
		for m := 0.5; m <= 80; m += 0.5 {
			v := curve.Eval(m)
			if v < prev {
				t.Errorf("%s curve decreased at %.1f: %.4f < %.4f", title, m, v, prev)
			}
			prev = v
		}
	}
}

func TestCurveContinuousAtBreakpoints(t *testing.T) {
	curve := CurveForTitle(game.TitleLoL)
	for _, bp := range []float64{10, 25, 40, 60} {
		lo := curve.Eval(bp - 1e-6)
		hi := curve.Eval(bp + 1e-6)
		if math.Abs(hi-lo) > 1e-4 {
			t.Errorf("discontinuity at %.0f min: %.6f vs %.6f", bp, lo, hi)
		}
	}
}

func TestCurveKnownValues(t *testing.T) {
	lol := CurveForTitle(game.TitleLoL)
	cases := []struct {
		min  float64
		want float64
	}{
		{0, 0.5},
		{10, 0.7},
		{25, 1.1},
		{40, 1.4},
		{100, 1.5},
	}
	for _, tc := range cases {
		if got := lol.Eval(tc.min); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("lol curve at %.0f: got %.4f want %.4f", tc.min, got, tc.want)
		}
	}
	dota := CurveForTitle(game.TitleDota2)
	if got := dota.Eval(200); got != 1.2 {
		t.Errorf("dota curve cap: got %.4f want 1.2", got)
	}
}

func TestTableFallback(t *testing.T) {
	tbl := TableForTitle(game.TitleLoL)

	// Exact context.
	if got := tbl.Lookup(game.EventKill, game.ContextSolo); got != 0.008 {
		t.Errorf("solo kill: got %.4f want 0.008", got)
	}
	// Unknown context falls back to default.
	if got := tbl.Lookup(game.EventKill, game.EventContext("weird")); got != 0.006 {
		t.Errorf("unknown kill context: got %.4f want 0.006", got)
	}
	// Unknown event type falls back to the floor.
	if got := tbl.Lookup(game.EventType("meteor"), game.ContextDefault); got != UnknownEventImpact {
		t.Errorf("unknown event: got %.4f want %.4f", got, UnknownEventImpact)
	}
}

func TestContextFactorsBounded(t *testing.T) {
	factors := []float64{
		ComebackFactor(-100000),
		ComebackFactor(100000),
		VictimValueFactor(1000000, 10),
		VictimValueFactor(1, 30),
		PressureFactor(game.EventBaron, 3),
		DesperationFactor(1),
		SoulPointFactor(game.EventDragon, true),
		ContestedFactor(true),
		StealFactor(true),
	}
	for i, f := range factors {
		if f < 0.65 || f > 1.35 {
			t.Errorf("factor %d out of +-35%% bound: %.4f", i, f)
		}
	}
}

func TestComebackFactor(t *testing.T) {
	cases := []struct {
		diff int
		want float64
	}{
		{-6000, 1.25},
		{-3000, 1.12},
		{0, 1.0},
		{5000, 0.88},
		{9000, 0.75},
	}
	for _, tc := range cases {
		if got := ComebackFactor(tc.diff); got != tc.want {
			t.Errorf("ComebackFactor(%d) = %.2f, want %.2f", tc.diff, got, tc.want)
		}
	}
}

func TestVictimValueFactor(t *testing.T) {
	// At 25 minutes the average is 300 + 25*400 = 10300.
	cases := []struct {
		gold int
		want float64
	}{
		{0, 1.0},     // unknown
		{16000, 1.2}, // fed
		{13000, 1.1}, // rich
		{10000, 1.0}, // average
		{6000, 0.85}, // poor
	}
	for _, tc := range cases {
		if got := VictimValueFactor(tc.gold, 25); got != tc.want {
			t.Errorf("VictimValueFactor(%d, 25) = %.2f, want %.2f", tc.gold, got, tc.want)
		}
	}
}

func TestBaronOutweighsKill(t *testing.T) {
	calc := NewCalculator(game.TitleLoL)
	sit := Situation{Minutes: 28}

	baron := calc.Calculate(&game.Event{Time: 28, Type: game.EventBaron, Team: game.Team1, Context: game.ContextDefault}, sit)
	kill := calc.Calculate(&game.Event{Time: 28, Type: game.EventKill, Team: game.Team1, Context: game.ContextDefault}, sit)

	if baron.FinalImpact < 5*kill.FinalImpact {
		t.Errorf("baron impact %.4f not >= 5x kill impact %.4f", baron.FinalImpact, kill.FinalImpact)
	}
}

func TestTeamSymmetry(t *testing.T) {
	calc := NewCalculator(game.TitleLoL)
	sit := Situation{Minutes: 20}

	t1 := calc.Calculate(&game.Event{Time: 20, Type: game.EventTower, Team: game.Team1, Context: game.ContextInner}, sit)
	t2 := calc.Calculate(&game.Event{Time: 20, Type: game.EventTower, Team: game.Team2, Context: game.ContextInner}, sit)

	if t1.FinalImpact != -t2.FinalImpact {
		t.Errorf("impacts not symmetric: %.6f vs %.6f", t1.FinalImpact, t2.FinalImpact)
	}
}

func TestFightImpact(t *testing.T) {
	calc := NewCalculator(game.TitleLoL)
	sit := Situation{Minutes: 25}

	even := calc.FightImpact(2, 2, game.Team1, sit)
	if even.FinalImpact != 0 {
		t.Errorf("even trade should have zero impact, got %.4f", even.FinalImpact)
	}

	win := calc.FightImpact(3, 1, game.Team1, sit)
	if win.FinalImpact <= 0 {
		t.Errorf("won fight should favor team 1, got %.4f", win.FinalImpact)
	}

	ace := calc.FightImpact(5, 0, game.Team1, sit)
	if ace.FinalImpact <= win.FinalImpact {
		t.Errorf("ace %.4f should exceed 3-1 %.4f", ace.FinalImpact, win.FinalImpact)
	}

	lost := calc.FightImpact(1, 4, game.Team1, sit)
	if lost.FinalImpact >= 0 {
		t.Errorf("lost fight should count against team 1, got %.4f", lost.FinalImpact)
	}
}

func TestObjectiveEscalation(t *testing.T) {
	tbl := TableForTitle(game.TitleDota2)
	base := tbl.Lookup(game.EventRoshan, game.ContextDefault)
	second := tbl.ObjectiveEscalation(game.TitleDota2, game.EventRoshan, 2, base)
	third := tbl.ObjectiveEscalation(game.TitleDota2, game.EventRoshan, 3, base)
	if !(base < second && second < third) {
		t.Errorf("roshan escalation not increasing: %.3f %.3f %.3f", base, second, third)
	}
}
