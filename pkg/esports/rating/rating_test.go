package rating

import (
	"math"
	"testing"
)

func TestEloProbability(t *testing.T) {
	if got := EloProbability(0); got != 0.5 {
		t.Errorf("equal ratings: got %.4f want 0.5", got)
	}
	// +400 Elo is the canonical 10:1, ~0.909.
	if got := EloProbability(400); math.Abs(got-10.0/11.0) > 1e-9 {
		t.Errorf("+400 Elo: got %.6f want %.6f", got, 10.0/11.0)
	}
	if a, b := EloProbability(100), EloProbability(-100); math.Abs(a+b-1) > 1e-12 {
		t.Errorf("Elo not symmetric: %.6f + %.6f != 1", a, b)
	}
}

func TestWinProbabilityVs(t *testing.T) {
	strong := NewTeamStrength("T1")
	strong.Rating = 1850
	strong.RecentForm = 0.75
	weak := NewTeamStrength("CLG")
	weak.Rating = 1500
	weak.RecentForm = 0.4

	p := strong.WinProbabilityVs(weak)
	if p <= 0.5 {
		t.Errorf("stronger team should be favored, got %.4f", p)
	}
	if p > 0.9 {
		t.Errorf("prior exceeds clamp: %.4f", p)
	}

	q := weak.WinProbabilityVs(strong)
	if q >= 0.5 {
		t.Errorf("weaker team should be underdog, got %.4f", q)
	}
	if q < 0.1 {
		t.Errorf("prior below clamp: %.4f", q)
	}
}

func TestPriorClamp(t *testing.T) {
	titan := NewTeamStrength("titan")
	titan.Rating = 3000
	minnow := NewTeamStrength("minnow")
	minnow.Rating = 1000

	if p := titan.WinProbabilityVs(minnow); p != 0.9 {
		t.Errorf("expected clamp at 0.9, got %.4f", p)
	}
	if p := minnow.WinProbabilityVs(titan); p != 0.1 {
		t.Errorf("expected clamp at 0.1, got %.4f", p)
	}
}

func TestComebackFactor(t *testing.T) {
	scaling := NewTeamStrength("scaling")
	scaling.LateGameScore = 1.0
	early := NewTeamStrength("early")
	early.LateGameScore = 0.0

	if scaling.ComebackFactor() <= early.ComebackFactor() {
		t.Errorf("late-game team should have higher comeback factor")
	}
}
