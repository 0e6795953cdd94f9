package momentum

import (
	"math"
	"testing"

	"github.com/phenomenon0/esports-edge/pkg/esports/game"
)

func TestScoreDirection(t *testing.T) {
	tr := NewTracker(3.0)
	tr.Add(10, game.Team1, 0.01)
	tr.Add(10.5, game.Team1, 0.01)
	if tr.Score() <= 0 {
		t.Errorf("team 1 events should give positive score, got %.4f", tr.Score())
	}

	tr.Reset()
	tr.Add(10, game.Team2, 0.02)
	if tr.Score() >= 0 {
		t.Errorf("team 2 events should give negative score, got %.4f", tr.Score())
	}
}

func TestDecayStrictlyDecreasing(t *testing.T) {
	// The same event's contribution must shrink as the clock advances, and
	// never flip sign.
	prev := math.Inf(1)
	for _, now := range []float64{10, 11, 13, 15} {
		tr := NewTracker(3.0)
		tr.Add(10, game.Team1, 0.02)
		// Advance the clock with a negligible marker event from the other
		// team so the window's notion of "now" moves.
		if now > 10 {
			tr.Add(now, game.Team2, 0)
		}
		s := tr.Score()
		if s < 0 {
			t.Errorf("score flipped sign at t=%.0f: %.6f", now, s)
		}
		if s >= prev {
			t.Errorf("score did not decay at t=%.0f: %.6f >= %.6f", now, s, prev)
		}
		prev = s
	}
}

func TestPruneHorizon(t *testing.T) {
	tr := NewTracker(3.0)
	tr.Add(1, game.Team1, 0.05)
	tr.Add(2, game.Team1, 0.05)
	// Two decay horizons later the early entries must be gone.
	tr.Add(10, game.Team2, 0.001)
	if tr.Len() != 1 {
		t.Errorf("expected 1 entry after pruning, got %d", tr.Len())
	}
}

func TestCapacityBound(t *testing.T) {
	tr := NewTracker(100)
	for i := 0; i < 500; i++ {
		tr.Add(float64(i)*0.01, game.Team1, 0.001)
	}
	if tr.Len() > maxEntries {
		t.Errorf("window exceeded capacity: %d", tr.Len())
	}
}

func TestAdjustmentCapped(t *testing.T) {
	tr := NewTracker(3.0)
	for i := 0; i < 20; i++ {
		tr.Add(10, game.Team1, 0.1)
	}
	if adj := tr.Adjustment(); adj != maxAdjustment {
		t.Errorf("adjustment should cap at %.2f, got %.4f", maxAdjustment, adj)
	}

	tr.Reset()
	for i := 0; i < 20; i++ {
		tr.Add(10, game.Team2, 0.1)
	}
	if adj := tr.Adjustment(); adj != -maxAdjustment {
		t.Errorf("adjustment should cap at %.2f, got %.4f", -maxAdjustment, adj)
	}
}

func TestCurrentState(t *testing.T) {
	tr := NewTracker(3.0)
	if tr.CurrentState() != Neutral {
		t.Errorf("empty tracker should be neutral, got %s", tr.CurrentState())
	}

	tr.Add(10, game.Team1, 0.06)
	if tr.CurrentState() != StrongTeam1 {
		t.Errorf("expected strong_t1, got %s", tr.CurrentState())
	}

	tr.Reset()
	tr.Add(10, game.Team2, 0.03)
	if tr.CurrentState() != SlightTeam2 {
		t.Errorf("expected slight_t2, got %s", tr.CurrentState())
	}
}

func TestStreak(t *testing.T) {
	tr := NewTracker(3.0)
	tr.Add(10, game.Team2, 0.01)
	tr.Add(11, game.Team1, 0.01)
	tr.Add(11.5, game.Team1, 0.01)
	if got := tr.Streak(game.Team1); got != 2 {
		t.Errorf("team 1 streak: got %d want 2", got)
	}
	if got := tr.Streak(game.Team2); got != 0 {
		t.Errorf("team 2 streak: got %d want 0", got)
	}
}
