package series

import (
	"math"
	"testing"
)

func TestBoundaryExactness(t *testing.T) {
	for _, p := range []float64{0.0, 0.3, 0.5, 0.9, 1.0} {
		won := New(Bo5, 3, 1)
		if got := won.WinProbability(p); got != 1.0 {
			t.Errorf("decided series (3-1) at p=%.1f: got %v want exactly 1.0", p, got)
		}
		lost := New(Bo3, 0, 2)
		if got := lost.WinProbability(p); got != 0.0 {
			t.Errorf("lost series (0-2) at p=%.1f: got %v want exactly 0.0", p, got)
		}
	}
}

func TestBo5KnownScenario(t *testing.T) {
	// Up 2-1 in a Bo5 with p=0.55: win now, or lose then win one more.
	// 0.55 + 0.45*0.55 = 0.7975 exactly.
	s := New(Bo5, 2, 1)
	got := s.WinProbability(0.55)
	want := 0.55 + 0.45*0.55
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Bo5 2-1 p=0.55: got %.10f want %.10f", got, want)
	}
}

func TestMonotonicInP(t *testing.T) {
	s := New(Bo5, 1, 1)
	prev := -1.0
	for p := 0.0; p <= 1.0001; p += 0.05 {
		v := s.WinProbability(p)
		if v < prev {
			t.Errorf("series probability decreased at p=%.2f: %.4f < %.4f", p, v, prev)
		}
		prev = v
	}
}

func TestBo1PassThrough(t *testing.T) {
	s := New(Bo1, 0, 0)
	if got := s.WinProbability(0.62); got != 0.62 {
		t.Errorf("Bo1 should pass probability through, got %.4f", got)
	}
}

func TestRecordWinAndErrSeriesDecided(t *testing.T) {
	s := New(Bo3, 0, 0)
	if err := s.RecordWin(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.RecordWin(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsOver() || s.Winner() != 1 {
		t.Fatalf("series should be over with winner 1, got over=%v winner=%d", s.IsOver(), s.Winner())
	}
	if err := s.RecordWin(2); err != ErrSeriesDecided {
		t.Errorf("recording past completion: got %v want ErrSeriesDecided", err)
	}
	if s.Team2Wins != 0 {
		t.Errorf("rejected record must not mutate score, got %d", s.Team2Wins)
	}
}

func TestMatchPointFlags(t *testing.T) {
	cases := []struct {
		format      Format
		t1, t2      int
		mp1, mp2    bool
		elimination bool
	}{
		{Bo5, 2, 0, true, false, false},
		{Bo5, 2, 2, true, true, true},
		{Bo3, 1, 1, true, true, true},
		{Bo3, 0, 0, false, false, false},
		{Bo1, 0, 0, true, true, true},
	}
	for _, tc := range cases {
		s := New(tc.format, tc.t1, tc.t2)
		if got := s.IsMatchPointFor(1); got != tc.mp1 {
			t.Errorf("Bo%d %d-%d match point T1: got %v want %v", tc.format, tc.t1, tc.t2, got, tc.mp1)
		}
		if got := s.IsMatchPointFor(2); got != tc.mp2 {
			t.Errorf("Bo%d %d-%d match point T2: got %v want %v", tc.format, tc.t1, tc.t2, got, tc.mp2)
		}
		if got := s.IsEliminationGame(); got != tc.elimination {
			t.Errorf("Bo%d %d-%d elimination: got %v want %v", tc.format, tc.t1, tc.t2, got, tc.elimination)
		}
	}
}

func TestGameNumber(t *testing.T) {
	s := New(Bo5, 1, 2)
	if got := s.GameNumber(); got != 4 {
		t.Errorf("game number: got %d want 4", got)
	}
}
