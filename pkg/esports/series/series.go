// Package series composes single-game win probability into best-of-N series
// probability by exact recursion over the remaining game tree.
package series

import "errors"

// ErrSeriesDecided is returned when a win is recorded after either team has
// already reached the series threshold.
var ErrSeriesDecided = errors.New("series already decided")

// Format is the best-of-N series length.
type Format int

const (
	Bo1 Format = 1
	Bo3 Format = 3
	Bo5 Format = 5
)

// GamesToWin is the number of game wins that decides the series.
func (f Format) GamesToWin() int {
	switch f {
	case Bo1:
		return 1
	case Bo3:
		return 2
	default:
		return 3
	}
}

// State tracks a best-of-N score. The zero value is not usable; construct
// with New. Mutated only through RecordWin.
type State struct {
	Format    Format
	Team1Wins int
	Team2Wins int
}

// New starts a series at the given score, allowing a live series to be
// resumed mid-flight.
func New(format Format, team1Wins, team2Wins int) *State {
	return &State{Format: format, Team1Wins: team1Wins, Team2Wins: team2Wins}
}

// RecordWin records a completed game. Recording past series completion is a
// caller bug and is rejected explicitly rather than silently absorbed.
func (s *State) RecordWin(team int) error {
	if s.IsOver() {
		return ErrSeriesDecided
	}
	if team == 1 {
		s.Team1Wins++
	} else {
		s.Team2Wins++
	}
	return nil
}

// IsOver reports whether either team has reached the threshold.
func (s *State) IsOver() bool {
	need := s.Format.GamesToWin()
	return s.Team1Wins >= need || s.Team2Wins >= need
}

// Winner returns 1 or 2 once decided, 0 while the series is live.
func (s *State) Winner() int {
	need := s.Format.GamesToWin()
	switch {
	case s.Team1Wins >= need:
		return 1
	case s.Team2Wins >= need:
		return 2
	default:
		return 0
	}
}

// GameNumber is the 1-indexed number of the game currently being played.
func (s *State) GameNumber() int { return s.Team1Wins + s.Team2Wins + 1 }

// IsMatchPointFor reports whether the given team is one win from the series.
func (s *State) IsMatchPointFor(team int) bool {
	need := s.Format.GamesToWin()
	if team == 1 {
		return need-s.Team1Wins == 1
	}
	return need-s.Team2Wins == 1
}

// IsEliminationGame reports whether the current game decides the series for
// both sides.
func (s *State) IsEliminationGame() bool {
	return s.IsMatchPointFor(1) && s.IsMatchPointFor(2)
}

// WinProbability computes team 1's series-win probability given its
// single-game win probability p. Exact recursion over the remaining tree:
// P(w,l) = p*P(w+1,l) + (1-p)*P(w,l+1), with P=1 once team 1 reaches the
// threshold and P=0 once team 2 does. The tree is small (at most 5 remaining
// games) but states repeat, so results are memoized per call.
func (s *State) WinProbability(p float64) float64 {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	memo := make(map[[2]int]float64, 16)
	return s.winProb(s.Team1Wins, s.Team2Wins, p, memo)
}

func (s *State) winProb(t1, t2 int, p float64, memo map[[2]int]float64) float64 {
	need := s.Format.GamesToWin()
	if t1 >= need {
		return 1.0
	}
	if t2 >= need {
		return 0.0
	}
	key := [2]int{t1, t2}
	if v, ok := memo[key]; ok {
		return v
	}
	v := p*s.winProb(t1+1, t2, p, memo) + (1-p)*s.winProb(t1, t2+1, p, memo)
	memo[key] = v
	return v
}
