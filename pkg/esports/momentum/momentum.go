// Package momentum aggregates recent event impacts into a bounded
// probability nudge. Recent events are weighted more via exponential decay.
package momentum

import (
	"math"

	"github.com/phenomenon0/esports-edge/pkg/esports/game"
)

// State is the categorical momentum direction, exposed for diagnostics.
type State string

const (
	StrongTeam1 State = "strong_t1"
	SlightTeam1 State = "slight_t1"
	Neutral     State = "neutral"
	SlightTeam2 State = "slight_t2"
	StrongTeam2 State = "strong_t2"
)

const (
	// DefaultDecayMinutes is the e-folding horizon for event weight.
	DefaultDecayMinutes = 3.0

	// maxAdjustment bounds the probability nudge momentum can apply.
	maxAdjustment = 0.03

	// maxEntries bounds the window regardless of event density.
	maxEntries = 64
)

type entry struct {
	time      float64
	team      game.Team
	magnitude float64
}

// Tracker is a decaying window over recent event impacts. Entries are
// time-ordered; inserts prune anything older than twice the decay horizon
// and drop the oldest entry past the fixed capacity. Not safe for concurrent
// use; each tracker belongs to one engine.
type Tracker struct {
	decay   float64
	entries []entry
	now     float64
}

// NewTracker builds a tracker with the given decay horizon in minutes.
// Non-positive decay falls back to the default.
func NewTracker(decayMinutes float64) *Tracker {
	if decayMinutes <= 0 {
		decayMinutes = DefaultDecayMinutes
	}
	return &Tracker{decay: decayMinutes, entries: make([]entry, 0, maxEntries)}
}

// Add records an event's (unsigned) impact magnitude for a team at a game
// time in minutes.
func (t *Tracker) Add(gameTime float64, team game.Team, magnitude float64) {
	if magnitude < 0 {
		magnitude = -magnitude
	}
	t.entries = append(t.entries, entry{time: gameTime, team: team, magnitude: magnitude})
	if gameTime > t.now {
		t.now = gameTime
	}
	t.prune()
}

func (t *Tracker) prune() {
	cutoff := t.now - 2*t.decay
	i := 0
	for i < len(t.entries) && t.entries[i].time <= cutoff {
		i++
	}
	if i > 0 {
		t.entries = t.entries[i:]
	}
	for len(t.entries) > maxEntries {
		t.entries = t.entries[1:]
	}
}

// Score is the decayed signed sum of recent impacts. Positive favors team 1.
func (t *Tracker) Score() float64 {
	score := 0.0
	for _, e := range t.entries {
		age := t.now - e.time
		if age < 0 {
			age = 0
		}
		score += e.magnitude * math.Exp(-age/t.decay) * e.team.Sign()
	}
	return score
}

// Adjustment scales the score into a hard-capped probability nudge so
// momentum colors the estimate without dominating it.
func (t *Tracker) Adjustment() float64 {
	adj := t.Score() * 0.5
	if adj > maxAdjustment {
		return maxAdjustment
	}
	if adj < -maxAdjustment {
		return -maxAdjustment
	}
	return adj
}

// CurrentState buckets the score into a categorical direction.
func (t *Tracker) CurrentState() State {
	score := t.Score()
	switch {
	case score > 0.05:
		return StrongTeam1
	case score > 0.02:
		return SlightTeam1
	case score < -0.05:
		return StrongTeam2
	case score < -0.02:
		return SlightTeam2
	default:
		return Neutral
	}
}

// Streak counts the trailing run of consecutive events by one team.
func (t *Tracker) Streak(team game.Team) int {
	streak := 0
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].team != team {
			break
		}
		streak++
	}
	return streak
}

// Len reports the current window size.
func (t *Tracker) Len() int { return len(t.entries) }

// Reset clears the window for a new game.
func (t *Tracker) Reset() {
	t.entries = t.entries[:0]
	t.now = 0
}
