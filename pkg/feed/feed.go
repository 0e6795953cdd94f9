// Package feed defines the data-feed contract: connectors produce normalized
// match updates, and a per-match funnel serializes delivery so the engine
// sees strictly ordered single-writer input.
package feed

import (
	"context"

	"github.com/phenomenon0/esports-edge/pkg/esports/game"
)

// UpdateKind discriminates the payload carried by an Update.
type UpdateKind string

const (
	KindMatchStart UpdateKind = "match_start"
	KindEvent      UpdateKind = "event"
	KindState      UpdateKind = "state"
	KindGameEnd    UpdateKind = "game_end"
)

// MatchStart announces a newly discovered live match.
type MatchStart struct {
	MatchID   string     `json:"match_id"`
	Title     game.Title `json:"title"`
	Team1Name string     `json:"team1_name"`
	Team2Name string     `json:"team2_name"`
	BestOf    int        `json:"best_of"`
	Team1Wins int        `json:"team1_wins"`
	Team2Wins int        `json:"team2_wins"`
}

// Update is one unit of feed output. Exactly one payload field is set,
// indicated by Kind.
type Update struct {
	MatchID string     `json:"match_id"`
	Kind    UpdateKind `json:"kind"`

	Start   *MatchStart  `json:"start,omitempty"`
	Event   *game.Event  `json:"event,omitempty"`
	State   *game.State  `json:"state,omitempty"`
	GameEnd *game.Result `json:"game_end,omitempty"`
}

// Handler consumes updates. Implementations must be safe for calls from the
// connector's own goroutine; per-match ordering is the Funnel's job.
type Handler func(Update)

// Connector is the capability interface every feed source implements. Start
// launches the source's polling or streaming loop and returns once it is
// running; delivery happens via the handler registered with SetHandler
// before Start. Stop halts delivery and releases resources.
type Connector interface {
	Name() string
	SetHandler(Handler)
	Start(ctx context.Context) error
	Stop()
}
