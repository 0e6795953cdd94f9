// Package game defines the shared domain types for live esports matches:
// titles, teams, normalized events, and per-game state.
package game

import "fmt"

// Title identifies a supported game title.
type Title string

const (
	TitleLoL   Title = "lol"
	TitleDota2 Title = "dota2"
)

// ParseTitle normalizes a title string. Unknown titles default to LoL.
func ParseTitle(s string) Title {
	switch s {
	case "dota2", "dota":
		return TitleDota2
	default:
		return TitleLoL
	}
}

// Team identifies one of the two sides in a game.
type Team int

const (
	Team1 Team = 1
	Team2 Team = 2
)

// Sign returns +1 for team 1 and -1 for team 2, used to orient impacts
// toward the team-1 probability axis.
func (t Team) Sign() float64 {
	if t == Team1 {
		return 1
	}
	return -1
}

// Opponent returns the other side.
func (t Team) Opponent() Team {
	if t == Team1 {
		return Team2
	}
	return Team1
}

func (t Team) String() string {
	return fmt.Sprintf("T%d", int(t))
}

// EventType is the normalized kind of a game event.
type EventType string

const (
	EventKill      EventType = "kill"
	EventTower     EventType = "tower"
	EventDragon    EventType = "dragon"
	EventBaron     EventType = "baron"
	EventHerald    EventType = "herald"
	EventInhibitor EventType = "inhibitor"
	EventRoshan    EventType = "roshan"
	EventBarracks  EventType = "barracks"
	EventTeamfight EventType = "teamfight"
)

// EventContext qualifies an event within its type. Contexts are specific to
// the event type; the impact table resolves unknown combinations down to
// ContextDefault.
type EventContext string

const (
	ContextDefault    EventContext = "default"
	ContextSolo       EventContext = "solo"
	ContextFirstBlood EventContext = "first_blood"
	ContextShutdown   EventContext = "shutdown"
	ContextSteal      EventContext = "steal"
	ContextContested  EventContext = "contested"

	// Tower tiers (LoL).
	ContextOuter EventContext = "outer"
	ContextInner EventContext = "inner"
	ContextBase  EventContext = "base"

	// Tower tiers (Dota).
	ContextTier1 EventContext = "tier1"
	ContextTier2 EventContext = "tier2"
	ContextTier3 EventContext = "tier3"
	ContextTier4 EventContext = "tier4"

	// Dragons (LoL).
	ContextSoulPoint EventContext = "soul_point"
	ContextSoul      EventContext = "soul"
	ContextElder     EventContext = "elder"

	// Barracks (Dota).
	ContextMelee  EventContext = "melee"
	ContextRanged EventContext = "ranged"
	ContextMega   EventContext = "mega"
)

// Event is a single normalized game event. Events are immutable once created
// and consumed exactly once by the probability engine's incremental path.
type Event struct {
	MatchID string       `json:"match_id"`
	Time    float64      `json:"time"` // game clock, minutes
	Type    EventType    `json:"type"`
	Team    Team         `json:"team"`
	Context EventContext `json:"context"`

	// Objective context.
	ObjectiveNumber int `json:"objective_number,omitempty"` // 1st dragon vs 4th

	// Kill context.
	VictimGold   int  `json:"victim_gold,omitempty"`
	VictimStreak int  `json:"victim_streak,omitempty"`
	AssistCount  int  `json:"assist_count,omitempty"`
	IsShutdown   bool `json:"is_shutdown,omitempty"`

	// Teamfight context.
	FightKillsFor     int `json:"fight_kills_for,omitempty"`
	FightKillsAgainst int `json:"fight_kills_against,omitempty"`
}

// Phase is a coarse stage of a game, used for diagnostics and snapshot
// annotation rather than any branching logic.
type Phase string

const (
	PhaseEarlyLane Phase = "early_lane"
	PhaseMidLane   Phase = "mid_lane"
	PhaseEarlyMid  Phase = "early_mid"
	PhaseMidGame   Phase = "mid_game"
	PhaseLateMid   Phase = "late_mid"
	PhaseLateGame  Phase = "late_game"
	PhaseUltraLate Phase = "ultra_late"
)

// PhaseAt returns the phase for a game time in minutes. The two titles have
// different pacing, so the cut points differ.
func PhaseAt(title Title, minutes float64) Phase {
	if title == TitleDota2 {
		switch {
		case minutes < 10:
			return PhaseEarlyLane
		case minutes < 18:
			return PhaseMidLane
		case minutes < 28:
			return PhaseMidGame
		case minutes < 40:
			return PhaseLateMid
		case minutes < 55:
			return PhaseLateGame
		default:
			return PhaseUltraLate
		}
	}
	switch {
	case minutes < 6:
		return PhaseEarlyLane
	case minutes < 14:
		return PhaseMidLane
	case minutes < 20:
		return PhaseEarlyMid
	case minutes < 28:
		return PhaseMidGame
	case minutes < 35:
		return PhaseLateMid
	case minutes < 45:
		return PhaseLateGame
	default:
		return PhaseUltraLate
	}
}

// Result records the outcome of a completed game, used for series tracking
// and paper-trade settlement.
type Result struct {
	MatchID         string  `json:"match_id"`
	GameNumber      int     `json:"game_number"`
	Winner          Team    `json:"winner"`
	DurationMinutes float64 `json:"duration_minutes"`
	FinalGoldDiff   int     `json:"final_gold_diff"`
}
