package game

import "fmt"

// TeamStats holds cumulative counters for one side. All counters are
// monotonically non-decreasing within a game.
type TeamStats struct {
	Kills  int `json:"kills"`
	Deaths int `json:"deaths"`
	Gold   int `json:"gold"`
	Towers int `json:"towers"`

	// LoL objectives.
	Dragons    int  `json:"dragons,omitempty"`
	Barons     int  `json:"barons,omitempty"`
	Heralds    int  `json:"heralds,omitempty"`
	Inhibitors int  `json:"inhibitors,omitempty"`
	HasSoul    bool `json:"has_soul,omitempty"`
	HasElder   bool `json:"has_elder,omitempty"`
	HasBaron   bool `json:"has_baron,omitempty"` // active buff

	// Dota objectives.
	Roshans  int  `json:"roshans,omitempty"`
	Barracks int  `json:"barracks,omitempty"` // enemy barracks destroyed
	HasAegis bool `json:"has_aegis,omitempty"`
	HasMega  bool `json:"has_mega,omitempty"`

	TowersRemaining int `json:"towers_remaining"`
}

// State is the mutable aggregate for one live game. It is owned by a single
// writer for the duration of the game and superseded by a fresh instance at
// the start of the next game in a series.
type State struct {
	MatchID    string  `json:"match_id"`
	Title      Title   `json:"title"`
	GameNumber int     `json:"game_number"`
	Minutes    float64 `json:"minutes"`

	Team1 TeamStats `json:"team1"`
	Team2 TeamStats `json:"team2"`
}

// NewState returns a zeroed state for the given game. Towers remaining start
// at the per-title full count.
func NewState(matchID string, title Title, gameNumber int) *State {
	// Both titles field 11 towers per side.
	const full = 11
	return &State{
		MatchID:    matchID,
		Title:      title,
		GameNumber: gameNumber,
		Team1:      TeamStats{TowersRemaining: full},
		Team2:      TeamStats{TowersRemaining: full},
	}
}

// Stats returns the counters for the given side.
func (s *State) Stats(t Team) *TeamStats {
	if t == Team1 {
		return &s.Team1
	}
	return &s.Team2
}

// GoldDiff is positive when team 1 is ahead.
func (s *State) GoldDiff() int { return s.Team1.Gold - s.Team2.Gold }

// KillDiff is positive when team 1 has more kills.
func (s *State) KillDiff() int { return s.Team1.Kills - s.Team2.Kills }

// TowerDiff is positive when team 1 has taken more towers.
func (s *State) TowerDiff() int { return s.Team1.Towers - s.Team2.Towers }

// DragonDiff is positive when team 1 has more dragons.
func (s *State) DragonDiff() int { return s.Team1.Dragons - s.Team2.Dragons }

// Phase returns the coarse game stage for the current clock.
func (s *State) Phase() Phase { return PhaseAt(s.Title, s.Minutes) }

// IsCloseGame reports whether the gold difference is within 3k.
func (s *State) IsCloseGame() bool {
	d := s.GoldDiff()
	return d > -3000 && d < 3000
}

// Leader returns the side ahead on gold and its (non-negative) lead.
func (s *State) Leader() (Team, int) {
	d := s.GoldDiff()
	if d >= 0 {
		return Team1, d
	}
	return Team2, -d
}

// Clone returns a deep copy, safe to hand across goroutine boundaries.
func (s *State) Clone() *State {
	cp := *s
	return &cp
}

// Summary renders a short human-readable line for logs.
func (s *State) Summary() string {
	return fmt.Sprintf("%.1fmin | gold %+d | K %d-%d | T %d-%d",
		s.Minutes, s.GoldDiff(),
		s.Team1.Kills, s.Team2.Kills,
		s.Team1.Towers, s.Team2.Towers)
}
