// Package rating models pre-game team strength and turns it into a prior
// win probability for the engine.
package rating

import "math"

// TeamStrength is an Elo-style rating enriched with recent form and roster
// stability. Ratings center on 1500.
type TeamStrength struct {
	Name            string  `json:"name"`
	Rating          float64 `json:"rating"`           // Elo-like, 1500 baseline
	RecentForm      float64 `json:"recent_form"`      // win rate over last 10
	RosterStability float64 `json:"roster_stability"` // 1.0 stable, lower after changes

	AvgGameTime    float64 `json:"avg_game_time"`
	EarlyGameScore float64 `json:"early_game_score"`
	LateGameScore  float64 `json:"late_game_score"`
}

// NewTeamStrength returns a neutral-strength team.
func NewTeamStrength(name string) TeamStrength {
	return TeamStrength{
		Name:            name,
		Rating:          1500,
		RecentForm:      0.5,
		RosterStability: 1.0,
		AvgGameTime:     30,
		EarlyGameScore:  0.5,
		LateGameScore:   0.5,
	}
}

// EloProbability converts a rating difference into a win probability using
// the standard Elo logistic.
func EloProbability(diff float64) float64 {
	return 1 / (1 + math.Pow(10, -diff/400))
}

// WinProbabilityVs estimates this team's chance against an opponent: Elo
// base, adjusted by recent form (max +-5%) and roster stability, clamped to
// [0.1, 0.9] so no prior overwhelms in-game evidence.
func (t TeamStrength) WinProbabilityVs(opp TeamStrength) float64 {
	base := EloProbability(t.Rating - opp.Rating)
	formAdj := (t.RecentForm - opp.RecentForm) * 0.1
	stabilityAdj := (t.RosterStability - opp.RosterStability) * 0.03

	p := base + formAdj + stabilityAdj
	if p < 0.1 {
		return 0.1
	}
	if p > 0.9 {
		return 0.9
	}
	return p
}

// ComebackFactor estimates how readily this team claws back a deficit.
// Better late-game teams come back more often.
func (t TeamStrength) ComebackFactor() float64 {
	return 0.8 + t.LateGameScore*0.4
}
