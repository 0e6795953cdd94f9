package impact

import (
	"strings"

	"github.com/phenomenon0/esports-edge/pkg/esports/game"
)

// Situation captures the game-state context an event happened in, from the
// acting team's point of view where signed.
type Situation struct {
	Minutes  float64
	GoldDiff int // positive = acting team ahead

	VictimGold   int
	VictimStreak int

	EnemyInhibsDown int
	TowersRemaining int // acting team's standing towers

	SoulPoint bool
	Contested bool
	Steal     bool
}

// Each factor below is bounded within ±35% and independently testable. The
// combined context multiplier is their product, so effects compound.

// ComebackFactor makes events count more for a team digging out of a deficit
// and less for a team already far ahead.
func ComebackFactor(goldDiff int) float64 {
	switch {
	case goldDiff < -5000:
		return 1.25
	case goldDiff < -2000:
		return 1.12
	case goldDiff > 8000:
		return 0.75
	case goldDiff > 4000:
		return 0.88
	default:
		return 1.0
	}
}

// VictimValueFactor scales a kill by how gold-rich the victim was relative
// to the time-appropriate average (rough per-player accrual model).
func VictimValueFactor(victimGold int, minutes float64) float64 {
	if victimGold <= 0 {
		return 1.0
	}
	avg := 300 + minutes*400
	if avg < 1 {
		avg = 1
	}
	ratio := float64(victimGold) / avg
	switch {
	case ratio > 1.5:
		return 1.20
	case ratio > 1.2:
		return 1.10
	case ratio < 0.7:
		return 0.85
	default:
		return 1.0
	}
}

// PressureFactor boosts major objectives when the enemy is already
// structurally weakened.
func PressureFactor(typ game.EventType, enemyInhibsDown int) float64 {
	if enemyInhibsDown > 0 {
		switch typ {
		case game.EventBaron, game.EventDragon, game.EventRoshan:
			return 1.15
		}
	}
	return 1.0
}

// DesperationFactor boosts events for a team down to its last towers.
func DesperationFactor(towersRemaining int) float64 {
	if towersRemaining > 0 && towersRemaining <= 3 {
		return 1.10
	}
	return 1.0
}

// SoulPointFactor boosts the dragon that puts a team one away from soul.
func SoulPointFactor(typ game.EventType, soulPoint bool) float64 {
	if soulPoint && typ == game.EventDragon {
		return 1.30
	}
	return 1.0
}

// ContestedFactor rewards winning a 50/50 smite fight.
func ContestedFactor(contested bool) float64 {
	if contested {
		return 1.15
	}
	return 1.0
}

// StealFactor is the largest single factor; a stolen objective swings both
// the objective and the fight around it.
func StealFactor(steal bool) float64 {
	if steal {
		return 1.35
	}
	return 1.0
}

// ContextMultiplier composes the applicable factors for an event into one
// multiplicative adjustment, plus a short annotation list for diagnostics.
func ContextMultiplier(typ game.EventType, sit Situation) (float64, string) {
	mult := 1.0
	var notes []string

	if f := ComebackFactor(sit.GoldDiff); f != 1.0 {
		mult *= f
		if f > 1 {
			notes = append(notes, "comeback")
		} else {
			notes = append(notes, "snowball")
		}
	}
	if typ == game.EventKill {
		if f := VictimValueFactor(sit.VictimGold, sit.Minutes); f != 1.0 {
			mult *= f
			if f > 1 {
				notes = append(notes, "rich_victim")
			} else {
				notes = append(notes, "poor_victim")
			}
		}
	}
	if f := PressureFactor(typ, sit.EnemyInhibsDown); f != 1.0 {
		mult *= f
		notes = append(notes, "pressure")
	}
	if f := DesperationFactor(sit.TowersRemaining); f != 1.0 {
		mult *= f
		notes = append(notes, "desperate")
	}
	if f := SoulPointFactor(typ, sit.SoulPoint); f != 1.0 {
		mult *= f
		notes = append(notes, "soul_point")
	}
	if f := ContestedFactor(sit.Contested); f != 1.0 {
		mult *= f
		notes = append(notes, "contested")
	}
	if f := StealFactor(sit.Steal); f != 1.0 {
		mult *= f
		notes = append(notes, "steal")
	}

	return mult, strings.Join(notes, ",")
}
