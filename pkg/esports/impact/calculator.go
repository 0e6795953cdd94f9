package impact

import (
	"fmt"

	"github.com/phenomenon0/esports-edge/pkg/esports/game"
)

// Result is the full breakdown of one impact calculation. FinalImpact is
// signed on the team-1 axis.
type Result struct {
	Base        float64
	TimeMult    float64
	ContextMult float64
	FinalImpact float64
	Confidence  float64
	Explanation string
}

// Calculator turns a game event into a signed probability impact. It is a
// pure lookup/compose unit; it holds no per-game state and one instance can
// serve many engines of the same title.
type Calculator struct {
	title game.Title
	table Table
	curve Curve
}

// NewCalculator builds a calculator for one title.
func NewCalculator(title game.Title) *Calculator {
	return &Calculator{
		title: title,
		table: TableForTitle(title),
		curve: CurveForTitle(title),
	}
}

// Title returns the game title this calculator is tuned for.
func (c *Calculator) Title() game.Title { return c.title }

// TimeMultiplier exposes the title's time curve.
func (c *Calculator) TimeMultiplier(minutes float64) float64 {
	return c.curve.Eval(minutes)
}

// Calculate composes base x time x context into the final signed impact.
// sit.GoldDiff must already be oriented to the acting team (ev.Team).
func (c *Calculator) Calculate(ev *game.Event, sit Situation) Result {
	base := c.table.Lookup(ev.Type, ev.Context)
	if ev.ObjectiveNumber > 1 && ev.Context == game.ContextDefault {
		base = c.table.ObjectiveEscalation(c.title, ev.Type, ev.ObjectiveNumber, base)
	}

	timeMult := c.curve.Eval(ev.Time)
	ctxMult, notes := ContextMultiplier(ev.Type, sit)

	final := base * timeMult * ctxMult * ev.Team.Sign()

	explanation := fmt.Sprintf("%s %s: base=%.4f x time=%.2f x ctx=%.2f = %+.4f",
		ev.Type, ev.Team, base, timeMult, ctxMult, final)
	if notes != "" {
		explanation += " [" + notes + "]"
	}

	return Result{
		Base:        base,
		TimeMult:    timeMult,
		ContextMult: ctxMult,
		FinalImpact: final,
		Confidence:  c.confidence(ev, sit),
		Explanation: explanation,
	}
}

// FightImpact computes a teamfight's signed impact from its kill trade.
// killsFor/killsAgainst are from ev.Team's perspective.
func (c *Calculator) FightImpact(killsFor, killsAgainst int, team game.Team, sit Situation) Result {
	net := killsFor - killsAgainst
	if net == 0 {
		return Result{Confidence: 0.9, Explanation: "even trade"}
	}

	base := c.table.Lookup(game.EventTeamfight, game.ContextDefault)
	perKill := 0.012
	aceBonus := 0.04
	if c.title == game.TitleDota2 {
		perKill = 0.010
		aceBonus = 0.035
	}

	adv := net
	if adv < 0 {
		adv = -adv
	}
	base += float64(adv-1) * perKill

	total := killsFor + killsAgainst
	if killsFor >= 5 || (killsFor >= 4 && total >= 7) {
		base += aceBonus
	}

	timeMult := c.curve.Eval(sit.Minutes)
	ctxMult, _ := ContextMultiplier(game.EventTeamfight, sit)

	final := base * timeMult * ctxMult
	if net < 0 {
		final = -final
	}
	final *= team.Sign()

	return Result{
		Base:        base,
		TimeMult:    timeMult,
		ContextMult: ctxMult,
		FinalImpact: final,
		Confidence:  0.85,
		Explanation: fmt.Sprintf("fight %d-%d %s: %+.4f", killsFor, killsAgainst, team, final),
	}
}

// confidence grows with context completeness, capped at 0.95.
func (c *Calculator) confidence(ev *game.Event, sit Situation) float64 {
	conf := 0.7
	if sit.GoldDiff != 0 {
		conf += 0.05
	}
	if ev.Time > 10 {
		conf += 0.05
	}
	if ev.VictimGold > 0 {
		conf += 0.05
	}
	if sit.TowersRemaining > 0 && sit.TowersRemaining < 11 {
		conf += 0.03
	}
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}
