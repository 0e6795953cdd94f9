// Package engine owns the live win-probability estimate for a single game.
// It exposes a full recompute from game state and a fast incremental update
// from single events; the two paths agree asymptotically and both feed the
// momentum tracker.
package engine

import (
	"log"
	"math"

	"github.com/phenomenon0/esports-edge/pkg/esports/game"
	"github.com/phenomenon0/esports-edge/pkg/esports/impact"
	"github.com/phenomenon0/esports-edge/pkg/esports/momentum"
	"github.com/phenomenon0/esports-edge/pkg/esports/rating"
)

const (
	// Probability clamp. Live probabilities never reach certainty; a single
	// future event must always be able to move the estimate.
	probMin = 0.02
	probMax = 0.98

	// Log-odds saturation bound. Beyond this the logistic is numerically
	// pinned anyway; saturating avoids Inf from extreme inputs.
	logOddsBound = 40.0

	initialStdDev = 0.15
	minStdDev     = 0.03

	// z for a 90% interval.
	z90 = 1.645
)

// coefficients are per-title log-odds weights fit on pro match archives.
type coefficients struct {
	// goldLogOddsMax bounds the gold contribution; goldScale sets where the
	// tanh transform saturates. Slope at zero matches the historical linear
	// fit while large leads get diminishing marginal weight.
	goldLogOddsMax float64
	goldScale      float64

	kill  float64
	tower float64

	// LoL.
	dragon     float64
	dragonSoul float64
	elder      float64
	baronBuff  float64
	baronKill  float64
	inhibitor  float64
	herald     float64

	// Dota.
	barracks   float64
	megaCreeps float64
	roshan     float64
	aegis      float64
}

// Gold maxima are set so the tanh transform equals the historical linear
// fit exactly at the scale point and saturates beyond it.
var lolCoefficients = coefficients{
	goldLogOddsMax: 0.47,
	goldScale:      8000,
	kill:           0.025,
	tower:          0.065,
	dragon:         0.055,
	dragonSoul:     0.35,
	elder:          0.50,
	baronBuff:      0.18,
	baronKill:      0.08,
	inhibitor:      0.22,
	herald:         0.04,
}

var dotaCoefficients = coefficients{
	// Net worth is less decisive in Dota, and buybacks let big leads slip.
	goldLogOddsMax: 0.55,
	goldScale:      12000,
	kill:           0.018,
	tower:          0.055,
	barracks:       0.20,
	megaCreeps:     0.55,
	roshan:         0.10,
	aegis:          0.12,
}

// Snapshot is an immutable record of the estimate after one update.
type Snapshot struct {
	Minutes    float64 `json:"minutes"`
	Team1Prob  float64 `json:"team1_prob"`
	Team2Prob  float64 `json:"team2_prob"`
	Confidence float64 `json:"confidence"`
	StdDev     float64 `json:"std_dev"`
	LowerBound float64 `json:"lower_bound"` // 90% interval
	UpperBound float64 `json:"upper_bound"`

	PriorProb          float64 `json:"prior_prob"`
	GoldComponent      float64 `json:"gold_component"`
	ObjectiveComponent float64 `json:"objective_component"`
	MomentumComponent  float64 `json:"momentum_component"`

	Phase           game.Phase `json:"phase"`
	EventsProcessed int        `json:"events_processed"`
}

// Engine is the probability state machine for one game of one match. Not
// safe for concurrent use; each live match owns exactly one engine behind a
// single writer.
type Engine struct {
	title game.Title
	calc  *impact.Calculator
	mom   *momentum.Tracker

	priorProb   float64
	currentProb float64
	gameTime    float64
	confidence  float64
	stdDev      float64

	team1 rating.TeamStrength
	team2 rating.TeamStrength

	eventsProcessed int
	history         []Snapshot
}

// Option configures an engine at construction.
type Option func(*Engine)

// WithMomentumDecay overrides the momentum decay horizon in minutes.
// Non-positive values keep the default. The horizon survives Reset.
func WithMomentumDecay(minutes float64) Option {
	return func(e *Engine) {
		if minutes > 0 {
			e.mom = momentum.NewTracker(minutes)
		}
	}
}

// New builds an engine for a title with a neutral 50% prior.
func New(title game.Title, opts ...Option) *Engine {
	e := &Engine{
		title:       title,
		calc:        impact.NewCalculator(title),
		mom:         momentum.NewTracker(momentum.DefaultDecayMinutes),
		priorProb:   0.5,
		currentProb: 0.5,
		confidence:  0.5,
		stdDev:      initialStdDev,
		team1:       rating.NewTeamStrength("team1"),
		team2:       rating.NewTeamStrength("team2"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetTeamPriors seeds the prior from pre-game team strength.
func (e *Engine) SetTeamPriors(team1, team2 rating.TeamStrength) {
	e.team1 = team1
	e.team2 = team2
	e.priorProb = team1.WinProbabilityVs(team2)
	e.currentProb = e.priorProb
	log.Printf("[ENGINE] priors set: %s %.0f vs %s %.0f | prior %.1f%%",
		team1.Name, team1.Rating, team2.Name, team2.Rating, e.priorProb*100)
}

// SetMarketPrior seeds the prior from a market price instead of ratings,
// for matches without rating coverage. Out-of-range prices are ignored.
func (e *Engine) SetMarketPrior(price float64) {
	if price <= 0 || price >= 1 {
		log.Printf("[ENGINE] ignoring out-of-range market prior %.4f", price)
		return
	}
	e.priorProb = clampProb(price)
	e.currentProb = e.priorProb
}

// Reset prepares the engine for the next game in a series. With keepPriors
// the pre-game prior (ratings or market) survives; without, everything
// returns to neutral.
func (e *Engine) Reset(keepPriors bool) {
	if !keepPriors {
		e.priorProb = 0.5
		e.team1 = rating.NewTeamStrength("team1")
		e.team2 = rating.NewTeamStrength("team2")
	}
	e.currentProb = e.priorProb
	e.gameTime = 0
	e.confidence = 0.5
	e.stdDev = initialStdDev
	e.eventsProcessed = 0
	e.history = nil
	e.mom.Reset()
}

// CalculateFromState recomputes the probability from a complete game state:
// prior to log-odds, bounded tanh gold contribution, linear differentials
// scaled by the time curve, momentum adjustment, back to probability.
// Pure with respect to the state argument; repeated calls with an unchanged
// state yield the same probability.
func (e *Engine) CalculateFromState(s *game.State) Snapshot {
	e.gameTime = s.Minutes
	coeff := e.coeff()

	logOdds := probToLogOdds(e.priorProb)
	timeMult := e.calc.TimeMultiplier(s.Minutes)

	goldContrib := coeff.goldLogOddsMax * math.Tanh(float64(s.GoldDiff())/coeff.goldScale) * timeMult
	logOdds += goldContrib

	killContrib := coeff.kill * float64(s.KillDiff()) * timeMult
	towerContrib := coeff.tower * float64(s.TowerDiff()) * timeMult
	logOdds += killContrib + towerContrib

	objContrib := e.objectiveLogOdds(s, coeff) * timeMult
	logOdds += objContrib

	momContrib := e.mom.Adjustment()
	logOdds += momContrib

	prob := clampProb(logOddsToProb(logOdds))

	confidence, stdDev := e.recomputeConfidence(s, goldContrib+killContrib+towerContrib+objContrib)

	e.currentProb = prob
	e.confidence = confidence
	e.stdDev = stdDev

	snap := e.snapshot(s.Minutes)
	snap.GoldComponent = goldContrib
	snap.ObjectiveComponent = objContrib + killContrib + towerContrib
	snap.MomentumComponent = momContrib
	e.history = append(e.history, snap)
	return snap
}

func (e *Engine) objectiveLogOdds(s *game.State, coeff coefficients) float64 {
	obj := 0.0
	if e.title == game.TitleLoL {
		obj += coeff.dragon * float64(s.Team1.Dragons-s.Team2.Dragons)
		obj += signedBool(s.Team1.HasSoul, s.Team2.HasSoul) * coeff.dragonSoul
		obj += signedBool(s.Team1.HasElder, s.Team2.HasElder) * coeff.elder
		obj += signedBool(s.Team1.HasBaron, s.Team2.HasBaron) * coeff.baronBuff
		obj += coeff.baronKill * float64(s.Team1.Barons-s.Team2.Barons)
		obj += coeff.inhibitor * float64(s.Team1.Inhibitors-s.Team2.Inhibitors)
		obj += coeff.herald * float64(s.Team1.Heralds-s.Team2.Heralds)
	} else {
		obj += coeff.roshan * float64(s.Team1.Roshans-s.Team2.Roshans)
		obj += signedBool(s.Team1.HasAegis, s.Team2.HasAegis) * coeff.aegis
		obj += coeff.barracks * float64(s.Team1.Barracks-s.Team2.Barracks)
		obj += signedBool(s.Team1.HasMega, s.Team2.HasMega) * coeff.megaCreeps
	}
	return obj
}

// UpdateFromEvent applies a single event incrementally: table/curve/context
// impact, extremity scaling, signed add, clamp. Unknown events degrade to
// the table's floor and are absorbed, never rejected.
func (e *Engine) UpdateFromEvent(ev *game.Event, sit impact.Situation) Snapshot {
	e.gameTime = ev.Time

	res := e.calc.Calculate(ev, sit)
	adj := extremityScale(res.FinalImpact, e.currentProb)
	e.currentProb = clampProb(e.currentProb + adj)

	e.mom.Add(ev.Time, ev.Team, math.Abs(res.FinalImpact))

	e.eventsProcessed++
	e.stdDev = math.Max(minStdDev, e.stdDev*0.98)
	e.confidence = 0.7*e.confidence + 0.3*res.Confidence

	snap := e.snapshot(ev.Time)
	snap.MomentumComponent = e.mom.Adjustment()
	e.history = append(e.history, snap)

	log.Printf("[ENGINE] %s | impact %+.4f | prob %.4f", res.Explanation, adj, e.currentProb)
	return snap
}

// UpdateFromTeamfight applies a whole fight's kill trade as one update.
// Fights swing games, so their momentum entry is weighted 1.5x.
func (e *Engine) UpdateFromTeamfight(killsTeam1, killsTeam2 int, minutes float64, sit impact.Situation) Snapshot {
	e.gameTime = minutes
	sit.Minutes = minutes

	res := e.calc.FightImpact(killsTeam1, killsTeam2, game.Team1, sit)
	adj := extremityScale(res.FinalImpact, e.currentProb)
	e.currentProb = clampProb(e.currentProb + adj)

	winner := game.Team1
	if killsTeam2 > killsTeam1 {
		winner = game.Team2
	}
	if killsTeam1 != killsTeam2 {
		e.mom.Add(minutes, winner, math.Abs(res.FinalImpact)*1.5)
	}

	e.eventsProcessed += killsTeam1 + killsTeam2
	e.stdDev = math.Max(minStdDev, e.stdDev*0.98)

	snap := e.snapshot(minutes)
	snap.MomentumComponent = e.mom.Adjustment()
	e.history = append(e.history, snap)

	log.Printf("[ENGINE] fight %d-%d | impact %+.4f | prob %.4f", killsTeam1, killsTeam2, adj, e.currentProb)
	return snap
}

// Probability returns the current team-1 win probability.
func (e *Engine) Probability() float64 { return e.currentProb }

// Confidence returns the current estimate confidence in [0,1].
func (e *Engine) Confidence() float64 { return e.confidence }

// FairPrice is the probability-derived share value for a team.
func (e *Engine) FairPrice(t game.Team) float64 {
	if t == game.Team1 {
		return e.currentProb
	}
	return 1 - e.currentProb
}

// Momentum exposes the tracker for diagnostics.
func (e *Engine) Momentum() *momentum.Tracker { return e.mom }

// History returns the append-only snapshot history for this game.
func (e *Engine) History() []Snapshot { return e.history }

// EventsProcessed returns the number of events folded in so far.
func (e *Engine) EventsProcessed() int { return e.eventsProcessed }

func (e *Engine) coeff() coefficients {
	if e.title == game.TitleDota2 {
		return dotaCoefficients
	}
	return lolCoefficients
}

func (e *Engine) snapshot(minutes float64) Snapshot {
	return Snapshot{
		Minutes:         minutes,
		Team1Prob:       e.currentProb,
		Team2Prob:       1 - e.currentProb,
		Confidence:      e.confidence,
		StdDev:          e.stdDev,
		LowerBound:      math.Max(0.01, e.currentProb-z90*e.stdDev),
		UpperBound:      math.Min(0.99, e.currentProb+z90*e.stdDev),
		PriorProb:       e.priorProb,
		Phase:           game.PhaseAt(e.title, minutes),
		EventsProcessed: e.eventsProcessed,
	}
}

// recomputeConfidence derives confidence and uncertainty from elapsed time,
// signal magnitude, and events processed.
func (e *Engine) recomputeConfidence(s *game.State, totalSignal float64) (float64, float64) {
	timeConf := math.Min(0.5+s.Minutes*0.012, 0.85)
	leadConf := math.Min(0.5+math.Abs(totalSignal)*0.8, 0.90)
	eventConf := math.Min(0.5+float64(e.eventsProcessed)*0.01, 0.85)
	confidence := (timeConf + leadConf + eventConf) / 3

	timeReduction := math.Min(s.Minutes*0.003, 0.08)
	eventReduction := math.Min(float64(e.eventsProcessed)*0.002, 0.04)
	stdDev := math.Max(minStdDev, initialStdDev-timeReduction-eventReduction)

	return confidence, stdDev
}

// extremityScale damps an impact as the probability nears 0 or 1. Quadratic
// falloff with a 40% floor: a heavy favorite's good events cannot push the
// estimate arbitrarily close to certainty.
func extremityScale(impactValue, currentProb float64) float64 {
	d := math.Abs(currentProb - 0.5)
	scale := math.Max(0.4, 1-2*d*d)
	return impactValue * scale
}

func probToLogOdds(p float64) float64 {
	if p < 0.001 {
		p = 0.001
	}
	if p > 0.999 {
		p = 0.999
	}
	return math.Log(p / (1 - p))
}

func logOddsToProb(lo float64) float64 {
	if lo > logOddsBound {
		return 0.999
	}
	if lo < -logOddsBound {
		return 0.001
	}
	return 1 / (1 + math.Exp(-lo))
}

func clampProb(p float64) float64 {
	if p < probMin {
		return probMin
	}
	if p > probMax {
		return probMax
	}
	return p
}

func signedBool(a, b bool) float64 {
	switch {
	case a && !b:
		return 1
	case b && !a:
		return -1
	default:
		return 0
	}
}
