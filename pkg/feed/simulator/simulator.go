// Package simulator is a feed connector that fabricates realistic match
// data: gold accrual, phase-dependent event cadence, objective schedules,
// and game endings. It drives the full pipeline when no live matches are
// available and backs deterministic tests via a seedable RNG.
package simulator

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/phenomenon0/esports-edge/pkg/esports/game"
	"github.com/phenomenon0/esports-edge/pkg/feed"
)

var teamPool = [][2]string{
	{"Cloud9", "C9"},
	{"Team Liquid", "TL"},
	{"T1", "T1"},
	{"G2 Esports", "G2"},
	{"Fnatic", "FNC"},
	{"Gen.G", "GEN"},
	{"DRX", "DRX"},
	{"Evil Geniuses", "EG"},
}

// Config tunes the simulated feed.
type Config struct {
	Title      game.Title
	Seed       int64
	BestOf     int
	Tick       time.Duration // wall-clock time per simulation tick
	MaxMinutes float64       // hard cap on game length

	// Team1Bias shifts team 1's event win chance; 0 draws a random bias
	// from the seed.
	Team1Bias float64
}

// DefaultConfig returns an accelerated LoL Bo3.
func DefaultConfig() Config {
	return Config{
		Title:      game.TitleLoL,
		Seed:       time.Now().UnixNano(),
		BestOf:     3,
		Tick:       50 * time.Millisecond,
		MaxMinutes: 45,
	}
}

// Feed is a simulated connector. One Feed runs one series.
type Feed struct {
	cfg     Config
	rng     *rand.Rand
	handler feed.Handler

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New creates a simulated feed.
func New(cfg Config) *Feed {
	if cfg.Tick <= 0 {
		cfg.Tick = 50 * time.Millisecond
	}
	if cfg.MaxMinutes <= 0 {
		cfg.MaxMinutes = 45
	}
	if cfg.BestOf <= 0 {
		cfg.BestOf = 3
	}
	return &Feed{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Name implements feed.Connector.
func (f *Feed) Name() string { return "simulator" }

// SetHandler implements feed.Connector.
func (f *Feed) SetHandler(h feed.Handler) { f.handler = h }

// Start launches the series simulation in its own goroutine.
func (f *Feed) Start(ctx context.Context) error {
	if f.handler == nil {
		return fmt.Errorf("simulator: no handler registered")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return fmt.Errorf("simulator: already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})
	f.running = true

	go func() {
		defer close(f.done)
		f.runSeries(ctx)
	}()

	log.Printf("[SIM] started (%s, seed %d, bo%d)", f.cfg.Title, f.cfg.Seed, f.cfg.BestOf)
	return nil
}

// Stop implements feed.Connector.
func (f *Feed) Stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.running = false
	f.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (f *Feed) runSeries(ctx context.Context) {
	matchID := fmt.Sprintf("sim_%d", f.cfg.Seed)

	i1 := f.rng.Intn(len(teamPool))
	i2 := f.rng.Intn(len(teamPool) - 1)
	if i2 >= i1 {
		i2++
	}
	bias := f.cfg.Team1Bias
	if bias == 0 {
		bias = (f.rng.Float64() - 0.5) * 0.3
	}

	f.handler(feed.Update{
		MatchID: matchID,
		Kind:    feed.KindMatchStart,
		Start: &feed.MatchStart{
			MatchID:   matchID,
			Title:     f.cfg.Title,
			Team1Name: teamPool[i1][0],
			Team2Name: teamPool[i2][0],
			BestOf:    f.cfg.BestOf,
		},
	})

	need := f.cfg.BestOf/2 + 1
	wins := [2]int{}
	for g := 1; wins[0] < need && wins[1] < need; g++ {
		winner, ok := f.runGame(ctx, matchID, g, bias)
		if !ok {
			return
		}
		wins[winner-1]++
	}
	log.Printf("[SIM] series over: %d-%d", wins[0], wins[1])
}

// runGame simulates one game tick by tick and reports the winner.
func (f *Feed) runGame(ctx context.Context, matchID string, gameNumber int, bias float64) (game.Team, bool) {
	st := game.NewState(matchID, f.cfg.Title, gameNumber)
	st.Team1.Gold = 2500
	st.Team2.Gold = 2500
	dragons := 0
	roshans := 0

	ticker := time.NewTicker(f.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0, false
		case <-ticker.C:
		}

		// 10-30 game seconds per tick.
		st.Minutes += float64(10+f.rng.Intn(21)) / 60.0

		// Passive income with noise.
		st.Team1.Gold += 80 + f.rng.Intn(71)
		st.Team2.Gold += 80 + f.rng.Intn(71)

		if f.rng.Float64() < f.eventChance(st.Minutes) {
			ev := f.makeEvent(st, bias, &dragons, &roshans)
			if ev != nil {
				f.handler(feed.Update{MatchID: matchID, Kind: feed.KindEvent, Event: ev})
			}
		}

		f.handler(feed.Update{MatchID: matchID, Kind: feed.KindState, State: st.Clone()})

		if winner := f.gameOver(st); winner != 0 {
			f.handler(feed.Update{
				MatchID: matchID,
				Kind:    feed.KindGameEnd,
				GameEnd: &game.Result{
					MatchID:         matchID,
					GameNumber:      gameNumber,
					Winner:          winner,
					DurationMinutes: st.Minutes,
					FinalGoldDiff:   st.GoldDiff(),
				},
			})
			log.Printf("[SIM] game %d over at %.1fmin, winner %s", gameNumber, st.Minutes, winner)
			return winner, true
		}
	}
}

// eventChance rises through the game; late games are constant action.
func (f *Feed) eventChance(minutes float64) float64 {
	switch {
	case minutes < 3:
		return 0.05
	case minutes < 10:
		return 0.15
	case minutes < 20:
		return 0.25
	case minutes < 30:
		return 0.35
	default:
		return 0.40
	}
}

func (f *Feed) makeEvent(st *game.State, bias float64, dragons, roshans *int) *game.Event {
	// The stronger and richer team wins more events, clamped so upsets
	// stay possible.
	chance := 0.5 + bias + float64(st.GoldDiff())/100000.0
	if chance < 0.25 {
		chance = 0.25
	}
	if chance > 0.75 {
		chance = 0.75
	}
	team := game.Team2
	if f.rng.Float64() < chance {
		team = game.Team1
	}

	typ := f.pickEventType(st.Minutes)
	ev := &game.Event{
		MatchID: st.MatchID,
		Time:    st.Minutes,
		Type:    typ,
		Team:    team,
		Context: game.ContextDefault,
	}

	acting := st.Stats(team)
	enemy := st.Stats(team.Opponent())

	switch typ {
	case game.EventKill:
		acting.Kills++
		enemy.Deaths++
		acting.Gold += 300
		if f.rng.Intn(4) == 0 {
			ev.Context = game.ContextSolo
		}
		ev.VictimGold = int(300 + st.Minutes*400*(0.7+f.rng.Float64()*0.8))
	case game.EventTower:
		acting.Towers++
		acting.Gold += 550
		if enemy.TowersRemaining > 0 {
			enemy.TowersRemaining--
		}
	case game.EventDragon:
		*dragons++
		acting.Dragons++
		ev.ObjectiveNumber = acting.Dragons
		if acting.Dragons == 3 {
			ev.Context = game.ContextSoulPoint
		}
		if acting.Dragons >= 4 {
			acting.HasSoul = true
			ev.Context = game.ContextSoul
		}
	case game.EventBaron:
		acting.Barons++
		acting.HasBaron = true
		if f.rng.Intn(10) == 0 {
			ev.Context = game.ContextSteal
		}
	case game.EventRoshan:
		*roshans++
		acting.Roshans++
		acting.HasAegis = true
		ev.ObjectiveNumber = *roshans
	case game.EventBarracks:
		acting.Barracks++
		if acting.Barracks >= 6 {
			acting.HasMega = true
			ev.Context = game.ContextMega
		}
	case game.EventTeamfight:
		for0 := 2 + f.rng.Intn(4)
		against := f.rng.Intn(3)
		ev.FightKillsFor = for0
		ev.FightKillsAgainst = against
		acting.Kills += for0
		enemy.Kills += against
		acting.Deaths += against
		enemy.Deaths += for0
	}
	return ev
}

func (f *Feed) pickEventType(minutes float64) game.EventType {
	lol := f.cfg.Title == game.TitleLoL
	r := f.rng.Float64()
	switch {
	case minutes < 5:
		return game.EventKill
	case minutes < 14:
		if r < 0.7 {
			return game.EventKill
		}
		if r < 0.9 {
			return game.EventTower
		}
		if lol {
			return game.EventDragon
		}
		return game.EventRoshan
	case minutes < 20:
		if r < 0.5 {
			return game.EventKill
		}
		if r < 0.75 {
			return game.EventTower
		}
		if lol {
			return game.EventDragon
		}
		return game.EventRoshan
	default:
		if r < 0.4 {
			return game.EventKill
		}
		if r < 0.6 {
			return game.EventTower
		}
		if lol {
			if r < 0.75 {
				return game.EventDragon
			}
			if r < 0.9 {
				return game.EventBaron
			}
			return game.EventTeamfight
		}
		if r < 0.8 {
			return game.EventRoshan
		}
		if r < 0.95 {
			return game.EventBarracks
		}
		return game.EventTeamfight
	}
}

// gameOver decides whether a side has won: structural collapse plus a gold
// margin, or the duration cap with gold as tiebreaker.
func (f *Feed) gameOver(st *game.State) game.Team {
	if st.Minutes >= f.cfg.MaxMinutes {
		if st.GoldDiff() >= 0 {
			return game.Team1
		}
		return game.Team2
	}
	if st.Minutes < 20 {
		return 0
	}
	leader, lead := st.Leader()
	stats := st.Stats(leader)
	enemy := st.Stats(leader.Opponent())

	structural := enemy.TowersRemaining <= 2 || stats.HasMega
	if structural && lead > 8000 {
		return leader
	}
	// A decisive late lead ends the game probabilistically.
	if lead > 15000 && f.rng.Float64() < 0.1 {
		return leader
	}
	return 0
}
