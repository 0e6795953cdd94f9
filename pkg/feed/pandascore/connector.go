package pandascore

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/phenomenon0/esports-edge/pkg/esports/game"
	"github.com/phenomenon0/esports-edge/pkg/feed"
)

// Connector polls PandaScore and emits normalized feed updates. It is the
// live counterpart of the simulator: same Update stream, real matches.
type Connector struct {
	client       *Client
	handler      feed.Handler
	videogames   []string
	discoverEach time.Duration
	pollEach     time.Duration

	mu      sync.Mutex
	tracked map[int64]*trackedMatch
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

type trackedMatch struct {
	matchID   string
	title     game.Title
	team1ID   int64
	team2ID   int64
	lastFrame *Frame
	gameDone  map[int64]bool // game IDs already reported finished
}

// ConnectorConfig tunes discovery and polling cadence.
type ConnectorConfig struct {
	Videogames   []string      // defaults to both titles
	DiscoverEach time.Duration // default 60s
	PollEach     time.Duration // default 10s
}

// NewConnector wraps a client into a feed.Connector.
func NewConnector(client *Client, cfg ConnectorConfig) *Connector {
	if len(cfg.Videogames) == 0 {
		cfg.Videogames = []string{"league-of-legends", "dota-2"}
	}
	if cfg.DiscoverEach <= 0 {
		cfg.DiscoverEach = 60 * time.Second
	}
	if cfg.PollEach <= 0 {
		cfg.PollEach = 10 * time.Second
	}
	return &Connector{
		client:       client,
		videogames:   cfg.Videogames,
		discoverEach: cfg.DiscoverEach,
		pollEach:     cfg.PollEach,
		tracked:      make(map[int64]*trackedMatch),
	}
}

// Name implements feed.Connector.
func (c *Connector) Name() string { return "pandascore" }

// SetHandler implements feed.Connector.
func (c *Connector) SetHandler(h feed.Handler) { c.handler = h }

// Start launches the discovery and polling loops.
func (c *Connector) Start(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("pandascore: no handler registered")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("pandascore: already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	go func() {
		defer close(c.done)
		c.run(ctx)
	}()
	log.Printf("[PANDA] connector started (%v)", c.videogames)
	return nil
}

// Stop implements feed.Connector.
func (c *Connector) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.running = false
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (c *Connector) run(ctx context.Context) {
	c.discover(ctx)

	discoverTick := time.NewTicker(c.discoverEach)
	pollTick := time.NewTicker(c.pollEach)
	defer discoverTick.Stop()
	defer pollTick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-discoverTick.C:
			c.discover(ctx)
		case <-pollTick.C:
			c.pollAll(ctx)
		}
	}
}

func (c *Connector) discover(ctx context.Context) {
	for _, vg := range c.videogames {
		matches, err := c.client.ListRunning(ctx, vg)
		if err != nil {
			log.Printf("[PANDA] discovery failed for %s: %v", vg, err)
			continue
		}
		for _, m := range matches {
			c.track(m)
		}
	}
}

func (c *Connector) track(m RunningMatch) {
	if len(m.Opponents) < 2 {
		return
	}
	c.mu.Lock()
	_, known := c.tracked[m.ID]
	if !known {
		title := game.TitleLoL
		if m.Videogame.Slug == "dota-2" || m.Videogame.Slug == "dota2" {
			title = game.TitleDota2
		}
		tm := &trackedMatch{
			matchID:  fmt.Sprintf("ps_%d", m.ID),
			title:    title,
			team1ID:  m.Opponents[0].Opponent.ID,
			team2ID:  m.Opponents[1].Opponent.ID,
			gameDone: make(map[int64]bool),
		}
		c.tracked[m.ID] = tm
		c.mu.Unlock()

		start := &feed.MatchStart{
			MatchID:   tm.matchID,
			Title:     title,
			Team1Name: m.Opponents[0].Opponent.Name,
			Team2Name: m.Opponents[1].Opponent.Name,
			BestOf:    m.NumberOfGames,
		}
		for _, r := range m.Results {
			switch r.TeamID {
			case tm.team1ID:
				start.Team1Wins = r.Score
			case tm.team2ID:
				start.Team2Wins = r.Score
			}
		}
		c.handler(feed.Update{MatchID: tm.matchID, Kind: feed.KindMatchStart, Start: start})
		log.Printf("[PANDA] tracking %s: %s", tm.matchID, m.Name)
		return
	}
	c.mu.Unlock()
}

func (c *Connector) pollAll(ctx context.Context) {
	c.mu.Lock()
	ids := make([]int64, 0, len(c.tracked))
	for id := range c.tracked {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		c.pollMatch(ctx, id)
	}
}

func (c *Connector) pollMatch(ctx context.Context, apiID int64) {
	frame, err := c.client.FetchFrame(ctx, apiID)
	if err != nil {
		log.Printf("[PANDA] frame fetch failed for %d: %v", apiID, err)
		return
	}

	c.mu.Lock()
	tm, ok := c.tracked[apiID]
	c.mu.Unlock()
	if !ok {
		return
	}

	for _, u := range DiffFrames(tm, frame) {
		c.handler(u)
	}
	tm.lastFrame = frame
}
