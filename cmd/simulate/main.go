// simulate runs the full trading pipeline against simulated series: the
// feed generates games, the model tracks probability, and a synthetic
// market that lags the model creates tradeable edges. Useful for exercising
// the pipeline end to end without API keys.
package main

import (
	"context"
	"flag"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/esports-edge/pkg/esports/engine"
	"github.com/phenomenon0/esports-edge/pkg/esports/game"
	"github.com/phenomenon0/esports-edge/pkg/feed/simulator"
	"github.com/phenomenon0/esports-edge/pkg/storage"
	"github.com/phenomenon0/esports-edge/pkg/trader/orchestrator"
	"github.com/phenomenon0/esports-edge/pkg/trader/paper"
)

var (
	seed      = flag.Int64("seed", 0, "Simulation seed (0 uses current time)")
	series    = flag.Int("series", 1, "Number of series to simulate")
	bestOf    = flag.Int("best-of", 3, "Series length")
	title     = flag.String("title", "lol", "Game title: lol or dota2")
	tick      = flag.Duration("tick", 10*time.Millisecond, "Wall-clock time per simulated tick")
	marketLag = flag.Float64("market-lag", 0.15, "Fraction the market moves toward fair per snapshot")
	dbPath    = flag.String("db", "", "Optional SQLite path to persist the run")
	timeout   = flag.Duration("timeout", 5*time.Minute, "Abort a series that has not settled by then")
	verbose   = flag.Bool("verbose", false, "Print every probability snapshot")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)

	baseSeed := *seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}
	log.Printf("Simulating %d Bo%d %s series (seed %d)", *series, *bestOf, *title, baseSeed)

	var store *storage.Storage
	if *dbPath != "" {
		var err error
		store, err = storage.New(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer store.Close()
	}

	o := orchestrator.New(nil, orchestrator.Deps{Store: store})

	// The synthetic market starts at a coin flip and drifts toward the
	// model's fair value with a lag, so the model is always slightly ahead.
	var mu sync.Mutex
	prices := make(map[string]float64)
	o.OnSnapshot(func(matchID string, snap engine.Snapshot, seriesProb float64) {
		if *verbose {
			log.Printf("SNAP   %s | %.1fmin | game %.1f%% | series %.1f%% | conf %.2f",
				matchID, snap.Minutes, snap.Team1Prob*100, seriesProb*100, snap.Confidence)
		}
		mu.Lock()
		mp, ok := prices[matchID]
		if !ok {
			mp = 0.5
		}
		mp += *marketLag * (seriesProb - mp)
		if mp < 0.02 {
			mp = 0.02
		}
		if mp > 0.98 {
			mp = 0.98
		}
		prices[matchID] = mp
		mu.Unlock()
		o.SetMarket(matchID, "", decimal.NewFromFloat(mp), decimal.NewFromInt(50000))
	})

	o.OnTrade(func(matchID string, ord *paper.Order) {
		log.Printf("TRADE  %s: $%s on %s @ %s", matchID, ord.Stake, ord.Outcome, ord.FillPrice)
	})
	o.OnSettlement(func(matchID string, st *paper.Settlement) {
		verdict := "LOST"
		if st.Won {
			verdict = "WON"
		}
		log.Printf("SETTLE %s: %s %s, P&L $%s", matchID, st.Outcome, verdict, st.PnL.StringFixed(2))
	})

	var done chan struct{}
	o.OnMatchFinished(func(matchID string, winner int, pnl decimal.Decimal) {
		log.Printf("SERIES %s: team %d wins, P&L $%s", matchID, winner, pnl.StringFixed(2))
		close(done)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < *series; i++ {
		done = make(chan struct{})

		sim := simulator.New(simulator.Config{
			Title:  game.ParseTitle(*title),
			Seed:   baseSeed + int64(i),
			BestOf: *bestOf,
			Tick:   *tick,
		})
		// The simulator is single-goroutine per series, so updates arrive
		// already ordered and can feed the pipeline directly.
		sim.SetHandler(o.Handle)
		if err := sim.Start(ctx); err != nil {
			log.Fatalf("Failed to start simulation: %v", err)
		}

		select {
		case <-done:
		case <-time.After(*timeout):
			log.Printf("Series %d timed out", i+1)
		}
		sim.Stop()
	}
	o.Stop()

	stats := o.Paper().ComputeStats()
	log.Printf("Balance $%s | realized P&L $%s | %d settled (%d won) | ROI %s%%",
		stats.Balance.StringFixed(2), stats.RealizedPnL.StringFixed(2),
		stats.Settled, stats.Wins,
		stats.ROI.Mul(decimal.NewFromInt(100)).StringFixed(1))
}
