// edged is the live esports trading daemon. It follows live matches,
// maintains win-probability estimates, and paper trades prediction market
// mispricings, with an HTTP status API and websocket streaming.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/phenomenon0/esports-edge/pkg/config"
	"github.com/phenomenon0/esports-edge/pkg/esports/engine"
	"github.com/phenomenon0/esports-edge/pkg/esports/game"
	"github.com/phenomenon0/esports-edge/pkg/feed"
	"github.com/phenomenon0/esports-edge/pkg/feed/pandascore"
	"github.com/phenomenon0/esports-edge/pkg/feed/simulator"
	"github.com/phenomenon0/esports-edge/pkg/market"
	"github.com/phenomenon0/esports-edge/pkg/notify"
	"github.com/phenomenon0/esports-edge/pkg/storage"
	"github.com/phenomenon0/esports-edge/pkg/trader/edge"
	"github.com/phenomenon0/esports-edge/pkg/trader/metrics"
	"github.com/phenomenon0/esports-edge/pkg/trader/orchestrator"
	"github.com/phenomenon0/esports-edge/pkg/trader/paper"
	"github.com/phenomenon0/esports-edge/pkg/trader/policy"
	"github.com/phenomenon0/esports-edge/pkg/trader/streaming"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file")
	httpAddr   = flag.String("http", "", "HTTP listen address (overrides config)")
	feedSource = flag.String("feed", "", "Feed source: pandascore or simulator (overrides config)")
	dbPath     = flag.String("db", "", "SQLite database path (overrides config)")
	verbose    = flag.Bool("verbose", false, "Log every snapshot and evaluation")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("Starting esports-edge daemon")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *httpAddr != "" {
		cfg.Server.Listen = *httpAddr
	}
	if *feedSource != "" {
		cfg.Feed.Source = *feedSource
	}
	if *dbPath != "" {
		cfg.Storage.DBPath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d, err := newDaemon(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer d.store.Close()

	if *verbose {
		d.orch.OnSnapshot(func(matchID string, snap engine.Snapshot, seriesProb float64) {
			log.Printf("[SNAP] %s | %.1fmin | game %.1f%% | series %.1f%% | conf %.2f",
				matchID, snap.Minutes, snap.Team1Prob*100, seriesProb*100, snap.Confidence)
		})
	}
	d.orch.OnError(func(err error) {
		log.Printf("[ERROR] %v", err)
	})

	go d.startHTTP()
	if d.markets != nil {
		go d.pollMarkets(ctx)
	}
	if d.stream != nil {
		d.stream.Start(ctx)
	}

	if err := d.orch.Start(ctx); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}

	log.Printf("Daemon running (feed=%s, http=%s)", cfg.Feed.Source, cfg.Server.Listen)
	log.Printf("WebSocket streaming available at ws://%s/ws", cfg.Server.Listen)

	<-sigCh
	log.Println("Shutting down...")

	if d.stream != nil {
		d.stream.Stop()
	}
	d.orch.Stop()
	cancel()

	stats := d.orch.Paper().ComputeStats()
	log.Printf("Final stats: PnL=$%s, settled=%d, win rate=%s%%",
		stats.RealizedPnL.StringFixed(2), stats.Settled,
		stats.WinRate.Mul(decimal.NewFromInt(100)).StringFixed(1))
	log.Println("Goodbye!")
}

type daemon struct {
	cfg     *config.Config
	orch    *orchestrator.Orchestrator
	store   *storage.Storage
	metrics *metrics.Metrics
	hub     *streaming.Hub
	markets *market.Client
	stream  *market.Stream

	bindMu   sync.Mutex
	bindings map[string]binding // asset ID -> match
}

// binding ties a streamed outcome token back to the live match it prices.
type binding struct {
	matchID  string
	marketID string
	flipped  bool
}

func newDaemon(cfg *config.Config) (*daemon, error) {
	d := &daemon{
		cfg:     cfg,
		metrics: metrics.New(),
		hub:     streaming.NewHub(),
	}
	go d.hub.Run()

	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	d.store = store

	notifier, err := newNotifier(cfg)
	if err != nil {
		return nil, err
	}
	if notifier.Enabled() {
		log.Println("Telegram notifications enabled")
	}

	connector, err := newConnector(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Market.Enabled {
		d.markets = market.NewClient(market.WithBaseURL(cfg.Market.GammaAPIURL))
		log.Printf("Market polling enabled for tags %v", cfg.Market.TagSlugs)
		if cfg.Market.StreamEnabled {
			d.bindings = make(map[string]binding)
			d.stream = market.NewStream(cfg.Market.StreamURL, d.onPrice)
		}
	}

	d.orch = orchestrator.New(&orchestrator.Config{
		Edge: &edge.CalculatorConfig{
			MinEdge:       cfg.Trading.MinEdge,
			StrongEdge:    cfg.Trading.StrongEdge,
			MinConfidence: cfg.Trading.MinConfidence,
		},
		Sizer: &edge.SizerConfig{
			KellyMultiplier: cfg.Trading.KellyFraction,
			MaxStakePct:     cfg.Trading.MaxStakePct,
			MaxStakeUSD:     cfg.Trading.MaxStakeUSD,
			MinStakeUSD:     cfg.Trading.MinStakeUSD,
		},
		Limits: riskLimits(cfg),
		Paper: &paper.Config{
			InitialBalance: decimal.NewFromFloat(cfg.Trading.InitialBalance),
			SlippageBps:    decimal.NewFromFloat(cfg.Trading.SlippageBps),
		},
		QueueDepth:           cfg.Feed.QueueDepth,
		MomentumDecayMinutes: cfg.Model.MomentumDecayMinutes,
	}, orchestrator.Deps{
		Connector: connector,
		Store:     store,
		Notifier:  notifier,
		Hub:       d.hub,
		Metrics:   d.metrics,
	})
	return d, nil
}

func newNotifier(cfg *config.Config) (*notify.Notifier, error) {
	if !cfg.Telegram.Enabled {
		return notify.New("", "", 0, 0)
	}
	return notify.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID, 3, time.Second)
}

func newConnector(cfg *config.Config) (feed.Connector, error) {
	if cfg.Feed.Source == "simulator" {
		log.Println("Using simulated feed")
		return simulator.New(simulator.Config{
			Title:  game.TitleLoL,
			Seed:   cfg.Feed.SimSeed,
			BestOf: cfg.Feed.SimBestOf,
			Tick:   cfg.Feed.SimTick,
		}), nil
	}
	client := pandascore.NewClient(cfg.Feed.PandaToken)
	return pandascore.NewConnector(client, pandascore.ConnectorConfig{
		Videogames:   cfg.Feed.Videogames,
		DiscoverEach: cfg.Feed.DiscoverEvery,
		PollEach:     cfg.Feed.PollEvery,
	}), nil
}

func riskLimits(cfg *config.Config) *policy.RiskLimits {
	limits := policy.DefaultRiskLimits()
	limits.MaxOrderSize = decimal.NewFromFloat(cfg.Trading.MaxStakeUSD)
	limits.MinOrderSize = decimal.NewFromFloat(cfg.Trading.MinStakeUSD)
	limits.MaxDailyLoss = decimal.NewFromFloat(cfg.Trading.MaxDailyLoss)
	limits.MaxDailyOrders = cfg.Trading.MaxDailyOrders
	limits.MaxTotalExposure = decimal.NewFromFloat(cfg.Trading.MaxTotalExposure)
	return limits
}

// pollMarkets keeps live matches paired with their Polymarket team-winner
// markets and feeds current prices into the pipeline.
func (d *daemon) pollMarkets(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Market.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.refreshMarkets(ctx)
		}
	}
}

func (d *daemon) refreshMarkets(ctx context.Context) {
	live := d.orch.GetStatus().Matches
	if len(live) == 0 {
		return
	}

	var all []market.Market
	for _, slug := range d.cfg.Market.TagSlugs {
		markets, err := d.markets.ListEsportsMarkets(ctx, slug)
		if err != nil {
			log.Printf("[MARKET] listing %s markets failed: %v", slug, err)
			continue
		}
		all = append(all, markets...)
	}
	if len(all) == 0 {
		return
	}

	for _, m := range live {
		found, flipped, ok := market.FindMarketForMatch(all, m.Team1, m.Team2)
		if !ok {
			continue
		}
		price := found.YesPrice
		if flipped {
			price = decimal.NewFromInt(1).Sub(price)
		}
		d.orch.SetMarket(m.MatchID, found.ID, price, found.Liquidity)

		// Stream the first outcome token so prices tick between polls.
		if d.stream != nil && len(found.TokenIDs) > 0 {
			asset := found.TokenIDs[0]
			d.bindMu.Lock()
			_, known := d.bindings[asset]
			d.bindings[asset] = binding{matchID: m.MatchID, marketID: found.ID, flipped: flipped}
			d.bindMu.Unlock()
			if !known {
				d.stream.Subscribe(asset)
			}
		}
	}
}

// onPrice applies a streamed book update to the bound match. Runs on the
// stream's read goroutine.
func (d *daemon) onPrice(u market.PriceUpdate) {
	d.bindMu.Lock()
	b, ok := d.bindings[u.AssetID]
	d.bindMu.Unlock()
	if !ok {
		return
	}
	price := u.Mid
	if b.flipped {
		price = decimal.NewFromInt(1).Sub(price)
	}
	d.orch.SetMarket(b.matchID, b.marketID, price, u.Liquidity)
}

func (d *daemon) startHTTP() {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(d.orch.GetStatus())
	})

	mux.HandleFunc("/matches", func(w http.ResponseWriter, r *http.Request) {
		matches, err := d.store.RecentMatches(queryLimit(r, 20))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(matches)
	})

	mux.HandleFunc("/trades", func(w http.ResponseWriter, r *http.Request) {
		trades, err := d.store.RecentTrades(queryLimit(r, 50))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(trades)
	})

	mux.HandleFunc("/opportunities", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(d.orch.RecentOpportunities())
	})

	mux.HandleFunc("/account", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(d.orch.Paper().Account())
	})

	mux.HandleFunc("/pnl", func(w http.ResponseWriter, r *http.Request) {
		daily, err := d.store.PnLByDay(queryLimit(r, 30))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(daily)
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(d.orch.Paper().ComputeStats())
	})

	mux.HandleFunc("/policy", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(d.orch.Policy().CurrentStatus())
	})

	mux.Handle("/metrics", promhttp.HandlerFor(d.metrics.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/ws", d.hub.ServeWS)

	server := &http.Server{
		Addr:         d.cfg.Server.Listen,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("HTTP server listening on %s", d.cfg.Server.Listen)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Printf("HTTP server error: %v", err)
	}
}

func queryLimit(r *http.Request, def int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			return n
		}
	}
	return def
}
