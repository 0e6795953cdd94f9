// Package orchestrator wires the full pipeline for live matches: feed
// updates flow through the per-match funnel into the probability engine,
// series math converts game probability to match probability, and the edge
// layer turns mispriced markets into sized paper trades under risk policy.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/esports-edge/pkg/esports/engine"
	"github.com/phenomenon0/esports-edge/pkg/esports/game"
	"github.com/phenomenon0/esports-edge/pkg/esports/impact"
	"github.com/phenomenon0/esports-edge/pkg/esports/series"
	"github.com/phenomenon0/esports-edge/pkg/feed"
	"github.com/phenomenon0/esports-edge/pkg/notify"
	"github.com/phenomenon0/esports-edge/pkg/storage"
	"github.com/phenomenon0/esports-edge/pkg/trader/edge"
	"github.com/phenomenon0/esports-edge/pkg/trader/metrics"
	"github.com/phenomenon0/esports-edge/pkg/trader/paper"
	"github.com/phenomenon0/esports-edge/pkg/trader/policy"
	"github.com/phenomenon0/esports-edge/pkg/trader/streaming"
)

var one = decimal.NewFromInt(1)

// Config bundles tuning for the trading components the orchestrator owns.
// Nil sub-configs fall back to each component's defaults.
type Config struct {
	Edge       *edge.CalculatorConfig
	Sizer      *edge.SizerConfig
	Limits     *policy.RiskLimits
	Paper      *paper.Config
	QueueDepth int

	// MomentumDecayMinutes overrides each match engine's momentum horizon.
	// Zero keeps the engine default.
	MomentumDecayMinutes float64
}

// Deps are the externally constructed collaborators. Connector is required;
// Store, Notifier, and Hub may be nil, and a nil Metrics gets a private
// instance.
type Deps struct {
	Connector feed.Connector
	Store     *storage.Storage
	Notifier  *notify.Notifier
	Hub       *streaming.Hub
	Metrics   *metrics.Metrics
}

// matchTrader is the per-match pipeline state. Engine and series are only
// mutated by the match's funnel consumer; the series score mutation takes mu
// because status readers report it. Fields shared with API readers and the
// market poller sit behind mu.
type matchTrader struct {
	matchID string
	title   game.Title
	team1   string
	team2   string
	bestOf  int

	eng *engine.Engine
	ser *series.State

	lastState *game.State
	minutes   float64 // accumulated across finished games

	mu          sync.Mutex
	marketID    string
	marketPrice decimal.Decimal // team-1 outcome price, zero until a market attaches
	liquidity   decimal.Decimal
	trades      int
	lastSnap    engine.Snapshot
	seriesProb  float64
	lastAction  edge.Action // previous evaluation, for alert edge-triggering
}

func (mt *matchTrader) label() string {
	return fmt.Sprintf("%s vs %s", mt.team1, mt.team2)
}

func (mt *matchTrader) teamName(team int) string {
	if team == 1 {
		return mt.team1
	}
	return mt.team2
}

// Orchestrator runs the live trading pipeline across any number of
// concurrent matches.
type Orchestrator struct {
	connector feed.Connector
	funnel    *feed.Funnel
	store     *storage.Storage
	notifier  *notify.Notifier
	hub       *streaming.Hub
	metrics   *metrics.Metrics

	calc      *edge.Calculator
	sizer     *edge.Sizer
	riskCheck *policy.Engine
	paper     *paper.Engine

	momentumDecay float64 // minutes, zero for the engine default

	mu      sync.RWMutex
	matches map[string]*matchTrader
	recent  []Opportunity // ring of latest non-hold evaluations

	onSnapshot      func(matchID string, snap engine.Snapshot, seriesProb float64)
	onOpportunity   func(matchID string, result *edge.Result)
	onTrade         func(matchID string, order *paper.Order)
	onSettlement    func(matchID string, s *paper.Settlement)
	onMatchFinished func(matchID string, winner int, pnl decimal.Decimal)
	onError         func(error)
}

// Opportunity is one recorded edge evaluation for the status API.
type Opportunity struct {
	MatchID string       `json:"match_id"`
	Time    time.Time    `json:"time"`
	Result  *edge.Result `json:"result"`
}

const recentOpportunities = 64

// New creates an orchestrator. The connector's handler is installed here;
// call Start to begin consuming.
func New(cfg *Config, deps Deps) *Orchestrator {
	if cfg == nil {
		cfg = &Config{}
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}
	o := &Orchestrator{
		connector: deps.Connector,
		store:     deps.Store,
		notifier:  deps.Notifier,
		hub:       deps.Hub,
		metrics:   m,
		calc:      edge.NewCalculator(cfg.Edge),
		sizer:     edge.NewSizer(cfg.Sizer),
		riskCheck: policy.NewEngine(cfg.Limits),
		paper:     paper.NewEngine(cfg.Paper),
		matches:   make(map[string]*matchTrader),

		momentumDecay: cfg.MomentumDecayMinutes,
	}
	o.funnel = feed.NewFunnel(o.handle, cfg.QueueDepth)
	if o.connector != nil {
		o.connector.SetHandler(o.funnel.Dispatch)
	}
	o.metrics.AccountBalance.Set(metrics.Float(o.paper.Balance()))
	return o
}

// OnSnapshot registers a callback for every model snapshot. Set before Start.
func (o *Orchestrator) OnSnapshot(fn func(string, engine.Snapshot, float64)) { o.onSnapshot = fn }

// OnOpportunity registers a callback for every edge evaluation.
func (o *Orchestrator) OnOpportunity(fn func(string, *edge.Result)) { o.onOpportunity = fn }

// OnTrade registers a callback for every placed paper order.
func (o *Orchestrator) OnTrade(fn func(string, *paper.Order)) { o.onTrade = fn }

// OnSettlement registers a callback for every settled position.
func (o *Orchestrator) OnSettlement(fn func(string, *paper.Settlement)) { o.onSettlement = fn }

// OnMatchFinished registers a callback invoked once per match after its
// series is decided and settled, whether or not a position was held.
func (o *Orchestrator) OnMatchFinished(fn func(string, int, decimal.Decimal)) { o.onMatchFinished = fn }

// OnError registers a callback for pipeline errors.
func (o *Orchestrator) OnError(fn func(error)) { o.onError = fn }

// Start launches the feed connector.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.connector == nil {
		return fmt.Errorf("orchestrator: no connector")
	}
	log.Printf("[ORCH] starting with connector %s", o.connector.Name())
	return o.connector.Start(ctx)
}

// Stop halts the connector and drains all match queues.
func (o *Orchestrator) Stop() {
	if o.connector != nil {
		o.connector.Stop()
	}
	o.funnel.Close()
	log.Printf("[ORCH] stopped")
}

// Paper exposes the paper trading engine for the status API.
func (o *Orchestrator) Paper() *paper.Engine { return o.paper }

// Policy exposes the risk policy engine for the status API.
func (o *Orchestrator) Policy() *policy.Engine { return o.riskCheck }

// Handle feeds one update through the pipeline directly, bypassing the
// connector. Used by backtests and tests; live traffic arrives via the
// funnel, which guarantees per-match ordering.
func (o *Orchestrator) Handle(u feed.Update) { o.handle(u) }

func (o *Orchestrator) handle(u feed.Update) {
	o.metrics.FunnelDepth.WithLabelValues(u.MatchID).Set(float64(o.funnel.Depth(u.MatchID)))

	switch u.Kind {
	case feed.KindMatchStart:
		if u.Start != nil {
			o.onMatchStart(u.MatchID, u.Start)
		}
	case feed.KindEvent:
		if u.Event != nil {
			o.onEvent(u.MatchID, u.Event)
		}
	case feed.KindState:
		if u.State != nil {
			o.onState(u.MatchID, u.State)
		}
	case feed.KindGameEnd:
		if u.GameEnd != nil {
			o.onGameEnd(u.MatchID, u.GameEnd)
		}
	}
}

func (o *Orchestrator) onMatchStart(matchID string, start *feed.MatchStart) {
	o.mu.Lock()
	if _, ok := o.matches[matchID]; ok {
		o.mu.Unlock()
		return
	}
	mt := &matchTrader{
		matchID: matchID,
		title:   start.Title,
		team1:   start.Team1Name,
		team2:   start.Team2Name,
		bestOf:  start.BestOf,
		eng:     engine.New(start.Title, engine.WithMomentumDecay(o.momentumDecay)),
		ser:     series.New(formatFor(start.BestOf), start.Team1Wins, start.Team2Wins),
	}
	o.matches[matchID] = mt
	o.mu.Unlock()

	o.metrics.ActiveMatches.Inc()
	log.Printf("[ORCH] tracking %s: %s (Bo%d, %d-%d)",
		matchID, mt.label(), start.BestOf, start.Team1Wins, start.Team2Wins)

	if o.store != nil {
		err := o.store.UpsertMatch(&storage.MatchRecord{
			MatchID:   matchID,
			Title:     string(start.Title),
			Team1Name: start.Team1Name,
			Team2Name: start.Team2Name,
			BestOf:    start.BestOf,
			StartedAt: time.Now(),
		})
		if err != nil {
			o.reportError(fmt.Errorf("persist match %s: %w", matchID, err))
		}
	}
	if o.notifier != nil {
		if err := o.notifier.SendMatchStart(mt.label(), start.BestOf); err != nil {
			log.Printf("[ORCH] match start notification failed: %v", err)
		}
	}
	if o.hub != nil {
		o.hub.BroadcastSeries(matchID, o.seriesPayload(mt))
	}
}

func (o *Orchestrator) onEvent(matchID string, ev *game.Event) {
	mt := o.trader(matchID)
	if mt == nil {
		return
	}

	probBefore := mt.eng.Probability()
	snap := mt.eng.UpdateFromEvent(ev, situationFor(mt.lastState, ev))

	o.metrics.RecordEvent(string(mt.title), string(ev.Type))

	if o.store != nil {
		err := o.store.AddEvent(&storage.EventRecord{
			MatchID:     matchID,
			GameNumber:  mt.ser.GameNumber(),
			GameMinutes: ev.Time,
			EventType:   string(ev.Type),
			Team:        int(ev.Team),
			Context:     string(ev.Context),
			Impact:      snap.Team1Prob - probBefore,
			ProbBefore:  probBefore,
			ProbAfter:   snap.Team1Prob,
			Time:        time.Now(),
		})
		if err != nil {
			o.reportError(fmt.Errorf("persist event for %s: %w", matchID, err))
		}
	}
	if o.hub != nil {
		o.hub.BroadcastGameEvent(matchID, ev)
	}

	o.afterSnapshot(mt, snap)
}

func (o *Orchestrator) onState(matchID string, st *game.State) {
	mt := o.trader(matchID)
	if mt == nil {
		return
	}

	mt.lastState = st
	snap := mt.eng.CalculateFromState(st)
	o.afterSnapshot(mt, snap)

	if o.store != nil {
		mt.mu.Lock()
		price := mt.marketPrice
		seriesProb := mt.seriesProb
		mt.mu.Unlock()
		err := o.store.AddSnapshot(&storage.SnapshotRecord{
			MatchID:       matchID,
			GameNumber:    mt.ser.GameNumber(),
			GameMinutes:   snap.Minutes,
			GameWinProb:   snap.Team1Prob,
			SeriesWinProb: seriesProb,
			Confidence:    snap.Confidence,
			Momentum:      mt.eng.Momentum().Score(),
			MarketPrice:   metrics.Float(price),
			Time:          time.Now(),
		})
		if err != nil {
			o.reportError(fmt.Errorf("persist snapshot for %s: %w", matchID, err))
		}
	}
}

func (o *Orchestrator) onGameEnd(matchID string, res *game.Result) {
	mt := o.trader(matchID)
	if mt == nil {
		return
	}

	mt.mu.Lock()
	err := mt.ser.RecordWin(int(res.Winner))
	mt.mu.Unlock()
	if err != nil {
		o.reportError(fmt.Errorf("game end for %s: %w", matchID, err))
		return
	}
	mt.minutes += res.DurationMinutes
	mt.lastState = nil
	mt.eng.Reset(true)

	log.Printf("[ORCH] %s game %d to %s, series %d-%d",
		matchID, res.GameNumber, mt.teamName(int(res.Winner)),
		mt.ser.Team1Wins, mt.ser.Team2Wins)

	if o.hub != nil {
		o.hub.BroadcastSeries(matchID, o.seriesPayload(mt))
	}

	if mt.ser.IsOver() {
		o.settle(mt)
	}
}

// afterSnapshot folds a fresh model snapshot into series probability,
// metrics, broadcasts, and the edge evaluation.
func (o *Orchestrator) afterSnapshot(mt *matchTrader, snap engine.Snapshot) {
	seriesProb := mt.ser.WinProbability(snap.Team1Prob)

	mt.mu.Lock()
	mt.lastSnap = snap
	mt.seriesProb = seriesProb
	price := mt.marketPrice
	mt.mu.Unlock()

	o.metrics.RecordSnapshot(mt.matchID, string(mt.title),
		snap.Team1Prob, seriesProb, snap.Confidence, mt.eng.Momentum().Score())

	if o.hub != nil {
		o.hub.BroadcastProbability(mt.matchID, probPayload{
			Snapshot:      snap,
			SeriesWinProb: seriesProb,
			GameNumber:    mt.ser.GameNumber(),
		})
	}
	if o.onSnapshot != nil {
		o.onSnapshot(mt.matchID, snap, seriesProb)
	}

	if !price.IsZero() {
		o.evaluate(mt, snap, seriesProb, price)
	}
}

// evaluate compares the model's series-win probability against the match
// winner market. A sell-side signal on team 1 is re-evaluated as a buy on
// team 2's complement price.
func (o *Orchestrator) evaluate(mt *matchTrader, snap engine.Snapshot, seriesProb float64, price decimal.Decimal) {
	fair := decimal.NewFromFloat(seriesProb)
	conf := decimal.NewFromFloat(snap.Confidence)

	result := o.calc.Evaluate(fair, price, conf)
	o.metrics.RecordOpportunity(string(result.Action), metrics.Float(result.EffectiveEdge))

	mt.mu.Lock()
	prevAction := mt.lastAction
	mt.lastAction = result.Action
	mt.mu.Unlock()
	// Alert on the transition into a strong band, not on every snapshot.
	if o.notifier != nil && result.Action != prevAction &&
		(result.Action == edge.StrongBuy || result.Action == edge.StrongSell) {
		outcome := mt.team1
		if result.Action == edge.StrongSell {
			outcome = mt.team2
		}
		if err := o.notifier.SendStrongEdge(mt.label(), outcome, fair, price, result.Edge); err != nil {
			log.Printf("[ORCH] strong edge notification failed: %v", err)
		}
	}

	if result.Action != edge.Hold {
		o.mu.Lock()
		o.recent = append(o.recent, Opportunity{MatchID: mt.matchID, Time: time.Now(), Result: result})
		if len(o.recent) > recentOpportunities {
			o.recent = o.recent[len(o.recent)-recentOpportunities:]
		}
		o.mu.Unlock()
	}

	if o.hub != nil {
		o.hub.BroadcastOpportunity(mt.matchID, result)
	}
	if o.onOpportunity != nil {
		o.onOpportunity(mt.matchID, result)
	}
	if !result.Tradeable {
		return
	}

	switch {
	case result.Action.IsBuy():
		o.placeOrder(mt, result, mt.team1)
	default:
		// Team 1 overpriced means team 2 is cheap at the complement.
		flipped := o.calc.Evaluate(one.Sub(fair), one.Sub(price), conf)
		if flipped.Tradeable && flipped.Action.IsBuy() {
			o.placeOrder(mt, flipped, mt.team2)
		}
	}
}

func (o *Orchestrator) placeOrder(mt *matchTrader, result *edge.Result, outcome string) {
	size := o.sizer.SizePosition(result, o.paper.Balance())
	if !size.Actionable {
		return
	}

	mt.mu.Lock()
	marketID := mt.marketID
	liquidity := mt.liquidity
	mt.mu.Unlock()
	if marketID == "" {
		marketID = mt.matchID
	}

	if err := o.riskCheck.CheckOrder(mt.matchID, size.Stake, liquidity); err != nil {
		o.metrics.PolicyRejects.WithLabelValues(rejectReason(err)).Inc()
		log.Printf("[ORCH] order rejected for %s: %v", mt.matchID, err)
		return
	}

	order, err := o.paper.Buy(marketID, outcome, result.MarketPrice, size.Stake)
	if err != nil {
		o.reportError(fmt.Errorf("buy %s on %s: %w", outcome, mt.matchID, err))
		return
	}
	o.riskCheck.RecordOrder(mt.matchID, size.Stake)

	mt.mu.Lock()
	mt.trades++
	mt.mu.Unlock()

	o.metrics.RecordTrade(string(mt.title), metrics.Float(size.Stake))
	o.metrics.AccountBalance.Set(metrics.Float(o.paper.Balance()))
	o.metrics.TotalExposure.Set(metrics.Float(o.riskCheck.TotalExposure()))

	log.Printf("[ORCH] trade %s: $%s on %s @ %s (fair %s, edge %s)",
		order.ID, order.Stake, outcome, order.FillPrice,
		result.FairPrice.StringFixed(3), result.Edge.StringFixed(3))

	if o.store != nil {
		err := o.store.AddTrade(&storage.TradeRecord{
			TradeID:   order.ID,
			MatchID:   mt.matchID,
			MarketID:  marketID,
			Outcome:   outcome,
			Stake:     metrics.Float(order.Stake),
			Price:     metrics.Float(order.FillPrice),
			Shares:    metrics.Float(order.Shares),
			FairPrice: metrics.Float(result.FairPrice),
			Edge:      metrics.Float(result.Edge),
			Time:      order.CreatedAt,
		})
		if err != nil {
			o.reportError(fmt.Errorf("persist trade %s: %w", order.ID, err))
		}
	}
	if o.notifier != nil {
		err := o.notifier.SendTrade(mt.label(), outcome,
			order.Stake, order.FillPrice, result.FairPrice, result.Edge)
		if err != nil {
			log.Printf("[ORCH] trade notification failed: %v", err)
		}
	}
	if o.hub != nil {
		o.hub.BroadcastTrade(mt.matchID, order)
	}
	if o.onTrade != nil {
		o.onTrade(mt.matchID, order)
	}
}

// settle closes out a decided series: resolve the paper position, release
// policy exposure, persist final records, and drop the match.
func (o *Orchestrator) settle(mt *matchTrader) {
	winner := mt.ser.Winner()
	log.Printf("[ORCH] series over for %s: %s wins", mt.matchID, mt.teamName(winner))

	mt.mu.Lock()
	marketID := mt.marketID
	trades := mt.trades
	mt.mu.Unlock()
	if marketID == "" {
		marketID = mt.matchID
	}

	pnl := decimal.Zero
	if pos, ok := o.paper.Position(marketID); ok {
		won := pos.Outcome == mt.teamName(winner)
		settlement, err := o.paper.SettleMatch(marketID, won)
		if err != nil {
			o.reportError(fmt.Errorf("settle %s: %w", mt.matchID, err))
		} else {
			pnl = settlement.PnL
			o.metrics.RecordSettlement(won, metrics.Float(pnl))
			if o.notifier != nil {
				if err := o.notifier.SendSettlement(mt.label(), pos.Outcome, won, pnl); err != nil {
					log.Printf("[ORCH] settlement notification failed: %v", err)
				}
			}
			if o.hub != nil {
				o.hub.BroadcastSettlement(mt.matchID, settlement)
			}
			if o.onSettlement != nil {
				o.onSettlement(mt.matchID, settlement)
			}
		}
	}

	o.riskCheck.RecordSettlement(mt.matchID, pnl)
	o.metrics.AccountBalance.Set(metrics.Float(o.paper.Balance()))
	o.metrics.TotalExposure.Set(metrics.Float(o.riskCheck.TotalExposure()))

	if o.store != nil {
		pnlF := metrics.Float(pnl)
		if err := o.store.SettleTrades(mt.matchID, pnlF); err != nil {
			o.reportError(fmt.Errorf("settle trades for %s: %w", mt.matchID, err))
		}
		if err := o.store.FinishMatch(mt.matchID, winner, trades, pnlF); err != nil {
			o.reportError(fmt.Errorf("finish match %s: %w", mt.matchID, err))
		}
	}

	o.mu.Lock()
	delete(o.matches, mt.matchID)
	o.mu.Unlock()
	o.metrics.MatchClosed(mt.matchID)
	o.metrics.ActiveMatches.Dec()
	o.funnel.CloseMatch(mt.matchID)

	if o.onMatchFinished != nil {
		o.onMatchFinished(mt.matchID, winner, pnl)
	}
}

// RecentOpportunities returns the latest non-hold edge evaluations, newest
// last.
func (o *Orchestrator) RecentOpportunities() []Opportunity {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Opportunity, len(o.recent))
	copy(out, o.recent)
	return out
}

// SetMarket attaches a prediction market to a match. price is the team-1
// outcome price; a price arriving for an unknown match is dropped. An empty
// marketID keeps the match ID as the paper market key. A held team-2
// position is marked at the complement of the team-1 price.
func (o *Orchestrator) SetMarket(matchID, marketID string, price, liquidity decimal.Decimal) {
	mt := o.trader(matchID)
	if mt == nil {
		return
	}
	mt.mu.Lock()
	if marketID != "" {
		mt.marketID = marketID
	}
	if marketID == "" {
		marketID = mt.matchID
	}
	mt.marketPrice = price
	mt.liquidity = liquidity
	mt.mu.Unlock()

	mark := price
	if pos, ok := o.paper.Position(marketID); ok && pos.Outcome == mt.team2 {
		mark = one.Sub(price)
	}
	o.paper.MarkPrice(marketID, mark)
}

func (o *Orchestrator) trader(matchID string) *matchTrader {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.matches[matchID]
}

func (o *Orchestrator) reportError(err error) {
	log.Printf("[ORCH] %v", err)
	if o.hub != nil {
		o.hub.BroadcastError(err, "pipeline")
	}
	if o.onError != nil {
		o.onError(err)
	}
}

// probPayload is the websocket payload for probability updates.
type probPayload struct {
	engine.Snapshot
	SeriesWinProb float64 `json:"series_win_prob"`
	GameNumber    int     `json:"game_number"`
}

type seriesPayload struct {
	Team1     string `json:"team1"`
	Team2     string `json:"team2"`
	BestOf    int    `json:"best_of"`
	Team1Wins int    `json:"team1_wins"`
	Team2Wins int    `json:"team2_wins"`
	GameNum   int    `json:"game_number"`
	Over      bool   `json:"over"`
	Winner    int    `json:"winner,omitempty"`
}

func (o *Orchestrator) seriesPayload(mt *matchTrader) seriesPayload {
	return seriesPayload{
		Team1:     mt.team1,
		Team2:     mt.team2,
		BestOf:    mt.bestOf,
		Team1Wins: mt.ser.Team1Wins,
		Team2Wins: mt.ser.Team2Wins,
		GameNum:   mt.ser.GameNumber(),
		Over:      mt.ser.IsOver(),
		Winner:    mt.ser.Winner(),
	}
}

// MatchStatus is one live match in the status API.
type MatchStatus struct {
	MatchID       string  `json:"match_id"`
	Title         string  `json:"title"`
	Team1         string  `json:"team1"`
	Team2         string  `json:"team2"`
	BestOf        int     `json:"best_of"`
	GameNumber    int     `json:"game_number"`
	Team1Wins     int     `json:"team1_wins"`
	Team2Wins     int     `json:"team2_wins"`
	GameWinProb   float64 `json:"game_win_prob"`
	SeriesWinProb float64 `json:"series_win_prob"`
	Confidence    float64 `json:"confidence"`
	MarketID      string  `json:"market_id,omitempty"`
	MarketPrice   string  `json:"market_price,omitempty"`
	Trades        int     `json:"trades"`
}

// Status is the full status API payload.
type Status struct {
	Matches []MatchStatus `json:"matches"`
	Balance string        `json:"balance"`
	Policy  policy.Status `json:"policy"`
}

// GetStatus reports all live matches and account state.
func (o *Orchestrator) GetStatus() Status {
	o.mu.RLock()
	traders := make([]*matchTrader, 0, len(o.matches))
	for _, mt := range o.matches {
		traders = append(traders, mt)
	}
	o.mu.RUnlock()

	st := Status{
		Matches: make([]MatchStatus, 0, len(traders)),
		Balance: o.paper.Balance().String(),
		Policy:  o.riskCheck.CurrentStatus(),
	}
	for _, mt := range traders {
		mt.mu.Lock()
		ms := MatchStatus{
			MatchID:       mt.matchID,
			Title:         string(mt.title),
			Team1:         mt.team1,
			Team2:         mt.team2,
			BestOf:        mt.bestOf,
			GameNumber:    mt.ser.GameNumber(),
			Team1Wins:     mt.ser.Team1Wins,
			Team2Wins:     mt.ser.Team2Wins,
			GameWinProb:   mt.lastSnap.Team1Prob,
			SeriesWinProb: mt.seriesProb,
			Confidence:    mt.lastSnap.Confidence,
			MarketID:      mt.marketID,
			Trades:        mt.trades,
		}
		if !mt.marketPrice.IsZero() {
			ms.MarketPrice = mt.marketPrice.String()
		}
		mt.mu.Unlock()
		st.Matches = append(st.Matches, ms)
	}
	return st
}

// formatFor maps a best-of length onto the nearest supported series format.
func formatFor(bestOf int) series.Format {
	switch {
	case bestOf <= 1:
		return series.Bo1
	case bestOf <= 3:
		return series.Bo3
	default:
		return series.Bo5
	}
}

// situationFor derives the acting team's situational context from the last
// full state. Events arriving before any state carry event-local context
// only.
func situationFor(st *game.State, ev *game.Event) impact.Situation {
	sit := impact.Situation{
		Minutes:      ev.Time,
		VictimGold:   ev.VictimGold,
		VictimStreak: ev.VictimStreak,
		Contested:    ev.Context == game.ContextContested,
		Steal:        ev.Context == game.ContextSteal,
	}
	if st == nil {
		return sit
	}
	own := st.Stats(ev.Team)
	goldDiff := st.GoldDiff()
	if ev.Team == game.Team2 {
		goldDiff = -goldDiff
	}
	sit.GoldDiff = goldDiff
	sit.EnemyInhibsDown = own.Inhibitors
	sit.TowersRemaining = own.TowersRemaining
	sit.SoulPoint = own.Dragons == 3
	return sit
}

// rejectReason maps a policy error onto a low-cardinality metric label.
func rejectReason(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "daily"):
		return "daily_budget"
	case strings.Contains(msg, "order"):
		return "order_size"
	case strings.Contains(msg, "cooldown"):
		return "cooldown"
	case strings.Contains(msg, "liquidity"):
		return "liquidity"
	case strings.Contains(msg, "exposure"):
		return "exposure"
	default:
		return "other"
	}
}
