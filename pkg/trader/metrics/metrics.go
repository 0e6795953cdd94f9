// Package metrics provides Prometheus metrics for the live trading pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Metrics collects pipeline metrics on a private registry so tests can run
// multiple instances without collisions.
type Metrics struct {
	registry *prometheus.Registry

	// Feed metrics
	EventsTotal    *prometheus.CounterVec
	UpdatesDropped *prometheus.CounterVec
	FunnelDepth    *prometheus.GaugeVec
	PollLatency    *prometheus.HistogramVec

	// Model metrics
	WinProbability  *prometheus.GaugeVec
	SeriesWinProb   *prometheus.GaugeVec
	ModelConfidence *prometheus.HistogramVec
	MomentumScore   *prometheus.GaugeVec

	// Edge metrics
	OpportunitiesTotal *prometheus.CounterVec
	EdgeObserved       *prometheus.HistogramVec

	// Trading metrics
	TradesTotal     *prometheus.CounterVec
	StakeSize       *prometheus.HistogramVec
	SettlementsWon  prometheus.Counter
	SettlementsLost prometheus.Counter
	RealizedPnL     *prometheus.CounterVec
	AccountBalance  prometheus.Gauge
	TotalExposure   prometheus.Gauge
	PolicyRejects   *prometheus.CounterVec

	// Tracking metrics
	ActiveMatches prometheus.Gauge
}

// New creates a metrics collector with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esports_events_total",
				Help: "Game events processed",
			},
			[]string{"title", "type"},
		),
		UpdatesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esports_updates_dropped_total",
				Help: "Feed updates dropped because a match queue was full",
			},
			[]string{"match"},
		),
		FunnelDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "esports_funnel_depth",
				Help: "Buffered updates per match queue",
			},
			[]string{"match"},
		),
		PollLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "esports_poll_latency_seconds",
				Help:    "Feed poll round-trip latency",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"connector"},
		),

		WinProbability: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "esports_win_probability",
				Help: "Current game win probability for team 1",
			},
			[]string{"match"},
		),
		SeriesWinProb: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "esports_series_win_probability",
				Help: "Current series win probability for team 1",
			},
			[]string{"match"},
		),
		ModelConfidence: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "esports_model_confidence",
				Help:    "Model confidence per snapshot",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"title"},
		),
		MomentumScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "esports_momentum_score",
				Help: "Decayed momentum score, positive favors team 1",
			},
			[]string{"match"},
		),

		OpportunitiesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esports_opportunities_total",
				Help: "Edge evaluations by resulting action",
			},
			[]string{"action"},
		),
		EdgeObserved: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "esports_edge_observed",
				Help:    "Absolute effective edge per evaluation",
				Buckets: []float64{0, 0.005, 0.01, 0.02, 0.03, 0.05, 0.08, 0.12, 0.2},
			},
			[]string{"action"},
		),

		TradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esports_trades_total",
				Help: "Paper trades placed",
			},
			[]string{"title"},
		),
		StakeSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "esports_stake_size_usd",
				Help:    "Stake per trade in USD",
				Buckets: []float64{5, 10, 20, 35, 50, 75, 100},
			},
			[]string{"title"},
		),
		SettlementsWon: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "esports_settlements_won_total",
				Help: "Settled positions that paid out",
			},
		),
		SettlementsLost: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "esports_settlements_lost_total",
				Help: "Settled positions that expired worthless",
			},
		),
		RealizedPnL: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esports_realized_pnl_usd",
				Help: "Realized P&L in USD, split by sign",
			},
			[]string{"direction"},
		),
		AccountBalance: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "esports_account_balance_usd",
				Help: "Paper account free balance in USD",
			},
		),
		TotalExposure: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "esports_total_exposure_usd",
				Help: "Open stake across all matches in USD",
			},
		),
		PolicyRejects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esports_policy_rejects_total",
				Help: "Orders rejected by the risk policy",
			},
			[]string{"reason"},
		),

		ActiveMatches: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "esports_active_matches",
				Help: "Matches currently tracked",
			},
		),
	}

	m.registry.MustRegister(
		m.EventsTotal,
		m.UpdatesDropped,
		m.FunnelDepth,
		m.PollLatency,
		m.WinProbability,
		m.SeriesWinProb,
		m.ModelConfidence,
		m.MomentumScore,
		m.OpportunitiesTotal,
		m.EdgeObserved,
		m.TradesTotal,
		m.StakeSize,
		m.SettlementsWon,
		m.SettlementsLost,
		m.RealizedPnL,
		m.AccountBalance,
		m.TotalExposure,
		m.PolicyRejects,
		m.ActiveMatches,
	)
	return m
}

// Registry returns the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordEvent records one processed game event.
func (m *Metrics) RecordEvent(title, eventType string) {
	m.EventsTotal.WithLabelValues(title, eventType).Inc()
}

// RecordSnapshot records the model outputs for a match.
func (m *Metrics) RecordSnapshot(matchID, title string, gameProb, seriesProb, confidence, momentum float64) {
	m.WinProbability.WithLabelValues(matchID).Set(gameProb)
	m.SeriesWinProb.WithLabelValues(matchID).Set(seriesProb)
	m.ModelConfidence.WithLabelValues(title).Observe(confidence)
	m.MomentumScore.WithLabelValues(matchID).Set(momentum)
}

// RecordOpportunity records an edge evaluation.
func (m *Metrics) RecordOpportunity(action string, effectiveEdge float64) {
	m.OpportunitiesTotal.WithLabelValues(action).Inc()
	if effectiveEdge < 0 {
		effectiveEdge = -effectiveEdge
	}
	m.EdgeObserved.WithLabelValues(action).Observe(effectiveEdge)
}

// RecordTrade records a placed paper trade.
func (m *Metrics) RecordTrade(title string, stakeUSD float64) {
	m.TradesTotal.WithLabelValues(title).Inc()
	m.StakeSize.WithLabelValues(title).Observe(stakeUSD)
}

// RecordSettlement records a resolved position.
func (m *Metrics) RecordSettlement(won bool, pnlUSD float64) {
	if won {
		m.SettlementsWon.Inc()
	} else {
		m.SettlementsLost.Inc()
	}
	if pnlUSD >= 0 {
		m.RealizedPnL.WithLabelValues("profit").Add(pnlUSD)
	} else {
		m.RealizedPnL.WithLabelValues("loss").Add(-pnlUSD)
	}
}

// MatchClosed clears per-match gauges once a match finishes.
func (m *Metrics) MatchClosed(matchID string) {
	m.WinProbability.DeleteLabelValues(matchID)
	m.SeriesWinProb.DeleteLabelValues(matchID)
	m.MomentumScore.DeleteLabelValues(matchID)
	m.FunnelDepth.DeleteLabelValues(matchID)
	m.UpdatesDropped.DeleteLabelValues(matchID)
}

// Float converts a decimal for metric observation.
func Float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns the process-wide metrics instance.
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}
