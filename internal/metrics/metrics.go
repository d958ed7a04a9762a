// Package metrics exposes Prometheus metrics for the simulation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the simulation's collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Swaps          *prometheus.CounterVec
	SwapVolume     *prometheus.CounterVec
	LiquidityOps   *prometheus.CounterVec
	TokensCreated  prometheus.Counter
	BidsPlaced     prometheus.Counter
	AuctionsClosed prometheus.Counter
	Badges         *prometheus.CounterVec
	LevelUps       prometheus.Counter
	Rejected       *prometheus.CounterVec
	SaveFailures   prometheus.Counter
	EventsDropped  prometheus.Counter
	PoolReserve    *prometheus.GaugeVec
	PlayerLevel    prometheus.Gauge
	ActionLatency  *prometheus.HistogramVec
}

// New registers every collector under namespace.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "mercado_lp"
	}
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Swaps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "swaps_total",
			Help:      "Executed swaps by actor",
		}, []string{"actor"}),
		SwapVolume: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "swap_input_total",
			Help:      "Swap input amount by token",
		}, []string{"token"}),
		LiquidityOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "liquidity_ops_total",
			Help:      "Liquidity adds and removals",
		}, []string{"op"}),
		TokensCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "created_total",
			Help:      "Player-created tokens",
		}),
		BidsPlaced: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auction",
			Name:      "bids_total",
			Help:      "Auction bids placed",
		}),
		AuctionsClosed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auction",
			Name:      "cleared_total",
			Help:      "Auctions cleared",
		}),
		Badges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progression",
			Name:      "badges_total",
			Help:      "Achievements awarded by id",
		}, []string{"id"}),
		LevelUps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progression",
			Name:      "level_ups_total",
			Help:      "Levels gained",
		}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rejected_total",
			Help:      "Rejected actions by operation",
		}, []string{"op"}),
		SaveFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persistence",
			Name:      "save_failures_total",
			Help:      "Snapshot saves that failed",
		}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_dropped_total",
			Help:      "Events dropped because a subscriber was full",
		}),
		PoolReserve: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "reserve",
			Help:      "Current pool reserve by side",
		}, []string{"pool", "token"}),
		PlayerLevel: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "progression",
			Name:      "player_level",
			Help:      "Current player level",
		}),
		ActionLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "action_duration_seconds",
			Help:      "Time to apply an action",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}, []string{"op"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordSwap(actor, token string, amountIn float64) {
	if m == nil {
		return
	}
	m.Swaps.WithLabelValues(actor).Inc()
	m.SwapVolume.WithLabelValues(token).Add(amountIn)
}

func (m *Metrics) RecordLiquidity(op string) {
	if m == nil {
		return
	}
	m.LiquidityOps.WithLabelValues(op).Inc()
}

func (m *Metrics) RecordTokenCreated() {
	if m == nil {
		return
	}
	m.TokensCreated.Inc()
}

func (m *Metrics) RecordBid() {
	if m == nil {
		return
	}
	m.BidsPlaced.Inc()
}

func (m *Metrics) RecordAuctionCleared() {
	if m == nil {
		return
	}
	m.AuctionsClosed.Inc()
}

func (m *Metrics) RecordBadge(id string) {
	if m == nil {
		return
	}
	m.Badges.WithLabelValues(id).Inc()
}

func (m *Metrics) RecordLevel(level int, gained int) {
	if m == nil {
		return
	}
	m.PlayerLevel.Set(float64(level))
	if gained > 0 {
		m.LevelUps.Add(float64(gained))
	}
}

func (m *Metrics) RecordRejected(op string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(op).Inc()
}

func (m *Metrics) RecordSaveFailure() {
	if m == nil {
		return
	}
	m.SaveFailures.Inc()
}

func (m *Metrics) RecordEventDropped() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}

func (m *Metrics) SetReserves(poolID, tokenA, tokenB string, reserveA, reserveB float64) {
	if m == nil {
		return
	}
	m.PoolReserve.WithLabelValues(poolID, tokenA).Set(reserveA)
	m.PoolReserve.WithLabelValues(poolID, tokenB).Set(reserveB)
}

func (m *Metrics) ObserveAction(op string, seconds float64) {
	if m == nil {
		return
	}
	m.ActionLatency.WithLabelValues(op).Observe(seconds)
}
