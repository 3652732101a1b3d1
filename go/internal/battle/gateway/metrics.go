package gateway

import (
	"time"

	"github.com/mcdev12/blockbattle/go/internal/battle/events"
	"github.com/mcdev12/blockbattle/go/internal/battle/matchmaker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics implements matchmaker.MetricsCollector using Prometheus
type PrometheusMetrics struct {
	connections    prometheus.Gauge
	waiting        prometheus.Gauge
	activeMatches  prometheus.Gauge
	matchesStarted prometheus.Counter
	matchesEnded   *prometheus.CounterVec
	matchDuration  prometheus.Histogram
	relayed        *prometheus.CounterVec
	dropped        *prometheus.CounterVec
}

var _ matchmaker.MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers the battle metrics on reg
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "battle",
			Name:      "connections",
			Help:      "Connected players known to the matchmaker.",
		}),
		waiting: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "battle",
			Name:      "waiting_players",
			Help:      "1 while a player is waiting for an opponent.",
		}),
		activeMatches: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "battle",
			Name:      "active_matches",
			Help:      "Matches currently in progress.",
		}),
		matchesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "battle",
			Name:      "matches_started_total",
			Help:      "Matches created by pairing two players.",
		}),
		matchesEnded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "battle",
			Name:      "matches_ended_total",
			Help:      "Matches ended, by reason.",
		}, []string{"reason"}),
		matchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "battle",
			Name:      "match_duration_seconds",
			Help:      "Wall time from MATCH_START to GAME_END.",
			Buckets:   []float64{5, 15, 30, 60, 120, 240, 480, 600, 660},
		}),
		relayed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "battle",
			Name:      "messages_relayed_total",
			Help:      "Messages forwarded to an opponent, by type.",
		}, []string{"type"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "battle",
			Name:      "messages_dropped_total",
			Help:      "Inbound messages dropped, by type and cause.",
		}, []string{"type", "cause"}),
	}
}

func (m *PrometheusMetrics) RecordPlayerConnected() {
	m.connections.Inc()
}

func (m *PrometheusMetrics) RecordPlayerDisconnected() {
	m.connections.Dec()
}

func (m *PrometheusMetrics) RecordMatchStarted() {
	m.matchesStarted.Inc()
	m.activeMatches.Inc()
}

func (m *PrometheusMetrics) RecordMatchEnded(reason matchmaker.EndReason, duration time.Duration) {
	m.matchesEnded.WithLabelValues(string(reason)).Inc()
	m.matchDuration.Observe(duration.Seconds())
	m.activeMatches.Dec()
}

func (m *PrometheusMetrics) RecordRelayed(kind events.MessageType) {
	m.relayed.WithLabelValues(string(kind)).Inc()
}

func (m *PrometheusMetrics) RecordDropped(kind events.MessageType, cause matchmaker.DropCause) {
	label := string(kind)
	if label == "" {
		label = "unknown"
	}
	m.dropped.WithLabelValues(label, string(cause)).Inc()
}

func (m *PrometheusMetrics) SetWaiting(waiting bool) {
	if waiting {
		m.waiting.Set(1)
		return
	}
	m.waiting.Set(0)
}
