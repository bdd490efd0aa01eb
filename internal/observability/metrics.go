// Package observability exposes the gateway's Prometheus instruments.
// Grounded on the teacher's internal/observability/metrics.go
// (promauto-constructed gauges/counters/histograms with a configurable
// namespace), extended with turn-stage, STT/agent error, and
// rate-limiter counters this gateway's component set calls for.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	TurnStageLatency   *prometheus.HistogramVec
	SttErrors          *prometheus.CounterVec
	AgentErrors        *prometheus.CounterVec
	RateLimiterReject  prometheus.Counter
	RateLimiterBuckets prometheus.Gauge
	ConfigReloads      prometheus.Counter
	TurnsTotal         prometheus.Counter
}

// New constructs every instrument under namespace, mirroring the
// teacher's NewMetrics(namespace) constructor.
func New(namespace string) *Metrics {
	return &Metrics{
		TurnStageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_stage_latency_ms",
			Help:      "Latency of each turn stage in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"stage"}),
		SttErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "STT adapter errors by code.",
		}, []string{"code", "provider"}),
		AgentErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_errors_total",
			Help:      "Agent session client errors by code.",
		}, []string{"code"}),
		RateLimiterReject: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limiter_rejections_total",
			Help:      "Requests rejected by the per-IP rate limiter.",
		}),
		RateLimiterBuckets: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_limiter_active_buckets",
			Help:      "Number of live rate-limiter buckets.",
		}),
		ConfigReloads: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Number of successful ConfigStore.update calls.",
		}),
		TurnsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Number of completed voice turns, success or failure.",
		}),
	}
}

func (m *Metrics) ObserveStage(stage string, ms int64) {
	m.TurnStageLatency.WithLabelValues(stage).Observe(float64(ms))
}

func (m *Metrics) ObserveSttError(code, provider string) {
	m.SttErrors.WithLabelValues(code, provider).Inc()
}

func (m *Metrics) ObserveAgentError(code string) {
	m.AgentErrors.WithLabelValues(code).Inc()
}

// Handler returns the standard promhttp exposition handler, mounted
// at GET /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
