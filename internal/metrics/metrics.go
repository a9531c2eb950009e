// Package metrics exposes turn pipeline and session measurements in the
// Prometheus text format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sanad"

// Metrics implements service.Observer on a private registry so tests and
// multiple servers in one process never collide on the default registry.
type Metrics struct {
	registry       *prometheus.Registry
	turns          *prometheus.CounterVec
	degradations   *prometheus.CounterVec
	stageDurations *prometheus.HistogramVec
	activeSessions prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Processed turns by outcome (skipped, injected, not_relevant, excerpt, abandoned).",
		}, []string{"outcome"}),
		degradations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degradations_total",
			Help:      "Pipeline stages that fell back to their degraded path.",
		}, []string{"stage"}),
		stageDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Latency of remote pipeline stages.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"stage"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}),
	}

	m.registry.MustRegister(
		m.turns,
		m.degradations,
		m.stageDurations,
		m.activeSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveStage records the duration of one pipeline stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageDurations.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveDegradation counts a stage falling back.
func (m *Metrics) ObserveDegradation(stage string) {
	m.degradations.WithLabelValues(stage).Inc()
}

// ObserveTurn counts a finished or abandoned turn.
func (m *Metrics) ObserveTurn(outcome string) {
	m.turns.WithLabelValues(outcome).Inc()
}

// SetActiveSessions reports the live session count.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
