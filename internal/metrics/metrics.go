// Package metrics exposes Prometheus counters for scans and the outreach pilot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leadgen"

// Metrics holds the collectors on a private registry. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	Scans            *prometheus.CounterVec
	LeadsDiscovered  *prometheus.CounterVec
	Transitions      *prometheus.CounterVec
	OutreachFailures *prometheus.CounterVec
	GenerationWait   prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Scans: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Scans by outcome (ok, empty, error)",
		}, []string{"outcome"}),
		LeadsDiscovered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_discovered_total",
			Help:      "Leads produced by scans, by qualification tier",
		}, []string{"tier"}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_transitions_total",
			Help:      "Lifecycle transitions persisted, by target status",
		}, []string{"status"}),
		OutreachFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outreach_failures_total",
			Help:      "Per-lead pilot failures, by step",
		}, []string{"step"}),
		GenerationWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_throttle_wait_seconds",
			Help:      "Time spent waiting for the generation rate limiter",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) ScanCompleted(outcome string) {
	if m == nil {
		return
	}
	m.Scans.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LeadDiscovered(tier string) {
	if m == nil {
		return
	}
	m.LeadsDiscovered.WithLabelValues(tier).Inc()
}

func (m *Metrics) Transitioned(status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(status).Inc()
}

func (m *Metrics) OutreachFailed(step string) {
	if m == nil {
		return
	}
	m.OutreachFailures.WithLabelValues(step).Inc()
}

func (m *Metrics) ObserveGenerationWait(seconds float64) {
	if m == nil {
		return
	}
	m.GenerationWait.Observe(seconds)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
