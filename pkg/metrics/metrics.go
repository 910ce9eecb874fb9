// Package metrics exposes Prometheus collectors for assistant traffic and
// board state.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "taskboard"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	overdue  prometheus.Gauge
	tasks    prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "requests_total",
			Help:      "Assistant requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "request_duration_seconds",
			Help:      "Assistant request latency by operation.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation"}),
		overdue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overdue_tasks",
			Help:      "Tasks past due and not done at the last sweep.",
		}),
		tasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks",
			Help:      "Tasks on the board at the last sweep.",
		}),
	}
	m.registry.MustRegister(m.requests, m.latency, m.overdue, m.tasks)
	return m
}

// ObserveRequest records one assistant call.
func (m *Metrics) ObserveRequest(operation string, took time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(took.Seconds())
}

// SetBoard records the result of an overdue sweep.
func (m *Metrics) SetBoard(total, overdue int) {
	if m == nil {
		return
	}
	m.tasks.Set(float64(total))
	m.overdue.Set(float64(overdue))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Requests returns the counter vector, for tests.
func (m *Metrics) Requests() *prometheus.CounterVec { return m.requests }

// Overdue returns the overdue gauge, for tests.
func (m *Metrics) Overdue() prometheus.Gauge { return m.overdue }
