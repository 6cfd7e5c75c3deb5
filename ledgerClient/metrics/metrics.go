package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the client's collectors on a private registry.
// All methods are no-ops on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	Submissions         *prometheus.CounterVec
	ConfirmationLatency *prometheus.HistogramVec
	Fetches             *prometheus.CounterVec
	CacheEntries        prometheus.Gauge
	InFlight            prometheus.Gauge
}

func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Mutating operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		ConfirmationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confirmation_latency_seconds",
			Help:      "Time from dispatch to a confirmation outcome",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"operation", "outcome"}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_fetches_total",
			Help:      "Account fetches by record kind and result",
		}, []string{"kind", "result"}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Number of tracked account snapshots",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "operations_in_flight",
			Help:      "Mutating operations currently in progress",
		}),
	}

	m.registry.MustRegister(
		m.Submissions,
		m.ConfirmationLatency,
		m.Fetches,
		m.CacheEntries,
		m.InFlight,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveSubmission(operation, outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveConfirmation(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ConfirmationLatency.WithLabelValues(operation, outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveFetch(kind, result string) {
	if m == nil {
		return
	}
	m.Fetches.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}

func (m *Metrics) IncInFlight() {
	if m == nil {
		return
	}
	m.InFlight.Inc()
}

func (m *Metrics) DecInFlight() {
	if m == nil {
		return
	}
	m.InFlight.Dec()
}
