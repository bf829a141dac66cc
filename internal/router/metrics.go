package router

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for routing activity. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	retries  prometheus.Counter
	failures *prometheus.CounterVec
}

// MustNewMetrics registers the router collectors with reg, reusing collectors
// that are already registered under the same name. Other registration errors
// panic.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "amal",
			Subsystem: "router",
			Name:      "requests_total",
			Help:      "Routed queries by intent, handler source and language.",
		},
		[]string{"intent", "source", "language"},
	)
	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "amal",
			Subsystem: "router",
			Name:      "request_duration_seconds",
			Help:      "End-to-end routing latency by handler source.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "amal",
			Subsystem: "rag",
			Name:      "generation_retries_total",
			Help:      "Generation attempts that failed transiently and were retried.",
		},
	)
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "amal",
			Subsystem: "router",
			Name:      "failures_total",
			Help:      "Queries that failed or degraded, by reason.",
		},
		[]string{"reason"},
	)

	return &Metrics{
		requests: register(reg, requests),
		latency:  register(reg, latency),
		retries:  register(reg, retries),
		failures: register(reg, failures),
	}
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveBackoff matches rag.InvokerConfig.OnBackoff.
func (m *Metrics) ObserveBackoff(_ int, _ time.Duration, _ error) {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) observe(resp Response, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(resp.Classification.Label), resp.Source, string(resp.Language)).Inc()
	m.latency.WithLabelValues(resp.Source).Observe(elapsed.Seconds())
}

func (m *Metrics) failed(reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reason).Inc()
}
