// Package metrics holds the Prometheus collectors of the API server and worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Alert evaluation outcomes
const (
	AlertPriced    = "priced"
	AlertTriggered = "triggered"
	AlertUnpriced  = "unpriced"
	AlertNotified  = "notified"
	AlertFailed    = "failed"
)

// Metrics owns a private registry so tests can create as many as they like
type Metrics struct {
	registry *prometheus.Registry

	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	alertOutcomes   *prometheus.CounterVec
}

// New creates the collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "market_cache_total",
				Help: "Market data cache lookups by result",
			},
			[]string{"resource", "result"},
		),
		alertOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alert_evaluations_total",
				Help: "Price alert evaluations by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(route, method string, status int, duration time.Duration) {
	m.requestCount.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// ObserveCache records a market cache lookup
func (m *Metrics) ObserveCache(resource, result string) {
	m.cacheLookups.WithLabelValues(resource, result).Inc()
}

// ObserveAlert records n alert evaluations with the given outcome
func (m *Metrics) ObserveAlert(outcome string, n int) {
	if n <= 0 {
		return
	}
	m.alertOutcomes.WithLabelValues(outcome).Add(float64(n))
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
