// Package metrics holds the Prometheus collectors for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	trialOutcomes *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	generations   *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		trialOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "jobbstart",
				Subsystem: "free_trial",
				Name:      "outcomes_total",
				Help:      "Free-trial guard outcomes.",
			},
			[]string{"outcome"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "jobbstart",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "jobbstart",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration by route.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
			},
			[]string{"method", "route"},
		),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "jobbstart",
				Subsystem: "generator",
				Name:      "requests_total",
				Help:      "Calls to the LLM gateway by result.",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.trialOutcomes,
		m.httpRequests,
		m.httpDuration,
		m.generations,
	)
	return m
}

// ObserveTrial implements quota.Observer.
func (m *Metrics) ObserveTrial(outcome string) {
	m.trialOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveGeneration implements generate.Observer.
func (m *Metrics) ObserveGeneration(result string) {
	m.generations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
