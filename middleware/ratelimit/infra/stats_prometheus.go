package infra

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/andyarntsen-alt/jobbstart-sub001/middleware/ratelimit/domain"
)

// PrometheusStatsStore exports decisions as a counter labelled by route
// and result. Client keys are never used as labels.
type PrometheusStatsStore struct {
	decisions *prometheus.CounterVec
}

func NewPrometheusStatsStore(reg prometheus.Registerer) (*PrometheusStatsStore, error) {
	decisions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobbstart",
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limit decisions by route and result.",
		},
		[]string{"route", "result"},
	)
	if reg != nil {
		if err := reg.Register(decisions); err != nil {
			return nil, err
		}
	}
	return &PrometheusStatsStore{decisions: decisions}, nil
}

func (s *PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	result := "denied"
	if ev.Allowed {
		result = "allowed"
	}
	route := eventRoute(ev)
	if route == "" {
		route = "unnamed"
	}
	s.decisions.WithLabelValues(route, result).Inc()
	return nil
}

// MultiStats fans one event out to several stores and returns the first error.
type MultiStats []domain.StatsStore

func (m MultiStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
