package domain

import (
	"context"
	"time"
)

// StatsEvent is one rate-limit decision.
//
// Keep an eye on cardinality: recording Key or Path unchecked can blow up
// the number of series/keys in Redis or Prometheus.
type StatsEvent struct {
	Key     Key
	Route   string
	Allowed bool

	Method string
	Path   string

	At time.Time
}

// StatsStore persists rate-limit statistics. Callers treat errors as
// best effort and never fail the request on them.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
