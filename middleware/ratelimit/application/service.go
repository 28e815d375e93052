package application

import (
	"time"

	"github.com/andyarntsen-alt/jobbstart-sub001/middleware/ratelimit/domain"
)

// Service applies the per-route, per-client rate limit.
//
// It returns a decision only; status codes and headers are the HTTP
// adapter's job.
type Service struct {
	Store      domain.LimiterStore
	RetryAfter time.Duration
}

// Decide consumes one token from the bucket of client on route.
func (s Service) Decide(route, client string) domain.Decision {
	key := domain.RouteKey(route, client)
	if s.Store == nil {
		return domain.Decision{Key: key, Allowed: true}
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = 1 * time.Second
	}

	lim := s.Store.Get(key)
	if lim == nil || lim.Allow() {
		return domain.Decision{Key: key, Allowed: true}
	}
	return domain.Decision{Key: key, Allowed: false, RetryAfter: s.RetryAfter}
}
