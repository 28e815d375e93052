package domain

import (
	"strings"
	"time"
)

// Key identifies one token bucket: a route name plus a client.
type Key string

const routeSep = "|"

// RouteKey scopes client to route so that, say, the trial-status endpoint
// and the generator do not share a budget.
// An empty route yields the bare client key.
func RouteKey(route, client string) Key {
	route = strings.TrimSpace(route)
	if route == "" {
		return Key(client)
	}
	return Key(route + routeSep + client)
}

// Route returns the route part of a key built by RouteKey ("" if none).
func (k Key) Route() string {
	if i := strings.Index(string(k), routeSep); i >= 0 {
		return string(k)[:i]
	}
	return ""
}

// Limiter decides whether an action is allowed right now.
// The infra layer backs it with golang.org/x/time/rate.
type Limiter interface {
	Allow() bool
}

// LimiterStore returns the limiter for a key, creating it on first use.
type LimiterStore interface {
	Get(Key) Limiter
}

type Decision struct {
	Key     Key
	Allowed bool
	// RetryAfter is sent as Retry-After when blocked. 0 means no advice.
	RetryAfter time.Duration
}
