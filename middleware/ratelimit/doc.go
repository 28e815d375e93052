// Package ratelimit provides the net/http adapters for rate limiting and
// concurrency limiting.
//
// Layers:
//
//   - domain: contracts and types (no net/http)
//   - application: allow/deny and acquire/timeout use cases (no net/http)
//   - infra: token buckets, semaphore, stats stores
//   - ratelimit (this package): middlewares, client key extraction, status/headers
//
// Flow per request:
//
//  1. Extract the client key (header / X-Forwarded-For / RemoteAddr)
//  2. Ask the application layer for a decision on (route, client)
//  3. If blocked, answer 429 (rate) or 503 (concurrency)
//  4. Otherwise call the next handler (the free-trial guard, then the action)
package ratelimit
