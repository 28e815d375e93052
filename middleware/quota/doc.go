// Package quota provides the net/http adapter for the free-trial gate.
//
// Layers:
//
//   - domain: contracts and types (KVStore, Usage, errors)
//   - application: Tracker use cases (Check / Consume, fail-open variant)
//   - infra: Redis, bbolt and in-memory stores
//   - quota (this package): Guard middleware translating decisions to HTTP
//
// Request flow behind the rate limiter:
//
//  1. Check the caller's usage; 503 if the store fails, 403 if spent
//  2. Run the gated handler into a buffer
//  3. On a 2xx result, Consume before the response is sent; 503 if recording fails
package quota
