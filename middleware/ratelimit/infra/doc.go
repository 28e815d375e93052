// Package infra holds the concrete implementations of the rate-limit
// contracts in package domain.
//
// Examples:
//   - Store: per-key token buckets on golang.org/x/time/rate
//   - ChanPool: channel semaphore for the concurrency limit
//   - MemoryStatsStore, RedisStatsStore, PrometheusStatsStore: decision stats
package infra
