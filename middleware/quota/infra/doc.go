// Package infra contains the concrete key-value stores behind the
// domain.KVStore contract.
//
// Examples:
//   - RedisKV: shared store for multi-instance deployments (GET / SET EX)
//   - BoltKV: single-node file store using go.etcd.io/bbolt
//   - MemoryKV: in-process map, for tests and development
package infra
