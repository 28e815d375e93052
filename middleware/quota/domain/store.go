package domain

import (
	"context"
	"time"
)

// KVStore is the minimal shape of the shared key-value store backing the
// usage records.
//
// Get returns (nil, nil) when the key is absent or expired.
// Set upserts the value and (re)starts its expiry; exp <= 0 means no expiry.
// Implementations must be safe for concurrent use.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, exp time.Duration) error
}
