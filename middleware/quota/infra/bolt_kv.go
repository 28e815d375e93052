package infra

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/andyarntsen-alt/jobbstart-sub001/internal/clock"
)

const boltBucket = "free_trial"

// BoltKV is a single-file domain.KVStore for one-node deployments.
//
// Each value is stored as an 8 byte big-endian expiry (unix nanoseconds,
// 0 = none) followed by the raw value. Expired entries read as absent and
// are removed by Cleanup.
type BoltKV struct {
	db    *bbolt.DB
	clock clock.Clock
}

func OpenBoltKV(path string, c clock.Clock) (*BoltKV, error) {
	if c == nil {
		c = clock.Real{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltKV{db: db, clock: c}, nil
}

func (s *BoltKV) Close() error { return s.db.Close() }

func (s *BoltKV) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(boltBucket)).Get([]byte(key))
		if raw == nil {
			return nil
		}
		val, expiresAt, err := decodeBoltValue(raw)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		if !expiresAt.IsZero() && !s.clock.Now().Before(expiresAt) {
			return nil
		}
		out = make([]byte, len(val))
		copy(out, val)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltKV) Set(ctx context.Context, key string, value []byte, exp time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var expiresAt time.Time
	if exp > 0 {
		expiresAt = s.clock.Now().Add(exp)
	}
	buf := encodeBoltValue(value, expiresAt)

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Put([]byte(key), buf)
	})
}

// Cleanup deletes expired entries and returns how many were removed.
// Records that cannot be decoded are left in place: Get reports them as a
// store error and removing them would hand the client a fresh counter.
func (s *BoltKV) Cleanup() (int, error) {
	now := s.clock.Now()
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(boltBucket))

		var stale [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			_, expiresAt, err := decodeBoltValue(v)
			if err != nil {
				continue
			}
			if !expiresAt.IsZero() && !now.Before(expiresAt) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// StartJanitor runs Cleanup every interval until ctx is done. Errors are
// dropped; the next tick retries.
func (s *BoltKV) StartJanitor(ctx context.Context, every time.Duration) {
	startJanitor(ctx, every, func() { _, _ = s.Cleanup() })
}

func encodeBoltValue(value []byte, expiresAt time.Time) []byte {
	buf := make([]byte, 8+len(value))
	if !expiresAt.IsZero() {
		binary.BigEndian.PutUint64(buf[:8], uint64(expiresAt.UnixNano()))
	}
	copy(buf[8:], value)
	return buf
}

func decodeBoltValue(raw []byte) ([]byte, time.Time, error) {
	if len(raw) < 8 {
		return nil, time.Time{}, errors.New("bolt value too short")
	}
	var expiresAt time.Time
	if n := binary.BigEndian.Uint64(raw[:8]); n != 0 {
		expiresAt = time.Unix(0, int64(n))
	}
	return raw[8:], expiresAt, nil
}
