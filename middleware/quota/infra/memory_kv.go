package infra

import (
	"context"
	"sync"
	"time"

	"github.com/andyarntsen-alt/jobbstart-sub001/internal/clock"
)

// MemoryKV is a map-backed domain.KVStore with per-key expiry.
// Expiry is evaluated against the injected clock, so tests can jump ahead
// a year without sleeping.
//
// Not shared between processes; use RedisKV when running more than one
// instance.
type MemoryKV struct {
	mu    sync.RWMutex
	items map[string]memItem
	clock clock.Clock
}

type memItem struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func NewMemoryKV(c clock.Clock) *MemoryKV {
	if c == nil {
		c = clock.Real{}
	}
	return &MemoryKV{
		items: make(map[string]memItem),
		clock: c,
	}
}

func (s *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok || s.expired(item, s.clock.Now()) {
		return nil, nil
	}
	val := make([]byte, len(item.value))
	copy(val, item.value)
	return val, nil
}

func (s *MemoryKV) Set(_ context.Context, key string, value []byte, exp time.Duration) error {
	item := memItem{value: make([]byte, len(value))}
	copy(item.value, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	if exp > 0 {
		item.expiresAt = s.clock.Now().Add(exp)
	}
	s.items[key] = item
	return nil
}

// Cleanup drops expired items and returns how many it removed.
func (s *MemoryKV) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for k, item := range s.items {
		if s.expired(item, now) {
			delete(s.items, k)
			removed++
		}
	}
	return removed
}

// StartJanitor runs Cleanup every interval until ctx is done.
func (s *MemoryKV) StartJanitor(ctx context.Context, every time.Duration) {
	startJanitor(ctx, every, func() { s.Cleanup() })
}

func (s *MemoryKV) expired(item memItem, now time.Time) bool {
	return !item.expiresAt.IsZero() && !now.Before(item.expiresAt)
}

func startJanitor(ctx context.Context, every time.Duration, cleanup func()) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				cleanup()
			}
		}
	}()
}
