package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andyarntsen-alt/jobbstart-sub001/middleware/quota/domain"
)

// Tracker decides whether a client may use the free gated action and
// records consumption.
type Tracker interface {
	// Check reports the client's usage. It never mutates state.
	Check(ctx context.Context, key domain.ClientKey) (domain.Usage, error)
	// Consume records one use of the gated action.
	Consume(ctx context.Context, key domain.ClientKey) error
}

type Option func(*StoreTracker)

// WithLimit overrides domain.DefaultLimit. Values below 1 are ignored.
func WithLimit(n int) Option {
	return func(t *StoreTracker) {
		if n >= 1 {
			t.limit = n
		}
	}
}

// WithTTL overrides domain.DefaultTTL. Values <= 0 are ignored.
func WithTTL(d time.Duration) Option {
	return func(t *StoreTracker) {
		if d > 0 {
			t.ttl = d
		}
	}
}

func WithKeyPrefix(prefix string) Option {
	return func(t *StoreTracker) {
		if prefix != "" {
			t.prefix = prefix
		}
	}
}

// New returns a StoreTracker over store, or a FailOpenTracker when no store
// is configured (store == nil). This is the only place the two variants are
// told apart.
func New(store domain.KVStore, opts ...Option) Tracker {
	t := NewStoreTracker(store, opts...)
	if store == nil {
		return FailOpenTracker{Limit: t.limit}
	}
	return t
}

// StoreTracker keeps one counter per client in a domain.KVStore.
//
// Consume is a read followed by a write, not an atomic increment: two
// concurrent consumes for the same key may both read the same value and
// one increment is lost. With a limit of 1 this lets a client get at most
// one extra free use by double-submitting.
type StoreTracker struct {
	store  domain.KVStore
	limit  int
	ttl    time.Duration
	prefix string
}

func NewStoreTracker(store domain.KVStore, opts ...Option) *StoreTracker {
	t := &StoreTracker{
		store:  store,
		limit:  domain.DefaultLimit,
		ttl:    domain.DefaultTTL,
		prefix: domain.DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *StoreTracker) Limit() int         { return t.limit }
func (t *StoreTracker) TTL() time.Duration { return t.ttl }

// RecordKey returns the store key holding the counter for key.
func (t *StoreTracker) RecordKey(key domain.ClientKey) string {
	return t.prefix + string(key)
}

func (t *StoreTracker) Check(ctx context.Context, key domain.ClientKey) (domain.Usage, error) {
	used, err := t.read(ctx, t.RecordKey(key))
	if err != nil {
		return domain.Usage{}, err
	}
	return domain.Usage{Allowed: used < t.limit, Used: used, Limit: t.limit}, nil
}

// Consume writes counter+1 and restarts the expiry window on every call.
func (t *StoreTracker) Consume(ctx context.Context, key domain.ClientKey) error {
	recordKey := t.RecordKey(key)

	used, err := t.read(ctx, recordKey)
	if err != nil {
		return err
	}

	value := []byte(strconv.Itoa(used + 1))
	if err := t.store.Set(ctx, recordKey, value, t.ttl); err != nil {
		return &domain.StoreError{Op: "set", Key: recordKey, Err: err}
	}
	return nil
}

func (t *StoreTracker) read(ctx context.Context, recordKey string) (int, error) {
	raw, err := t.store.Get(ctx, recordKey)
	if err != nil {
		return 0, &domain.StoreError{Op: "get", Key: recordKey, Err: err}
	}
	if raw == nil {
		return 0, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || n < 0 {
		return 0, &domain.StoreError{Op: "decode", Key: recordKey, Err: fmt.Errorf("invalid counter %q", raw)}
	}
	return n, nil
}

// FailOpenTracker is used when no store is configured (local development).
// Every check is allowed and every consume is a no-op.
type FailOpenTracker struct {
	Limit int
}

func (t FailOpenTracker) Check(context.Context, domain.ClientKey) (domain.Usage, error) {
	limit := t.Limit
	if limit < 1 {
		limit = domain.DefaultLimit
	}
	return domain.Usage{Allowed: true, Used: 0, Limit: limit}, nil
}

func (FailOpenTracker) Consume(context.Context, domain.ClientKey) error { return nil }
