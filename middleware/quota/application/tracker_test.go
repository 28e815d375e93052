package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andyarntsen-alt/jobbstart-sub001/internal/clock"
	"github.com/andyarntsen-alt/jobbstart-sub001/middleware/quota/domain"
	"github.com/andyarntsen-alt/jobbstart-sub001/middleware/quota/infra"
)

type setCall struct {
	key   string
	value string
	exp   time.Duration
}

// recordingKV is a map-backed store that records every Set and can be
// told to fail.
type recordingKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	sets   []setCall
	gets   int
	getErr error
	setErr error
}

func newRecordingKV() *recordingKV {
	return &recordingKV{data: make(map[string][]byte)}
}

func (s *recordingKV) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.data[key], nil
}

func (s *recordingKV) Set(_ context.Context, key string, value []byte, exp time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	s.sets = append(s.sets, setCall{key: key, value: string(value), exp: exp})
	return nil
}

var ctx = context.Background()

func TestTracker_FreshKeyIsAllowed(t *testing.T) {
	tr := New(newRecordingKV())

	u, err := tr.Check(ctx, "198.51.100.1")
	require.NoError(t, err)
	assert.Equal(t, domain.Usage{Allowed: true, Used: 0, Limit: 1}, u)
}

func TestTracker_ScenarioCountsPastLimit(t *testing.T) {
	tr := New(newRecordingKV())
	key := domain.ClientKey("203.0.113.7")

	u, err := tr.Check(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.Usage{Allowed: true, Used: 0, Limit: 1}, u)

	require.NoError(t, tr.Consume(ctx, key))
	u, err = tr.Check(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.Usage{Allowed: false, Used: 1, Limit: 1}, u)

	require.NoError(t, tr.Consume(ctx, key))
	u, err = tr.Check(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.Usage{Allowed: false, Used: 2, Limit: 1}, u)
}

func TestTracker_CheckHasNoSideEffects(t *testing.T) {
	kv := newRecordingKV()
	tr := New(kv)

	for i := 0; i < 5; i++ {
		u, err := tr.Check(ctx, "k")
		require.NoError(t, err)
		assert.True(t, u.Allowed)
		assert.Equal(t, 0, u.Used)
	}
	assert.Empty(t, kv.sets)
	assert.Empty(t, kv.data)
}

func TestTracker_ConsumeWritesPrefixedKeyWithOneYearTTL(t *testing.T) {
	kv := newRecordingKV()
	tr := New(kv)

	require.NoError(t, tr.Consume(ctx, "10.0.0.1"))
	require.NoError(t, tr.Consume(ctx, "10.0.0.1"))

	require.Len(t, kv.sets, 2)
	for i, c := range kv.sets {
		assert.Equal(t, domain.DefaultKeyPrefix+"10.0.0.1", c.key)
		assert.Equal(t, 31536000*time.Second, c.exp, "set #%d must restart the one-year window", i)
	}
	assert.Equal(t, "1", kv.sets[0].value)
	assert.Equal(t, "2", kv.sets[1].value)
}

func TestTracker_EmptyKeyIsAnOrdinaryKey(t *testing.T) {
	tr := New(newRecordingKV())

	require.NoError(t, tr.Consume(ctx, ""))
	u, err := tr.Check(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, u.Used)

	other, err := tr.Check(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, 0, other.Used)
}

func TestTracker_StoreErrorsPropagate(t *testing.T) {
	boom := errors.New("connection refused")

	kv := newRecordingKV()
	kv.getErr = boom
	tr := New(kv)

	_, err := tr.Check(ctx, "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, boom)

	err = tr.Consume(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Empty(t, kv.sets, "nothing may be written when the read failed")

	kv.getErr = nil
	kv.setErr = boom
	err = tr.Consume(ctx, "k")
	var se *domain.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "set", se.Op)
	assert.Equal(t, domain.DefaultKeyPrefix+"k", se.Key)
}

func TestTracker_ContextDeadlineIsAStoreError(t *testing.T) {
	kv := newRecordingKV()
	kv.getErr = context.DeadlineExceeded
	tr := New(kv)

	_, err := tr.Check(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTracker_CorruptCounterIsAStoreError(t *testing.T) {
	for _, raw := range []string{"abc", "-1", "1.5"} {
		kv := newRecordingKV()
		kv.data[domain.DefaultKeyPrefix+"k"] = []byte(raw)
		tr := New(kv)

		_, err := tr.Check(ctx, "k")
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable, "value %q", raw)
	}
}

func TestTracker_UnconfiguredStoreFailsOpen(t *testing.T) {
	tr := New(nil)
	_, ok := tr.(FailOpenTracker)
	require.True(t, ok, "expected FailOpenTracker, got %T", tr)

	for i := 0; i < 3; i++ {
		require.NoError(t, tr.Consume(ctx, "203.0.113.7"))
		u, err := tr.Check(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.Equal(t, domain.Usage{Allowed: true, Used: 0, Limit: 1}, u)
	}
}

func TestTracker_Options(t *testing.T) {
	kv := newRecordingKV()
	tr := NewStoreTracker(kv, WithLimit(3), WithTTL(time.Hour), WithKeyPrefix("test:"))

	require.NoError(t, tr.Consume(ctx, "k"))
	u, err := tr.Check(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, domain.Usage{Allowed: true, Used: 1, Limit: 3}, u)
	assert.Equal(t, "test:k", kv.sets[0].key)
	assert.Equal(t, time.Hour, kv.sets[0].exp)

	ignored := NewStoreTracker(kv, WithLimit(0), WithTTL(-time.Second), WithKeyPrefix(""))
	assert.Equal(t, domain.DefaultLimit, ignored.Limit())
	assert.Equal(t, domain.DefaultTTL, ignored.TTL())
	assert.Equal(t, domain.DefaultKeyPrefix+"k", ignored.RecordKey("k"))

	failOpen := New(nil, WithLimit(2))
	u, err = failOpen.Check(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, u.Limit)
}

func TestTracker_RecordExpiresOneYearAfterLastConsume(t *testing.T) {
	vc := clock.NewVirtualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	tr := New(infra.NewMemoryKV(vc))

	require.NoError(t, tr.Consume(ctx, "k"))

	vc.Advance(200 * 24 * time.Hour)
	require.NoError(t, tr.Consume(ctx, "k"))

	// 300 days after the first consume, only 100 after the second.
	vc.Advance(100 * 24 * time.Hour)
	u, err := tr.Check(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, u.Used)

	vc.Advance(domain.DefaultTTL - 100*24*time.Hour - time.Second)
	u, err = tr.Check(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, u.Used, "still inside the window")

	vc.Advance(time.Second)
	u, err = tr.Check(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, domain.Usage{Allowed: true, Used: 0, Limit: 1}, u)
}

func TestTracker_ConcurrentConsumeMayLoseAnIncrement(t *testing.T) {
	vc := clock.NewVirtualClock(time.Now())
	tr := New(infra.NewMemoryKV(vc))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tr.Consume(ctx, "fresh"))
		}()
	}
	wg.Wait()

	u, err := tr.Check(ctx, "fresh")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, u.Used, 1)
	assert.LessOrEqual(t, u.Used, 2)
	assert.False(t, u.Allowed)
}
