package infra

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/andyarntsen-alt/jobbstart-sub001/internal/clock"
)

func openTestBolt(t *testing.T, c clock.Clock) *BoltKV {
	t.Helper()
	s, err := OpenBoltKV(filepath.Join(t.TempDir(), "data", "trial.db"), c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBoltKV_SetGetExpire(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	s := openTestBolt(t, vc)

	val, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, s.Set(ctx, "k", []byte("1"), time.Minute))
	val, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "1", string(val))

	vc.Advance(time.Minute)
	val, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, val, "expected expired")
}

func TestBoltKV_CleanupRemovesExpired(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	s := openTestBolt(t, vc)

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, s.Set(ctx, "b", []byte("1"), time.Hour))
	require.NoError(t, s.Set(ctx, "c", []byte("1"), 0))
	vc.Advance(2 * time.Second)

	n, err := s.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	val, err := s.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "1", string(val), "non-expiring key lost")
}

func TestBoltKV_CleanupKeepsUndecodableRecords(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	s := openTestBolt(t, vc)

	require.NoError(t, s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Put([]byte("free_trial:application:203.0.113.7"), []byte{1, 2})
	}))

	_, err := s.Get(ctx, "free_trial:application:203.0.113.7")
	require.Error(t, err)

	vc.Advance(48 * time.Hour)
	n, err := s.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// Still an error, not a fresh (absent) counter.
	_, err = s.Get(ctx, "free_trial:application:203.0.113.7")
	assert.Error(t, err)
}

func TestBoltKV_CanceledContext(t *testing.T) {
	s := openTestBolt(t, clock.NewVirtualClock(epoch))

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err := s.Get(cctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Set(cctx, "k", []byte("1"), 0), context.Canceled)
}

func TestBoltValue_RoundTripKeepsExpiry(t *testing.T) {
	at := epoch.Add(31536000 * time.Second)
	val, exp, err := decodeBoltValue(encodeBoltValue([]byte("7"), at))
	require.NoError(t, err)
	assert.Equal(t, "7", string(val))
	assert.True(t, exp.Equal(at), "expiry %v, want %v", exp, at)

	_, _, err = decodeBoltValue([]byte{1, 2})
	assert.Error(t, err, "short value")
}
