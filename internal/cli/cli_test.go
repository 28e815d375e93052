package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andyarntsen-alt/jobbstart-sub001/internal/config"
	"github.com/andyarntsen-alt/jobbstart-sub001/middleware/quota/domain"
)

func boltEnv(t *testing.T) {
	t.Helper()
	t.Setenv("QUOTA_BACKEND", "bolt")
	t.Setenv("BOLT_PATH", filepath.Join(t.TempDir(), "trial.db"))
	t.Setenv("RATE_STATS_ENABLED", "false")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LOG_LEVEL", "error")
}

func runTrial(t *testing.T, args ...string) (domain.Usage, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"trial"}, args...))
	if err := cmd.Execute(); err != nil {
		return domain.Usage{}, err
	}
	var u domain.Usage
	require.NoError(t, json.Unmarshal(out.Bytes(), &u), "output: %s", out.String())
	return u, nil
}

func TestTrialCheckAndConsumeBolt(t *testing.T) {
	boltEnv(t)

	u, err := runTrial(t, "check", "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, domain.Usage{Allowed: true, Used: 0, Limit: 1}, u)

	u, err = runTrial(t, "consume", "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, domain.Usage{Allowed: false, Used: 1, Limit: 1}, u)

	// The bolt file survives between invocations.
	u, err = runTrial(t, "check", "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, domain.Usage{Allowed: false, Used: 1, Limit: 1}, u)

	u, err = runTrial(t, "check", "198.51.100.1")
	require.NoError(t, err)
	assert.True(t, u.Allowed)
}

func TestTrialWithoutStoreFailsOpen(t *testing.T) {
	t.Setenv("QUOTA_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("RATE_STATS_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "error")

	u, err := runTrial(t, "consume", "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, domain.Usage{Allowed: true, Used: 0, Limit: 1}, u)
}

func TestTrialRequiresClient(t *testing.T) {
	boltEnv(t)

	_, err := runTrial(t, "check")
	assert.Error(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	boltEnv(t)
	t.Setenv("TRIAL_LIMIT", "0")

	_, err := runTrial(t, "check", "203.0.113.7")
	assert.Error(t, err)
}

func TestTrialBoltIgnoresUnreachableRedis(t *testing.T) {
	boltEnv(t)
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")

	start := time.Now()
	u, err := runTrial(t, "check", "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, domain.Usage{Allowed: true, Used: 0, Limit: 1}, u)
	assert.Less(t, time.Since(start), 2*time.Second, "no redis ping expected")
}

func TestUsesRedis(t *testing.T) {
	cases := map[string]struct {
		cfg  config.Config
		kind string
		want bool
	}{
		"redis store":           {config.Config{RedisAddr: "r:6379"}, config.BackendRedis, true},
		"bolt store":            {config.Config{RedisAddr: "r:6379"}, config.BackendBolt, false},
		"memory with stats":     {config.Config{RedisAddr: "r:6379", StatsEnabled: true}, config.BackendMemory, true},
		"stats without addr":    {config.Config{StatsEnabled: true}, config.BackendBolt, false},
		"none without anything": {config.Config{}, config.BackendNone, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, usesRedis(tc.cfg, tc.kind))
		})
	}
}
