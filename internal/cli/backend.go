package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/andyarntsen-alt/jobbstart-sub001/internal/clock"
	"github.com/andyarntsen-alt/jobbstart-sub001/internal/config"
	"github.com/andyarntsen-alt/jobbstart-sub001/middleware/quota/application"
	"github.com/andyarntsen-alt/jobbstart-sub001/middleware/quota/domain"
	"github.com/andyarntsen-alt/jobbstart-sub001/middleware/quota/infra"
)

// backend bundles the quota tracker with whatever it holds open.
type backend struct {
	kind    string
	tracker application.Tracker
	redis   *redis.Client
	closers []func() error
}

func (b *backend) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openBackend builds the tracker for cfg. Without a configured store the
// tracker fails open, which is meant for local development only.
func openBackend(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*backend, error) {
	b := &backend{kind: cfg.QuotaBackend()}

	if usesRedis(cfg, b.kind) {
		rdb, err := infra.NewRedisClient(ctx, infra.RedisConfig{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			PingRetries: 3,
		})
		if err != nil {
			return nil, err
		}
		b.redis = rdb
		b.closers = append(b.closers, rdb.Close)
	}

	var store domain.KVStore
	switch b.kind {
	case config.BackendRedis:
		store = infra.NewRedisKV(b.redis, infra.WithRedisTimeout(cfg.RedisTimeout))
	case config.BackendBolt:
		kv, err := infra.OpenBoltKV(cfg.BoltPath, clock.Real{})
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		kv.StartJanitor(ctx, time.Hour)
		b.closers = append(b.closers, kv.Close)
		store = kv
	case config.BackendMemory:
		kv := infra.NewMemoryKV(clock.Real{})
		kv.StartJanitor(ctx, time.Hour)
		store = kv
	case config.BackendNone:
		logger.Warn("no quota store configured, free trial is not enforced")
	default:
		_ = b.Close()
		return nil, fmt.Errorf("unknown quota backend %q", b.kind)
	}

	b.tracker = application.New(store,
		application.WithLimit(cfg.TrialLimit),
		application.WithTTL(cfg.TrialTTL),
		application.WithKeyPrefix(cfg.TrialPrefix),
	)
	return b, nil
}

// usesRedis reports whether the quota store or the rate-limit stats need a
// Redis connection. Other backends start without one.
func usesRedis(cfg config.Config, kind string) bool {
	if cfg.RedisAddr == "" {
		return false
	}
	return kind == config.BackendRedis || cfg.StatsEnabled
}
