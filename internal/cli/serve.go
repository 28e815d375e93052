package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/andyarntsen-alt/jobbstart-sub001/internal/config"
	"github.com/andyarntsen-alt/jobbstart-sub001/internal/generate"
	"github.com/andyarntsen-alt/jobbstart-sub001/internal/httpapi"
	"github.com/andyarntsen-alt/jobbstart-sub001/internal/logging"
	"github.com/andyarntsen-alt/jobbstart-sub001/internal/metrics"
	rldomain "github.com/andyarntsen-alt/jobbstart-sub001/middleware/ratelimit/domain"
	rlinfra "github.com/andyarntsen-alt/jobbstart-sub001/middleware/ratelimit/infra"
)

func newServeCmd(envFile *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Starts the HTTP API.

Endpoints:
  POST /api/generate-application  Generate an application (one free per IP)
  GET  /api/free-trial            Caller's free-trial usage
  GET  /healthz                   Health check
  GET  /metrics                   Prometheus metrics`,
		Example: `  REDIS_ADDR=localhost:6379 LLM_BASE_URL=http://localhost:4000/v1 jobbstart serve
  QUOTA_BACKEND=bolt BOLT_PATH=/var/lib/jobbstart/trial.db jobbstart serve --addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}

			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			be, err := openBackend(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = be.Close() }()

			m := metrics.New()

			limiter := rlinfra.NewStore(cfg.RateRPS, cfg.RateBurst)
			limiter.StartJanitor(ctx)

			promStats, err := rlinfra.NewPrometheusStatsStore(m.Registry)
			if err != nil {
				return err
			}
			stats := rlinfra.MultiStats{promStats}
			var memStats *rlinfra.MemoryStatsStore
			switch {
			case cfg.StatsEnabled && be.redis != nil:
				stats = append(stats, rlinfra.NewRedisStatsStore(
					be.redis,
					rlinfra.WithStatsPrefix(cfg.StatsPrefix),
					rlinfra.WithStatsTTL(cfg.StatsTTL),
					rlinfra.WithStatsBucket(cfg.StatsBucket),
					rlinfra.WithStatsTrackKeys(cfg.StatsTrackKeys),
				))
			case cfg.StatsEnabled:
				memStats = rlinfra.NewMemoryStatsStore(rlinfra.WithTrackKeys(cfg.StatsTrackKeys))
				stats = append(stats, memStats)
				logger.Info("no REDIS_ADDR, rate-limit stats kept in memory at /stats/ratelimit")
			}

			var gen generate.Generator
			if cfg.LLMConfigured() {
				gen = generate.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
			} else {
				logger.Warn("LLM_BASE_URL not set, generation answers 503")
			}

			h := httpapi.NewRouter(httpapi.Deps{
				Config:    cfg,
				Logger:    logger,
				Tracker:   be.tracker,
				Limiter:   limiter,
				Stats:     rldomain.StatsStore(stats),
				RateStats: memStats,
				Generator: gen,
				Metrics:   m,
			})

			logger.WithFields(logrus.Fields{
				"quota_backend": be.kind,
				"trial_limit":   cfg.TrialLimit,
				"trial_ttl":     cfg.TrialTTL.String(),
				"rate_enabled":  cfg.RateEnabled,
				"rate_rps":      cfg.RateRPS,
				"rate_burst":    cfg.RateBurst,
				"trust_xff":     cfg.TrustXFF,
				"concurrency":   cfg.ConcurrencyMax,
				"stats":         cfg.StatsEnabled,
				"stats_redis":   cfg.StatsEnabled && be.redis != nil,
			}).Info("configuration")

			return httpapi.Run(ctx, httpapi.NewServer(cfg.ListenAddr, h), logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (overrides LISTEN_ADDR)")
	return cmd
}
