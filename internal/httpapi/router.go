// Package httpapi assembles the HTTP surface: routing, per-route rate
// limits, the free-trial guard and operational endpoints.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/andyarntsen-alt/jobbstart-sub001/internal/config"
	"github.com/andyarntsen-alt/jobbstart-sub001/internal/generate"
	"github.com/andyarntsen-alt/jobbstart-sub001/internal/metrics"
	"github.com/andyarntsen-alt/jobbstart-sub001/middleware/quota"
	quotaapp "github.com/andyarntsen-alt/jobbstart-sub001/middleware/quota/application"
	"github.com/andyarntsen-alt/jobbstart-sub001/middleware/ratelimit"
	rldomain "github.com/andyarntsen-alt/jobbstart-sub001/middleware/ratelimit/domain"
	rlinfra "github.com/andyarntsen-alt/jobbstart-sub001/middleware/ratelimit/infra"
)

// Route names, used as rate-limit bucket families.
const (
	RouteGenerate    = "generate-application"
	RouteTrialStatus = "free-trial-status"
)

type Deps struct {
	Config    config.Config
	Logger    logrus.FieldLogger
	Tracker   quotaapp.Tracker
	Limiter   rldomain.LimiterStore
	Stats     rldomain.StatsStore
	// RateStats, when set, is served on GET /stats/ratelimit.
	RateStats *rlinfra.MemoryStatsStore
	Generator generate.Generator
	Metrics   *metrics.Metrics
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	cfg := d.Config

	rateLimit := func(route string) func(http.Handler) http.Handler {
		if !cfg.RateEnabled {
			return func(next http.Handler) http.Handler { return next }
		}
		return ratelimit.Middleware(ratelimit.Options{
			Route:               route,
			Store:               d.Limiter,
			Stats:               d.Stats,
			Logger:              d.Logger,
			KeyHeader:           cfg.KeyHeader,
			TrustXForwardedFor:  cfg.TrustXFF,
			RejectStatus:        http.StatusTooManyRequests,
			RetryAfter:          cfg.RetryAfter,
			AddRateLimitHeaders: cfg.AddHeaders,
		})
	}

	// The free trial is per source IP, whatever key header the limiter uses.
	clientIP := quota.KeyFunc(ratelimit.DefaultKeyFunc("", cfg.TrustXFF))

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.Recoverer)
	r.Use(AccessLog(d.Logger, d.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	if d.RateStats != nil {
		r.Get("/stats/ratelimit", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(d.RateStats.Snapshot())
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.With(rateLimit(RouteTrialStatus)).
			Method(http.MethodGet, "/free-trial", quota.StatusHandler(d.Tracker, clientIP, d.Logger))

		r.With(
			rateLimit(RouteGenerate),
			ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
				Max:            cfg.ConcurrencyMax,
				RejectStatus:   http.StatusServiceUnavailable,
				AcquireTimeout: cfg.ConcurrencyTimeout,
				Logger:         d.Logger,
			}),
			quota.Guard(quota.Options{
				Tracker:  d.Tracker,
				KeyFn:    clientIP,
				Logger:   d.Logger,
				Observer: d.Metrics,
			}),
		).Method(http.MethodPost, "/generate-application", generate.Handler(d.Generator, d.Logger, d.Metrics))
	})

	return r
}
