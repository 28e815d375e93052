// Package config loads the service configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Quota backends.
const (
	BackendRedis  = "redis"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
	BackendNone   = "none"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR,default=:8080"`
	LogLevel   string `env:"LOG_LEVEL,default=info"`
	LogFormat  string `env:"LOG_FORMAT,default=text"`

	RateEnabled bool          `env:"RATE_ENABLED,default=true"`
	RateRPS     float64       `env:"RATE_RPS,default=1"`
	RateBurst   int           `env:"RATE_BURST"`
	KeyHeader   string        `env:"RATE_KEY_HEADER"`
	TrustXFF    bool          `env:"TRUST_XFF,default=false"`
	RetryAfter  time.Duration `env:"RETRY_AFTER,default=1s"`
	AddHeaders  bool          `env:"ADD_RATELIMIT_HEADERS,default=false"`

	ConcurrencyMax     int           `env:"CONCURRENCY_MAX,default=20"`
	ConcurrencyTimeout time.Duration `env:"CONCURRENCY_TIMEOUT,default=0s"`

	// StatsEnabled records per-route rate-limit counters: in Redis when
	// REDIS_ADDR is set, otherwise in memory behind GET /stats/ratelimit.
	StatsEnabled   bool          `env:"RATE_STATS_ENABLED,default=false"`
	StatsPrefix    string        `env:"RATE_STATS_PREFIX,default=jobbstart:ratelimit:stats"`
	StatsTTL       time.Duration `env:"RATE_STATS_TTL,default=24h"`
	StatsBucket    string        `env:"RATE_STATS_BUCKET,default=minute"`
	StatsTrackKeys bool          `env:"RATE_STATS_TRACK_KEYS,default=false"`

	Backend       string        `env:"QUOTA_BACKEND,default=redis"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB,default=0"`
	RedisTimeout  time.Duration `env:"REDIS_TIMEOUT,default=2s"`
	BoltPath      string        `env:"BOLT_PATH,default=data/free_trial.db"`

	TrialPrefix string        `env:"TRIAL_PREFIX,default=free_trial:application:"`
	TrialLimit  int           `env:"TRIAL_LIMIT,default=1"`
	TrialTTL    time.Duration `env:"TRIAL_TTL,default=8760h"`

	LLMBaseURL string        `env:"LLM_BASE_URL"`
	LLMAPIKey  string        `env:"LLM_API_KEY"`
	LLMModel   string        `env:"LLM_MODEL,default=gpt-4o-mini"`
	LLMTimeout time.Duration `env:"LLM_TIMEOUT,default=60s"`
}

// Load reads envFile (if given) or ./.env (if present), then decodes and
// validates the environment. Variables already set win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}
	return FromEnv()
}

// FromEnv decodes and validates the process environment.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode env: %w", err)
	}

	// Burst allows an initial spike. With a very low RPS (e.g. 0.02) the
	// default of 20 makes the limiter look broken, so it drops to 1.
	if _, set := os.LookupEnv("RATE_BURST"); !set || strings.TrimSpace(os.Getenv("RATE_BURST")) == "" {
		cfg.RateBurst = 20
		if cfg.RateRPS > 0 && cfg.RateRPS < 1 {
			cfg.RateBurst = 1
		}
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.RateRPS <= 0 {
		return errors.New("RATE_RPS must be > 0")
	}
	if c.RateBurst <= 0 {
		return errors.New("RATE_BURST must be > 0")
	}
	if c.ConcurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if c.TrialLimit < 1 {
		return errors.New("TRIAL_LIMIT must be >= 1")
	}
	if c.TrialTTL <= 0 {
		return errors.New("TRIAL_TTL must be > 0")
	}
	switch c.Backend {
	case BackendRedis, BackendBolt, BackendMemory, BackendNone:
	default:
		return fmt.Errorf("QUOTA_BACKEND %q: want redis, bolt, memory or none", c.Backend)
	}
	if c.Backend == BackendBolt && strings.TrimSpace(c.BoltPath) == "" {
		return errors.New("BOLT_PATH is required when QUOTA_BACKEND=bolt")
	}
	return nil
}

// QuotaBackend resolves the backend actually used. A redis backend with no
// address counts as "not configured" and yields BackendNone (fail open).
func (c Config) QuotaBackend() string {
	if c.Backend == BackendRedis && strings.TrimSpace(c.RedisAddr) == "" {
		return BackendNone
	}
	return c.Backend
}

// LLMConfigured reports whether the generator has somewhere to send prompts.
func (c Config) LLMConfigured() bool {
	return strings.TrimSpace(c.LLMBaseURL) != ""
}
