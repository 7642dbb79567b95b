// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional .env file, an optional YAML file and env vars.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// UpstreamBaseURL is the Codeforces API root; method names are appended to it.
	UpstreamBaseURL string `koanf:"upstream_base_url"`

	// UpstreamTimeoutMS bounds a single upstream call.
	UpstreamTimeoutMS int `koanf:"upstream_timeout_ms"`

	// CacheTTLSeconds is applied uniformly to every cached response.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// CacheBackend selects the response cache store: memory or redis.
	CacheBackend string `koanf:"cache_backend"`

	// CacheMaxEntries bounds the in-memory store; 0 keeps it unbounded.
	CacheMaxEntries int `koanf:"cache_max_entries"`

	// Redis connection used when CacheBackend is redis.
	RedisAddr      string `koanf:"redis_addr"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db"`
	RedisKeyPrefix string `koanf:"redis_key_prefix"`

	// SubmissionsCount is the count parameter of user.status fetches.
	SubmissionsCount int `koanf:"submissions_count"`

	// MaxBatchHandles caps GET /api/streaks?handles=.
	MaxBatchHandles int `koanf:"max_batch_handles"`

	// BatchConcurrency bounds parallel streak computations in a batch.
	BatchConcurrency int `koanf:"batch_concurrency"`

	// Metric names are <namespace>_<subsystem>_<name>.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// LatencyBucketsMS are the upstream and HTTP latency histogram buckets.
	LatencyBucketsMS []float64 `koanf:"metrics_latency_buckets_ms"`
}

var metricNamePart = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		UpstreamBaseURL:   "https://codeforces.com/api/",
		UpstreamTimeoutMS: 10_000,
		CacheTTLSeconds:   60,
		CacheBackend:      CacheBackendMemory,
		CacheMaxEntries:   0,
		RedisAddr:         "localhost:6379",
		RedisKeyPrefix:    "cfpulse:cache:",
		SubmissionsCount:  10_000,
		MaxBatchHandles:   20,
		BatchConcurrency:  4,
		MetricsNamespace:  "cfpulse",
		MetricsSubsystem:  "core",
		LatencyBucketsMS:  []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}
}

// UpstreamTimeout returns UpstreamTimeoutMS as a duration.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutMS) * time.Millisecond
}

// CacheTTL returns CacheTTLSeconds as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.UpstreamTimeoutMS <= 0:
		return fmt.Errorf("%w: upstream_timeout_ms must be positive", ErrInvalidConfig)
	case c.CacheTTLSeconds <= 0:
		return fmt.Errorf("%w: cache_ttl_seconds must be positive", ErrInvalidConfig)
	case c.CacheMaxEntries < 0:
		return fmt.Errorf("%w: cache_max_entries must not be negative", ErrInvalidConfig)
	case c.SubmissionsCount <= 0:
		return fmt.Errorf("%w: submissions_count must be positive", ErrInvalidConfig)
	case c.MaxBatchHandles <= 0:
		return fmt.Errorf("%w: max_batch_handles must be positive", ErrInvalidConfig)
	case c.BatchConcurrency <= 0:
		return fmt.Errorf("%w: batch_concurrency must be positive", ErrInvalidConfig)
	case !metricNamePart.MatchString(c.MetricsNamespace):
		return fmt.Errorf("%w: metrics_namespace %q is not a valid metric name", ErrInvalidConfig, c.MetricsNamespace)
	case !metricNamePart.MatchString(c.MetricsSubsystem):
		return fmt.Errorf("%w: metrics_subsystem %q is not a valid metric name", ErrInvalidConfig, c.MetricsSubsystem)
	case !increasing(c.LatencyBucketsMS):
		return fmt.Errorf("%w: metrics_latency_buckets_ms must be strictly increasing", ErrInvalidConfig)
	}

	u, err := url.Parse(c.UpstreamBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: upstream_base_url %q is not an absolute URL", ErrInvalidConfig, c.UpstreamBaseURL)
	}

	switch c.CacheBackend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis cache backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %w %q", ErrInvalidConfig, ErrUnknownBackend, c.CacheBackend)
	}
	return nil
}

func increasing(xs []float64) bool {
	if len(xs) == 0 {
		return false
	}
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return false
		}
	}
	return true
}
