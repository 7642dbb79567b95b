package service

import (
	"time"

	"github.com/okian/cfpulse/internal/adapters/cache"
	"github.com/okian/cfpulse/internal/config"
	"github.com/okian/cfpulse/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig copies every setting from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		s.baseURL = cfg.UpstreamBaseURL
		s.upstreamTimeout = cfg.UpstreamTimeout()
		s.cacheTTL = cfg.CacheTTL()
		s.cacheBackend = cfg.CacheBackend
		s.cacheMaxEntries = cfg.CacheMaxEntries
		s.redisAddr = cfg.RedisAddr
		s.redisPassword = cfg.RedisPassword
		s.redisDB = cfg.RedisDB
		s.redisKeyPrefix = cfg.RedisKeyPrefix
		if cfg.SubmissionsCount > 0 {
			s.submissionsCount = cfg.SubmissionsCount
		}
		if cfg.MaxBatchHandles > 0 {
			s.maxBatchHandles = cfg.MaxBatchHandles
		}
		if cfg.BatchConcurrency > 0 {
			s.batchConcurrency = cfg.BatchConcurrency
		}
	}
}

// WithBaseURL sets the upstream API root.
func WithBaseURL(base string) Option {
	return func(s *Service) {
		if base != "" {
			s.baseURL = base
		}
	}
}

// WithUpstreamTimeout bounds a single upstream call.
func WithUpstreamTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.upstreamTimeout = d
		}
	}
}

// WithCacheTTL sets the response cache TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithCacheMaxEntries bounds the in-memory cache; 0 is unbounded.
func WithCacheMaxEntries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.cacheMaxEntries = n
		}
	}
}

// WithStore uses store instead of building one from the cache settings.
// The service closes it on Stop.
func WithStore(store cache.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithSubmissionsCount sets the count parameter of submission fetches.
func WithSubmissionsCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.submissionsCount = n
		}
	}
}

// WithMaxBatchHandles caps the number of handles in one comparison.
func WithMaxBatchHandles(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchHandles = n
		}
	}
}

// WithBatchConcurrency bounds parallel fetches in one comparison.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// WithClock replaces time.Now for streak computation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
