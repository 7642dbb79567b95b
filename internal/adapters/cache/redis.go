package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces Redis keys.
const DefaultKeyPrefix = "cfpulse:cache:"

// Redis is a Store backed by a Redis server. Expiry is enforced by Redis
// through SET ... EX.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithKeyPrefix sets the key namespace.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithRedisTTL sets the entry time-to-live.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewRedis wraps client as a Store.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: DefaultKeyPrefix,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr, password string, db int, opts ...RedisOption) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedis(client, opts...), nil
}

// Get returns the value stored under key. redis.Nil is a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	r.hits.Add(1)
	return b, true, nil
}

// Put stores value under key with the configured TTL.
func (r *Redis) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Stats counts keys under the prefix with SCAN; a failed scan reports zero
// entries.
func (r *Redis) Stats(ctx context.Context) Stats {
	s := Stats{Hits: r.hits.Load(), Misses: r.misses.Load()}
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 1000).Iterator()
	for iter.Next(ctx) {
		s.Entries++
	}
	if iter.Err() != nil {
		s.Entries = 0
	}
	return s
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
