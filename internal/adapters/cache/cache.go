// Package cache memoizes upstream responses for a fixed time-to-live.
//
// Values are opaque bytes. An unexpired entry is a hit whatever its content,
// so empty collections and empty payloads are served from the cache too.
package cache

import (
	"context"
	"net/url"
	"time"
)

// Store is a TTL response cache keyed by logical request signature.
type Store interface {
	// Get returns the value stored under key if it has not expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value under key, replacing any previous entry.
	Put(ctx context.Context, key string, value []byte) error

	// Close releases resources held by the store.
	Close() error
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// StatsReporter is implemented by stores that track their own activity.
type StatsReporter interface {
	Stats(ctx context.Context) Stats
}

// DefaultTTL applies when no TTL option is given.
const DefaultTTL = 60 * time.Second

// Key builds the cache key for method called with params. Parameters are
// sorted by name and escaped, so equal calls share a key and distinct calls
// never collide.
func Key(method string, params url.Values) string {
	if len(params) == 0 {
		return method
	}
	return method + "?" + params.Encode()
}
