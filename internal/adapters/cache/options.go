package cache

import (
	"time"
)

// Option configures a Memory store.
type Option func(*Memory)

// WithTTL sets how long an entry is served after it was stored.
func WithTTL(ttl time.Duration) Option {
	return func(m *Memory) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithMaxEntries bounds the number of stored entries.
// n <= 0 keeps the store unbounded.
func WithMaxEntries(n int) Option {
	return func(m *Memory) {
		m.maxEntries = n
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}
