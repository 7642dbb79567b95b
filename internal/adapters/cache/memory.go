package cache

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type entry struct {
	value    []byte
	storedAt time.Time
}

// Memory is an in-process Store. Expiry is checked lazily on Get; expired
// entries stay in the map until overwritten or evicted.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	closed     bool

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemory creates an in-memory store.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the unexpired value stored under key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	closed := m.closed
	m.mu.RUnlock()

	if closed {
		return nil, false, ErrClosed
	}
	if !ok || m.now().Sub(e.storedAt) >= m.ttl {
		m.misses.Add(1)
		return nil, false, nil
	}
	m.hits.Add(1)
	return bytes.Clone(e.value), true, nil
}

// Put stores value under key with the current time.
func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	// Entries are immutable once written.
	v := make([]byte, len(value))
	copy(v, value)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	now := m.now()
	if _, exists := m.entries[key]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.evictLocked(now)
	}
	m.entries[key] = entry{value: v, storedAt: now}
	return nil
}

// evictLocked drops one entry, preferring an expired one, otherwise the
// oldest. Must be called with m.mu held.
func (m *Memory) evictLocked(now time.Time) {
	var (
		victim string
		oldest time.Time
		found  bool
	)
	for k, e := range m.entries {
		if now.Sub(e.storedAt) >= m.ttl {
			delete(m.entries, k)
			return
		}
		if !found || e.storedAt.Before(oldest) {
			victim, oldest, found = k, e.storedAt, true
		}
	}
	if found {
		delete(m.entries, victim)
	}
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Stats returns hit and miss counters and the entry count.
func (m *Memory) Stats(_ context.Context) Stats {
	return Stats{
		Entries: m.Len(),
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
	}
}

// Close drops all entries; later calls fail with ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = make(map[string]entry)
	return nil
}
