package cache

import (
	"context"
	"sync"
	"time"
)

// Store is the pluggable cache backend shared by the remote-backed
// resolvers (geocoding, Wi-Fi/cell positioning). Implementations must be
// safe for concurrent use and must degrade internally: a failing backend
// reads as a miss and drops writes, so a record resolution never fails
// because of the cache.
type Store interface {
	// Get returns the cached value for key and whether it was present
	// and still fresh.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value under key for the given TTL. A zero or negative
	// TTL means the entry is not stored.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// entry is a single cached value with its expiry deadline.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Store with per-entry TTLs.
// Expired entries are dropped lazily on read and swept opportunistically
// on write, so the map does not grow without bound under churn.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry

	// now is replaceable in tests.
	now func() time.Time
}

// NewMemory creates an empty in-memory cache store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the value for key if present and not expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if m.now().After(e.expiresAt) {
		// Lazy expiry. Re-check under the write lock since another
		// goroutine may have refreshed the entry in between.
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && m.now().After(cur.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Opportunistic sweep: every write checks a handful of entries so
	// long-expired keys do not linger forever without reads.
	swept := 0
	for k, e := range m.entries {
		if swept >= 8 {
			break
		}
		if m.now().After(e.expiresAt) {
			delete(m.entries, k)
		}
		swept++
	}

	m.entries[key] = entry{value: value, expiresAt: m.now().Add(ttl)}
}

// Len returns the number of entries currently held, expired or not.
// Primarily for tests and the health endpoint.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Flush drops all entries.
func (m *Memory) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
}
