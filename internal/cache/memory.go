package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value  string
	expiry time.Time // zero means no expiry
}

// MemoryCache is the in-process backend. Expired entries are evicted lazily on
// read; no background sweep runs, correctness is the only guarantee made.
type MemoryCache struct {
	mu    sync.Mutex
	store map[string]memoryEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{store: make(map[string]memoryEntry)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.store[key]
	if !ok {
		return "", ErrCacheMiss
	}
	if !e.expiry.IsZero() && time.Now().After(e.expiry) {
		delete(m.store, key)
		return "", ErrCacheMiss
	}
	return e.value, nil
}

func (m *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	var expiry time.Time
	if ttl > 0 {
		expiry = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.store[key] = memoryEntry{value: value, expiry: expiry}
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for _, key := range keys {
		if _, ok := m.store[key]; ok {
			delete(m.store, key)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryCache) Close() error {
	m.mu.Lock()
	m.store = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}
