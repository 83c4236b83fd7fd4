package testutil

import (
	"sync"
	"time"
)

// FakeCache is a deterministic cache.Cache for tests: writes are visible
// immediately and TTLs are honored against the wall clock.
type FakeCache struct {
	mu      sync.Mutex
	entries map[string]fakeEntry
}

type fakeEntry struct {
	value     interface{}
	expiresAt time.Time
}

// NewFakeCache creates an empty fake cache.
func NewFakeCache() *FakeCache {
	return &FakeCache{entries: make(map[string]fakeEntry)}
}

func (f *FakeCache) Get(key string) (interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

func (f *FakeCache) Set(key string, value interface{}, ttl time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries[key] = fakeEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return true
}

func (f *FakeCache) Delete(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
}

func (f *FakeCache) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = make(map[string]fakeEntry)
}

func (f *FakeCache) Close() {}
