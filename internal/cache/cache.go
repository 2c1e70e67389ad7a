package cache

import (
	"sync"
	"time"
)

// Memory is an in-process TTL cache. Expired entries are never served;
// a janitor goroutine sweeps them out periodically.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	defaultTTL time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

type memoryEntry struct {
	value     interface{}
	expiresAt time.Time
}

// NewMemory creates a memory cache with the given default TTL and
// starts its cleanup loop.
func NewMemory(defaultTTL time.Duration) *Memory {
	m := &Memory{
		entries:    make(map[string]memoryEntry),
		defaultTTL: defaultTTL,
		stop:       make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Get returns the cached value for key if present and not expired.
func (m *Memory) Get(key string) (interface{}, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Set stores a value under key with the default TTL.
func (m *Memory) Set(key string, value interface{}) {
	m.SetWithTTL(key, value, m.defaultTTL)
}

// SetWithTTL stores a value under key with an explicit TTL.
func (m *Memory) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	m.mu.Lock()
	m.entries[key] = memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	m.mu.Unlock()
}

// Delete removes a single key.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// DeleteByPrefix removes every key starting with prefix and returns the
// number of entries removed.
func (m *Memory) DeleteByPrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key := range m.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, including not-yet-swept expired ones.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Stop terminates the cleanup loop. The cache stays usable afterwards.
func (m *Memory) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) sweep() {
	now := time.Now()
	m.mu.Lock()
	for key, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()
}
