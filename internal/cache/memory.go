package cache

import (
	"context"
	"sync"
	"time"

	"acu-chatbot/internal/common/metrics"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is the in-process fallback. Safe for concurrent use; expiry is
// computed from the clock at write time and enforced lazily on read.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// NewMemoryWithClock injects a clock for TTL-boundary tests.
func NewMemoryWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		metrics.CacheOperations.WithLabelValues("memory", "get", "miss").Inc()
		return "", false
	}
	metrics.CacheOperations.WithLabelValues("memory", "get", "hit").Inc()
	return entry.value, true
}

func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{
		value:     value,
		expiresAt: s.now().Add(ttl),
	}
	metrics.CacheOperations.WithLabelValues("memory", "set", "ok").Inc()
}

func (s *MemoryStore) Delete(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *MemoryStore) GetDel(ctx context.Context, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	delete(s.entries, key)
	if !ok || s.now().After(entry.expiresAt) {
		return "", false
	}
	return entry.value, true
}

// Len reports live entry count, counting entries whose TTL has elapsed but
// that have not been touched since.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
