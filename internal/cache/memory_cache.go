package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache: ResultCache в памяти процесса, используется без Redis
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memEntry
	config  *CacheConfig
	closed  bool
	stats   stats

	now func() time.Time
}

// NewMemoryCache создаёт пустой кеш
func NewMemoryCache(config *CacheConfig) *MemoryCache {
	if config == nil {
		config = &CacheConfig{}
	}
	config.applyDefaults()
	return &MemoryCache{
		entries: make(map[string]memEntry),
		config:  config,
		now:     time.Now,
	}
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	defer m.stats.recordLatency(start)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrCacheClose
	}

	e, ok := m.entries[key]
	if ok && !m.now().Before(e.expires) {
		delete(m.entries, key)
		ok = false
	}
	if !ok {
		m.stats.miss()
		return nil, ErrCacheMiss
	}
	m.stats.hit()
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	defer m.stats.recordLatency(start)

	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrCacheClose
	}
	m.entries[key] = memEntry{value: stored, expires: m.now().Add(m.config.ttlFor(ttl))}
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrCacheClose
	}
	delete(m.entries, key)
	return nil
}

func (m *MemoryCache) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrCacheClose
	}
	removed := 0
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryCache) Close() error {
	m.mu.Lock()
	m.closed = true
	m.entries = nil
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) GetMetrics() *CacheMetrics {
	return m.stats.snapshot()
}
