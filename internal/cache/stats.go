package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// stats собирает метрики, общие для всех реализаций кеша
type stats struct {
	requests int64
	hits     int64
	misses   int64

	// Статистика latency, в наносекундах
	latencySum   int64
	latencyCount int64
	maxLatency   int64

	mu      sync.RWMutex
	metrics CacheMetrics
}

func (s *stats) hit() {
	atomic.AddInt64(&s.requests, 1)
	atomic.AddInt64(&s.hits, 1)
}

func (s *stats) miss() {
	atomic.AddInt64(&s.requests, 1)
	atomic.AddInt64(&s.misses, 1)
}

// recordLatency записывает latency метрику.
func (s *stats) recordLatency(start time.Time) {
	latency := time.Since(start).Nanoseconds()

	atomic.AddInt64(&s.latencySum, latency)
	atomic.AddInt64(&s.latencyCount, 1)

	for {
		current := atomic.LoadInt64(&s.maxLatency)
		if latency <= current || atomic.CompareAndSwapInt64(&s.maxLatency, current, latency) {
			break
		}
	}
}

// snapshot возвращает копию метрик с пересчитанными производными полями
func (s *stats) snapshot() *CacheMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := &s.metrics
	m.TotalRequests = atomic.LoadInt64(&s.requests)
	m.CacheHits = atomic.LoadInt64(&s.hits)
	m.CacheMisses = atomic.LoadInt64(&s.misses)
	if total := m.CacheHits + m.CacheMisses; total > 0 {
		m.HitRatio = float64(m.CacheHits) / float64(total)
	}
	if count := atomic.LoadInt64(&s.latencyCount); count > 0 {
		m.AvgLatencyMs = float64(atomic.LoadInt64(&s.latencySum)) / float64(count) / 1e6 // нс в мс
	}
	m.MaxLatencyMs = float64(atomic.LoadInt64(&s.maxLatency)) / 1e6
	m.LastUpdate = time.Now()

	out := *m
	return &out
}
