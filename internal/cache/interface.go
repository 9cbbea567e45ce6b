package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
)

// ResultCache хранит сериализованные результаты точечной проверки чанков.
// Мир в режиме serve неизменен, поэтому результат зависит только от ключа.
//
// Использование:
//
//	key := cache.ChunkKey("world", coords, channels)
//	data, err := c.Get(ctx, key)
//	err = c.Set(ctx, key, data, 0)
//	n, err := c.InvalidatePrefix(ctx, cache.WorldPrefix("world"))
type ResultCache interface {
	// Get возвращает ErrCacheMiss, если ключ не найден или устарел.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение; ttl = 0 означает DefaultTTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// InvalidatePrefix удаляет все ключи с префиксом и возвращает их число.
	InvalidatePrefix(ctx context.Context, prefix string) (int, error)

	Close() error

	GetMetrics() *CacheMetrics
}

// CacheMetrics содержит метрики производительности кеша.
type CacheMetrics struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRatio      float64 `json:"hit_ratio"`

	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms"`

	LastUpdate time.Time `json:"last_update"`
}

// CacheConfig содержит конфигурацию для кеша.
type CacheConfig struct {
	// Redis конфигурация; пустой адрес означает кеш в памяти процесса
	RedisURL      string
	RedisPassword string
	RedisDB       int

	DefaultTTL time.Duration
	MaxTTL     time.Duration

	MaxConnections int
	PoolTimeout    time.Duration
}

func (c *CacheConfig) applyDefaults() {
	if c.DefaultTTL == 0 {
		c.DefaultTTL = 10 * time.Minute
	}
	if c.MaxTTL == 0 {
		c.MaxTTL = 1 * time.Hour
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = 10
	}
	if c.PoolTimeout == 0 {
		c.PoolTimeout = 30 * time.Second
	}
}

// ttlFor приводит запрошенный TTL к границам конфигурации
func (c *CacheConfig) ttlFor(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = c.DefaultTTL
	}
	if ttl > c.MaxTTL {
		ttl = c.MaxTTL
	}
	return ttl
}

// New создаёт Redis кеш при заданном адресе, иначе кеш в памяти
func New(config *CacheConfig) (ResultCache, error) {
	if config.RedisURL == "" {
		return NewMemoryCache(config), nil
	}
	return NewRedisCache(config)
}

// WorldPrefix возвращает общий префикс ключей проверки мира
func WorldPrefix(worldName string) string {
	return fmt.Sprintf("lightcheck:%s:audit:", worldName)
}

// ChunkKey формирует ключ результата проверки чанка по набору каналов.
// Пустой набор каналов означает оба канала.
func ChunkKey(worldName string, coords vec.Vec3, channels []world.LightChannel) string {
	if len(channels) == 0 {
		channels = world.Channels[:]
	}
	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = ch.String()
	}
	return fmt.Sprintf("%s%d:%d:%d:%s", WorldPrefix(worldName), coords.X, coords.Y, coords.Z, strings.Join(names, ","))
}

// Ошибки кеша
var (
	ErrCacheMiss  = NewCacheError("cache miss")
	ErrCacheClose = NewCacheError("cache closed")
)

// CacheError представляет ошибку кеша.
type CacheError struct {
	Message string
}

func (e *CacheError) Error() string {
	return e.Message
}

func NewCacheError(message string) *CacheError {
	return &CacheError{Message: message}
}

// IsCacheMiss проверяет, является ли ошибка промахом кеша.
func IsCacheMiss(err error) bool {
	return err == ErrCacheMiss
}
