package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/annel0/lightcheck/internal/world"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Audit     AuditConfig     `yaml:"audit"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Auth      AuthConfig      `yaml:"auth"`
	Blocks    BlocksConfig    `yaml:"blocks"`
	Logging   LoggingConfig   `yaml:"logging"`
	Cache     CacheConfig     `yaml:"cache"`
	History   HistoryConfig   `yaml:"history"`
}

type StorageConfig struct {
	Path  string `yaml:"path"`
	World string `yaml:"world"`
}

type AuditConfig struct {
	Workers  int      `yaml:"workers"`
	Channels []string `yaml:"channels"` // sky, block; пусто: оба
}

// EventBusConfig: пустой URL означает in-memory шину
type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type ServerConfig struct {
	APIPort     int `yaml:"api_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Service     string  `yaml:"service"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type AuthConfig struct {
	JWTSecret string            `yaml:"jwt_secret"` // base64, не короче 32 байт
	Operators map[string]string `yaml:"operators"`  // имя -> bcrypt hash
}

// HistoryConfig: хранилище истории проверок: memory, sqlite, mariadb или mongo
type HistoryConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Database string `yaml:"database"`
}

type BlocksConfig struct {
	CatalogDir string `yaml:"catalog_dir"`
}

// CacheConfig: кеш точечных проверок API; пустой redis_url означает кеш в памяти
type CacheConfig struct {
	RedisURL      string `yaml:"redis_url"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTLSeconds    int    `yaml:"ttl_seconds"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	ToFile bool   `yaml:"to_file"`
}

// GetAPIPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetAPIPort() int {
	return getPortWithEnvFallback(s.APIPort, "LIGHTCHECK_API_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "LIGHTCHECK_METRICS_PORT", 2112)
}

// GetPath возвращает каталог данных: config -> LIGHTCHECK_DATA_DIR -> ./data
func (s *StorageConfig) GetPath() string {
	return getStringWithEnvFallback(s.Path, "LIGHTCHECK_DATA_DIR", "data")
}

// GetWorld возвращает имя проверяемого мира
func (s *StorageConfig) GetWorld() string {
	return getStringWithEnvFallback(s.World, "LIGHTCHECK_WORLD", "world")
}

// GetWorkers возвращает число воркеров; 0 в конфиге означает число CPU
func (a *AuditConfig) GetWorkers() int {
	if a.Workers > 0 {
		return a.Workers
	}
	return runtime.NumCPU()
}

// GetChannels разбирает список каналов. Пустой список: оба канала.
func (a *AuditConfig) GetChannels() ([]world.LightChannel, error) {
	if len(a.Channels) == 0 {
		return world.Channels[:], nil
	}
	out := make([]world.LightChannel, 0, len(a.Channels))
	for _, name := range a.Channels {
		ch, ok := world.ParseLightChannel(name)
		if !ok {
			return nil, fmt.Errorf("audit.channels: неизвестный канал %q", name)
		}
		out = append(out, ch)
	}
	return out, nil
}

// GetJWTSecret возвращает секрет: config -> LIGHTCHECK_JWT_SECRET
func (a *AuthConfig) GetJWTSecret() string {
	return getStringWithEnvFallback(a.JWTSecret, "LIGHTCHECK_JWT_SECRET", "")
}

// GetRedisURL возвращает адрес Redis: config -> LIGHTCHECK_REDIS_URL
func (c *CacheConfig) GetRedisURL() string {
	return getStringWithEnvFallback(c.RedisURL, "LIGHTCHECK_REDIS_URL", "")
}

// GetURL возвращает адрес NATS: config -> LIGHTCHECK_NATS_URL
func (e *EventBusConfig) GetURL() string {
	return getStringWithEnvFallback(e.URL, "LIGHTCHECK_NATS_URL", "")
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

func getStringWithEnvFallback(configVal, envVar, defaultVal string) string {
	if configVal != "" {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultVal
}

// Default возвращает конфигурацию без файла: все значения берутся из env и умолчаний
func Default() *Config {
	return &Config{
		Telemetry: TelemetryConfig{Service: "lightcheck"},
		Logging:   LoggingConfig{Level: "INFO"},
	}
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV LIGHTCHECK_CONFIG или возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("LIGHTCHECK_CONFIG")
		if path == "" {
			return Default(), nil // конфиг не задан: использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор %s: %w", path, err)
	}
	if _, err := cfg.Audit.GetChannels(); err != nil {
		return nil, err
	}

	return cfg, nil
}
