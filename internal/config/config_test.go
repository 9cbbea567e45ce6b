package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/lightcheck/internal/world"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lightcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
storage:
  path: /var/lib/lightcheck
  world: overworld
audit:
  workers: 6
  channels: [block]
eventbus:
  url: nats://127.0.0.1:4222
  stream: AUDIT
server:
  api_port: 9090
telemetry:
  enabled: true
  endpoint: otel:4318
  insecure: true
  sample_ratio: 0.1
blocks:
  catalog_dir: ./blocks
cache:
  redis_url: localhost:6379
  ttl_seconds: 120
auth:
  operators:
    ops: $2a$10$abcdefghijklmnopqrstuv
history:
  driver: mariadb
  dsn: lc:lc@tcp(db:3306)/lightcheck?parseTime=true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/lightcheck", cfg.Storage.GetPath())
	assert.Equal(t, "overworld", cfg.Storage.GetWorld())
	assert.Equal(t, 6, cfg.Audit.GetWorkers())
	chs, err := cfg.Audit.GetChannels()
	require.NoError(t, err)
	assert.Equal(t, []world.LightChannel{world.BlockLight}, chs)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.EventBus.GetURL())
	assert.Equal(t, "AUDIT", cfg.EventBus.Stream)
	assert.Equal(t, 9090, cfg.Server.GetAPIPort())
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "lightcheck", cfg.Telemetry.Service, "Умолчание сохраняется, если ключ не задан")
	assert.Equal(t, "otel:4318", cfg.Telemetry.Endpoint)
	assert.True(t, cfg.Telemetry.Insecure)
	assert.InDelta(t, 0.1, cfg.Telemetry.SampleRatio, 1e-9)
	assert.Equal(t, "./blocks", cfg.Blocks.CatalogDir)
	assert.Equal(t, "localhost:6379", cfg.Cache.GetRedisURL())
	assert.Equal(t, 120, cfg.Cache.TTLSeconds)
	assert.Equal(t, "$2a$10$abcdefghijklmnopqrstuv", cfg.Auth.Operators["ops"])
	assert.Equal(t, "mariadb", cfg.History.Driver)
	assert.Equal(t, "lc:lc@tcp(db:3306)/lightcheck?parseTime=true", cfg.History.DSN)
}

func TestLoad_EnvFallbacks(t *testing.T) {
	t.Setenv("LIGHTCHECK_CONFIG", "")
	t.Setenv("LIGHTCHECK_DATA_DIR", "/tmp/lc")
	t.Setenv("LIGHTCHECK_API_PORT", "7000")
	t.Setenv("LIGHTCHECK_METRICS_PORT", "not-a-port")
	t.Setenv("LIGHTCHECK_REDIS_URL", "redis:6379")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "/tmp/lc", cfg.Storage.GetPath())
	assert.Equal(t, 7000, cfg.Server.GetAPIPort())
	assert.Equal(t, 2112, cfg.Server.GetMetricsPort(), "Некорректный env игнорируется")
	assert.Equal(t, runtime.NumCPU(), cfg.Audit.GetWorkers())
	assert.Equal(t, "redis:6379", cfg.Cache.GetRedisURL())

	chs, err := cfg.Audit.GetChannels()
	require.NoError(t, err)
	assert.Equal(t, []world.LightChannel{world.SkyLight, world.BlockLight}, chs)
}

func TestLoad_ConfigEnvPath(t *testing.T) {
	path := writeConfig(t, "server:\n  api_port: 1234\n")
	t.Setenv("LIGHTCHECK_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1234, cfg.Server.GetAPIPort())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, os.IsNotExist(err))

	_, err = Load(writeConfig(t, "audit:\n  channels: [moon]\n"))
	assert.ErrorContains(t, err, "moon")

	_, err = Load(writeConfig(t, "server: [1, 2"))
	assert.Error(t, err)
}
