package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/lightcheck/internal/lighting"
	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
)

func testSummary(runID, worldName string, started time.Time) *lighting.Summary {
	s := &lighting.Summary{
		RunID:    runID,
		World:    worldName,
		Regions:  2,
		Chunks:   12,
		Voxels:   12 * 4096,
		Started:  started,
		Duration: 1500 * time.Millisecond,
		Failures: []lighting.ChunkFailure{{Coords: vec.Vec3{X: 1}, Channel: world.BlockLight, Error: "boom"}},
	}
	s.Violations[world.SkyLight][lighting.RuleA] = 3
	s.Violations[world.BlockLight][lighting.RuleC] = 1
	return s
}

func TestFromSummary(t *testing.T) {
	started := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
	rec := FromSummary(testSummary("run-1", "overworld", started))

	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "overworld", rec.World)
	assert.Equal(t, 12, rec.Chunks)
	assert.Equal(t, int64(12*4096), rec.Voxels)
	assert.Equal(t, 1, rec.Failures)
	assert.Equal(t, int64(1500), rec.DurationMs)
	assert.Equal(t, 3, rec.Violations[world.SkyLight][lighting.RuleA])
	assert.Equal(t, 1, rec.Violations[world.BlockLight][lighting.RuleC])
	assert.Equal(t, 4, rec.Total())
	assert.Equal(t, started.Truncate(time.Millisecond), rec.Started)
}

// exerciseRepository проверяет общий контракт Repository
func exerciseRepository(t *testing.T, repo Repository, worldName string) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.ErrorIs(t, repo.Save(ctx, Record{World: worldName}), ErrInvalidRecord)

	for i := 0; i < 3; i++ {
		rec := FromSummary(testSummary(fmt.Sprintf("%s-run-%d", worldName, i), worldName, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, repo.Save(ctx, rec))
	}
	require.NoError(t, repo.Save(ctx, FromSummary(testSummary(worldName+"-other", worldName+"-x", base.Add(time.Hour)))))

	recent, err := repo.Recent(ctx, worldName, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, worldName+"-run-2", recent[0].RunID, "Новые записи первыми")
	assert.Equal(t, worldName+"-run-1", recent[1].RunID)
	assert.Equal(t, 3, recent[0].Violations[world.SkyLight][lighting.RuleA])

	// Повторное сохранение заменяет запись
	updated := recent[0]
	updated.Failures = 0
	require.NoError(t, repo.Save(ctx, updated))
	recent, err = repo.Recent(ctx, worldName, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, 0, recent[0].Failures)
}

func TestMemoryRepo(t *testing.T) {
	repo := NewMemoryRepo()
	defer repo.Close()
	exerciseRepository(t, repo, "memory")

	all, err := repo.Recent(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4, "Пустое имя мира означает все миры")
}

func TestOpen(t *testing.T) {
	repo, err := Open(Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryRepo{}, repo)

	_, err = Open(Config{Driver: "postgres"})
	assert.Error(t, err)

	_, err = Open(Config{Driver: "sqlite"})
	assert.Error(t, err, "sqlite без пути к файлу")
}

func TestSQLiteRepo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "audits.db")
	repo, err := Open(Config{Driver: "sqlite", DSN: path})
	require.NoError(t, err)
	exerciseRepository(t, repo, "sqlite")
	require.NoError(t, repo.Close())

	// История переживает переоткрытие файла
	repo, err = NewSQLiteRepo(path)
	require.NoError(t, err)
	defer repo.Close()
	all, err := repo.Recent(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestMariaRepo(t *testing.T) {
	dsn := os.Getenv("LIGHTCHECK_TEST_MARIADB_DSN")
	if dsn == "" {
		t.Skip("LIGHTCHECK_TEST_MARIADB_DSN не задан, пропускаем тест")
	}
	repo, err := NewMariaRepo(dsn)
	if err != nil {
		t.Skipf("MariaDB not available, skipping test: %v", err)
	}
	defer repo.Close()
	exerciseRepository(t, repo, fmt.Sprintf("maria-%d", time.Now().UnixNano()))
}

func TestMongoRepo(t *testing.T) {
	uri := os.Getenv("LIGHTCHECK_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("LIGHTCHECK_TEST_MONGO_URI не задан, пропускаем тест")
	}
	repo, err := NewMongoRepo(MongoConfig{URI: uri, Database: "lightcheck_test"})
	if err != nil {
		t.Skipf("MongoDB not available, skipping test: %v", err)
	}
	defer repo.Close()
	exerciseRepository(t, repo, fmt.Sprintf("mongo-%d", time.Now().UnixNano()))
}
