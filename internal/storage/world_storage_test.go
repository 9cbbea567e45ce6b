package storage

import (
	"os"
	"testing"

	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
	"github.com/annel0/lightcheck/internal/world/block"
	_ "github.com/annel0/lightcheck/internal/world/block/implementations"
)

func setupTestStorage(t *testing.T) (*WorldStorage, string) {
	// Создаем временную директорию для тестов
	tempDir, err := os.MkdirTemp("", "world-storage-test")
	if err != nil {
		t.Fatalf("Не удалось создать временную директорию: %v", err)
	}

	// Инициализируем хранилище
	storage, err := NewWorldStorage(tempDir)
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Не удалось создать хранилище: %v", err)
	}

	return storage, tempDir
}

func cleanupTestStorage(storage *WorldStorage, tempDir string) {
	if storage != nil {
		storage.Close()
	}
	if tempDir != "" {
		os.RemoveAll(tempDir)
	}
}

func putRaw(t *testing.T, ws *WorldStorage, key, value []byte) {
	t.Helper()
	err := ws.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	require.NoError(t, err)
}

func testChunk() *world.Chunk {
	c := world.NewChunk(vec.Vec3{X: -3, Y: 2, Z: 7})
	c.SetMaterial(vec.Vec3{X: 1, Y: 2, Z: 3}, block.WaterID, 0)
	c.SetMaterial(vec.Vec3{X: 4, Y: 4, Z: 4}, block.SlabID, 1)
	c.SetLight(world.SkyLight, vec.Vec3{X: 15, Y: 15, Z: 15}, 13)
	c.SetLight(world.BlockLight, vec.Vec3{X: 0, Y: 0, Z: 0}, 7)
	return c
}

func TestSaveAndLoadChunk(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)

	chunk := testChunk()
	require.NoError(t, storage.SaveChunk("overworld", chunk), "Ошибка сохранения чанка")

	loaded, err := storage.LoadChunk("overworld", chunk.Coords)
	require.NoError(t, err, "Ошибка загрузки чанка")

	assert.Equal(t, chunk.Coords, loaded.Coords)
	assert.Equal(t, chunk.MaterialBuffer().RawIDs(), loaded.MaterialBuffer().RawIDs())
	assert.Equal(t, chunk.MaterialBuffer().RawData(), loaded.MaterialBuffer().RawData())
	for _, ch := range world.Channels {
		assert.Equal(t, chunk.LightBuffer(ch).Raw(), loaded.LightBuffer(ch).Raw(), "канал %s", ch)
	}

	m, data := loaded.Material(vec.Vec3{X: 4, Y: 4, Z: 4})
	require.NotNil(t, m)
	assert.Equal(t, block.SlabID, m.ID())
	assert.Equal(t, uint16(1), data)
}

func TestLoadChunk_NotFound(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)

	_, err := storage.LoadChunk("overworld", vec.Vec3{X: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	// Чанк другого мира не виден
	require.NoError(t, storage.SaveChunk("nether", testChunk()))
	_, err = storage.LoadChunk("overworld", testChunk().Coords)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveChunk_MissingLightChannel(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)

	chunk := testChunk()
	chunk.SetLightBuffer(world.BlockLight, nil)
	require.NoError(t, storage.SaveChunk("overworld", chunk))

	loaded, err := storage.LoadChunk("overworld", chunk.Coords)
	require.NoError(t, err)
	assert.Nil(t, loaded.LightBuffer(world.BlockLight), "Отсутствующий канал должен остаться отсутствующим")
	assert.NotNil(t, loaded.LightBuffer(world.SkyLight))
}

func TestSaveAndLoadWorld(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)

	w := world.NewWorld("overworld")
	w.SetBlock(vec.Vec3{X: 0, Y: 3, Z: 0}, block.StoneID, 0)
	w.SetBlock(vec.Vec3{X: -20, Y: 40, Z: 5}, block.TorchID, 0)
	w.SetBlock(vec.Vec3{X: 300, Y: -1, Z: 300}, block.GlassID, 0)
	w.SetLight(world.BlockLight, vec.Vec3{X: -20, Y: 40, Z: 5}, 14)
	require.NoError(t, storage.SaveWorld(w))

	loaded, err := storage.LoadWorld("overworld")
	require.NoError(t, err)

	assert.Equal(t, "overworld", loaded.Name)
	assert.Equal(t, w.ChunkCount(), loaded.ChunkCount())
	assert.Equal(t, w.SurfaceMap(), loaded.SurfaceMap())
	assert.Len(t, loaded.Regions(), len(w.Regions()))

	level, ok := loaded.Light(world.BlockLight, vec.Vec3{X: -20, Y: 40, Z: 5})
	require.True(t, ok)
	assert.Equal(t, 14, level)
}

func TestLoadWorld_SkipsCorruptChunk(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)

	w := world.NewWorld("overworld")
	w.Chunk(0, 0, 0, world.LoadOrCreate)
	w.Chunk(1, 0, 0, world.LoadOrCreate)
	require.NoError(t, storage.SaveWorld(w))

	// Мусор вместо zstd
	putRaw(t, storage, chunkKey("overworld", vec.Vec3{X: 1}), []byte("not a snapshot"))
	// Корректный zstd, но неверный размер буфера
	bad, err := storage.encode(ChunkSnapshot{Coords: vec.Vec3{X: 2}, Materials: make([]block.MaterialID, 3)})
	require.NoError(t, err)
	putRaw(t, storage, chunkKey("overworld", vec.Vec3{X: 2}), bad)

	loaded, err := storage.LoadWorld("overworld")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.ChunkCount())
	assert.NotNil(t, loaded.Chunk(0, 0, 0, world.NoLoad))
	assert.Nil(t, loaded.Chunk(1, 0, 0, world.NoLoad))

	_, err = storage.LoadChunk("overworld", vec.Vec3{X: 2})
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestLoadWorld_NotFound(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)

	_, err := storage.LoadWorld("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClosedStorage(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)

	require.NoError(t, storage.Close())
	require.NoError(t, storage.Close(), "Повторное закрытие безопасно")

	assert.ErrorIs(t, storage.SaveChunk("w", testChunk()), ErrNotReady)
	_, err := storage.LoadWorld("w")
	assert.ErrorIs(t, err, ErrNotReady)
}
