package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/lightcheck/internal/logging"
	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
	"github.com/annel0/lightcheck/internal/world/block"
)

var (
	// ErrNotFound: в хранилище нет мира или чанка с таким ключом
	ErrNotFound = errors.New("не найдено в хранилище")
	// ErrNotReady: хранилище закрыто
	ErrNotReady = errors.New("хранилище не готово")
	// ErrCorruptSnapshot: снимок чанка не проходит проверку размеров
	ErrCorruptSnapshot = errors.New("повреждённый снимок чанка")
)

// WorldStorage хранит снимки чанков и карту высот в BadgerDB.
// Значения сжаты zstd.
type WorldStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool

	enc    *zstd.Encoder
	dec    *zstd.Decoder
	logger *logging.Logger
}

// ChunkSnapshot: сериализуемое содержимое чанка
type ChunkSnapshot struct {
	Coords    vec.Vec3                    `json:"coords"`
	Materials []block.MaterialID          `json:"materials"`
	Data      []uint16                    `json:"data"`
	Light     [world.LightChannels][]byte `json:"light"` // nil: канал отсутствует
}

// SurfaceColumn: высота одной колонки
type SurfaceColumn struct {
	X int `json:"x"`
	Z int `json:"z"`
	Y int `json:"y"`
}

// NewWorldStorage открывает (или создаёт) хранилище в каталоге dataPath/world
func NewWorldStorage(dataPath string) (*WorldStorage, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}

	return &WorldStorage{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		enc:     enc,
		dec:     dec,
		logger:  logging.GetStorageLogger(),
	}, nil
}

// Close закрывает хранилище данных
func (ws *WorldStorage) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}

	ws.isReady = false
	ws.enc.Close()
	ws.dec.Close()
	return ws.db.Close()
}

func chunkPrefix(worldName string) string {
	return fmt.Sprintf("world:%s:chunk:", worldName)
}

func chunkKey(worldName string, coords vec.Vec3) []byte {
	return []byte(fmt.Sprintf("%s%d:%d:%d", chunkPrefix(worldName), coords.X, coords.Y, coords.Z))
}

func surfaceKey(worldName string) []byte {
	return []byte(fmt.Sprintf("world:%s:surface", worldName))
}

// Snapshot снимает копию содержимого чанка
func Snapshot(c *world.Chunk) ChunkSnapshot {
	s := ChunkSnapshot{
		Coords:    c.Coords,
		Materials: append([]block.MaterialID(nil), c.MaterialBuffer().RawIDs()...),
		Data:      append([]uint16(nil), c.MaterialBuffer().RawData()...),
	}
	for _, ch := range world.Channels {
		if b := c.LightBuffer(ch); b != nil {
			s.Light[ch] = append([]byte(nil), b.Raw()...)
		}
	}
	return s
}

// Restore собирает чанк из снимка
func (s *ChunkSnapshot) Restore() (*world.Chunk, error) {
	if len(s.Materials) != world.ChunkVolume || len(s.Data) != world.ChunkVolume {
		return nil, fmt.Errorf("%w: чанк %v, материалов %d, data %d",
			ErrCorruptSnapshot, s.Coords, len(s.Materials), len(s.Data))
	}

	c := world.NewChunk(s.Coords)
	copy(c.MaterialBuffer().RawIDs(), s.Materials)
	copy(c.MaterialBuffer().RawData(), s.Data)

	for _, ch := range world.Channels {
		raw := s.Light[ch]
		if raw == nil {
			c.SetLightBuffer(ch, nil)
			continue
		}
		if len(raw) != world.ChunkVolume {
			return nil, fmt.Errorf("%w: чанк %v, канал %s: %d ячеек", ErrCorruptSnapshot, s.Coords, ch, len(raw))
		}
		copy(c.LightBuffer(ch).Raw(), raw)
	}
	return c, nil
}

func (ws *WorldStorage) encode(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации: %w", err)
	}
	return ws.enc.EncodeAll(data, nil), nil
}

func (ws *WorldStorage) decode(raw []byte, v interface{}) error {
	data, err := ws.dec.DecodeAll(raw, nil)
	if err != nil {
		return fmt.Errorf("ошибка распаковки: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("ошибка десериализации: %w", err)
	}
	return nil
}

// SaveChunk сохраняет снимок чанка мира worldName
func (ws *WorldStorage) SaveChunk(worldName string, chunk *world.Chunk) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return ErrNotReady
	}

	data, err := ws.encode(Snapshot(chunk))
	if err != nil {
		return fmt.Errorf("чанк %v: %w", chunk.Coords, err)
	}

	err = ws.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(worldName, chunk.Coords), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// LoadChunk загружает чанк мира worldName
func (ws *WorldStorage) LoadChunk(worldName string, coords vec.Vec3) (*world.Chunk, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, ErrNotReady
	}

	var data []byte
	err := ws.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(worldName, coords))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("чанк %v мира %q: %w", coords, worldName, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	var snap ChunkSnapshot
	if err := ws.decode(data, &snap); err != nil {
		return nil, fmt.Errorf("чанк %v: %w", coords, err)
	}
	return snap.Restore()
}

// SaveWorld сохраняет все загруженные чанки и карту высот одной транзакцией
func (ws *WorldStorage) SaveWorld(w *world.World) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return ErrNotReady
	}

	wb := ws.db.NewWriteBatch()
	defer wb.Cancel()

	saved := 0
	for _, r := range w.Regions() {
		for _, c := range r.Chunks() {
			data, err := ws.encode(Snapshot(c))
			if err != nil {
				return fmt.Errorf("чанк %v: %w", c.Coords, err)
			}
			if err := wb.Set(chunkKey(w.Name, c.Coords), data); err != nil {
				return fmt.Errorf("ошибка записи чанка %v: %w", c.Coords, err)
			}
			saved++
		}
	}

	surface := make([]SurfaceColumn, 0)
	for col, h := range w.SurfaceMap() {
		surface = append(surface, SurfaceColumn{X: col.X, Z: col.Y, Y: h})
	}
	sort.Slice(surface, func(i, j int) bool {
		if surface[i].X != surface[j].X {
			return surface[i].X < surface[j].X
		}
		return surface[i].Z < surface[j].Z
	})
	data, err := ws.encode(surface)
	if err != nil {
		return fmt.Errorf("карта высот: %w", err)
	}
	if err := wb.Set(surfaceKey(w.Name), data); err != nil {
		return fmt.Errorf("ошибка записи карты высот: %w", err)
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	ws.logger.Info("Мир %q сохранён: %d чанков, %d колонок", w.Name, saved, len(surface))
	return nil
}

// LoadWorld загружает мир целиком. Повреждённые чанки пропускаются с записью
// в журнал: проверка освещения увидит их как незагруженные.
func (ws *WorldStorage) LoadWorld(name string) (*world.World, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, ErrNotReady
	}

	w := world.NewWorld(name)
	found := false
	skipped := 0

	err := ws.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(surfaceKey(name))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			found = true
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			var surface []SurfaceColumn
			if err := ws.decode(raw, &surface); err != nil {
				ws.logger.Warn("Карта высот мира %q повреждена: %v", name, err)
			}
			for _, col := range surface {
				w.SetSurfaceHeight(col.X, col.Z, col.Y)
			}
		}

		prefix := []byte(chunkPrefix(name))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			found = true
			item := it.Item()
			key := item.KeyCopy(nil)
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			var snap ChunkSnapshot
			if err := ws.decode(raw, &snap); err != nil {
				ws.logger.Warn("Пропуск чанка %s: %v", bytes.TrimPrefix(key, prefix), err)
				skipped++
				continue
			}
			c, err := snap.Restore()
			if err != nil {
				ws.logger.Warn("Пропуск чанка %s: %v", bytes.TrimPrefix(key, prefix), err)
				skipped++
				continue
			}
			w.AddChunk(c)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("мир %q: %w", name, ErrNotFound)
	}

	ws.logger.Info("Мир %q загружен: %d чанков, пропущено %d", name, w.ChunkCount(), skipped)
	return w, nil
}
