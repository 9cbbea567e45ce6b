// Package history хранит итоги полных проверок освещения, чтобы
// сравнивать запуски между собой.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/annel0/lightcheck/internal/lighting"
	"github.com/annel0/lightcheck/internal/world"
)

// DefaultLimit: число записей Recent по умолчанию
const DefaultLimit = 20

// ErrInvalidRecord возвращается при попытке сохранить запись без RunID
var ErrInvalidRecord = errors.New("запись проверки без run_id")

// Record: строка истории проверок
type Record struct {
	RunID      string                                        `json:"run_id" bson:"run_id"`
	World      string                                        `json:"world" bson:"world"`
	Regions    int                                           `json:"regions" bson:"regions"`
	Chunks     int                                           `json:"chunks" bson:"chunks"`
	Voxels     int64                                         `json:"voxels" bson:"voxels"`
	Violations [world.LightChannels][len(lighting.Rules)]int `json:"violations" bson:"violations"`
	Failures   int                                           `json:"failures" bson:"failures"`
	Started    time.Time                                     `json:"started" bson:"started"`
	DurationMs int64                                         `json:"duration_ms" bson:"duration_ms"`
}

// Total возвращает общее число нарушений записи
func (r *Record) Total() int {
	total := 0
	for _, byRule := range r.Violations {
		for _, n := range byRule {
			total += n
		}
	}
	return total
}

// FromSummary сворачивает итог обхода в запись истории
func FromSummary(s *lighting.Summary) Record {
	rec := Record{
		RunID:      s.RunID,
		World:      s.World,
		Regions:    s.Regions,
		Chunks:     s.Chunks,
		Voxels:     s.Voxels,
		Failures:   len(s.Failures),
		Started:    s.Started.UTC().Truncate(time.Millisecond),
		DurationMs: s.Duration.Milliseconds(),
		Violations: s.Violations,
	}
	return rec
}

func (r *Record) validate() error {
	if r.RunID == "" {
		return ErrInvalidRecord
	}
	return nil
}

// Repository: хранилище истории проверок
type Repository interface {
	// Save сохраняет запись; повторное сохранение того же RunID заменяет её.
	Save(ctx context.Context, rec Record) error
	// Recent возвращает последние записи мира, новые первыми.
	// Пустое имя мира означает все миры.
	Recent(ctx context.Context, worldName string, limit int) ([]Record, error)
	Close() error
}

// Config выбирает реализацию репозитория
type Config struct {
	Driver   string // "", "memory", "sqlite", "mariadb", "mongo"
	DSN      string // путь к файлу, user:pass@tcp(host:port)/db или mongodb://host:27017
	Database string // только для mongo
}

// Open создаёт репозиторий по конфигурации
func Open(cfg Config) (Repository, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryRepo(), nil
	case "sqlite":
		return NewSQLiteRepo(cfg.DSN)
	case "mariadb", "mysql":
		return NewMariaRepo(cfg.DSN)
	case "mongo", "mongodb":
		return NewMongoRepo(MongoConfig{URI: cfg.DSN, Database: cfg.Database})
	default:
		return nil, fmt.Errorf("неизвестный драйвер истории %q", cfg.Driver)
	}
}

// MemoryRepo хранит историю в памяти процесса
type MemoryRepo struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[string]Record)}
}

func (m *MemoryRepo) Save(ctx context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.records[rec.RunID] = rec
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepo) Recent(ctx context.Context, worldName string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	m.mu.RLock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		if worldName == "" || rec.World == worldName {
			out = append(out, rec)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Started.Equal(out[j].Started) {
			return out[i].Started.After(out[j].Started)
		}
		return out[i].RunID < out[j].RunID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepo) Close() error { return nil }
