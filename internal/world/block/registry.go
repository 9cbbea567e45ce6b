package block

import (
	"sort"
	"sync"
)

var (
	registry   = make(map[MaterialID]Material)
	registryMu sync.RWMutex
)

// Register добавляет материал в регистр, заменяя ранее зарегистрированный с тем же ID
func Register(m Material) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[m.ID()] = m
}

// Get возвращает материал для указанного ID
func Get(id MaterialID) (Material, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	m, exists := registry[id]
	return m, exists
}

// IsValidMaterialID проверяет, зарегистрирован ли ID
func IsValidMaterialID(id MaterialID) bool {
	_, exists := Get(id)
	return exists
}

// All возвращает все зарегистрированные материалы, упорядоченные по ID
func All() []Material {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Material, 0, len(registry))
	for _, m := range registry {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// MaterialID представляет идентификатор материала
type MaterialID uint16

// Константы ID материалов
const (
	// Базовые материалы
	AirID   MaterialID = iota // 0
	StoneID                   // 1
	GrassID                   // 2
	WaterID                   // 3
	SandID                    // 4
	DirtID                    // 5

	// Растения и полупрозрачные (начиная с 100)
	LeavesID  MaterialID = 100
	LogID     MaterialID = 101
	LilyPadID MaterialID = 102
	GlassID   MaterialID = 103

	// Источники света (начиная с 200)
	TorchID     MaterialID = 200
	GlowstoneID MaterialID = 201

	// Частичные блоки (начиная с 300)
	SlabID MaterialID = 300

	// Материалы из каталога получают ID от 1000
	CatalogBaseID MaterialID = 1000
)
