package world

import (
	"fmt"

	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world/block"
)

// Размеры хранения
const (
	ChunkSize     = 16                                // блоков на ось чанка
	ChunkVolume   = ChunkSize * ChunkSize * ChunkSize // вокселей в чанке
	RegionSize    = 16                                // чанков на ось региона
	MaxLightLevel = block.MaxLightLevel
)

// LocalIndex возвращает индекс вокселя в плотном массиве чанка (x: самая быстрая ось)
func LocalIndex(x, y, z int) int {
	return (y*ChunkSize+z)*ChunkSize + x
}

func inChunk(x, y, z int) bool {
	return x >= 0 && x < ChunkSize && y >= 0 && y < ChunkSize && z >= 0 && z < ChunkSize
}

// LightBuffer хранит по одному байту освещённости на воксель.
// Значимы только младшие 4 бита.
type LightBuffer struct {
	base vec.Vec3
	data []byte
}

// NewLightBuffer создаёт пустой (тёмный) буфер с началом base в мировых координатах
func NewLightBuffer(base vec.Vec3) *LightBuffer {
	return &LightBuffer{base: base, data: make([]byte, ChunkVolume)}
}

// Base возвращает мировые координаты угла буфера
func (b *LightBuffer) Base() vec.Vec3 {
	return b.base
}

// Get возвращает значение ячейки по мировым координатам
func (b *LightBuffer) Get(x, y, z int) byte {
	return b.GetLocal(x-b.base.X, y-b.base.Y, z-b.base.Z)
}

// GetLocal возвращает значение ячейки по локальным координатам
func (b *LightBuffer) GetLocal(x, y, z int) byte {
	if !inChunk(x, y, z) {
		panic(fmt.Sprintf("light buffer %v: локальные координаты (%d, %d, %d) вне чанка", b.base, x, y, z))
	}
	return b.data[LocalIndex(x, y, z)]
}

// SetLocal записывает значение по локальным координатам
func (b *LightBuffer) SetLocal(x, y, z int, v byte) {
	b.data[LocalIndex(x, y, z)] = v
}

// Raw открывает плотный массив для сериализации
func (b *LightBuffer) Raw() []byte {
	return b.data
}

// MaterialBuffer хранит ID материала и значение data для каждого вокселя
type MaterialBuffer struct {
	base vec.Vec3
	ids  []block.MaterialID
	data []uint16
}

// NewMaterialBuffer создаёт буфер, заполненный воздухом
func NewMaterialBuffer(base vec.Vec3) *MaterialBuffer {
	return &MaterialBuffer{
		base: base,
		ids:  make([]block.MaterialID, ChunkVolume),
		data: make([]uint16, ChunkVolume),
	}
}

// Base возвращает мировые координаты угла буфера
func (b *MaterialBuffer) Base() vec.Vec3 {
	return b.base
}

// Get возвращает материал и data по мировым координатам.
// Незарегистрированный ID даёт nil материал.
func (b *MaterialBuffer) Get(x, y, z int) (block.Material, uint16) {
	return b.GetLocal(x-b.base.X, y-b.base.Y, z-b.base.Z)
}

// GetLocal возвращает материал и data по локальным координатам
func (b *MaterialBuffer) GetLocal(x, y, z int) (block.Material, uint16) {
	if !inChunk(x, y, z) {
		panic(fmt.Sprintf("material buffer %v: локальные координаты (%d, %d, %d) вне чанка", b.base, x, y, z))
	}
	i := LocalIndex(x, y, z)
	m, _ := block.Get(b.ids[i])
	return m, b.data[i]
}

// IDLocal возвращает сырой ID материала
func (b *MaterialBuffer) IDLocal(x, y, z int) block.MaterialID {
	return b.ids[LocalIndex(x, y, z)]
}

// SetLocal записывает материал по локальным координатам
func (b *MaterialBuffer) SetLocal(x, y, z int, id block.MaterialID, data uint16) {
	i := LocalIndex(x, y, z)
	b.ids[i] = id
	b.data[i] = data
}

// RawIDs и RawData открывают плотные массивы для сериализации
func (b *MaterialBuffer) RawIDs() []block.MaterialID { return b.ids }
func (b *MaterialBuffer) RawData() []uint16          { return b.data }
