package world

import (
	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world/block"
)

// Chunk представляет куб мира размером 16x16x16 блоков.
//
// Чанк не защищён мьютексом: запись допускается только пока мир не
// проверяется (генерация, загрузка из хранилища). Проверка освещения
// читает буферы без блокировок.
type Chunk struct {
	Coords vec.Vec3 // Координаты чанка в единицах чанков

	materials *MaterialBuffer
	light     [LightChannels]*LightBuffer
}

// NewChunk создаёт чанк, заполненный воздухом, с тёмными буферами всех каналов
func NewChunk(coords vec.Vec3) *Chunk {
	base := coords.Scale(ChunkSize)
	c := &Chunk{
		Coords:    coords,
		materials: NewMaterialBuffer(base),
	}
	for _, ch := range Channels {
		c.light[ch] = NewLightBuffer(base)
	}
	return c
}

// Base возвращает мировые координаты угла чанка
func (c *Chunk) Base() vec.Vec3 {
	return c.Coords.Scale(ChunkSize)
}

// MaterialBuffer возвращает буфер материалов чанка
func (c *Chunk) MaterialBuffer() *MaterialBuffer {
	return c.materials
}

// LightBuffer возвращает буфер канала или nil, если канал не выделен
func (c *Chunk) LightBuffer(ch LightChannel) *LightBuffer {
	if int(ch) >= LightChannels {
		return nil
	}
	return c.light[ch]
}

// SetLightBuffer заменяет буфер канала. nil снимает канал с чанка.
func (c *Chunk) SetLightBuffer(ch LightChannel, b *LightBuffer) {
	c.light[ch] = b
}

// Material возвращает материал по локальным координатам
func (c *Chunk) Material(local vec.Vec3) (block.Material, uint16) {
	return c.materials.GetLocal(local.X, local.Y, local.Z)
}

// SetMaterial устанавливает материал по локальным координатам
func (c *Chunk) SetMaterial(local vec.Vec3, id block.MaterialID, data uint16) {
	c.materials.SetLocal(local.X, local.Y, local.Z, id, data)
}

// Light возвращает уровень освещённости канала по локальным координатам
func (c *Chunk) Light(ch LightChannel, local vec.Vec3) int {
	b := c.LightBuffer(ch)
	if b == nil {
		return 0
	}
	return int(b.GetLocal(local.X, local.Y, local.Z) & 0x0F)
}

// SetLight записывает уровень освещённости канала по локальным координатам
func (c *Chunk) SetLight(ch LightChannel, local vec.Vec3, level int) {
	b := c.LightBuffer(ch)
	if b == nil {
		return
	}
	b.SetLocal(local.X, local.Y, local.Z, byte(block.ClampLight(level)))
}

// Fill заполняет весь канал одним уровнем
func (c *Chunk) Fill(ch LightChannel, level int) {
	b := c.LightBuffer(ch)
	if b == nil {
		return
	}
	v := byte(block.ClampLight(level))
	for i := range b.data {
		b.data[i] = v
	}
}
