package world

import (
	"testing"

	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world/block"
	// Импортируем реализации материалов для регистрации в init()
	_ "github.com/annel0/lightcheck/internal/world/block/implementations"
)

func TestChunkCreateAndGetMaterial(t *testing.T) {
	chunk := NewChunk(vec.Vec3{X: 2, Y: -1, Z: 3})

	// Проверяем базу чанка в мировых координатах
	if base := chunk.Base(); base != (vec.Vec3{X: 32, Y: -16, Z: 48}) {
		t.Errorf("Ожидалась база {32,-16,48}, получено %v", base)
	}

	// Все воксели изначально воздух
	pos := vec.Vec3{X: 3, Y: 4, Z: 5}
	m, data := chunk.Material(pos)
	if m == nil || m.ID() != block.AirID || data != 0 {
		t.Errorf("Ожидался воздух, получен %v (data %d)", m, data)
	}

	chunk.SetMaterial(pos, block.SlabID, 1)
	m, data = chunk.Material(pos)
	if m == nil || m.ID() != block.SlabID {
		t.Errorf("Ожидалась плита, получен %v", m)
	}
	if data != 1 {
		t.Errorf("Ожидалось data 1, получено %d", data)
	}
}

func TestChunkUnknownMaterial(t *testing.T) {
	chunk := NewChunk(vec.Vec3{})
	pos := vec.Vec3{X: 1, Y: 1, Z: 1}
	chunk.SetMaterial(pos, block.MaterialID(4321), 0)

	if m, _ := chunk.Material(pos); m != nil {
		t.Errorf("Незарегистрированный материал должен давать nil, получен %v", m)
	}
	if id := chunk.MaterialBuffer().IDLocal(1, 1, 1); id != 4321 {
		t.Errorf("Ожидался сырой id 4321, получен %d", id)
	}
}

func TestChunkLight(t *testing.T) {
	chunk := NewChunk(vec.Vec3{})
	pos := vec.Vec3{X: 15, Y: 0, Z: 7}

	for _, ch := range Channels {
		if chunk.LightBuffer(ch) == nil {
			t.Fatalf("Буфер канала %s должен быть создан", ch)
		}
		if level := chunk.Light(ch, pos); level != 0 {
			t.Errorf("Ожидался уровень 0 в канале %s, получен %d", ch, level)
		}
	}

	chunk.SetLight(SkyLight, pos, 12)
	if level := chunk.Light(SkyLight, pos); level != 12 {
		t.Errorf("Ожидался уровень 12, получен %d", level)
	}
	if level := chunk.Light(BlockLight, pos); level != 0 {
		t.Errorf("Каналы не должны влиять друг на друга, получен %d", level)
	}

	// Уровень ограничивается диапазоном 0..15
	chunk.SetLight(BlockLight, pos, 40)
	if level := chunk.Light(BlockLight, pos); level != MaxLightLevel {
		t.Errorf("Ожидался уровень %d, получен %d", MaxLightLevel, level)
	}
	chunk.SetLight(BlockLight, pos, -3)
	if level := chunk.Light(BlockLight, pos); level != 0 {
		t.Errorf("Ожидался уровень 0, получен %d", level)
	}
}

func TestChunkFillAndRemoveBuffer(t *testing.T) {
	chunk := NewChunk(vec.Vec3{})
	chunk.Fill(SkyLight, 15)

	raw := chunk.LightBuffer(SkyLight).Raw()
	if len(raw) != ChunkVolume {
		t.Fatalf("Ожидался буфер на %d ячеек, получено %d", ChunkVolume, len(raw))
	}
	for i, v := range raw {
		if v != 15 {
			t.Fatalf("Ячейка %d: ожидалось 15, получено %d", i, v)
		}
	}

	chunk.SetLightBuffer(BlockLight, nil)
	if chunk.LightBuffer(BlockLight) != nil {
		t.Error("Буфер блочного канала должен быть удалён")
	}
}

func TestLocalIndexLayout(t *testing.T) {
	if LocalIndex(1, 0, 0) != 1 {
		t.Errorf("x должен быть младшей осью")
	}
	if LocalIndex(0, 0, 1) != ChunkSize {
		t.Errorf("z должен идти после x")
	}
	if LocalIndex(0, 1, 0) != ChunkSize*ChunkSize {
		t.Errorf("y должен быть старшей осью")
	}
	if LocalIndex(15, 15, 15) != ChunkVolume-1 {
		t.Errorf("Последний индекс должен быть %d", ChunkVolume-1)
	}
}

func TestLightBufferWorldCoords(t *testing.T) {
	b := NewLightBuffer(vec.Vec3{X: -16, Y: 0, Z: 16})
	b.SetLocal(0, 3, 15, 9)

	if v := b.Get(-16, 3, 31); v != 9 {
		t.Errorf("Ожидалось 9 по мировым координатам, получено %d", v)
	}

	defer func() {
		if recover() == nil {
			t.Error("Чтение вне чанка должно паниковать")
		}
	}()
	b.GetLocal(16, 0, 0)
}
