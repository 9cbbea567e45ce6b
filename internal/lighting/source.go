package lighting

import (
	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
	"github.com/annel0/lightcheck/internal/world/block"
)

// SourceKind: вариант модели источника света
type SourceKind uint8

const (
	SourceSky SourceKind = iota
	SourceBlock
)

func (k SourceKind) String() string {
	if k == SourceSky {
		return "sky"
	}
	return "block"
}

// HeightMap: высота поверхности для каждой колонки (x, z) чанка
type HeightMap [world.ChunkSize][world.ChunkSize]int

// BuildHeightMap запрашивает у мира высоты колонок над чанком c
func BuildHeightMap(src ChunkSource, c *world.Chunk) *HeightMap {
	var hm HeightMap
	base := c.Base()
	for x := 0; x < world.ChunkSize; x++ {
		for z := 0; z < world.ChunkSize; z++ {
			hm[x][z] = src.SurfaceHeight(base.X+x, base.Z+z)
		}
	}
	return &hm
}

// LightSource возвращает собственное излучение вокселя по локальным координатам.
// Значение неизменяемо после создания, поэтому его можно вызывать из любых горутин.
type LightSource struct {
	kind    SourceKind
	base    vec.Vec3
	heights *HeightMap
	center  *world.MaterialBuffer
}

// SkySource: полный дневной свет (15) строго выше поверхности колонки
func SkySource(heights *HeightMap, base vec.Vec3) LightSource {
	return LightSource{kind: SourceSky, base: base, heights: heights}
}

// BlockSource: излучение материала центрального чанка
func BlockSource(center *world.MaterialBuffer) LightSource {
	return LightSource{kind: SourceBlock, center: center}
}

// SourceFor выбирает модель источника по каналу окрестности
func SourceFor(src ChunkSource, c *world.Chunk, n *Neighborhood) LightSource {
	if n.Channel == world.SkyLight {
		return SkySource(BuildHeightMap(src, c), c.Base())
	}
	return BlockSource(n.Materials[1][1][1])
}

// Kind возвращает вариант источника
func (s LightSource) Kind() SourceKind {
	return s.kind
}

// Emitted возвращает уровень излучения вокселя (x, y, z) в локальных координатах
func (s LightSource) Emitted(x, y, z int) int {
	switch s.kind {
	case SourceSky:
		if s.base.Y+y > s.heights[x][z] {
			return world.MaxLightLevel
		}
		return 0
	default:
		if s.center == nil {
			return 0
		}
		m, data := s.center.GetLocal(x, y, z)
		if m == nil {
			return 0
		}
		return block.ClampLight(m.LightLevel(data))
	}
}
