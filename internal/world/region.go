package world

import (
	"github.com/annel0/lightcheck/internal/vec"
)

// Region: единица хранения: куб 16x16x16 слотов чанков.
// Пустой слот означает, что чанк не загружен.
type Region struct {
	Coords vec.Vec3 // Координаты региона в единицах регионов

	chunks [RegionSize * RegionSize * RegionSize]*Chunk
	count  int
}

// NewRegion создаёт пустой регион
func NewRegion(coords vec.Vec3) *Region {
	return &Region{Coords: coords}
}

func regionSlot(x, y, z int) int {
	return (y*RegionSize+z)*RegionSize + x
}

// Chunk возвращает чанк в локальном слоте региона или nil
func (r *Region) Chunk(x, y, z int) *Chunk {
	if x < 0 || x >= RegionSize || y < 0 || y >= RegionSize || z < 0 || z >= RegionSize {
		return nil
	}
	return r.chunks[regionSlot(x, y, z)]
}

// setChunk помещает чанк в слот; возвращает true, если слот был пуст
func (r *Region) setChunk(local vec.Vec3, c *Chunk) bool {
	slot := regionSlot(local.X, local.Y, local.Z)
	wasEmpty := r.chunks[slot] == nil
	r.chunks[slot] = c
	if wasEmpty && c != nil {
		r.count++
	} else if !wasEmpty && c == nil {
		r.count--
	}
	return wasEmpty
}

// ChunkCount возвращает число загруженных чанков
func (r *Region) ChunkCount() int {
	return r.count
}

// Chunks возвращает все загруженные чанки в порядке обхода слотов x, y, z
func (r *Region) Chunks() []*Chunk {
	out := make([]*Chunk, 0, r.count)
	for x := 0; x < RegionSize; x++ {
		for y := 0; y < RegionSize; y++ {
			for z := 0; z < RegionSize; z++ {
				if c := r.chunks[regionSlot(x, y, z)]; c != nil {
					out = append(out, c)
				}
			}
		}
	}
	return out
}
