package world

import (
	"sort"
	"sync"

	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world/block"
)

// LoadOption определяет поведение при запросе отсутствующего чанка
type LoadOption int

const (
	// NoLoad возвращает nil для незагруженного чанка
	NoLoad LoadOption = iota
	// LoadOrCreate создаёт пустой чанк
	LoadOrCreate
)

// MinHeight: высота поверхности для колонки без единого блока
const MinHeight = -1 << 30

// World хранит загруженные регионы и карту высот поверхности
type World struct {
	Name string

	regions map[vec.Vec3]*Region
	heights map[vec.Vec2]int
	chunks  int
	mu      sync.RWMutex
}

// NewWorld создаёт пустой мир
func NewWorld(name string) *World {
	return &World{
		Name:    name,
		regions: make(map[vec.Vec3]*Region),
		heights: make(map[vec.Vec2]int),
	}
}

// Chunk возвращает чанк по координатам чанка
func (w *World) Chunk(cx, cy, cz int, opt LoadOption) *Chunk {
	return w.ChunkAt(vec.Vec3{X: cx, Y: cy, Z: cz}, opt)
}

// ChunkAt возвращает чанк по координатам чанка
func (w *World) ChunkAt(coords vec.Vec3, opt LoadOption) *Chunk {
	rc := coords.ToRegionCoords()
	local := coords.LocalInChunk()

	w.mu.RLock()
	r := w.regions[rc]
	var c *Chunk
	if r != nil {
		c = r.Chunk(local.X, local.Y, local.Z)
	}
	w.mu.RUnlock()

	if c != nil || opt == NoLoad {
		return c
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Повторная проверка под write lock
	r = w.regions[rc]
	if r == nil {
		r = NewRegion(rc)
		w.regions[rc] = r
	}
	if c = r.Chunk(local.X, local.Y, local.Z); c != nil {
		return c
	}
	c = NewChunk(coords)
	r.setChunk(local, c)
	w.chunks++
	return c
}

// AddChunk помещает готовый чанк в мир, заменяя существующий
func (w *World) AddChunk(c *Chunk) {
	rc := c.Coords.ToRegionCoords()

	w.mu.Lock()
	defer w.mu.Unlock()

	r := w.regions[rc]
	if r == nil {
		r = NewRegion(rc)
		w.regions[rc] = r
	}
	if r.setChunk(c.Coords.LocalInChunk(), c) {
		w.chunks++
	}
}

// Regions возвращает уже загруженные регионы, отсортированные по координатам
func (w *World) Regions() []*Region {
	w.mu.RLock()
	out := make([]*Region, 0, len(w.regions))
	for _, r := range w.regions {
		out = append(out, r)
	}
	w.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Coords, out[j].Coords
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return out
}

// ChunkCount возвращает число загруженных чанков
func (w *World) ChunkCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chunks
}

// SurfaceHeight возвращает Y самого верхнего непустого блока колонки
func (w *World) SurfaceHeight(x, z int) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if h, ok := w.heights[vec.Vec2{X: x, Y: z}]; ok {
		return h
	}
	return MinHeight
}

// SetSurfaceHeight явно задаёт высоту колонки
func (w *World) SetSurfaceHeight(x, z, h int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if h <= MinHeight {
		delete(w.heights, vec.Vec2{X: x, Y: z})
		return
	}
	w.heights[vec.Vec2{X: x, Y: z}] = h
}

// SurfaceMap возвращает копию карты высот
func (w *World) SurfaceMap() map[vec.Vec2]int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[vec.Vec2]int, len(w.heights))
	for k, v := range w.heights {
		out[k] = v
	}
	return out
}

// SetBlock ставит материал по мировым координатам, создавая чанк при необходимости,
// и поддерживает карту высот в актуальном состоянии.
func (w *World) SetBlock(pos vec.Vec3, id block.MaterialID, data uint16) {
	c := w.ChunkAt(pos.ToChunkCoords(), LoadOrCreate)
	c.SetMaterial(pos.LocalInChunk(), id, data)

	h := w.SurfaceHeight(pos.X, pos.Z)
	switch {
	case id != block.AirID && pos.Y > h:
		w.SetSurfaceHeight(pos.X, pos.Z, pos.Y)
	case id == block.AirID && pos.Y == h:
		w.RecalculateSurface(pos.X, pos.Z)
	}
}

// Block возвращает материал по мировым координатам; ok=false для незагруженного чанка
func (w *World) Block(pos vec.Vec3) (m block.Material, data uint16, ok bool) {
	c := w.ChunkAt(pos.ToChunkCoords(), NoLoad)
	if c == nil {
		return nil, 0, false
	}
	m, data = c.Material(pos.LocalInChunk())
	return m, data, true
}

// SetLight записывает освещённость по мировым координатам, если чанк загружен
func (w *World) SetLight(ch LightChannel, pos vec.Vec3, level int) bool {
	c := w.ChunkAt(pos.ToChunkCoords(), NoLoad)
	if c == nil {
		return false
	}
	c.SetLight(ch, pos.LocalInChunk(), level)
	return true
}

// Light возвращает освещённость по мировым координатам
func (w *World) Light(ch LightChannel, pos vec.Vec3) (int, bool) {
	c := w.ChunkAt(pos.ToChunkCoords(), NoLoad)
	if c == nil {
		return 0, false
	}
	return c.Light(ch, pos.LocalInChunk()), true
}

// RecalculateSurface пересчитывает высоту колонки по загруженным чанкам
func (w *World) RecalculateSurface(x, z int) {
	pos := vec.Vec2{X: x, Y: z}.At(0)
	col, local := pos.ToChunkCoords(), pos.LocalInChunk()

	top := MinHeight
	for _, r := range w.Regions() {
		for _, c := range r.Chunks() {
			if c.Coords.X != col.X || c.Coords.Z != col.Z {
				continue
			}
			base := c.Base()
			for y := ChunkSize - 1; y >= 0; y-- {
				if base.Y+y <= top {
					break
				}
				if c.materials.IDLocal(local.X, y, local.Z) != block.AirID {
					top = base.Y + y
					break
				}
			}
		}
	}
	w.SetSurfaceHeight(x, z, top)
}
