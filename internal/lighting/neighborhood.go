package lighting

import (
	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
	"github.com/annel0/lightcheck/internal/world/block"
)

// ChunkSource: то, что проверке нужно от хранилища мира.
// Chunk с world.NoLoad никогда не должен инициировать загрузку.
type ChunkSource interface {
	Chunk(cx, cy, cz int, opt world.LoadOption) *world.Chunk
	SurfaceHeight(x, z int) int
}

// WorldSource дополняет ChunkSource перечислением загруженных регионов
type WorldSource interface {
	ChunkSource
	Regions() []*world.Region
}

// MissingLight помечает в окне соседа, чей буфер освещённости неизвестен
const MissingLight = -1

// Neighborhood: буферы 27 чанков вокруг проверяемого (сам чанк в [1][1][1]).
// nil означает незагруженный чанк.
type Neighborhood struct {
	Channel   world.LightChannel
	Materials [3][3][3]*world.MaterialBuffer
	Light     [3][3][3]*world.LightBuffer
}

// AssembleNeighborhood собирает буферы соседей чанка c для канала ch.
// Центр берётся из самого c, соседи: из src без загрузки.
func AssembleNeighborhood(src ChunkSource, c *world.Chunk, ch world.LightChannel) *Neighborhood {
	n := &Neighborhood{Channel: ch}
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			for z := 0; z < 3; z++ {
				var nc *world.Chunk
				if x == 1 && y == 1 && z == 1 {
					nc = c
				} else {
					nc = src.Chunk(c.Coords.X-1+x, c.Coords.Y-1+y, c.Coords.Z-1+z, world.NoLoad)
				}
				if nc == nil {
					continue
				}
				n.Materials[x][y][z] = nc.MaterialBuffer()
				n.Light[x][y][z] = nc.LightBuffer(ch)
			}
		}
	}
	return n
}

// Window: окно 3x3x3 вокруг одного вокселя. Переиспользуется между вокселями,
// поэтому хранится по значению и заполняется через Neighborhood.Sample.
type Window struct {
	Materials [3][3][3]block.Material
	Data      [3][3][3]uint16
	Light     [3][3][3]int
}

// Center возвращает материал, data и освещённость центрального вокселя
func (w *Window) Center() (block.Material, uint16, int) {
	return w.Materials[1][1][1], w.Data[1][1][1], w.Light[1][1][1]
}

// Sample заполняет окно вокруг локальной координаты local
func (n *Neighborhood) Sample(local vec.Vec3, win *Window) {
	for dx := -1; dx <= 1; dx++ {
		sx, wx := Translate(local.X, dx)
		for dy := -1; dy <= 1; dy++ {
			sy, wy := Translate(local.Y, dy)
			for dz := -1; dz <= 1; dz++ {
				sz, wz := Translate(local.Z, dz)

				mb := n.Materials[sx][sy][sz]
				if mb == nil {
					win.Materials[dx+1][dy+1][dz+1] = nil
					win.Data[dx+1][dy+1][dz+1] = 0
				} else {
					m, data := mb.GetLocal(wx, wy, wz)
					win.Materials[dx+1][dy+1][dz+1] = m
					win.Data[dx+1][dy+1][dz+1] = data
				}

				lb := n.Light[sx][sy][sz]
				if lb == nil {
					win.Light[dx+1][dy+1][dz+1] = MissingLight
				} else {
					// Значимы только младшие 4 бита ячейки
					win.Light[dx+1][dy+1][dz+1] = int(lb.GetLocal(wx, wy, wz) & 0x0F)
				}
			}
		}
	}
}
