package worldgen

import (
	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
	"github.com/annel0/lightcheck/internal/world/block"
)

// Relight заново заполняет оба канала освещённости всех загруженных чанков.
//
// Это эталонное распространение для генерации тестовых и демонстрационных
// миров: уровень вокселя равен максимуму из собственного излучения и
// (уровень соседа - 1 - непрозрачность вокселя) по неперекрытым граням.
// Свет не выходит за пределы загруженных чанков.
func Relight(w *world.World) {
	for _, ch := range world.Channels {
		RelightChannel(w, ch)
	}
}

// RelightChannel заполняет один канал
func RelightChannel(w *world.World, ch world.LightChannel) {
	var queue []vec.Vec3

	for _, r := range w.Regions() {
		for _, c := range r.Chunks() {
			if c.LightBuffer(ch) == nil {
				continue
			}
			base := c.Base()
			for x := 0; x < world.ChunkSize; x++ {
				for z := 0; z < world.ChunkSize; z++ {
					surface := w.SurfaceHeight(base.X+x, base.Z+z)
					for y := 0; y < world.ChunkSize; y++ {
						local := vec.Vec3{X: x, Y: y, Z: z}
						level := emittedAt(c, ch, local, surface)
						c.SetLight(ch, local, level)
						if level > 0 {
							queue = append(queue, base.Add(local))
						}
					}
				}
			}
		}
	}

	for len(queue) > 0 {
		pos := queue[0]
		queue = queue[1:]

		level, ok := w.Light(ch, pos)
		if !ok || level <= 1 {
			continue
		}
		if m, _, _ := w.Block(pos); m == nil {
			continue
		}

		for _, f := range block.AllFaces {
			npos := pos.Add(f.Offset())
			nc := w.ChunkAt(npos.ToChunkCoords(), world.NoLoad)
			if nc == nil || nc.LightBuffer(ch) == nil {
				continue
			}
			local := npos.LocalInChunk()
			m, data := nc.Material(local)
			if m == nil {
				continue
			}
			// Свет входит в соседа через его грань, обращённую к pos
			if m.Occlusion(data).Has(f.Opposite()) {
				continue
			}
			candidate := level - 1 - m.Opacity(data)
			if candidate > nc.Light(ch, local) {
				nc.SetLight(ch, local, candidate)
				queue = append(queue, npos)
			}
		}
	}
}

func emittedAt(c *world.Chunk, ch world.LightChannel, local vec.Vec3, surface int) int {
	if ch == world.SkyLight {
		if c.Base().Y+local.Y > surface {
			return world.MaxLightLevel
		}
		return 0
	}
	m, data := c.Material(local)
	if m == nil {
		return 0
	}
	return block.ClampLight(m.LightLevel(data))
}
