package worldgen

import (
	"math/rand"

	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
)

// Corruption описывает одну испорченную ячейку освещённости
type Corruption struct {
	Pos     vec.Vec3
	Channel world.LightChannel
	Before  int
	After   int
}

// Corrupt меняет n случайных ячеек освещённости на другое значение.
// Используется для демонстрации работы проверки.
func Corrupt(w *world.World, n int, rng *rand.Rand) []Corruption {
	var chunks []*world.Chunk
	for _, r := range w.Regions() {
		chunks = append(chunks, r.Chunks()...)
	}
	if len(chunks) == 0 {
		return nil
	}

	out := make([]Corruption, 0, n)
	for i := 0; i < n; i++ {
		c := chunks[rng.Intn(len(chunks))]
		ch := world.Channels[rng.Intn(len(world.Channels))]
		local := vec.Vec3{X: rng.Intn(world.ChunkSize), Y: rng.Intn(world.ChunkSize), Z: rng.Intn(world.ChunkSize)}

		before := c.Light(ch, local)
		after := (before + 1 + rng.Intn(world.MaxLightLevel)) % (world.MaxLightLevel + 1)
		c.SetLight(ch, local, after)
		out = append(out, Corruption{Pos: c.Base().Add(local), Channel: ch, Before: before, After: after})
	}
	return out
}
