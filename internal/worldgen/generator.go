package worldgen

import (
	"math/rand"

	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
	"github.com/annel0/lightcheck/internal/world/block"
	"github.com/annel0/lightcheck/internal/world/block/implementations"
)

// Generator заполняет прямоугольную область мира рельефом по шуму Перлина
type Generator struct {
	Seed          int64
	BaseHeight    int     // средняя высота поверхности
	Amplitude     float64 // размах высот
	Scale         float64 // частота шума
	SeaLevel      int     // уровень воды
	TorchChance   float64 // вероятность факела на суше, на колонку
	LilyPadChance float64 // вероятность кувшинки на воде, на колонку

	noise *Noise
	rng   *rand.Rand
}

// NewGenerator создаёт генератор с параметрами по умолчанию
func NewGenerator(seed int64) *Generator {
	return &Generator{
		Seed:          seed,
		BaseHeight:    24,
		Amplitude:     14,
		Scale:         0.04,
		SeaLevel:      22,
		TorchChance:   0.02,
		LilyPadChance: 0.1,
		noise:         NewNoise(seed),
		rng:           rand.New(rand.NewSource(seed)),
	}
}

// Generate создаёт все чанки в прямоугольнике [origin, origin+size) (в чанках)
// и наполняет их рельефом. Чанки создаются даже полностью пустыми, чтобы
// у неба были буферы освещённости.
func (g *Generator) Generate(w *world.World, origin, size vec.Vec3) {
	for cx := origin.X; cx < origin.X+size.X; cx++ {
		for cy := origin.Y; cy < origin.Y+size.Y; cy++ {
			for cz := origin.Z; cz < origin.Z+size.Z; cz++ {
				w.Chunk(cx, cy, cz, world.LoadOrCreate)
			}
		}
	}

	minY := origin.Y * world.ChunkSize
	maxY := (origin.Y+size.Y)*world.ChunkSize - 1
	lily := &implementations.LilyPad{}

	for x := origin.X * world.ChunkSize; x < (origin.X+size.X)*world.ChunkSize; x++ {
		for z := origin.Z * world.ChunkSize; z < (origin.Z+size.Z)*world.ChunkSize; z++ {
			h := g.heightAt(x, z)
			if h > maxY-2 {
				h = maxY - 2
			}
			if h < minY {
				h = minY
			}

			for y := minY; y <= h; y++ {
				pos := vec.Vec3{X: x, Y: y, Z: z}
				switch {
				case y < h-3:
					w.SetBlock(pos, block.StoneID, 0)
				case y < h:
					w.SetBlock(pos, block.DirtID, 0)
				case h <= g.SeaLevel+1:
					w.SetBlock(pos, block.SandID, 0)
				default:
					w.SetBlock(pos, block.GrassID, 0)
				}
			}

			if h < g.SeaLevel && g.SeaLevel < maxY {
				for y := h + 1; y <= g.SeaLevel; y++ {
					w.SetBlock(vec.Vec3{X: x, Y: y, Z: z}, block.WaterID, 0)
				}
				g.decorateLilyPad(w, lily, vec.Vec3{X: x, Y: g.SeaLevel + 1, Z: z})
				continue
			}

			if g.rng.Float64() < g.TorchChance {
				w.SetBlock(vec.Vec3{X: x, Y: h + 1, Z: z}, block.TorchID, 0)
			}
		}
	}
}

// decorateLilyPad ставит кувшинку над водой со случайным поворотом
func (g *Generator) decorateLilyPad(w *world.World, lily *implementations.LilyPad, pos vec.Vec3) {
	if g.rng.Float64() >= g.LilyPadChance {
		return
	}
	below, _, ok := w.Block(pos.Add(vec.Vec3{Y: -1}))
	if !ok || !lily.CanPlaceOn(below) {
		return
	}
	if _, _, ok := w.Block(pos); !ok {
		return
	}
	w.SetBlock(pos, block.LilyPadID, uint16(g.rng.Intn(4)))
}

func (g *Generator) heightAt(x, z int) int {
	n := g.noise.Noise2D(float64(x)*g.Scale, float64(z)*g.Scale)
	return g.BaseHeight + int((n-0.5)*2*g.Amplitude)
}
