package lighting

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/lightcheck/internal/metrics"
	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
	"github.com/annel0/lightcheck/internal/world/block"
	"github.com/annel0/lightcheck/internal/worldgen"
)

// flatWorld создаёт один чанк с каменным полом на нижнем слое
// и открытым небом (уровень 15) над ним.
func flatWorld(t *testing.T, coords vec.Vec3) (*world.World, *world.Chunk) {
	t.Helper()

	w := world.NewWorld("flat")
	c := w.ChunkAt(coords, world.LoadOrCreate)
	base := c.Base()
	for x := 0; x < world.ChunkSize; x++ {
		for z := 0; z < world.ChunkSize; z++ {
			w.SetBlock(base.Add(vec.Vec3{X: x, Z: z}), block.StoneID, 0)
			for y := 1; y < world.ChunkSize; y++ {
				c.SetLight(world.SkyLight, vec.Vec3{X: x, Y: y, Z: z}, 15)
			}
		}
	}
	require.Equal(t, base.Y, w.SurfaceHeight(base.X, base.Z))
	return w, c
}

func generatedWorld(t *testing.T, seed int64) *world.World {
	t.Helper()

	w := world.NewWorld("generated")
	worldgen.NewGenerator(seed).Generate(w, vec.Vec3{X: -1, Y: 0, Z: -1}, vec.Vec3{X: 2, Y: 3, Z: 2})
	worldgen.Relight(w)
	return w
}

func TestVerifier_OpenSkyIsClean(t *testing.T) {
	w, _ := flatWorld(t, vec.Vec3{})
	collector := NewCollector()

	summary, err := NewVerifier(w, WithReporter(collector)).CheckAll(context.Background())
	require.NoError(t, err)

	assert.Zero(t, collector.Len(), "нарушения: %v", collector.Violations())
	assert.True(t, summary.Clean())
	assert.Equal(t, 1, summary.Chunks)
	assert.Equal(t, 1, summary.Regions)
	assert.Equal(t, int64(2*world.ChunkVolume), summary.Voxels)
	assert.Equal(t, "flat", summary.World)
	assert.NotEmpty(t, summary.RunID)
}

func TestVerifier_SingleCorruptedVoxel(t *testing.T) {
	w, c := flatWorld(t, vec.Vec3{X: 1, Y: 0, Z: -1})
	local := vec.Vec3{X: 5, Y: 8, Z: 5}
	c.SetLight(world.SkyLight, local, 10)
	want := c.Base().Add(local)
	require.Equal(t, vec.Vec3{X: 21, Y: 8, Z: -11}, want)

	collector := NewCollector()
	summary, err := NewVerifier(w, WithReporter(collector)).CheckAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, collector.Count(RuleA))
	assert.Zero(t, collector.Count(RuleC))
	for _, v := range collector.Violations() {
		assert.Equal(t, want, v.Pos, "нарушение не на испорченном вокселе: %s", v)
		assert.Equal(t, world.SkyLight, v.Channel)
	}

	// Соседи с уровнем 15 дают поток 14 > 10
	assert.Equal(t, 1, collector.Count(RuleB))

	viols := collector.Violations()
	require.NotEmpty(t, viols)
	assert.Equal(t, "Light below emit level 15 > 10 at 21, 8, -11", viols[0].String())
	assert.Equal(t, 1, summary.Violations[world.SkyLight][RuleA])
	assert.Zero(t, summary.Violations[world.BlockLight][RuleA])
}

func TestVerifier_EnclosedVoxelWithoutSource(t *testing.T) {
	w := world.NewWorld("enclosed")
	c := w.ChunkAt(vec.Vec3{}, world.LoadOrCreate)
	center := vec.Vec3{X: 8, Y: 8, Z: 8}

	// Полый каменный куб 3x3x3 с воздухом внутри
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				c.SetMaterial(center.Add(vec.Vec3{X: dx, Y: dy, Z: dz}), block.StoneID, 0)
			}
		}
	}
	c.SetLight(world.BlockLight, center, 7)

	collector := NewCollector()
	_, err := NewVerifier(w, WithReporter(collector), WithChannels(world.BlockLight)).CheckAll(context.Background())
	require.NoError(t, err)

	viols := collector.Violations()
	require.Len(t, viols, 1)
	assert.Equal(t, RuleC, viols[0].Rule)
	assert.Equal(t, center, viols[0].Pos)
	assert.Equal(t, 0, viols[0].Inward)
}

func TestVerifier_MissingNeighborsAreNeutral(t *testing.T) {
	// Один чанк без карты высот: небо излучает 15 везде
	w := world.NewWorld("lonely")
	c := w.ChunkAt(vec.Vec3{X: 3, Y: -2, Z: 7}, world.LoadOrCreate)
	c.Fill(world.SkyLight, 15)

	summary, err := NewVerifier(w).CheckAll(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Clean())
}

func TestVerifier_TorchFieldIsConsistent(t *testing.T) {
	w := world.NewWorld("torch")
	c := w.ChunkAt(vec.Vec3{}, world.LoadOrCreate)
	c.Fill(world.SkyLight, 15)

	torch := vec.Vec3{X: 8, Y: 8, Z: 8}
	c.SetMaterial(torch, block.TorchID, 0)
	for x := 0; x < world.ChunkSize; x++ {
		for y := 0; y < world.ChunkSize; y++ {
			for z := 0; z < world.ChunkSize; z++ {
				d := abs(x-torch.X) + abs(y-torch.Y) + abs(z-torch.Z)
				if level := 14 - d; level > 0 {
					c.SetLight(world.BlockLight, vec.Vec3{X: x, Y: y, Z: z}, level)
				}
			}
		}
	}

	collector := NewCollector()
	summary, err := NewVerifier(w, WithReporter(collector)).CheckAll(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Clean(), "нарушения: %v", collector.Violations())
}

func TestVerifier_RelitWorldIsClean(t *testing.T) {
	w := generatedWorld(t, 42)
	collector := NewCollector()

	summary, err := NewVerifier(w, WithReporter(collector), WithWorkers(4)).CheckAll(context.Background())
	require.NoError(t, err)

	assert.Zero(t, collector.Len(), "первые нарушения: %v", firstN(collector.Violations(), 5))
	assert.Empty(t, summary.Failures)
	assert.Equal(t, 12, summary.Chunks)
}

func TestVerifier_DetectsCorruption(t *testing.T) {
	w := generatedWorld(t, 7)
	corrupted := worldgen.Corrupt(w, 25, rand.New(rand.NewSource(1)))
	require.NotEmpty(t, corrupted)

	collector := NewCollector()
	summary, err := NewVerifier(w, WithReporter(collector)).CheckAll(context.Background())
	require.NoError(t, err)
	assert.False(t, summary.Clean())

	// Каждая испорченная ячейка либо сама нарушает правило, либо выдаёт себя через соседа
	flagged := make(map[vec.Vec3]bool)
	for _, v := range collector.Violations() {
		flagged[v.Pos] = true
	}
	for _, cr := range corrupted {
		hit := flagged[cr.Pos]
		for _, f := range block.AllFaces {
			hit = hit || flagged[cr.Pos.Add(f.Offset())]
		}
		assert.True(t, hit, "порча %+v не обнаружена", cr)
	}
}

func TestVerifier_ParallelMatchesSequential(t *testing.T) {
	w := generatedWorld(t, 99)
	worldgen.Corrupt(w, 40, rand.New(rand.NewSource(5)))

	seq := NewCollector()
	seqSummary, err := NewVerifier(w, WithReporter(seq)).CheckAll(context.Background())
	require.NoError(t, err)

	par := NewCollector()
	parSummary, err := NewVerifier(w, WithReporter(par), WithWorkers(8)).CheckAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, seq.Violations(), par.Violations())
	assert.Equal(t, seqSummary.Violations, parSummary.Violations)
	assert.Equal(t, seqSummary.Voxels, parSummary.Voxels)
	assert.Equal(t, seqSummary.Chunks, parSummary.Chunks)
}

func TestVerifier_MissingLightBufferIsChunkFailure(t *testing.T) {
	w := world.NewWorld("broken")
	broken := w.ChunkAt(vec.Vec3{}, world.LoadOrCreate)
	healthy := w.ChunkAt(vec.Vec3{X: 1}, world.LoadOrCreate)
	broken.Fill(world.SkyLight, 15)
	healthy.Fill(world.SkyLight, 15)
	broken.SetLightBuffer(world.BlockLight, nil)

	m := metrics.NewAuditMetrics(nil)
	summary, err := NewVerifier(w, WithMetrics(m)).CheckAll(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Failures, 1)
	assert.Equal(t, vec.Vec3{}, summary.Failures[0].Coords)
	assert.Equal(t, world.BlockLight, summary.Failures[0].Channel)
	assert.Equal(t, 2, summary.Chunks)
	// Три канала из четырёх проверены полностью
	assert.Equal(t, int64(3*world.ChunkVolume), summary.Voxels)
	assert.Zero(t, summary.TotalViolations())
	assert.False(t, summary.Clean())

	_, err = NewVerifier(w).CheckChunkChannel(context.Background(), broken, world.BlockLight)
	var ce *ChunkError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, ErrNoLightBuffer)
	assert.Equal(t, world.BlockLight, ce.Channel)
}

func TestVerifier_UnknownMaterial(t *testing.T) {
	w := world.NewWorld("unknown")
	c := w.ChunkAt(vec.Vec3{}, world.LoadOrCreate)
	c.SetMaterial(vec.Vec3{X: 1, Y: 2, Z: 3}, block.MaterialID(999), 0)

	results, err := NewVerifier(w).CheckChunk(context.Background(), c)
	assert.Empty(t, results)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownMaterial))
	assert.Contains(t, err.Error(), "999")
}

func TestVerifier_Cancelled(t *testing.T) {
	w := generatedWorld(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := NewVerifier(w).CheckAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Zero(t, summary.Chunks)

	_, err = NewVerifier(w, WithWorkers(4)).CheckAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerifier_ChannelReporter(t *testing.T) {
	w, c := flatWorld(t, vec.Vec3{})
	c.SetLight(world.SkyLight, vec.Vec3{X: 1, Y: 1, Z: 1}, 0)

	ch := make(chan Violation, 16)
	_, err := NewVerifier(w, WithReporter(ChannelReporter(ch)), WithChannels(world.SkyLight)).CheckAll(context.Background())
	require.NoError(t, err)
	close(ch)

	var got []Rule
	for v := range ch {
		assert.Equal(t, vec.Vec3{X: 1, Y: 1, Z: 1}, v.Pos)
		got = append(got, v.Rule)
	}
	assert.ElementsMatch(t, []Rule{RuleA, RuleB}, got)
}

func firstN(vs []Violation, n int) []Violation {
	if len(vs) > n {
		return vs[:n]
	}
	return vs
}
