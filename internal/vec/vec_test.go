package vec

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3_ChunkCoords(t *testing.T) {
	cases := []struct {
		pos, chunk, local Vec3
	}{
		{Vec3{0, 0, 0}, Vec3{0, 0, 0}, Vec3{0, 0, 0}},
		{Vec3{15, 16, 17}, Vec3{0, 1, 1}, Vec3{15, 0, 1}},
		{Vec3{-1, -16, -17}, Vec3{-1, -1, -2}, Vec3{15, 0, 15}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.chunk, tc.pos.ToChunkCoords(), tc.pos.String())
		assert.Equal(t, tc.local, tc.pos.LocalInChunk(), tc.pos.String())
		assert.Equal(t, tc.pos, tc.chunk.Scale(16).Add(tc.local))
	}
	assert.Equal(t, Vec3{-1, 0, 1}, Vec3{-1, 15, 16}.ToRegionCoords())
	assert.Equal(t, Vec3{0, 0, 0}, Vec3{15, 0, 15}.ToRegionCoords())
}

func TestVec3_Less(t *testing.T) {
	pts := []Vec3{{1, 1, 0}, {0, 0, 1}, {2, 0, 0}, {0, 0, 0}}
	sort.Slice(pts, func(i, j int) bool { return pts[i].Less(pts[j]) })
	assert.Equal(t, []Vec3{{0, 0, 0}, {2, 0, 0}, {0, 0, 1}, {1, 1, 0}}, pts)
}

func TestVec2_At(t *testing.T) {
	col := Vec2{X: 3, Y: -4}
	assert.Equal(t, Vec3{X: 3, Y: 7, Z: -4}, col.At(7))
	assert.Equal(t, "3, -4", col.String())
}
