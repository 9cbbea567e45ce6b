package lighting

import (
	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
)

// Translate переводит локальную координату c со смещением d в пару
// (слот соседнего чанка 0..2, координата внутри этого чанка).
// Слот 0: предыдущий чанк, 1: тот же, 2: следующий.
func Translate(c, d int) (slot, wrapped int) {
	v := c + d
	switch {
	case v < 0:
		return 0, v + world.ChunkSize
	case v >= world.ChunkSize:
		return 2, v - world.ChunkSize
	default:
		return 1, v
	}
}

// TranslateVec применяет Translate независимо к каждой оси
func TranslateVec(local, delta vec.Vec3) (slot, wrapped vec.Vec3) {
	slot.X, wrapped.X = Translate(local.X, delta.X)
	slot.Y, wrapped.Y = Translate(local.Y, delta.Y)
	slot.Z, wrapped.Z = Translate(local.Z, delta.Z)
	return slot, wrapped
}
