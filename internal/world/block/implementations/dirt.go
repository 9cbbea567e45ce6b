package implementations

import "github.com/annel0/lightcheck/internal/world/block"

func newDirt() block.Material {
	return &block.StaticMaterial{
		MaterialID: block.DirtID,
		MatName:    "Dirt",
		Opaque:     block.MaxLightLevel,
		Occludes:   block.FaceSetAll,
	}
}

func newSand() block.Material {
	return &block.StaticMaterial{
		MaterialID: block.SandID,
		MatName:    "Sand",
		Opaque:     block.MaxLightLevel,
		Occludes:   block.FaceSetAll,
	}
}
