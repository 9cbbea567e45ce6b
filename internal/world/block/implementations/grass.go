package implementations

import "github.com/annel0/lightcheck/internal/world/block"

// Grass ведёт себя как земля; data хранит стадию роста и на свет не влияет
type Grass struct{}

func (m *Grass) ID() block.MaterialID { return block.GrassID }

func (m *Grass) Name() string { return "Grass" }

func (m *Grass) Opacity(data uint16) int { return block.MaxLightLevel }

func (m *Grass) LightLevel(data uint16) int { return 0 }

func (m *Grass) Occlusion(data uint16) block.FaceSet { return block.FaceSetAll }
