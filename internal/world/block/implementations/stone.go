package implementations

import "github.com/annel0/lightcheck/internal/world/block"

// Stone полностью непрозрачен и перекрывает все грани
type Stone struct{}

func (m *Stone) ID() block.MaterialID { return block.StoneID }

func (m *Stone) Name() string { return "Stone" }

func (m *Stone) Opacity(data uint16) int { return block.MaxLightLevel }

func (m *Stone) LightLevel(data uint16) int { return 0 }

func (m *Stone) Occlusion(data uint16) block.FaceSet { return block.FaceSetAll }

// Glowstone непрозрачен, но сам светится на полную яркость
type Glowstone struct{}

func (m *Glowstone) ID() block.MaterialID { return block.GlowstoneID }

func (m *Glowstone) Name() string { return "Glowstone" }

func (m *Glowstone) Opacity(data uint16) int { return block.MaxLightLevel }

func (m *Glowstone) LightLevel(data uint16) int { return block.MaxLightLevel }

func (m *Glowstone) Occlusion(data uint16) block.FaceSet { return block.FaceSetAll }
