package implementations

import "github.com/annel0/lightcheck/internal/world/block"

// Air: пустой воксель: свет проходит без затухания
type Air struct{}

func (m *Air) ID() block.MaterialID { return block.AirID }

func (m *Air) Name() string { return "Air" }

func (m *Air) Opacity(data uint16) int { return 0 }

func (m *Air) LightLevel(data uint16) int { return 0 }

func (m *Air) Occlusion(data uint16) block.FaceSet { return block.FaceSetNone }
