package implementations

import "github.com/annel0/lightcheck/internal/world/block"

// Log: ствол дерева, непрозрачен
type Log struct{}

func (m *Log) ID() block.MaterialID { return block.LogID }

func (m *Log) Name() string { return "Log" }

func (m *Log) Opacity(data uint16) int { return block.MaxLightLevel }

func (m *Log) LightLevel(data uint16) int { return 0 }

func (m *Log) Occlusion(data uint16) block.FaceSet { return block.FaceSetAll }

// Leaves слегка затеняют, но грани не перекрывают
type Leaves struct{}

func (m *Leaves) ID() block.MaterialID { return block.LeavesID }

func (m *Leaves) Name() string { return "Leaves" }

func (m *Leaves) Opacity(data uint16) int { return 1 }

func (m *Leaves) LightLevel(data uint16) int { return 0 }

func (m *Leaves) Occlusion(data uint16) block.FaceSet { return block.FaceSetNone }
