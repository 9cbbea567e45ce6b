package implementations

import "github.com/annel0/lightcheck/internal/world/block"

const torchLight = 14

// Torch светится с уровнем 14; data: сторона крепления, на свет не влияет
type Torch struct{}

func (m *Torch) ID() block.MaterialID { return block.TorchID }

func (m *Torch) Name() string { return "Torch" }

func (m *Torch) Opacity(data uint16) int { return 0 }

func (m *Torch) LightLevel(data uint16) int { return torchLight }

func (m *Torch) Occlusion(data uint16) block.FaceSet { return block.FaceSetNone }

// Glass прозрачно и не перекрывает грани
type Glass struct{}

func (m *Glass) ID() block.MaterialID { return block.GlassID }

func (m *Glass) Name() string { return "Glass" }

func (m *Glass) Opacity(data uint16) int { return 0 }

func (m *Glass) LightLevel(data uint16) int { return 0 }

func (m *Glass) Occlusion(data uint16) block.FaceSet { return block.FaceSetNone }
