package implementations

import "github.com/annel0/lightcheck/internal/world/block"

// waterOpacity: потеря света на один блок воды сверх обычного шага
const waterOpacity = 2

// Water пропускает свет с затуханием. data: уровень жидкости (0 = источник),
// на оптические свойства не влияет.
type Water struct{}

func (m *Water) ID() block.MaterialID { return block.WaterID }

func (m *Water) Name() string { return "Water" }

func (m *Water) Opacity(data uint16) int { return waterOpacity }

func (m *Water) LightLevel(data uint16) int { return 0 }

func (m *Water) Occlusion(data uint16) block.FaceSet { return block.FaceSetNone }
