package implementations

import "github.com/annel0/lightcheck/internal/world/block"

// LilyPad: кувшинка на поверхности воды. Прозрачна для света.
// data хранит поворот листа.
type LilyPad struct{}

func (m *LilyPad) ID() block.MaterialID { return block.LilyPadID }

func (m *LilyPad) Name() string { return "LilyPad" }

func (m *LilyPad) Opacity(data uint16) int { return 0 }

func (m *LilyPad) LightLevel(data uint16) int { return 0 }

func (m *LilyPad) Occlusion(data uint16) block.FaceSet { return block.FaceSetNone }

// CanPlaceOn сообщает, можно ли посадить кувшинку над материалом below
func (m *LilyPad) CanPlaceOn(below block.Material) bool {
	return below != nil && below.ID() == block.WaterID
}
