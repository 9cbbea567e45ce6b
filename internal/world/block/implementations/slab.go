package implementations

import "github.com/annel0/lightcheck/internal/world/block"

// Значения data для плиты
const (
	SlabBottom uint16 = iota // нижняя половина
	SlabTop                  // верхняя половина
	SlabDouble               // двойная плита, полный блок
)

// Slab: полублок. Перекрытие граней зависит от data, поэтому
// один и тот же материал по-разному пропускает свет сверху и снизу.
type Slab struct{}

func (m *Slab) ID() block.MaterialID { return block.SlabID }

func (m *Slab) Name() string { return "Slab" }

func (m *Slab) Opacity(data uint16) int {
	if data == SlabDouble {
		return block.MaxLightLevel
	}
	return 0
}

func (m *Slab) LightLevel(data uint16) int { return 0 }

func (m *Slab) Occlusion(data uint16) block.FaceSet {
	switch data {
	case SlabBottom:
		return block.FaceSetOf(block.FaceBottom)
	case SlabTop:
		return block.FaceSetOf(block.FaceTop)
	default:
		return block.FaceSetAll
	}
}
