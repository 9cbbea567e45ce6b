package block

// MaxLightLevel: максимальный уровень освещённости
const MaxLightLevel = 15

// Material описывает статические световые свойства материала.
// Все методы зависят только от значения data и не имеют побочных эффектов.
type Material interface {
	ID() MaterialID
	Name() string
	// Opacity: сколько уровней света теряется при входе в воксель
	Opacity(data uint16) int
	// LightLevel: собственное излучение (0..15)
	LightLevel(data uint16) int
	// Occlusion: грани, полностью перекрывающие поток света
	Occlusion(data uint16) FaceSet
}

// StaticMaterial: материал, свойства которого не зависят от data
type StaticMaterial struct {
	MaterialID MaterialID
	MatName    string
	Opaque     int
	Light      int
	Occludes   FaceSet
}

func (m *StaticMaterial) ID() MaterialID           { return m.MaterialID }
func (m *StaticMaterial) Name() string             { return m.MatName }
func (m *StaticMaterial) Opacity(uint16) int       { return m.Opaque }
func (m *StaticMaterial) LightLevel(uint16) int    { return m.Light }
func (m *StaticMaterial) Occlusion(uint16) FaceSet { return m.Occludes }

// ClampLight ограничивает уровень диапазоном 0..15
func ClampLight(level int) int {
	if level < 0 {
		return 0
	}
	if level > MaxLightLevel {
		return MaxLightLevel
	}
	return level
}
