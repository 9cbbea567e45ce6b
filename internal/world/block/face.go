package block

import (
	"strings"

	"github.com/annel0/lightcheck/internal/vec"
)

// Face обозначает одну из шести осевых граней вокселя
type Face uint8

const (
	FaceNorth  Face = iota // -X
	FaceEast               // -Z
	FaceSouth              // +X
	FaceWest               // +Z
	FaceBottom             // -Y
	FaceTop                // +Y
)

// AllFaces содержит грани в порядке N, E, S, W, B, T
var AllFaces = [6]Face{FaceNorth, FaceEast, FaceSouth, FaceWest, FaceBottom, FaceTop}

var faceOffsets = [6]vec.Vec3{
	FaceNorth:  {X: -1},
	FaceEast:   {Z: -1},
	FaceSouth:  {X: 1},
	FaceWest:   {Z: 1},
	FaceBottom: {Y: -1},
	FaceTop:    {Y: 1},
}

var faceNames = [6]string{"north", "east", "south", "west", "bottom", "top"}

// Offset возвращает единичный вектор смещения к соседу через эту грань
func (f Face) Offset() vec.Vec3 {
	return faceOffsets[f]
}

// Opposite возвращает противоположную грань
func (f Face) Opposite() Face {
	switch f {
	case FaceNorth:
		return FaceSouth
	case FaceSouth:
		return FaceNorth
	case FaceEast:
		return FaceWest
	case FaceWest:
		return FaceEast
	case FaceBottom:
		return FaceTop
	default:
		return FaceBottom
	}
}

func (f Face) String() string {
	if int(f) < len(faceNames) {
		return faceNames[f]
	}
	return "unknown"
}

// ParseFace разбирает имя грани без учёта регистра
func ParseFace(s string) (Face, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range faceNames {
		if name == s {
			return Face(i), true
		}
	}
	return 0, false
}

// FaceSet: битовое множество граней, полностью перекрывающих свет
type FaceSet uint8

const (
	FaceSetNone FaceSet = 0
	FaceSetAll  FaceSet = 1<<6 - 1
)

// FaceSetOf собирает множество из перечисленных граней
func FaceSetOf(faces ...Face) FaceSet {
	var s FaceSet
	for _, f := range faces {
		s = s.With(f)
	}
	return s
}

// Has сообщает, входит ли грань в множество
func (s FaceSet) Has(f Face) bool {
	return s&(1<<f) != 0
}

// With возвращает множество с добавленной гранью
func (s FaceSet) With(f Face) FaceSet {
	return s | 1<<f
}

func (s FaceSet) String() string {
	if s == FaceSetNone {
		return "none"
	}
	parts := make([]string, 0, 6)
	for _, f := range AllFaces {
		if s.Has(f) {
			parts = append(parts, f.String())
		}
	}
	return strings.Join(parts, ",")
}
