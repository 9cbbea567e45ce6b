package vec

import "fmt"

// Vec2: ключ колонки мира (X, Z). Z хранится в поле Y.
type Vec2 struct {
	X, Y int
}

// At возвращает точку колонки на высоте y
func (v Vec2) At(y int) Vec3 {
	return Vec3{X: v.X, Y: y, Z: v.Y}
}

func (v Vec2) String() string {
	return fmt.Sprintf("%d, %d", v.X, v.Y)
}
