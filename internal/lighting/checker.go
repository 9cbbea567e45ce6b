package lighting

import (
	"fmt"

	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
	"github.com/annel0/lightcheck/internal/world/block"
)

// FlowFrom возвращает уровень, который мог бы прийти в центр окна через грань f.
// Отсутствующий сосед, неизвестная освещённость соседа и перекрытая грань
// центра дают 0. Результат может быть отрицательным.
func FlowFrom(f block.Face, win *Window) int {
	o := f.Offset()
	ox, oy, oz := o.X+1, o.Y+1, o.Z+1

	if win.Materials[ox][oy][oz] == nil {
		return 0
	}
	neighborLight := win.Light[ox][oy][oz]
	if neighborLight == MissingLight {
		return 0
	}

	center, data := win.Materials[1][1][1], win.Data[1][1][1]
	if center == nil {
		return 0
	}
	if center.Occlusion(data).Has(f) {
		return 0
	}
	return neighborLight - 1 - center.Opacity(data)
}

// InwardFlow: лучший входящий поток по шести граням (диагонали не учитываются)
func InwardFlow(win *Window) int {
	best := 0
	for _, f := range block.AllFaces {
		if flow := FlowFrom(f, win); flow > best {
			best = flow
		}
	}
	return best
}

// CheckLight проверяет три правила для вокселя с абсолютной позицией pos.
// Возвращает nil, если нарушений нет.
func CheckLight(ch world.LightChannel, pos vec.Vec3, win *Window, emitted int) []Violation {
	return appendViolations(nil, ch, pos, win, emitted)
}

// appendViolations: вариант CheckLight без выделения памяти на чистых вокселях
func appendViolations(dst []Violation, ch world.LightChannel, pos vec.Vec3, win *Window, emitted int) []Violation {
	actual := win.Light[1][1][1]
	inward := InwardFlow(win)

	newViolation := func(rule Rule, msg string) Violation {
		return Violation{
			Pos:     pos,
			Channel: ch,
			Rule:    rule,
			Message: msg,
			Actual:  actual,
			Emitted: emitted,
			Inward:  inward,
		}
	}

	if emitted > actual {
		dst = append(dst, newViolation(RuleA,
			fmt.Sprintf("Light below emit level %d > %d", emitted, actual)))
	}
	if inward > actual {
		dst = append(dst, newViolation(RuleB,
			fmt.Sprintf("Light below support level %d > %d", inward, actual)))
	}
	if inward < actual && emitted != actual {
		dst = append(dst, newViolation(RuleC,
			fmt.Sprintf("Light above support level %d < %d and not equal to emitted level %d", inward, actual, emitted)))
	}
	return dst
}
