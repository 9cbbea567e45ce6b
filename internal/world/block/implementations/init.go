package implementations

import "github.com/annel0/lightcheck/internal/world/block"

// Регистрируем все встроенные материалы при импорте пакета
func init() {
	// Базовые
	block.Register(&Air{})
	block.Register(&Stone{})
	block.Register(&Grass{})
	block.Register(&Water{})
	block.Register(newSand())
	block.Register(newDirt())

	// Растения и прозрачные
	block.Register(&Log{})
	block.Register(&Leaves{})
	block.Register(&LilyPad{})
	block.Register(&Glass{})

	// Источники света
	block.Register(&Torch{})
	block.Register(&Glowstone{})

	block.Register(&Slab{})
}
