package world

import (
	"fmt"
	"strings"
)

// LightChannel: идентификатор независимого поля освещённости
type LightChannel uint8

const (
	SkyLight LightChannel = iota
	BlockLight

	LightChannels = 2
)

// Channels перечисляет каналы в порядке проверки
var Channels = [LightChannels]LightChannel{SkyLight, BlockLight}

func (c LightChannel) String() string {
	switch c {
	case SkyLight:
		return "sky"
	case BlockLight:
		return "block"
	default:
		return "unknown"
	}
}

// ParseLightChannel разбирает "sky" или "block"
func ParseLightChannel(s string) (LightChannel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sky", "skylight":
		return SkyLight, true
	case "block", "blocklight":
		return BlockLight, true
	}
	return 0, false
}

// MarshalText сериализует канал именем
func (c LightChannel) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText разбирает имя канала
func (c *LightChannel) UnmarshalText(text []byte) error {
	ch, ok := ParseLightChannel(string(text))
	if !ok {
		return fmt.Errorf("неизвестный канал освещения %q", text)
	}
	*c = ch
	return nil
}
