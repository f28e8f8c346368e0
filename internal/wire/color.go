package wire

import (
	"fmt"
	"strings"
)

// Color is one of a small fixed palette. It travels as its name.
type Color uint8

const (
	Red Color = iota
	Green
	Blue
	Cyan
	Magenta
	Yellow
	White
	Black
)

// DefaultColor is used when a publisher does not choose one.
const DefaultColor = Red

var colorNames = [...]string{
	Red:     "Red",
	Green:   "Green",
	Blue:    "Blue",
	Cyan:    "Cyan",
	Magenta: "Magenta",
	Yellow:  "Yellow",
	White:   "White",
	Black:   "Black",
}

var colorRGB = [...][3]float64{
	Red:     {1, 0, 0},
	Green:   {0, 1, 0},
	Blue:    {0, 0, 1},
	Cyan:    {0, 1, 1},
	Magenta: {1, 0, 1},
	Yellow:  {1, 1, 0},
	White:   {1, 1, 1},
	Black:   {0, 0, 0},
}

// Colors lists the palette in declaration order.
func Colors() []Color {
	out := make([]Color, len(colorNames))
	for i := range colorNames {
		out[i] = Color(i)
	}
	return out
}

func (c Color) valid() bool { return int(c) < len(colorNames) }

func (c Color) String() string {
	if !c.valid() {
		return fmt.Sprintf("Color(%d)", uint8(c))
	}
	return colorNames[c]
}

// RGB returns the color's components in the 0..1 range.
func (c Color) RGB() (r, g, b float64) {
	if !c.valid() {
		return 0, 0, 0
	}
	rgb := colorRGB[c]
	return rgb[0], rgb[1], rgb[2]
}

func (c Color) MarshalText() ([]byte, error) {
	if !c.valid() {
		return nil, fmt.Errorf("unknown color %d", uint8(c))
	}
	return []byte(colorNames[c]), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	for i, name := range colorNames {
		if name == string(text) {
			*c = Color(i)
			return nil
		}
	}
	return fmt.Errorf("unknown color %q", text)
}

// ParseColor resolves a palette name case-insensitively.
func ParseColor(s string) (Color, error) {
	for i, name := range colorNames {
		if strings.EqualFold(name, s) {
			return Color(i), nil
		}
	}
	return DefaultColor, fmt.Errorf("unknown color %q", s)
}
