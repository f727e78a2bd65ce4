package chart

import (
	"image/color"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Palette assigns a deterministic color to an index, cycling when the index
// exceeds the palette size.
type Palette string

const (
	// Bright is the ten-color palette of the user dashboard.
	Bright Palette = "bright"
	// Hue steps the hue wheel by 40 degrees at 70% saturation and 55%
	// lightness, as the admin dashboard does.
	Hue Palette = "hue"
)

var brightHex = []string{
	"2dd4bf", "fbbf24", "f87171", "818cf8", "c084fc",
	"34d399", "fb923c", "60a5fa", "f472b6", "a3e635",
}

const hueStep = 40

// Size is the number of distinct colors before the palette repeats.
func (p Palette) Size() int {
	if p == Hue {
		return 360 / hueStep
	}
	return len(brightHex)
}

// Color returns the color at index i.
func (p Palette) Color(i int) color.RGBA {
	n := p.Size()
	i = ((i % n) + n) % n
	if p == Hue {
		return hsl(float64(i*hueStep), 0.70, 0.55)
	}
	c := drawing.ColorFromHex(brightHex[i])
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// drawingColor converts to the go-chart color type.
func drawingColor(c color.RGBA) drawing.Color {
	return drawing.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

func hsl(h, s, l float64) color.RGBA {
	c := (1 - math.Abs(2*l-1)) * s
	hp := math.Mod(h, 360) / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	var r, g, b float64
	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = 0, x, c
	case hp < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	m := l - c/2
	return color.RGBA{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 255,
	}
}
