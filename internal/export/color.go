package export

import (
	"image/color"

	"github.com/mazznoer/csscolorparser"
)

// parseColor reads a CSS color string (hex, rgb(), rgba(), hsl(), names).
// ok is false for "transparent", fully transparent colors and anything it
// cannot read; callers skip those.
func parseColor(s string) (c color.NRGBA, ok bool) {
	parsed, err := csscolorparser.Parse(s)
	if err != nil || parsed.A <= 0 {
		return c, false
	}
	return color.NRGBA{
		R: channel(parsed.R),
		G: channel(parsed.G),
		B: channel(parsed.B),
		A: channel(parsed.A),
	}, true
}

func channel(v float64) uint8 {
	return uint8(clamp(v, 0, 1)*255 + 0.5)
}

func withOpacity(c color.NRGBA, opacity float64) color.NRGBA {
	c.A = uint8(float64(c.A)*clamp(opacity, 0, 1) + 0.5)
	return c
}

func clamp(v, lo, hi float64) float64 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
