package render

import (
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/couchcryptid/accident-eda/internal/domain"
)

var (
	// tab10 is the default qualitative cycle.
	tab10 = hexColors(
		"1f77b4", "ff7f0e", "2ca02c", "d62728", "9467bd",
		"8c564b", "e377c2", "7f7f7f", "bcbd22", "17becf",
	)

	// tab20 extends tab10 with lighter variants for stacked segments.
	tab20 = hexColors(
		"1f77b4", "aec7e8", "ff7f0e", "ffbb78", "2ca02c", "98df8a", "d62728", "ff9896",
		"9467bd", "c5b0d5", "8c564b", "c49c94", "e377c2", "f7b6d2", "7f7f7f", "c7c7c7",
		"bcbd22", "dbdb8d", "17becf", "9edae5",
	)

	set2 = hexColors("66c2a5", "fc8d62", "8da0cb", "e78ac3", "a6d854", "ffd92f", "e5c494", "b3b3b3")

	// viridisStops are evenly spaced samples of the viridis colormap.
	viridisStops = hexColors(
		"440154", "482878", "3e4989", "31688e", "26828e",
		"1f9e89", "35b779", "6ece58", "b5de2b", "fde725",
	)

	coolwarmStops = hexColors("3b4cc0", "dddddd", "b40426")

	colorNaN   = drawing.ColorFromHex("bfbfbf")
	colorAxis  = drawing.ColorFromHex("333333")
	colorGrid  = drawing.ColorFromHex("e5e5e5")
	colorText  = drawing.ColorFromHex("262626")
	colorCurve = drawing.ColorFromHex("0b3d91")
)

func hexColors(hex ...string) []drawing.Color {
	out := make([]drawing.Color, len(hex))
	for i, h := range hex {
		out[i] = drawing.ColorFromHex(h)
	}
	return out
}

// colors returns n fill colours for the palette.
func colors(p domain.Palette, n int) []drawing.Color {
	out := make([]drawing.Color, n)
	for i := range out {
		switch p {
		case domain.PaletteViridis:
			t := 0.0
			if n > 1 {
				t = float64(i) / float64(n-1)
			}
			out[i] = ramp(viridisStops, t)
		case domain.PaletteSet2:
			out[i] = set2[i%len(set2)]
		case domain.PaletteCategorical:
			out[i] = tab20[i%len(tab20)]
		default:
			out[i] = tab10[0]
		}
	}
	return out
}

// coolwarm maps v in [lo, hi] onto a diverging blue-grey-red scale centred
// at zero. NaN maps to grey.
func coolwarm(v, lo, hi float64) drawing.Color {
	if math.IsNaN(v) {
		return colorNaN
	}
	var t float64
	switch {
	case v < 0 && lo < 0:
		t = 0.5 - 0.5*math.Min(v/lo, 1)
	case v > 0 && hi > 0:
		t = 0.5 + 0.5*math.Min(v/hi, 1)
	default:
		t = 0.5
	}
	return ramp(coolwarmStops, t)
}

// ramp linearly interpolates between evenly spaced stops at t in [0, 1].
func ramp(stops []drawing.Color, t float64) drawing.Color {
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(stops)-1)
	i := int(math.Floor(pos))
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	f := pos - float64(i)
	a, b := stops[i], stops[i+1]
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*f))
	}
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// luminance is the perceived brightness of c in [0, 1].
func luminance(c drawing.Color) float64 {
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255
}
