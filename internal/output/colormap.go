package output

import (
	"image/color"
	"math"
)

// Colormap maps [0, 1] to a colour.
type Colormap func(v float64) color.RGBA

// Jet is the blue-cyan-yellow-red rainbow.
func Jet(v float64) color.RGBA {
	ramp := func(x float64) uint8 {
		return uint8(math.Round(255 * math.Max(0, math.Min(1, x))))
	}
	return color.RGBA{
		R: ramp(1.5 - math.Abs(4*v-3)),
		G: ramp(1.5 - math.Abs(4*v-2)),
		B: ramp(1.5 - math.Abs(4*v-1)),
		A: 255,
	}
}

// coolWarm are the control points of the diverging blue-grey-red map.
var coolWarm = []color.RGBA{
	{59, 76, 192, 255},
	{98, 130, 234, 255},
	{141, 176, 254, 255},
	{184, 208, 249, 255},
	{221, 221, 221, 255},
	{245, 196, 173, 255},
	{244, 154, 123, 255},
	{222, 96, 77, 255},
	{180, 4, 38, 255},
}

func CoolWarm(v float64) color.RGBA {
	v = math.Max(0, math.Min(1, v))
	x := v * float64(len(coolWarm)-1)
	k := int(x)
	if k >= len(coolWarm)-1 {
		return coolWarm[len(coolWarm)-1]
	}
	w := x - float64(k)
	a, b := coolWarm[k], coolWarm[k+1]
	mix := func(p, q uint8) uint8 {
		return uint8(math.Round((1-w)*float64(p) + w*float64(q)))
	}
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 255}
}

// levels is the number of palette entries given to the colour ramp; the
// last entry is reserved for masked pixels.
const levels = 255

// NoData is the palette index of masked pixels.
const NoData = levels

// Palette samples cm into a palette whose last entry is black.
func Palette(cm Colormap) color.Palette {
	p := make(color.Palette, levels+1)
	for k := 0; k < levels; k++ {
		p[k] = cm(float64(k) / (levels - 1))
	}
	p[NoData] = color.RGBA{0, 0, 0, 255}
	return p
}

// index maps v in [lo, hi] onto the colour ramp, clamping outside values.
func index(v, lo, hi float64) uint8 {
	if math.IsNaN(v) {
		return NoData
	}
	x := (v - lo) / (hi - lo)
	x = math.Max(0, math.Min(1, x))
	return uint8(math.Round(x * (levels - 1)))
}
