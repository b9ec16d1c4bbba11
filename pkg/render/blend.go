package render

import (
	"math"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// BlendMode selects how source colours combine with the backdrop
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendDarken
	BlendLighten
	BlendColorDodge
	BlendColorBurn
	BlendHardLight
	BlendSoftLight
	BlendDifference
	BlendExclusion
	BlendHue
	BlendSaturation
	BlendColor
	BlendLuminosity
)

var blendModeNames = map[pdf.Name]BlendMode{
	"Normal":     BlendNormal,
	"Compatible": BlendNormal,
	"Multiply":   BlendMultiply,
	"Screen":     BlendScreen,
	"Overlay":    BlendOverlay,
	"Darken":     BlendDarken,
	"Lighten":    BlendLighten,
	"ColorDodge": BlendColorDodge,
	"ColorBurn":  BlendColorBurn,
	"HardLight":  BlendHardLight,
	"SoftLight":  BlendSoftLight,
	"Difference": BlendDifference,
	"Exclusion":  BlendExclusion,
	"Hue":        BlendHue,
	"Saturation": BlendSaturation,
	"Color":      BlendColor,
	"Luminosity": BlendLuminosity,
}

// parseBlendMode reads a /BM value: a name, or an array whose first known
// entry wins.
func parseBlendMode(doc *pdf.Document, obj pdf.Object) BlendMode {
	switch v := doc.Resolve(obj).(type) {
	case pdf.Name:
		return blendModeNames[v]
	case pdf.Array:
		for _, o := range v {
			if n, ok := doc.NameOf(o); ok {
				if m, ok := blendModeNames[n]; ok {
					return m
				}
			}
		}
	}
	return BlendNormal
}

func (m BlendMode) separable() bool {
	return m < BlendHue
}

func blendChannel(m BlendMode, cb, cs float64) float64 {
	switch m {
	case BlendMultiply:
		return cb * cs
	case BlendScreen:
		return cb + cs - cb*cs
	case BlendOverlay:
		return blendChannel(BlendHardLight, cs, cb)
	case BlendDarken:
		return math.Min(cb, cs)
	case BlendLighten:
		return math.Max(cb, cs)
	case BlendColorDodge:
		switch {
		case cb == 0:
			return 0
		case cs >= 1:
			return 1
		}
		return math.Min(1, cb/(1-cs))
	case BlendColorBurn:
		switch {
		case cb >= 1:
			return 1
		case cs <= 0:
			return 0
		}
		return 1 - math.Min(1, (1-cb)/cs)
	case BlendHardLight:
		if cs <= 0.5 {
			return cb * 2 * cs
		}
		return blendChannel(BlendScreen, cb, 2*cs-1)
	case BlendSoftLight:
		if cs <= 0.5 {
			return cb - (1-2*cs)*cb*(1-cb)
		}
		var d float64
		if cb <= 0.25 {
			d = ((16*cb-12)*cb + 4) * cb
		} else {
			d = math.Sqrt(cb)
		}
		return cb + (2*cs-1)*(d-cb)
	case BlendDifference:
		return math.Abs(cb - cs)
	case BlendExclusion:
		return cb + cs - 2*cb*cs
	}
	return cs
}

type rgb [3]float64

func lum(c rgb) float64 {
	return 0.3*c[0] + 0.59*c[1] + 0.11*c[2]
}

func clipColor(c rgb) rgb {
	l := lum(c)
	n := math.Min(c[0], math.Min(c[1], c[2]))
	x := math.Max(c[0], math.Max(c[1], c[2]))
	for i := range c {
		if n < 0 {
			c[i] = l + (c[i]-l)*l/(l-n)
		}
		if x > 1 {
			c[i] = l + (c[i]-l)*(1-l)/(x-l)
		}
	}
	return c
}

func setLum(c rgb, l float64) rgb {
	d := l - lum(c)
	return clipColor(rgb{c[0] + d, c[1] + d, c[2] + d})
}

func sat(c rgb) float64 {
	return math.Max(c[0], math.Max(c[1], c[2])) - math.Min(c[0], math.Min(c[1], c[2]))
}

func setSat(c rgb, s float64) rgb {
	imax, imin := 0, 0
	for i := 1; i < 3; i++ {
		if c[i] > c[imax] {
			imax = i
		}
		if c[i] < c[imin] {
			imin = i
		}
	}
	if imax == imin {
		return rgb{}
	}
	imid := 3 - imax - imin
	var out rgb
	out[imid] = (c[imid] - c[imin]) * s / (c[imax] - c[imin])
	out[imax] = s
	return out
}

// blendColor applies a blend mode to unpremultiplied colours.
func blendColor(m BlendMode, cb, cs rgb) rgb {
	if m.separable() {
		return rgb{
			blendChannel(m, cb[0], cs[0]),
			blendChannel(m, cb[1], cs[1]),
			blendChannel(m, cb[2], cs[2]),
		}
	}
	switch m {
	case BlendHue:
		return setLum(setSat(cs, sat(cb)), lum(cb))
	case BlendSaturation:
		return setLum(setSat(cb, sat(cs)), lum(cb))
	case BlendColor:
		return setLum(cs, lum(cb))
	}
	return setLum(cb, lum(cs))
}
