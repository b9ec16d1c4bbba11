package pdf

import (
	"errors"
	"fmt"
	"math"
)

// ColorSpace converts colour components of one PDF colour space to RGB.
type ColorSpace interface {
	Family() Name
	NumComponents() int
	// DefaultColor is the initial colour set by CS/cs.
	DefaultColor() []float64
	// ToRGB converts components to RGB in [0, 1].
	ToRGB(comps []float64) (r, g, b float64)
	// DefaultDecode is the Decode array an image of this space uses when
	// it has none.
	DefaultDecode(bpc int) []float64
}

// ErrPatternSpace is returned when pattern colours are used as image colours.
var ErrPatternSpace = errors.New("pattern colour space has no component values")

type deviceGray struct{}
type deviceRGB struct{}
type deviceCMYK struct{}

// The device spaces are stateless.
var (
	DeviceGray ColorSpace = deviceGray{}
	DeviceRGB  ColorSpace = deviceRGB{}
	DeviceCMYK ColorSpace = deviceCMYK{}
)

func (deviceGray) Family() Name                  { return "DeviceGray" }
func (deviceGray) NumComponents() int            { return 1 }
func (deviceGray) DefaultColor() []float64       { return []float64{0} }
func (deviceGray) DefaultDecode(int) []float64   { return []float64{0, 1} }
func (deviceRGB) Family() Name                   { return "DeviceRGB" }
func (deviceRGB) NumComponents() int             { return 3 }
func (deviceRGB) DefaultColor() []float64        { return []float64{0, 0, 0} }
func (deviceRGB) DefaultDecode(int) []float64    { return []float64{0, 1, 0, 1, 0, 1} }
func (deviceCMYK) Family() Name                  { return "DeviceCMYK" }
func (deviceCMYK) NumComponents() int            { return 4 }
func (deviceCMYK) DefaultColor() []float64       { return []float64{0, 0, 0, 1} }
func (deviceCMYK) DefaultDecode(int) []float64   { return []float64{0, 1, 0, 1, 0, 1, 0, 1} }

func (deviceGray) ToRGB(c []float64) (float64, float64, float64) {
	v := comp(c, 0)
	return v, v, v
}

func (deviceRGB) ToRGB(c []float64) (float64, float64, float64) {
	return comp(c, 0), comp(c, 1), comp(c, 2)
}

// ToRGB uses the naive multiplicative conversion R = (1-C)(1-K).
func (deviceCMYK) ToRGB(c []float64) (float64, float64, float64) {
	k := 1 - comp(c, 3)
	return (1 - comp(c, 0)) * k, (1 - comp(c, 1)) * k, (1 - comp(c, 2)) * k
}

func comp(c []float64, i int) float64 {
	if i >= len(c) {
		return 0
	}
	return clip(c[i], 0, 1)
}

// LabSpace is a CIE L*a*b* space.
type LabSpace struct {
	WhitePoint [3]float64
	Range      [4]float64
}

func (s *LabSpace) Family() Name       { return "Lab" }
func (s *LabSpace) NumComponents() int { return 3 }
func (s *LabSpace) DefaultColor() []float64 {
	return []float64{0, clip(0, s.Range[0], s.Range[1]), clip(0, s.Range[2], s.Range[3])}
}
func (s *LabSpace) DefaultDecode(int) []float64 {
	return []float64{0, 100, s.Range[0], s.Range[1], s.Range[2], s.Range[3]}
}

// ToRGB converts through XYZ, adapted to D50, to sRGB.
func (s *LabSpace) ToRGB(c []float64) (float64, float64, float64) {
	var l, a, b float64
	if len(c) >= 3 {
		l = clip(c[0], 0, 100)
		a = clip(c[1], s.Range[0], s.Range[1])
		b = clip(c[2], s.Range[2], s.Range[3])
	}
	m := (l + 16) / 116
	finv := func(x float64) float64 {
		if x >= 6.0/29 {
			return x * x * x
		}
		return 108.0 / 841 * (x - 4.0/29)
	}
	x := s.WhitePoint[0] * finv(m+a/500)
	y := s.WhitePoint[1] * finv(m)
	z := s.WhitePoint[2] * finv(m-b/200)

	// scale to the D50 white the matrix below expects
	x *= 0.9642 / s.WhitePoint[0]
	y *= 1.0 / s.WhitePoint[1]
	z *= 0.8249 / s.WhitePoint[2]

	r := 3.1338561*x - 1.6168667*y - 0.4906146*z
	g := -0.9787684*x + 1.9161415*y + 0.0334540*z
	bl := 0.0719453*x - 0.2289914*y + 1.4052427*z
	return srgbGamma(r), srgbGamma(g), srgbGamma(bl)
}

func srgbGamma(v float64) float64 {
	v = clip(v, 0, 1)
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*math.Pow(v, 1/2.4) - 0.055
}

// IndexedSpace maps a single index through a lookup table into a base space.
type IndexedSpace struct {
	Base   ColorSpace
	HiVal  int
	Lookup []byte
}

func (s *IndexedSpace) Family() Name            { return "Indexed" }
func (s *IndexedSpace) NumComponents() int      { return 1 }
func (s *IndexedSpace) DefaultColor() []float64 { return []float64{0} }
func (s *IndexedSpace) DefaultDecode(bpc int) []float64 {
	return []float64{0, math.Pow(2, float64(bpc)) - 1}
}

// BaseColor returns the base space components for an index.
func (s *IndexedSpace) BaseColor(index float64) []float64 {
	i := int(math.Round(index))
	if i < 0 {
		i = 0
	}
	if i > s.HiVal {
		i = s.HiVal
	}
	n := s.Base.NumComponents()
	dec := s.Base.DefaultDecode(8)
	out := make([]float64, n)
	for j := 0; j < n; j++ {
		var v byte
		if k := i*n + j; k < len(s.Lookup) {
			v = s.Lookup[k]
		}
		out[j] = interpolate(float64(v), 0, 255, dec[2*j], dec[2*j+1])
	}
	return out
}

func (s *IndexedSpace) ToRGB(c []float64) (float64, float64, float64) {
	var idx float64
	if len(c) > 0 {
		idx = c[0]
	}
	return s.Base.ToRGB(s.BaseColor(idx))
}

// SeparationSpace covers Separation and DeviceN: the components are tints
// mapped into the alternate space.
type SeparationSpace struct {
	Names     []Name
	Alternate ColorSpace
	Tint      Function
	deviceN   bool
}

func (s *SeparationSpace) Family() Name {
	if s.deviceN {
		return "DeviceN"
	}
	return "Separation"
}
func (s *SeparationSpace) NumComponents() int { return len(s.Names) }
func (s *SeparationSpace) DefaultColor() []float64 {
	out := make([]float64, len(s.Names))
	for i := range out {
		out[i] = 1
	}
	return out
}
func (s *SeparationSpace) DefaultDecode(int) []float64 {
	out := make([]float64, 2*len(s.Names))
	for i := range s.Names {
		out[2*i+1] = 1
	}
	return out
}

func (s *SeparationSpace) ToRGB(c []float64) (float64, float64, float64) {
	// /None paints nothing; callers treat it like any other colour
	if len(s.Names) == 1 && s.Names[0] == "None" {
		return 1, 1, 1
	}
	in := make([]float64, len(s.Names))
	copy(in, c)
	return s.Alternate.ToRGB(s.Tint.Apply(in...))
}

// PatternSpace selects patterns by name. Underlying is set for uncoloured
// patterns.
type PatternSpace struct {
	Underlying ColorSpace
}

func (s *PatternSpace) Family() Name { return "Pattern" }
func (s *PatternSpace) NumComponents() int {
	if s.Underlying != nil {
		return s.Underlying.NumComponents()
	}
	return 0
}
func (s *PatternSpace) DefaultColor() []float64 {
	if s.Underlying != nil {
		return s.Underlying.DefaultColor()
	}
	return nil
}
func (s *PatternSpace) DefaultDecode(int) []float64 { return nil }
func (s *PatternSpace) ToRGB(c []float64) (float64, float64, float64) {
	if s.Underlying != nil {
		return s.Underlying.ToRGB(c)
	}
	return 0, 0, 0
}

// ParseColorSpace resolves a colour space name or array. Names other than
// the device families are looked up in the ColorSpace resources.
func (d *Document) ParseColorSpace(obj Object, resources Dictionary) (ColorSpace, error) {
	return d.parseColorSpace(obj, resources, 0)
}

func (d *Document) parseColorSpace(obj Object, resources Dictionary, depth int) (ColorSpace, error) {
	if depth > 8 {
		return nil, errors.New("colour space nesting too deep")
	}
	obj = d.Resolve(obj)

	if name, ok := obj.(Name); ok {
		switch name {
		case "DeviceGray", "G", "CalGray":
			return DeviceGray, nil
		case "DeviceRGB", "RGB", "CalRGB":
			return DeviceRGB, nil
		case "DeviceCMYK", "CMYK":
			return DeviceCMYK, nil
		case "Pattern":
			return &PatternSpace{}, nil
		}
		if res, ok := d.Resource(resources, "ColorSpace", name); ok {
			if n, isName := res.(Name); isName && n == name {
				return nil, fmt.Errorf("colour space %s refers to itself", name)
			}
			return d.parseColorSpace(res, resources, depth+1)
		}
		return nil, fmt.Errorf("unknown colour space %s", name)
	}

	arr, ok := obj.(Array)
	if !ok || len(arr) == 0 {
		return nil, fmt.Errorf("invalid colour space %v", obj)
	}
	family, _ := d.NameOf(arr[0])
	arg := func(i int) Object {
		if i < len(arr) {
			return arr[i]
		}
		return nil
	}

	switch family {
	case "DeviceGray", "CalGray", "G":
		return DeviceGray, nil
	case "DeviceRGB", "CalRGB", "RGB":
		return DeviceRGB, nil
	case "DeviceCMYK", "CMYK":
		return DeviceCMYK, nil

	case "Lab":
		dict, _ := d.DictOf(arg(1))
		s := &LabSpace{WhitePoint: [3]float64{0.9505, 1, 1.089}, Range: [4]float64{-100, 100, -100, 100}}
		if wp := d.Floats(dict.Get("WhitePoint")); len(wp) == 3 && wp[0] > 0 && wp[1] > 0 && wp[2] > 0 {
			copy(s.WhitePoint[:], wp)
		}
		if r := d.Floats(dict.Get("Range")); len(r) == 4 {
			copy(s.Range[:], r)
		}
		return s, nil

	case "ICCBased":
		stream, ok := d.StreamOf(arg(1))
		if !ok {
			return nil, errors.New("ICCBased without profile stream")
		}
		if alt := stream.Dictionary.Get("Alternate"); alt != nil {
			if cs, err := d.parseColorSpace(alt, resources, depth+1); err == nil {
				return cs, nil
			}
		}
		n, _ := d.FloatOf(stream.Dictionary.Get("N"))
		switch int(n) {
		case 1:
			return DeviceGray, nil
		case 3:
			return DeviceRGB, nil
		case 4:
			return DeviceCMYK, nil
		}
		return nil, fmt.Errorf("ICCBased with %d components", int(n))

	case "Indexed", "I":
		base, err := d.parseColorSpace(arg(1), resources, depth+1)
		if err != nil {
			return nil, fmt.Errorf("indexed base: %w", err)
		}
		if _, isPattern := base.(*PatternSpace); isPattern {
			return nil, ErrPatternSpace
		}
		hival, _ := d.FloatOf(arg(2))
		s := &IndexedSpace{Base: base, HiVal: int(clip(hival, 0, 255))}
		switch lookup := d.Resolve(arg(3)).(type) {
		case String:
			s.Lookup = lookup.Value
		case Stream:
			data, err := lookup.Decode()
			if err != nil {
				return nil, err
			}
			s.Lookup = data
		default:
			return nil, errors.New("indexed colour space without lookup")
		}
		return s, nil

	case "Separation", "DeviceN":
		s := &SeparationSpace{deviceN: family == "DeviceN"}
		if s.deviceN {
			names, _ := d.ArrayOf(arg(1))
			for _, n := range names {
				if nm, ok := d.NameOf(n); ok {
					s.Names = append(s.Names, nm)
				}
			}
		} else {
			nm, _ := d.NameOf(arg(1))
			s.Names = []Name{nm}
		}
		if len(s.Names) == 0 {
			return nil, errors.New("DeviceN without colorants")
		}
		alt, err := d.parseColorSpace(arg(2), resources, depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s alternate: %w", family, err)
		}
		s.Alternate = alt
		tint, err := d.ParseFunction(arg(3))
		if err != nil {
			return nil, fmt.Errorf("%s tint transform: %w", family, err)
		}
		s.Tint = tint
		return s, nil

	case "Pattern":
		s := &PatternSpace{}
		if len(arr) > 1 {
			under, err := d.parseColorSpace(arr[1], resources, depth+1)
			if err != nil {
				return nil, err
			}
			s.Underlying = under
		}
		return s, nil
	}

	return nil, fmt.Errorf("unsupported colour space %s", family)
}
