package pdf

import (
	"errors"
	"math"
	"testing"
)

func rgbClose(r, g, b float64, want [3]float64) bool {
	return math.Abs(r-want[0]) < 1e-2 && math.Abs(g-want[1]) < 1e-2 && math.Abs(b-want[2]) < 1e-2
}

// TestColorSpaceToRGB tests conversion of every supported family
func TestColorSpaceToRGB(t *testing.T) {
	tint := Dictionary{
		"FunctionType": Integer(2),
		"Domain":       unitDomain(),
		"C0":           Array{Integer(0), Integer(0), Integer(0), Integer(0)},
		"C1":           Array{Integer(0), Integer(1), Integer(1), Integer(0)},
		"N":            Integer(1),
	}

	tests := []struct {
		name string
		obj  Object
		in   []float64
		want [3]float64
	}{
		{"gray", Name("DeviceGray"), []float64{0.5}, [3]float64{0.5, 0.5, 0.5}},
		{"rgb abbreviation", Name("RGB"), []float64{1, 0, 0.25}, [3]float64{1, 0, 0.25}},
		{"cmyk", Name("DeviceCMYK"), []float64{0, 1, 0, 0.5}, [3]float64{0.5, 0, 0.5}},
		{"cal rgb", Array{Name("CalRGB"), Dictionary{}}, []float64{0, 1, 0}, [3]float64{0, 1, 0}},
		{"lab white", Array{Name("Lab"), Dictionary{"WhitePoint": Array{Real(0.9505), Integer(1), Real(1.089)}}}, []float64{100, 0, 0}, [3]float64{1, 1, 1}},
		{"lab black", Array{Name("Lab"), Dictionary{}}, []float64{0, 0, 0}, [3]float64{0, 0, 0}},
		{"icc alternate", Array{Name("ICCBased"), Stream{Dictionary: Dictionary{"N": Integer(3), "Alternate": Name("DeviceGray")}}}, []float64{0.2}, [3]float64{0.2, 0.2, 0.2}},
		{"icc components", Array{Name("ICCBased"), Stream{Dictionary: Dictionary{"N": Integer(4)}}}, []float64{0, 0, 0, 1}, [3]float64{0, 0, 0}},
		{"indexed", Array{Name("Indexed"), Name("DeviceRGB"), Integer(1), String{Value: []byte{255, 0, 0, 0, 0, 255}}}, []float64{1}, [3]float64{0, 0, 1}},
		{"indexed clamps", Array{Name("Indexed"), Name("DeviceRGB"), Integer(1), String{Value: []byte{255, 0, 0, 0, 0, 255}}}, []float64{7}, [3]float64{0, 0, 1}},
		{"separation", Array{Name("Separation"), Name("Spot"), Name("DeviceCMYK"), tint}, []float64{1}, [3]float64{1, 0, 0}},
		{"separation none", Array{Name("Separation"), Name("None"), Name("DeviceGray"), tint}, []float64{1}, [3]float64{1, 1, 1}},
		{"devicen", Array{Name("DeviceN"), Array{Name("Cyan")}, Name("DeviceCMYK"), tint}, []float64{0}, [3]float64{1, 1, 1}},
	}

	doc := &Document{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, err := doc.ParseColorSpace(tt.obj, nil)
			if err != nil {
				t.Fatalf("ParseColorSpace failed: %v", err)
			}
			if r, g, b := cs.ToRGB(tt.in); !rgbClose(r, g, b, tt.want) {
				t.Errorf("Expected %v, got %v %v %v", tt.want, r, g, b)
			}
		})
	}
}

// TestColorSpaceResources tests named lookups through the resource dictionary
func TestColorSpaceResources(t *testing.T) {
	res := Dictionary{"ColorSpace": Dictionary{
		"CS0":  Array{Name("ICCBased"), Stream{Dictionary: Dictionary{"N": Integer(1)}}},
		"Self": Name("Self"),
	}}
	doc := &Document{}

	cs, err := doc.ParseColorSpace(Name("CS0"), res)
	if err != nil {
		t.Fatalf("ParseColorSpace failed: %v", err)
	}
	if cs.Family() != "DeviceGray" {
		t.Errorf("Expected DeviceGray, got %s", cs.Family())
	}

	for _, name := range []Name{"Self", "Missing"} {
		if _, err := doc.ParseColorSpace(name, res); err == nil {
			t.Errorf("Expected error for %s", name)
		}
	}
}

// TestIndexedPatternBase tests that a pattern base is rejected
func TestIndexedPatternBase(t *testing.T) {
	obj := Array{Name("Indexed"), Name("Pattern"), Integer(0), String{Value: []byte{0}}}
	if _, err := (&Document{}).ParseColorSpace(obj, nil); !errors.Is(err, ErrPatternSpace) {
		t.Errorf("Expected ErrPatternSpace, got %v", err)
	}
}

// TestUncolouredPatternSpace tests the underlying space of a pattern space
func TestUncolouredPatternSpace(t *testing.T) {
	cs, err := (&Document{}).ParseColorSpace(Array{Name("Pattern"), Name("DeviceRGB")}, nil)
	if err != nil {
		t.Fatalf("ParseColorSpace failed: %v", err)
	}
	if cs.NumComponents() != 3 {
		t.Errorf("Expected 3 components, got %d", cs.NumComponents())
	}
	if r, g, b := cs.ToRGB([]float64{0, 1, 0}); !rgbClose(r, g, b, [3]float64{0, 1, 0}) {
		t.Errorf("Expected green, got %v %v %v", r, g, b)
	}
}
