package pdf

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func unitDomain() Array {
	return Array{Integer(0), Integer(1)}
}

// TestExponentialFunction tests type 2 interpolation
func TestExponentialFunction(t *testing.T) {
	doc := &Document{}
	f, err := doc.ParseFunction(Dictionary{
		"FunctionType": Integer(2),
		"Domain":       unitDomain(),
		"C0":           Array{Integer(0), Real(0.5)},
		"C1":           Array{Integer(1), Integer(0)},
		"N":            Integer(2),
	})
	if err != nil {
		t.Fatalf("ParseFunction failed: %v", err)
	}

	tests := []struct {
		in   float64
		want []float64
	}{
		{0, []float64{0, 0.5}},
		{0.5, []float64{0.25, 0.375}},
		{2, []float64{1, 0}}, // clipped to the domain
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, f.Apply(tt.in), approx); diff != "" {
			t.Errorf("Apply(%v) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
	if f.Outputs() != 2 {
		t.Errorf("Expected 2 outputs, got %d", f.Outputs())
	}
}

// TestSampledFunction tests type 0 linear interpolation between samples
func TestSampledFunction(t *testing.T) {
	doc := &Document{}
	f, err := doc.ParseFunction(Stream{
		Dictionary: Dictionary{
			"FunctionType":  Integer(0),
			"Domain":        unitDomain(),
			"Range":         Array{Integer(0), Integer(1)},
			"Size":          Array{Integer(3)},
			"BitsPerSample": Integer(8),
		},
		Data: []byte{0, 255, 51},
	})
	if err != nil {
		t.Fatalf("ParseFunction failed: %v", err)
	}

	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{0.25, 0.5},
		{0.5, 1},
		{1, 0.2},
	}
	for _, tt := range tests {
		got := f.Apply(tt.in)
		if len(got) != 1 || math.Abs(got[0]-tt.want) > 1e-9 {
			t.Errorf("Apply(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

// TestStitchingFunction tests type 3 subdomain selection and encoding
func TestStitchingFunction(t *testing.T) {
	doc := &Document{}
	lin := func(c0, c1 float64) Dictionary {
		return Dictionary{
			"FunctionType": Integer(2),
			"Domain":       unitDomain(),
			"C0":           Array{Real(c0)},
			"C1":           Array{Real(c1)},
			"N":            Integer(1),
		}
	}
	f, err := doc.ParseFunction(Dictionary{
		"FunctionType": Integer(3),
		"Domain":       unitDomain(),
		"Functions":    Array{lin(0, 1), lin(1, 0)},
		"Bounds":       Array{Real(0.5)},
		"Encode":       Array{Integer(0), Integer(1), Integer(0), Integer(1)},
	})
	if err != nil {
		t.Fatalf("ParseFunction failed: %v", err)
	}

	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{0.25, 0.5},
		{0.5, 1},
		{0.75, 0.5},
		{1, 0},
	}
	for _, tt := range tests {
		if got := f.Apply(tt.in); math.Abs(got[0]-tt.want) > 1e-9 {
			t.Errorf("Apply(%v): expected %v, got %v", tt.in, tt.want, got[0])
		}
	}
}

// TestPostScriptFunction tests the type 4 calculator
func TestPostScriptFunction(t *testing.T) {
	tests := []struct {
		name string
		code string
		in   []float64
		want []float64
	}{
		{"arithmetic", "{ 2 mul 1 add }", []float64{0.25}, []float64{1.5}},
		{"ifelse", "{ dup 0.5 gt { pop 1 } { pop 0 } ifelse }", []float64{0.7}, []float64{1}},
		{"stack", "{ exch 1 index }", []float64{0.2, 0.4}, []float64{0.4, 0.2, 0.4}},
		{"trig", "{ 90 sin }", []float64{0}, []float64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			domain := Array{}
			for range tt.in {
				domain = append(domain, Integer(0), Integer(1))
			}
			rng := Array{}
			for range tt.want {
				rng = append(rng, Integer(0), Integer(2))
			}
			f, err := (&Document{}).ParseFunction(Stream{
				Dictionary: Dictionary{"FunctionType": Integer(4), "Domain": domain, "Range": rng},
				Data:       []byte(tt.code),
			})
			if err != nil {
				t.Fatalf("ParseFunction failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, f.Apply(tt.in...), approx); diff != "" {
				t.Errorf("Apply mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestFunctionArray tests that an array of functions concatenates outputs
func TestFunctionArray(t *testing.T) {
	one := func(c float64) Dictionary {
		return Dictionary{"FunctionType": Integer(2), "Domain": unitDomain(), "C0": Array{Real(c)}, "C1": Array{Real(c)}}
	}
	f, err := (&Document{}).ParseFunction(Array{one(0.1), one(0.2), one(0.3)})
	if err != nil {
		t.Fatalf("ParseFunction failed: %v", err)
	}
	if diff := cmp.Diff([]float64{0.1, 0.2, 0.3}, f.Apply(0.5), approx); diff != "" {
		t.Errorf("Apply mismatch (-want +got):\n%s", diff)
	}
}

// TestInvalidFunctions tests rejected function dictionaries
func TestInvalidFunctions(t *testing.T) {
	tests := []struct {
		name string
		obj  Object
	}{
		{"not a dictionary", Integer(1)},
		{"missing type", Dictionary{"Domain": unitDomain()}},
		{"bad domain", Dictionary{"FunctionType": Integer(2), "Domain": Array{Integer(0)}}},
		{"sampled dictionary", Dictionary{"FunctionType": Integer(0), "Domain": unitDomain(), "Range": unitDomain()}},
		{"unknown type", Dictionary{"FunctionType": Integer(7), "Domain": unitDomain()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (&Document{}).ParseFunction(tt.obj); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}
