package render

import (
	"image"
	"testing"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

func rectDevicePath(x0, y0, x1, y1 float64) *pdf.Path {
	p := &pdf.Path{}
	p.MoveTo(x0, y0)
	p.LineTo(x1, y0)
	p.LineTo(x1, y1)
	p.LineTo(x0, y1)
	p.Close()
	return p
}

// TestFillCoverage tests exact and partial pixel coverage
func TestFillCoverage(t *testing.T) {
	bounds := image.Rect(0, 0, 10, 10)
	tests := []struct {
		name string
		path *pdf.Path
		x, y int
		want uint8
	}{
		{"inside", rectDevicePath(2, 2, 8, 8), 4, 4, 255},
		{"aligned edge", rectDevicePath(2, 2, 8, 8), 2, 2, 255},
		{"outside", rectDevicePath(2, 2, 8, 8), 8, 8, 0},
		{"half pixel", rectDevicePath(2.5, 2, 8, 8), 2, 4, 128},
		{"quarter pixel", rectDevicePath(2.5, 2.5, 8, 8), 2, 2, 64},
		{"reversed winding", rectDevicePath(8, 8, 2, 2), 4, 4, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cov := fillCoverage(tt.path, false, bounds)
			if cov == nil {
				t.Fatal("Expected a coverage mask")
			}
			got := cov.AlphaAt(tt.x, tt.y).A
			if d := int(got) - int(tt.want); d > 2 || d < -2 {
				t.Errorf("Expected coverage %d at (%d,%d), got %d", tt.want, tt.x, tt.y, got)
			}
		})
	}
}

// TestFillRules tests nonzero and even-odd on overlapping subpaths
func TestFillRules(t *testing.T) {
	p := rectDevicePath(0, 0, 10, 10)
	inner := rectDevicePath(3, 3, 7, 7)
	p.Commands = append(p.Commands, inner.Commands...)

	bounds := image.Rect(0, 0, 10, 10)
	if a := fillCoverage(p, false, bounds).AlphaAt(5, 5).A; a != 255 {
		t.Errorf("Nonzero: expected 255, got %d", a)
	}
	if a := fillCoverage(p, true, bounds).AlphaAt(5, 5).A; a != 0 {
		t.Errorf("Even-odd: expected 0, got %d", a)
	}
}

// TestEmptyPath tests that an empty path yields no mask
func TestEmptyPath(t *testing.T) {
	if cov := fillCoverage(&pdf.Path{}, false, image.Rect(0, 0, 4, 4)); cov != nil {
		t.Error("Expected nil coverage for an empty path")
	}
}

// TestStrokeCoverage tests an open and a closed stroke
func TestStrokeCoverage(t *testing.T) {
	bounds := image.Rect(0, 0, 20, 20)
	paint := newPaint(PaintKey{Stroke: true, Width: 2})

	open := &pdf.Path{}
	open.MoveTo(2, 10)
	open.LineTo(18, 10)
	cov := strokeCoverage(open, paint, bounds)
	if a := cov.AlphaAt(10, 9).A; a != 255 {
		t.Errorf("Expected a covered stroke pixel, got %d", a)
	}
	if a := cov.AlphaAt(10, 12).A; a != 0 {
		t.Errorf("Expected nothing below the stroke, got %d", a)
	}
	if a := cov.AlphaAt(19, 10).A; a != 0 {
		t.Errorf("Expected a butt cap, got %d past the end", a)
	}

	closed := strokeCoverage(rectDevicePath(4, 4, 16, 16), paint, bounds)
	if a := closed.AlphaAt(10, 10).A; a != 0 {
		t.Errorf("Expected a hollow rectangle, got %d inside", a)
	}
	if a := closed.AlphaAt(4, 10).A; a == 0 {
		t.Error("Expected the left edge to be stroked")
	}
}

// TestHugeCoordinates tests that far away points are clamped rather than
// overflowing
func TestHugeCoordinates(t *testing.T) {
	cov := fillCoverage(rectDevicePath(-1e12, -1e12, 1e12, 1e12), false, image.Rect(0, 0, 4, 4))
	if cov == nil || cov.AlphaAt(2, 2).A != 255 {
		t.Error("Expected the page to be covered")
	}
}

// TestStrokedPixels tests that every pixel under an open stroke is fully
// covered, and that a dashed stroke covers its dashes
func TestStrokedPixels(t *testing.T) {
	bounds := image.Rect(0, 0, 20, 20)
	line := &pdf.Path{}
	line.MoveTo(2, 10)
	line.LineTo(18, 10)

	cov := strokeCoverage(line, newPaint(PaintKey{Stroke: true, Width: 2}), bounds)
	if cov == nil {
		t.Fatal("Expected a coverage mask")
	}
	for _, y := range []int{9, 10} {
		for x := 2; x < 18; x++ {
			if a := cov.AlphaAt(x, y).A; a != 255 {
				t.Errorf("Expected full coverage at %d,%d, got %d", x, y, a)
			}
		}
	}

	dashed := newPaint(PaintKey{Stroke: true, Width: 2, Dash: []float64{4, 4}})
	cov = strokeCoverage(line, dashed, bounds)
	if cov == nil {
		t.Fatal("Expected a dashed coverage mask")
	}
	if a := cov.AlphaAt(3, 10).A; a != 255 {
		t.Errorf("Expected the first dash to be covered, got %d", a)
	}
	if a := cov.AlphaAt(8, 10).A; a != 0 {
		t.Errorf("Expected the first gap to be empty, got %d", a)
	}
}

// TestCoverageBounds tests that the mask covers exactly the pixels the
// path touches
func TestCoverageBounds(t *testing.T) {
	bounds := image.Rect(0, 0, 10, 10)
	tests := []struct {
		name string
		path *pdf.Path
		want image.Rectangle
	}{
		{"aligned", rectDevicePath(0, 0, 5, 5), image.Rect(0, 0, 5, 5)},
		{"fractional", rectDevicePath(0.5, 1.25, 4.5, 3), image.Rect(0, 1, 5, 3)},
		{"clipped", rectDevicePath(-3, 6, 4, 14), image.Rect(0, 6, 4, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cov := fillCoverage(tt.path, false, bounds)
			if cov == nil || cov.Rect != tt.want {
				t.Errorf("Expected mask bounds %v, got %v", tt.want, cov)
			}
		})
	}
}
