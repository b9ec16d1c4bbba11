package render

import (
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/srwiley/rasterx"
)

// TestPaintCacheReuse tests that equal keys share one paint
func TestPaintCacheReuse(t *testing.T) {
	c := NewPaintCache()
	key := PaintKey{Color: color.RGBA{255, 0, 0, 255}, Stroke: true, Width: 2, Dash: []float64{3, 1}}

	a := c.Get(key)
	key.Dash = []float64{3, 1}
	b := c.Get(key)
	if a != b {
		t.Error("Expected the same paint for equal keys")
	}

	key.Width = 3
	if c.Get(key) == a {
		t.Error("Expected a different paint for a different width")
	}
	c.Get(PaintKey{Color: color.RGBA{255, 0, 0, 255}})
	if c.Len() != 3 {
		t.Errorf("Expected 3 cached paints, got %d", c.Len())
	}
}

// TestPaintCacheCollision tests that a key colliding with a cached paint
// still gets its own attributes
func TestPaintCacheCollision(t *testing.T) {
	c := NewPaintCache()
	key := PaintKey{Color: black, Width: 1}
	other := PaintKey{Color: red, Width: 5}
	c.paints[other.Hash()] = c.Get(key)

	p := c.Get(other)
	if p.Color != red || p.Width != 5 {
		t.Errorf("Expected a paint for the colliding key, got %+v", p)
	}
	if c.Len() != 2 {
		t.Errorf("Expected the cache to keep 2 entries, got %d", c.Len())
	}
}

// TestPaintStyles tests cap and join mapping
func TestPaintStyles(t *testing.T) {
	tests := []struct {
		join, cap int
		wantJoin  rasterx.JoinMode
	}{
		{0, 0, rasterx.Miter},
		{1, 1, rasterx.Round},
		{2, 2, rasterx.Bevel},
		{7, 7, rasterx.Miter},
	}
	for _, tt := range tests {
		p := newPaint(PaintKey{Stroke: true, LineJoin: tt.join, LineCap: tt.cap})
		if p.Join != tt.wantJoin {
			t.Errorf("Join %d: expected %v, got %v", tt.join, tt.wantJoin, p.Join)
		}
		if p.Cap == nil || p.Gap == nil {
			t.Errorf("Join %d: expected cap and gap functions", tt.join)
		}
		if p.MiterLimit != 10 {
			t.Errorf("Expected the default miter limit, got %v", p.MiterLimit)
		}
	}
}

// TestDeviceDash tests dash scaling and degenerate patterns
func TestDeviceDash(t *testing.T) {
	tests := []struct {
		name      string
		dash      []float64
		phase     float64
		factor    float64
		want      []float64
		wantPhase float64
	}{
		{"solid", nil, 0, 1, nil, 0},
		{"scaled", []float64{3, 2}, 1, 2, []float64{6, 4}, 2},
		{"single entry", []float64{4}, 0, 1, []float64{4, 4}, 0},
		{"all zero", []float64{0, 0}, 0, 1, nil, 0},
		{"negative", []float64{3, -1}, 0, 1, nil, 0},
		{"tiny", []float64{0, 5}, 0, 0.5, []float64{minDash, 2.5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, phase := deviceDash(tt.dash, tt.phase, tt.factor)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Dash mismatch (-want +got):\n%s", diff)
			}
			if phase != tt.wantPhase {
				t.Errorf("Expected phase %v, got %v", tt.wantPhase, phase)
			}
		})
	}
}

// TestMinLineWidth tests that hairlines are widened to the minimum
func TestMinLineWidth(t *testing.T) {
	img := renderPage(t, nil, testPage{width: 20, height: 20, content: "0 w 0 10.5 m 20 10.5 l S"}, WithMinLineWidth(1))
	assertPixel(t, img, 10, 9, black)
	assertPixel(t, img, 10, 11, white)
}
