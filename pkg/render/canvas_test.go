package render

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// TestCanvasClipStack tests that Restore brings back the saved clip
func TestCanvasClipStack(t *testing.T) {
	c := NewCanvas(10, 10)
	c.Save()
	c.IntersectClip(fillCoverage(rectDevicePath(0, 0, 5, 5), false, c.Bounds()))
	if c.ClipBounds() != image.Rect(0, 0, 5, 5) {
		t.Errorf("Expected clip bounds 0,0,5,5, got %v", c.ClipBounds())
	}
	c.Save()
	c.IntersectClip(nil)
	if !c.ClipBounds().Empty() {
		t.Errorf("Expected an empty clip, got %v", c.ClipBounds())
	}
	c.Restore()
	if c.ClipBounds() != image.Rect(0, 0, 5, 5) {
		t.Errorf("Expected the first clip back, got %v", c.ClipBounds())
	}
	c.Restore()
	c.Restore()
	if c.Clip() != nil || c.Depth() != 0 {
		t.Error("Expected no clip after the last Restore")
	}
}

// TestFillMaskCompositing tests source-over with alpha and clipping
func TestFillMaskCompositing(t *testing.T) {
	c := NewCanvas(4, 1)
	c.Clear(color.White)
	c.IntersectClip(fillCoverage(rectDevicePath(0, 0, 2, 1), false, c.Bounds()))
	cov := fillCoverage(rectDevicePath(0, 0, 4, 1), false, c.Bounds())
	c.FillMask(cov, color.RGBA{255, 0, 0, 255}, Compositing{Alpha: 0.5})

	img := c.Image()
	assertPixel(t, img, 0, 0, color.RGBA{255, 128, 128, 255})
	assertPixel(t, img, 3, 0, white)
}

// TestTransparentCanvas tests painting onto a transparent canvas
func TestTransparentCanvas(t *testing.T) {
	c := NewCanvas(1, 1)
	c.FillMask(fillCoverage(rectDevicePath(0, 0, 1, 1), false, c.Bounds()), premultiply(0, 0, 1, 0.5), opaque)
	assertPixel(t, c.Image(), 0, 0, color.RGBA{0, 0, 128, 128})
}

// TestBlendChannel tests the separable blend functions
func TestBlendChannel(t *testing.T) {
	tests := []struct {
		mode   BlendMode
		cb, cs float64
		want   float64
	}{
		{BlendNormal, 0.2, 0.7, 0.7},
		{BlendMultiply, 0.5, 0.5, 0.25},
		{BlendScreen, 0.5, 0.5, 0.75},
		{BlendOverlay, 0.25, 0.5, 0.25},
		{BlendDarken, 0.3, 0.6, 0.3},
		{BlendLighten, 0.3, 0.6, 0.6},
		{BlendColorDodge, 0.5, 0.5, 1},
		{BlendColorDodge, 0, 0.9, 0},
		{BlendColorBurn, 0.5, 0.5, 0},
		{BlendColorBurn, 1, 0.1, 1},
		{BlendHardLight, 0.5, 0.25, 0.25},
		{BlendSoftLight, 0.25, 0.5, 0.25},
		{BlendDifference, 0.2, 0.7, 0.5},
		{BlendExclusion, 0.5, 0.5, 0.5},
	}
	for _, tt := range tests {
		if got := blendChannel(tt.mode, tt.cb, tt.cs); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("blendChannel(%d, %v, %v): expected %v, got %v", tt.mode, tt.cb, tt.cs, tt.want, got)
		}
	}
}

// TestNonSeparableBlend tests that luminosity keeps the source luminance
func TestNonSeparableBlend(t *testing.T) {
	cb := rgb{1, 0, 0}
	cs := rgb{0.5, 0.5, 0.5}
	got := blendColor(BlendLuminosity, cb, cs)
	if math.Abs(lum(got)-lum(cs)) > 1e-9 {
		t.Errorf("Expected luminance %v, got %v", lum(cs), lum(got))
	}
	got = blendColor(BlendColor, cs, cb)
	if math.Abs(lum(got)-lum(cs)) > 1e-9 {
		t.Errorf("Expected backdrop luminance %v, got %v", lum(cs), lum(got))
	}
}

// TestParseBlendMode tests names, arrays and unknown modes
func TestParseBlendMode(t *testing.T) {
	doc := &pdf.Document{}
	tests := []struct {
		obj  pdf.Object
		want BlendMode
	}{
		{pdf.Name("Multiply"), BlendMultiply},
		{pdf.Name("Compatible"), BlendNormal},
		{pdf.Name("Bogus"), BlendNormal},
		{pdf.Array{pdf.Name("Bogus"), pdf.Name("Hue")}, BlendHue},
		{pdf.Integer(3), BlendNormal},
	}
	for _, tt := range tests {
		if got := parseBlendMode(doc, tt.obj); got != tt.want {
			t.Errorf("parseBlendMode(%v): expected %d, got %d", tt.obj, tt.want, got)
		}
	}
}
