package imagediff

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/draw"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Rect, image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// TestDiffWithinTolerance tests that small differences are ignored
func TestDiffWithinTolerance(t *testing.T) {
	a := solid(4, 4, color.RGBA{100, 100, 100, 255})
	b := solid(4, 4, color.RGBA{102, 98, 101, 255})
	if d := Diff(a, b); d != nil {
		t.Error("Expected no diff within tolerance")
	}
}

// TestDiffMarksPixels tests the clamped channel differences
func TestDiffMarksPixels(t *testing.T) {
	a := solid(3, 2, color.White)
	b := solid(3, 2, color.White)
	b.SetRGBA(1, 1, color.RGBA{0, 250, 245, 255})

	d := Diff(a, b)
	if d == nil {
		t.Fatal("Expected a diff image")
	}
	if got, want := d.RGBAAt(1, 1), (color.RGBA{125, 5, 10, 255}); got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if got := d.RGBAAt(0, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("Expected matching pixels to be white, got %v", got)
	}
}

// TestDiffSizeMismatch tests the black border outside the common area
func TestDiffSizeMismatch(t *testing.T) {
	d := Diff(solid(4, 3, color.White), solid(2, 5, color.White))
	if d == nil {
		t.Fatal("Expected a diff for different sizes")
	}
	if d.Bounds() != image.Rect(0, 0, 4, 5) {
		t.Errorf("Expected 4x5 diff, got %v", d.Bounds())
	}
	tests := []struct {
		x, y int
		want color.RGBA
	}{
		{1, 2, color.RGBA{255, 255, 255, 255}},
		{3, 0, color.RGBA{0, 0, 0, 255}},
		{0, 4, color.RGBA{0, 0, 0, 255}},
	}
	for _, tt := range tests {
		if got := d.RGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("Pixel (%d,%d): expected %v, got %v", tt.x, tt.y, tt.want, got)
		}
	}
}

// TestDiffTransparent tests that transparency is compared against white
func TestDiffTransparent(t *testing.T) {
	if d := Diff(image.NewRGBA(image.Rect(0, 0, 2, 2)), solid(2, 2, color.White)); d != nil {
		t.Error("Expected a transparent image to match white")
	}
}

// TestDownscale tests size rounding
func TestDownscale(t *testing.T) {
	img := Downscale(solid(5, 4, color.Black), 2)
	if img.Bounds() != image.Rect(0, 0, 3, 2) {
		t.Errorf("Expected 3x2, got %v", img.Bounds())
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r != 0 {
		t.Errorf("Expected black, got %v", img.At(0, 0))
	}
}

// TestCheck tests that a mismatch writes the diff and the render
func TestCheck(t *testing.T) {
	dir := t.TempDir()
	expected := filepath.Join(dir, "expected.png")
	if err := Save(expected, solid(2, 2, color.White)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := Check(solid(2, 2, color.White), expected, dir, "same"); err != nil {
		t.Errorf("Expected a match, got %v", err)
	}

	errDir := filepath.Join(dir, "errors")
	if err := Check(solid(2, 2, color.Black), expected, errDir, "page_1"); err == nil {
		t.Fatal("Expected a mismatch")
	}
	for _, name := range []string{"page_1_diff.png", "page_1_rendered.png"} {
		if _, err := os.Stat(filepath.Join(errDir, name)); err != nil {
			t.Errorf("Expected %s to be written: %v", name, err)
		}
	}
}
