// Package imagediff compares rendered pages against expected images
package imagediff

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

// Tolerance is the largest per-channel difference ignored by Diff
const Tolerance = 2

// maxMark caps a channel of a differing pixel in the diff image
const maxMark = 125

// Diff compares two images channel by channel. It returns nil when every
// pixel matches within Tolerance. Otherwise the result is white where the
// images agree and shows the clamped channel differences where they do
// not. When the sizes differ, the area outside the common rectangle is
// black.
func Diff(want, got image.Image) *image.RGBA {
	wb, gb := want.Bounds(), got.Bounds()
	minW, minH := min(wb.Dx(), gb.Dx()), min(wb.Dy(), gb.Dy())
	maxW, maxH := max(wb.Dx(), gb.Dx()), max(wb.Dy(), gb.Dy())

	var out *image.RGBA
	if minW != maxW || minH != maxH {
		out = emptyDiff(minW, minH, maxW, maxH)
	}

	for y := 0; y < minH; y++ {
		for x := 0; x < minW; x++ {
			a := rgb8(want.At(wb.Min.X+x, wb.Min.Y+y))
			b := rgb8(got.At(gb.Min.X+x, gb.Min.Y+y))
			if a == b {
				continue
			}
			var d [3]uint8
			small := true
			for k := range 3 {
				d[k] = uint8(math.Abs(float64(a[k]) - float64(b[k])))
				if d[k] > Tolerance {
					small = false
				}
			}
			if small {
				continue
			}
			if out == nil {
				out = emptyDiff(minW, minH, maxW, maxH)
			}
			out.SetRGBA(x, y, color.RGBA{R: min(maxMark, d[0]), G: min(maxMark, d[1]), B: min(maxMark, d[2]), A: 255})
		}
	}
	return out
}

// emptyDiff is white when the sizes match. Otherwise it is black with a
// white rectangle covering the common area.
func emptyDiff(minW, minH, maxW, maxH int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, maxW, maxH))
	if minW != maxW || minH != maxH {
		draw.Draw(img, img.Rect, image.Black, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(0, 0, minW, minH), image.White, image.Point{}, draw.Src)
		return img
	}
	draw.Draw(img, img.Rect, image.White, image.Point{}, draw.Src)
	return img
}

// rgb8 returns the colour of a pixel composited onto white, 8 bits per
// channel.
func rgb8(c color.Color) [3]uint8 {
	r, g, b, a := c.RGBA()
	bg := 0xffff - a
	return [3]uint8{uint8((r + bg) >> 8), uint8((g + bg) >> 8), uint8((b + bg) >> 8)}
}

// Downscale shrinks img by an integer factor, rounding the size up, so
// renders at a higher scale can be compared with 1x references.
func Downscale(img image.Image, factor int) image.Image {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	w := (b.Dx() + factor - 1) / factor
	h := (b.Dy() + factor - 1) / factor
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(out, out.Rect, img, b, draw.Src, nil)
	return out
}

// Load decodes a PNG file
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// Save writes img as a PNG file, creating parent directories
func Save(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Check compares a render against the PNG at expectedPath. On a mismatch
// the diff and the render are written to errDir as <name>_diff.png and
// <name>_rendered.png, and an error naming them is returned.
func Check(got image.Image, expectedPath, errDir, name string) error {
	want, err := Load(expectedPath)
	if err != nil {
		return err
	}
	diff := Diff(want, got)
	if diff == nil {
		return nil
	}
	diffPath := filepath.Join(errDir, name+"_diff.png")
	renderPath := filepath.Join(errDir, name+"_rendered.png")
	if err := Save(diffPath, diff); err != nil {
		return err
	}
	if err := Save(renderPath, got); err != nil {
		return err
	}
	return fmt.Errorf("%s differs from %s, see %s", name, expectedPath, diffPath)
}
