package render

import (
	"image"
	"image/color"
	"strconv"
	"testing"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

var helvetica = pdf.Dictionary{"Font": pdf.Dictionary{"F1": pdf.Dictionary{
	"Type":     pdf.Name("Font"),
	"Subtype":  pdf.Name("Type1"),
	"BaseFont": pdf.Name("Helvetica"),
}}}

// countPixels counts pixels matching a predicate
func countPixels(img *image.RGBA, match func(color.RGBA) bool) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if match(img.RGBAAt(x, y)) {
				n++
			}
		}
	}
	return n
}

func isDark(c color.RGBA) bool { return c.R < 100 && c.G < 100 && c.B < 100 }

// TestStandardFontText tests that a non-embedded standard font is drawn
// with a substitute typeface
func TestStandardFontText(t *testing.T) {
	img := renderPage(t, nil, testPage{
		width: 40, height: 30,
		content:   "BT /F1 20 Tf 2 5 Td (HI) Tj ET",
		resources: helvetica,
	})
	if n := countPixels(img, isDark); n < 20 {
		t.Errorf("Expected glyph pixels, got %d", n)
	}
	// nothing is drawn above the cap height
	for x := 0; x < 40; x++ {
		if isDark(img.RGBAAt(x, 1)) {
			t.Fatalf("Unexpected ink at (%d,1)", x)
		}
	}
}

// TestTextRenderModes tests invisible and clipping render modes
func TestTextRenderModes(t *testing.T) {
	invisible := renderPage(t, nil, testPage{
		width: 40, height: 30,
		content:   "BT /F1 20 Tf 3 Tr 2 5 Td (HI) Tj ET",
		resources: helvetica,
	})
	if n := countPixels(invisible, isDark); n != 0 {
		t.Errorf("Expected no ink for mode 3, got %d pixels", n)
	}

	clipped := renderPage(t, nil, testPage{
		width: 40, height: 30,
		content:   "BT /F1 20 Tf 7 Tr 2 5 Td (HI) Tj ET 1 0 0 rg 0 0 40 30 re f",
		resources: helvetica,
	})
	isRed := func(c color.RGBA) bool { return c.R > 200 && c.G < 100 }
	n := countPixels(clipped, isRed)
	if n == 0 || n > 40*30/2 {
		t.Errorf("Expected the fill clipped to the glyphs, got %d red pixels", n)
	}
	assertPixel(t, clipped, 38, 1, white)
}

// TestTextWithoutFont tests that text shown before Tf is skipped
func TestTextWithoutFont(t *testing.T) {
	img := renderPage(t, nil, testPage{
		width: 20, height: 20,
		content: "BT 2 5 Td (HI) Tj ET 0 0 5 5 re f",
	})
	assertPixel(t, img, 2, 17, black)
	assertPixel(t, img, 10, 10, white)
}

// TestType3Font tests glyph procedures under the font matrix
func TestType3Font(t *testing.T) {
	w := pdf.NewWriter()
	proc := w.Add(pdf.Stream{Dictionary: pdf.Dictionary{}, Data: []byte("1000 0 0 0 1000 1000 d1 0 1 0 rg 0 0 1000 1000 re f")})
	font := pdf.Dictionary{
		"Type":       pdf.Name("Font"),
		"Subtype":    pdf.Name("Type3"),
		"FontBBox":   numbers(0, 0, 1000, 1000),
		"FontMatrix": numbers(0.001, 0, 0, 0.001, 0, 0),
		"CharProcs":  pdf.Dictionary{"box": proc},
		"Encoding":   pdf.Dictionary{"Differences": pdf.Array{pdf.Integer(65), pdf.Name("box")}},
		"FirstChar":  pdf.Integer(65),
		"LastChar":   pdf.Integer(65),
		"Widths":     pdf.Array{pdf.Integer(1000)},
	}
	img := renderPage(t, w, testPage{
		width: 40, height: 30,
		content:   "1 0 0 rg BT /F1 10 Tf 5 5 Td (AA) Tj ET",
		resources: pdf.Dictionary{"Font": pdf.Dictionary{"F1": font}},
	})
	// d1 glyphs take the fill colour of the text, not their own
	assertImage(t, expected(40, 30, region{image.Rect(5, 15, 25, 25), red}), img)
}

// TestFallbackPaint tests the colour and alpha used for substitute glyphs
// in each visible render mode
func TestFallbackPaint(t *testing.T) {
	gs := NewGraphicsState(pdf.IdentityMatrix())
	gs.FillColor = ColorState{Space: pdf.DeviceRGB, Values: []float64{1, 0, 0}}
	gs.StrokeColor = ColorState{Space: pdf.DeviceRGB, Values: []float64{0, 0, 1}}
	gs.AlphaFill, gs.AlphaStroke = 0.25, 0.75

	tests := []struct {
		mode       int
		wantColor  color.RGBA
		wantAlpha  float64
		wantStroke bool
	}{
		{TextFill, red, 0.25, false},
		{TextFillStroke, red, 0.25, false},
		{TextStroke, blue, 0.75, true},
		{TextStrokeClip, blue, 0.75, true},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.mode), func(t *testing.T) {
			gs.RenderMode = tt.mode
			c, alpha, stroke := fallbackPaint(&gs)
			if got := c.RGBA(1); got != tt.wantColor {
				t.Errorf("Expected colour %v, got %v", tt.wantColor, got)
			}
			if alpha != tt.wantAlpha || stroke != tt.wantStroke {
				t.Errorf("Expected alpha %v stroke %v, got %v %v", tt.wantAlpha, tt.wantStroke, alpha, stroke)
			}
		})
	}
}
