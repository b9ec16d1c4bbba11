package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"sync"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/novvoo/go-pdfrender/pkg/imagediff"
	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

var (
	white = color.RGBA{255, 255, 255, 255}
	black = color.RGBA{0, 0, 0, 255}
	red   = color.RGBA{255, 0, 0, 255}
	blue  = color.RGBA{0, 0, 255, 255}
)

// testPage describes a one-page document built for a test
type testPage struct {
	width, height float64
	content       string
	resources     pdf.Dictionary
	extra         pdf.Dictionary // merged into the page dictionary
}

// buildDocument writes the pages with w and parses the result. Streams
// referenced from resources must already be added to w.
func buildDocument(t *testing.T, w *pdf.Writer, pages ...testPage) *pdf.Document {
	t.Helper()
	if w == nil {
		w = pdf.NewWriter()
	}
	dicts := make([]pdf.Dictionary, 0, len(pages))
	for _, tp := range pages {
		content := w.Add(pdf.Stream{Dictionary: pdf.Dictionary{}, Data: []byte(tp.content)})
		d := pdf.Dictionary{
			"MediaBox": pdf.Array{pdf.Integer(0), pdf.Integer(0), pdf.Real(tp.width), pdf.Real(tp.height)},
			"Contents": content,
		}
		if tp.resources != nil {
			d["Resources"] = tp.resources
		}
		for k, v := range tp.extra {
			d[k] = v
		}
		dicts = append(dicts, d)
	}
	root := w.AddPages(dicts...)
	doc, err := pdf.NewDocument(w.Bytes(root))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	return doc
}

// renderPage renders page 1 at scale 1 on white
func renderPage(t *testing.T, w *pdf.Writer, tp testPage, opts ...Option) *image.RGBA {
	t.Helper()
	doc := buildDocument(t, w, tp)
	img, err := NewRenderer(doc, opts...).RenderPage(1, 1, color.White)
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	return img
}

// region is an axis-aligned block of one colour in an expected image
type region struct {
	r image.Rectangle
	c color.RGBA
}

// expected builds a white image with regions painted in order
func expected(w, h int, regions ...region) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Rect, image.NewUniform(white), image.Point{}, draw.Src)
	for _, rg := range regions {
		draw.Draw(img, rg.r, image.NewUniform(rg.c), image.Point{}, draw.Src)
	}
	return img
}

// assertImage compares a render with the expectation within the golden
// tolerance
func assertImage(t *testing.T, want, got image.Image) {
	t.Helper()
	if diff := imagediff.Diff(want, got); diff != nil {
		n := 0
		for i := 0; i < len(diff.Pix); i += 4 {
			if diff.Pix[i] != 255 || diff.Pix[i+1] != 255 || diff.Pix[i+2] != 255 {
				n++
			}
		}
		t.Errorf("Rendered image differs from expectation in %d pixels", n)
	}
}

// assertPixel checks one pixel within the golden tolerance
func assertPixel(t *testing.T, img *image.RGBA, x, y int, want color.RGBA) {
	t.Helper()
	got := img.RGBAAt(x, y)
	for k, pair := range [][2]uint8{{got.R, want.R}, {got.G, want.G}, {got.B, want.B}, {got.A, want.A}} {
		d := int(pair[0]) - int(pair[1])
		if d > imagediff.Tolerance || d < -imagediff.Tolerance {
			t.Errorf("Pixel (%d,%d) channel %d: expected %v, got %v", x, y, k, want, got)
			return
		}
	}
}

// TestSolidFillGolden tests device mapping of a filled rectangle
func TestSolidFillGolden(t *testing.T) {
	img := renderPage(t, nil, testPage{width: 50, height: 50, content: "1 0 0 rg 10 10 30 20 re f"})
	assertImage(t, expected(50, 50, region{image.Rect(10, 20, 40, 40), red}), img)
}

// TestRotatedPage tests that rotation swaps the page size and turns the
// content clockwise
func TestRotatedPage(t *testing.T) {
	tests := []struct {
		rotate int
		want   *image.RGBA
	}{
		{0, expected(40, 20, region{image.Rect(0, 10, 10, 20), red})},
		{90, expected(20, 40, region{image.Rect(0, 0, 10, 10), red})},
		{180, expected(40, 20, region{image.Rect(30, 0, 40, 10), red})},
		{270, expected(20, 40, region{image.Rect(10, 30, 20, 40), red})},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.rotate), func(t *testing.T) {
			img := renderPage(t, nil, testPage{
				width: 40, height: 20,
				content: "1 0 0 rg 0 0 10 10 re f",
				extra:   pdf.Dictionary{"Rotate": pdf.Integer(tt.rotate)},
			})
			if img.Bounds() != tt.want.Bounds() {
				t.Fatalf("Expected bounds %v, got %v", tt.want.Bounds(), img.Bounds())
			}
			assertImage(t, tt.want, img)
		})
	}
}

// TestCropBox tests that only the crop box is rendered
func TestCropBox(t *testing.T) {
	img := renderPage(t, nil, testPage{
		width: 100, height: 100,
		content: "1 0 0 rg 50 50 10 10 re f 0 0 1 rg 0 0 50 50 re f",
		extra:   pdf.Dictionary{"CropBox": pdf.Array{pdf.Integer(50), pdf.Integer(50), pdf.Integer(200), pdf.Integer(100)}},
	})
	assertImage(t, expected(50, 50, region{image.Rect(0, 40, 10, 50), red}), img)
}

// TestScale tests that the page size and content follow the scale
func TestScale(t *testing.T) {
	doc := buildDocument(t, nil, testPage{width: 20, height: 10, content: "0 0 1 rg 0 0 10 5 re f"})
	img, err := NewRenderer(doc).RenderPage(1, 2, color.White)
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	assertImage(t, expected(40, 20, region{image.Rect(0, 10, 20, 20), blue}), img)
}

// TestTransparentBackground tests a nil background
func TestTransparentBackground(t *testing.T) {
	doc := buildDocument(t, nil, testPage{width: 10, height: 10, content: "0 0 5 5 re f"})
	img, err := NewRenderer(doc).RenderPage(1, 1, nil)
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	assertPixel(t, img, 8, 1, color.RGBA{})
	assertPixel(t, img, 2, 8, black)
}

// TestRenderPageErrors tests page number and size validation
func TestRenderPageErrors(t *testing.T) {
	doc := buildDocument(t, nil,
		testPage{width: 10, height: 10},
		testPage{width: 40000, height: 10},
	)
	r := NewRenderer(doc)

	tests := []struct {
		name  string
		page  int
		scale float64
		want  error
	}{
		{"page zero", 0, 1, ErrPageOutOfRange},
		{"past the end", 3, 1, ErrPageOutOfRange},
		{"zero scale", 1, 0, ErrPageSize},
		{"negative scale", 1, -2, ErrPageSize},
		{"too large", 2, 1, ErrPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.RenderPage(tt.page, tt.scale, color.White); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

// TestBrokenContent tests that rendering continues past bad operators
func TestBrokenContent(t *testing.T) {
	img := renderPage(t, nil, testPage{
		width: 20, height: 20,
		content: "1 0 0 rg /Nope Do (x) re 12 w foo 0 0 10 10 re f Q Q",
	})
	assertImage(t, expected(20, 20, region{image.Rect(0, 10, 10, 20), red}), img)
}

// TestRendererOptions tests option defaults and Render
func TestRendererOptions(t *testing.T) {
	doc := buildDocument(t, nil, testPage{width: 10, height: 4})
	r := NewRenderer(doc, WithScale(2), WithBackground(color.Black), WithMinLineWidth(1))
	o := r.Options()
	if o.Scale != 2 || o.MinLineWidth != 1 || !o.Annotations || o.Logger == nil {
		t.Errorf("Unexpected options %+v", o)
	}
	img, err := r.Render(1)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 20, 8) {
		t.Errorf("Expected 20x8, got %v", img.Bounds())
	}
	assertPixel(t, img, 3, 3, black)
}

// TestConcurrentRendering tests that pages of one renderer can render in
// parallel with identical results
func TestConcurrentRendering(t *testing.T) {
	doc := buildDocument(t, nil, testPage{
		width: 30, height: 30,
		content: "0 0 1 rg 5 5 20 20 re f 2 w 1 0 0 RG 0 0 m 30 30 l S",
	})
	r := NewRenderer(doc)
	want, err := r.RenderPage(1, 1, color.White)
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]*image.RGBA, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.RenderPage(1, 1, color.White)
		}(i)
	}
	wg.Wait()
	for i, got := range results {
		if got == nil || !bytes.Equal(got.Pix, want.Pix) {
			t.Errorf("Render %d differs", i)
		}
	}
}

// TestParseFormat tests format names and extensions
func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"png", FormatPNG},
		{".JPG", FormatJPEG},
		{"jpeg", FormatJPEG},
		{"tif", FormatTIFF},
		{"bmp", FormatBMP},
		{"ppm", FormatPPM},
		{".pgm", FormatPGM},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; expected %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseFormat("gif"); !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat, got %v", err)
	}
}

// TestEncode tests every output format
func TestEncode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, red)
	img.SetRGBA(1, 0, white)

	decoders := map[Format]func([]byte) (image.Image, error){
		FormatPNG:  func(b []byte) (image.Image, error) { return png.Decode(bytes.NewReader(b)) },
		FormatTIFF: func(b []byte) (image.Image, error) { return tiff.Decode(bytes.NewReader(b)) },
		FormatBMP:  func(b []byte) (image.Image, error) { return bmp.Decode(bytes.NewReader(b)) },
	}
	for format, decode := range decoders {
		var buf bytes.Buffer
		if err := Encode(&buf, img, format); err != nil {
			t.Fatalf("Encode(%s) failed: %v", format, err)
		}
		got, err := decode(buf.Bytes())
		if err != nil {
			t.Fatalf("Decoding %s failed: %v", format, err)
		}
		if d := imagediff.Diff(img, got); d != nil {
			t.Errorf("%s round trip changed the image", format)
		}
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img, FormatJPEG); err != nil || !bytes.HasPrefix(buf.Bytes(), []byte{0xFF, 0xD8}) {
		t.Errorf("Expected JPEG output, got error %v", err)
	}

	netpbm := []struct {
		format Format
		want   []byte
	}{
		{FormatPPM, append([]byte("P6\n2 1\n255\n"), 255, 0, 0, 255, 255, 255)},
		{FormatPGM, append([]byte("P5\n2 1\n255\n"), 76, 255)},
	}
	for _, tt := range netpbm {
		buf.Reset()
		if err := Encode(&buf, img, tt.format); err != nil {
			t.Fatalf("Encode(%s) failed: %v", tt.format, err)
		}
		if !bytes.Equal(buf.Bytes(), tt.want) {
			t.Errorf("%s: expected %q, got %q", tt.format, tt.want, buf.Bytes())
		}
	}

	if err := Encode(&buf, img, Format("gif")); !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat, got %v", err)
	}
}

// TestRenderPNG tests the PNG convenience wrapper
func TestRenderPNG(t *testing.T) {
	doc := buildDocument(t, nil, testPage{width: 3, height: 3, content: "1 0 0 rg 0 0 3 3 re f"})
	data, err := NewRenderer(doc).RenderPNG(1, 1, color.White)
	if err != nil {
		t.Fatalf("RenderPNG failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decoding failed: %v", err)
	}
	if r, g, _, _ := img.At(1, 1).RGBA(); r != 0xffff || g != 0 {
		t.Errorf("Expected red, got %v", img.At(1, 1))
	}
}
