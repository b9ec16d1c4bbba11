package render

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// maxPageSide bounds each side of a rendered page in pixels
const maxPageSide = 1 << 15

var (
	// ErrPageOutOfRange is returned for page numbers outside the document
	ErrPageOutOfRange = errors.New("page number out of range")
	// ErrPageSize is returned when the scaled page is empty or too large
	ErrPageSize = errors.New("invalid rendered page size")
	// ErrFormat is returned for unknown output formats
	ErrFormat = errors.New("unsupported output format")
)

// Format is an output image format
type Format string

// Output formats
const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatTIFF Format = "tiff"
	FormatBMP  Format = "bmp"
	FormatPPM  Format = "ppm"
	FormatPGM  Format = "pgm"
)

// ParseFormat maps a format name or file extension to a Format
func ParseFormat(name string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(name), ".") {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "bmp":
		return FormatBMP, nil
	case "ppm":
		return FormatPPM, nil
	case "pgm":
		return FormatPGM, nil
	}
	return "", fmt.Errorf("%w: %q", ErrFormat, name)
}

// Renderer renders the pages of one document. Pages may be rendered
// concurrently; glyphs and typefaces are shared through one font cache.
type Renderer struct {
	doc   *pdf.Document
	opts  Options
	fonts *FontCache
}

// NewRenderer creates a renderer for doc
func NewRenderer(doc *pdf.Document, opts ...Option) *Renderer {
	o := newOptions(opts)
	return &Renderer{
		doc:   doc,
		opts:  o,
		fonts: NewFontCache(o.Logger, o.SystemFonts),
	}
}

// Options returns the renderer configuration
func (r *Renderer) Options() Options {
	return r.opts
}

// Render renders a page with the configured scale and background
func (r *Renderer) Render(pageNum int) (*image.RGBA, error) {
	return r.RenderPage(pageNum, r.opts.Scale, r.opts.Background)
}

// effectiveCropBox is the part of the media box inside the crop box. A crop
// box entirely outside the media box is used as is.
func effectiveCropBox(page *pdf.Page) pdf.Rectangle {
	if r, ok := page.MediaBox.Intersect(page.CropBox); ok {
		return r
	}
	return page.CropBox
}

// pageMatrix maps default user space to device pixels for a crop box,
// rotation and scale. Device y grows downwards.
func pageMatrix(crop pdf.Rectangle, rotate int, scale float64) pdf.Matrix {
	w, h := crop.Width()*scale, crop.Height()*scale
	s := scale
	var m pdf.Matrix
	switch ((rotate%360)+360) % 360 {
	case 90:
		m = pdf.Matrix{B: s, C: s}
	case 180:
		m = pdf.Matrix{A: -s, D: s, E: w}
	case 270:
		m = pdf.Matrix{B: -s, C: -s, E: h, F: w}
	default:
		m = pdf.Matrix{A: s, D: -s, F: h}
	}
	return pdf.TranslateMatrix(-crop.LLX, -crop.LLY).Multiply(m)
}

// pageSize returns the pixel size of a rendered page
func pageSize(crop pdf.Rectangle, rotate int, scale float64) (int, int) {
	w := int(math.Ceil(crop.Width() * scale))
	h := int(math.Ceil(crop.Height() * scale))
	if r := ((rotate % 360) + 360) % 360; r == 90 || r == 270 {
		w, h = h, w
	}
	return w, h
}

// RenderPage renders a page (1-indexed) at scale device pixels per PDF
// unit. A nil background leaves the page transparent.
func (r *Renderer) RenderPage(pageNum int, scale float64, background color.Color) (*image.RGBA, error) {
	if pageNum < 1 || pageNum > r.doc.NumPages() {
		return nil, fmt.Errorf("page %d of %d: %w", pageNum, r.doc.NumPages(), ErrPageOutOfRange)
	}
	page, err := r.doc.GetPage(pageNum)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", pageNum, err)
	}
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("scale %v: %w", scale, ErrPageSize)
	}

	crop := effectiveCropBox(page)
	width, height := pageSize(crop, page.Rotate, scale)
	if width <= 0 || height <= 0 || width > maxPageSide || height > maxPageSide {
		return nil, fmt.Errorf("page %d is %dx%d pixels: %w", pageNum, width, height, ErrPageSize)
	}

	canvas := NewCanvas(width, height)
	if background != nil {
		canvas.Clear(background)
	}

	ctm := pageMatrix(crop, page.Rotate, scale)
	p := newProcessor(r.doc, pageNum, canvas, ctm, page.Resources, r.fonts, &r.opts)
	r.opts.Logger.Debug("rendering page", "page", pageNum, "width", width, "height", height, "rotate", page.Rotate)

	var annots []*pdf.Annotation
	if r.opts.Annotations {
		annots = page.Annotations()
		p.drawAnnotations(annots, true)
	}

	data, err := page.GetContents()
	if err != nil {
		r.opts.Logger.Warn("reading page contents", "page", pageNum, "error", err)
	}
	ops, err := pdf.ParseContent(data)
	if err != nil {
		r.opts.Logger.Warn("parsing page contents", "page", pageNum, "error", err)
	}
	p.Run(ops)

	if r.opts.Annotations {
		p.drawAnnotations(annots, false)
	}
	return canvas.Image(), nil
}

// RenderPNG renders a page and encodes it as PNG
func (r *Renderer) RenderPNG(pageNum int, scale float64, background color.Color) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.RenderTo(&buf, pageNum, scale, background, FormatPNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderTo renders a page and writes it to w in the given format
func (r *Renderer) RenderTo(w io.Writer, pageNum int, scale float64, background color.Color, format Format) error {
	img, err := r.RenderPage(pageNum, scale, background)
	if err != nil {
		return err
	}
	return Encode(w, img, format)
}

// Encode writes an image in the given format
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatPPM:
		return encodeNetpbm(w, img, false)
	case FormatPGM:
		return encodeNetpbm(w, img, true)
	}
	return fmt.Errorf("%w: %q", ErrFormat, format)
}

// encodeNetpbm writes binary PPM (P6) or PGM (P5)
func encodeNetpbm(w io.Writer, img image.Image, gray bool) error {
	b := img.Bounds()
	bw := bufio.NewWriter(w)
	magic := "P6"
	if gray {
		magic = "P5"
	}
	if _, err := fmt.Fprintf(bw, "%s\n%d %d\n255\n", magic, b.Dx(), b.Dy()); err != nil {
		return err
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if gray {
				bw.WriteByte(color.GrayModel.Convert(color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}).(color.Gray).Y)
				continue
			}
			bw.Write([]byte{c.R, c.G, c.B})
		}
	}
	return bw.Flush()
}
