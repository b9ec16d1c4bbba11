package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// ErrInvalidImage reports an image whose samples cannot be converted
var ErrInvalidImage = errors.New("render: invalid image")

// ImageToRGBA converts a PDF image to non-premultiplied RGBA. Stencil
// masks paint fill where they mark and are transparent elsewhere.
func ImageToRGBA(img *pdf.Image, fill color.RGBA) (*image.NRGBA, error) {
	if img.ImageMask {
		return stencilToRGBA(img, fill)
	}
	if _, ok := img.ColorSpace.(*pdf.PatternSpace); ok {
		return nil, fmt.Errorf("%w: pattern colour space", ErrInvalidImage)
	}

	s, err := imageSamples(img)
	if err != nil {
		return nil, err
	}
	out := image.NewNRGBA(image.Rect(0, 0, s.width, s.height))
	conv := newColorConverter(s.space, s.bpc, s.decode)
	raw := make([]uint16, s.width*s.ncomp)
	comps := make([]float64, s.ncomp)
	for y := 0; y < s.height; y++ {
		s.row(y, raw)
		o := out.Pix[y*out.Stride:]
		for x := 0; x < s.width; x++ {
			px := raw[x*s.ncomp : (x+1)*s.ncomp]
			r, g, b := conv.rgb(px, comps)
			a := uint8(255)
			if keyed(px, img.MaskArray) {
				a = 0
			}
			o[4*x], o[4*x+1], o[4*x+2], o[4*x+3] = r, g, b, a
		}
	}

	if img.MaskImage != nil {
		if err := applyStencilMask(out, img.MaskImage); err != nil {
			return nil, err
		}
	}
	if img.SMask != nil {
		if err := applySoftMask(out, img.SMask); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// samples is the unpacked view of image data
type samples struct {
	data          []byte
	width, height int
	ncomp, bpc    int
	rowBytes      int
	space         pdf.ColorSpace
	decode        []float64
}

// row unpacks the raw component values of one row
func (s *samples) row(y int, out []uint16) {
	line := s.data[y*s.rowBytes : (y+1)*s.rowBytes]
	n := s.width * s.ncomp
	switch s.bpc {
	case 8:
		for i := 0; i < n; i++ {
			out[i] = uint16(line[i])
		}
	case 16:
		for i := 0; i < n; i++ {
			out[i] = uint16(line[2*i])<<8 | uint16(line[2*i+1])
		}
	default:
		perByte := 8 / s.bpc
		mask := byte(1<<s.bpc - 1)
		for i := 0; i < n; i++ {
			shift := 8 - s.bpc*(i%perByte+1)
			out[i] = uint16(line[i/perByte] >> shift & mask)
		}
	}
}

// imageSamples checks the sample buffer size and decodes a trailing DCT
// codec if there is one.
func imageSamples(img *pdf.Image) (*samples, error) {
	s := &samples{
		data:   img.Samples,
		width:  img.Width,
		height: img.Height,
		ncomp:  img.NumComponents(),
		bpc:    img.BitsPerComponent,
		space:  img.ColorSpace,
		decode: img.Decode,
	}
	if img.Filter != nil {
		if img.Filter.Name != "DCTDecode" {
			return nil, fmt.Errorf("%w: filter %s", ErrInvalidImage, img.Filter.Name)
		}
		if err := s.decodeJPEG(img); err != nil {
			return nil, err
		}
	}
	if s.space == nil {
		return nil, fmt.Errorf("%w: no colour space", ErrInvalidImage)
	}
	s.rowBytes = (s.width*s.ncomp*s.bpc + 7) / 8
	if !sizedExactly(s.data, s.rowBytes*s.height) {
		return nil, fmt.Errorf("%w: %d bytes of samples for %dx%d", ErrInvalidImage, len(s.data), s.width, s.height)
	}
	return s, nil
}

// sizedExactly allows one trailing end-of-line marker after the samples.
func sizedExactly(data []byte, want int) bool {
	n := len(data)
	switch {
	case n == want:
		return true
	case n == want+1:
		return data[n-1] == '\n' || data[n-1] == '\r'
	case n == want+2:
		return data[n-2] == '\r' && data[n-1] == '\n'
	}
	return false
}

// decodeJPEG replaces the samples with the 8-bit components of a DCT
// image. The decoder undoes the Adobe inversion of CMYK and YCCK data.
func (s *samples) decodeJPEG(img *pdf.Image) error {
	dec, err := jpeg.Decode(bytes.NewReader(img.Samples))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	b := dec.Bounds()
	w, h := b.Dx(), b.Dy()
	var ncomp int
	var space pdf.ColorSpace
	switch dec.(type) {
	case *image.Gray:
		ncomp, space = 1, pdf.DeviceGray
	case *image.CMYK:
		ncomp, space = 4, pdf.DeviceCMYK
	default:
		ncomp, space = 3, pdf.DeviceRGB
	}
	data := make([]byte, 0, w*h*ncomp)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			switch d := dec.(type) {
			case *image.Gray:
				data = append(data, d.GrayAt(x, y).Y)
			case *image.CMYK:
				c := d.CMYKAt(x, y)
				data = append(data, c.C, c.M, c.Y, c.K)
			default:
				r, g, bl, _ := dec.At(x, y).RGBA()
				data = append(data, uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			}
		}
	}

	s.data, s.width, s.height, s.bpc = data, w, h, 8
	if img.ColorSpace == nil || img.ColorSpace.NumComponents() != ncomp {
		s.space = space
		s.decode = space.DefaultDecode(8)
	}
	s.ncomp = ncomp
	if len(s.decode) != 2*ncomp {
		s.decode = s.space.DefaultDecode(8)
	}
	return nil
}

// colorConverter maps raw samples to 8-bit RGB. Single component spaces at
// up to 8 bits go through a precomputed table.
type colorConverter struct {
	space  pdf.ColorSpace
	decode []float64
	maxVal float64
	table  [][3]uint8
}

func newColorConverter(space pdf.ColorSpace, bpc int, decode []float64) *colorConverter {
	c := &colorConverter{space: space, decode: decode, maxVal: math.Exp2(float64(bpc)) - 1}
	if space.NumComponents() == 1 && bpc <= 8 {
		n := 1 << bpc
		c.table = make([][3]uint8, n)
		comps := make([]float64, 1)
		for v := 0; v < n; v++ {
			comps[0] = c.value(0, uint16(v))
			c.table[v] = to8(space.ToRGB(comps))
		}
	}
	return c
}

// value applies the Decode array to one raw component
func (c *colorConverter) value(i int, raw uint16) float64 {
	lo, hi := 0.0, 1.0
	if 2*i+1 < len(c.decode) {
		lo, hi = c.decode[2*i], c.decode[2*i+1]
	}
	return lo + float64(raw)*(hi-lo)/c.maxVal
}

func (c *colorConverter) rgb(raw []uint16, comps []float64) (uint8, uint8, uint8) {
	if c.table != nil {
		t := c.table[raw[0]]
		return t[0], t[1], t[2]
	}
	for i, v := range raw {
		comps[i] = c.value(i, v)
	}
	t := to8(c.space.ToRGB(comps))
	return t[0], t[1], t[2]
}

func to8(r, g, b float64) [3]uint8 {
	return [3]uint8{
		uint8(clamp01(r)*255 + 0.5),
		uint8(clamp01(g)*255 + 0.5),
		uint8(clamp01(b)*255 + 0.5),
	}
}

// keyed reports whether every component lies in its colour-key range
func keyed(px []uint16, ranges []int) bool {
	if len(ranges) < 2*len(px) {
		return false
	}
	for i, v := range px {
		if int(v) < ranges[2*i] || int(v) > ranges[2*i+1] {
			return false
		}
	}
	return true
}

// stencilBits unpacks a 1-bit mask into "marked" flags. With the default
// Decode [0 1] a 0 sample marks.
func stencilBits(img *pdf.Image) ([]bool, error) {
	rowBytes := (img.Width + 7) / 8
	if !sizedExactly(img.Samples, rowBytes*img.Height) {
		return nil, fmt.Errorf("%w: %d bytes of stencil for %dx%d", ErrInvalidImage, len(img.Samples), img.Width, img.Height)
	}
	invert := len(img.Decode) == 2 && img.Decode[0] > img.Decode[1]
	out := make([]bool, img.Width*img.Height)
	for y := 0; y < img.Height; y++ {
		line := img.Samples[y*rowBytes:]
		for x := 0; x < img.Width; x++ {
			bit := line[x/8]>>(7-x%8)&1 == 1
			out[y*img.Width+x] = bit == invert
		}
	}
	return out, nil
}

func stencilToRGBA(img *pdf.Image, fill color.RGBA) (*image.NRGBA, error) {
	marked, err := stencilBits(img)
	if err != nil {
		return nil, err
	}
	// fill arrives premultiplied
	c := color.NRGBAModel.Convert(fill).(color.NRGBA)
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	for i, m := range marked {
		if m {
			copy(out.Pix[4*i:4*i+4], []uint8{c.R, c.G, c.B, c.A})
		}
	}
	return out, nil
}

// applyStencilMask clears pixels the explicit mask does not mark. A mask
// sample of 1 under the default Decode leaves the pixel transparent.
func applyStencilMask(out *image.NRGBA, mask *pdf.Image) error {
	marked, err := stencilBits(mask)
	if err != nil {
		return err
	}
	alpha := image.NewAlpha(image.Rect(0, 0, mask.Width, mask.Height))
	for i, m := range marked {
		if m {
			alpha.Pix[i] = 0xff
		}
	}
	multiplyAlpha(out, resampleAlpha(alpha, out.Bounds()))
	return nil
}

// applySoftMask takes alpha from the gray value of the soft mask and
// removes a Matte pre-blend from the colour values.
func applySoftMask(out *image.NRGBA, smask *pdf.Image) error {
	s, err := imageSamples(smask)
	if err != nil {
		return err
	}
	conv := newColorConverter(s.space, s.bpc, s.decode)
	alpha := image.NewAlpha(image.Rect(0, 0, s.width, s.height))
	raw := make([]uint16, s.width*s.ncomp)
	comps := make([]float64, s.ncomp)
	for y := 0; y < s.height; y++ {
		s.row(y, raw)
		for x := 0; x < s.width; x++ {
			r, g, b := conv.rgb(raw[x*s.ncomp:(x+1)*s.ncomp], comps)
			alpha.Pix[y*alpha.Stride+x] = uint8((299*int(r) + 587*int(g) + 114*int(b) + 500) / 1000)
		}
	}
	alpha = resampleAlpha(alpha, out.Bounds())

	var matte [3]uint8
	hasMatte := len(smask.Matte) > 0
	if hasMatte {
		m := smask.Matte
		for len(m) < 3 {
			m = append(m, m[len(m)-1])
		}
		matte = to8(m[0], m[1], m[2])
	}
	for i := 0; i < len(alpha.Pix); i++ {
		a := alpha.Pix[i]
		p := out.Pix[4*i : 4*i+4]
		if hasMatte && a > 0 {
			// c = m + (c' - m) / a
			for k := 0; k < 3; k++ {
				v := float64(matte[k]) + (float64(p[k])-float64(matte[k]))*255/float64(a)
				p[k] = uint8(max(0, min(255, v+0.5)))
			}
		}
		p[3] = mul8(p[3], a)
	}
	return nil
}

// resampleAlpha scales a mask to the image bounds if the sizes differ
func resampleAlpha(a *image.Alpha, bounds image.Rectangle) *image.Alpha {
	if a.Rect.Eq(bounds) {
		return a
	}
	out := image.NewAlpha(bounds)
	draw.BiLinear.Scale(out, bounds, a, a.Rect, draw.Src, nil)
	return out
}

func multiplyAlpha(out *image.NRGBA, a *image.Alpha) {
	for i := 0; i < len(a.Pix); i++ {
		out.Pix[4*i+3] = mul8(out.Pix[4*i+3], a.Pix[i])
	}
}

// drawImage paints an image over the unit square of the current CTM.
func (p *Processor) drawImage(img *pdf.Image) error {
	gs := p.State()
	ctm := gs.CTM
	if math.Abs(ctm.Determinant()) < 1e-12 {
		return nil
	}

	// stencils filled with a pattern paint the pattern through the mask
	if img.ImageMask && gs.FillColor.IsPattern() {
		marked, err := stencilBits(img)
		if err != nil {
			p.log.Warn("skipping image", "page", p.page, "error", err)
			p.debugImageBox()
			return nil
		}
		mask := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
		for i, m := range marked {
			if m {
				mask.Pix[4*i+3] = 0xff
			}
		}
		layer := NewCanvas(p.canvas.Bounds().Dx(), p.canvas.Bounds().Dy())
		layer.DrawImage(mask, ctm, img.Interpolate, opaque)
		cov := image.NewAlpha(layer.Bounds())
		for i := range cov.Pix {
			cov.Pix[i] = layer.img.Pix[4*i+3]
		}
		p.fillCoverageWith(cov, gs.FillColor, gs.AlphaFill, false)
		return nil
	}

	rgba, err := ImageToRGBA(img, gs.FillColor.RGBA(1))
	if err != nil {
		p.log.Warn("skipping image", "page", p.page, "width", img.Width, "height", img.Height, "error", err)
		p.debugImageBox()
		return nil
	}
	p.canvas.DrawImage(rgba, ctm, img.Interpolate, p.compositing(gs.AlphaFill))
	return nil
}
