package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// Shader supplies a premultiplied colour for each device pixel centre
type Shader interface {
	ColorAt(x, y float64) color.RGBA64
}

// Compositing carries the transparency parameters of one paint operation
type Compositing struct {
	Alpha    float64
	Mode     BlendMode
	SoftMask *image.Alpha
}

var opaque = Compositing{Alpha: 1}

// Canvas is an RGBA drawing surface with a clip stack. A nil clip means
// the whole surface is visible; clip pixels outside the clip's Rect are 0.
type Canvas struct {
	img   *image.RGBA
	clip  *image.Alpha
	saved []*image.Alpha
}

// NewCanvas creates a transparent canvas
func NewCanvas(width, height int) *Canvas {
	return &Canvas{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Image returns the canvas pixels
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Bounds returns the canvas rectangle
func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Rect
}

// Clear fills the canvas with a colour, ignoring the clip
func (c *Canvas) Clear(col color.Color) {
	draw.Draw(c.img, c.img.Rect, image.NewUniform(col), image.Point{}, draw.Src)
}

// Save pushes the current clip. The saved mask is shared, never modified.
func (c *Canvas) Save() {
	c.saved = append(c.saved, c.clip)
}

// Restore pops the clip pushed by the matching Save
func (c *Canvas) Restore() {
	if len(c.saved) == 0 {
		return
	}
	c.clip = c.saved[len(c.saved)-1]
	c.saved = c.saved[:len(c.saved)-1]
}

// Depth returns the number of unmatched Save calls
func (c *Canvas) Depth() int {
	return len(c.saved)
}

// ClipBounds returns the rectangle outside which nothing can be painted
func (c *Canvas) ClipBounds() image.Rectangle {
	if c.clip == nil {
		return c.img.Rect
	}
	return c.clip.Rect
}

// Clip returns the current clip mask, nil when unclipped
func (c *Canvas) Clip() *image.Alpha {
	return c.clip
}

// IntersectClip narrows the clip by a coverage mask. A nil mask clips
// everything away.
func (c *Canvas) IntersectClip(mask *image.Alpha) {
	if mask == nil {
		c.clip = image.NewAlpha(image.Rectangle{})
		return
	}
	r := mask.Rect.Intersect(c.ClipBounds())
	out := image.NewAlpha(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			v := mask.Pix[mask.PixOffset(x, y)]
			if c.clip != nil {
				v = mul8(v, c.clip.Pix[c.clip.PixOffset(x, y)])
			}
			out.Pix[out.PixOffset(x, y)] = v
		}
	}
	c.clip = out
}

// FillMask paints a premultiplied colour through a coverage mask.
func (c *Canvas) FillMask(cov *image.Alpha, src color.RGBA, comp Compositing) {
	if cov == nil || src.A == 0 && comp.Mode == BlendNormal {
		return
	}
	s := [4]float64{
		float64(src.R) / 255 * comp.Alpha,
		float64(src.G) / 255 * comp.Alpha,
		float64(src.B) / 255 * comp.Alpha,
		float64(src.A) / 255 * comp.Alpha,
	}
	r := cov.Rect.Intersect(c.ClipBounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m := c.maskAt(x, y, comp.SoftMask) * float64(cov.Pix[cov.PixOffset(x, y)]) / 255
			if m == 0 {
				continue
			}
			c.compose(x, y, s[0]*m, s[1]*m, s[2]*m, s[3]*m, comp.Mode)
		}
	}
}

// FillShader paints a shader through a coverage mask. A nil mask covers
// the whole clip.
func (c *Canvas) FillShader(cov *image.Alpha, sh Shader, comp Compositing) {
	r := c.ClipBounds()
	if cov != nil {
		r = r.Intersect(cov.Rect)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m := c.maskAt(x, y, comp.SoftMask) * comp.Alpha
			if cov != nil {
				m *= float64(cov.Pix[cov.PixOffset(x, y)]) / 255
			}
			if m == 0 {
				continue
			}
			col := sh.ColorAt(float64(x)+0.5, float64(y)+0.5)
			if col.A == 0 {
				continue
			}
			m /= 0xffff
			c.compose(x, y, float64(col.R)*m, float64(col.G)*m, float64(col.B)*m, float64(col.A)*m, comp.Mode)
		}
	}
}

// DrawLayer composites a premultiplied layer through the clip.
func (c *Canvas) DrawLayer(layer *image.RGBA, comp Compositing) {
	r := layer.Rect.Intersect(c.ClipBounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			i := layer.PixOffset(x, y)
			p := layer.Pix[i : i+4 : i+4]
			if p[3] == 0 {
				continue
			}
			m := c.maskAt(x, y, comp.SoftMask) * comp.Alpha / 255
			if m == 0 {
				continue
			}
			c.compose(x, y, float64(p[0])*m, float64(p[1])*m, float64(p[2])*m, float64(p[3])*m, comp.Mode)
		}
	}
}

// DrawImage maps img onto the device parallelogram given by the image
// unit square under m. Row 0 of img lands at the top of the unit square.
func (c *Canvas) DrawImage(img image.Image, m pdf.Matrix, interpolate bool, comp Compositing) {
	b := img.Bounds()
	if b.Empty() {
		return
	}
	w, h := float64(b.Dx()), float64(b.Dy())
	s2d := pdf.Matrix{A: 1 / w, D: -1 / h, E: -float64(b.Min.X) / w, F: 1 + float64(b.Min.Y)/h}.Multiply(m)
	if math.Abs(s2d.Determinant()) < 1e-9 {
		return
	}

	dr := deviceRect(m.TransformRect(pdf.Rectangle{URX: 1, URY: 1})).Intersect(c.ClipBounds())
	if dr.Empty() {
		return
	}

	var interp draw.Interpolator = draw.BiLinear
	if !interpolate && math.Sqrt(math.Abs(s2d.Determinant())) > 1 {
		interp = draw.NearestNeighbor
	}
	aff := f64.Aff3{s2d.A, s2d.C, s2d.E, s2d.B, s2d.D, s2d.F}

	if comp.Mode == BlendNormal && comp.Alpha >= 1 && comp.SoftMask == nil {
		opts := &draw.Options{}
		if c.clip != nil {
			opts.DstMask = c.clip
		}
		interp.Transform(subImage(c.img, dr), aff, img, b, draw.Over, opts)
		return
	}
	tmp := image.NewRGBA(dr)
	interp.Transform(tmp, aff, img, b, draw.Src, nil)
	c.DrawLayer(tmp, comp)
}

func subImage(img *image.RGBA, r image.Rectangle) *image.RGBA {
	return img.SubImage(r).(*image.RGBA)
}

// deviceRect returns the pixel rectangle enclosing a device-space rectangle.
func deviceRect(r pdf.Rectangle) image.Rectangle {
	clamp := func(v float64) int {
		return int(max(-maxCoord, min(maxCoord, v)))
	}
	return image.Rect(
		clamp(math.Floor(r.LLX)), clamp(math.Floor(r.LLY)),
		clamp(math.Ceil(r.URX)), clamp(math.Ceil(r.URY)),
	)
}

// maskAt returns the clip times the soft mask at a pixel, in [0, 1].
func (c *Canvas) maskAt(x, y int, smask *image.Alpha) float64 {
	m := 1.0
	if c.clip != nil {
		m = float64(c.clip.Pix[c.clip.PixOffset(x, y)]) / 255
	}
	if smask != nil {
		if !(image.Point{X: x, Y: y}).In(smask.Rect) {
			return 0
		}
		m *= float64(smask.Pix[smask.PixOffset(x, y)]) / 255
	}
	return m
}

// compose blends one premultiplied source pixel, components in [0, 1],
// onto the canvas.
func (c *Canvas) compose(x, y int, sr, sg, sb, sa float64, mode BlendMode) {
	i := c.img.PixOffset(x, y)
	p := c.img.Pix[i : i+4 : i+4]
	db := [3]float64{float64(p[0]) / 255, float64(p[1]) / 255, float64(p[2]) / 255}
	da := float64(p[3]) / 255
	src := [3]float64{sr, sg, sb}

	var out [4]float64
	if mode == BlendNormal || da == 0 || sa == 0 {
		for k := range 3 {
			out[k] = src[k] + db[k]*(1-sa)
		}
	} else {
		var cb, cs rgb
		for k := range 3 {
			cb[k] = min(1, db[k]/da)
			cs[k] = min(1, src[k]/sa)
		}
		bl := blendColor(mode, cb, cs)
		for k := range 3 {
			out[k] = (1-sa)*db[k] + (1-da)*src[k] + sa*da*bl[k]
		}
	}
	out[3] = sa + da - sa*da
	for k := range 4 {
		p[k] = uint8(max(0, min(255, out[k]*255+0.5)))
	}
}

func mul8(a, b uint8) uint8 {
	v := uint32(a)*uint32(b) + 128
	return uint8((v + v>>8) >> 8)
}
