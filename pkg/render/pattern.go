package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// Pattern types and tiling paint types
const (
	PatternTiling  = 1
	PatternShading = 2

	PaintColored   = 1
	PaintUncolored = 2
)

// maxTileSize caps the side of a rendered pattern cell in pixels
const maxTileSize = 2048

// tileShader repeats a rendered pattern cell over device space
type tileShader struct {
	cell    *image.RGBA
	inv     pdf.Matrix
	x0, y0  float64
	xstep   float64
	ystep   float64
	mirrorX bool
	mirrorY bool
}

func (t *tileShader) ColorAt(x, y float64) color.RGBA64 {
	u, v := t.inv.Transform(x, y)
	fu := wrap((u-t.x0)/math.Abs(t.xstep)) * float64(t.cell.Rect.Dx())
	fv := wrap((v-t.y0)/math.Abs(t.ystep)) * float64(t.cell.Rect.Dy())
	if math.IsNaN(fu) || math.IsNaN(fv) {
		return color.RGBA64{}
	}
	w, h := t.cell.Rect.Dx(), t.cell.Rect.Dy()
	px := min(w-1, int(fu))
	py := min(h-1, int(fv))
	if t.mirrorX {
		px = w - 1 - px
	}
	// cell rows run top down
	if !t.mirrorY {
		py = h - 1 - py
	}
	i := t.cell.PixOffset(px, py)
	c := t.cell.Pix[i : i+4 : i+4]
	return color.RGBA64{R: uint16(c[0]) * 0x101, G: uint16(c[1]) * 0x101, B: uint16(c[2]) * 0x101, A: uint16(c[3]) * 0x101}
}

// wrap returns the fractional part of v in [0, 1)
func wrap(v float64) float64 {
	return v - math.Floor(v)
}

// patternShader resolves a pattern colour to a device-space shader. A nil
// shader with no error paints nothing.
func (p *Processor) patternShader(c ColorState) (Shader, error) {
	obj, err := p.resource("Pattern", c.Pattern)
	if err != nil {
		return nil, err
	}
	dict, ok := dictOf(p.doc, obj)
	if !ok {
		return nil, fmt.Errorf("pattern %s is not a dictionary", c.Pattern)
	}
	full := p.patternBase
	if m, ok := pdf.MatrixFromArray(p.doc.Floats(dict.Get("Matrix"))); ok {
		full = m.Multiply(p.patternBase)
	}

	kind, _ := p.doc.FloatOf(dict.Get("PatternType"))
	switch int(kind) {
	case PatternShading:
		sh, err := p.loadShading(dict.Get("Shading"))
		if err != nil {
			return nil, err
		}
		shader, ok := sh.shader(full, diagonal(p.canvas.Bounds()))
		if !ok {
			return nil, nil
		}
		return shader, nil
	case PatternTiling:
		stream, ok := p.doc.StreamOf(obj)
		if !ok {
			return nil, fmt.Errorf("tiling pattern %s has no content", c.Pattern)
		}
		key := fmt.Sprintf("%p|%s|%v|%v", p.currentResources(), c.Pattern, full, c.Values)
		if t, ok := p.tiles[key]; ok {
			return t, nil
		}
		t, err := p.renderTile(stream, full, c)
		if err != nil {
			return nil, err
		}
		p.tiles[key] = t
		return t, nil
	}
	return nil, fmt.Errorf("pattern type %v not supported", kind)
}

// renderTile renders one pattern cell offscreen through a nested
// processor.
func (p *Processor) renderTile(stream pdf.Stream, full pdf.Matrix, c ColorState) (*tileShader, error) {
	dict := stream.Dictionary
	bbox, ok := rectOf(p.doc, dict.Get("BBox"))
	if !ok {
		return nil, fmt.Errorf("tiling pattern without BBox")
	}
	xstep, _ := p.doc.FloatOf(dict.Get("XStep"))
	ystep, _ := p.doc.FloatOf(dict.Get("YStep"))
	if xstep == 0 || ystep == 0 || math.IsNaN(xstep) || math.IsNaN(ystep) {
		return nil, fmt.Errorf("tiling pattern step %v x %v", xstep, ystep)
	}
	inv, ok := full.Invert()
	if !ok {
		return nil, fmt.Errorf("tiling pattern matrix not invertible")
	}

	// cell resolution follows the device scale of the pattern space
	sx := math.Hypot(full.A, full.B)
	sy := math.Hypot(full.C, full.D)
	w := max(1, min(maxTileSize, int(math.Ceil(math.Abs(xstep)*sx))))
	h := max(1, min(maxTileSize, int(math.Ceil(math.Abs(ystep)*sy))))
	kx, ky := float64(w)/math.Abs(xstep), float64(h)/math.Abs(ystep)
	cellCTM := pdf.Matrix{A: kx, D: -ky, E: -bbox.LLX * kx, F: float64(h) + bbox.LLY*ky}

	data, err := stream.Decode()
	if err != nil {
		return nil, err
	}
	ops, err := pdf.ParseContent(data)
	if err != nil {
		return nil, err
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	resources := p.currentResources()
	if res, ok := p.doc.DictOf(dict.Get("Resources")); ok {
		resources = res
	}
	canvas := NewCanvas(w, h)
	cell := newProcessor(p.doc, p.page, canvas, cellCTM, resources, p.fonts, p.opts)
	cell.paints = p.paints
	cell.nesting = p.nesting
	cell.active = p.active
	canvas.IntersectClip(fillCoverage(rectPath(bbox, cellCTM), false, canvas.Bounds()))

	paintType, _ := p.doc.FloatOf(dict.Get("PaintType"))
	if int(paintType) == PaintUncolored {
		ps, _ := c.Space.(*pdf.PatternSpace)
		if ps == nil || ps.Underlying == nil {
			return nil, fmt.Errorf("uncoloured pattern without an underlying colour space")
		}
		under := ColorState{Space: ps.Underlying, Values: c.Values}
		gs := cell.State()
		gs.FillColor, gs.StrokeColor = under, under
		cell.uncolored = true
	}
	cell.Run(ops)

	return &tileShader{
		cell:    canvas.Image(),
		inv:     inv,
		x0:      bbox.LLX,
		y0:      bbox.LLY,
		xstep:   xstep,
		ystep:   ystep,
		mirrorX: xstep < 0,
		mirrorY: ystep < 0,
	}, nil
}
