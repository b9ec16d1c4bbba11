package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// Shading types
const (
	ShadingFunction = 1
	ShadingAxial    = 2
	ShadingRadial   = 3
)

// shading is a parsed shading dictionary of type 1, 2 or 3
type shading struct {
	kind   int
	space  pdf.ColorSpace
	fn     pdf.Function
	coords []float64
	domain []float64
	extend [2]bool
	matrix pdf.Matrix
	bbox   *pdf.Rectangle
}

// errUnsupportedShading marks mesh shadings, types 4 to 7
type errUnsupportedShading int

func (e errUnsupportedShading) Error() string {
	return fmt.Sprintf("shading type %d not supported", int(e))
}

// dictOf resolves obj to the dictionary of a dictionary or stream
func dictOf(doc *pdf.Document, obj pdf.Object) (pdf.Dictionary, bool) {
	switch v := doc.Resolve(obj).(type) {
	case pdf.Dictionary:
		return v, true
	case pdf.Stream:
		return v.Dictionary, true
	}
	return nil, false
}

// rectOf reads a normalized rectangle array
func rectOf(doc *pdf.Document, obj pdf.Object) (pdf.Rectangle, bool) {
	v := doc.Floats(obj)
	if len(v) != 4 {
		return pdf.Rectangle{}, false
	}
	return pdf.Rectangle{
		LLX: min(v[0], v[2]), LLY: min(v[1], v[3]),
		URX: max(v[0], v[2]), URY: max(v[1], v[3]),
	}, true
}

func (p *Processor) loadShading(obj pdf.Object) (*shading, error) {
	dict, ok := dictOf(p.doc, obj)
	if !ok {
		return nil, fmt.Errorf("shading is not a dictionary")
	}
	kind, _ := p.doc.FloatOf(dict.Get("ShadingType"))
	sh := &shading{kind: int(kind), matrix: pdf.IdentityMatrix()}
	if sh.kind < ShadingFunction || sh.kind > ShadingRadial {
		return sh, errUnsupportedShading(sh.kind)
	}

	cs, err := p.doc.ParseColorSpace(dict.Get("ColorSpace"), p.currentResources())
	if err != nil {
		return nil, fmt.Errorf("shading colour space: %w", err)
	}
	if _, ok := cs.(*pdf.PatternSpace); ok {
		return nil, fmt.Errorf("shading in a pattern colour space")
	}
	sh.space = cs

	fn, err := p.doc.ParseFunction(dict.Get("Function"))
	if err != nil {
		return nil, fmt.Errorf("shading function: %w", err)
	}
	sh.fn = fn

	if r, ok := rectOf(p.doc, dict.Get("BBox")); ok {
		sh.bbox = &r
	}

	switch sh.kind {
	case ShadingFunction:
		sh.domain = []float64{0, 1, 0, 1}
		if d := p.doc.Floats(dict.Get("Domain")); len(d) == 4 {
			sh.domain = d
		}
		if m, ok := pdf.MatrixFromArray(p.doc.Floats(dict.Get("Matrix"))); ok {
			sh.matrix = m
		}
	case ShadingAxial, ShadingRadial:
		want := 4
		if sh.kind == ShadingRadial {
			want = 6
		}
		sh.coords = p.doc.Floats(dict.Get("Coords"))
		if len(sh.coords) != want {
			return nil, fmt.Errorf("shading type %d needs %d coordinates, got %d", sh.kind, want, len(sh.coords))
		}
		sh.domain = []float64{0, 1}
		if d := p.doc.Floats(dict.Get("Domain")); len(d) == 2 {
			sh.domain = d
		}
		if arr, ok := p.doc.ArrayOf(dict.Get("Extend")); ok && len(arr) == 2 {
			for i := range sh.extend {
				if b, ok := p.doc.Resolve(arr[i]).(pdf.Boolean); ok {
					sh.extend[i] = bool(b)
				}
			}
		}
	}
	return sh, nil
}

// color evaluates the shading function. Non-finite outputs are replaced
// by the first domain value.
func (sh *shading) color(in ...float64) color.RGBA64 {
	out := sh.fn.Apply(in...)
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = sh.domain[0]
		}
	}
	r, g, b := sh.space.ToRGB(out)
	return color.RGBA64{
		R: uint16(clamp01(r)*0xffff + 0.5),
		G: uint16(clamp01(g)*0xffff + 0.5),
		B: uint16(clamp01(b)*0xffff + 0.5),
		A: 0xffff,
	}
}

// shader builds a device-space shader. m maps shading space to device
// space and diag is the device diagonal the shader will cover.
func (sh *shading) shader(m pdf.Matrix, diag float64) (Shader, bool) {
	inv, ok := m.Invert()
	if !ok {
		return nil, false
	}
	switch sh.kind {
	case ShadingAxial:
		return newAxialShader(sh, inv, diag), true
	case ShadingRadial:
		c := sh.coords
		if c[2] == 0 && c[5] == 0 {
			return nil, false
		}
		return &radialShader{sh: sh, inv: inv, stops: sh.stops(diag)}, true
	case ShadingFunction:
		return newFunctionShader(sh, inv, diag), true
	}
	return nil, false
}

// stops samples the function of an axial or radial shading at
// max(10, ceil(diag/10)) intervals of the domain.
func (sh *shading) stops(diag float64) []color.RGBA64 {
	n := max(10, int(math.Ceil(diag/10)))
	t0, t1 := sh.domain[0], sh.domain[1]
	out := make([]color.RGBA64, n+1)
	for i := range out {
		out[i] = sh.color(t0 + float64(i)/float64(n)*(t1-t0))
	}
	return out
}

func (sh *shading) inBBox(x, y float64) bool {
	b := sh.bbox
	return b == nil || x >= b.LLX && x <= b.URX && y >= b.LLY && y <= b.URY
}

// stopAt picks the stop for s in [0, 1]
func stopAt(stops []color.RGBA64, s float64) color.RGBA64 {
	n := len(stops) - 1
	i := int(math.Round(s * float64(n)))
	return stops[max(0, min(n, i))]
}

type axialShader struct {
	sh     *shading
	inv    pdf.Matrix
	stops  []color.RGBA64
	dx, dy float64
	denom  float64
}

func newAxialShader(sh *shading, inv pdf.Matrix, diag float64) *axialShader {
	c := sh.coords
	dx, dy := c[2]-c[0], c[3]-c[1]
	return &axialShader{sh: sh, inv: inv, stops: sh.stops(diag), dx: dx, dy: dy, denom: dx*dx + dy*dy}
}

func (a *axialShader) ColorAt(x, y float64) color.RGBA64 {
	sx, sy := a.inv.Transform(x, y)
	if !a.sh.inBBox(sx, sy) {
		return color.RGBA64{}
	}
	var s float64
	if a.denom > 0 {
		s = ((sx-a.sh.coords[0])*a.dx + (sy-a.sh.coords[1])*a.dy) / a.denom
	}
	switch {
	case s < 0 && !a.sh.extend[0], s > 1 && !a.sh.extend[1]:
		return color.RGBA64{}
	}
	return stopAt(a.stops, s)
}

type radialShader struct {
	sh    *shading
	inv   pdf.Matrix
	stops []color.RGBA64
}

// ColorAt finds the largest s whose circle passes through the point and
// has a non-negative radius.
func (r *radialShader) ColorAt(x, y float64) color.RGBA64 {
	px, py := r.inv.Transform(x, y)
	if !r.sh.inBBox(px, py) {
		return color.RGBA64{}
	}
	c := r.sh.coords
	x0, y0, r0, x1, y1, r1 := c[0], c[1], c[2], c[3], c[4], c[5]
	cdx, cdy, dr := x1-x0, y1-y0, r1-r0
	pdx, pdy := px-x0, py-y0

	qa := cdx*cdx + cdy*cdy - dr*dr
	qb := pdx*cdx + pdy*cdy + r0*dr
	qc := pdx*pdx + pdy*pdy - r0*r0

	var cands [2]float64
	n := 0
	if math.Abs(qa) < 1e-12 {
		if qb == 0 {
			return color.RGBA64{}
		}
		cands[0], n = qc/(2*qb), 1
	} else {
		disc := qb*qb - qa*qc
		if disc < 0 {
			return color.RGBA64{}
		}
		sq := math.Sqrt(disc)
		s1, s2 := (qb+sq)/qa, (qb-sq)/qa
		cands[0], cands[1], n = max(s1, s2), min(s1, s2), 2
	}
	for _, s := range cands[:n] {
		if r0+s*dr < 0 {
			continue
		}
		switch {
		case s < 0 && !r.sh.extend[0], s > 1 && !r.sh.extend[1]:
			continue
		}
		return stopAt(r.stops, s)
	}
	return color.RGBA64{}
}

// functionShader samples a type 1 shading on a grid over its domain and
// interpolates between grid points.
type functionShader struct {
	sh   *shading
	inv  pdf.Matrix
	n    int
	grid []color.RGBA64
}

func newFunctionShader(sh *shading, m pdf.Matrix, diag float64) *functionShader {
	// m inverts the device mapping; fold in the inverse of /Matrix
	minv, ok := sh.matrix.Invert()
	if !ok {
		minv = pdf.IdentityMatrix()
	}
	n := max(10, int(math.Ceil(diag/50)))
	d := sh.domain
	f := &functionShader{sh: sh, inv: m.Multiply(minv), n: n, grid: make([]color.RGBA64, (n+1)*(n+1))}
	for j := 0; j <= n; j++ {
		ty := d[2] + float64(j)/float64(n)*(d[3]-d[2])
		for i := 0; i <= n; i++ {
			tx := d[0] + float64(i)/float64(n)*(d[1]-d[0])
			f.grid[j*(n+1)+i] = sh.color(tx, ty)
		}
	}
	return f
}

func (f *functionShader) ColorAt(x, y float64) color.RGBA64 {
	tx, ty := f.inv.Transform(x, y)
	d := f.sh.domain
	if tx < min(d[0], d[1]) || tx > max(d[0], d[1]) || ty < min(d[2], d[3]) || ty > max(d[2], d[3]) {
		return color.RGBA64{}
	}
	if f.sh.bbox != nil {
		// the bounding box is in shading space
		sx, sy := f.sh.matrix.Transform(tx, ty)
		if !f.sh.inBBox(sx, sy) {
			return color.RGBA64{}
		}
	}
	u := (tx - d[0]) / (d[1] - d[0]) * float64(f.n)
	v := (ty - d[2]) / (d[3] - d[2]) * float64(f.n)
	if math.IsNaN(u) || math.IsNaN(v) {
		return f.grid[0]
	}
	i, j := min(f.n-1, int(u)), min(f.n-1, int(v))
	fu, fv := u-float64(i), v-float64(j)
	at := func(i, j int) color.RGBA64 { return f.grid[j*(f.n+1)+i] }
	lerp := func(a, b, c, e uint16) uint16 {
		top := float64(a)*(1-fu) + float64(b)*fu
		bot := float64(c)*(1-fu) + float64(e)*fu
		return uint16(top*(1-fv) + bot*fv + 0.5)
	}
	c00, c10, c01, c11 := at(i, j), at(i+1, j), at(i, j+1), at(i+1, j+1)
	return color.RGBA64{
		R: lerp(c00.R, c10.R, c01.R, c11.R),
		G: lerp(c00.G, c10.G, c01.G, c11.G),
		B: lerp(c00.B, c10.B, c01.B, c11.B),
		A: 0xffff,
	}
}

// placeholderShader paints the red to green gradient drawn for mesh
// shadings in debug mode.
type placeholderShader struct {
	x0, y0, dx, dy, denom float64
}

func newPlaceholderShader(ctm pdf.Matrix) *placeholderShader {
	x0, y0 := ctm.Transform(0, 0)
	x1, y1 := ctm.Transform(0, 1)
	dx, dy := x1-x0, y1-y0
	return &placeholderShader{x0: x0, y0: y0, dx: dx, dy: dy, denom: dx*dx + dy*dy}
}

func (s *placeholderShader) ColorAt(x, y float64) color.RGBA64 {
	var t float64
	if s.denom > 0 {
		t = clamp01(((x-s.x0)*s.dx + (y-s.y0)*s.dy) / s.denom)
	}
	g := uint16(t*0x8000 + 0.5)
	return color.RGBA64{R: uint16((1 - t) * 0xffff), G: g, A: 0xffff}
}

func diagonal(r image.Rectangle) float64 {
	return math.Hypot(float64(r.Dx()), float64(r.Dy()))
}

// paintShading implements sh: the shading fills the current clip.
func (p *Processor) paintShading(name pdf.Name) error {
	obj, err := p.resource("Shading", name)
	if err != nil {
		return err
	}
	gs := p.State()
	sh, err := p.loadShading(obj)
	if err != nil {
		if _, ok := err.(errUnsupportedShading); ok && p.opts.Debug {
			p.canvas.FillShader(nil, newPlaceholderShader(gs.CTM), opaque)
		}
		return err
	}
	shader, ok := sh.shader(gs.CTM, diagonal(p.canvas.ClipBounds()))
	if !ok {
		return nil
	}
	p.canvas.FillShader(nil, shader, p.compositing(gs.AlphaFill))
	return nil
}
