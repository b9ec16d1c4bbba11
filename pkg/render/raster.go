package render

import (
	"image"
	"math"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// maxCoord bounds device coordinates before conversion to 26.6 fixed point.
const maxCoord = 1 << 20

type edge struct {
	x0, y0, x1, y1 float64
	dxdy           float64
}

// coverageScanner implements rasterx.Scanner. Instead of painting, it
// accumulates signed cover and area per pixel and integrates each row into
// an alpha coverage mask with the nonzero or even-odd rule.
type coverageScanner struct {
	width, height int
	nonZero       bool
	clip          image.Rectangle

	edges       []edge
	cur         fixed.Point26_6
	open        bool
	minX, minY  fixed.Int26_6
	maxX, maxY  fixed.Int26_6
	cover, area []float32

	mask *image.Alpha
}

var _ rasterx.Scanner = (*coverageScanner)(nil)

func newCoverageScanner(width, height int) *coverageScanner {
	s := &coverageScanner{nonZero: true}
	s.SetBounds(width, height)
	return s
}

func (s *coverageScanner) SetBounds(w, h int) {
	s.width, s.height = w, h
	s.Clear()
}

// SetColor is a no-op: the scanner only produces coverage.
func (s *coverageScanner) SetColor(interface{}) {}

func (s *coverageScanner) SetWinding(useNonZeroWinding bool) {
	s.nonZero = useNonZeroWinding
}

func (s *coverageScanner) SetClip(rect image.Rectangle) {
	s.clip = rect
}

func (s *coverageScanner) Clear() {
	s.edges = s.edges[:0]
	s.open = false
	s.minX, s.minY = math.MaxInt32, math.MaxInt32
	s.maxX, s.maxY = math.MinInt32, math.MinInt32
	s.mask = nil
}

func (s *coverageScanner) GetPathExtent() fixed.Rectangle26_6 {
	return fixed.Rectangle26_6{
		Min: fixed.Point26_6{X: s.minX, Y: s.minY},
		Max: fixed.Point26_6{X: s.maxX, Y: s.maxY},
	}
}

// Start begins a new contour. Contours are left as the adder ends them:
// the Filler closes each one in Stop, while stroke outlines arrive as open
// pieces that only enclose an area together.
func (s *coverageScanner) Start(a fixed.Point26_6) {
	s.cur = a
	s.open = true
	s.extend(a)
}

func (s *coverageScanner) Line(b fixed.Point26_6) {
	if !s.open {
		s.Start(s.cur)
	}
	s.addEdge(s.cur, b)
	s.cur = b
	s.extend(b)
}

func (s *coverageScanner) extend(p fixed.Point26_6) {
	s.minX, s.maxX = min(s.minX, p.X), max(s.maxX, p.X)
	s.minY, s.maxY = min(s.minY, p.Y), max(s.maxY, p.Y)
}

func (s *coverageScanner) addEdge(a, b fixed.Point26_6) {
	if a.Y == b.Y {
		return
	}
	e := edge{
		x0: float64(a.X) / 64, y0: float64(a.Y) / 64,
		x1: float64(b.X) / 64, y1: float64(b.Y) / 64,
	}
	e.dxdy = (e.x1 - e.x0) / (e.y1 - e.y0)
	s.edges = append(s.edges, e)
}

// Draw integrates the accumulated edges into s.mask. The mask covers the
// pixels touched by the path extent, clipped to the scanner bounds; it is nil when nothing shows.
func (s *coverageScanner) Draw() {
	s.open = false
	s.mask = nil
	if len(s.edges) == 0 {
		return
	}

	r := image.Rect(
		int(math.Floor(float64(s.minX)/64)), int(math.Floor(float64(s.minY)/64)),
		int(math.Ceil(float64(s.maxX)/64)), int(math.Ceil(float64(s.maxY)/64)),
	).Intersect(image.Rect(0, 0, s.width, s.height))
	if s.clip != (image.Rectangle{}) {
		r = r.Intersect(s.clip)
	}
	if r.Empty() {
		return
	}

	w := r.Dx()
	if cap(s.cover) < w {
		s.cover = make([]float32, w)
		s.area = make([]float32, w)
	}
	cover, area := s.cover[:w], s.area[:w]
	mask := image.NewAlpha(r)

	// bucket edges by the first row they touch
	rows := make([][]int, r.Dy())
	for i := range s.edges {
		e := &s.edges[i]
		top := int(math.Floor(min(e.y0, e.y1)))
		bottom := int(math.Floor(max(e.y0, e.y1)))
		if bottom < r.Min.Y || top >= r.Max.Y {
			continue
		}
		top = max(top, r.Min.Y)
		rows[top-r.Min.Y] = append(rows[top-r.Min.Y], i)
	}

	var active []int
	for y := r.Min.Y; y < r.Max.Y; y++ {
		active = append(active, rows[y-r.Min.Y]...)
		if len(active) == 0 {
			continue
		}
		clear(cover)
		clear(area)
		kept := active[:0]
		for _, i := range active {
			e := &s.edges[i]
			if max(e.y0, e.y1) <= float64(y) {
				continue
			}
			accumulateEdge(e, y, cover, area, r.Min.X, r.Max.X)
			kept = append(kept, i)
		}
		active = kept

		row := mask.Pix[(y-r.Min.Y)*mask.Stride:]
		var acc float32
		for x := range w {
			raw := acc + area[x]
			acc += cover[x]
			var c float32
			if s.nonZero {
				c = min(abs32(raw), 1)
			} else {
				raw = abs32(raw)
				c = 1 - abs32(1-(raw-2*float32(int(raw/2))))
			}
			row[x] = uint8(c*255 + 0.5)
		}
	}
	s.mask = mask
}

// accumulateEdge adds the part of e inside scanline y to the cover and area
// buffers, which start at pixel column xMin.
func accumulateEdge(e *edge, y int, cover, area []float32, xMin, xMax int) {
	yTop := max(float64(y), min(e.y0, e.y1))
	yBot := min(float64(y+1), max(e.y0, e.y1))
	if yBot <= yTop {
		return
	}
	sign := float32(1)
	if e.y1 < e.y0 {
		sign = -1
	}

	xTop := e.x0 + e.dxdy*(yTop-e.y0)
	xBot := e.x0 + e.dxdy*(yBot-e.y0)
	xl, xr := min(xTop, xBot), max(xTop, xBot)
	pl, pr := int(math.Floor(xl)), int(math.Floor(xr))

	add := func(pix int, dy, xmid float64) {
		c := sign * float32(dy)
		switch {
		case pix < xMin:
			cover[0] += c
			area[0] += c
		case pix < xMax:
			cover[pix-xMin] += c
			area[pix-xMin] += c * float32(1-(xmid-float64(pix)))
		}
	}

	if pr < xMin {
		add(pr, yBot-yTop, xr)
		return
	}
	if pl >= xMax {
		return
	}
	if pl == pr {
		add(pl, yBot-yTop, (xl+xr)/2)
		return
	}

	dydx := 1 / e.dxdy
	for pix := pl; pix <= pr; pix++ {
		ya := e.y0 + dydx*(float64(pix)-e.x0)
		yb := e.y0 + dydx*(float64(pix+1)-e.x0)
		y0 := max(min(ya, yb), yTop)
		y1 := min(max(ya, yb), yBot)
		if y1 <= y0 {
			continue
		}
		ym := (y0 + y1) / 2
		add(pix, y1-y0, e.x0+e.dxdy*(ym-e.y0))
	}
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func toFixed(x, y float64) fixed.Point26_6 {
	x = max(-maxCoord, min(maxCoord, x))
	y = max(-maxCoord, min(maxCoord, y))
	if math.IsNaN(x) {
		x = 0
	}
	if math.IsNaN(y) {
		y = 0
	}
	return fixed.Point26_6{X: fixed.Int26_6(math.Round(x * 64)), Y: fixed.Int26_6(math.Round(y * 64))}
}

// addPath feeds a device-space path to a rasterx adder. Fills close every
// subpath; strokes close only those ending in an explicit close command.
func addPath(a rasterx.Adder, p *pdf.Path, fill bool) {
	started := false
	var sx, sy, cx, cy float64
	for _, c := range p.Commands {
		switch c.Type {
		case "M":
			if started {
				a.Stop(fill)
			}
			cx, cy = c.Points[0], c.Points[1]
			sx, sy = cx, cy
			a.Start(toFixed(cx, cy))
			started = true
		case "L":
			if !started {
				a.Start(toFixed(cx, cy))
				started = true
			}
			cx, cy = c.Points[0], c.Points[1]
			a.Line(toFixed(cx, cy))
		case "C":
			if !started {
				a.Start(toFixed(cx, cy))
				started = true
			}
			pt := c.Points
			a.CubeBezier(toFixed(pt[0], pt[1]), toFixed(pt[2], pt[3]), toFixed(pt[4], pt[5]))
			cx, cy = pt[4], pt[5]
		case "H":
			if started {
				a.Stop(true)
				started = false
			}
			cx, cy = sx, sy
		}
	}
	if started {
		a.Stop(fill)
	}
}

// fillCoverage rasterizes a device path into a coverage mask.
func fillCoverage(p *pdf.Path, evenOdd bool, bounds image.Rectangle) *image.Alpha {
	if p.Empty() {
		return nil
	}
	s := newCoverageScanner(bounds.Dx(), bounds.Dy())
	f := rasterx.NewFiller(bounds.Dx(), bounds.Dy(), s)
	f.SetWinding(!evenOdd)
	addPath(f, p, true)
	f.Draw()
	return s.mask
}

// strokeCoverage rasterizes the outline of a device path stroked with the
// paint's settings. Stroke outlines overlap, so they always use nonzero.
func strokeCoverage(p *pdf.Path, paint *Paint, bounds image.Rectangle) *image.Alpha {
	if p.Empty() {
		return nil
	}
	s := newCoverageScanner(bounds.Dx(), bounds.Dy())
	d := rasterx.NewDasher(bounds.Dx(), bounds.Dy(), s)
	d.SetStroke(
		fixed.Int26_6(paint.Width*64),
		fixed.Int26_6(paint.MiterLimit*64),
		paint.Cap, nil, paint.Gap, paint.Join,
		paint.Dash, paint.DashPhase,
	)
	d.SetWinding(true)
	addPath(d, p, false)
	d.Draw()
	return s.mask
}
