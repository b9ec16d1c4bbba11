package render

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/cff"
	"github.com/golang/freetype/truetype"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// glyphScale is the ppem at which scaled outline loaders are asked for
// glyphs; results are divided back down to ems.
const glyphScale = 1000

var errNoGlyph = errors.New("glyph not in font program")

// glyphSource produces outlines in text space, one unit per em, from an
// embedded font program.
type glyphSource interface {
	glyph(f *pdf.Font, code pdf.CharCode) (*pdf.Path, error)
}

// loadGlyphSource parses the embedded program of f. A font without a
// program has a nil source and renders through substitutes.
func loadGlyphSource(f *pdf.Font) (glyphSource, error) {
	if f.Subtype == "Type3" {
		return nil, nil
	}
	prog, err := f.Program()
	if err != nil || prog == nil {
		return nil, err
	}

	switch {
	case prog.Kind == "FontFile":
		t1, err := pdf.ParseType1(prog.Data)
		if err != nil {
			return nil, fmt.Errorf("type 1 program: %w", err)
		}
		return &type1Source{font: t1}, nil
	case prog.Kind == "FontFile2":
		return newTrueTypeSource(prog.Data)
	case prog.Subtype == "OpenType":
		return newSFNTSource(prog.Data)
	}

	// FontFile3 with Type1C or CIDFontType0C
	c, err := cff.Parse(prog.Data)
	if err != nil {
		if s, serr := newSFNTSource(prog.Data); serr == nil {
			return s, nil
		}
		return nil, fmt.Errorf("CFF program: %w", err)
	}
	src := &cffSource{font: c, cid: prog.Subtype == "CIDFontType0C" || f.IsComposite(), matrix: defaultCFFMatrix}
	if m, err := cffFontMatrix(prog.Data); err == nil {
		src.matrix = m
	}
	if !src.cid {
		src.names = make(map[string]uint16, len(c.Charstrings))
		for gid := range c.Charstrings {
			if name := c.GlyphName(font.GID(gid)); name != "" {
				src.names[name] = uint16(gid)
			}
		}
	}
	return src, nil
}

// glyphName picks the glyph name of a simple-font code, falling back to
// the program's built-in encoding.
func glyphName(f *pdf.Font, code pdf.CharCode, builtin *pdf.Encoding) string {
	if name := f.GlyphName(code); name != "" {
		return name
	}
	if builtin != nil && code.Code < 256 {
		return builtin[code.Code]
	}
	return ""
}

type type1Source struct {
	font *pdf.Type1Font
}

func (s *type1Source) glyph(f *pdf.Font, code pdf.CharCode) (*pdf.Path, error) {
	name := glyphName(f, code, s.font.Encoding)
	if name == "" {
		return nil, errNoGlyph
	}
	path, _, err := s.font.Glyph(name)
	if err != nil {
		return nil, err
	}
	return transformPath(path, s.font.FontMatrix), nil
}

type cffSource struct {
	font   *cff.CFF
	cid    bool
	names  map[string]uint16
	matrix pdf.Matrix
}

func (s *cffSource) glyph(f *pdf.Font, code pdf.CharCode) (*pdf.Path, error) {
	var gid uint16
	if s.cid {
		cid := f.CID(code)
		if cid > 0xFFFF {
			return nil, errNoGlyph
		}
		gid = uint16(cid)
	} else {
		var ok bool
		gid, ok = s.names[glyphName(f, code, nil)]
		if !ok {
			// symbolic subsets often index glyphs by code
			gid = uint16(code.Code)
		}
	}
	segs, _, err := s.font.LoadGlyph(gid)
	if err != nil {
		return nil, err
	}
	path := &pdf.Path{}
	appendSegments(path, segs, 0, 0, 1)
	return transformPath(path, s.matrix), nil
}

// trueTypeSource reads glyf outlines with freetype, or with go-text when
// freetype rejects the subset.
type trueTypeSource struct {
	ft  *truetype.Font
	gt  *font.Face
	buf truetype.GlyphBuf
}

func newTrueTypeSource(data []byte) (*trueTypeSource, error) {
	if ft, err := truetype.Parse(data); err == nil {
		return &trueTypeSource{ft: ft}, nil
	}
	gt, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("TrueType program: %w", err)
	}
	return &trueTypeSource{gt: gt}, nil
}

func (s *trueTypeSource) index(r rune) (uint16, bool) {
	if s.ft != nil {
		i := s.ft.Index(r)
		return uint16(i), i != 0
	}
	g, ok := s.gt.NominalGlyph(r)
	return uint16(g), ok
}

// gid maps a code following the TrueType rules for PDF fonts: the
// CIDToGIDMap for composite fonts, the symbol cmap range for symbolic
// fonts, and Unicode through glyph names otherwise.
func (s *trueTypeSource) gid(f *pdf.Font, code pdf.CharCode) (uint16, bool) {
	if f.IsComposite() {
		return f.GID(f.CID(code))
	}
	if !f.IsSymbolic() || f.ExplicitEncoding {
		if name := f.GlyphName(code); name != "" {
			if u, ok := pdf.GlyphUnicode(name); ok {
				if r := []rune(u); len(r) > 0 {
					if g, ok := s.index(r[0]); ok {
						return g, true
					}
				}
			}
		}
	}
	for _, base := range []uint32{0, 0xF000, 0xF100, 0xF200} {
		if g, ok := s.index(rune(base + code.Code)); ok {
			return g, true
		}
	}
	return 0, false
}

func (s *trueTypeSource) glyph(f *pdf.Font, code pdf.CharCode) (*pdf.Path, error) {
	gid, ok := s.gid(f, code)
	if !ok {
		return nil, errNoGlyph
	}
	if s.ft == nil {
		data, ok := s.gt.GlyphData(font.GID(gid)).(font.GlyphOutline)
		if !ok {
			return nil, errNoGlyph
		}
		path := &pdf.Path{}
		appendSegments(path, data.Segments, 0, 0, 1/float64(s.gt.Upem()))
		return path, nil
	}

	if err := s.buf.Load(s.ft, fixed.I(glyphScale), truetype.Index(gid), xfont.HintingNone); err != nil {
		return nil, err
	}
	return quadContours(s.buf.Points, s.buf.Ends), nil
}

// quadContours converts TrueType contours of on- and off-curve points, in
// 26.6 units at glyphScale ppem, to a path in ems.
func quadContours(points []truetype.Point, ends []int) *pdf.Path {
	const unit = 64 * glyphScale
	path := &pdf.Path{}
	start := 0
	for _, end := range ends {
		contour := points[start:end]
		start = end
		if len(contour) == 0 {
			continue
		}
		pt := func(p truetype.Point) (float64, float64) {
			return float64(p.X) / unit, float64(p.Y) / unit
		}
		on := func(p truetype.Point) bool { return p.Flags&1 != 0 }

		// find an on-curve starting point, or synthesize one
		first := -1
		for i, p := range contour {
			if on(p) {
				first = i
				break
			}
		}
		var sx, sy float64
		if first < 0 {
			ax, ay := pt(contour[0])
			bx, by := pt(contour[len(contour)-1])
			sx, sy = (ax+bx)/2, (ay+by)/2
			first = 0
		} else {
			sx, sy = pt(contour[first])
			first++
		}
		path.MoveTo(sx, sy)
		cx, cy := sx, sy

		var ctrl bool
		var qx, qy float64
		quad := func(x, y float64) {
			path.CurveTo(cx+2.0/3*(qx-cx), cy+2.0/3*(qy-cy), x+2.0/3*(qx-x), y+2.0/3*(qy-y), x, y)
			cx, cy = x, y
		}
		for k := 0; k < len(contour); k++ {
			p := contour[(first+k)%len(contour)]
			x, y := pt(p)
			switch {
			case on(p) && ctrl:
				quad(x, y)
				ctrl = false
			case on(p):
				path.LineTo(x, y)
				cx, cy = x, y
			case ctrl:
				mx, my := (qx+x)/2, (qy+y)/2
				quad(mx, my)
				qx, qy = x, y
			default:
				qx, qy = x, y
				ctrl = true
			}
		}
		if ctrl {
			quad(sx, sy)
		}
		path.Close()
	}
	return path
}

// sfntSource reads OpenType programs, TrueType or CFF flavoured.
type sfntSource struct {
	font  *sfnt.Font
	buf   sfnt.Buffer
	names map[string]sfnt.GlyphIndex
}

func newSFNTSource(data []byte) (*sfntSource, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("OpenType program: %w", err)
	}
	return &sfntSource{font: f}, nil
}

func (s *sfntSource) lookup(f *pdf.Font, code pdf.CharCode) (sfnt.GlyphIndex, bool) {
	if f.IsComposite() {
		gid, ok := f.GID(f.CID(code))
		return sfnt.GlyphIndex(gid), ok
	}
	name := f.GlyphName(code)
	if name != "" {
		if u, ok := pdf.GlyphUnicode(name); ok {
			if r := []rune(u); len(r) > 0 {
				if g, err := s.font.GlyphIndex(&s.buf, r[0]); err == nil && g != 0 {
					return g, true
				}
			}
		}
		if s.names == nil {
			s.names = make(map[string]sfnt.GlyphIndex)
			for i := 0; i < s.font.NumGlyphs(); i++ {
				if n, err := s.font.GlyphName(&s.buf, sfnt.GlyphIndex(i)); err == nil && n != "" {
					s.names[n] = sfnt.GlyphIndex(i)
				}
			}
		}
		if g, ok := s.names[name]; ok {
			return g, true
		}
	}
	if g, err := s.font.GlyphIndex(&s.buf, rune(code.Code)); err == nil && g != 0 {
		return g, true
	}
	return 0, false
}

func (s *sfntSource) glyph(f *pdf.Font, code pdf.CharCode) (*pdf.Path, error) {
	gid, ok := s.lookup(f, code)
	if !ok {
		return nil, errNoGlyph
	}
	segs, err := s.font.LoadGlyph(&s.buf, gid, fixed.I(glyphScale), nil)
	if err != nil {
		return nil, err
	}
	// sfnt segments have y pointing down
	const unit = 64 * glyphScale
	pt := func(p fixed.Point26_6) (float64, float64) {
		return float64(p.X) / unit, -float64(p.Y) / unit
	}
	path := &pdf.Path{}
	var cx, cy float64
	for _, seg := range segs {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			cx, cy = pt(seg.Args[0])
			path.MoveTo(cx, cy)
		case sfnt.SegmentOpLineTo:
			cx, cy = pt(seg.Args[0])
			path.LineTo(cx, cy)
		case sfnt.SegmentOpQuadTo:
			qx, qy := pt(seg.Args[0])
			x, y := pt(seg.Args[1])
			path.CurveTo(cx+2.0/3*(qx-cx), cy+2.0/3*(qy-cy), x+2.0/3*(qx-x), y+2.0/3*(qy-y), x, y)
			cx, cy = x, y
		case sfnt.SegmentOpCubeTo:
			x1, y1 := pt(seg.Args[0])
			x2, y2 := pt(seg.Args[1])
			cx, cy = pt(seg.Args[2])
			path.CurveTo(x1, y1, x2, y2, cx, cy)
		}
	}
	return path, nil
}
