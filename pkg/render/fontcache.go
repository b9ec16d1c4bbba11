package render

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	ot "github.com/go-text/typesetting/font/opentype"
	"github.com/go-text/typesetting/fontscan"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// Built-in families seeded into every font map
const (
	familyGo     = "Go"
	familyGoMono = "Go Mono"
)

var goFonts = []struct {
	id, family string
	ttf        []byte
}{
	{"go:regular", familyGo, goregular.TTF},
	{"go:bold", familyGo, gobold.TTF},
	{"go:italic", familyGo, goitalic.TTF},
	{"go:bolditalic", familyGo, gobolditalic.TTF},
	{"go:mono", familyGoMono, gomono.TTF},
	{"go:monobold", familyGoMono, gomonobold.TTF},
	{"go:monoitalic", familyGoMono, gomonoitalic.TTF},
	{"go:monobolditalic", familyGoMono, gomonobolditalic.TTF},
}

// slogPrinter adapts a slog.Logger to the fontscan logger.
type slogPrinter struct {
	log *slog.Logger
}

func (p slogPrinter) Printf(format string, args ...interface{}) {
	p.log.Debug(fmt.Sprintf(format, args...), "component", "fontscan")
}

// Typeface is a resolved substitute font with its shaper
type Typeface struct {
	Face   *font.Face
	Family string

	shaper shaping.HarfbuzzShaper
}

type glyphKey struct {
	font *pdf.Font
	code uint32
}

// FontCache shares fonts, glyph outlines and substitute typefaces between
// the pages of one renderer. It is safe for concurrent use.
type FontCache struct {
	log *slog.Logger

	mu        sync.Mutex
	fontMap   *fontscan.FontMap
	fonts     map[pdf.Reference]*pdf.Font
	sources   map[*pdf.Font]glyphSource
	glyphs    map[glyphKey]*pdf.Path
	typefaces map[string]*Typeface
	fallbacks map[string]*pdf.Path
	advances  map[string]float64
}

// NewFontCache creates a font cache. With systemFonts set, installed fonts
// are indexed as substitutes; otherwise only the Go fonts are used.
func NewFontCache(logger *slog.Logger, systemFonts bool) *FontCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &FontCache{
		log:       logger,
		fontMap:   fontscan.NewFontMap(slogPrinter{logger}),
		fonts:     make(map[pdf.Reference]*pdf.Font),
		sources:   make(map[*pdf.Font]glyphSource),
		glyphs:    make(map[glyphKey]*pdf.Path),
		typefaces: make(map[string]*Typeface),
		fallbacks: make(map[string]*pdf.Path),
		advances:  make(map[string]float64),
	}
	if systemFonts {
		if err := c.fontMap.UseSystemFonts(""); err != nil {
			logger.Warn("system fonts unavailable", "error", err)
		}
	}
	for _, gf := range goFonts {
		if err := c.fontMap.AddFont(bytes.NewReader(gf.ttf), gf.id, gf.family); err != nil {
			logger.Warn("loading built-in font", "font", gf.id, "error", err)
		}
	}
	return c
}

// LoadFont prepares a font resource. Fonts reached through a reference are
// loaded once.
func (c *FontCache) LoadFont(doc *pdf.Document, obj pdf.Object) (*pdf.Font, error) {
	ref, isRef := obj.(pdf.Reference)
	if isRef {
		c.mu.Lock()
		f, ok := c.fonts[ref]
		c.mu.Unlock()
		if ok {
			return f, nil
		}
	}
	dict, ok := doc.DictOf(obj)
	if !ok {
		return nil, fmt.Errorf("font resource is not a dictionary")
	}
	f, err := pdf.LoadFont(doc, dict)
	if err != nil {
		return nil, err
	}
	if isRef {
		c.mu.Lock()
		if prev, ok := c.fonts[ref]; ok {
			f = prev
		} else {
			c.fonts[ref] = f
		}
		c.mu.Unlock()
	}
	return f, nil
}

// Glyph returns the outline of a code in text space, one unit per em. It
// returns nil when the font has no usable program or no such glyph.
func (c *FontCache) Glyph(f *pdf.Font, code pdf.CharCode) *pdf.Path {
	key := glyphKey{f, code.Code}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.glyphs[key]; ok {
		return p
	}
	src, ok := c.sources[f]
	if !ok {
		var err error
		src, err = loadGlyphSource(f)
		if err != nil {
			c.log.Warn("font program unusable", "font", f.Name, "error", err)
		}
		c.sources[f] = src
	}
	var path *pdf.Path
	if src != nil {
		var err error
		path, err = src.glyph(f, code)
		if err != nil {
			c.log.Debug("glyph outline", "font", f.Name, "code", code.Code, "error", err)
			path = nil
		}
	}
	c.glyphs[key] = path
	return path
}

// Advance returns the horizontal advance of a code in text space per unit
// of font size. Fonts without widths take them from the substitute.
func (c *FontCache) Advance(f *pdf.Font, code pdf.CharCode) float64 {
	if f.HasWidths() || f.Subtype == "Type3" {
		return f.Width(code)
	}
	text := f.Unicode(code)
	if text == "" {
		return 0
	}
	key := typefaceKey(f.CleanName(), f.IsBold(), f.IsItalic()) + "\x00" + text
	c.mu.Lock()
	if adv, ok := c.advances[key]; ok {
		c.mu.Unlock()
		return adv
	}
	c.mu.Unlock()

	_, adv := c.shape(f, text)
	c.mu.Lock()
	c.advances[key] = adv
	c.mu.Unlock()
	return adv
}

// FallbackOutline shapes text with the substitute typeface of f and
// returns its outline in text space, one unit per em.
func (c *FontCache) FallbackOutline(f *pdf.Font, text string) *pdf.Path {
	key := typefaceKey(f.CleanName(), f.IsBold(), f.IsItalic()) + "\x00" + text
	c.mu.Lock()
	if p, ok := c.fallbacks[key]; ok {
		c.mu.Unlock()
		return p
	}
	c.mu.Unlock()

	path, _ := c.shape(f, text)
	c.mu.Lock()
	c.fallbacks[key] = path
	c.mu.Unlock()
	return path
}

func (c *FontCache) shape(f *pdf.Font, text string) (*pdf.Path, float64) {
	tf := c.Typeface(f.CleanName(), f.IsBold(), f.IsItalic(), text)
	if tf == nil {
		return nil, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return tf.outline(text)
}

func typefaceKey(name string, bold, italic bool) string {
	return fmt.Sprintf("%s|%t|%t", name, bold, italic)
}

// Typeface resolves a substitute typeface. Typefaces are keyed by name and
// style only, so two fonts sharing a name share a typeface.
func (c *FontCache) Typeface(name string, bold, italic bool, text string) *Typeface {
	key := typefaceKey(name, bold, italic)

	c.mu.Lock()
	defer c.mu.Unlock()
	if tf, ok := c.typefaces[key]; ok {
		return tf
	}

	aspect := font.Aspect{Style: font.StyleNormal, Weight: font.WeightNormal}
	if bold {
		aspect.Weight = font.WeightBold
	}
	if italic {
		aspect.Style = font.StyleItalic
	}
	c.fontMap.SetQuery(fontscan.Query{Families: substituteFamilies(name), Aspect: aspect})

	r := 'a'
	if first, _ := utf8.DecodeRuneInString(text); first != utf8.RuneError && text != "" {
		r = first
	}
	face := c.fontMap.ResolveFace(r)
	if face == nil {
		c.log.Warn("no typeface available", "font", name)
		return nil
	}
	family, _ := c.fontMap.FontMetadata(face.Font)
	tf := &Typeface{Face: face, Family: family}
	c.typefaces[key] = tf
	return tf
}

// substituteFamilies lists the families tried for a PDF font name, most
// specific first.
func substituteFamilies(name string) []string {
	families := []string{name}
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "courier"), strings.Contains(lower, "mono"):
		families = append(families, fontscan.Monospace, familyGoMono)
	case strings.HasPrefix(lower, "times"), strings.Contains(lower, "serif") && !strings.Contains(lower, "sans"):
		families = append(families, fontscan.Serif, familyGo)
	case strings.HasPrefix(lower, "symbol"), strings.HasPrefix(lower, "zapfdingbats"):
		families = append(families, fontscan.SansSerif, familyGo)
	default:
		// Helvetica, Arial and anything unknown
		families = append(families, fontscan.SansSerif, familyGo)
	}
	return families
}

// outline shapes text at one em per font unit scale and returns the
// outline in ems together with the advance.
func (t *Typeface) outline(text string) (*pdf.Path, float64) {
	runes := []rune(text)
	upem := float64(t.Face.Upem())
	if upem == 0 {
		return nil, 0
	}
	out := t.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      t.Face,
		Size:      fixed.I(int(upem)),
		Script:    language.LookupScript(runes[0]),
		Language:  language.DefaultLanguage(),
	})

	path := &pdf.Path{}
	var pen float64
	for _, g := range out.Glyphs {
		ox := pen + float64(g.XOffset)/64
		oy := float64(g.YOffset) / 64
		if data, ok := t.Face.GlyphData(g.GlyphID).(font.GlyphOutline); ok {
			appendSegments(path, data.Segments, ox, oy, 1/upem)
		}
		pen += float64(g.XAdvance) / 64
	}
	return path, pen / upem
}

// appendSegments adds go-text outline segments, in font units with y up,
// to path scaled by s.
func appendSegments(path *pdf.Path, segs []font.Segment, dx, dy, s float64) {
	var cx, cy float64
	pt := func(p font.SegmentPoint) (float64, float64) {
		return (float64(p.X) + dx) * s, (float64(p.Y) + dy) * s
	}
	for _, seg := range segs {
		switch seg.Op {
		case ot.SegmentOpMoveTo:
			cx, cy = pt(seg.Args[0])
			path.MoveTo(cx, cy)
		case ot.SegmentOpLineTo:
			cx, cy = pt(seg.Args[0])
			path.LineTo(cx, cy)
		case ot.SegmentOpQuadTo:
			qx, qy := pt(seg.Args[0])
			x, y := pt(seg.Args[1])
			path.CurveTo(cx+2.0/3*(qx-cx), cy+2.0/3*(qy-cy), x+2.0/3*(qx-x), y+2.0/3*(qy-y), x, y)
			cx, cy = x, y
		case ot.SegmentOpCubeTo:
			x1, y1 := pt(seg.Args[0])
			x2, y2 := pt(seg.Args[1])
			cx, cy = pt(seg.Args[2])
			path.CurveTo(x1, y1, x2, y2, cx, cy)
		}
	}
}
