package render

import (
	"fmt"
	"image"
	"strings"
	"unicode"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// textState is the per-text-object state reset by BT
type textState struct {
	tm, tlm pdf.Matrix
	// clip gathers glyph coverage for clipping render modes until ET
	clip       *image.Alpha
	clipActive bool
}

func (p *Processor) processTextOperation(op pdf.Operation) error {
	args := op.Operands
	gs := p.State()

	switch op.Operator {
	case "BT": // Begin text
		p.text = textState{tm: pdf.IdentityMatrix(), tlm: pdf.IdentityMatrix()}
	case "ET": // End text
		if p.text.clipActive {
			p.canvas.IntersectClip(p.text.clip)
		}
		p.text.clip, p.text.clipActive = nil, false

	case "Tc": // Set character spacing
		v, err := p.floats(args, 1)
		if err != nil {
			return err
		}
		gs.CharSpacing = v[0]
	case "Tw": // Set word spacing
		v, err := p.floats(args, 1)
		if err != nil {
			return err
		}
		gs.WordSpacing = v[0]
	case "Tz": // Set horizontal scaling
		v, err := p.floats(args, 1)
		if err != nil {
			return err
		}
		gs.HorizontalScaling = v[0] / 100
	case "TL": // Set leading
		v, err := p.floats(args, 1)
		if err != nil {
			return err
		}
		gs.Leading = v[0]
	case "Ts": // Set rise
		v, err := p.floats(args, 1)
		if err != nil {
			return err
		}
		gs.Rise = v[0]
	case "Tr": // Set render mode
		v, err := p.floats(args, 1)
		if err != nil {
			return err
		}
		gs.RenderMode = int(v[0])
	case "Tf": // Set font
		if len(args) != 2 {
			return errOperands
		}
		name, ok := args[0].(pdf.Name)
		if !ok {
			return errOperands
		}
		size, _ := pdf.ToFloat(args[1])
		gs.FontSize = size
		obj, err := p.resource("Font", name)
		if err != nil {
			gs.Font = nil
			return err
		}
		font, err := p.fonts.LoadFont(p.doc, obj)
		if err != nil {
			gs.Font = nil
			p.log.Warn("skipping font", "page", p.page, "font", name, "error", err)
			return nil
		}
		gs.Font = font

	case "Td": // Move text position
		v, err := p.floats(args, 2)
		if err != nil {
			return err
		}
		p.nextLine(v[0], v[1])
	case "TD": // Move text position and set leading
		v, err := p.floats(args, 2)
		if err != nil {
			return err
		}
		gs.Leading = -v[1]
		p.nextLine(v[0], v[1])
	case "Tm": // Set text matrix
		v, err := p.floats(args, 6)
		if err != nil {
			return err
		}
		p.text.tm, _ = pdf.MatrixFromArray(v)
		p.text.tlm = p.text.tm
	case "T*": // Move to next line
		p.nextLine(0, -gs.Leading)

	case "Tj": // Show text
		if len(args) < 1 {
			return errOperands
		}
		return p.showString(args[len(args)-1])
	case "'": // Move to next line and show text
		if len(args) < 1 {
			return errOperands
		}
		p.nextLine(0, -gs.Leading)
		return p.showString(args[len(args)-1])
	case "\"": // Set spacing, move to next line, show text
		if len(args) != 3 {
			return errOperands
		}
		gs.WordSpacing, _ = pdf.ToFloat(args[0])
		gs.CharSpacing, _ = pdf.ToFloat(args[1])
		p.nextLine(0, -gs.Leading)
		return p.showString(args[2])
	case "TJ": // Show text with positioning
		if len(args) < 1 {
			return errOperands
		}
		arr, ok := args[len(args)-1].(pdf.Array)
		if !ok {
			return errOperands
		}
		for _, elem := range arr {
			if n, ok := pdf.ToFloat(elem); ok {
				p.adjust(n)
				continue
			}
			if err := p.showString(elem); err != nil {
				return err
			}
		}

	case "d0": // Coloured Type 3 glyph
	case "d1": // Uncoloured Type 3 glyph
		p.uncolored = true

	default:
		return fmt.Errorf("unknown operator %q", op.Operator)
	}
	return nil
}

func (p *Processor) nextLine(tx, ty float64) {
	p.text.tlm = pdf.TranslateMatrix(tx, ty).Multiply(p.text.tlm)
	p.text.tm = p.text.tlm
}

// adjust applies a TJ number: a displacement in thousandths of text space.
func (p *Processor) adjust(n float64) {
	gs := p.State()
	d := -n / 1000 * gs.FontSize
	if gs.Font != nil && gs.Font.IsVertical() {
		p.text.tm = pdf.TranslateMatrix(0, d).Multiply(p.text.tm)
		return
	}
	p.text.tm = pdf.TranslateMatrix(d*gs.HorizontalScaling, 0).Multiply(p.text.tm)
}

func (p *Processor) showString(obj pdf.Object) error {
	s, ok := obj.(pdf.String)
	if !ok {
		return fmt.Errorf("%w: %v is not a string", errOperands, obj)
	}
	gs := p.State()
	if gs.Font == nil {
		return fmt.Errorf("text shown without a font")
	}
	for _, code := range gs.Font.Codes(s.Value) {
		p.showGlyph(gs.Font, code)

		spacing := gs.CharSpacing
		if code.Len == 1 && code.Code == 32 {
			spacing += gs.WordSpacing
		}
		if gs.Font.IsVertical() {
			ty := gs.Font.VerticalAdvance(code)*gs.FontSize + spacing
			p.text.tm = pdf.TranslateMatrix(0, ty).Multiply(p.text.tm)
			continue
		}
		tx := (p.fonts.Advance(gs.Font, code)*gs.FontSize + spacing) * gs.HorizontalScaling
		p.text.tm = pdf.TranslateMatrix(tx, 0).Multiply(p.text.tm)
	}
	return nil
}

// renderingMatrix maps text space, one unit per em, to device space.
func (p *Processor) renderingMatrix() pdf.Matrix {
	gs := p.State()
	size := pdf.Matrix{A: gs.FontSize * gs.HorizontalScaling, D: gs.FontSize, F: gs.Rise}
	return size.Multiply(p.text.tm).Multiply(gs.CTM)
}

func (p *Processor) showGlyph(font *pdf.Font, code pdf.CharCode) {
	gs := p.State()
	if font.Subtype == "Type3" {
		if gs.RenderMode != TextInvisible {
			if err := p.showType3Glyph(font, code); err != nil {
				p.log.Debug("type 3 glyph failed", "page", p.page, "code", code.Code, "error", err)
			}
		}
		return
	}

	if !gs.IsFill() && !gs.IsStroke() && !gs.IsClip() {
		return
	}

	trm := p.renderingMatrix()
	outline := p.fonts.Glyph(font, code)
	if outline.Empty() {
		text := font.Unicode(code)
		if strings.TrimSpace(text) == "" || strings.IndexFunc(text, unicode.IsControl) >= 0 {
			return
		}
		p.showFallbackGlyph(font, text, trm)
		return
	}

	path := transformPath(outline, trm)
	if gs.IsFill() {
		if cov := fillCoverage(path, true, p.canvas.Bounds()); cov != nil {
			p.fillCoverageWith(cov, gs.FillColor, gs.AlphaFill, false)
		}
	}
	if gs.IsStroke() {
		p.strokePath(path, gs)
	}
	if gs.IsClip() {
		p.addTextClip(path)
	}
}

// showFallbackGlyph draws text shaped with a substitute typeface when the
// embedded program has no outline for a code.
func (p *Processor) showFallbackGlyph(font *pdf.Font, text string, trm pdf.Matrix) {
	gs := p.State()
	outline := p.fonts.FallbackOutline(font, text)
	if outline.Empty() {
		return
	}
	path := transformPath(outline, trm)
	if gs.IsClip() {
		p.addTextClip(path)
	}
	if !gs.IsFill() && !gs.IsStroke() {
		return
	}
	c, alpha, stroke := fallbackPaint(gs)
	if cov := fillCoverage(path, false, p.canvas.Bounds()); cov != nil {
		p.fillCoverageWith(cov, c, alpha, stroke)
	}
}

// fallbackPaint picks the colour a shaped fallback glyph is filled with.
// Stroke-only modes fill with the stroke colour and alpha.
func fallbackPaint(gs *GraphicsState) (ColorState, float64, bool) {
	if gs.IsFill() {
		return gs.FillColor, gs.AlphaFill, false
	}
	return gs.StrokeColor, gs.AlphaStroke, true
}

func (p *Processor) addTextClip(path *pdf.Path) {
	p.text.clipActive = true
	cov := fillCoverage(path, true, p.canvas.Bounds())
	if cov == nil {
		return
	}
	if p.text.clip == nil {
		p.text.clip = image.NewAlpha(p.canvas.Bounds())
	}
	r := cov.Rect.Intersect(p.text.clip.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			i := p.text.clip.PixOffset(x, y)
			a, b := p.text.clip.Pix[i], cov.Pix[cov.PixOffset(x, y)]
			// union of coverages
			p.text.clip.Pix[i] = a + b - mul8(a, b)
		}
	}
}

// showType3Glyph runs the glyph's CharProc with the glyph matrix.
func (p *Processor) showType3Glyph(font *pdf.Font, code pdf.CharCode) error {
	proc, ok := font.CharProc(code)
	if !ok {
		return nil
	}
	data, err := proc.Decode()
	if err != nil {
		return err
	}
	ops, err := pdf.ParseContent(data)
	if err != nil {
		return err
	}
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	glyphCTM := font.FontMatrix.Multiply(p.renderingMatrix())
	resources := font.Resources
	if resources == nil {
		resources = p.currentResources()
	}

	p.pushState()
	p.State().CTM = glyphCTM
	p.resources = append(p.resources, resources)
	uncolored := p.uncolored
	defer func() {
		p.uncolored = uncolored
		p.resources = p.resources[:len(p.resources)-1]
		p.popState()
	}()
	p.runNested(ops)
	return nil
}

// transformPath maps every point of a path through m.
func transformPath(path *pdf.Path, m pdf.Matrix) *pdf.Path {
	out := &pdf.Path{Commands: make([]pdf.PathCommand, len(path.Commands))}
	for i, c := range path.Commands {
		pts := make([]float64, len(c.Points))
		for j := 0; j+1 < len(c.Points); j += 2 {
			pts[j], pts[j+1] = m.Transform(c.Points[j], c.Points[j+1])
		}
		out.Commands[i] = pdf.PathCommand{Type: c.Type, Points: pts}
	}
	return out
}
