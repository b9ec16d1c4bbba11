package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// maxNesting bounds form, pattern, glyph and annotation recursion
const maxNesting = 24

var (
	errOperands   = errors.New("invalid operands")
	errNesting    = errors.New("content nesting too deep")
	errNoResource = errors.New("resource not found")
)

var debugRed = color.RGBA{R: 255, A: 255}

type clipRule int

const (
	clipNone clipRule = iota
	clipNonZero
	clipEvenOdd
)

// Processor executes content stream operations against a Canvas
type Processor struct {
	doc    *pdf.Document
	page   int
	opts   *Options
	log    *slog.Logger
	fonts  *FontCache
	paints *PaintCache
	canvas *Canvas

	stack     *StateStack
	resources []pdf.Dictionary
	// patternBase maps the default space of the running content stream to
	// device space; pattern matrices are relative to it.
	patternBase pdf.Matrix
	nesting     int
	// forms in progress, to stop self-referencing XObjects
	active map[pdf.Reference]bool
	// rendered tiling pattern cells
	tiles map[string]*tileShader

	path        *pdf.Path
	curX, curY  float64
	startX      float64
	startY      float64
	pendingClip clipRule

	text textState

	// uncolored is set while an uncoloured tiling pattern or a d1 glyph
	// runs; colour operators are ignored.
	uncolored bool
}

func newProcessor(doc *pdf.Document, page int, canvas *Canvas, ctm pdf.Matrix, resources pdf.Dictionary, fonts *FontCache, opts *Options) *Processor {
	return &Processor{
		doc:         doc,
		page:        page,
		opts:        opts,
		log:         opts.Logger,
		fonts:       fonts,
		paints:      NewPaintCache(),
		canvas:      canvas,
		stack:       NewStateStack(NewGraphicsState(ctm)),
		resources:   []pdf.Dictionary{resources},
		patternBase: ctm,
		active:      make(map[pdf.Reference]bool),
		tiles:       make(map[string]*tileShader),
	}
}

// State returns the current graphics state
func (p *Processor) State() *GraphicsState {
	return p.stack.Current()
}

func (p *Processor) currentResources() pdf.Dictionary {
	return p.resources[len(p.resources)-1]
}

// resource looks up a named resource in the current resource dictionary.
// The raw entry is returned so references survive for caching.
func (p *Processor) resource(category string, name pdf.Name) (pdf.Object, error) {
	cat, ok := p.doc.DictOf(p.currentResources().Get(category))
	if ok {
		if obj, ok := cat[name]; ok {
			if _, isNull := p.doc.Resolve(obj).(pdf.Null); !isNull {
				return obj, nil
			}
		}
	}
	return nil, fmt.Errorf("%s %s: %w", category, name, errNoResource)
}

// Run executes operations at the top level of the processor.
func (p *Processor) Run(ops []pdf.Operation) {
	p.runNested(ops)
}

// runNested executes operations as one recursion level. Whatever happens
// inside, the state stack comes back to the depth it had on entry.
func (p *Processor) runNested(ops []pdf.Operation) {
	depth := p.stack.Depth()
	savedPath, savedClip := p.path, p.pendingClip
	savedText := p.text
	p.path, p.pendingClip = nil, clipNone

	defer func() {
		for p.stack.Depth() > depth {
			p.popState()
		}
		p.path, p.pendingClip = savedPath, savedClip
		p.text = savedText
	}()

	for _, op := range ops {
		p.execute(op)
	}
}

// execute runs one operation. Failures, panics included, are logged and
// the stream carries on.
func (p *Processor) execute(op pdf.Operation) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Debug("operator panicked", "page", p.page, "op", op.Operator, "panic", r)
		}
	}()
	if err := p.processOperation(op); err != nil {
		p.log.Debug("operator failed", "page", p.page, "op", op.Operator, "error", err)
	}
}

// enter guards a nested content run.
func (p *Processor) enter() error {
	if p.nesting >= maxNesting {
		return errNesting
	}
	p.nesting++
	return nil
}

func (p *Processor) leave() {
	p.nesting--
}

func (p *Processor) pushState() {
	p.stack.Push()
	p.canvas.Save()
}

func (p *Processor) popState() bool {
	if !p.stack.Pop() {
		return false
	}
	p.canvas.Restore()
	return true
}

func (p *Processor) processOperation(op pdf.Operation) error {
	args := op.Operands
	gs := p.State()

	switch op.Operator {
	// General graphics state
	case "w": // Set line width
		v, err := p.floats(args, 1)
		if err != nil {
			return err
		}
		gs.LineWidth = v[0]
	case "J": // Set line cap
		v, err := p.floats(args, 1)
		if err != nil {
			return err
		}
		gs.LineCap = int(v[0])
	case "j": // Set line join
		v, err := p.floats(args, 1)
		if err != nil {
			return err
		}
		gs.LineJoin = int(v[0])
	case "M": // Set miter limit
		v, err := p.floats(args, 1)
		if err != nil {
			return err
		}
		gs.MiterLimit = v[0]
	case "d": // Set dash pattern
		if len(args) != 2 {
			return errOperands
		}
		gs.Dash = p.doc.Floats(args[0])
		gs.DashPhase, _ = p.doc.FloatOf(args[1])
	case "ri", "i": // Rendering intent, flatness
	case "gs": // Set parameters from graphics state dictionary
		name, err := p.name(args)
		if err != nil {
			return err
		}
		return p.setExtGState(name)

	// Special graphics state
	case "q": // Save graphics state
		p.pushState()
	case "Q": // Restore graphics state
		if !p.popState() {
			p.log.Debug("unbalanced Q", "page", p.page)
		}
	case "cm": // Modify CTM
		v, err := p.floats(args, 6)
		if err != nil {
			return err
		}
		m, _ := pdf.MatrixFromArray(v)
		gs.CTM = m.Multiply(gs.CTM)

	// Path construction
	case "m":
		v, err := p.floats(args, 2)
		if err != nil {
			return err
		}
		p.moveTo(v[0], v[1])
	case "l":
		v, err := p.floats(args, 2)
		if err != nil {
			return err
		}
		p.lineTo(v[0], v[1])
	case "c":
		v, err := p.floats(args, 6)
		if err != nil {
			return err
		}
		p.curveTo(v)
	case "v": // first control point is the current point
		v, err := p.floats(args, 4)
		if err != nil {
			return err
		}
		p.curveFromCurrent(v)
	case "y": // second control point is the end point
		v, err := p.floats(args, 4)
		if err != nil {
			return err
		}
		p.curveTo([]float64{v[0], v[1], v[2], v[3], v[2], v[3]})
	case "h":
		if p.path != nil {
			p.path.Close()
			p.curX, p.curY = p.startX, p.startY
		}
	case "re":
		v, err := p.floats(args, 4)
		if err != nil {
			return err
		}
		p.rectangle(v[0], v[1], v[2], v[3])

	// Path painting
	case "S":
		p.paintPath(false, true, false, false)
	case "s":
		p.paintPath(false, true, false, true)
	case "f", "F":
		p.paintPath(true, false, false, false)
	case "f*":
		p.paintPath(true, false, true, false)
	case "B":
		p.paintPath(true, true, false, false)
	case "B*":
		p.paintPath(true, true, true, false)
	case "b":
		p.paintPath(true, true, false, true)
	case "b*":
		p.paintPath(true, true, true, true)
	case "n":
		p.paintPath(false, false, false, false)

	// Clipping
	case "W":
		p.pendingClip = clipNonZero
	case "W*":
		p.pendingClip = clipEvenOdd

	// Colour
	case "CS", "cs":
		name, err := p.name(args)
		if err != nil {
			return err
		}
		return p.setColorSpace(name, op.Operator == "CS")
	case "SC", "SCN", "sc", "scn":
		return p.setColor(args, op.Operator == "SC" || op.Operator == "SCN")
	case "G", "g":
		v, err := p.floats(args, 1)
		if err != nil {
			return err
		}
		p.setDeviceColor(pdf.DeviceGray, v, op.Operator == "G")
	case "RG", "rg":
		v, err := p.floats(args, 3)
		if err != nil {
			return err
		}
		p.setDeviceColor(pdf.DeviceRGB, v, op.Operator == "RG")
	case "K", "k":
		v, err := p.floats(args, 4)
		if err != nil {
			return err
		}
		p.setDeviceColor(pdf.DeviceCMYK, v, op.Operator == "K")

	// Shading
	case "sh":
		name, err := p.name(args)
		if err != nil {
			return err
		}
		return p.paintShading(name)

	// XObjects and inline images
	case "Do":
		name, err := p.name(args)
		if err != nil {
			return err
		}
		return p.doXObject(name)
	case "BI":
		img, err := pdf.LoadInlineImage(p.doc, op, p.currentResources())
		if err != nil {
			p.log.Warn("skipping inline image", "page", p.page, "error", err)
			p.debugImageBox()
			return nil
		}
		return p.drawImage(img)

	// Marked content and compatibility sections
	case "BMC", "BDC", "EMC", "MP", "DP", "BX", "EX":

	default:
		return p.processTextOperation(op)
	}
	return nil
}

func (p *Processor) floats(args []pdf.Object, n int) ([]float64, error) {
	if len(args) < n {
		return nil, fmt.Errorf("%w: want %d numbers, got %d operands", errOperands, n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args[len(args)-n:] {
		v, ok := pdf.ToFloat(a)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %v is not a number", errOperands, a)
		}
		out[i] = v
	}
	return out, nil
}

func (p *Processor) name(args []pdf.Object) (pdf.Name, error) {
	if len(args) < 1 {
		return "", errOperands
	}
	n, ok := args[len(args)-1].(pdf.Name)
	if !ok {
		return "", fmt.Errorf("%w: %v is not a name", errOperands, args[len(args)-1])
	}
	return n, nil
}

// Path construction. Points are mapped to device space as they arrive.

func (p *Processor) device(x, y float64) (float64, float64) {
	return p.State().CTM.Transform(x, y)
}

func (p *Processor) moveTo(x, y float64) {
	if p.path == nil {
		p.path = &pdf.Path{}
	}
	p.curX, p.curY = p.device(x, y)
	p.startX, p.startY = p.curX, p.curY
	p.path.MoveTo(p.curX, p.curY)
}

func (p *Processor) lineTo(x, y float64) {
	if p.path == nil {
		return
	}
	p.curX, p.curY = p.device(x, y)
	p.path.LineTo(p.curX, p.curY)
}

func (p *Processor) curveTo(v []float64) {
	if p.path == nil {
		return
	}
	x1, y1 := p.device(v[0], v[1])
	x2, y2 := p.device(v[2], v[3])
	p.curX, p.curY = p.device(v[4], v[5])
	p.path.CurveTo(x1, y1, x2, y2, p.curX, p.curY)
}

func (p *Processor) curveFromCurrent(v []float64) {
	if p.path == nil {
		return
	}
	x2, y2 := p.device(v[0], v[1])
	x3, y3 := p.device(v[2], v[3])
	p.path.CurveTo(p.curX, p.curY, x2, y2, x3, y3)
	p.curX, p.curY = x3, y3
}

func (p *Processor) rectangle(x, y, w, h float64) {
	p.moveTo(x, y)
	p.lineTo(x+w, y)
	p.lineTo(x+w, y+h)
	p.lineTo(x, y+h)
	p.path.Close()
	p.curX, p.curY = p.startX, p.startY
}

// paintPath consumes the current path: fill first, then stroke, then any
// pending clip.
func (p *Processor) paintPath(fill, stroke, evenOdd, closePath bool) {
	path := p.path
	clip := p.pendingClip
	p.path, p.pendingClip = nil, clipNone
	if path == nil {
		return
	}
	if closePath {
		path.Close()
	}
	gs := p.State()
	if fill {
		p.fillPath(path, evenOdd, gs)
	}
	if stroke {
		p.strokePath(path, gs)
	}
	if clip != clipNone {
		p.canvas.IntersectClip(fillCoverage(path, clip == clipEvenOdd, p.canvas.Bounds()))
	}
}

func (p *Processor) compositing(alpha float64) Compositing {
	gs := p.State()
	return Compositing{Alpha: alpha, Mode: gs.BlendMode, SoftMask: gs.SoftMask}
}

func (p *Processor) fillPath(path *pdf.Path, evenOdd bool, gs *GraphicsState) {
	cov := fillCoverage(path, evenOdd, p.canvas.Bounds())
	if cov == nil {
		return
	}
	p.fillCoverageWith(cov, gs.FillColor, gs.AlphaFill, false)
}

func (p *Processor) strokePath(path *pdf.Path, gs *GraphicsState) {
	paint := p.strokePaint(gs)
	cov := strokeCoverage(path, paint, p.canvas.Bounds())
	if cov == nil {
		return
	}
	if gs.StrokeColor.IsPattern() {
		p.fillCoverageWith(cov, gs.StrokeColor, gs.AlphaStroke, true)
		return
	}
	p.canvas.FillMask(cov, paint.Color, p.compositing(1))
}

// fillCoverageWith paints a coverage mask with a colour, which may be a
// pattern.
func (p *Processor) fillCoverageWith(cov *image.Alpha, c ColorState, alpha float64, stroke bool) {
	if c.IsPattern() {
		sh, err := p.patternShader(c)
		if err != nil {
			p.log.Debug("pattern failed", "page", p.page, "pattern", c.Pattern, "error", err)
			return
		}
		if sh != nil {
			p.canvas.FillShader(cov, sh, p.compositing(alpha))
		}
		return
	}
	paint := p.paints.Get(PaintKey{Color: c.RGBA(alpha), Stroke: stroke})
	p.canvas.FillMask(cov, paint.Color, p.compositing(1))
}

func (p *Processor) strokePaint(gs *GraphicsState) *Paint {
	factor := gs.deviceScale()
	dash, phase := deviceDash(gs.Dash, gs.DashPhase, factor)
	return p.paints.Get(PaintKey{
		Color:      gs.StrokeColor.RGBA(gs.AlphaStroke),
		Stroke:     true,
		Width:      max(p.opts.MinLineWidth, gs.LineWidth*factor),
		MiterLimit: gs.MiterLimit,
		LineJoin:   gs.LineJoin,
		LineCap:    gs.LineCap,
		Dash:       dash,
		DashPhase:  phase,
	})
}

// Colour operators

func (p *Processor) setColorSpace(name pdf.Name, stroke bool) error {
	if p.uncolored {
		return nil
	}
	cs, err := p.doc.ParseColorSpace(name, p.currentResources())
	if err != nil {
		return err
	}
	c := ColorState{Space: cs, Values: cs.DefaultColor()}
	if stroke {
		p.State().StrokeColor = c
	} else {
		p.State().FillColor = c
	}
	return nil
}

func (p *Processor) setColor(args []pdf.Object, stroke bool) error {
	if p.uncolored {
		return nil
	}
	gs := p.State()
	target := &gs.FillColor
	if stroke {
		target = &gs.StrokeColor
	}
	c := ColorState{Space: target.Space}
	for _, a := range args {
		switch v := a.(type) {
		case pdf.Name:
			c.Pattern = v
		default:
			f, ok := pdf.ToFloat(v)
			if !ok {
				return fmt.Errorf("%w: %v in colour", errOperands, a)
			}
			c.Values = append(c.Values, f)
		}
	}
	if c.Space == nil {
		c.Space = pdf.DeviceGray
	}
	*target = c
	return nil
}

func (p *Processor) setDeviceColor(cs pdf.ColorSpace, v []float64, stroke bool) {
	if p.uncolored {
		return
	}
	c := ColorState{Space: cs, Values: v}
	if stroke {
		p.State().StrokeColor = c
	} else {
		p.State().FillColor = c
	}
}

// setExtGState applies an ExtGState resource.
func (p *Processor) setExtGState(name pdf.Name) error {
	obj, err := p.resource("ExtGState", name)
	if err != nil {
		return err
	}
	dict, ok := p.doc.DictOf(obj)
	if !ok {
		return fmt.Errorf("ExtGState %s is not a dictionary", name)
	}
	gs := p.State()
	for key, val := range dict {
		switch key {
		case "LW":
			if f, ok := p.doc.FloatOf(val); ok {
				gs.LineWidth = f
			}
		case "LC":
			if f, ok := p.doc.FloatOf(val); ok {
				gs.LineCap = int(f)
			}
		case "LJ":
			if f, ok := p.doc.FloatOf(val); ok {
				gs.LineJoin = int(f)
			}
		case "ML":
			if f, ok := p.doc.FloatOf(val); ok {
				gs.MiterLimit = f
			}
		case "D":
			if arr, ok := p.doc.ArrayOf(val); ok && len(arr) == 2 {
				gs.Dash = p.doc.Floats(arr[0])
				gs.DashPhase, _ = p.doc.FloatOf(arr[1])
			}
		case "CA":
			if f, ok := p.doc.FloatOf(val); ok {
				gs.AlphaStroke = clamp01(f)
			}
		case "ca":
			if f, ok := p.doc.FloatOf(val); ok {
				gs.AlphaFill = clamp01(f)
			}
		case "AIS":
			if b, ok := p.doc.Resolve(val).(pdf.Boolean); ok {
				gs.AlphaSource = bool(b)
			}
		case "BM":
			gs.BlendMode = parseBlendMode(p.doc, val)
		case "SMask":
			if n, ok := p.doc.NameOf(val); ok && n == "None" {
				gs.SoftMask = nil
				continue
			}
			if sm, ok := p.doc.DictOf(val); ok {
				mask, err := p.renderSoftMask(sm)
				if err != nil {
					p.log.Debug("soft mask failed", "page", p.page, "error", err)
					continue
				}
				gs.SoftMask = mask
			}
		case "Font":
			if arr, ok := p.doc.ArrayOf(val); ok && len(arr) == 2 {
				font, err := p.fonts.LoadFont(p.doc, arr[0])
				if err != nil {
					p.log.Warn("skipping font", "page", p.page, "error", err)
					continue
				}
				gs.Font = font
				gs.FontSize, _ = p.doc.FloatOf(arr[1])
			}
		}
	}
	return nil
}

// debugImageBox outlines the image unit square in red when debugging.
func (p *Processor) debugImageBox() {
	if !p.opts.Debug {
		return
	}
	path := &pdf.Path{}
	ctm := p.State().CTM
	for i, pt := range [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}} {
		x, y := ctm.Transform(pt[0], pt[1])
		if i == 0 {
			path.MoveTo(x, y)
		} else {
			path.LineTo(x, y)
		}
	}
	path.Close()
	paint := newPaint(PaintKey{Color: debugRed, Stroke: true, Width: 1})
	p.canvas.FillMask(strokeCoverage(path, paint, p.canvas.Bounds()), debugRed, opaque)
}
