package render

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// widgetBackground is the default form field highlight
var widgetBackground = []float64{204.0 / 255, 215.0 / 255, 1}

var errAnnotColor = errors.New("annotation colour must have 0, 1, 3 or 4 components")

// contentWriter builds small content streams
type contentWriter struct {
	list []pdf.Operation
}

func (w *contentWriter) op(operator string, operands ...float64) {
	w.list = append(w.list, pdf.NewOperation(operator, operands...))
}

// color writes a device colour operator chosen by the number of
// components. An empty colour writes nothing.
func (w *contentWriter) color(c []float64, stroke bool) error {
	var operator string
	switch len(c) {
	case 0:
		return nil
	case 1:
		operator = "g"
	case 3:
		operator = "rg"
	case 4:
		operator = "k"
	default:
		return fmt.Errorf("%w: got %d", errAnnotColor, len(c))
	}
	if stroke {
		operator = strings.ToUpper(operator)
	}
	w.op(operator, c...)
	return nil
}

// appearance is a normal appearance ready to run as a form
type appearance struct {
	dict pdf.Dictionary
	ops  []pdf.Operation
}

// drawAnnotations draws the page annotations of one layer: highlights
// under the page content, the rest over it.
func (p *Processor) drawAnnotations(annots []*pdf.Annotation, below bool) {
	for _, a := range annots {
		if (a.Subtype == "Highlight") != below || a.Hidden() {
			continue
		}
		if err := p.drawAnnotation(a); err != nil {
			p.log.Debug("skipping annotation", "page", p.page, "subtype", a.Subtype, "error", err)
		}
	}
}

func (p *Processor) drawAnnotation(a *pdf.Annotation) error {
	ap, err := p.normalAppearance(a)
	if err != nil || ap == nil {
		return err
	}
	rect := a.Rect
	bbox, ok := rectOf(p.doc, ap.dict.Get("BBox"))
	if rect.Width() <= 0 || rect.Height() <= 0 || !ok || bbox.Width() <= 0 || bbox.Height() <= 0 {
		return nil
	}

	matrix := pdf.IdentityMatrix()
	if m, ok := pdf.MatrixFromArray(p.doc.Floats(ap.dict.Get("Matrix"))); ok {
		matrix = m
	}
	box := matrix.TransformRect(bbox)
	if box.Width() == 0 || box.Height() == 0 {
		return nil
	}
	// map the transformed appearance box onto Rect
	place := pdf.TranslateMatrix(-box.LLX, -box.LLY).
		Multiply(pdf.ScaleMatrix(rect.Width()/box.Width(), rect.Height()/box.Height())).
		Multiply(pdf.TranslateMatrix(rect.LLX, rect.LLY))

	return p.runForm(ap.dict, ap.ops, place.Multiply(p.State().CTM))
}

// normalAppearance returns the /AP /N appearance of an annotation, or a
// synthesized one when /AP is absent.
func (p *Processor) normalAppearance(a *pdf.Annotation) (*appearance, error) {
	if !a.HasAppearanceDict() {
		return p.synthesizeAppearance(a)
	}
	stream, ok := a.NormalAppearance()
	if !ok {
		return nil, nil
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, err
	}
	ops, err := pdf.ParseContent(data)
	if err != nil {
		return nil, err
	}
	if a.Subtype == "Widget" {
		ops, err = p.widgetContent(a, ops)
		if err != nil {
			return nil, err
		}
	}
	return &appearance{dict: stream.Dictionary, ops: ops}, nil
}

// widgetContent inserts the field background into an existing widget
// appearance after its first BMC, or wraps it in a /Tx BMC section.
func (p *Processor) widgetContent(a *pdf.Annotation, ops []pdf.Operation) ([]pdf.Operation, error) {
	bmc, emc := -1, -1
	for i, op := range ops {
		if op.Operator == "BMC" && bmc < 0 {
			bmc = i
		}
		if op.Operator == "EMC" && emc < 0 {
			emc = i
		}
	}

	var out []pdf.Operation
	if bmc < 0 {
		out = append(out, pdf.Operation{Operator: "BMC", Operands: []pdf.Object{pdf.Name("Tx")}})
	} else {
		out = append(out, ops[:bmc+1]...)
	}

	// signed signature fields keep their appearance as is
	if !(a.FieldType == "Sig" && a.HasValue) {
		var w contentWriter
		if err := w.color(widgetBackground, false); err != nil {
			return nil, err
		}
		w.op("re", 0, 0, a.Rect.Width(), a.Rect.Height())
		w.op("f*")
		out = append(out, w.list...)
	}

	if emc >= 0 {
		if emc > bmc+1 {
			out = append(out, ops[bmc+1:emc]...)
		}
		out = append(out, ops[emc:]...)
	} else {
		out = append(out, ops[bmc+1:]...)
		out = append(out, pdf.Operation{Operator: "EMC"})
	}
	return out, nil
}

// synthesizeAppearance builds appearances for the annotation types that
// are commonly saved without one. The result draws in default user space,
// clipped to Rect.
func (p *Processor) synthesizeAppearance(a *pdf.Annotation) (*appearance, error) {
	var w contentWriter
	var err error
	switch a.Subtype {
	case "StrikeOut":
		err = markupLines(&w, a, func(length float64) float64 { return length/2 - a.Border })
	case "Underline":
		err = markupLines(&w, a, func(length float64) float64 { return length / 7 })
	case "Highlight":
		err = highlight(&w, a)
	case "Link":
		err = p.link(&w, a)
	case "Widget":
		err = widget(&w, a)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(w.list) == 0 {
		return nil, nil
	}
	dict := pdf.Dictionary{
		"BBox":   a.Rect.Array(),
		"Matrix": pdf.Array{pdf.Integer(1), pdf.Integer(0), pdf.Integer(0), pdf.Integer(1), pdf.Integer(0), pdf.Integer(0)},
	}
	return &appearance{dict: dict, ops: w.list}, nil
}

// quads groups QuadPoints into complete quadrilaterals
func quads(points []float64) [][]float64 {
	var out [][]float64
	for i := 0; i+8 <= len(points); i += 8 {
		out = append(out, points[i:i+8])
	}
	return out
}

// markupLines strokes one line per quadrilateral for strike-out and
// underline annotations. The line runs between the left and right edges,
// raised from the bottom points by offset(edge length).
func markupLines(w *contentWriter, a *pdf.Annotation, offset func(float64) float64) error {
	if len(a.QuadPoints) < 8 || len(a.Color) == 0 {
		return nil
	}
	width := a.Border
	if width == 0 {
		width = 1.5
	}
	if err := w.color(a.Color, true); err != nil {
		return err
	}
	w.op("w", width)
	// quadpoints run (4,5) (0,1) on the left edge and (6,7) (2,3) on the right
	raise := func(bx, by, tx, ty float64) (float64, float64) {
		length := math.Hypot(tx-bx, ty-by)
		if length == 0 {
			return bx, by
		}
		d := offset(length)
		return bx + (tx-bx)/length*d, by + (ty-by)/length*d
	}
	for _, q := range quads(a.QuadPoints) {
		x0, y0 := raise(q[4], q[5], q[0], q[1])
		x1, y1 := raise(q[6], q[7], q[2], q[3])
		w.op("m", x0, y0)
		w.op("l", x1, y1)
	}
	w.op("S")
	return nil
}

// highlight fills each quadrilateral, with curved ends on horizontal and
// vertical quads.
func highlight(w *contentWriter, a *pdf.Annotation) error {
	if len(a.QuadPoints) < 8 || len(a.Color) == 0 {
		return nil
	}
	if err := w.color(a.Color, false); err != nil {
		return err
	}
	for _, q := range quads(a.QuadPoints) {
		var delta float64
		switch {
		case q[0] == q[4] && q[1] == q[3] && q[2] == q[6] && q[5] == q[7]:
			delta = (q[1] - q[5]) / 4
		case q[1] == q[5] && q[0] == q[2] && q[3] == q[7] && q[4] == q[6]:
			delta = (q[0] - q[4]) / 4
		}

		w.op("m", q[4], q[5])
		switch {
		case q[0] == q[4]:
			w.op("c", q[4]-delta, q[5]+delta, q[0]-delta, q[1]-delta, q[0], q[1])
		case q[5] == q[1]:
			w.op("c", q[4]+delta, q[5]+delta, q[0]-delta, q[1]+delta, q[0], q[1])
		default:
			w.op("l", q[0], q[1])
		}
		w.op("l", q[2], q[3])
		switch {
		case q[2] == q[6]:
			w.op("c", q[2]+delta, q[3]-delta, q[6]+delta, q[7]+delta, q[6], q[7])
		case q[3] == q[7]:
			w.op("c", q[2]-delta, q[3]-delta, q[6]+delta, q[7]-delta, q[6], q[7])
		default:
			w.op("l", q[6], q[7])
		}
		w.op("f*")
	}
	return nil
}

// rectQuad returns the corners of r in QuadPoints order
func rectQuad(r pdf.Rectangle) []float64 {
	return []float64{r.LLX, r.LLY, r.URX, r.LLY, r.URX, r.URY, r.LLX, r.URY}
}

// quadsInside returns the QuadPoints if every point lies in r
func quadsInside(points []float64, r pdf.Rectangle) ([]float64, bool) {
	if len(points) == 0 {
		return nil, false
	}
	for i := 0; i+1 < len(points); i += 2 {
		x, y := points[i], points[i+1]
		if x < r.LLX || x > r.URX || y < r.LLY || y > r.URY {
			return nil, false
		}
	}
	return points, true
}

// link strokes the border of a link annotation around its quads or Rect.
func (p *Processor) link(w *contentWriter, a *pdf.Annotation) error {
	c := a.Color
	if c == nil {
		c = []float64{0}
	}
	width := a.Border
	pad := width / 2
	edge := pdf.Rectangle{LLX: a.Rect.LLX + pad, LLY: a.Rect.LLY + pad, URX: a.Rect.URX - pad, URY: a.Rect.URY - pad}

	points, ok := quadsInside(a.QuadPoints, a.Rect)
	if !ok {
		points = rectQuad(edge)
	}

	underline := false
	if bs, ok := p.doc.DictOf(a.Dict.Get("BS")); ok {
		underline = a.BorderStyle == "U"
		if _, ok := p.doc.FloatOf(bs.Get("W")); !ok {
			width = 1
		}
	}
	if width <= 0 || len(c) == 0 {
		return nil
	}

	if err := w.color(c, true); err != nil {
		return err
	}
	w.op("w", width)
	for _, q := range quads(points) {
		w.op("m", q[0], q[1])
		w.op("l", q[2], q[3])
		if !underline {
			w.op("l", q[4], q[5])
			w.op("l", q[6], q[7])
			w.op("h")
		}
	}
	w.op("S")
	return nil
}

// widget fills the field highlight over the quads or Rect
func widget(w *contentWriter, a *pdf.Annotation) error {
	if err := w.color(widgetBackground, false); err != nil {
		return err
	}
	points, ok := quadsInside(a.QuadPoints, a.Rect)
	if !ok {
		points = rectQuad(a.Rect)
	}
	for _, q := range quads(points) {
		w.op("m", q[0], q[1])
		w.op("l", q[2], q[3])
		w.op("l", q[4], q[5])
		w.op("l", q[6], q[7])
		w.op("h")
	}
	w.op("f*")
	return nil
}
