package render

import (
	"image"
	"image/color"
	"math"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// Text rendering modes
const (
	TextFill = iota
	TextStroke
	TextFillStroke
	TextInvisible
	TextFillClip
	TextStrokeClip
	TextFillStrokeClip
	TextClip
)

// ColorState is a colour in some colour space. For pattern spaces Pattern
// names the pattern resource and Values hold the underlying colour of
// uncoloured patterns.
type ColorState struct {
	Space   pdf.ColorSpace
	Values  []float64
	Pattern pdf.Name
}

// RGBA converts the colour to premultiplied 8-bit RGBA with alpha.
func (c ColorState) RGBA(alpha float64) color.RGBA {
	var r, g, b float64
	switch cs := c.Space.(type) {
	case nil:
	case *pdf.PatternSpace:
		if cs.Underlying != nil {
			r, g, b = cs.Underlying.ToRGB(c.Values)
		}
	default:
		r, g, b = cs.ToRGB(c.Values)
	}
	return premultiply(r, g, b, alpha)
}

// IsPattern reports whether painting with this colour needs a pattern.
func (c ColorState) IsPattern() bool {
	_, ok := c.Space.(*pdf.PatternSpace)
	return ok && c.Pattern != ""
}

func premultiply(r, g, b, a float64) color.RGBA {
	a = clamp01(a)
	to8 := func(v float64) uint8 {
		return uint8(clamp01(v)*a*255 + 0.5)
	}
	return color.RGBA{R: to8(r), G: to8(g), B: to8(b), A: uint8(a*255 + 0.5)}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return max(0, min(1, v))
}

// GraphicsState is the state saved by q and restored by Q
type GraphicsState struct {
	CTM pdf.Matrix

	StrokeColor ColorState
	FillColor   ColorState
	AlphaStroke float64
	AlphaFill   float64
	// AlphaSource means soft-mask values act as shape; kept for /AIS.
	AlphaSource bool

	LineWidth  float64
	LineJoin   int
	LineCap    int
	MiterLimit float64
	Dash       []float64
	DashPhase  float64

	BlendMode BlendMode
	SoftMask  *image.Alpha

	Font              *pdf.Font
	FontSize          float64
	CharSpacing       float64
	WordSpacing       float64
	HorizontalScaling float64
	Leading           float64
	Rise              float64
	RenderMode        int
}

// NewGraphicsState returns the initial state for a content stream mapped
// to device space by ctm.
func NewGraphicsState(ctm pdf.Matrix) GraphicsState {
	return GraphicsState{
		CTM:               ctm,
		StrokeColor:       ColorState{Space: pdf.DeviceGray, Values: []float64{0}},
		FillColor:         ColorState{Space: pdf.DeviceGray, Values: []float64{0}},
		AlphaStroke:       1,
		AlphaFill:         1,
		LineWidth:         1,
		MiterLimit:        10,
		HorizontalScaling: 1,
	}
}

// IsFill reports whether the text rendering mode fills glyphs
func (gs *GraphicsState) IsFill() bool {
	switch gs.RenderMode {
	case TextFill, TextFillStroke, TextFillClip, TextFillStrokeClip:
		return true
	}
	return false
}

// IsStroke reports whether the text rendering mode strokes glyphs
func (gs *GraphicsState) IsStroke() bool {
	switch gs.RenderMode {
	case TextStroke, TextFillStroke, TextStrokeClip, TextFillStrokeClip:
		return true
	}
	return false
}

// IsClip reports whether the text rendering mode adds glyphs to the clip
func (gs *GraphicsState) IsClip() bool {
	return gs.RenderMode >= TextFillClip && gs.RenderMode <= TextClip
}

// deviceScale is the factor by which the CTM scales lengths on average.
func (gs *GraphicsState) deviceScale() float64 {
	return math.Sqrt(math.Abs(gs.CTM.Determinant()))
}

// StateStack is the q/Q stack. The current state is the top entry. Each
// entry is allocated separately, so a pointer from Current stays valid
// while nested content pushes and pops.
type StateStack struct {
	states []*GraphicsState
}

// NewStateStack creates a stack holding one initial state
func NewStateStack(initial GraphicsState) *StateStack {
	return &StateStack{states: []*GraphicsState{&initial}}
}

// Current returns the state operators modify
func (s *StateStack) Current() *GraphicsState {
	return s.states[len(s.states)-1]
}

// Push saves a copy of the current state
func (s *StateStack) Push() {
	saved := *s.Current()
	s.states = append(s.states, &saved)
}

// Pop restores the previous state. It reports false, leaving the stack
// alone, when only the initial state is left.
func (s *StateStack) Pop() bool {
	if len(s.states) <= 1 {
		return false
	}
	s.states[len(s.states)-1] = nil
	s.states = s.states[:len(s.states)-1]
	return true
}

// Depth returns the number of saved states
func (s *StateStack) Depth() int {
	return len(s.states) - 1
}
