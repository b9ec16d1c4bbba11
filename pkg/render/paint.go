package render

import (
	"image/color"
	"math"
	"slices"
	"sync"

	"github.com/srwiley/rasterx"
)

// Paint describes how a path is filled or stroked in device space
type Paint struct {
	Color  color.RGBA // premultiplied, alpha included
	Stroke bool

	Width      float64
	MiterLimit float64
	Join       rasterx.JoinMode
	Cap        rasterx.CapFunc
	Gap        rasterx.GapFunc
	Dash       []float64
	DashPhase  float64

	lineJoin, lineCap int
}

// PaintCache shares Paint values between operations of one page render
type PaintCache struct {
	mu     sync.Mutex
	paints map[uint64]*Paint
}

// NewPaintCache creates an empty paint cache
func NewPaintCache() *PaintCache {
	return &PaintCache{paints: make(map[uint64]*Paint)}
}

// PaintKey combines everything that distinguishes one paint from another
type PaintKey struct {
	Color      color.RGBA
	Stroke     bool
	Width      float64
	MiterLimit float64
	LineJoin   int
	LineCap    int
	Dash       []float64
	DashPhase  float64
}

// Hash folds the key into a single value
func (k PaintKey) Hash() uint64 {
	h := uint64(1430287)
	fold := func(v uint64) { h = h*7302013 ^ v }
	fold(uint64(k.Color.R)<<16 | uint64(k.Color.G)<<8 | uint64(k.Color.B))
	fold(uint64(k.Color.A))
	if k.Stroke {
		fold(1)
	} else {
		fold(0)
	}
	fold(math.Float64bits(k.Width))
	fold(uint64(k.LineJoin))
	fold(uint64(k.LineCap))
	fold(dashHash(k.Dash, k.DashPhase))
	if k.Stroke {
		fold(math.Float64bits(k.MiterLimit))
	}
	return h
}

func dashHash(dash []float64, phase float64) uint64 {
	if len(dash) == 0 {
		return 0
	}
	h := math.Float64bits(phase)
	for _, d := range dash {
		h = h*31 ^ math.Float64bits(d)
	}
	return h
}

// Get returns the cached paint for key, creating it on first use. A hash
// collision yields a fresh paint rather than a mismatched one.
func (c *PaintCache) Get(key PaintKey) *Paint {
	h := key.Hash()

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.paints[h]; ok {
		if p.matches(key) {
			return p
		}
		return newPaint(key)
	}
	p := newPaint(key)
	c.paints[h] = p
	return p
}

// Len returns the number of cached paints
func (c *PaintCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paints)
}

func newPaint(key PaintKey) *Paint {
	p := &Paint{
		Color:      key.Color,
		Stroke:     key.Stroke,
		Width:      key.Width,
		MiterLimit: key.MiterLimit,
		Dash:       slices.Clone(key.Dash),
		DashPhase:  key.DashPhase,
		lineJoin:   key.LineJoin,
		lineCap:    key.LineCap,
	}
	if p.MiterLimit < 1 {
		p.MiterLimit = 10
	}

	switch key.LineCap {
	case 1:
		p.Cap = rasterx.RoundCap
	case 2:
		p.Cap = rasterx.SquareCap
	default:
		p.Cap = rasterx.ButtCap
	}
	switch key.LineJoin {
	case 1:
		p.Join = rasterx.Round
		p.Gap = rasterx.RoundGap
	case 2:
		p.Join = rasterx.Bevel
		p.Gap = rasterx.FlatGap
	default:
		// rasterx.Miter falls back to a bevel past the limit
		p.Join = rasterx.Miter
		p.Gap = rasterx.FlatGap
	}
	return p
}

func (p *Paint) matches(k PaintKey) bool {
	return p.Color == k.Color &&
		p.Stroke == k.Stroke &&
		p.Width == k.Width &&
		(p.MiterLimit == k.MiterLimit || k.MiterLimit < 1) &&
		p.lineJoin == k.LineJoin &&
		p.lineCap == k.LineCap &&
		slices.Equal(p.Dash, k.Dash) &&
		p.DashPhase == k.DashPhase
}

// minDash is the shortest dash or gap drawn, in device pixels
const minDash = 1.0 / 72

// deviceDash scales a user-space dash array to device pixels. An empty or
// all-zero pattern means a solid line.
func deviceDash(dash []float64, phase, factor float64) ([]float64, float64) {
	if len(dash) == 0 {
		return nil, 0
	}
	var total float64
	for _, d := range dash {
		if d < 0 {
			return nil, 0
		}
		total += d
	}
	if total == 0 {
		return nil, 0
	}
	if len(dash) == 1 {
		dash = []float64{dash[0], dash[0]}
	}
	out := make([]float64, len(dash))
	for i, d := range dash {
		out[i] = max(d*factor, minDash)
	}
	return out, phase * factor
}
