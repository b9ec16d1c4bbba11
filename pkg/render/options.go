// Package render rasterizes PDF pages
package render

import (
	"image/color"
	"log/slog"
)

// DefaultMinLineWidth is the thinnest stroke drawn, in device pixels
const DefaultMinLineWidth = 0.5

// Options contains options for rendering PDF pages
type Options struct {
	Logger       *slog.Logger
	Scale        float64     // Device pixels per PDF unit (default 1)
	Background   color.Color // Nil leaves the page transparent
	Debug        bool        // Draw placeholders for unsupported content
	SystemFonts  bool        // Index installed fonts for fallback glyphs
	MinLineWidth float64     // Device pixels
	Annotations  bool        // Render annotation appearances
}

// Option configures a Renderer
type Option func(*Options)

// WithScale sets the default page scale
func WithScale(scale float64) Option {
	return func(o *Options) { o.Scale = scale }
}

// WithBackground sets the default page background
func WithBackground(c color.Color) Option {
	return func(o *Options) { o.Background = c }
}

// WithDebug enables placeholders for content that cannot be drawn
func WithDebug(debug bool) Option {
	return func(o *Options) { o.Debug = debug }
}

// WithLogger sets the logger used for recoverable failures
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithSystemFonts allows installed fonts to serve as fallbacks
func WithSystemFonts(enabled bool) Option {
	return func(o *Options) { o.SystemFonts = enabled }
}

// WithMinLineWidth sets the thinnest stroke drawn, in device pixels
func WithMinLineWidth(width float64) Option {
	return func(o *Options) { o.MinLineWidth = width }
}

// WithAnnotations toggles annotation rendering
func WithAnnotations(enabled bool) Option {
	return func(o *Options) { o.Annotations = enabled }
}

func newOptions(opts []Option) Options {
	o := Options{
		Scale:        1,
		Background:   color.White,
		MinLineWidth: DefaultMinLineWidth,
		Annotations:  true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Scale <= 0 {
		o.Scale = 1
	}
	return o
}
