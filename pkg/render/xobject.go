package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// doXObject implements Do for image and form XObjects.
func (p *Processor) doXObject(name pdf.Name) error {
	obj, err := p.resource("XObject", name)
	if err != nil {
		return err
	}
	stream, ok := p.doc.StreamOf(obj)
	if !ok {
		return fmt.Errorf("XObject %s is not a stream", name)
	}

	subtype, _ := p.doc.NameOf(stream.Dictionary.Get("Subtype"))
	switch subtype {
	case "Image":
		img, err := pdf.LoadImage(p.doc, stream, p.currentResources())
		if err != nil {
			p.log.Warn("skipping image", "page", p.page, "image", name, "error", err)
			p.debugImageBox()
			return nil
		}
		return p.drawImage(img)
	case "Form":
		if ref, ok := obj.(pdf.Reference); ok {
			if p.active[ref] {
				return fmt.Errorf("form %s draws itself", name)
			}
			p.active[ref] = true
			defer delete(p.active, ref)
		}
		return p.drawForm(stream, p.State().CTM)
	case "PS":
		return nil
	}
	return fmt.Errorf("XObject %s has unknown subtype %q", name, subtype)
}

// isTransparencyGroup reports whether a form is a transparency group
func (p *Processor) isTransparencyGroup(form pdf.Dictionary) bool {
	group, ok := p.doc.DictOf(form.Get("Group"))
	if !ok {
		return false
	}
	s, _ := p.doc.NameOf(group.Get("S"))
	return s == "Transparency"
}

// drawForm runs a form XObject with its /Matrix concatenated to ctm and
// clipped to its /BBox. Transparency groups are rendered to a layer first
// and composited with the alpha, blend mode and soft mask in effect.
func (p *Processor) drawForm(stream pdf.Stream, ctm pdf.Matrix) error {
	data, err := stream.Decode()
	if err != nil {
		return err
	}
	ops, err := pdf.ParseContent(data)
	if err != nil {
		return err
	}
	return p.runForm(stream.Dictionary, ops, ctm)
}

// runForm runs parsed form content described by dict.
func (p *Processor) runForm(dict pdf.Dictionary, ops []pdf.Operation, ctm pdf.Matrix) error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	group := p.isTransparencyGroup(dict)
	outer := p.compositing(p.State().AlphaFill)

	p.pushState()
	gs := p.State()
	if m, ok := pdf.MatrixFromArray(p.doc.Floats(dict.Get("Matrix"))); ok {
		ctm = m.Multiply(ctm)
	}
	gs.CTM = ctm

	var parent *Canvas
	if group {
		parent = p.canvas
		p.canvas = NewCanvas(parent.Bounds().Dx(), parent.Bounds().Dy())
		gs.AlphaFill, gs.AlphaStroke = 1, 1
		gs.BlendMode, gs.SoftMask = BlendNormal, nil
	}
	if bbox, ok := rectOf(p.doc, dict.Get("BBox")); ok {
		p.canvas.IntersectClip(fillCoverage(rectPath(bbox, ctm), false, p.canvas.Bounds()))
	}

	resources := p.currentResources()
	if res, ok := p.doc.DictOf(dict.Get("Resources")); ok {
		resources = res
	}
	p.resources = append(p.resources, resources)
	base := p.patternBase
	p.patternBase = ctm

	p.runNested(ops)

	p.patternBase = base
	p.resources = p.resources[:len(p.resources)-1]
	if group {
		layer := p.canvas
		p.canvas = parent
		p.canvas.DrawLayer(layer.Image(), outer)
	}
	p.popState()
	return nil
}

// rectPath returns the device-space outline of a rectangle under m
func rectPath(r pdf.Rectangle, m pdf.Matrix) *pdf.Path {
	path := &pdf.Path{}
	for i, pt := range [][2]float64{{r.LLX, r.LLY}, {r.URX, r.LLY}, {r.URX, r.URY}, {r.LLX, r.URY}} {
		x, y := m.Transform(pt[0], pt[1])
		if i == 0 {
			path.MoveTo(x, y)
		} else {
			path.LineTo(x, y)
		}
	}
	path.Close()
	return path
}

// renderSoftMask renders the group of a soft mask dictionary into a mask
// under the current CTM.
func (p *Processor) renderSoftMask(dict pdf.Dictionary) (*image.Alpha, error) {
	group, ok := p.doc.StreamOf(dict.Get("G"))
	if !ok {
		return nil, fmt.Errorf("soft mask without a group")
	}
	subtype, _ := p.doc.NameOf(dict.Get("S"))
	luminosity := subtype != "Alpha"

	b := p.canvas.Bounds()
	layer := NewCanvas(b.Dx(), b.Dy())
	if luminosity {
		layer.Clear(p.backdrop(dict, group.Dictionary))
	}

	parent := p.canvas
	p.pushState()
	gs := p.State()
	gs.AlphaFill, gs.AlphaStroke = 1, 1
	gs.BlendMode, gs.SoftMask = BlendNormal, nil
	p.canvas = layer
	err := p.drawForm(group, gs.CTM)
	p.canvas = parent
	p.popState()
	if err != nil {
		return nil, err
	}

	var transfer [256]uint8
	for i := range transfer {
		transfer[i] = uint8(i)
	}
	if _, isName := p.doc.Resolve(dict.Get("TR")).(pdf.Name); !isName && dict.Get("TR") != nil {
		fn, err := p.doc.ParseFunction(dict.Get("TR"))
		if err != nil {
			return nil, fmt.Errorf("soft mask transfer: %w", err)
		}
		for i := range transfer {
			out := fn.Apply(float64(i) / 255)
			if len(out) > 0 {
				transfer[i] = uint8(clamp01(out[0])*255 + 0.5)
			}
		}
	}

	img := layer.Image()
	mask := image.NewAlpha(b)
	for i := range mask.Pix {
		px := img.Pix[4*i : 4*i+4]
		v := px[3]
		if luminosity {
			v = uint8((30*int(px[0]) + 59*int(px[1]) + 11*int(px[2]) + 50) / 100)
		}
		mask.Pix[i] = transfer[v]
	}
	return mask, nil
}

// backdrop is the /BC colour of a luminosity mask in the group colour
// space, black by default.
func (p *Processor) backdrop(mask, form pdf.Dictionary) color.RGBA {
	bc := p.doc.Floats(mask.Get("BC"))
	var cs pdf.ColorSpace
	if g, ok := p.doc.DictOf(form.Get("Group")); ok {
		if obj := g.Get("CS"); obj != nil {
			cs, _ = p.doc.ParseColorSpace(obj, p.currentResources())
		}
	}
	if cs == nil || cs.NumComponents() != len(bc) {
		switch len(bc) {
		case 1:
			cs = pdf.DeviceGray
		case 3:
			cs = pdf.DeviceRGB
		case 4:
			cs = pdf.DeviceCMYK
		default:
			return color.RGBA{A: 255}
		}
	}
	r, g, b := cs.ToRGB(bc)
	return premultiply(r, g, b, 1)
}
