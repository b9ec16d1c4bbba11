package render

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// TestColorOperators tests device colour operators on fills
func TestColorOperators(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    color.RGBA
	}{
		{"default black", "0 0 10 10 re f", black},
		{"rgb", "0 0 1 rg 0 0 10 10 re f", blue},
		{"gray", "0.5 g 0 0 10 10 re f", color.RGBA{128, 128, 128, 255}},
		{"cmyk", "0 1 1 0 k 0 0 10 10 re f", red},
		{"colour space", "/DeviceRGB cs 1 0 0 sc 0 0 10 10 re f", red},
		{"stroke colour ignored by fill", "1 0 0 RG 0 0 10 10 re f", black},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := renderPage(t, nil, testPage{width: 10, height: 10, content: tt.content})
			assertPixel(t, img, 5, 5, tt.want)
		})
	}
}

// TestEvenOddFill tests the two fill rules on nested rectangles
func TestEvenOddFill(t *testing.T) {
	const rects = "0 0 30 30 re 10 10 10 10 re "
	nonzero := renderPage(t, nil, testPage{width: 30, height: 30, content: rects + "f"})
	assertPixel(t, nonzero, 15, 15, black)

	evenOdd := renderPage(t, nil, testPage{width: 30, height: 30, content: rects + "f*"})
	assertPixel(t, evenOdd, 15, 15, white)
	assertPixel(t, evenOdd, 5, 5, black)
}

// TestClipping tests W n followed by a fill
func TestClipping(t *testing.T) {
	img := renderPage(t, nil, testPage{
		width: 50, height: 50,
		content: "0 0 20 20 re W n 1 0 0 rg 0 0 50 50 re f",
	})
	assertImage(t, expected(50, 50, region{image.Rect(0, 30, 20, 50), red}), img)
}

// TestSaveRestore tests that Q restores colour and clip
func TestSaveRestore(t *testing.T) {
	img := renderPage(t, nil, testPage{
		width: 20, height: 20,
		content: "q 0 0 5 5 re W n 0 0 1 rg 2 w Q 0 0 20 20 re f",
	})
	assertImage(t, expected(20, 20, region{image.Rect(0, 0, 20, 20), black}), img)
}

// TestStroke tests line width in device pixels
func TestStroke(t *testing.T) {
	img := renderPage(t, nil, testPage{width: 50, height: 50, content: "4 w 0 25 m 50 25 l S"})
	assertImage(t, expected(50, 50, region{image.Rect(0, 23, 50, 27), black}), img)
}

// TestDashedStroke tests that dash arrays are applied along the path
func TestDashedStroke(t *testing.T) {
	img := renderPage(t, nil, testPage{width: 50, height: 50, content: "2 w [10 10] 0 d 0 25 m 50 25 l S"})
	tests := []struct {
		x    int
		want color.RGBA
	}{
		{5, black},
		{15, white},
		{25, black},
		{35, white},
	}
	for _, tt := range tests {
		assertPixel(t, img, tt.x, 24, tt.want)
	}
}

// TestCurves tests that v and y both produce curves through their end
// points
func TestCurves(t *testing.T) {
	for _, op := range []string{"0 40 40 40 v", "0 40 40 40 y", "0 40 40 40 40 40 c"} {
		t.Run(op, func(t *testing.T) {
			img := renderPage(t, nil, testPage{width: 40, height: 40, content: "0 0 m " + op + " 40 0 l f"})
			assertPixel(t, img, 38, 38, black)
			assertPixel(t, img, 2, 2, white)
		})
	}
}

// TestExtGState tests constant alpha and blend modes from ExtGState
func TestExtGState(t *testing.T) {
	tests := []struct {
		name    string
		gs      pdf.Dictionary
		content string
		want    color.RGBA
	}{
		{
			name:    "fill alpha",
			gs:      pdf.Dictionary{"ca": pdf.Real(0.5)},
			content: "/GS0 gs 1 0 0 rg 0 0 10 10 re f",
			want:    color.RGBA{255, 127, 127, 255},
		},
		{
			name:    "stroke alpha leaves fills alone",
			gs:      pdf.Dictionary{"CA": pdf.Real(0.5)},
			content: "/GS0 gs 1 0 0 rg 0 0 10 10 re f",
			want:    red,
		},
		{
			name:    "multiply",
			gs:      pdf.Dictionary{"BM": pdf.Name("Multiply")},
			content: "0 0 1 rg 0 0 10 10 re f /GS0 gs 1 0 0 rg 0 0 10 10 re f",
			want:    black,
		},
		{
			name:    "screen",
			gs:      pdf.Dictionary{"BM": pdf.Array{pdf.Name("Unknown"), pdf.Name("Screen")}},
			content: "0 0 1 rg 0 0 10 10 re f /GS0 gs 1 0 0 rg 0 0 10 10 re f",
			want:    color.RGBA{255, 0, 255, 255},
		},
		{
			name:    "line width",
			gs:      pdf.Dictionary{"LW": pdf.Integer(10)},
			content: "/GS0 gs 0 5 m 10 5 l S",
			want:    black,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := renderPage(t, nil, testPage{
				width: 10, height: 10,
				content:   tt.content,
				resources: pdf.Dictionary{"ExtGState": pdf.Dictionary{"GS0": tt.gs}},
			})
			assertPixel(t, img, 5, 1, tt.want)
		})
	}
}

// formStream builds a form XObject stream
func formStream(content string, bbox pdf.Array, extra pdf.Dictionary) pdf.Stream {
	d := pdf.Dictionary{
		"Type":    pdf.Name("XObject"),
		"Subtype": pdf.Name("Form"),
		"BBox":    bbox,
	}
	for k, v := range extra {
		d[k] = v
	}
	return pdf.Stream{Dictionary: d, Data: []byte(content)}
}

func box(x0, y0, x1, y1 int) pdf.Array {
	return pdf.Array{pdf.Integer(x0), pdf.Integer(y0), pdf.Integer(x1), pdf.Integer(y1)}
}

// TestFormXObject tests form matrices and bounding box clipping
func TestFormXObject(t *testing.T) {
	w := pdf.NewWriter()
	form := w.Add(formStream("1 0 0 rg 0 0 20 20 re f", box(0, 0, 10, 10), pdf.Dictionary{
		"Matrix": pdf.Array{pdf.Integer(1), pdf.Integer(0), pdf.Integer(0), pdf.Integer(1), pdf.Integer(5), pdf.Integer(5)},
	}))
	img := renderPage(t, w, testPage{
		width: 30, height: 30,
		content:   "/Fm0 Do",
		resources: pdf.Dictionary{"XObject": pdf.Dictionary{"Fm0": form}},
	})
	assertImage(t, expected(30, 30, region{image.Rect(5, 15, 15, 25), red}), img)
}

// TestUnbalancedForm tests that state saved inside a form is discarded
// when the form ends
func TestUnbalancedForm(t *testing.T) {
	w := pdf.NewWriter()
	form := w.Add(formStream("q q 1 0 0 rg 5 w 0 0 10 10 re f q", box(0, 0, 10, 10), nil))
	doc := buildDocument(t, w, testPage{
		width: 30, height: 30,
		resources: pdf.Dictionary{"XObject": pdf.Dictionary{"Fm0": form}},
	})
	page, err := doc.GetPage(1)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}

	opts := newOptions(nil)
	canvas := NewCanvas(30, 30)
	canvas.Clear(color.White)
	p := newProcessor(doc, 1, canvas, pageMatrix(page.CropBox, 0, 1), page.Resources, NewFontCache(opts.Logger, false), &opts)
	ops, err := pdf.ParseContent([]byte("q /Fm0 Do 20 20 10 10 re f"))
	if err != nil {
		t.Fatalf("ParseContent failed: %v", err)
	}
	p.Run(ops)

	if p.stack.Depth() != 0 || canvas.Depth() != 0 {
		t.Errorf("Expected empty stacks, got state %d and canvas %d", p.stack.Depth(), canvas.Depth())
	}
	if p.nesting != 0 {
		t.Errorf("Expected nesting 0, got %d", p.nesting)
	}
	img := canvas.Image()
	assertPixel(t, img, 5, 25, red)
	assertPixel(t, img, 25, 5, black)
}

// TestSelfReferencingForm tests that a form drawing itself terminates
func TestSelfReferencingForm(t *testing.T) {
	w := pdf.NewWriter()
	form := w.Reserve()
	w.Set(form, formStream("1 0 0 rg 0 0 10 10 re f /Fm0 Do 0 0 1 rg 0 0 5 5 re f", box(0, 0, 10, 10), pdf.Dictionary{
		"Resources": pdf.Dictionary{"XObject": pdf.Dictionary{"Fm0": form}},
	}))
	img := renderPage(t, w, testPage{
		width: 10, height: 10,
		content:   "/Fm0 Do",
		resources: pdf.Dictionary{"XObject": pdf.Dictionary{"Fm0": form}},
	})
	assertPixel(t, img, 8, 2, red)
	assertPixel(t, img, 2, 8, blue)
}

// TestNestingLimit tests the recursion guard
func TestNestingLimit(t *testing.T) {
	opts := newOptions(nil)
	p := newProcessor(&pdf.Document{}, 1, NewCanvas(1, 1), pdf.IdentityMatrix(), pdf.Dictionary{}, NewFontCache(opts.Logger, false), &opts)
	p.nesting = maxNesting
	if err := p.runForm(pdf.Dictionary{}, nil, pdf.IdentityMatrix()); !errors.Is(err, errNesting) {
		t.Errorf("Expected errNesting, got %v", err)
	}
	if p.stack.Depth() != 0 {
		t.Errorf("Expected no saved state, got %d", p.stack.Depth())
	}
}

// TestTransparencyGroup tests that a group is composited as one layer
func TestTransparencyGroup(t *testing.T) {
	w := pdf.NewWriter()
	form := w.Add(formStream("1 0 0 rg 0 0 10 10 re f 0 0 1 rg 5 0 5 10 re f", box(0, 0, 10, 10), pdf.Dictionary{
		"Group": pdf.Dictionary{"S": pdf.Name("Transparency")},
	}))
	img := renderPage(t, w, testPage{
		width: 10, height: 10,
		content: "/GS0 gs /Fm0 Do",
		resources: pdf.Dictionary{
			"XObject":   pdf.Dictionary{"Fm0": form},
			"ExtGState": pdf.Dictionary{"GS0": pdf.Dictionary{"ca": pdf.Real(0.5)}},
		},
	})
	assertPixel(t, img, 2, 5, color.RGBA{255, 127, 127, 255})
	assertPixel(t, img, 7, 5, color.RGBA{127, 127, 255, 255})
}

// TestSoftMask tests a luminosity soft mask from ExtGState
func TestSoftMask(t *testing.T) {
	w := pdf.NewWriter()
	group := w.Add(formStream("1 g 0 0 5 10 re f", box(0, 0, 10, 10), pdf.Dictionary{
		"Group": pdf.Dictionary{"S": pdf.Name("Transparency"), "CS": pdf.Name("DeviceGray")},
	}))
	img := renderPage(t, w, testPage{
		width: 10, height: 10,
		content: "/GS0 gs 1 0 0 rg 0 0 10 10 re f",
		resources: pdf.Dictionary{
			"ExtGState": pdf.Dictionary{"GS0": pdf.Dictionary{
				"SMask": pdf.Dictionary{"S": pdf.Name("Luminosity"), "G": group},
			}},
		},
	})
	assertPixel(t, img, 2, 5, red)
	assertPixel(t, img, 7, 5, white)
}

// TestColoredStroke tests that stroked pixels take the stroke colour
func TestColoredStroke(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"S", "1 0 0 RG 4 w 0 25 m 50 25 l S"},
		{"s", "1 0 0 RG 4 w 10 10 m 40 10 l 40 40 l s"},
		{"B", "0 0 1 rg 1 0 0 RG 4 w 10 10 30 30 re B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := renderPage(t, nil, testPage{width: 50, height: 50, content: tt.content})
			var stroked int
			for y := 0; y < 50; y++ {
				for x := 0; x < 50; x++ {
					if img.RGBAAt(x, y) == red {
						stroked++
					}
				}
			}
			if stroked < 100 {
				t.Errorf("Expected a red stroke, got %d red pixels", stroked)
			}
		})
	}

	img := renderPage(t, nil, testPage{width: 50, height: 50, content: "0 0 1 rg 1 0 0 RG 4 w 10 10 30 30 re B"})
	assertPixel(t, img, 10, 25, red)
	assertPixel(t, img, 25, 25, blue)
}

// TestSoftMaskLaterFills tests that a soft mask set through gs stays in
// the graphics state for every following fill
func TestSoftMaskLaterFills(t *testing.T) {
	w := pdf.NewWriter()
	group := w.Add(formStream("1 g 0 0 5 10 re f", box(0, 0, 10, 10), pdf.Dictionary{
		"Group": pdf.Dictionary{"S": pdf.Name("Transparency"), "CS": pdf.Name("DeviceGray")},
	}))
	img := renderPage(t, w, testPage{
		width: 10, height: 10,
		content: "q q q /GS0 gs 1 0 0 rg 0 5 10 5 re f 0 0 1 rg 0 0 10 5 re f Q Q Q",
		resources: pdf.Dictionary{
			"ExtGState": pdf.Dictionary{"GS0": pdf.Dictionary{
				"SMask": pdf.Dictionary{"S": pdf.Name("Luminosity"), "G": group},
			}},
		},
	})
	assertPixel(t, img, 2, 2, red)
	assertPixel(t, img, 2, 7, blue)
	assertPixel(t, img, 7, 2, white)
	assertPixel(t, img, 7, 7, white)
}
