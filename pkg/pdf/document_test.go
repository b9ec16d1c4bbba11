package pdf

import (
	"bytes"
	"compress/zlib"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestNewDocument tests creating a new document from PDF data
func TestNewDocument(t *testing.T) {
	doc, err := NewDocument(createMinimalPDF())
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	defer doc.Close()

	if doc.Version != "1.7" {
		t.Errorf("Expected version 1.7, got %q", doc.Version)
	}
	if doc.Repaired {
		t.Error("Expected the xref table to be read, not repaired")
	}
}

// TestInvalidPDF tests handling of invalid PDF data
func TestInvalidPDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"not pdf", []byte("This is not a PDF file")},
		{"invalid header", []byte("%PDF-")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDocument(tt.data)
			if err == nil {
				t.Error("Expected error for invalid PDF data")
			}
		})
	}
}

// TestRepairBrokenXRef tests that objects are found by scanning when the
// startxref offset is wrong
func TestRepairBrokenXRef(t *testing.T) {
	data := createMinimalPDF()
	i := bytes.LastIndex(data, []byte("startxref"))
	broken := append(append([]byte{}, data[:i]...), []byte("startxref\n99999\n%%EOF\n")...)

	doc, err := NewDocument(broken)
	if err != nil {
		t.Fatalf("Failed to repair document: %v", err)
	}
	if !doc.Repaired {
		t.Error("Expected Repaired to be set")
	}
	if doc.NumPages() != 1 {
		t.Errorf("Expected 1 page, got %d", doc.NumPages())
	}
}

// TestGetPage tests page retrieval
func TestGetPage(t *testing.T) {
	doc, err := NewDocument(createMinimalPDF())
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	defer doc.Close()

	for _, n := range []int{0, -1, 1000000} {
		if _, err := doc.GetPage(n); err == nil {
			t.Errorf("Expected error for page %d", n)
		}
	}

	page, err := doc.GetPage(1)
	if err != nil {
		t.Fatalf("GetPage(1) failed: %v", err)
	}
	if page.Number != 1 {
		t.Errorf("Expected page number 1, got %d", page.Number)
	}
}

// TestPageInheritance tests attributes inherited through the page tree
func TestPageInheritance(t *testing.T) {
	w := NewWriter()
	font := w.Add(Dictionary{"Type": Name("Font"), "Subtype": Name("Type1"), "BaseFont": Name("Helvetica")})
	tree := w.Reserve()
	child := w.Add(Dictionary{
		"Type":   Name("Page"),
		"Parent": tree,
		"Rotate": Integer(-90),
	})
	other := w.Add(Dictionary{
		"Type":     Name("Page"),
		"Parent":   tree,
		"MediaBox": Array{Integer(0), Integer(0), Integer(200), Integer(100)},
		"CropBox":  Array{Integer(150), Integer(80), Integer(10), Integer(10)},
	})
	w.Set(tree, Dictionary{
		"Type":      Name("Pages"),
		"Kids":      Array{child, other},
		"Count":     Integer(2),
		"MediaBox":  Array{Integer(0), Integer(0), Integer(300), Integer(400)},
		"Resources": Dictionary{"Font": Dictionary{"F1": font}},
	})
	root := w.Add(Dictionary{"Type": Name("Catalog"), "Pages": tree})

	doc, err := NewDocument(w.Bytes(root))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	if doc.NumPages() != 2 {
		t.Fatalf("Expected 2 pages, got %d", doc.NumPages())
	}

	p1, _ := doc.GetPage(1)
	if diff := cmp.Diff(Rectangle{0, 0, 300, 400}, p1.MediaBox); diff != "" {
		t.Errorf("MediaBox mismatch (-want +got):\n%s", diff)
	}
	if p1.CropBox != p1.MediaBox {
		t.Errorf("Expected CropBox to default to MediaBox, got %+v", p1.CropBox)
	}
	if p1.Rotate != 270 {
		t.Errorf("Expected rotation 270, got %d", p1.Rotate)
	}
	if _, ok := doc.Resource(p1.Resources, "Font", "F1"); !ok {
		t.Error("Expected inherited font resource F1")
	}

	p2, _ := doc.GetPage(2)
	if diff := cmp.Diff(Rectangle{10, 10, 150, 80}, p2.CropBox); diff != "" {
		t.Errorf("CropBox mismatch (-want +got):\n%s", diff)
	}
}

// TestGetContents tests joining and decoding content streams
func TestGetContents(t *testing.T) {
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	zw.Write([]byte("0 0 m"))
	zw.Close()

	w := NewWriter()
	first := w.Add(Stream{Dictionary: Dictionary{"Filter": Name("FlateDecode")}, Data: z.Bytes()})
	second := w.Add(Stream{Dictionary: Dictionary{}, Data: []byte("10 10 l S")})
	root := w.AddPages(Dictionary{
		"MediaBox": Array{Integer(0), Integer(0), Integer(10), Integer(10)},
		"Contents": Array{first, second},
	})

	doc, err := NewDocument(w.Bytes(root))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	page, _ := doc.GetPage(1)
	data, err := page.GetContents()
	if err != nil {
		t.Fatalf("GetContents failed: %v", err)
	}
	ops, err := ParseContent(data)
	if err != nil {
		t.Fatalf("ParseContent failed: %v", err)
	}
	var names []string
	for _, op := range ops {
		names = append(names, op.Operator)
	}
	if diff := cmp.Diff([]string{"m", "l", "S"}, names); diff != "" {
		t.Errorf("Operators mismatch (-want +got):\n%s", diff)
	}
}

// TestAnnotations tests annotation attribute parsing
func TestAnnotations(t *testing.T) {
	w := NewWriter()
	parent := w.Add(Dictionary{"FT": Name("Sig"), "V": Dictionary{}})
	ap := w.Add(Stream{Dictionary: Dictionary{"BBox": Array{Integer(0), Integer(0), Integer(10), Integer(10)}}, Data: []byte("")})
	annots := Array{
		w.Add(Dictionary{
			"Subtype":    Name("Highlight"),
			"Rect":       Array{Integer(10), Integer(10), Integer(50), Integer(20)},
			"C":          Array{Integer(1), Integer(1), Integer(0)},
			"QuadPoints": Array{Integer(10), Integer(20), Integer(50), Integer(20), Integer(10), Integer(10), Integer(50), Integer(10)},
		}),
		w.Add(Dictionary{
			"Subtype": Name("Link"),
			"Rect":    Array{Integer(0), Integer(0), Integer(5), Integer(5)},
			"C":       Array{},
			"BS":      Dictionary{"W": Integer(2), "S": Name("U")},
			"F":       Integer(AnnotFlagHidden),
		}),
		w.Add(Dictionary{
			"Subtype": Name("Widget"),
			"Rect":    Array{Integer(0), Integer(0), Integer(5), Integer(5)},
			"Parent":  parent,
			"AP":      Dictionary{"N": Dictionary{"On": ap}},
			"AS":      Name("On"),
		}),
	}
	root := w.AddPages(Dictionary{
		"MediaBox": Array{Integer(0), Integer(0), Integer(100), Integer(100)},
		"Annots":   annots,
	})

	doc, err := NewDocument(w.Bytes(root))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	page, _ := doc.GetPage(1)
	got := page.Annotations()
	if len(got) != 3 {
		t.Fatalf("Expected 3 annotations, got %d", len(got))
	}

	hl, link, widget := got[0], got[1], got[2]
	if diff := cmp.Diff([]float64{1, 1, 0}, hl.Color); diff != "" {
		t.Errorf("Highlight colour mismatch (-want +got):\n%s", diff)
	}
	if hl.Border != 1 || hl.BorderStyle != "S" {
		t.Errorf("Expected default border 1/S, got %v/%s", hl.Border, hl.BorderStyle)
	}
	if len(hl.QuadPoints) != 8 || hl.Hidden() {
		t.Errorf("Unexpected highlight %+v", hl)
	}

	if link.Color == nil || len(link.Color) != 0 {
		t.Errorf("Expected an empty non-nil colour, got %#v", link.Color)
	}
	if link.Border != 2 || link.BorderStyle != "U" {
		t.Errorf("Expected border 2/U, got %v/%s", link.Border, link.BorderStyle)
	}
	if !link.Hidden() {
		t.Error("Expected link to be hidden")
	}

	if widget.FieldType != "Sig" || !widget.HasValue {
		t.Errorf("Expected inherited Sig field with a value, got %s/%v", widget.FieldType, widget.HasValue)
	}
	if _, ok := widget.NormalAppearance(); !ok {
		t.Error("Expected the On appearance state to be selected")
	}
	if !widget.HasAppearanceDict() || hl.HasAppearanceDict() {
		t.Error("HasAppearanceDict mismatch")
	}
}

// TestEncryptedWithoutPassword tests that pages of a locked document are
// not served
func TestEncryptedWithoutPassword(t *testing.T) {
	doc := &Document{locked: true, Pages: []*Page{{}}}
	if _, err := doc.GetPage(1); !errors.Is(err, ErrEncrypted) {
		t.Errorf("Expected ErrEncrypted, got %v", err)
	}
}

// TestRectangle tests rectangle operations
func TestRectangle(t *testing.T) {
	r := Rectangle{LLX: 0, LLY: 0, URX: 612, URY: 792}

	if r.Width() != 612 {
		t.Errorf("Expected width 612, got %f", r.Width())
	}

	if r.Height() != 792 {
		t.Errorf("Expected height 792, got %f", r.Height())
	}
}

// TestDocumentClose tests document closing
func TestDocumentClose(t *testing.T) {
	doc, err := NewDocument(createMinimalPDF())
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	err = doc.Close()
	if err != nil {
		t.Errorf("Close should not return error: %v", err)
	}

	if doc.data != nil {
		t.Error("Document data should be nil after close")
	}
}

// createMinimalPDF creates a one-page PDF for testing
func createMinimalPDF() []byte {
	w := NewWriter()
	root := w.AddPages(Dictionary{
		"MediaBox": Array{Integer(0), Integer(0), Integer(612), Integer(792)},
	})
	return w.Bytes(root)
}
