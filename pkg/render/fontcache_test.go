package render

import (
	"slices"
	"testing"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// TestTypefaceCache tests that typefaces are shared by name and style
func TestTypefaceCache(t *testing.T) {
	c := NewFontCache(nil, false)

	a := c.Typeface("Helvetica", false, false, "a")
	if a == nil || a.Face == nil {
		t.Fatal("Expected a substitute typeface")
	}
	if b := c.Typeface("Helvetica", false, false, "xyz"); b != a {
		t.Error("Expected the cached typeface for the same name and style")
	}
	if b := c.Typeface("Helvetica", true, false, "a"); b == a {
		t.Error("Expected a separate typeface for the bold style")
	}
	if m := c.Typeface("Courier", false, false, "a"); m == nil || m.Family == "" {
		t.Error("Expected a monospace substitute with a family name")
	}
}

// TestSubstituteFamilies tests family selection for standard names
func TestSubstituteFamilies(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Courier-Bold", familyGoMono},
		{"Times-Roman", familyGo},
		{"Helvetica", familyGo},
		{"DejaVuSansMono", familyGoMono},
	}
	for _, tt := range tests {
		got := substituteFamilies(tt.name)
		if got[0] != tt.name || !slices.Contains(got, tt.want) {
			t.Errorf("substituteFamilies(%q) = %v, expected %s", tt.name, got, tt.want)
		}
	}
}

// TestLoadFontCached tests that fonts behind one reference load once
func TestLoadFontCached(t *testing.T) {
	w := pdf.NewWriter()
	ref := w.Add(pdf.Dictionary{"Type": pdf.Name("Font"), "Subtype": pdf.Name("Type1"), "BaseFont": pdf.Name("Helvetica")})
	doc := buildDocument(t, w, testPage{width: 10, height: 10})

	c := NewFontCache(nil, false)
	a, err := c.LoadFont(doc, ref)
	if err != nil {
		t.Fatalf("LoadFont failed: %v", err)
	}
	b, err := c.LoadFont(doc, ref)
	if err != nil {
		t.Fatalf("LoadFont failed: %v", err)
	}
	if a != b {
		t.Error("Expected one font per reference")
	}
	if _, err := c.LoadFont(doc, pdf.Integer(3)); err == nil {
		t.Error("Expected an error for a non-dictionary font")
	}
}

// TestFallbackOutline tests glyph outlines and advances from substitutes
func TestFallbackOutline(t *testing.T) {
	doc := &pdf.Document{}
	f, err := pdf.LoadFont(doc, pdf.Dictionary{"Type": pdf.Name("Font"), "Subtype": pdf.Name("Type1"), "BaseFont": pdf.Name("Helvetica")})
	if err != nil {
		t.Fatalf("LoadFont failed: %v", err)
	}
	c := NewFontCache(nil, false)
	path := c.FallbackOutline(f, "H")
	if path == nil || len(path.Commands) == 0 {
		t.Fatal("Expected an outline for H")
	}
	if again := c.FallbackOutline(f, "H"); again != path {
		t.Error("Expected the cached outline")
	}
}
