package pdf

// Annotation flags
const (
	AnnotFlagInvisible = 1 << 0
	AnnotFlagHidden    = 1 << 1
	AnnotFlagPrint     = 1 << 2
	AnnotFlagNoView    = 1 << 5
)

// Annotation represents a page annotation.
type Annotation struct {
	doc *Document

	Subtype  Name
	Rect     Rectangle
	Contents string
	Name     string
	Flags    int
	Color    []float64

	// Border is the border width from /BS /W or the third /Border entry.
	Border      float64
	BorderStyle Name

	QuadPoints      []float64
	AppearanceState Name

	// Widget fields; FieldType is inherited through /Parent.
	FieldType Name
	HasValue  bool

	Dict Dictionary
}

func newAnnotation(doc *Document, dict Dictionary) *Annotation {
	a := &Annotation{doc: doc, Dict: dict, Border: 1, BorderStyle: "S"}
	a.Subtype, _ = doc.NameOf(dict.Get("Subtype"))
	if r, ok := doc.rectangle(dict.Get("Rect")); ok {
		a.Rect = r
	}
	if s, ok := doc.Resolve(dict.Get("Contents")).(String); ok {
		a.Contents = s.Text()
	}
	if s, ok := doc.Resolve(dict.Get("NM")).(String); ok {
		a.Name = s.Text()
	}
	if f, ok := doc.FloatOf(dict.Get("F")); ok {
		a.Flags = int(f)
	}
	if _, ok := doc.ArrayOf(dict.Get("C")); ok {
		a.Color = doc.Floats(dict.Get("C"))
		if a.Color == nil {
			a.Color = []float64{}
		}
	}

	if b := doc.Floats(dict.Get("Border")); len(b) >= 3 {
		a.Border = b[2]
	}
	if bs, ok := doc.DictOf(dict.Get("BS")); ok {
		if w, ok := doc.FloatOf(bs.Get("W")); ok {
			a.Border = w
		}
		if s, ok := doc.NameOf(bs.Get("S")); ok {
			a.BorderStyle = s
		}
	}

	a.QuadPoints = doc.Floats(dict.Get("QuadPoints"))
	a.AppearanceState, _ = doc.NameOf(dict.Get("AS"))

	// field attributes may sit on the widget or any ancestor field
	node := dict
	for depth := 0; node != nil && depth < 32; depth++ {
		if a.FieldType == "" {
			a.FieldType, _ = doc.NameOf(node.Get("FT"))
		}
		if !a.HasValue {
			if _, isNull := doc.Resolve(node.Get("V")).(Null); !isNull {
				a.HasValue = true
			}
		}
		node, _ = doc.DictOf(node.Get("Parent"))
	}
	return a
}

// Hidden reports whether the annotation must not be drawn on screen.
func (a *Annotation) Hidden() bool {
	return a.Flags&(AnnotFlagInvisible|AnnotFlagHidden|AnnotFlagNoView) != 0
}

// NormalAppearance returns the /AP /N stream, selecting the /AS state when
// /N is a dictionary of states.
func (a *Annotation) NormalAppearance() (Stream, bool) {
	ap, ok := a.doc.DictOf(a.Dict.Get("AP"))
	if !ok {
		return Stream{}, false
	}
	switch n := a.doc.Resolve(ap.Get("N")).(type) {
	case Stream:
		return n, true
	case Dictionary:
		if a.AppearanceState == "" {
			return Stream{}, false
		}
		return a.doc.StreamOf(n.Get(string(a.AppearanceState)))
	}
	return Stream{}, false
}

// HasAppearanceDict reports whether /AP is present at all.
func (a *Annotation) HasAppearanceDict() bool {
	_, ok := a.doc.DictOf(a.Dict.Get("AP"))
	return ok
}
