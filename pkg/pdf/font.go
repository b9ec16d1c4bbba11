package pdf

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Font descriptor flags
const (
	FontFlagFixedPitch  = 1 << 0
	FontFlagSerif       = 1 << 1
	FontFlagSymbolic    = 1 << 2
	FontFlagNonsymbolic = 1 << 5
	FontFlagItalic      = 1 << 6
	FontFlagForceBold   = 1 << 18
)

// FontProgram is an embedded font file.
type FontProgram struct {
	Kind    Name // FontFile, FontFile2 or FontFile3
	Subtype Name // FontFile3 subtype: Type1C, CIDFontType0C or OpenType
	Data    []byte
	Length1 int
}

// Font is a font dictionary prepared for text rendering.
type Font struct {
	doc *Document

	Dict       Dictionary
	Subtype    Name
	Name       string
	Descriptor Dictionary
	FontMatrix Matrix

	// simple fonts
	Encoding         *Encoding
	ExplicitEncoding bool
	firstChar        int
	widths           []float64

	// Type0 fonts
	CMap         *CMap
	CIDSubtype   Name
	cidWidths    map[uint32]float64
	cidToGID     []uint16
	identityGID  bool
	defaultWidth float64
	vertical     float64

	// Type3 fonts
	CharProcs Dictionary
	Resources Dictionary

	ToUnicode *CMap
}

// LoadFont prepares a font dictionary.
func LoadFont(doc *Document, dict Dictionary) (*Font, error) {
	if dict == nil {
		return nil, errors.New("font dictionary is missing")
	}
	f := &Font{
		doc:          doc,
		Dict:         dict,
		FontMatrix:   Matrix{0.001, 0, 0, 0.001, 0, 0},
		defaultWidth: 1,
		vertical:     -1,
	}
	f.Subtype, _ = doc.NameOf(dict.Get("Subtype"))
	if n, ok := doc.NameOf(dict.Get("BaseFont")); ok {
		f.Name = string(n)
	} else if n, ok := doc.NameOf(dict.Get("Name")); ok {
		f.Name = string(n)
	}

	if tu, ok := doc.StreamOf(dict.Get("ToUnicode")); ok {
		if data, err := tu.Decode(); err == nil {
			f.ToUnicode, _ = ParseCMap(data)
		}
	}

	var err error
	switch f.Subtype {
	case "Type0":
		err = f.loadComposite()
	case "Type3":
		err = f.loadType3()
	default:
		f.Descriptor, _ = doc.DictOf(dict.Get("FontDescriptor"))
		f.loadSimple()
	}
	if err != nil {
		return nil, fmt.Errorf("font %s: %w", f.Name, err)
	}
	return f, nil
}

func (f *Font) loadSimple() {
	doc := f.doc
	if fc, ok := doc.FloatOf(f.Dict.Get("FirstChar")); ok {
		f.firstChar = int(fc)
	}
	f.widths = doc.Floats(f.Dict.Get("Widths"))

	base := standardEncoding
	switch clean := f.CleanName(); {
	case clean == "Symbol":
		base = symbolEncoding
	case clean == "ZapfDingbats" || f.IsSymbolic() && f.Descriptor != nil:
		// the program's own encoding applies
		base = &Encoding{}
	}

	switch enc := doc.Resolve(f.Dict.Get("Encoding")).(type) {
	case Name:
		if e, ok := BuiltinEncoding(enc); ok {
			base = e
			f.ExplicitEncoding = true
		}
	case Dictionary:
		if n, ok := doc.NameOf(enc.Get("BaseEncoding")); ok {
			if e, ok := BuiltinEncoding(n); ok {
				base = e
				f.ExplicitEncoding = true
			}
		}
		if diffs, ok := doc.ArrayOf(enc.Get("Differences")); ok {
			base = base.ApplyDifferences(diffs)
			f.ExplicitEncoding = true
		}
	}
	f.Encoding = base
}

func (f *Font) loadType3() error {
	doc := f.doc
	if m, ok := MatrixFromArray(doc.Floats(f.Dict.Get("FontMatrix"))); ok {
		f.FontMatrix = m
	}
	procs, ok := doc.DictOf(f.Dict.Get("CharProcs"))
	if !ok {
		return errors.New("type 3 font without CharProcs")
	}
	f.CharProcs = procs
	f.Resources, _ = doc.DictOf(f.Dict.Get("Resources"))
	f.loadSimple()
	if !f.ExplicitEncoding {
		f.Encoding = &Encoding{}
	}
	return nil
}

func (f *Font) loadComposite() error {
	doc := f.doc
	switch enc := doc.Resolve(f.Dict.Get("Encoding")).(type) {
	case Name:
		f.CMap = IdentityCMap(strings.HasSuffix(string(enc), "-V"))
		if !isIdentityName(enc) {
			f.CMap.Name = string(enc)
		}
	case Stream:
		data, err := enc.Decode()
		if err != nil {
			return fmt.Errorf("decoding CMap: %w", err)
		}
		cm, err := ParseCMap(data)
		if err != nil {
			return err
		}
		if len(cm.codespaces) == 0 {
			cm.codespaces = IdentityCMap(false).codespaces
		}
		f.CMap = cm
	default:
		f.CMap = IdentityCMap(false)
	}

	desc, ok := doc.ArrayOf(f.Dict.Get("DescendantFonts"))
	if !ok || len(desc) == 0 {
		return errors.New("type 0 font without descendant")
	}
	cid, ok := doc.DictOf(desc[0])
	if !ok {
		return errors.New("invalid descendant font")
	}
	f.CIDSubtype, _ = doc.NameOf(cid.Get("Subtype"))
	f.Descriptor, _ = doc.DictOf(cid.Get("FontDescriptor"))

	if dw, ok := doc.FloatOf(cid.Get("DW")); ok {
		f.defaultWidth = dw / 1000
	}
	if dw2 := doc.Floats(cid.Get("DW2")); len(dw2) == 2 {
		f.vertical = dw2[1] / 1000
	}
	f.cidWidths = f.parseCIDWidths(cid.Get("W"))

	f.identityGID = true
	if m, ok := doc.StreamOf(cid.Get("CIDToGIDMap")); ok {
		if data, err := m.Decode(); err == nil {
			f.identityGID = false
			f.cidToGID = make([]uint16, len(data)/2)
			for i := range f.cidToGID {
				f.cidToGID[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
			}
		}
	}
	return nil
}

// parseCIDWidths reads a W array: "c [w1 w2 ...]" or "cfirst clast w".
func (f *Font) parseCIDWidths(obj Object) map[uint32]float64 {
	arr, ok := f.doc.ArrayOf(obj)
	if !ok {
		return nil
	}
	out := make(map[uint32]float64)
	for i := 0; i < len(arr); {
		first, ok := f.doc.FloatOf(arr[i])
		if !ok || i+1 >= len(arr) {
			break
		}
		if list, ok := f.doc.ArrayOf(arr[i+1]); ok {
			for j, w := range list {
				if v, ok := f.doc.FloatOf(w); ok {
					out[uint32(first)+uint32(j)] = v / 1000
				}
			}
			i += 2
			continue
		}
		if i+2 >= len(arr) {
			break
		}
		last, ok1 := f.doc.FloatOf(arr[i+1])
		w, ok2 := f.doc.FloatOf(arr[i+2])
		if ok1 && ok2 && last >= first && last-first < maxBfRange {
			for c := uint32(first); c <= uint32(last); c++ {
				out[c] = w / 1000
			}
		}
		i += 3
	}
	return out
}

// IsComposite reports whether this is a Type0 font.
func (f *Font) IsComposite() bool {
	return f.Subtype == "Type0"
}

// IsVertical reports whether the font uses a vertical writing mode.
func (f *Font) IsVertical() bool {
	return f.CMap != nil && f.CMap.Vertical
}

// CleanName strips a subset prefix and any style suffix after a comma.
func (f *Font) CleanName() string {
	name := f.Name
	if len(name) > 7 && name[6] == '+' && isSubsetTag(name[:6]) {
		name = name[7:]
	}
	if i := strings.IndexByte(name, ','); i > 0 {
		name = name[:i]
	}
	return name
}

// IsSubset reports whether the font name carries a subset tag.
func (f *Font) IsSubset() bool {
	return len(f.Name) > 7 && f.Name[6] == '+' && isSubsetTag(f.Name[:6])
}

func isSubsetTag(s string) bool {
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

func (f *Font) flags() int {
	v, _ := f.doc.FloatOf(f.Descriptor.Get("Flags"))
	return int(v)
}

// IsSymbolic reports the descriptor's Symbolic flag.
func (f *Font) IsSymbolic() bool {
	return f.flags()&FontFlagSymbolic != 0
}

// IsBold reports a bold face from the descriptor or, failing that, the name.
func (f *Font) IsBold() bool {
	if f.flags()&FontFlagForceBold != 0 {
		return true
	}
	if w, ok := f.doc.FloatOf(f.Descriptor.Get("FontWeight")); ok && w >= 600 {
		return true
	}
	name := strings.ToLower(f.Name)
	for _, s := range []string{"bold", "black", "heavy", "semibold", "demi"} {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// IsItalic reports an italic face from the descriptor or the name.
func (f *Font) IsItalic() bool {
	if f.flags()&FontFlagItalic != 0 {
		return true
	}
	if a, ok := f.doc.FloatOf(f.Descriptor.Get("ItalicAngle")); ok && a != 0 {
		return true
	}
	name := strings.ToLower(f.Name)
	return strings.Contains(name, "italic") || strings.Contains(name, "oblique")
}

// Codes splits a shown string into character codes.
func (f *Font) Codes(s []byte) []CharCode {
	if f.CMap != nil {
		return f.CMap.Decode(s)
	}
	out := make([]CharCode, len(s))
	for i, b := range s {
		out[i] = CharCode{Code: uint32(b), Len: 1}
	}
	return out
}

// CID returns the CID of a code in a composite font.
func (f *Font) CID(code CharCode) uint32 {
	if f.CMap == nil {
		return code.Code
	}
	return f.CMap.CID(code)
}

// GID maps a CID to a glyph index through the CIDToGIDMap.
func (f *Font) GID(cid uint32) (uint16, bool) {
	if f.identityGID {
		return uint16(cid), cid <= 0xFFFF
	}
	if int(cid) < len(f.cidToGID) {
		return f.cidToGID[cid], true
	}
	return 0, false
}

// GlyphName returns the encoding's glyph name for a simple font code.
func (f *Font) GlyphName(code CharCode) string {
	if f.Encoding == nil || code.Code > 255 {
		return ""
	}
	return f.Encoding[code.Code]
}

// Unicode returns the text for a code: ToUnicode first, then the glyph name.
func (f *Font) Unicode(code CharCode) string {
	if f.ToUnicode != nil {
		if s, ok := f.ToUnicode.Unicode(code.Code); ok {
			return s
		}
	}
	if f.CMap != nil {
		if f.CMap.unicode != nil {
			if s, ok := f.CMap.Unicode(code.Code); ok {
				return s
			}
		}
		return ""
	}
	if name := f.GlyphName(code); name != "" {
		if s, ok := GlyphUnicode(name); ok {
			return s
		}
	}
	if f.Subtype != "Type3" && code.Code >= 0x20 && code.Code < 0x7F && !f.ExplicitEncoding {
		return string(rune(code.Code))
	}
	return ""
}

// HasWidths reports whether the font dictionary carries glyph widths.
// Standard 14 fonts often do not.
func (f *Font) HasWidths() bool {
	return f.CMap != nil || len(f.widths) > 0
}

// Width returns the horizontal displacement of a code in text space units
// per point of font size.
func (f *Font) Width(code CharCode) float64 {
	if f.CMap != nil {
		if w, ok := f.cidWidths[f.CID(code)]; ok {
			return w
		}
		return f.defaultWidth
	}
	i := int(code.Code) - f.firstChar
	var w float64
	if i >= 0 && i < len(f.widths) {
		w = f.widths[i]
	} else if mw, ok := f.doc.FloatOf(f.Descriptor.Get("MissingWidth")); ok {
		w = mw
	}
	if f.Subtype == "Type3" {
		x, _ := f.FontMatrix.TransformVector(w, 0)
		return x
	}
	return w / 1000
}

// VerticalAdvance returns the vertical displacement for vertical fonts.
func (f *Font) VerticalAdvance(CharCode) float64 {
	return f.vertical
}

// CharProc returns the glyph procedure of a Type 3 code.
func (f *Font) CharProc(code CharCode) (Stream, bool) {
	name := f.GlyphName(code)
	if name == "" || f.CharProcs == nil {
		return Stream{}, false
	}
	return f.doc.StreamOf(f.CharProcs.Get(name))
}

// Program returns the embedded font file, if any.
func (f *Font) Program() (*FontProgram, error) {
	if f.Descriptor == nil {
		return nil, nil
	}
	for _, kind := range []Name{"FontFile", "FontFile2", "FontFile3"} {
		s, ok := f.doc.StreamOf(f.Descriptor.Get(string(kind)))
		if !ok {
			continue
		}
		data, err := s.Decode()
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", kind, err)
		}
		p := &FontProgram{Kind: kind, Data: data}
		p.Subtype, _ = f.doc.NameOf(s.Dictionary.Get("Subtype"))
		if l, ok := f.doc.FloatOf(s.Dictionary.Get("Length1")); ok {
			p.Length1 = int(l)
		}
		return p, nil
	}
	return nil, nil
}

// FontInfo summarises a font resource for listings.
type FontInfo struct {
	Name       string
	Type       string
	Encoding   string
	Embedded   bool
	Subset     bool
	Unicode    bool
	ObjectNum  int
	Generation int
}

// ExtractFonts lists the distinct fonts used by a range of pages.
func ExtractFonts(doc *Document, firstPage, lastPage int) ([]*FontInfo, error) {
	seen := make(map[string]*FontInfo)

	for pageNum := firstPage; pageNum <= lastPage; pageNum++ {
		page, err := doc.GetPage(pageNum)
		if err != nil {
			return nil, err
		}
		fonts, ok := doc.DictOf(page.Resources.Get("Font"))
		if !ok {
			continue
		}
		for _, ref := range fonts {
			info := fontInfo(doc, ref)
			if info == nil {
				continue
			}
			key := info.Name + info.Type
			if _, exists := seen[key]; !exists {
				seen[key] = info
			}
		}
	}

	result := make([]*FontInfo, 0, len(seen))
	for _, info := range seen {
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].Type < result[j].Type
	})
	return result, nil
}

func fontInfo(doc *Document, ref Object) *FontInfo {
	dict, ok := doc.DictOf(ref)
	if !ok {
		return nil
	}
	f, err := LoadFont(doc, dict)
	if err != nil {
		return nil
	}

	info := &FontInfo{
		Name:    f.Name,
		Type:    string(f.Subtype),
		Subset:  f.IsSubset(),
		Unicode: f.ToUnicode != nil || f.IsComposite(),
	}
	switch enc := doc.Resolve(dict.Get("Encoding")).(type) {
	case Name:
		info.Encoding = string(enc)
	case Dictionary:
		if base, ok := enc.GetName("BaseEncoding"); ok {
			info.Encoding = string(base)
		} else {
			info.Encoding = "Custom"
		}
	case Null:
		info.Encoding = "Standard"
	default:
		info.Encoding = "Custom"
	}
	if p, err := f.Program(); err == nil && p != nil {
		info.Embedded = true
	}
	if r, ok := ref.(Reference); ok {
		info.ObjectNum = r.ObjectNumber
		info.Generation = r.GenerationNumber
	}
	return info
}
