package pdf

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Encoding maps single byte codes to glyph names. Unused codes are empty.
type Encoding [256]string

func encodingFromMap(m map[int]string) *Encoding {
	var enc Encoding
	for code, name := range m {
		enc[code] = name
	}
	return &enc
}

var (
	winAnsiEncoding  = charmapEncoding(charmap.Windows1252)
	macRomanEncoding = charmapEncoding(charmap.Macintosh)
	glyphNameOf      = reverseGlyphList()
)

func init() {
	// undefined WinAnsi codes render as bullets
	for _, c := range []int{0x7F, 0x81, 0x8D, 0x8F, 0x90, 0x9D} {
		winAnsiEncoding[c] = "bullet"
	}
	winAnsiEncoding[0xA0] = "space"
	winAnsiEncoding[0xAD] = "hyphen"
	// the PDF flavour of MacRoman predates the Euro
	macRomanEncoding[0xDB] = "currency"
}

func reverseGlyphList() map[rune]string {
	out := make(map[rune]string, len(glyphList))
	for name, r := range glyphList {
		out[r] = name
	}
	return out
}

// charmapEncoding names the printable code points of a single byte charmap.
func charmapEncoding(cm *charmap.Charmap) *Encoding {
	var enc Encoding
	for c := 0x20; c < 256; c++ {
		r := cm.DecodeByte(byte(c))
		if name, ok := glyphNameOf[r]; ok {
			enc[c] = name
		}
	}
	return &enc
}

// BuiltinEncoding returns a predefined encoding by its PDF name.
func BuiltinEncoding(name Name) (*Encoding, bool) {
	switch name {
	case "WinAnsiEncoding":
		return winAnsiEncoding, true
	case "MacRomanEncoding":
		return macRomanEncoding, true
	case "StandardEncoding":
		return standardEncoding, true
	case "SymbolEncoding":
		return symbolEncoding, true
	}
	return nil, false
}

// ApplyDifferences returns a copy of enc with a /Differences array applied.
func (enc *Encoding) ApplyDifferences(diffs Array) *Encoding {
	out := *enc
	code := 0
	for _, obj := range diffs {
		switch v := obj.(type) {
		case Integer:
			code = int(v)
		case Real:
			code = int(v)
		case Name:
			if code >= 0 && code < 256 {
				out[code] = string(v)
			}
			code++
		}
	}
	return &out
}

// GlyphUnicode maps a glyph name to text: the glyph list first, then the
// uniXXXX, uXXXX and ligature naming rules.
func GlyphUnicode(name string) (string, bool) {
	if r, ok := glyphList[name]; ok {
		return string(r), true
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
		if r, ok := glyphList[name]; ok {
			return string(r), true
		}
	}
	if strings.Contains(name, "_") {
		var sb strings.Builder
		for _, part := range strings.Split(name, "_") {
			s, ok := GlyphUnicode(part)
			if !ok {
				return "", false
			}
			sb.WriteString(s)
		}
		return sb.String(), true
	}
	if hex, ok := strings.CutPrefix(name, "uni"); ok && len(hex) >= 4 && len(hex)%4 == 0 {
		var sb strings.Builder
		for i := 0; i < len(hex); i += 4 {
			v, err := strconv.ParseUint(hex[i:i+4], 16, 32)
			if err != nil {
				return "", false
			}
			sb.WriteRune(rune(v))
		}
		return sb.String(), true
	}
	if hex, ok := strings.CutPrefix(name, "u"); ok && len(hex) >= 4 && len(hex) <= 6 {
		if v, err := strconv.ParseUint(hex, 16, 32); err == nil && v <= 0x10FFFF {
			return string(rune(v)), true
		}
	}
	if len(name) == 1 {
		return name, true
	}
	return "", false
}
