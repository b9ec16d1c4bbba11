package pdf

import (
	"errors"
	"strings"
	"unicode/utf16"
)

// CharCode is a character code read from a string, with its byte length.
type CharCode struct {
	Code uint32
	Len  int
}

type codespaceRange struct {
	low, high []byte
}

func (r codespaceRange) contains(b []byte) bool {
	if len(b) != len(r.low) {
		return false
	}
	for i := range b {
		if b[i] < r.low[i] || b[i] > r.high[i] {
			return false
		}
	}
	return true
}

type cidRange struct {
	low, high uint32
	cid       uint32
}

// maxBfRange bounds how many codes a single bfrange line may expand to.
const maxBfRange = 0x10000

// CMap maps character codes to CIDs and, for ToUnicode CMaps, to text.
type CMap struct {
	Name     string
	Vertical bool

	codespaces []codespaceRange
	cidRanges  []cidRange
	unicode    map[uint32]string
	identity   bool
}

// IdentityCMap returns the Identity-H or Identity-V CMap.
func IdentityCMap(vertical bool) *CMap {
	name := "Identity-H"
	if vertical {
		name = "Identity-V"
	}
	return &CMap{
		Name:       name,
		Vertical:   vertical,
		identity:   true,
		codespaces: []codespaceRange{{low: []byte{0, 0}, high: []byte{0xFF, 0xFF}}},
	}
}

// Decode splits a string into character codes using the codespace ranges.
// Bytes matching no range are consumed with the shortest code length.
func (c *CMap) Decode(s []byte) []CharCode {
	if len(c.codespaces) == 0 {
		out := make([]CharCode, len(s))
		for i, b := range s {
			out[i] = CharCode{Code: uint32(b), Len: 1}
		}
		return out
	}

	shortest := 4
	for _, r := range c.codespaces {
		shortest = min(shortest, len(r.low))
	}

	var out []CharCode
	for pos := 0; pos < len(s); {
		n := 0
		for l := 1; l <= 4 && pos+l <= len(s) && n == 0; l++ {
			for _, r := range c.codespaces {
				if r.contains(s[pos : pos+l]) {
					n = l
					break
				}
			}
		}
		if n == 0 {
			n = min(shortest, len(s)-pos)
		}
		out = append(out, CharCode{Code: bytesToCode(s[pos : pos+n]), Len: n})
		pos += n
	}
	return out
}

func bytesToCode(b []byte) uint32 {
	var v uint32
	for _, x := range b {
		v = v<<8 | uint32(x)
	}
	return v
}

// CID maps a code to a CID. Unmapped codes give CID 0.
func (c *CMap) CID(code CharCode) uint32 {
	if c.identity {
		return code.Code
	}
	for i := len(c.cidRanges) - 1; i >= 0; i-- {
		r := c.cidRanges[i]
		if code.Code >= r.low && code.Code <= r.high {
			return r.cid + code.Code - r.low
		}
	}
	return 0
}

// Unicode returns the text mapped to a code by bfchar/bfrange entries.
func (c *CMap) Unicode(code uint32) (string, bool) {
	s, ok := c.unicode[code]
	return s, ok
}

// ParseCMap reads an embedded CMap or ToUnicode program.
func ParseCMap(data []byte) (*CMap, error) {
	c := &CMap{unicode: make(map[uint32]string)}
	p := NewParserFromBytes(data)

	var operands []Object
	for {
		tok, err := p.nextToken()
		if err != nil {
			continue
		}
		if tok.Type == TokenEOF {
			break
		}
		if tok.Type != TokenKeyword {
			obj, err := p.objectFromToken(tok)
			if err == nil {
				operands = append(operands, obj)
			}
			if len(operands) > 64 {
				operands = operands[len(operands)-64:]
			}
			continue
		}

		switch tok.Value.(string) {
		case "def":
			if len(operands) >= 2 {
				key, _ := operands[len(operands)-2].(Name)
				switch key {
				case "CMapName":
					if n, ok := operands[len(operands)-1].(Name); ok {
						c.Name = string(n)
					}
				case "WMode":
					if v, ok := operands[len(operands)-1].(Integer); ok {
						c.Vertical = v == 1
					}
				}
			}
		case "begincodespacerange":
			c.readCodespaces(p)
		case "begincidrange":
			c.readCIDRanges(p, 3)
		case "begincidchar":
			c.readCIDRanges(p, 2)
		case "beginbfchar":
			c.readBfChars(p)
		case "beginbfrange":
			c.readBfRanges(p)
		}
		operands = operands[:0]
	}

	if len(c.codespaces) == 0 && len(c.cidRanges) == 0 && len(c.unicode) == 0 {
		return nil, errors.New("empty CMap")
	}
	return c, nil
}

// readEntries collects operands until the matching end keyword.
func readEntries(p *Parser) []Object {
	var out []Object
	for {
		tok, err := p.nextToken()
		if err != nil {
			continue
		}
		if tok.Type == TokenEOF {
			return out
		}
		if tok.Type == TokenKeyword {
			return out
		}
		obj, err := p.objectFromToken(tok)
		if err == nil {
			out = append(out, obj)
		}
	}
}

func (c *CMap) readCodespaces(p *Parser) {
	entries := readEntries(p)
	for i := 0; i+1 < len(entries); i += 2 {
		lo, ok1 := entries[i].(String)
		hi, ok2 := entries[i+1].(String)
		if !ok1 || !ok2 || len(lo.Value) != len(hi.Value) || len(lo.Value) == 0 || len(lo.Value) > 4 {
			continue
		}
		c.codespaces = append(c.codespaces, codespaceRange{low: lo.Value, high: hi.Value})
	}
}

// readCIDRanges reads cidrange triples (stride 3) or cidchar pairs (stride 2).
func (c *CMap) readCIDRanges(p *Parser, stride int) {
	entries := readEntries(p)
	for i := 0; i+stride-1 < len(entries); i += stride {
		lo, ok1 := entries[i].(String)
		hi := lo
		ok2 := true
		if stride == 3 {
			hi, ok2 = entries[i+1].(String)
		}
		cid, ok3 := entries[i+stride-1].(Integer)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		c.cidRanges = append(c.cidRanges, cidRange{
			low:  bytesToCode(lo.Value),
			high: bytesToCode(hi.Value),
			cid:  uint32(cid),
		})
	}
}

func (c *CMap) readBfChars(p *Parser) {
	entries := readEntries(p)
	for i := 0; i+1 < len(entries); i += 2 {
		src, ok := entries[i].(String)
		if !ok {
			continue
		}
		switch dst := entries[i+1].(type) {
		case String:
			c.unicode[bytesToCode(src.Value)] = utf16BEText(dst.Value)
		case Name:
			if s, ok := GlyphUnicode(string(dst)); ok {
				c.unicode[bytesToCode(src.Value)] = s
			}
		}
	}
}

func (c *CMap) readBfRanges(p *Parser) {
	entries := readEntries(p)
	for i := 0; i+2 < len(entries); i += 3 {
		lo, ok1 := entries[i].(String)
		hi, ok2 := entries[i+1].(String)
		if !ok1 || !ok2 {
			continue
		}
		start, end := bytesToCode(lo.Value), bytesToCode(hi.Value)
		if end < start || end-start >= maxBfRange {
			continue
		}
		switch dst := entries[i+2].(type) {
		case String:
			base := append([]byte(nil), dst.Value...)
			for code := start; code <= end; code++ {
				c.unicode[code] = utf16BEText(base)
				incrementLast(base)
			}
		case Array:
			for j, e := range dst {
				s, ok := e.(String)
				if !ok || start+uint32(j) > end {
					continue
				}
				c.unicode[start+uint32(j)] = utf16BEText(s.Value)
			}
		}
	}
}

// incrementLast adds one to the final byte, carrying into the previous one.
func incrementLast(b []byte) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i]++
		if b[i] != 0 {
			return
		}
	}
}

func utf16BEText(b []byte) string {
	if len(b) == 1 {
		return string(rune(b[0]))
	}
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return string(utf16.Decode(u))
}

// isIdentityName reports whether a predefined CMap name is one of the
// identity mappings. Other predefined CMaps are approximated by them.
func isIdentityName(name Name) bool {
	return strings.HasPrefix(string(name), "Identity")
}
