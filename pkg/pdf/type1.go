package pdf

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
)

// Type1Font is a parsed Type 1 font program (FontFile).
type Type1Font struct {
	Name        string
	FontMatrix  Matrix
	Encoding    *Encoding
	CharStrings map[string][]byte
	Subrs       [][]byte
	lenIV       int
}

const (
	eexecKey      = 55665
	charStringKey = 4330
)

// ParseType1 parses a PFA or PFB font program. Data from a FontFile stream
// has Length1 bytes of clear text followed by the encrypted portion.
func ParseType1(data []byte) (*Type1Font, error) {
	clear, private := splitType1(data)
	if private == nil {
		return nil, errors.New("type 1 font without eexec section")
	}

	font := &Type1Font{
		FontMatrix:  Matrix{0.001, 0, 0, 0.001, 0, 0},
		Encoding:    standardEncoding,
		CharStrings: make(map[string][]byte),
		lenIV:       4,
	}
	font.parseClearText(clear)

	dec := decryptType1(private, eexecKey, 4)
	font.parsePrivate(dec)
	if len(font.CharStrings) == 0 {
		return nil, errors.New("type 1 font without CharStrings")
	}
	return font, nil
}

// splitType1 separates the clear text and encrypted portions, handling PFB
// segment headers and hex encoded eexec data.
func splitType1(data []byte) (clear, private []byte) {
	if len(data) > 6 && data[0] == 0x80 {
		var segs [2][]byte
		for pos := 0; pos+6 <= len(data) && data[pos] == 0x80; {
			typ := data[pos+1]
			if typ == 3 {
				break
			}
			n := int(data[pos+2]) | int(data[pos+3])<<8 | int(data[pos+4])<<16 | int(data[pos+5])<<24
			pos += 6
			end := min(pos+n, len(data))
			if typ == 1 && segs[1] == nil {
				segs[0] = append(segs[0], data[pos:end]...)
			} else if typ == 2 {
				segs[1] = append(segs[1], data[pos:end]...)
			}
			pos = end
		}
		if segs[1] != nil {
			return segs[0], segs[1]
		}
	}

	idx := bytes.Index(data, []byte("eexec"))
	if idx < 0 {
		return data, nil
	}
	clear = data[:idx]
	rest := data[idx+len("eexec"):]
	for len(rest) > 0 && isWhitespace(rest[0]) {
		rest = rest[1:]
	}
	if isHexPrefix(rest) {
		rest = decodeHexLoose(rest)
	}
	return clear, rest
}

func isHexPrefix(b []byte) bool {
	if len(b) < 4 {
		return false
	}
	for _, c := range b[:4] {
		if _, ok := hexValue(c); !ok {
			return false
		}
	}
	return true
}

func decodeHexLoose(b []byte) []byte {
	clean := make([]byte, 0, len(b))
	for _, c := range b {
		if _, ok := hexValue(c); ok {
			clean = append(clean, c)
		} else if !isWhitespace(c) {
			break
		}
	}
	if len(clean)%2 == 1 {
		clean = clean[:len(clean)-1]
	}
	out := make([]byte, len(clean)/2)
	hex.Decode(out, clean)
	return out
}

// decryptType1 undoes eexec or charstring encryption and drops the first
// skip bytes.
func decryptType1(data []byte, key uint16, skip int) []byte {
	r := key
	const c1, c2 = 52845, 22719
	out := make([]byte, 0, len(data))
	for i, c := range data {
		plain := c ^ byte(r>>8)
		r = (uint16(c)+r)*c1 + c2
		if i >= skip {
			out = append(out, plain)
		}
	}
	return out
}

func (f *Type1Font) parseClearText(data []byte) {
	lex := NewLexerFromBytes(data)
	p := NewParser(lex)
	var prev []Object
	for {
		tok, err := p.nextToken()
		if err != nil {
			continue
		}
		if tok.Type == TokenEOF {
			return
		}
		switch {
		case tok.Type == TokenName && tok.Value.(string) == "Encoding":
			f.parseEncoding(p)
			continue
		case tok.Type == TokenKeyword && tok.Value.(string) == "def" && len(prev) >= 2:
			key, _ := prev[len(prev)-2].(Name)
			switch key {
			case "FontName":
				if n, ok := prev[len(prev)-1].(Name); ok {
					f.Name = string(n)
				}
			case "FontMatrix":
				if a, ok := prev[len(prev)-1].(Array); ok {
					if m, ok := MatrixFromArray(a.Floats()); ok {
						f.FontMatrix = m
					}
				}
			}
			prev = prev[:0]
			continue
		}
		if tok.Type == TokenKeyword {
			// FontMatrix is sometimes written as a procedure
			if tok.Value.(string) == "{" {
				arr := Array{}
				for {
					t, err := p.nextToken()
					if err != nil || t.Type == TokenEOF || (t.Type == TokenKeyword && t.Value.(string) == "}") {
						break
					}
					if o, err := p.objectFromToken(t); err == nil {
						arr = append(arr, o)
					}
				}
				prev = append(prev, arr)
			}
			continue
		}
		obj, err := p.objectFromToken(tok)
		if err != nil {
			continue
		}
		prev = append(prev, obj)
		if len(prev) > 8 {
			prev = prev[len(prev)-8:]
		}
	}
}

// parseEncoding reads "/Encoding StandardEncoding def" or a sequence of
// "dup code /name put" entries.
func (f *Type1Font) parseEncoding(p *Parser) {
	tok, err := p.peekToken()
	if err != nil {
		return
	}
	if tok.Type == TokenKeyword && tok.Value.(string) == "StandardEncoding" {
		p.nextToken()
		f.Encoding = standardEncoding
		return
	}

	enc := Encoding{}
	var nums []int64
	for {
		tok, err := p.nextToken()
		if err != nil {
			continue
		}
		if tok.Type == TokenEOF {
			break
		}
		if tok.Type == TokenKeyword {
			word := tok.Value.(string)
			if word == "def" || word == "readonly" {
				break
			}
			continue
		}
		switch tok.Type {
		case TokenInteger:
			nums = append(nums, tok.Value.(int64))
		case TokenName:
			if len(nums) > 0 {
				code := nums[len(nums)-1]
				if code >= 0 && code < 256 {
					enc[code] = tok.Value.(string)
				}
			}
		}
	}
	f.Encoding = &enc
}

// parsePrivate reads lenIV, Subrs and CharStrings from the decrypted portion.
// Binary charstrings follow "n RD " so this scans bytes rather than tokens.
func (f *Type1Font) parsePrivate(data []byte) {
	if i := bytes.Index(data, []byte("/lenIV")); i >= 0 {
		fields := bytes.Fields(data[i+len("/lenIV"):])
		if len(fields) > 0 {
			if v, err := strconv.Atoi(string(fields[0])); err == nil {
				f.lenIV = v
			}
		}
	}

	if i := bytes.Index(data, []byte("/Subrs")); i >= 0 {
		pos := i + len("/Subrs")
		count, pos := readInt(data, pos)
		if count > 0 && count < 1<<16 {
			f.Subrs = make([][]byte, count)
			for {
				j := bytes.Index(data[pos:], []byte("dup"))
				if j < 0 {
					break
				}
				next := pos + j + 3
				cs := bytes.Index(data[pos:], []byte("/CharStrings"))
				if cs >= 0 && cs < j {
					break
				}
				idx, p2 := readInt(data, next)
				n, p3 := readInt(data, p2)
				start, ok := skipRD(data, p3)
				if !ok || idx < 0 || n < 0 || start+n > len(data) {
					pos = next
					continue
				}
				if idx < len(f.Subrs) {
					f.Subrs[idx] = data[start : start+n]
				}
				pos = start + n
			}
		}
	}

	i := bytes.Index(data, []byte("/CharStrings"))
	if i < 0 {
		return
	}
	pos := i + len("/CharStrings")
	for pos < len(data) {
		j := bytes.IndexByte(data[pos:], '/')
		if j < 0 {
			break
		}
		nameStart := pos + j + 1
		nameEnd := nameStart
		for nameEnd < len(data) && !isWhitespace(data[nameEnd]) && !isDelimiter(data[nameEnd]) {
			nameEnd++
		}
		name := string(data[nameStart:nameEnd])
		n, p2 := readInt(data, nameEnd)
		start, ok := skipRD(data, p2)
		if !ok || n < 0 || start+n > len(data) {
			pos = nameEnd
			continue
		}
		f.CharStrings[name] = data[start : start+n]
		pos = start + n
	}
}

func readInt(data []byte, pos int) (int, int) {
	for pos < len(data) && isWhitespace(data[pos]) {
		pos++
	}
	start := pos
	for pos < len(data) && data[pos] >= '0' && data[pos] <= '9' {
		pos++
	}
	v, err := strconv.Atoi(string(data[start:pos]))
	if err != nil {
		return -1, pos
	}
	return v, pos
}

// skipRD skips the RD (or -|) keyword and the single space after it.
func skipRD(data []byte, pos int) (int, bool) {
	for pos < len(data) && isWhitespace(data[pos]) {
		pos++
	}
	start := pos
	for pos < len(data) && !isWhitespace(data[pos]) {
		pos++
	}
	word := string(data[start:pos])
	if word != "RD" && word != "-|" {
		return 0, false
	}
	return pos + 1, true
}

// Glyph interprets the charstring of a glyph and returns its outline in
// glyph space together with the advance width.
func (f *Type1Font) Glyph(name string) (*Path, float64, error) {
	cs, ok := f.CharStrings[name]
	if !ok {
		return nil, 0, fmt.Errorf("glyph %q not found", name)
	}
	in := &t1Interpreter{font: f, path: &Path{}}
	if err := in.run(cs, 0); err != nil && !errors.Is(err, errEndChar) {
		return in.path, in.width, err
	}
	return in.path, in.width, nil
}

var errEndChar = errors.New("endchar")

type t1Interpreter struct {
	font     *Type1Font
	path     *Path
	stack    []float64
	psStack  []float64
	x, y     float64
	sbx      float64
	width    float64
	open     bool
	flex     bool
	flexPts  []Point
	seacBase bool
}

func (in *t1Interpreter) moveTo(x, y float64) {
	if in.flex {
		in.flexPts = append(in.flexPts, Point{x, y})
		in.x, in.y = x, y
		return
	}
	if in.open {
		in.path.Close()
	}
	in.x, in.y = x, y
	in.path.MoveTo(x, y)
	in.open = true
}

func (in *t1Interpreter) lineTo(x, y float64) {
	if !in.open {
		in.path.MoveTo(in.x, in.y)
		in.open = true
	}
	in.x, in.y = x, y
	in.path.LineTo(x, y)
}

func (in *t1Interpreter) curveTo(x1, y1, x2, y2, x3, y3 float64) {
	if !in.open {
		in.path.MoveTo(in.x, in.y)
		in.open = true
	}
	in.x, in.y = x3, y3
	in.path.CurveTo(x1, y1, x2, y2, x3, y3)
}

func (in *t1Interpreter) arg(i int) float64 {
	if i < len(in.stack) {
		return in.stack[i]
	}
	return 0
}

func (in *t1Interpreter) run(cs []byte, depth int) error {
	if depth > 10 {
		return errors.New("subroutine nesting too deep")
	}
	code := decryptType1(cs, charStringKey, in.font.lenIV)
	if in.font.lenIV < 0 {
		code = cs
	}

	for i := 0; i < len(code); {
		v := code[i]
		i++
		switch {
		case v >= 32 && v <= 246:
			in.stack = append(in.stack, float64(int(v)-139))
			continue
		case v >= 247 && v <= 250:
			if i >= len(code) {
				return errors.New("truncated charstring")
			}
			in.stack = append(in.stack, float64((int(v)-247)*256+int(code[i])+108))
			i++
			continue
		case v >= 251 && v <= 254:
			if i >= len(code) {
				return errors.New("truncated charstring")
			}
			in.stack = append(in.stack, float64(-(int(v)-251)*256-int(code[i])-108))
			i++
			continue
		case v == 255:
			if i+4 > len(code) {
				return errors.New("truncated charstring")
			}
			n := int32(uint32(code[i])<<24 | uint32(code[i+1])<<16 | uint32(code[i+2])<<8 | uint32(code[i+3]))
			in.stack = append(in.stack, float64(n))
			i += 4
			continue
		}

		op := int(v)
		if v == 12 {
			if i >= len(code) {
				return errors.New("truncated charstring")
			}
			op = 1200 + int(code[i])
			i++
		}

		switch op {
		case 13: // hsbw
			in.sbx = in.arg(0)
			in.x, in.y = in.arg(0), 0
			in.width = in.arg(1)
		case 1207: // sbw
			in.sbx = in.arg(0)
			in.x, in.y = in.arg(0), in.arg(1)
			in.width = in.arg(2)
		case 21: // rmoveto
			in.moveTo(in.x+in.arg(0), in.y+in.arg(1))
		case 22: // hmoveto
			in.moveTo(in.x+in.arg(0), in.y)
		case 4: // vmoveto
			in.moveTo(in.x, in.y+in.arg(0))
		case 5: // rlineto
			in.lineTo(in.x+in.arg(0), in.y+in.arg(1))
		case 6: // hlineto
			in.lineTo(in.x+in.arg(0), in.y)
		case 7: // vlineto
			in.lineTo(in.x, in.y+in.arg(0))
		case 8: // rrcurveto
			x1, y1 := in.x+in.arg(0), in.y+in.arg(1)
			x2, y2 := x1+in.arg(2), y1+in.arg(3)
			in.curveTo(x1, y1, x2, y2, x2+in.arg(4), y2+in.arg(5))
		case 30: // vhcurveto
			x1, y1 := in.x, in.y+in.arg(0)
			x2, y2 := x1+in.arg(1), y1+in.arg(2)
			in.curveTo(x1, y1, x2, y2, x2+in.arg(3), y2)
		case 31: // hvcurveto
			x1, y1 := in.x+in.arg(0), in.y
			x2, y2 := x1+in.arg(1), y1+in.arg(2)
			in.curveTo(x1, y1, x2, y2, x2, y2+in.arg(3))
		case 9: // closepath
			if in.open {
				in.path.Close()
				in.open = false
			}
		case 10: // callsubr
			if len(in.stack) == 0 {
				return errors.New("callsubr without index")
			}
			idx := int(in.stack[len(in.stack)-1])
			in.stack = in.stack[:len(in.stack)-1]
			if idx < 0 || idx >= len(in.font.Subrs) || in.font.Subrs[idx] == nil {
				return fmt.Errorf("invalid subr %d", idx)
			}
			if err := in.run(in.font.Subrs[idx], depth+1); err != nil {
				return err
			}
			continue
		case 11: // return
			return nil
		case 14: // endchar
			if in.open {
				in.path.Close()
				in.open = false
			}
			return errEndChar
		case 1206: // seac
			return in.seac()
		case 1212: // div
			if n := len(in.stack); n >= 2 {
				d := in.stack[n-1]
				if d == 0 {
					d = 1
				}
				in.stack = append(in.stack[:n-2], in.stack[n-2]/d)
			}
			continue
		case 1216: // callothersubr
			if err := in.callOtherSubr(); err != nil {
				return err
			}
			continue
		case 1217: // pop
			if n := len(in.psStack); n > 0 {
				in.stack = append(in.stack, in.psStack[n-1])
				in.psStack = in.psStack[:n-1]
			} else {
				in.stack = append(in.stack, 0)
			}
			continue
		case 1233: // setcurrentpoint
			in.x, in.y = in.arg(0), in.arg(1)
		case 1, 3, 1200, 1201, 1202:
			// hints
		}
		in.stack = in.stack[:0]
	}
	return nil
}

// callOtherSubr implements the flex (0, 1, 2) and hint replacement (3)
// othersubrs. Unknown ones pass their arguments through for pop.
func (in *t1Interpreter) callOtherSubr() error {
	n := len(in.stack)
	if n < 2 {
		return errors.New("callothersubr stack underflow")
	}
	num := int(in.stack[n-1])
	argc := int(in.stack[n-2])
	if argc < 0 || argc > n-2 {
		return errors.New("callothersubr stack underflow")
	}
	args := append([]float64(nil), in.stack[n-2-argc:n-2]...)
	in.stack = in.stack[:n-2-argc]

	switch num {
	case 1:
		in.flex = true
		in.flexPts = in.flexPts[:0]
	case 2:
	case 0:
		in.flex = false
		if len(in.flexPts) >= 7 {
			p := in.flexPts
			// p[0] is the reference point
			in.curveTo(p[1].X, p[1].Y, p[2].X, p[2].Y, p[3].X, p[3].Y)
			in.curveTo(p[4].X, p[4].Y, p[5].X, p[5].Y, p[6].X, p[6].Y)
		}
		// the end point is left for two pops followed by setcurrentpoint
		in.psStack = append(in.psStack[:0], in.y, in.x)
		return nil
	case 3:
		in.psStack = append(in.psStack[:0], 3)
		return nil
	}
	in.psStack = in.psStack[:0]
	for i := len(args) - 1; i >= 0; i-- {
		in.psStack = append(in.psStack, args[i])
	}
	return nil
}

// seac composes an accented glyph from two StandardEncoding glyphs.
func (in *t1Interpreter) seac() error {
	if in.seacBase || len(in.stack) < 5 {
		return errors.New("invalid seac")
	}
	asb, adx, ady := in.arg(0), in.arg(1), in.arg(2)
	bchar, achar := int(in.arg(3)), int(in.arg(4))
	if bchar < 0 || bchar > 255 || achar < 0 || achar > 255 {
		return errors.New("invalid seac character")
	}
	width, sbx := in.width, in.sbx

	for k, name := range []string{standardEncoding[bchar], standardEncoding[achar]} {
		cs, ok := in.font.CharStrings[name]
		if !ok {
			continue
		}
		sub := &t1Interpreter{font: in.font, path: &Path{}, seacBase: true}
		if err := sub.run(cs, 1); err != nil && !errors.Is(err, errEndChar) {
			return err
		}
		dx, dy := 0.0, 0.0
		if k == 1 {
			dx, dy = sbx-asb+adx, ady
			dx -= sub.sbx - asb
		}
		for _, c := range sub.path.Commands {
			pts := make([]float64, len(c.Points))
			for j := 0; j+1 < len(pts); j += 2 {
				pts[j] = c.Points[j] + dx
				pts[j+1] = c.Points[j+1] + dy
			}
			in.path.Commands = append(in.path.Commands, PathCommand{Type: c.Type, Points: pts})
		}
	}
	in.width = width
	return errEndChar
}
