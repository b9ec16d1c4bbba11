package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Operation represents a content stream operation
type Operation struct {
	Operator string
	Operands []Object
}

// String formats the operation as content stream syntax.
func (op Operation) String() string {
	var buf bytes.Buffer
	op.writeTo(&buf)
	return buf.String()
}

func (op Operation) writeTo(buf *bytes.Buffer) {
	if op.Operator == "BI" && len(op.Operands) == 1 {
		if s, ok := op.Operands[0].(Stream); ok {
			buf.WriteString("BI")
			for k, v := range s.Dictionary {
				buf.WriteByte(' ')
				buf.WriteString(k.String())
				buf.WriteByte(' ')
				buf.WriteString(formatOperand(v))
			}
			buf.WriteString(" ID\n")
			buf.Write(s.Data)
			buf.WriteString("\nEI")
			return
		}
	}
	for _, o := range op.Operands {
		buf.WriteString(formatOperand(o))
		buf.WriteByte(' ')
	}
	buf.WriteString(op.Operator)
}

func formatOperand(o Object) string {
	switch v := o.(type) {
	case Real:
		s := strconv.FormatFloat(float64(v), 'f', 6, 64)
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
		if s == "" || s == "-" || s == "-0" {
			return "0"
		}
		return s
	case Array:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = formatOperand(e)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case Dictionary:
		var sb strings.Builder
		sb.WriteString("<<")
		for k, e := range v {
			sb.WriteString(k.String())
			sb.WriteByte(' ')
			sb.WriteString(formatOperand(e))
		}
		sb.WriteString(">>")
		return sb.String()
	default:
		return objectString(o)
	}
}

// FormatOperations serializes operations back into content stream bytes.
func FormatOperations(ops []Operation) []byte {
	var buf bytes.Buffer
	for _, op := range ops {
		op.writeTo(&buf)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// NewOperation builds an operation with numeric operands.
func NewOperation(operator string, values ...float64) Operation {
	operands := make([]Object, len(values))
	for i, v := range values {
		if v == float64(int64(v)) {
			operands[i] = Integer(int64(v))
		} else {
			operands[i] = Real(v)
		}
	}
	return Operation{Operator: operator, Operands: operands}
}

// inlineKeyAbbreviations expands the abbreviated keys of inline images.
var inlineKeyAbbreviations = map[Name]Name{
	"BPC": "BitsPerComponent",
	"CS":  "ColorSpace",
	"D":   "Decode",
	"DP":  "DecodeParms",
	"F":   "Filter",
	"H":   "Height",
	"IM":  "ImageMask",
	"I":   "Interpolate",
	"W":   "Width",
	"L":   "Length",
}

// inlineNameAbbreviations expands abbreviated colour space names.
var inlineNameAbbreviations = map[Name]Name{
	"G":    "DeviceGray",
	"RGB":  "DeviceRGB",
	"CMYK": "DeviceCMYK",
	"I":    "Indexed",
}

// ParseContent parses a content stream into operations. Malformed tokens are
// skipped so that as much of the stream as possible is recovered; the
// returned error reports the first problem seen.
func ParseContent(data []byte) ([]Operation, error) {
	p := NewParserFromBytes(data)
	var ops []Operation
	var operands []Object
	var firstErr error

	for {
		tok, err := p.nextToken()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if tok.Type == TokenEOF {
			break
		}

		if tok.Type == TokenKeyword {
			op := tok.Value.(string)
			if op == "BI" {
				img, err := p.parseInlineImage()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					operands = nil
					continue
				}
				ops = append(ops, Operation{Operator: "BI", Operands: []Object{img}})
				operands = nil
				continue
			}
			ops = append(ops, Operation{Operator: op, Operands: operands})
			operands = nil
			continue
		}

		switch tok.Type {
		case TokenArrayEnd, TokenDictEnd, TokenObjStart, TokenObjEnd,
			TokenStreamStart, TokenStreamEnd, TokenRef, TokenXRef,
			TokenTrailer, TokenStartXRef:
			continue
		}

		obj, err := p.objectFromToken(tok)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if _, isRef := obj.(Reference); isRef {
			continue
		}
		operands = append(operands, obj)
	}

	return ops, firstErr
}

// parseInlineImage reads the dictionary entries after BI, the ID keyword and
// the raw image data up to EI.
func (p *Parser) parseInlineImage() (Stream, error) {
	dict := make(Dictionary)
	for {
		tok, err := p.nextToken()
		if err != nil {
			return Stream{}, err
		}
		if tok.Type == TokenEOF {
			return Stream{}, fmt.Errorf("inline image without data")
		}
		if tok.Type == TokenKeyword && tok.Value.(string) == "ID" {
			break
		}
		if tok.Type != TokenName {
			continue
		}
		key := Name(tok.Value.(string))
		value, err := p.ParseObject()
		if err != nil {
			return Stream{}, err
		}
		if full, ok := inlineKeyAbbreviations[key]; ok {
			key = full
		}
		dict[key] = expandInlineValue(key, value)
	}

	// The lexer is right after "ID"; a single whitespace byte separates the data.
	p.tokens = p.tokens[:0]
	p.pos = 0
	data := p.lexer.Data()
	start := int(p.lexer.Position())
	if start < len(data) && isWhitespace(data[start]) {
		start++
	}

	end := -1
	if n, ok := dict.GetInt("Length"); ok && n >= 0 && start+int(n) <= len(data) {
		end = start + int(n)
	} else if n := inlineImageSize(dict); n > 0 && start+n <= len(data) && isInlineEnd(data, start+n) {
		end = start + n
	}
	if end < 0 {
		end = findInlineEnd(data, start)
	}

	img := Stream{Dictionary: dict, Data: data[start:end]}

	p.lexer.SeekTo(int64(end))
	for {
		save := p.lexer.Position()
		tok, err := p.lexer.NextToken()
		if err != nil || tok.Type == TokenEOF {
			break
		}
		if tok.Type == TokenKeyword && tok.Value.(string) == "EI" {
			break
		}
		if tok.Type != TokenKeyword {
			continue
		}
		p.lexer.SeekTo(save)
		break
	}
	return img, nil
}

func expandInlineValue(key Name, value Object) Object {
	switch key {
	case "ColorSpace":
		if n, ok := value.(Name); ok {
			if full, ok := inlineNameAbbreviations[n]; ok {
				return full
			}
		}
		if a, ok := value.(Array); ok && len(a) > 0 {
			out := make(Array, len(a))
			copy(out, a)
			for i, e := range out {
				if n, ok := e.(Name); ok {
					if full, ok := inlineNameAbbreviations[n]; ok {
						out[i] = full
					}
				}
			}
			return out
		}
	case "Filter":
		if n, ok := value.(Name); ok {
			if full, ok := filterAbbreviations[n]; ok {
				return full
			}
		}
		if a, ok := value.(Array); ok {
			out := make(Array, len(a))
			for i, e := range a {
				out[i] = e
				if n, ok := e.(Name); ok {
					if full, ok := filterAbbreviations[n]; ok {
						out[i] = full
					}
				}
			}
			return out
		}
	}
	return value
}

// inlineImageSize returns the byte size of unfiltered inline image data, or 0
// when it cannot be known up front.
func inlineImageSize(dict Dictionary) int {
	if dict.Get("Filter") != nil {
		return 0
	}
	w, ok1 := dict.GetInt("Width")
	h, ok2 := dict.GetInt("Height")
	if !ok1 || !ok2 || w <= 0 || h <= 0 {
		return 0
	}
	bpc := int64(1)
	comps := int64(1)
	if mask, _ := dict.GetBool("ImageMask"); !mask {
		if v, ok := dict.GetInt("BitsPerComponent"); ok {
			bpc = v
		} else {
			bpc = 8
		}
		switch cs := dict.Get("ColorSpace").(type) {
		case Name:
			switch cs {
			case "DeviceRGB", "CalRGB":
				comps = 3
			case "DeviceCMYK":
				comps = 4
			case "DeviceGray", "CalGray", "Indexed":
				comps = 1
			default:
				return 0
			}
		case Array:
			if len(cs) > 0 {
				if n, ok := cs[0].(Name); !ok || n != "Indexed" {
					return 0
				}
			}
		default:
			return 0
		}
	}
	return int(((w*bpc*comps + 7) / 8) * h)
}

func isInlineEnd(data []byte, pos int) bool {
	for pos < len(data) && isWhitespace(data[pos]) {
		pos++
	}
	return bytes.HasPrefix(data[pos:], []byte("EI")) &&
		(pos+2 == len(data) || isWhitespace(data[pos+2]) || isDelimiter(data[pos+2]))
}

// findInlineEnd locates whitespace + "EI" + whitespace/EOF after start.
func findInlineEnd(data []byte, start int) int {
	for i := start; i+2 <= len(data); i++ {
		if data[i] != 'E' || i+1 >= len(data) || data[i+1] != 'I' {
			continue
		}
		if i > start && !isWhitespace(data[i-1]) {
			continue
		}
		if i+2 < len(data) && !isWhitespace(data[i+2]) {
			continue
		}
		end := i
		if end > start && isWhitespace(data[end-1]) {
			end--
		}
		return end
	}
	return len(data)
}
