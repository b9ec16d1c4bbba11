package pdf

import (
	"bytes"
	"fmt"
	"strconv"
)

// TokenType represents the type of a lexical token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNull
	TokenBoolean
	TokenInteger
	TokenReal
	TokenString
	TokenHexString
	TokenName
	TokenArrayStart
	TokenArrayEnd
	TokenDictStart
	TokenDictEnd
	TokenStreamStart
	TokenStreamEnd
	TokenObjStart
	TokenObjEnd
	TokenRef
	TokenXRef
	TokenTrailer
	TokenStartXRef
	// TokenKeyword is any other bare word: content stream operators and the
	// braces of PostScript calculator functions.
	TokenKeyword
)

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value interface{}
	Pos   int64
}

// Lexer performs lexical analysis on PDF data held in memory.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexerFromBytes creates a new lexer from byte slice
func NewLexerFromBytes(data []byte) *Lexer {
	return &Lexer{data: data}
}

// Position returns the current position
func (l *Lexer) Position() int64 {
	return int64(l.pos)
}

// SeekTo moves the lexer to an absolute offset.
func (l *Lexer) SeekTo(pos int64) {
	switch {
	case pos < 0:
		l.pos = 0
	case pos > int64(len(l.data)):
		l.pos = len(l.data)
	default:
		l.pos = int(pos)
	}
}

// Data returns the buffer the lexer reads from.
func (l *Lexer) Data() []byte {
	return l.data
}

func (l *Lexer) eof() bool {
	return l.pos >= len(l.data)
}

func (l *Lexer) peek() (byte, bool) {
	if l.pos >= len(l.data) {
		return 0, false
	}
	return l.data[l.pos], true
}

// skipWhitespace skips whitespace and comments
func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) {
			l.pos++
			continue
		}
		if b == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\r' && l.data[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		return
	}
}

// isWhitespace checks if a byte is PDF whitespace
func isWhitespace(b byte) bool {
	return b == 0 || b == '\t' || b == '\n' || b == '\f' || b == '\r' || b == ' '
}

// isDelimiter checks if a byte is a PDF delimiter
func isDelimiter(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' ||
		b == '[' || b == ']' || b == '{' || b == '}' ||
		b == '/' || b == '%'
}

// NextToken returns the next token
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	pos := int64(l.pos)
	if l.eof() {
		return Token{Type: TokenEOF, Pos: pos}, nil
	}
	b := l.data[l.pos]
	l.pos++

	switch b {
	case '[':
		return Token{Type: TokenArrayStart, Pos: pos}, nil
	case ']':
		return Token{Type: TokenArrayEnd, Pos: pos}, nil
	case '{', '}':
		return Token{Type: TokenKeyword, Value: string(b), Pos: pos}, nil
	case '(':
		return l.readLiteralString(pos)
	case '<':
		if next, ok := l.peek(); ok && next == '<' {
			l.pos++
			return Token{Type: TokenDictStart, Pos: pos}, nil
		}
		return l.readHexString(pos)
	case '>':
		if next, ok := l.peek(); ok && next == '>' {
			l.pos++
			return Token{Type: TokenDictEnd, Pos: pos}, nil
		}
		return Token{}, fmt.Errorf("unexpected '>' at position %d", pos)
	case '/':
		return l.readName(pos)
	case ')':
		return Token{}, fmt.Errorf("unexpected ')' at position %d", pos)
	case '+', '-', '.':
		l.pos--
		return l.readNumber(pos)
	default:
		l.pos--
		if b >= '0' && b <= '9' {
			return l.readNumber(pos)
		}
		return l.readKeyword(pos)
	}
}

// readLiteralString reads a literal string (...)
func (l *Lexer) readLiteralString(pos int64) (Token, error) {
	var buf bytes.Buffer
	depth := 1

	for depth > 0 {
		if l.eof() {
			return Token{}, fmt.Errorf("unterminated string at position %d", pos)
		}
		b := l.data[l.pos]
		l.pos++

		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth > 0 {
				buf.WriteByte(b)
			}
		case '\\':
			buf.Write(l.readEscapeSequence())
		case '\r':
			// An unescaped end-of-line is read as a single \n.
			if next, ok := l.peek(); ok && next == '\n' {
				l.pos++
			}
			buf.WriteByte('\n')
		default:
			buf.WriteByte(b)
		}
	}

	return Token{Type: TokenString, Value: buf.Bytes(), Pos: pos}, nil
}

// readEscapeSequence reads an escape sequence in a literal string
func (l *Lexer) readEscapeSequence() []byte {
	if l.eof() {
		return nil
	}
	b := l.data[l.pos]
	l.pos++

	switch b {
	case 'n':
		return []byte{'\n'}
	case 'r':
		return []byte{'\r'}
	case 't':
		return []byte{'\t'}
	case 'b':
		return []byte{'\b'}
	case 'f':
		return []byte{'\f'}
	case '\r':
		if next, ok := l.peek(); ok && next == '\n' {
			l.pos++
		}
		return nil
	case '\n':
		return nil
	default:
		if b >= '0' && b <= '7' {
			val := int(b - '0')
			for i := 0; i < 2; i++ {
				next, ok := l.peek()
				if !ok || next < '0' || next > '7' {
					break
				}
				l.pos++
				val = val*8 + int(next-'0')
			}
			return []byte{byte(val)}
		}
		// \( \) \\ and unknown escapes yield the character itself
		return []byte{b}
	}
}

func hexValue(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}

// readHexString reads a hexadecimal string <...>
func (l *Lexer) readHexString(pos int64) (Token, error) {
	var decoded []byte
	var hi byte
	half := false

	for {
		if l.eof() {
			return Token{}, fmt.Errorf("unterminated hex string at position %d", pos)
		}
		b := l.data[l.pos]
		l.pos++
		if b == '>' {
			break
		}
		v, ok := hexValue(b)
		if !ok {
			// whitespace and stray bytes are ignored
			continue
		}
		if half {
			decoded = append(decoded, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		decoded = append(decoded, hi<<4)
	}

	return Token{Type: TokenHexString, Value: decoded, Pos: pos}, nil
}

// readName reads a name object /...
func (l *Lexer) readName(pos int64) (Token, error) {
	var buf bytes.Buffer

	for !l.eof() {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++

		if b == '#' && l.pos+1 < len(l.data) {
			h, ok1 := hexValue(l.data[l.pos])
			lo, ok2 := hexValue(l.data[l.pos+1])
			if ok1 && ok2 {
				l.pos += 2
				buf.WriteByte(h<<4 | lo)
				continue
			}
		}
		buf.WriteByte(b)
	}

	return Token{Type: TokenName, Value: buf.String(), Pos: pos}, nil
}

// readNumber reads a number (integer or real). Malformed forms seen in the
// wild such as "--1" or "1.2.3" are read as far as they make sense.
func (l *Lexer) readNumber(pos int64) (Token, error) {
	start := l.pos
	neg := false
	for !l.eof() && (l.data[l.pos] == '+' || l.data[l.pos] == '-') {
		if l.data[l.pos] == '-' {
			neg = !neg
		}
		l.pos++
	}
	digitsStart := l.pos
	hasDecimal, hasDigit := false, false
	for !l.eof() {
		b := l.data[l.pos]
		if b == '.' && !hasDecimal {
			hasDecimal = true
		} else if b >= '0' && b <= '9' {
			hasDigit = true
		} else {
			break
		}
		l.pos++
	}
	// swallow trailing junk like a second decimal point or an embedded sign
	for !l.eof() {
		b := l.data[l.pos]
		if b == '.' || b == '-' || (b >= '0' && b <= '9') {
			l.pos++
			continue
		}
		break
	}

	str := string(l.data[digitsStart:l.pos])
	if !hasDigit {
		if l.pos == start+1 || str == "." || str == "" {
			return Token{Type: TokenInteger, Value: int64(0), Pos: pos}, nil
		}
		return Token{}, fmt.Errorf("invalid number at position %d", pos)
	}
	end := 0
	seenDot := false
	for end < len(str) && (str[end] >= '0' && str[end] <= '9' || str[end] == '.' && !seenDot) {
		if str[end] == '.' {
			seenDot = true
		}
		end++
	}
	str = str[:end]

	if hasDecimal {
		val, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return Token{}, fmt.Errorf("invalid real number at position %d", pos)
		}
		if neg {
			val = -val
		}
		return Token{Type: TokenReal, Value: val, Pos: pos}, nil
	}

	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(str, 64)
		if ferr != nil {
			return Token{}, fmt.Errorf("invalid integer at position %d", pos)
		}
		if neg {
			f = -f
		}
		return Token{Type: TokenReal, Value: f, Pos: pos}, nil
	}
	if neg {
		val = -val
	}
	return Token{Type: TokenInteger, Value: val, Pos: pos}, nil
}

// readKeyword reads a keyword (true, false, null, obj, endobj, operators...)
func (l *Lexer) readKeyword(pos int64) (Token, error) {
	start := l.pos
	for !l.eof() {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++
	}
	if l.pos == start {
		// a lone delimiter we have no token for
		l.pos++
		return Token{}, fmt.Errorf("unexpected character '%c' at position %d", l.data[start], pos)
	}

	keyword := string(l.data[start:l.pos])
	switch keyword {
	case "true":
		return Token{Type: TokenBoolean, Value: true, Pos: pos}, nil
	case "false":
		return Token{Type: TokenBoolean, Value: false, Pos: pos}, nil
	case "null":
		return Token{Type: TokenNull, Pos: pos}, nil
	case "obj":
		return Token{Type: TokenObjStart, Pos: pos}, nil
	case "endobj":
		return Token{Type: TokenObjEnd, Pos: pos}, nil
	case "stream":
		return Token{Type: TokenStreamStart, Pos: pos}, nil
	case "endstream":
		return Token{Type: TokenStreamEnd, Pos: pos}, nil
	case "R":
		return Token{Type: TokenRef, Pos: pos}, nil
	case "xref":
		return Token{Type: TokenXRef, Pos: pos}, nil
	case "trailer":
		return Token{Type: TokenTrailer, Pos: pos}, nil
	case "startxref":
		return Token{Type: TokenStartXRef, Pos: pos}, nil
	default:
		return Token{Type: TokenKeyword, Value: keyword, Pos: pos}, nil
	}
}

// ReadLine reads until end of line
func (l *Lexer) ReadLine() ([]byte, error) {
	start := l.pos
	for !l.eof() {
		b := l.data[l.pos]
		if b == '\r' || b == '\n' {
			line := l.data[start:l.pos]
			l.pos++
			if b == '\r' && !l.eof() && l.data[l.pos] == '\n' {
				l.pos++
			}
			return line, nil
		}
		l.pos++
	}
	return l.data[start:l.pos], nil
}

// ReadBytes reads n bytes
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative length %d", n)
	}
	end := l.pos + n
	if end > len(l.data) {
		out := l.data[l.pos:]
		l.pos = len(l.data)
		return out, fmt.Errorf("unexpected end of data")
	}
	out := l.data[l.pos:end]
	l.pos = end
	return out, nil
}

// SkipBytes skips n bytes
func (l *Lexer) SkipBytes(n int64) error {
	if int64(l.pos)+n > int64(len(l.data)) {
		l.pos = len(l.data)
		return fmt.Errorf("unexpected end of data")
	}
	l.pos += int(n)
	return nil
}
