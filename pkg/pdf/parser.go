package pdf

import (
	"bytes"
	"fmt"
	"io"
)

// Parser parses PDF objects from tokens
type Parser struct {
	lexer  *Lexer
	tokens []Token
	pos    int

	// lengthOf resolves an indirect /Length value while reading a stream.
	lengthOf func(Reference) (int64, bool)
}

// NewParser creates a new parser for the given lexer
func NewParser(lexer *Lexer) *Parser {
	return &Parser{lexer: lexer}
}

// NewParserFromBytes creates a new parser from byte slice
func NewParserFromBytes(data []byte) *Parser {
	return NewParser(NewLexerFromBytes(data))
}

// SeekTo discards any lookahead and moves to an absolute offset.
func (p *Parser) SeekTo(pos int64) {
	p.tokens = p.tokens[:0]
	p.pos = 0
	p.lexer.SeekTo(pos)
}

// nextToken gets the next token, buffering for lookahead
func (p *Parser) nextToken() (Token, error) {
	if p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		p.pos++
		return tok, nil
	}

	tok, err := p.lexer.NextToken()
	if err != nil {
		return Token{}, err
	}

	p.tokens = append(p.tokens, tok)
	p.pos++
	return tok, nil
}

// peekToken peeks at the next token without consuming it
func (p *Parser) peekToken() (Token, error) {
	tok, err := p.nextToken()
	if err != nil {
		return Token{}, err
	}
	p.pos--
	return tok, nil
}

// peekTokenN peeks at the nth token ahead (0-indexed)
func (p *Parser) peekTokenN(n int) (Token, error) {
	for i := len(p.tokens); i <= p.pos+n; i++ {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return Token{}, err
		}
		p.tokens = append(p.tokens, tok)
	}
	return p.tokens[p.pos+n], nil
}

// ParseObject parses a single PDF object
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.nextToken()
	if err != nil {
		return nil, err
	}
	return p.objectFromToken(tok)
}

func (p *Parser) objectFromToken(tok Token) (Object, error) {
	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF

	case TokenNull:
		return Null{}, nil

	case TokenBoolean:
		return Boolean(tok.Value.(bool)), nil

	case TokenInteger:
		// num gen R
		next1, err := p.peekToken()
		if err == nil && next1.Type == TokenInteger {
			next2, err := p.peekTokenN(1)
			if err == nil && next2.Type == TokenRef {
				p.nextToken()
				p.nextToken()
				return Reference{
					ObjectNumber:     int(tok.Value.(int64)),
					GenerationNumber: int(next1.Value.(int64)),
				}, nil
			}
		}
		return Integer(tok.Value.(int64)), nil

	case TokenReal:
		return Real(tok.Value.(float64)), nil

	case TokenString:
		return String{Value: tok.Value.([]byte)}, nil

	case TokenHexString:
		return String{Value: tok.Value.([]byte), IsHex: true}, nil

	case TokenName:
		return Name(tok.Value.(string)), nil

	case TokenArrayStart:
		return p.parseArray()

	case TokenDictStart:
		return p.parseDictionary()

	case TokenKeyword:
		return Operator(tok.Value.(string)), nil

	default:
		return nil, fmt.Errorf("unexpected token type %d at position %d", tok.Type, tok.Pos)
	}
}

// parseArray parses a PDF array [...]
func (p *Parser) parseArray() (Array, error) {
	arr := Array{}

	for {
		tok, err := p.peekToken()
		if err != nil {
			return nil, err
		}

		switch tok.Type {
		case TokenArrayEnd:
			p.nextToken()
			return arr, nil
		case TokenEOF:
			return nil, fmt.Errorf("unterminated array at position %d", tok.Pos)
		case TokenObjEnd, TokenStreamStart, TokenDictEnd:
			// a missing ']' in a broken file; stop before the outer structure
			return arr, nil
		}

		obj, err := p.ParseObject()
		if err != nil {
			return nil, err
		}

		arr = append(arr, obj)
	}
}

// parseDictionary parses a PDF dictionary <<...>>
func (p *Parser) parseDictionary() (Dictionary, error) {
	dict := make(Dictionary)

	for {
		tok, err := p.peekToken()
		if err != nil {
			return nil, err
		}

		switch tok.Type {
		case TokenDictEnd:
			p.nextToken()
			return dict, nil
		case TokenEOF:
			return nil, fmt.Errorf("unterminated dictionary at position %d", tok.Pos)
		case TokenObjEnd, TokenStreamStart:
			return dict, nil
		}

		keyTok, err := p.nextToken()
		if err != nil {
			return nil, err
		}
		if keyTok.Type != TokenName {
			// skip junk keys
			continue
		}
		key := Name(keyTok.Value.(string))

		next, err := p.peekToken()
		if err != nil {
			return nil, err
		}
		if next.Type == TokenDictEnd {
			dict[key] = Null{}
			continue
		}

		value, err := p.ParseObject()
		if err != nil {
			return nil, err
		}

		if _, isNull := value.(Null); !isNull {
			dict[key] = value
		}
	}
}

// ParseIndirectObject parses an indirect object definition (num gen obj ... endobj)
func (p *Parser) ParseIndirectObject() (int, int, Object, error) {
	numTok, err := p.nextToken()
	if err != nil {
		return 0, 0, nil, err
	}
	if numTok.Type != TokenInteger {
		return 0, 0, nil, fmt.Errorf("expected object number at position %d", numTok.Pos)
	}
	objNum := int(numTok.Value.(int64))

	genTok, err := p.nextToken()
	if err != nil {
		return 0, 0, nil, err
	}
	if genTok.Type != TokenInteger {
		return 0, 0, nil, fmt.Errorf("expected generation number at position %d", genTok.Pos)
	}
	genNum := int(genTok.Value.(int64))

	objTok, err := p.nextToken()
	if err != nil {
		return 0, 0, nil, err
	}
	if objTok.Type != TokenObjStart {
		return 0, 0, nil, fmt.Errorf("expected 'obj' keyword at position %d", objTok.Pos)
	}

	next, err := p.peekToken()
	if err != nil {
		return 0, 0, nil, err
	}
	if next.Type == TokenObjEnd {
		p.nextToken()
		return objNum, genNum, Null{}, nil
	}

	obj, err := p.ParseObject()
	if err != nil {
		return 0, 0, nil, err
	}

	nextTok, err := p.peekToken()
	if err == nil && nextTok.Type == TokenStreamStart {
		dict, ok := obj.(Dictionary)
		if !ok {
			return 0, 0, nil, fmt.Errorf("stream must have dictionary at position %d", nextTok.Pos)
		}
		p.nextToken()

		streamData, err := p.readStreamData(dict)
		if err != nil {
			return 0, 0, nil, err
		}
		obj = Stream{Dictionary: dict, Data: streamData}
	}

	// endobj is optional in damaged files
	return objNum, genNum, obj, nil
}

// readStreamData reads the raw stream data following the 'stream' keyword.
// The lexer sits right after the keyword; lookahead is discarded.
func (p *Parser) readStreamData(dict Dictionary) ([]byte, error) {
	start := int(p.lexer.Position())
	if p.pos < len(p.tokens) {
		// cannot happen with one-token lookahead, but be safe
		start = int(p.tokens[p.pos].Pos)
	}
	p.tokens = p.tokens[:0]
	p.pos = 0

	data := p.lexer.Data()
	if start < len(data) && data[start] == '\r' {
		start++
	}
	if start < len(data) && data[start] == '\n' {
		start++
	}

	length := int64(-1)
	switch l := dict.Get("Length").(type) {
	case Integer:
		length = int64(l)
	case Real:
		length = int64(l)
	case Reference:
		if p.lengthOf != nil {
			if v, ok := p.lengthOf(l); ok {
				length = v
			}
		}
	}

	if length >= 0 && int64(start)+length <= int64(len(data)) {
		end := start + int(length)
		if hasEndstream(data[end:]) {
			p.lexer.SeekTo(int64(end))
			p.skipEndstream()
			return data[start:end], nil
		}
	}

	// /Length is missing or wrong: scan for the keyword.
	idx := bytes.Index(data[start:], []byte("endstream"))
	if idx < 0 {
		p.lexer.SeekTo(int64(len(data)))
		return data[start:], nil
	}
	end := start + idx
	p.lexer.SeekTo(int64(end))
	p.skipEndstream()
	// the EOL before endstream is not part of the data
	if end > start && data[end-1] == '\n' {
		end--
	}
	if end > start && data[end-1] == '\r' {
		end--
	}
	return data[start:end], nil
}

func hasEndstream(rest []byte) bool {
	i := 0
	for i < len(rest) && isWhitespace(rest[i]) {
		i++
	}
	return bytes.HasPrefix(rest[i:], []byte("endstream"))
}

func (p *Parser) skipEndstream() {
	tok, err := p.lexer.NextToken()
	if err != nil || tok.Type != TokenStreamEnd {
		return
	}
	save := p.lexer.Position()
	tok, err = p.lexer.NextToken()
	if err != nil || tok.Type != TokenObjEnd {
		p.lexer.SeekTo(save)
	}
}
