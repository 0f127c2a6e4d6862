package core

import (
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver resolves indirect references during parsing. It is needed
// when a stream's /Length is itself an indirect reference.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser parses PDF objects from an io.Reader using a Lexer for
// tokenization. It keeps one token of lookahead so that "num gen R"
// indirect references can be distinguished from plain integers.
type Parser struct {
	lexer        *Lexer
	currentToken *Token
	peekToken    *Token
	resolver     ReferenceResolver
}

// NewParser creates a parser for the given reader.
func NewParser(r io.Reader) *Parser {
	p := &Parser{lexer: NewLexer(r)}
	p.nextToken()
	p.nextToken()
	return p
}

// SetReferenceResolver installs the resolver used for indirect stream
// lengths. Parsing input without indirect lengths needs no resolver.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

func (p *Parser) nextToken() error {
	p.currentToken = p.peekToken

	// After the "stream" keyword the input is binary payload, not tokens.
	// parseStream reads it through the lexer directly.
	if p.currentToken != nil &&
		p.currentToken.Type == TokenKeyword &&
		string(p.currentToken.Value) == "stream" {
		p.peekToken = nil
		return nil
	}

	token, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.peekToken = token
	return nil
}

func (p *Parser) skipComments() error {
	for p.currentToken != nil && p.currentToken.Type == TokenComment {
		if err := p.nextToken(); err != nil {
			return err
		}
	}
	return nil
}

// ParseObject parses and returns the next object from the input.
func (p *Parser) ParseObject() (Object, error) {
	if err := p.skipComments(); err != nil {
		return nil, err
	}
	if p.currentToken == nil {
		return nil, fmt.Errorf("unexpected end of input")
	}

	switch p.currentToken.Type {
	case TokenEOF:
		return nil, io.EOF

	case TokenKeyword:
		keyword := string(p.currentToken.Value)
		switch keyword {
		case "null":
			p.nextToken()
			return Null{}, nil
		case "true":
			p.nextToken()
			return Bool(true), nil
		case "false":
			p.nextToken()
			return Bool(false), nil
		default:
			return nil, fmt.Errorf("unexpected keyword %q at position %d", keyword, p.currentToken.Pos)
		}

	case TokenInteger:
		return p.parseNumber()

	case TokenReal:
		val, err := strconv.ParseFloat(string(p.currentToken.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real number: %w", err)
		}
		p.nextToken()
		return Real(val), nil

	case TokenString:
		val := string(p.currentToken.Value)
		p.nextToken()
		return String(val), nil

	case TokenHexString:
		hexStr := string(p.currentToken.Value)
		if len(hexStr)%2 != 0 {
			hexStr += "0"
		}
		result := make([]byte, len(hexStr)/2)
		for i := 0; i < len(hexStr); i += 2 {
			b, err := strconv.ParseUint(hexStr[i:i+2], 16, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid hex string: %w", err)
			}
			result[i/2] = byte(b)
		}
		p.nextToken()
		return String(result), nil

	case TokenName:
		val := string(p.currentToken.Value)
		p.nextToken()
		return Name(val), nil

	case TokenArrayStart:
		return p.parseArray()

	case TokenDictStart:
		return p.parseDict()

	default:
		return nil, fmt.Errorf("unexpected token type %v at position %d", p.currentToken.Type, p.currentToken.Pos)
	}
}

// parseNumber parses an integer, a real, or an indirect reference detected
// by the "num gen R" lookahead pattern.
func (p *Parser) parseNumber() (Object, error) {
	first := string(p.currentToken.Value)
	firstInt, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		f, err := strconv.ParseFloat(first, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", first)
		}
		p.nextToken()
		return Real(f), nil
	}

	if p.peekToken != nil && p.peekToken.Type == TokenInteger {
		secondInt, err := strconv.ParseInt(string(p.peekToken.Value), 10, 64)
		if err == nil {
			p.nextToken() // now at the second integer
			if p.peekToken != nil && p.peekToken.Type == TokenIndirectRef {
				p.nextToken() // at R
				p.nextToken() // past R
				return IndirectRef{
					Number:     int(firstInt),
					Generation: int(secondInt),
				}, nil
			}
			// Not a reference; the second integer stays current.
			return Int(firstInt), nil
		}
	}

	p.nextToken()
	return Int(firstInt), nil
}

func (p *Parser) parseArray() (Object, error) {
	p.nextToken() // past '['

	arr := Array{}
	for {
		if err := p.skipComments(); err != nil {
			return nil, err
		}
		if p.currentToken == nil {
			return nil, fmt.Errorf("unexpected end of input in array")
		}
		if p.currentToken.Type == TokenArrayEnd {
			p.nextToken()
			return arr, nil
		}
		if p.currentToken.Type == TokenEOF {
			return nil, fmt.Errorf("unexpected EOF in array")
		}

		obj, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("error parsing array element: %w", err)
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDict() (Object, error) {
	p.nextToken() // past '<<'

	dict := make(Dict)
	for {
		if err := p.skipComments(); err != nil {
			return nil, err
		}
		if p.currentToken == nil {
			return nil, fmt.Errorf("unexpected end of input in dictionary")
		}
		if p.currentToken.Type == TokenDictEnd {
			p.nextToken()
			return dict, nil
		}
		if p.currentToken.Type == TokenEOF {
			return nil, fmt.Errorf("unexpected EOF in dictionary")
		}

		if p.currentToken.Type != TokenName {
			return nil, fmt.Errorf("expected name for dictionary key, got %v", p.currentToken.Type)
		}
		key := string(p.currentToken.Value)
		p.nextToken()

		value, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("error parsing dictionary value for key %q: %w", key, err)
		}
		dict[key] = value
	}
}

// ParseIndirectObject parses a complete indirect object definition:
// "num gen obj <object> endobj", with an optional stream payload between
// the object's dictionary and endobj.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	if err := p.skipComments(); err != nil {
		return nil, err
	}

	if p.currentToken.Type != TokenInteger {
		return nil, fmt.Errorf("expected object number, got %v", p.currentToken.Type)
	}
	num, err := strconv.ParseInt(string(p.currentToken.Value), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid object number: %w", err)
	}
	p.nextToken()

	if p.currentToken.Type != TokenInteger {
		return nil, fmt.Errorf("expected generation number, got %v", p.currentToken.Type)
	}
	gen, err := strconv.ParseInt(string(p.currentToken.Value), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid generation number: %w", err)
	}
	p.nextToken()

	if p.currentToken.Type != TokenKeyword || string(p.currentToken.Value) != "obj" {
		return nil, fmt.Errorf("expected 'obj' keyword, got %v", p.currentToken)
	}
	p.nextToken()

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("error parsing indirect object value: %w", err)
	}

	if p.currentToken != nil && p.currentToken.Type == TokenKeyword && string(p.currentToken.Value) == "stream" {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("stream must follow a dictionary")
		}
		stream, err := p.parseStream(dict)
		if err != nil {
			return nil, fmt.Errorf("error parsing stream: %w", err)
		}
		obj = stream
	}

	if p.currentToken == nil || p.currentToken.Type != TokenKeyword || string(p.currentToken.Value) != "endobj" {
		return nil, fmt.Errorf("expected 'endobj' keyword, got %v", p.currentToken)
	}
	p.nextToken()

	return &IndirectObject{
		Ref:    IndirectRef{Number: int(num), Generation: int(gen)},
		Object: obj,
	}, nil
}

// parseStream reads the binary payload following the "stream" keyword,
// sized by the dictionary's /Length entry.
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	var length int
	switch v := dict.Get("Length").(type) {
	case Int:
		length = int(v)
	case IndirectRef:
		if p.resolver == nil {
			return nil, fmt.Errorf("indirect stream length requires a reference resolver")
		}
		resolved, err := p.resolver.ResolveReference(v)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve stream length reference: %w", err)
		}
		resolvedInt, ok := resolved.(Int)
		if !ok {
			return nil, fmt.Errorf("stream length resolved to %T, expected Int", resolved)
		}
		length = int(resolvedInt)
	case nil:
		return nil, fmt.Errorf("stream dictionary missing /Length entry")
	default:
		return nil, fmt.Errorf("invalid type for stream length: %T", v)
	}
	if length < 0 {
		return nil, fmt.Errorf("invalid stream length: %d", length)
	}

	if err := p.lexer.SkipStreamEOL(); err != nil {
		return nil, fmt.Errorf("failed to skip EOL after stream keyword: %w", err)
	}

	data, err := p.lexer.ReadBytes(length)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream data: %w", err)
	}

	token, err := p.lexer.NextToken()
	if err != nil {
		return nil, fmt.Errorf("failed to read token after stream data: %w", err)
	}
	if token.Type != TokenKeyword || string(token.Value) != "endstream" {
		return nil, fmt.Errorf("expected 'endstream' keyword, got %q", string(token.Value))
	}

	// Reload the two-token lookahead so parsing can continue normally.
	p.currentToken = nil
	p.peekToken = nil
	p.nextToken()
	p.nextToken()

	return &Stream{Dict: dict, Data: data}, nil
}
