package core

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// TokenType classifies a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenComment
	TokenKeyword     // true, false, null, obj, endobj, stream, endstream, ...
	TokenInteger     // 123
	TokenReal        // 3.14
	TokenString      // (hello)
	TokenHexString   // <48656C6C6F>
	TokenName        // /Type
	TokenArrayStart  // [
	TokenArrayEnd    // ]
	TokenDictStart   // <<
	TokenDictEnd     // >>
	TokenIndirectRef // R
)

// Token is a single lexical token. Value holds the token's payload with
// delimiters and escapes already processed (string bytes, hex digits, name
// without the slash).
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64
}

// Lexer tokenizes PDF syntax from an io.Reader.
type Lexer struct {
	r   *bufio.Reader
	pos int64
}

// NewLexer creates a lexer reading from r.
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{r: bufio.NewReader(r)}
}

// NextToken returns the next token from the input. At end of input it
// returns a token of type TokenEOF rather than an error.
func (l *Lexer) NextToken() (*Token, error) {
	if err := l.skipWhitespace(); err != nil {
		if err == io.EOF {
			return &Token{Type: TokenEOF, Pos: l.pos}, nil
		}
		return nil, err
	}

	b, err := l.readByte()
	if err != nil {
		if err == io.EOF {
			return &Token{Type: TokenEOF, Pos: l.pos}, nil
		}
		return nil, err
	}

	start := l.pos - 1
	switch {
	case b == '%':
		return l.readComment(start)
	case b == '[':
		return &Token{Type: TokenArrayStart, Value: []byte{'['}, Pos: start}, nil
	case b == ']':
		return &Token{Type: TokenArrayEnd, Value: []byte{']'}, Pos: start}, nil
	case b == '(':
		return l.readString(start)
	case b == '<':
		next, err := l.peek()
		if err == nil && next == '<' {
			l.readByte()
			return &Token{Type: TokenDictStart, Value: []byte("<<"), Pos: start}, nil
		}
		return l.readHexString(start)
	case b == '>':
		next, err := l.peek()
		if err == nil && next == '>' {
			l.readByte()
			return &Token{Type: TokenDictEnd, Value: []byte(">>"), Pos: start}, nil
		}
		return nil, fmt.Errorf("unexpected '>' at position %d", start)
	case b == '/':
		return l.readName(start)
	case b == '+' || b == '-' || b == '.' || isDigit(b):
		return l.readNumber(b, start)
	case isRegular(b):
		return l.readKeyword(b, start)
	default:
		return nil, fmt.Errorf("unexpected byte 0x%02x at position %d", b, start)
	}
}

func (l *Lexer) readByte() (byte, error) {
	b, err := l.r.ReadByte()
	if err == nil {
		l.pos++
	}
	return b, err
}

func (l *Lexer) unreadByte() {
	if l.r.UnreadByte() == nil {
		l.pos--
	}
}

func (l *Lexer) peek() (byte, error) {
	buf, err := l.r.Peek(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (l *Lexer) skipWhitespace() error {
	for {
		b, err := l.readByte()
		if err != nil {
			return err
		}
		if !isWhitespace(b) {
			l.unreadByte()
			return nil
		}
	}
}

// readComment consumes to end of line. The '%' has been read.
func (l *Lexer) readComment(start int64) (*Token, error) {
	var buf bytes.Buffer
	for {
		b, err := l.readByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if b == '\r' || b == '\n' {
			l.unreadByte()
			break
		}
		buf.WriteByte(b)
	}
	return &Token{Type: TokenComment, Value: buf.Bytes(), Pos: start}, nil
}

// readString consumes a literal string. The opening '(' has been read.
// Balanced parentheses nest; backslash introduces escapes including octal
// codes and line continuations.
func (l *Lexer) readString(start int64) (*Token, error) {
	var buf bytes.Buffer
	depth := 1
	for {
		b, err := l.readByte()
		if err != nil {
			return nil, fmt.Errorf("unterminated string at position %d", start)
		}
		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth == 0 {
				return &Token{Type: TokenString, Value: buf.Bytes(), Pos: start}, nil
			}
			buf.WriteByte(b)
		case '\\':
			esc, err := l.readByte()
			if err != nil {
				return nil, fmt.Errorf("unterminated escape in string at position %d", start)
			}
			switch esc {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '(', ')', '\\':
				buf.WriteByte(esc)
			case '\r':
				// Line continuation; swallow an optional LF too.
				if next, err := l.peek(); err == nil && next == '\n' {
					l.readByte()
				}
			case '\n':
				// Line continuation.
			default:
				if isOctalDigit(esc) {
					val := esc - '0'
					for i := 0; i < 2; i++ {
						next, err := l.peek()
						if err != nil || !isOctalDigit(next) {
							break
						}
						l.readByte()
						val = val<<3 | (next - '0')
					}
					buf.WriteByte(val)
				} else {
					// Unknown escape: the backslash is dropped.
					buf.WriteByte(esc)
				}
			}
		default:
			buf.WriteByte(b)
		}
	}
}

// readHexString consumes a hex string. The opening '<' has been read.
func (l *Lexer) readHexString(start int64) (*Token, error) {
	var buf bytes.Buffer
	for {
		b, err := l.readByte()
		if err != nil {
			return nil, fmt.Errorf("unterminated hex string at position %d", start)
		}
		if b == '>' {
			return &Token{Type: TokenHexString, Value: buf.Bytes(), Pos: start}, nil
		}
		if isWhitespace(b) {
			continue
		}
		if !isHexDigit(b) {
			return nil, fmt.Errorf("invalid hex digit 0x%02x at position %d", b, l.pos-1)
		}
		buf.WriteByte(b)
	}
}

// readName consumes a name. The '/' has been read. #xx sequences decode to
// the named byte.
func (l *Lexer) readName(start int64) (*Token, error) {
	var buf bytes.Buffer
	for {
		b, err := l.readByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isWhitespace(b) || isDelimiter(b) {
			l.unreadByte()
			break
		}
		if b == '#' {
			hi, err1 := l.readByte()
			lo, err2 := l.readByte()
			if err1 != nil || err2 != nil || !isHexDigit(hi) || !isHexDigit(lo) {
				return nil, fmt.Errorf("invalid #-escape in name at position %d", start)
			}
			buf.WriteByte(hexValue(hi)<<4 | hexValue(lo))
			continue
		}
		buf.WriteByte(b)
	}
	return &Token{Type: TokenName, Value: buf.Bytes(), Pos: start}, nil
}

// readNumber consumes an integer or real. The first byte has been read.
func (l *Lexer) readNumber(first byte, start int64) (*Token, error) {
	var buf bytes.Buffer
	buf.WriteByte(first)
	isReal := first == '.'
	for {
		b, err := l.readByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if b == '.' {
			isReal = true
			buf.WriteByte(b)
			continue
		}
		if !isDigit(b) {
			l.unreadByte()
			break
		}
		buf.WriteByte(b)
	}
	typ := TokenInteger
	if isReal {
		typ = TokenReal
	}
	return &Token{Type: typ, Value: buf.Bytes(), Pos: start}, nil
}

// readKeyword consumes a run of regular characters. A bare "R" becomes
// TokenIndirectRef; everything else is a keyword.
func (l *Lexer) readKeyword(first byte, start int64) (*Token, error) {
	var buf bytes.Buffer
	buf.WriteByte(first)
	for {
		b, err := l.readByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isWhitespace(b) || isDelimiter(b) {
			l.unreadByte()
			break
		}
		buf.WriteByte(b)
	}
	if buf.Len() == 1 && buf.Bytes()[0] == 'R' {
		return &Token{Type: TokenIndirectRef, Value: buf.Bytes(), Pos: start}, nil
	}
	return &Token{Type: TokenKeyword, Value: buf.Bytes(), Pos: start}, nil
}

// SkipStreamEOL consumes the end-of-line sequence that follows the "stream"
// keyword: either a single LF or a CR LF pair.
func (l *Lexer) SkipStreamEOL() error {
	b, err := l.readByte()
	if err != nil {
		return err
	}
	if b == '\n' {
		return nil
	}
	if b == '\r' {
		next, err := l.peek()
		if err == nil && next == '\n' {
			l.readByte()
		}
		return nil
	}
	// No EOL present; tolerate and put the byte back.
	l.unreadByte()
	return nil
}

// ReadBytes reads exactly n bytes of raw data, bypassing tokenization.
// Used for stream payloads.
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(l.r, buf)
	l.pos += int64(read)
	if err != nil {
		return nil, fmt.Errorf("short read of stream data: %w", err)
	}
	return buf, nil
}

func isWhitespace(b byte) bool {
	switch b {
	case 0x00, 0x09, 0x0A, 0x0C, 0x0D, 0x20:
		return true
	}
	return false
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(b byte) bool {
	return !isWhitespace(b) && !isDelimiter(b)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isOctalDigit(b byte) bool { return b >= '0' && b <= '7' }

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	default:
		return b - 'A' + 10
	}
}
