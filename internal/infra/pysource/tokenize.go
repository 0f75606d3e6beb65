// Package pysource reads the structure of Python source text without
// executing it: module and definition docstrings, and method calls with
// literal arguments.
package pysource

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"pysnip/internal/domain"
)

type TokenKind int

const (
	Name TokenKind = iota + 1
	Number
	String
	Op
	Newline
	EOF
)

func (k TokenKind) String() string {
	switch k {
	case Name:
		return "NAME"
	case Number:
		return "NUMBER"
	case String:
		return "STRING"
	case Op:
		return "OP"
	case Newline:
		return "NEWLINE"
	case EOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token is one lexical element. Depth is the bracket nesting level the token
// sits at; a closing bracket carries the same depth as its opener.
type Token struct {
	Kind   TokenKind
	Text   string
	Line   int
	Offset int
	Depth  int
}

func (t Token) is(kind TokenKind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// SyntaxError reports source the reader cannot tokenize.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return domain.ErrParseFailure
}

var operators = []string{
	"**=", "//=", ">>=", "<<=", "...",
	"->", ":=", "==", "!=", "<=", ">=", "**", "//", "<<", ">>",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
}

var closers = map[byte]byte{')': '(', ']': '[', '}': '{'}

type tokenizer struct {
	src       string
	pos       int
	line      int
	depth     int
	open      []Token
	tokens    []Token
	lineDirty bool
}

// Tokenize splits src into tokens. Blank lines, comments and newlines inside
// brackets produce no tokens; each logical line ends with a Newline token.
func Tokenize(src string) ([]Token, error) {
	t := &tokenizer{src: src, line: 1}
	if err := t.run(); err != nil {
		return nil, err
	}
	return t.tokens, nil
}

func (t *tokenizer) run() error {
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		switch {
		case c == '\n':
			t.endLine()
		case c == ' ' || c == '\t' || c == '\f' || c == '\r':
			t.pos++
		case c == '#':
			for t.pos < len(t.src) && t.src[t.pos] != '\n' {
				t.pos++
			}
		case c == '\\':
			if err := t.continuation(); err != nil {
				return err
			}
		case c == '"' || c == '\'':
			if err := t.readString(t.pos); err != nil {
				return err
			}
		case isDigit(c) || (c == '.' && t.pos+1 < len(t.src) && isDigit(t.src[t.pos+1])):
			t.readNumber()
		default:
			r, size := utf8.DecodeRuneInString(t.src[t.pos:])
			if isNameStart(r) {
				if err := t.readName(); err != nil {
					return err
				}
				continue
			}
			if err := t.readOp(size); err != nil {
				return err
			}
		}
	}
	if len(t.open) > 0 {
		last := t.open[len(t.open)-1]
		return &SyntaxError{Line: last.Line, Msg: fmt.Sprintf("'%s' was never closed", last.Text)}
	}
	if t.lineDirty {
		t.emit(Newline, "", t.pos, t.line)
	}
	t.tokens = append(t.tokens, Token{Kind: EOF, Line: t.line, Offset: len(t.src)})
	return nil
}

func (t *tokenizer) emit(kind TokenKind, text string, offset, line int) {
	t.tokens = append(t.tokens, Token{Kind: kind, Text: text, Line: line, Offset: offset, Depth: t.depth})
	t.lineDirty = kind != Newline
}

func (t *tokenizer) endLine() {
	if t.depth == 0 && t.lineDirty {
		t.emit(Newline, "", t.pos, t.line)
	}
	t.pos++
	t.line++
}

func (t *tokenizer) continuation() error {
	rest := t.src[t.pos+1:]
	switch {
	case strings.HasPrefix(rest, "\n"):
		t.pos += 2
	case strings.HasPrefix(rest, "\r\n"):
		t.pos += 3
	default:
		return &SyntaxError{Line: t.line, Msg: "unexpected character after line continuation character"}
	}
	t.line++
	return nil
}

func (t *tokenizer) readString(start int) error {
	startLine := t.line
	quote := t.src[t.pos]
	triple := strings.Repeat(string(quote), 3)
	if strings.HasPrefix(t.src[t.pos:], triple) {
		t.pos += 3
		for {
			if t.pos >= len(t.src) {
				return &SyntaxError{Line: startLine, Msg: "unterminated triple-quoted string literal"}
			}
			switch c := t.src[t.pos]; {
			case c == '\\':
				if t.pos+1 < len(t.src) && t.src[t.pos+1] == '\n' {
					t.line++
				}
				t.pos += 2
			case c == '\n':
				t.line++
				t.pos++
			case strings.HasPrefix(t.src[t.pos:], triple):
				t.pos += 3
				t.emit(String, t.src[start:t.pos], start, startLine)
				return nil
			default:
				t.pos++
			}
		}
	}
	t.pos++
	for {
		if t.pos >= len(t.src) || t.src[t.pos] == '\n' {
			return &SyntaxError{Line: startLine, Msg: "unterminated string literal"}
		}
		switch c := t.src[t.pos]; c {
		case '\\':
			if t.pos+1 < len(t.src) && t.src[t.pos+1] == '\n' {
				t.line++
			}
			t.pos += 2
		case quote:
			t.pos++
			t.emit(String, t.src[start:t.pos], start, startLine)
			return nil
		default:
			t.pos++
		}
	}
}

func (t *tokenizer) readNumber() {
	start := t.pos
	hex := strings.HasPrefix(strings.ToLower(t.src[t.pos:]), "0x")
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		switch {
		case isDigit(c) || isASCIILetter(c) || c == '_' || c == '.':
			t.pos++
		case (c == '+' || c == '-') && !hex && (t.src[t.pos-1] == 'e' || t.src[t.pos-1] == 'E'):
			t.pos++
		default:
			t.emit(Number, t.src[start:t.pos], start, t.line)
			return
		}
	}
	t.emit(Number, t.src[start:t.pos], start, t.line)
}

func (t *tokenizer) readName() error {
	start := t.pos
	for t.pos < len(t.src) {
		r, size := utf8.DecodeRuneInString(t.src[t.pos:])
		if !isNameChar(r) {
			break
		}
		t.pos += size
	}
	name := t.src[start:t.pos]
	if t.pos < len(t.src) && (t.src[t.pos] == '"' || t.src[t.pos] == '\'') && isStringPrefix(name) {
		return t.readString(start)
	}
	t.emit(Name, name, start, t.line)
	return nil
}

func (t *tokenizer) readOp(size int) error {
	start := t.pos
	for _, op := range operators {
		if strings.HasPrefix(t.src[t.pos:], op) {
			t.pos += len(op)
			t.emit(Op, op, start, t.line)
			return nil
		}
	}
	c := t.src[t.pos]
	t.pos += size
	text := t.src[start:t.pos]
	switch c {
	case '(', '[', '{':
		t.emit(Op, text, start, t.line)
		t.open = append(t.open, t.tokens[len(t.tokens)-1])
		t.depth++
	case ')', ']', '}':
		if len(t.open) == 0 {
			return &SyntaxError{Line: t.line, Msg: fmt.Sprintf("unmatched '%s'", text)}
		}
		opener := t.open[len(t.open)-1]
		if opener.Text[0] != closers[c] {
			return &SyntaxError{Line: t.line, Msg: fmt.Sprintf("closing parenthesis '%s' does not match opening parenthesis '%s'", text, opener.Text)}
		}
		t.open = t.open[:len(t.open)-1]
		t.depth--
		t.emit(Op, text, start, t.line)
	default:
		t.emit(Op, text, start, t.line)
	}
	return nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isStringPrefix(name string) bool {
	switch strings.ToLower(name) {
	case "r", "u", "b", "f", "t", "br", "rb", "fr", "rf", "tr", "rt":
		return true
	default:
		return false
	}
}
