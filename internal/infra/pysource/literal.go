package pysource

import (
	"strconv"
	"strings"
)

type LiteralKind int

const (
	LiteralString LiteralKind = iota + 1
	LiteralNumber
	LiteralBool
	LiteralNone
	LiteralList
)

// Literal is an evaluated constant expression.
type Literal struct {
	Kind  LiteralKind
	Value string
	Items []Literal
}

// String renders strings and numbers bare, and containers in Python form.
func (l Literal) String() string {
	switch l.Kind {
	case LiteralList:
		parts := make([]string, 0, len(l.Items))
		for _, item := range l.Items {
			parts = append(parts, item.repr())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case LiteralNone:
		return "None"
	default:
		return l.Value
	}
}

func (l Literal) repr() string {
	if l.Kind == LiteralString {
		return strconv.Quote(l.Value)
	}
	return l.String()
}

// Strings returns the items of a list literal rendered as strings.
func (l Literal) Strings() []string {
	if l.Kind != LiteralList {
		return nil
	}
	out := make([]string, 0, len(l.Items))
	for _, item := range l.Items {
		out = append(out, item.String())
	}
	return out
}

// EvalLiteral evaluates a token run holding a single literal: strings,
// numbers, True/False/None, and lists, tuples or sets of those.
func EvalLiteral(toks []Token) (Literal, bool) {
	lit, next, ok := parseLiteral(toks, 0)
	if !ok || next != len(toks) {
		return Literal{}, false
	}
	return lit, true
}

func parseLiteral(toks []Token, i int) (Literal, int, bool) {
	if i >= len(toks) {
		return Literal{}, i, false
	}
	tok := toks[i]
	switch {
	case tok.Kind == String:
		var b strings.Builder
		for ; i < len(toks) && toks[i].Kind == String; i++ {
			value, prefix := DecodeString(toks[i].Text)
			if strings.Contains(prefix, "f") || strings.Contains(prefix, "t") {
				return Literal{}, i, false
			}
			b.WriteString(value)
		}
		return Literal{Kind: LiteralString, Value: b.String()}, i, true
	case tok.Kind == Number:
		return Literal{Kind: LiteralNumber, Value: tok.Text}, i + 1, true
	case (tok.is(Op, "-") || tok.is(Op, "+")) && i+1 < len(toks) && toks[i+1].Kind == Number:
		value := toks[i+1].Text
		if tok.Text == "-" {
			value = "-" + value
		}
		return Literal{Kind: LiteralNumber, Value: value}, i + 2, true
	case tok.is(Name, "True"), tok.is(Name, "False"):
		return Literal{Kind: LiteralBool, Value: tok.Text}, i + 1, true
	case tok.is(Name, "None"):
		return Literal{Kind: LiteralNone}, i + 1, true
	case tok.is(Op, "["), tok.is(Op, "("), tok.is(Op, "{"):
		return parseContainer(toks, i)
	default:
		return Literal{}, i, false
	}
}

func parseContainer(toks []Token, i int) (Literal, int, bool) {
	closer := map[string]string{"[": "]", "(": ")", "{": "}"}[toks[i].Text]
	list := Literal{Kind: LiteralList}
	i++
	for {
		if i >= len(toks) {
			return Literal{}, i, false
		}
		if toks[i].is(Op, closer) {
			return list, i + 1, true
		}
		item, next, ok := parseLiteral(toks, i)
		if !ok {
			return Literal{}, i, false
		}
		list.Items = append(list.Items, item)
		i = next
		if i < len(toks) && toks[i].is(Op, ",") {
			i++
			continue
		}
		if i >= len(toks) || !toks[i].is(Op, closer) {
			return Literal{}, i, false
		}
	}
}

// ExprText renders tokens back into compact source form.
func ExprText(toks []Token) string {
	var b strings.Builder
	for i, tok := range toks {
		if i > 0 && wordy(toks[i-1]) && wordy(tok) {
			b.WriteByte(' ')
		}
		b.WriteString(tok.Text)
	}
	return b.String()
}

func wordy(tok Token) bool {
	return tok.Kind == Name || tok.Kind == Number || tok.Kind == String
}

// DecodeString returns the value of a string token and its lowercased
// prefix. Raw strings keep their backslashes; formatted strings are returned
// unevaluated.
func DecodeString(text string) (string, string) {
	i := 0
	for i < len(text) && text[i] != '"' && text[i] != '\'' {
		i++
	}
	prefix := strings.ToLower(text[:i])
	body := text[i:]
	quoteLen := 1
	if len(body) >= 6 && (strings.HasPrefix(body, `"""`) || strings.HasPrefix(body, `'''`)) {
		quoteLen = 3
	}
	if len(body) < 2*quoteLen {
		return "", prefix
	}
	body = body[quoteLen : len(body)-quoteLen]
	if strings.Contains(prefix, "r") {
		return body, prefix
	}
	return unescape(body, strings.Contains(prefix, "b")), prefix
}

func unescape(s string, bytesMode bool) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := s[i]; e {
		case '\n':
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '\\', '\'', '"':
			b.WriteByte(e)
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			end := i + 1
			for end < len(s) && end < i+3 && s[end] >= '0' && s[end] <= '7' {
				end++
			}
			n, _ := strconv.ParseUint(s[i:end], 8, 32)
			writeCode(&b, n, bytesMode)
			i = end - 1
		case 'x', 'u', 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[e]
			if (e != 'x' && bytesMode) || i+1+width > len(s) {
				b.WriteByte('\\')
				b.WriteByte(e)
				continue
			}
			n, err := strconv.ParseUint(s[i+1:i+1+width], 16, 32)
			if err != nil {
				b.WriteByte('\\')
				b.WriteByte(e)
				continue
			}
			writeCode(&b, n, bytesMode)
			i += width
		default:
			b.WriteByte('\\')
			b.WriteByte(e)
		}
	}
	return b.String()
}

func writeCode(b *strings.Builder, n uint64, bytesMode bool) {
	if bytesMode {
		b.WriteByte(byte(n))
		return
	}
	b.WriteRune(rune(n))
}
