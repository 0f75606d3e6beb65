package pysource

import "strings"

// Module is the structural view of one source file.
type Module struct {
	Docstring    string
	HasDocstring bool
	Definitions  []Definition

	tokens []Token
}

// Definition is a class or function header in declaration order.
type Definition struct {
	Kind         string
	Name         string
	Line         int
	Docstring    string
	HasDocstring bool
}

// Line is one logical source line.
type Line struct {
	Indent int
	Tokens []Token
}

// Call is a method call found anywhere in the module.
type Call struct {
	Method string
	Line   int
	Args   []Arg
}

// Arg is one call argument. Keyword is empty for positional arguments.
type Arg struct {
	Keyword string
	Value   []Token
}

// Literal evaluates the argument when it is a literal expression.
func (a Arg) Literal() (Literal, bool) {
	return EvalLiteral(a.Value)
}

// Text renders the argument expression compactly.
func (a Arg) Text() string {
	return ExprText(a.Value)
}

// Positional returns the positional arguments in order.
func (c Call) Positional() []Arg {
	var out []Arg
	for _, arg := range c.Args {
		if arg.Keyword == "" {
			out = append(out, arg)
		}
	}
	return out
}

// Keyword returns the named argument, if present.
func (c Call) Keyword(name string) (Arg, bool) {
	for _, arg := range c.Args {
		if arg.Keyword == name {
			return arg, true
		}
	}
	return Arg{}, false
}

// Parse tokenizes src and reads its docstrings. A *SyntaxError is returned
// when the source cannot be tokenized.
func Parse(src string) (*Module, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	lines := SplitLines(src, tokens)
	module := &Module{tokens: tokens}
	if len(lines) > 0 {
		module.Docstring, module.HasDocstring = docstringOf(lines[0].Tokens)
	}
	for i, line := range lines {
		def, colon, ok := definitionAt(line)
		if !ok {
			continue
		}
		var body []Token
		if colon+1 < len(line.Tokens) {
			body = line.Tokens[colon+1:]
		} else if i+1 < len(lines) && lines[i+1].Indent > line.Indent {
			body = lines[i+1].Tokens
		}
		def.Docstring, def.HasDocstring = docstringOf(firstStatement(body))
		module.Definitions = append(module.Definitions, def)
	}
	return module, nil
}

// FirstDocstring returns the module docstring, else the first definition
// docstring in declaration order.
func (m *Module) FirstDocstring() (string, bool) {
	if m.HasDocstring {
		return m.Docstring, true
	}
	for _, def := range m.Definitions {
		if def.HasDocstring {
			return def.Docstring, true
		}
	}
	return "", false
}

// MethodCalls finds every `.method(...)` call in the module.
func (m *Module) MethodCalls(method string) []Call {
	var calls []Call
	toks := m.tokens
	for i := 0; i+2 < len(toks); i++ {
		if !toks[i].is(Op, ".") || !toks[i+1].is(Name, method) || !toks[i+2].is(Op, "(") {
			continue
		}
		args, end := collectArgs(toks, i+3, toks[i+2].Depth)
		calls = append(calls, Call{Method: method, Line: toks[i+1].Line, Args: args})
		i = end
	}
	return calls
}

func collectArgs(toks []Token, start, depth int) ([]Arg, int) {
	var (
		args  []Arg
		group []Token
	)
	flush := func() {
		if len(group) == 0 {
			return
		}
		if len(group) >= 2 && group[0].Kind == Name && group[1].is(Op, "=") {
			args = append(args, Arg{Keyword: group[0].Text, Value: group[2:]})
		} else {
			args = append(args, Arg{Value: group})
		}
		group = nil
	}
	i := start
	for ; i < len(toks); i++ {
		tok := toks[i]
		if tok.Kind == EOF || (tok.is(Op, ")") && tok.Depth == depth) {
			break
		}
		if tok.is(Op, ",") && tok.Depth == depth+1 {
			flush()
			continue
		}
		group = append(group, tok)
	}
	flush()
	return args, i
}

// SplitLines groups tokens into logical lines with their visual indentation.
func SplitLines(src string, tokens []Token) []Line {
	var (
		lines   []Line
		current []Token
	)
	for _, tok := range tokens {
		switch tok.Kind {
		case Newline, EOF:
			if len(current) > 0 {
				lines = append(lines, Line{Indent: indentOf(src, current[0].Offset), Tokens: current})
				current = nil
			}
		default:
			current = append(current, tok)
		}
	}
	return lines
}

func indentOf(src string, offset int) int {
	start := strings.LastIndexByte(src[:offset], '\n') + 1
	width := 0
	for _, c := range src[start:offset] {
		switch c {
		case '\t':
			width = (width/8 + 1) * 8
		case '\f':
			width = 0
		default:
			width++
		}
	}
	return width
}

func definitionAt(line Line) (Definition, int, bool) {
	toks := line.Tokens
	i := 0
	if len(toks) > 0 && toks[0].is(Name, "async") {
		i = 1
	}
	if i+1 >= len(toks) || toks[i+1].Kind != Name {
		return Definition{}, 0, false
	}
	kind := toks[i].Text
	if toks[i].Kind != Name || (kind != "def" && kind != "class") {
		return Definition{}, 0, false
	}
	for j := i + 2; j < len(toks); j++ {
		if toks[j].is(Op, ":") && toks[j].Depth == 0 {
			return Definition{Kind: kind, Name: toks[i+1].Text, Line: toks[i].Line}, j, true
		}
	}
	return Definition{}, 0, false
}

func firstStatement(toks []Token) []Token {
	for i, tok := range toks {
		if tok.is(Op, ";") && tok.Depth == 0 {
			return toks[:i]
		}
	}
	return toks
}

// docstringOf reports whether a statement is a bare string expression and
// returns its value. Formatted and bytes literals do not count.
func docstringOf(toks []Token) (string, bool) {
	if len(toks) == 0 {
		return "", false
	}
	var b strings.Builder
	for _, tok := range toks {
		if tok.Kind != String {
			return "", false
		}
		value, prefix := DecodeString(tok.Text)
		if strings.ContainsAny(prefix, "fbt") {
			return "", false
		}
		b.WriteString(value)
	}
	return b.String(), true
}
