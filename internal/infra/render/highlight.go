// Package render turns tool sources and guides into HTML.
package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"pysnip/internal/domain"
)

type Highlighter struct {
	style     *chroma.Style
	formatter *html.Formatter
}

// NewHighlighter returns a highlighter for the named chroma style, falling
// back to the default style when the name is unknown.
func NewHighlighter(styleName string) *Highlighter {
	if strings.TrimSpace(styleName) == "" {
		styleName = domain.DefaultSourceStyle
	}
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	return &Highlighter{
		style: style,
		formatter: html.New(
			html.WithLineNumbers(true),
			html.LineNumbersInTable(true),
			html.TabWidth(4),
		),
	}
}

// HTML renders source as a standalone highlighted block. The lexer is picked
// from the file name, then from the content.
func (h *Highlighter) HTML(filename, source string) (string, error) {
	lexer := lexers.Match(filename)
	if lexer == nil {
		lexer = lexers.Analyse(source)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// StyleName reports the resolved style.
func (h *Highlighter) StyleName() string {
	return h.style.Name
}
