package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHighlighter_HTML(t *testing.T) {
	h := NewHighlighter("github")
	assert.Equal(t, "github", h.StyleName())

	out, err := h.HTML("tool.py", "def main():\n    return 42\n")
	require.NoError(t, err)
	assert.Contains(t, out, "<pre")
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "42")
}

func TestHighlighter_UnknownStyleFallsBack(t *testing.T) {
	h := NewHighlighter("no-such-style")
	assert.NotEmpty(t, h.StyleName())

	out, err := h.HTML("notes.unknown", "plaintext")
	require.NoError(t, err)
	assert.Contains(t, out, "plaintext")
}

func TestMarkdown_HTML(t *testing.T) {
	out, err := NewMarkdown().HTML([]byte("# Usage\n\nRun **carefully**.\n\n<script>alert(1)</script>\n"))
	require.NoError(t, err)
	assert.Contains(t, out, `<h1 id="usage">Usage</h1>`)
	assert.Contains(t, out, "<strong>carefully</strong>")
	assert.NotContains(t, out, "<script>")
}
