// Package goldmark renders the assistant's markdown narration to ANSI-styled
// terminal output using goldmark for parsing and lipgloss for styling.
package goldmark

import (
	"bytes"
	"strings"

	"github.com/fwojciec/dave"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// defaultWidth is used when the caller passes a non-positive width.
const defaultWidth = 80

// Renderer converts markdown to styled terminal text. It is safe for
// concurrent use.
type Renderer struct {
	parser parser.Parser
	styles styles
}

// New returns a Renderer styled with theme. GitHub-flavored tables and
// strikethrough are supported.
func New(theme dave.Theme) *Renderer {
	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))
	return &Renderer{parser: md.Parser(), styles: newStyles(theme)}
}

// Render parses source and returns styled output wrapped to width. Code
// blocks and tables are not reflowed.
func (r *Renderer) Render(source string, width int) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}
	src := []byte(source)
	doc := r.parser.Parse(text.NewReader(src))

	w := &writer{styles: r.styles, source: src, width: width}
	w.blocks(doc)
	return strings.TrimRight(w.buf.String(), "\n")
}

// Render is a convenience for New(theme).Render(source, width).
func Render(source string, width int, theme dave.Theme) string {
	return New(theme).Render(source, width)
}

type writer struct {
	styles styles
	source []byte
	width  int
	buf    bytes.Buffer
}
