package goldmark

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
)

func (w *writer) blocks(parent ast.Node) {
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		w.block(c)
		if c.NextSibling() != nil {
			w.buf.WriteString("\n")
		}
	}
}

func (w *writer) block(node ast.Node) {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		w.wrapped(w.inline(n))

	case *ast.Heading:
		w.wrapped(w.styles.heading.Render(w.inline(n)))

	case *ast.FencedCodeBlock:
		if lang := string(n.Language(w.source)); lang != "" {
			w.buf.WriteString(w.styles.muted.Render(lang) + "\n")
		}
		w.codeLines(n)

	case *ast.CodeBlock:
		w.codeLines(n)

	case *ast.List:
		w.list(n, 0)

	case *ast.Blockquote:
		sub := &writer{styles: w.styles, source: w.source, width: max(w.width-2, 10)}
		sub.blocks(n)
		bar := w.styles.muted.Render("┃") + " "
		for _, line := range strings.Split(strings.TrimRight(sub.buf.String(), "\n"), "\n") {
			w.buf.WriteString(bar + w.styles.quote.Render(line) + "\n")
		}

	case *ast.ThematicBreak:
		w.buf.WriteString(w.styles.muted.Render(strings.Repeat("─", min(w.width, 40))) + "\n")

	case *east.Table:
		w.table(n)

	case *ast.HTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			w.buf.Write(seg.Value(w.source))
		}

	default:
		w.blocks(node)
	}
}

func (w *writer) wrapped(s string) {
	w.buf.WriteString(lipgloss.NewStyle().Width(w.width).Render(s))
	w.buf.WriteString("\n")
}

func (w *writer) codeLines(n ast.Node) {
	gutter := w.styles.muted.Render("│") + " "
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(w.source)), "\n")
		w.buf.WriteString(gutter + w.styles.code.Render(line) + "\n")
	}
}

func (w *writer) list(n *ast.List, depth int) {
	num := n.Start
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := "• "
		if n.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		indent := strings.Repeat("  ", depth)

		var content strings.Builder
		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			switch in := ic.(type) {
			case *ast.List:
				if content.Len() > 0 {
					w.listItem(indent, marker, content.String())
					content.Reset()
				}
				w.list(in, depth+1)
				marker = strings.Repeat(" ", len(marker))
			case *ast.Paragraph, *ast.TextBlock:
				if content.Len() > 0 {
					content.WriteString(" ")
				}
				content.WriteString(w.inline(in))
			default:
				sub := &writer{styles: w.styles, source: w.source, width: w.width}
				sub.block(ic)
				content.WriteString(strings.TrimRight(sub.buf.String(), "\n"))
			}
		}
		if content.Len() > 0 {
			w.listItem(indent, marker, content.String())
		}
	}
}

// listItem writes content after the marker, aligning continuation lines
// under the first character of content.
func (w *writer) listItem(indent, marker, content string) {
	prefix := indent + marker
	pad := lipgloss.Width(prefix)
	wrapped := lipgloss.NewStyle().Width(max(w.width-pad, 10)).Render(content)
	for i, line := range strings.Split(wrapped, "\n") {
		if i == 0 {
			w.buf.WriteString(prefix + line + "\n")
			continue
		}
		w.buf.WriteString(strings.Repeat(" ", pad) + line + "\n")
	}
}
