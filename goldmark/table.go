package goldmark

import (
	"strings"

	"github.com/rivo/uniseg"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
)

// table renders a GFM table with columns padded to their widest cell.
// Cells are measured in grapheme cluster widths so wide characters and
// emoji sequences line up.
func (w *writer) table(t *east.Table) {
	var rows [][]string
	header := -1
	for r := t.FirstChild(); r != nil; r = r.NextSibling() {
		if _, ok := r.(*east.TableHeader); ok {
			header = len(rows)
		}
		var cells []string
		for c := r.FirstChild(); c != nil; c = c.NextSibling() {
			cells = append(cells, w.plainInline(c))
		}
		rows = append(rows, cells)
	}

	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], uniseg.StringWidth(cell))
		}
	}

	sep := w.styles.muted.Render(" │ ")
	for ri, row := range rows {
		parts := make([]string, len(widths))
		for i := range widths {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			align := east.AlignNone
			if i < len(t.Alignments) {
				align = t.Alignments[i]
			}
			cell = pad(cell, widths[i], align)
			if ri == header {
				cell = w.styles.bold.Render(cell)
			}
			parts[i] = cell
		}
		w.buf.WriteString(strings.TrimRight(strings.Join(parts, sep), " ") + "\n")
		if ri == header {
			rule := make([]string, len(widths))
			for i, n := range widths {
				rule[i] = strings.Repeat("─", n)
			}
			w.buf.WriteString(w.styles.muted.Render(strings.Join(rule, "─┼─")) + "\n")
		}
	}
}

func pad(s string, width int, align east.Alignment) string {
	gap := width - uniseg.StringWidth(s)
	if gap <= 0 {
		return s
	}
	switch align {
	case east.AlignRight:
		return strings.Repeat(" ", gap) + s
	case east.AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", gap-left)
	default:
		return s + strings.Repeat(" ", gap)
	}
}

// plainInline returns the unstyled text of a node's inline children.
func (w *writer) plainInline(n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(w.source))
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
