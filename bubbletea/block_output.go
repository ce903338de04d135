package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/dave/logs"
)

var _ Collapsible = (*OutputBlock)(nil)

// OutputBlock renders output that arrived without a code group. It starts
// collapsed to a preview of its first line.
type OutputBlock struct {
	content   string
	collapsed bool
	focused   bool
	styles    Styles
}

// NewOutputBlock creates a collapsed OutputBlock.
func NewOutputBlock(content string, styles Styles) *OutputBlock {
	return &OutputBlock{content: logs.Clean(content), collapsed: true, styles: styles}
}

// Collapsed reports whether the block shows only its summary line.
func (b *OutputBlock) Collapsed() bool { return b.collapsed }

func (b *OutputBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	switch msg := msg.(type) {
	case ToggleMsg:
		b.collapsed = !b.collapsed
	case focusMsg:
		b.focused = bool(msg)
	}
	return b, nil
}

func (b *OutputBlock) View(width int) string {
	indicator := "▼"
	if b.collapsed {
		indicator = "▶"
	}
	header := b.styles.Output.Render(indicator + " Output")
	if b.focused {
		header += " " + b.styles.Focus.Render("◂")
	}
	if b.collapsed {
		header += "  " + preview(b.content, width-lipgloss.Width(header)-3)
		return b.styles.CodeBg.Width(width).Render(header)
	}
	gutter := b.styles.Muted.Render("│") + " "
	return b.styles.CodeBg.Width(width).Render(header + "\n" + outputTail(b.content, gutter, b.styles))
}
