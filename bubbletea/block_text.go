package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/dave/goldmark"
)

var _ MessageBlock = (*TextBlock)(nil)

// TextBlock renders assistant narration as markdown. Rendering is cached
// per width.
type TextBlock struct {
	content  string
	renderer *goldmark.Renderer
	width    int
	rendered string
}

// NewTextBlock creates a TextBlock for content.
func NewTextBlock(content string, renderer *goldmark.Renderer) *TextBlock {
	return &TextBlock{content: content, renderer: renderer}
}

func (b *TextBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *TextBlock) View(width int) string {
	if b.rendered != "" && b.width == width {
		return b.rendered
	}
	src := b.content
	if strings.Count(src, "```")%2 == 1 {
		// Close a fence still streaming so the rest renders as code.
		src += "\n```"
	}
	b.width = width
	b.rendered = b.renderer.Render(src, width)
	return b.rendered
}
