package bubbletea

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/dave/logs"
	"github.com/mattn/go-runewidth"
)

// Expanded output shows at most this much of its tail.
const (
	maxOutputLines = 200
	maxOutputBytes = 16 * 1024
)

var _ Collapsible = (*CodeGroupBlock)(nil)

// CodeGroupBlock renders generated code together with the output it printed.
// A group is expanded while code streams in and collapses once complete.
type CodeGroupBlock struct {
	id        int
	code      string
	output    string
	collapsed bool
	focused   bool
	styles    Styles
}

// NewCodeGroupBlock creates a CodeGroupBlock for group id.
func NewCodeGroupBlock(id int, code string, collapsed bool, styles Styles) *CodeGroupBlock {
	return &CodeGroupBlock{id: id, code: code, collapsed: collapsed, styles: styles}
}

// ID returns the code group id.
func (b *CodeGroupBlock) ID() int { return b.id }

// Collapsed reports whether the block shows only its summary line.
func (b *CodeGroupBlock) Collapsed() bool { return b.collapsed }

// AppendCode adds code continuing the group.
func (b *CodeGroupBlock) AppendCode(s string) {
	b.code = joinLines(b.code, s)
}

// AppendOutput adds output printed by the group's code. Escape sequences
// are stripped.
func (b *CodeGroupBlock) AppendOutput(s string) {
	b.output = joinLines(b.output, logs.Clean(s))
}

func (b *CodeGroupBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	switch msg := msg.(type) {
	case ToggleMsg:
		b.collapsed = !b.collapsed
	case focusMsg:
		b.focused = bool(msg)
	}
	return b, nil
}

func (b *CodeGroupBlock) View(width int) string {
	indicator := "▼"
	if b.collapsed {
		indicator = "▶"
	}
	header := b.styles.Code.Render(indicator + " Code")
	if b.output != "" {
		header += " " + b.styles.Success.Render("✓")
	}
	if b.focused {
		header += " " + b.styles.Focus.Render("◂")
	}

	if b.collapsed {
		if b.output != "" {
			header += "  " + preview(b.output, width-lipgloss.Width(header)-3)
		}
		return b.styles.CodeBg.Width(width).Render(header)
	}

	var sb strings.Builder
	sb.WriteString(header)
	gutter := b.styles.Muted.Render("│") + " "
	for _, line := range strings.Split(strings.TrimRight(b.code, "\n"), "\n") {
		sb.WriteString("\n" + gutter + line)
	}
	if b.output != "" {
		sb.WriteString("\n" + b.styles.Output.Render("Output"))
		sb.WriteString("\n" + outputTail(b.output, gutter, b.styles))
	}
	return b.styles.CodeBg.Width(width).Render(sb.String())
}

// preview returns the first non-blank line of s truncated to width display
// cells.
func preview(s string, width int) string {
	var line string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			line = strings.TrimSpace(l)
			break
		}
	}
	if width < 1 {
		width = 1
	}
	return runewidth.Truncate(line, width, "…")
}

func joinLines(a, b string) string {
	if a == "" || strings.HasSuffix(a, "\n") {
		return a + b
	}
	return a + "\n" + b
}

// outputTail renders the end of long output, noting how much was hidden.
func outputTail(output, gutter string, styles Styles) string {
	tail := logs.TailOf(output, maxOutputLines, maxOutputBytes)
	var lines []string
	if tail.Truncated() {
		lines = append(lines, gutter+styles.Muted.Render(fmt.Sprintf("… %d earlier lines hidden", tail.Hidden)))
	}
	for _, line := range strings.Split(strings.TrimRight(tail.Content, "\n"), "\n") {
		lines = append(lines, gutter+styles.Output.Render(line))
	}
	return strings.Join(lines, "\n")
}
