package bubbletea

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/dave"
)

var _ MessageBlock = (*ErrorBlock)(nil)

// ErrorBlock renders the reason a question went unanswered.
type ErrorBlock struct {
	err    error
	styles Styles
}

// NewErrorBlock creates an ErrorBlock.
func NewErrorBlock(err error, styles Styles) *ErrorBlock {
	return &ErrorBlock{err: err, styles: styles}
}

func (b *ErrorBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *ErrorBlock) View(width int) string {
	content := b.styles.Error.Render(describe(b.err))
	return lipgloss.NewStyle().Width(width).Render(content)
}

// describe turns an Ask error into a message for the user.
func describe(err error) string {
	switch {
	case errors.Is(err, dave.ErrFlagged):
		return "Your question was flagged by moderation and was not sent. Uploaded data has been removed."
	case errors.Is(err, dave.ErrRemoteTimeout):
		return "The analysis took too long and was stopped."
	case errors.Is(err, dave.ErrRemoteException):
		return fmt.Sprintf("The analysis failed: %v", err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
