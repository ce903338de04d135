package bubbletea

import "context"

// RenderContent exports renderContent for testing.
func RenderContent(m Model) string {
	return m.renderContent()
}

// Focus returns the index of the focused block, -1 when none.
func Focus(m Model) int {
	return m.focus
}

// Blocks returns the settled blocks.
func Blocks(m Model) []MessageBlock {
	return m.blocks
}

// Live returns the blocks of the turn being streamed.
func Live(m Model) []MessageBlock {
	return m.live
}

// SetRunning is a test helper that puts the model in a running state with a
// cancel function.
func SetRunning(m Model, cancel func()) Model {
	m.running = true
	m.cancel = cancel
	return m
}

// WithContext sets the context questions are asked under, as Run does.
func WithContext(m Model, ctx context.Context) Model {
	m.ctx = ctx
	return m
}

// Shutdown refuses new questions and waits for running ones, as Run does on
// exit.
func Shutdown(m Model) {
	m.asks.shutdown()
}
