// Package bubbletea provides a Bubble Tea TUI for asking Dave questions and
// watching the answer stream in.
package bubbletea

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/dave"
)

// AskFunc forwards one question to the assistant. observe is called with a
// snapshot after every change to the transcript. The function blocks until
// the run completes or the context is cancelled.
type AskFunc func(ctx context.Context, question string, observe func(dave.Snapshot)) error

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. When ctx is cancelled, the program quits. Questions are asked under
// ctx; on exit they are cancelled and Run waits for them to return, so the
// caller owns the session again once Run returns.
func Run(ctx context.Context, m Model) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.ctx = ctx

	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	cancel()
	m.asks.shutdown()
	return err
}

// inflight tracks questions being asked. Once shut down it refuses new ones.
type inflight struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func (f *inflight) start() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.wg.Add(1)
	return true
}

func (f *inflight) done() { f.wg.Done() }

// shutdown refuses new questions and waits for running ones to return.
func (f *inflight) shutdown() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.wg.Wait()
}

// SnapshotMsg delivers a transcript snapshot to the model.
type SnapshotMsg struct {
	Snapshot dave.Snapshot
}

// AskDoneMsg signals that a question has been answered or has failed.
type AskDoneMsg struct {
	Err error
}
