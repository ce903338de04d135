package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/dave"
	"github.com/fwojciec/dave/goldmark"
)

var _ tea.Model = Model{}

// snapshotBuffer bounds the snapshots queued between the asking goroutine
// and the UI.
const snapshotBuffer = 256

// focusMsg tells a collapsible block whether it holds focus.
type focusMsg bool

// Model is the Bubble Tea model for the Dave TUI.
type Model struct {
	// Input is the question input. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable transcript. Exported for test access.
	Viewport viewport.Model
	// Spinner animates while a question is in flight.
	Spinner spinner.Model

	ask      AskFunc
	ctx      context.Context // parent of every question; set by Run
	asks     *inflight
	styles   Styles
	renderer *goldmark.Renderer

	blocks []MessageBlock // settled turns
	live   []MessageBlock // assistant turn being streamed, rebuilt per snapshot
	focus  int            // index into the settled blocks, -1 = none

	running bool
	cancel  context.CancelFunc
	snapCh  chan dave.Snapshot
	doneCh  chan error
	err     error
	ready   bool
}

// New creates a new TUI Model that answers questions with ask.
func New(ask AskFunc, theme dave.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask a question about your data..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	styles := NewStyles(theme)
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = styles.Accent

	return Model{
		Input:    ti,
		Spinner:  sp,
		ask:      ask,
		asks:     &inflight{},
		styles:   styles,
		renderer: goldmark.New(theme),
		focus:    -1,
	}
}

// Running returns whether a question is in flight.
func (m Model) Running() bool { return m.running }

// Err returns the error of the last question, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case SnapshotMsg:
		m = m.applySnapshot(msg.Snapshot)
		m = m.refresh()
		if m.snapCh != nil {
			return m, listenForSnapshot(m.snapCh, m.doneCh)
		}
		return m, nil

	case AskDoneMsg:
		m.running = false
		m.cancel = nil
		m.snapCh = nil
		m.doneCh = nil
		m.blocks = append(m.blocks, m.live...)
		m.live = nil
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.err = msg.Err
			m.blocks = append(m.blocks, NewErrorBlock(msg.Err, m.styles))
		}
		m = m.setFocus(m.lastCollapsible())
		m = m.refresh()
		cmds = append(cmds, m.Input.Focus())
		return m, tea.Batch(cmds...)
	}

	// Viewport always receives remaining messages for scrolling.
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputHeight := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := max(msg.Height-inputHeight-statusHeight-borderHeight, 1)

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = msg.Width
	return m.refresh()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submit(text)

	case tea.KeyTab:
		if !m.running && m.focus >= 0 {
			block, cmd := m.blocks[m.focus].Update(ToggleMsg{})
			m.blocks[m.focus] = block
			return m.refresh(), cmd
		}
		return m, nil

	case tea.KeyShiftTab:
		if !m.running {
			m = m.setFocus(m.previousCollapsible())
			m = m.refresh()
		}
		return m, nil
	}

	if !m.running {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		// Character keys go to the input only; 'j'/'k' would otherwise scroll.
		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.Input.Blur()
	m.err = nil
	m = m.setFocus(-1)

	parent := m.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel
	m.snapCh = make(chan dave.Snapshot, snapshotBuffer)
	m.doneCh = make(chan error, 1)
	m.running = true

	return m.refresh(), tea.Batch(
		startAsk(m.ask, m.asks, ctx, text, m.snapCh, m.doneCh),
		listenForSnapshot(m.snapCh, m.doneCh),
		m.Spinner.Tick,
	)
}

// applySnapshot settles a user turn or replaces the live assistant turn.
func (m Model) applySnapshot(snap dave.Snapshot) Model {
	if snap.Turn.Role == dave.RoleUser {
		m.blocks = append(m.blocks, m.live...)
		m.live = nil
		m.blocks = append(m.blocks, NewUserBlock(snap.Turn.Text(), m.styles))
		return m
	}
	m.live = m.buildTurn(snap)
	return m
}

// buildTurn maps an assistant turn onto view blocks. Empty placeholders are
// skipped and output is shown under the code group that printed it.
func (m Model) buildTurn(snap dave.Snapshot) []MessageBlock {
	status := make(map[int]dave.GroupStatus, len(snap.Groups))
	for _, g := range snap.Groups {
		status[g.ID] = g.Status
	}
	collapsed := func(id int) bool {
		if snap.Turn.Complete {
			return true
		}
		s, ok := status[id]
		return ok && s == dave.GroupComplete
	}

	var out []MessageBlock
	var group *CodeGroupBlock
	for _, b := range snap.Turn.Blocks {
		switch b := b.(type) {
		case *dave.TextBlock:
			if strings.TrimSpace(b.Content) == "" {
				continue
			}
			out = append(out, NewTextBlock(b.Content, m.renderer))
		case *dave.CodeInputBlock:
			if b.Content == "" {
				continue
			}
			if group != nil && b.Group != 0 && group.ID() == b.Group {
				group.AppendCode(b.Content)
				continue
			}
			group = NewCodeGroupBlock(b.Group, b.Content, collapsed(b.Group), m.styles)
			out = append(out, group)
		case *dave.CodeOutputBlock:
			if b.Content == "" {
				continue
			}
			if group != nil {
				group.AppendOutput(b.Content)
				continue
			}
			out = append(out, NewOutputBlock(b.Content, m.styles))
		case *dave.ImageBlock:
			for _, img := range b.Images {
				out = append(out, NewImageBlock(img, m.styles))
			}
		case *dave.FileBlock:
			out = append(out, NewFileBlock(*b, m.styles))
		}
	}
	return out
}

func (m Model) refresh() Model {
	if !m.ready {
		return m
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderContent() string {
	all := slices.Concat(m.blocks, m.live)
	views := make([]string, len(all))
	for i, block := range all {
		views[i] = block.View(m.Viewport.Width)
	}
	return strings.Join(views, "\n\n")
}

// setFocus moves focus to the settled block at i, or clears it when i < 0.
func (m Model) setFocus(i int) Model {
	if m.focus >= 0 && m.focus < len(m.blocks) {
		m.blocks[m.focus], _ = m.blocks[m.focus].Update(focusMsg(false))
	}
	m.focus = i
	if i >= 0 {
		m.blocks[i], _ = m.blocks[i].Update(focusMsg(true))
	}
	return m
}

func (m Model) lastCollapsible() int {
	for i := len(m.blocks) - 1; i >= 0; i-- {
		if _, ok := m.blocks[i].(Collapsible); ok {
			return i
		}
	}
	return -1
}

// previousCollapsible returns the collapsible before the focused one,
// wrapping around.
func (m Model) previousCollapsible() int {
	n := len(m.blocks)
	if n == 0 {
		return -1
	}
	start := m.focus - 1
	if start < 0 {
		start = n - 1
	}
	for i := range n {
		idx := (start - i + n) % n
		if _, ok := m.blocks[idx].(Collapsible); ok {
			return idx
		}
	}
	return -1
}

func (m Model) statusLine() string {
	if m.running {
		return m.Spinner.View() + " " + m.styles.Muted.Render("Dave is analysing... Ctrl+C to stop")
	}
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}
	return m.styles.Muted.Render("Enter to ask, Tab to fold code, Shift+Tab to move, Ctrl+C to quit")
}

// startAsk answers the question in a goroutine and signals completion. The
// question is not asked once the program is shutting down.
func startAsk(ask AskFunc, asks *inflight, ctx context.Context, question string, snapCh chan<- dave.Snapshot, doneCh chan<- error) tea.Cmd {
	return func() tea.Msg {
		if !asks.start() {
			close(snapCh)
			doneCh <- context.Canceled
			return nil
		}
		defer asks.done()
		err := ask(ctx, question, func(s dave.Snapshot) {
			select {
			case snapCh <- s:
			case <-ctx.Done():
			}
		})
		close(snapCh)
		doneCh <- err
		return nil
	}
}

// listenForSnapshot waits for the next snapshot. When the channel closes, it
// reads the error from doneCh and returns AskDoneMsg.
func listenForSnapshot(ch <-chan dave.Snapshot, doneCh <-chan error) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return AskDoneMsg{Err: <-doneCh}
		}
		return SnapshotMsg{Snapshot: snap}
	}
}
