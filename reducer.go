package dave

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// DefaultPreamble is the label each new piece of assistant narration starts with.
const DefaultPreamble = "**> 🕵️ Dave:** \n\n "

// role names one accumulator track of the stream.
type role int

const (
	roleText role = iota
	roleCodeInput
	roleCodeOutput
	numRoles
)

// GroupStatus is the display status of a code group.
type GroupStatus int

const (
	// GroupExpanded means code is still streaming into the group.
	GroupExpanded GroupStatus = iota
	// GroupComplete means the group's output is known and it is shown collapsed.
	GroupComplete
)

// CodeGroup pairs generated code with its output for display.
type CodeGroup struct {
	ID     int
	Status GroupStatus
}

// reducerState is the cursor bookkeeping over the active assistant turn.
type reducerState struct {
	cursor [numRoles]int // block index per role, -1 = none
	groups []CodeGroup
	group  int // current group id, 0 = none
	halted error
}

// Reducer folds the events of one run into an assistant turn, one event at a
// time, synchronously and without reordering.
//
// At most one block per accumulator role (text, code input, code output) is
// open at any point. Every transition that closes an accumulator opens an
// empty placeholder for the same role, since the next event may belong to
// that role before a new role-initiating event arrives.
type Reducer struct {
	turn     *Turn
	files    FileService
	images   ImageStore
	preamble string
	logger   *zap.Logger
	state    reducerState
}

// ReducerOption configures a Reducer.
type ReducerOption func(*Reducer)

// WithFiles sets the service images are retrieved from and deleted on.
func WithFiles(fs FileService) ReducerOption {
	return func(r *Reducer) { r.files = fs }
}

// WithImages sets the local image cache.
func WithImages(is ImageStore) ReducerOption {
	return func(r *Reducer) { r.images = is }
}

// WithPreamble sets the label seeded into each new text block.
func WithPreamble(p string) ReducerOption {
	return func(r *Reducer) { r.preamble = p }
}

// WithReducerLogger sets the logger. Defaults to a no-op logger.
func WithReducerLogger(l *zap.Logger) ReducerOption {
	return func(r *Reducer) { r.logger = l }
}

// NewReducer returns a Reducer mutating turn.
func NewReducer(turn *Turn, opts ...ReducerOption) *Reducer {
	r := &Reducer{
		turn:     turn,
		preamble: DefaultPreamble,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	for i := range r.state.cursor {
		r.state.cursor[i] = -1
	}
	return r
}

// Turn returns the turn being reduced.
func (r *Reducer) Turn() *Turn { return r.turn }

// Groups returns the code-group display table.
func (r *Reducer) Groups() []CodeGroup {
	return append([]CodeGroup(nil), r.state.groups...)
}

// Expanded reports whether code group id is still shown expanded.
func (r *Reducer) Expanded(id int) bool {
	if g := r.lookupGroup(id); g != nil {
		return g.Status == GroupExpanded
	}
	return false
}

// Halted returns the terminal error that stopped the reducer, or nil.
func (r *Reducer) Halted() error { return r.state.halted }

// ApplyAll applies events in order, stopping at the first error.
func (r *Reducer) ApplyAll(ctx context.Context, events []Event) error {
	for _, e := range events {
		if err := r.Apply(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Apply folds one event into the turn. Timeout and exception events halt the
// reducer: they return a terminal error, and so does every later call,
// without touching the turn. A failed image retrieval halts it the same way.
// Unknown events are ignored.
func (r *Reducer) Apply(ctx context.Context, evt Event) error {
	if r.state.halted != nil {
		return r.state.halted
	}
	switch e := evt.(type) {
	case EventTextCreated:
		r.completePendingGroup()
		b := r.open(roleText).(*TextBlock)
		b.appendRaw(r.preamble)
	case EventTextDelta:
		if e.Delta == "" {
			return nil
		}
		r.current(roleText).(*TextBlock).appendRaw(e.Delta)
	case EventTextDone:
		r.open(roleText)
	case EventToolCallCreated:
		b := r.open(roleCodeInput).(*CodeInputBlock)
		b.Group = r.newGroup()
	case EventToolCallDelta:
		r.applyToolCallDelta(e)
	case EventToolCallDone:
		r.setGroupStatus(r.state.group, GroupComplete)
		r.open(roleCodeInput)
		r.open(roleCodeOutput)
		r.open(roleText)
	case EventImageFileDone:
		if err := r.applyImage(ctx, e.FileID); err != nil {
			r.state.halted = err
			return err
		}
	case EventTimeout:
		r.state.halted = fmt.Errorf("run did not complete: %w", ErrRemoteTimeout)
		return r.state.halted
	case EventException:
		desc := "unknown error"
		if e.Err != nil {
			desc = e.Err.Error()
		}
		r.state.halted = fmt.Errorf("%w: %s", ErrRemoteException, desc)
		return r.state.halted
	}
	return nil
}

func (r *Reducer) applyToolCallDelta(e EventToolCallDelta) {
	if e.Input != "" {
		b := r.current(roleCodeInput).(*CodeInputBlock)
		if b.Group == 0 {
			b.Group = r.newGroup()
		}
		b.Content += e.Input
	}
	for _, out := range e.Outputs {
		if out.Kind != OutputLogs {
			continue
		}
		if !r.setGroupStatus(r.state.group, GroupComplete) {
			r.logger.Debug("logs without code group", zap.Int("group", r.state.group))
		}
		r.open(roleCodeInput)
		b := r.open(roleCodeOutput).(*CodeOutputBlock)
		b.Content += out.Logs
	}
}

func (r *Reducer) applyImage(ctx context.Context, fileID string) error {
	if r.files == nil || r.images == nil {
		return fmt.Errorf("image %s: no file service or image store: %w", fileID, ErrInvalidState)
	}
	f, err := r.files.Content(ctx, fileID)
	if err != nil {
		return fmt.Errorf("retrieve image %s: %w", fileID, err)
	}
	path, err := r.images.Save(fileID, f.Data)
	if err != nil {
		return fmt.Errorf("cache image %s: %w", fileID, err)
	}
	data, err := r.images.Load(fileID)
	if err != nil {
		return fmt.Errorf("load image %s: %w", fileID, err)
	}
	r.turn.appendBlock(&ImageBlock{Images: []Image{{
		Handle:   fileID,
		Path:     path,
		MimeType: http.DetectContentType(data),
		Data:     base64.StdEncoding.EncodeToString(data),
	}}})
	if err := r.files.Delete(ctx, fileID); err != nil {
		r.logger.Warn("delete remote image", zap.String("file_id", fileID), zap.Error(err))
	}
	r.open(roleText)
	return nil
}

// open closes the current block of role, appends a new open one and makes it
// current.
func (r *Reducer) open(ro role) Block {
	if i := r.state.cursor[ro]; i >= 0 {
		closeBlock(r.turn.Blocks[i])
	}
	var b Block
	switch ro {
	case roleText:
		b = &TextBlock{Open: true}
	case roleCodeInput:
		b = &CodeInputBlock{Open: true}
	case roleCodeOutput:
		b = &CodeOutputBlock{Open: true}
	}
	r.state.cursor[ro] = r.turn.appendBlock(b)
	return b
}

// current returns the open block of role, opening one if there is none.
func (r *Reducer) current(ro role) Block {
	if i := r.state.cursor[ro]; i >= 0 && IsOpen(r.turn.Blocks[i]) {
		return r.turn.Blocks[i]
	}
	return r.open(ro)
}

func (r *Reducer) newGroup() int {
	id := len(r.state.groups) + 1
	r.state.groups = append(r.state.groups, CodeGroup{ID: id, Status: GroupExpanded})
	r.state.group = id
	return id
}

func (r *Reducer) lookupGroup(id int) *CodeGroup {
	if id <= 0 || id > len(r.state.groups) {
		return nil
	}
	return &r.state.groups[id-1]
}

// setGroupStatus reports false when group id is not registered.
func (r *Reducer) setGroupStatus(id int, s GroupStatus) bool {
	g := r.lookupGroup(id)
	if g == nil {
		return false
	}
	g.Status = s
	return true
}

// completePendingGroup collapses a code group that never produced logs, e.g.
// code that only drew a chart.
func (r *Reducer) completePendingGroup() {
	if g := r.lookupGroup(r.state.group); g != nil && g.Status == GroupExpanded {
		g.Status = GroupComplete
	}
}
