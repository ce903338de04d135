package dave

import (
	"fmt"
	"strings"
)

// Transcript is the append-only sequence of turns of one session. Turns are
// never reordered or deleted; only the last turn may be mutated.
type Transcript struct {
	turns  []*Turn
	active *Turn
}

// NewTranscript returns an empty Transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// ValidateQuestion checks that text is a usable question.
func ValidateQuestion(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("question must not be empty: %w", ErrValidation)
	}
	return nil
}

// BeginUserTurn appends a user turn holding text. It fails with
// ErrValidation when text is blank, and with ErrInvalidState while an
// assistant turn is still active.
func (t *Transcript) BeginUserTurn(text string) (*Turn, error) {
	if err := ValidateQuestion(text); err != nil {
		return nil, err
	}
	if t.active != nil {
		return nil, fmt.Errorf("user turn while assistant turn is active: %w", ErrInvalidState)
	}
	turn := &Turn{
		Role:     RoleUser,
		Blocks:   []Block{NewTextBlock(text)},
		Complete: true,
	}
	t.turns = append(t.turns, turn)
	return turn, nil
}

// BeginAssistantTurn appends an empty assistant turn and makes it active.
// Only one assistant turn may be active at a time.
func (t *Transcript) BeginAssistantTurn() (*Turn, error) {
	if t.active != nil {
		return nil, fmt.Errorf("assistant turn already active: %w", ErrInvalidState)
	}
	turn := &Turn{Role: RoleAssistant}
	t.turns = append(t.turns, turn)
	t.active = turn
	return turn, nil
}

// FinalizeAssistantTurn marks the active turn complete and closes all of its
// blocks. It is a no-op when no turn is active.
func (t *Transcript) FinalizeAssistantTurn() {
	if t.active == nil {
		return
	}
	for _, b := range t.active.Blocks {
		closeBlock(b)
	}
	t.active.Complete = true
	t.active = nil
}

// Active returns the active assistant turn, or nil.
func (t *Transcript) Active() *Turn { return t.active }

// Turns returns the turns in order. The slice must not be modified.
func (t *Transcript) Turns() []*Turn { return t.turns }

// Len returns the number of turns.
func (t *Transcript) Len() int { return len(t.turns) }
