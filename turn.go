package dave

// Role represents who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one user question or one assistant response.
// A user turn holds exactly one closed TextBlock. An assistant turn grows
// monotonically while its run streams and is frozen once Complete.
type Turn struct {
	Role     Role
	Blocks   []Block
	Complete bool
}

// Clone returns a deep copy of t, safe to hand to another goroutine.
func (t *Turn) Clone() Turn {
	c := Turn{Role: t.Role, Complete: t.Complete, Blocks: make([]Block, len(t.Blocks))}
	for i, b := range t.Blocks {
		c.Blocks[i] = cloneBlock(b)
	}
	return c
}

// Text returns the concatenated content of t's text blocks.
func (t *Turn) Text() string {
	var s string
	for _, b := range t.Blocks {
		if tb, ok := b.(*TextBlock); ok {
			s += tb.Content
		}
	}
	return s
}

// appendBlock adds b and returns its index.
func (t *Turn) appendBlock(b Block) int {
	t.Blocks = append(t.Blocks, b)
	return len(t.Blocks) - 1
}
