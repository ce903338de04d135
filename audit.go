package dave

import "time"

// AuditRecord describes the outcome of one question.
type AuditRecord struct {
	Time           time.Time
	SessionID      string
	ConversationID string
	Question       string
	Flagged        bool
	Error          string
	Duration       time.Duration
	Blocks         int // non-empty blocks in the assistant turn
	Images         int
	Files          int
}

// AuditLog records one entry per question asked.
type AuditLog interface {
	Record(rec AuditRecord) error
}
