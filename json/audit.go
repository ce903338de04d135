package json

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fwojciec/dave"
)

// Interface compliance check.
var _ dave.AuditLog = (*AuditLog)(nil)

// AuditLog appends one JSON object per line for every question asked.
type AuditLog struct {
	mu  sync.Mutex
	c   io.Closer
	enc *json.Encoder
}

type auditDTO struct {
	Time           time.Time `json:"time"`
	SessionID      string    `json:"session_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Question       string    `json:"question"`
	Flagged        bool      `json:"flagged"`
	Error          string    `json:"error,omitempty"`
	DurationMS     int64     `json:"duration_ms"`
	Blocks         int       `json:"blocks"`
	Images         int       `json:"images"`
	Files          int       `json:"files"`
}

// NewAuditLog writes records to w.
func NewAuditLog(w io.Writer) *AuditLog {
	return &AuditLog{enc: json.NewEncoder(w)}
}

// OpenAuditLog appends records to the file at path, creating it and its
// parent directories as needed.
func OpenAuditLog(path string) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create directories: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	a := NewAuditLog(f)
	a.c = f
	return a, nil
}

// Record writes rec as a single line.
func (a *AuditLog) Record(rec dave.AuditRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.enc.Encode(auditDTO{
		Time:           rec.Time.UTC(),
		SessionID:      rec.SessionID,
		ConversationID: rec.ConversationID,
		Question:       rec.Question,
		Flagged:        rec.Flagged,
		Error:          rec.Error,
		DurationMS:     rec.Duration.Milliseconds(),
		Blocks:         rec.Blocks,
		Images:         rec.Images,
		Files:          rec.Files,
	})
	if err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}

// Close closes the underlying file, if the log owns one.
func (a *AuditLog) Close() error {
	if a.c == nil {
		return nil
	}
	return a.c.Close()
}
