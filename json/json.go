// Package json persists transcripts and audit records as JSON.
package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/dave"
)

// envelope is the v1 wire format for an exported session.
type envelope struct {
	Version        int       `json:"version"`
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Turns          []turnDTO `json:"turns"`
}

// Document is an exported session read back from disk.
type Document struct {
	ID             string
	ConversationID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Turns          []dave.Turn
}

// MarshalSession serializes the session's transcript in v1 envelope format.
func MarshalSession(s *dave.Session) ([]byte, error) {
	turns := s.Transcript.Turns()
	env := envelope{
		Version:        1,
		ID:             s.ID,
		ConversationID: s.ConversationID(),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		Turns:          make([]turnDTO, len(turns)),
	}
	for i, t := range turns {
		dto, err := marshalTurn(t)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", i, err)
		}
		env.Turns[i] = dto
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalDocument deserializes an exported session.
func UnmarshalDocument(data []byte) (Document, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Document{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return Document{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	turns := make([]dave.Turn, len(env.Turns))
	for i, dto := range env.Turns {
		t, err := unmarshalTurn(dto)
		if err != nil {
			return Document{}, fmt.Errorf("turn %d: %w", i, err)
		}
		turns[i] = t
	}
	return Document{
		ID:             env.ID,
		ConversationID: env.ConversationID,
		CreatedAt:      env.CreatedAt,
		UpdatedAt:      env.UpdatedAt,
		Turns:          turns,
	}, nil
}

// Save writes the session's transcript to a JSON file, creating parent
// directories as needed.
func Save(path string, s *dave.Session) error {
	data, err := MarshalSession(s)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads an exported session from a JSON file.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalDocument(data)
}
