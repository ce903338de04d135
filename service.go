package dave

import (
	"context"
	"io"
)

// Stream is the pull-based event sequence of one remote run. Next returns
// io.EOF once the run is done. Transport failures come from Next's error
// return; run-level timeouts and failures may also arrive as EventTimeout
// and EventException. Cancellation flows through the context passed to
// RunService.Run.
type Stream interface {
	Next() (Event, error)
	Close() error
}

// RunRequest carries per-run options. The service uses its own defaults when
// fields are zero/nil.
type RunRequest struct {
	Model        string   // empty = service default
	Instructions string   // empty = the assistant's configured instructions
	Temperature  *float64 // nil = service default
}

// RunService is the hosted assistant that executes code on behalf of the
// user and streams its progress.
type RunService interface {
	// CreateConversation starts a new remote conversation.
	CreateConversation(ctx context.Context) (string, error)
	// AttachFiles makes uploaded files available to the code interpreter.
	AttachFiles(ctx context.Context, conversationID string, fileIDs []string) error
	// AddMessage appends a user message to the conversation.
	AddMessage(ctx context.Context, conversationID, text string) error
	// Run starts a run with the code interpreter forced on.
	Run(ctx context.Context, conversationID string, req RunRequest) (Stream, error)
	// Artifacts lists files the assistant generated in the conversation.
	Artifacts(ctx context.Context, conversationID string) ([]string, error)
	// DeleteConversation removes the remote conversation.
	DeleteConversation(ctx context.Context, conversationID string) error
}

// File is a remote object retrieved by handle.
type File struct {
	ID   string
	Name string
	Data []byte
}

// FileService stores objects remotely. The remote side is not a permanent
// store: every uploaded or generated object is eventually deleted.
type FileService interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
	Content(ctx context.Context, id string) (File, error)
	Delete(ctx context.Context, id string) error
}

// Moderator screens user input before it reaches the assistant.
type Moderator interface {
	Flagged(ctx context.Context, text string) (bool, error)
}

// ImageStore caches image bytes locally, keyed by remote handle.
type ImageStore interface {
	Save(handle string, data []byte) (string, error)
	Load(handle string) ([]byte, error)
}

// ArtifactStore saves generated files locally for the user to keep.
type ArtifactStore interface {
	SaveArtifact(name string, data []byte) (string, error)
}
