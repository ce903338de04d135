package dave

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates malformed input, e.g. an empty question.
	ErrValidation = errors.New("validation error")

	// ErrInvalidState indicates a violated precondition, e.g. starting a
	// second assistant turn while one is active. It is a programming error.
	ErrInvalidState = errors.New("invalid state")

	// ErrRemoteTimeout indicates the remote run did not complete in time.
	ErrRemoteTimeout = errors.New("remote run timed out")

	// ErrRemoteException indicates the remote run failed mid-stream.
	ErrRemoteException = errors.New("remote run failed")

	// ErrFlagged indicates the question was rejected by moderation.
	ErrFlagged = errors.New("question flagged by moderation")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")
)
