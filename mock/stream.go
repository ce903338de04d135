package mock

import (
	"io"

	"github.com/fwojciec/dave"
)

// Interface compliance check.
var _ dave.Stream = (*Stream)(nil)

// Stream is a test double for dave.Stream.
// NextFn panics when nil to catch missing setup. CloseFn is nil-safe
// (no-op) because code under test commonly calls defer stream.Close().
type Stream struct {
	NextFn  func() (dave.Event, error)
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (dave.Event, error) {
	return s.NextFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// Events returns a Stream that yields events in order, then io.EOF.
func Events(events ...dave.Event) *Stream {
	i := 0
	return &Stream{
		NextFn: func() (dave.Event, error) {
			if i >= len(events) {
				return nil, io.EOF
			}
			e := events[i]
			i++
			return e, nil
		},
	}
}
