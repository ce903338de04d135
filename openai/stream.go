package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/dave"
)

type streamState int

const (
	stateNew streamState = iota
	stateStreaming
	stateComplete
	stateError
	stateClosed
)

const doneData = "[DONE]"

// stream implements [dave.Stream] by parsing SSE events from a run's HTTP
// response body.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	ctx     context.Context
	state   streamState
	pending []dave.Event
	err     error // terminal error, if any

	content *contentState  // current message content part
	call    *toolCallState // current code interpreter call
}

// contentState tracks the message content part deltas are applied to.
type contentState struct {
	index  int
	kind   string // text, image_file
	fileID string
}

// toolCallState tracks the tool call deltas are applied to.
type toolCallState struct {
	index int
	id    string
}

// Interface compliance check.
var _ dave.Stream = (*stream)(nil)

func newStream(ctx context.Context, body io.ReadCloser) *stream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &stream{
		body:    body,
		scanner: sc,
		ctx:     ctx,
		state:   stateNew,
	}
}

// Next returns the next semantic event. Returns io.EOF once the run's
// stream is done.
func (s *stream) Next() (dave.Event, error) {
	for {
		if len(s.pending) > 0 {
			evt := s.pending[0]
			s.pending = s.pending[1:]
			return evt, nil
		}

		switch s.state {
		case stateComplete:
			return nil, io.EOF
		case stateError:
			return nil, s.err
		case stateClosed:
			return nil, fmt.Errorf("openai: %w", dave.ErrStreamClosed)
		}

		eventType, data, err := s.readSSEEvent()
		if err != nil {
			s.terminate(err)
			continue
		}
		s.state = stateStreaming
		if err := s.processEvent(eventType, data); err != nil {
			s.terminate(err)
		}
	}
}

// Close closes the underlying HTTP response body.
func (s *stream) Close() error {
	if s.state != stateComplete && s.state != stateError {
		s.state = stateClosed
	}
	s.pending = nil
	return s.body.Close()
}

// terminate records a terminal error.
func (s *stream) terminate(err error) {
	s.state = stateError
	switch {
	case errors.Is(err, io.EOF):
		s.err = fmt.Errorf("openai: unexpected end of stream")
	case s.ctx.Err() != nil:
		s.err = s.ctx.Err()
	default:
		s.err = err
	}
}

func (s *stream) emit(events ...dave.Event) {
	s.pending = append(s.pending, events...)
}

// readSSEEvent reads lines until a complete SSE event is assembled.
// Returns the event type and the data payload.
func (s *stream) readSSEEvent() (string, string, error) {
	var eventType string
	var dataBuf strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if dataBuf.Len() > 0 {
				return eventType, dataBuf.String(), nil
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
		// Comments (lines starting with ':') and unknown fields are ignored.
	}

	if err := s.scanner.Err(); err != nil {
		return "", "", fmt.Errorf("openai: %w", err)
	}
	if dataBuf.Len() > 0 {
		return eventType, dataBuf.String(), nil
	}
	return "", "", io.EOF
}

// processEvent maps one SSE event onto zero or more semantic events.
func (s *stream) processEvent(eventType, data string) error {
	if data == doneData || eventType == "done" {
		s.closeContent()
		s.closeCall()
		s.state = stateComplete
		return nil
	}
	switch eventType {
	case "thread.message.delta":
		return s.handleMessageDelta(data)
	case "thread.message.completed", "thread.message.incomplete":
		s.closeContent()
		return nil
	case "thread.run.step.delta":
		return s.handleStepDelta(data)
	case "thread.run.step.completed", "thread.run.step.failed",
		"thread.run.step.cancelled", "thread.run.step.expired":
		s.closeCall()
		return nil
	case "thread.run.expired":
		s.emit(dave.EventTimeout{})
		return nil
	case "thread.run.failed", "thread.run.cancelled", "thread.run.incomplete":
		return s.handleRunEnded(eventType, data)
	case "error":
		return s.handleError(data)
	default:
		// Lifecycle events (thread.created, thread.run.queued, ...) carry
		// nothing to render.
		return nil
	}
}

func (s *stream) handleMessageDelta(data string) error {
	var evt sseMessageDelta
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return fmt.Errorf("openai: failed to parse thread.message.delta: %w", err)
	}
	for _, part := range evt.Delta.Content {
		if s.content == nil || s.content.index != part.Index {
			s.closeContent()
			s.content = &contentState{index: part.Index, kind: part.Type}
			if part.Type == "text" {
				s.emit(dave.EventTextCreated{})
			}
		}
		switch part.Type {
		case "text":
			if part.Text != nil && part.Text.Value != "" {
				s.emit(dave.EventTextDelta{Delta: part.Text.Value})
			}
		case "image_file":
			if part.ImageFile != nil && part.ImageFile.FileID != "" {
				s.content.fileID = part.ImageFile.FileID
			}
		}
	}
	return nil
}

// closeContent emits the done event for the current content part.
func (s *stream) closeContent() {
	if s.content == nil {
		return
	}
	switch s.content.kind {
	case "text":
		s.emit(dave.EventTextDone{})
	case "image_file":
		if s.content.fileID != "" {
			s.emit(dave.EventImageFileDone{FileID: s.content.fileID})
		}
	}
	s.content = nil
}

func (s *stream) handleStepDelta(data string) error {
	var evt sseRunStepDelta
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return fmt.Errorf("openai: failed to parse thread.run.step.delta: %w", err)
	}
	if evt.Delta.StepDetails.Type != "tool_calls" {
		return nil
	}
	for _, tc := range evt.Delta.StepDetails.ToolCalls {
		if tc.Type != "" && tc.Type != "code_interpreter" {
			continue
		}
		if s.call == nil || s.call.index != tc.Index {
			s.closeCall()
			s.call = &toolCallState{index: tc.Index, id: tc.ID}
			s.emit(dave.EventToolCallCreated{ID: tc.ID})
		}
		if tc.ID != "" {
			s.call.id = tc.ID
		}
		if tc.CodeInterpreter == nil {
			continue
		}
		delta := dave.EventToolCallDelta{ID: s.call.id, Input: tc.CodeInterpreter.Input}
		for _, out := range tc.CodeInterpreter.Outputs {
			switch out.Type {
			case "logs":
				delta.Outputs = append(delta.Outputs, dave.CodeOutput{Kind: dave.OutputLogs, Logs: out.Logs})
			case "image":
				if out.Image != nil {
					delta.Outputs = append(delta.Outputs, dave.CodeOutput{Kind: dave.OutputImage, FileID: out.Image.FileID})
				}
			}
		}
		if delta.Input != "" || len(delta.Outputs) > 0 {
			s.emit(delta)
		}
	}
	return nil
}

// closeCall emits the done event for the current tool call.
func (s *stream) closeCall() {
	if s.call == nil {
		return
	}
	s.emit(dave.EventToolCallDone{ID: s.call.id})
	s.call = nil
}

func (s *stream) handleRunEnded(eventType, data string) error {
	var run sseRun
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return fmt.Errorf("openai: failed to parse %s: %w", eventType, err)
	}
	var err error
	switch {
	case run.LastError != nil && run.LastError.Message != "":
		err = errors.New(run.LastError.describe())
	case run.IncompleteDetails != nil && run.IncompleteDetails.Reason != "":
		err = fmt.Errorf("run incomplete: %s", run.IncompleteDetails.Reason)
	default:
		err = fmt.Errorf("run %s", strings.TrimPrefix(eventType, "thread.run."))
	}
	s.emit(dave.EventException{Err: err})
	return nil
}

func (s *stream) handleError(data string) error {
	var body apiErrorBody
	if err := json.Unmarshal([]byte(data), &body); err != nil {
		return fmt.Errorf("openai: failed to parse error event: %w", err)
	}
	if body.Message == "" {
		var wrapped apiErrorResponse
		if err := json.Unmarshal([]byte(data), &wrapped); err == nil {
			body = wrapped.Error
		}
	}
	return fmt.Errorf("openai: %s", body.describe())
}
