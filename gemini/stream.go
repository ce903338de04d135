package gemini

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/fwojciec/dave"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

type streamState int

const (
	stateNew streamState = iota
	stateStreaming
	stateComplete
	stateError
	stateClosed
)

// stream implements [dave.Stream] by wrapping the genai SDK's streaming
// iterator. Each response chunk may yield several semantic events.
type stream struct {
	ctx        context.Context
	pull       func() (*genai.GenerateContentResponse, error, bool)
	stop       func()
	state      streamState
	pending    []dave.Event
	err        error
	blobs      *Blobs
	onComplete func(*genai.Content)

	inText bool
	callID string // open code execution call, empty if none
	reply  genai.Content
}

// Interface compliance check.
var _ dave.Stream = (*stream)(nil)

// StreamOption configures a stream created by [NewStreamFromIter].
type StreamOption func(*stream)

// WithBlobs sets where inline images are stored. Defaults to a fresh store.
func WithBlobs(b *Blobs) StreamOption {
	return func(s *stream) { s.blobs = b }
}

// WithOnComplete sets a callback receiving the model's reply, without inline
// images, once the stream finishes normally.
func WithOnComplete(fn func(*genai.Content)) StreamOption {
	return func(s *stream) { s.onComplete = fn }
}

// NewStreamFromIter wraps a genai response iterator into a [dave.Stream].
func NewStreamFromIter(ctx context.Context, seq iter.Seq2[*genai.GenerateContentResponse, error], opts ...StreamOption) dave.Stream {
	next, stop := iter.Pull2(seq)
	s := &stream{
		ctx:   ctx,
		pull:  next,
		stop:  stop,
		state: stateNew,
		reply: genai.Content{Role: "model"},
	}
	for _, o := range opts {
		o(s)
	}
	if s.blobs == nil {
		s.blobs = NewBlobs()
	}
	return s
}

// Next returns the next semantic event, or io.EOF once the response is done.
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
			return nil, fmt.Errorf("gemini: %w", dave.ErrStreamClosed)
		}

		resp, err, ok := s.pull()
		if !ok {
			s.finish()
			continue
		}
		if err != nil {
			s.state = stateError
			if s.ctx.Err() != nil {
				s.err = s.ctx.Err()
			} else {
				s.err = fmt.Errorf("gemini: %w", err)
			}
			continue
		}
		s.state = stateStreaming
		s.processResponse(resp)
	}
}

// Close stops the underlying iterator.
func (s *stream) Close() error {
	if s.state != stateComplete && s.state != stateError {
		s.state = stateClosed
	}
	s.pending = nil
	s.stop()
	return nil
}

func (s *stream) emit(events ...dave.Event) {
	s.pending = append(s.pending, events...)
}

func (s *stream) processResponse(resp *genai.GenerateContentResponse) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		s.closeText()
		s.closeCall()
		s.emit(dave.EventException{Err: fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)})
		return
	}
	if len(resp.Candidates) == 0 {
		return
	}
	cand := resp.Candidates[0]
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			s.processPart(p)
		}
	}
	switch cand.FinishReason {
	case "", genai.FinishReasonStop:
	default:
		s.closeText()
		s.closeCall()
		desc := string(cand.FinishReason)
		if cand.FinishMessage != "" {
			desc += ": " + cand.FinishMessage
		}
		s.emit(dave.EventException{Err: fmt.Errorf("finish reason %s", desc)})
	}
}

func (s *stream) processPart(p *genai.Part) {
	switch {
	case p.Thought:
		return
	case p.ExecutableCode != nil:
		s.closeText()
		s.closeCall()
		s.callID = "exec_" + uuid.NewString()
		s.emit(dave.EventToolCallCreated{ID: s.callID})
		if p.ExecutableCode.Code != "" {
			s.emit(dave.EventToolCallDelta{ID: s.callID, Input: p.ExecutableCode.Code})
		}
		s.reply.Parts = append(s.reply.Parts, p)
	case p.CodeExecutionResult != nil:
		s.closeText()
		if s.callID == "" {
			s.callID = "exec_" + uuid.NewString()
			s.emit(dave.EventToolCallCreated{ID: s.callID})
		}
		if logs := resultLogs(p.CodeExecutionResult); logs != "" {
			s.emit(dave.EventToolCallDelta{
				ID:      s.callID,
				Outputs: []dave.CodeOutput{{Kind: dave.OutputLogs, Logs: logs}},
			})
		}
		s.closeCall()
		s.reply.Parts = append(s.reply.Parts, p)
	case p.InlineData != nil && strings.HasPrefix(p.InlineData.MIMEType, "image/"):
		s.closeText()
		handle := s.blobs.Put(p.InlineData.MIMEType, p.InlineData.Data)
		s.emit(dave.EventImageFileDone{FileID: handle})
	case p.Text != "":
		if !s.inText {
			s.closeCall()
			s.inText = true
			s.emit(dave.EventTextCreated{})
		}
		s.emit(dave.EventTextDelta{Delta: p.Text})
		s.appendReplyText(p.Text)
	}
}

// appendReplyText merges consecutive text fragments into one reply part.
func (s *stream) appendReplyText(text string) {
	if n := len(s.reply.Parts); n > 0 {
		last := s.reply.Parts[n-1]
		if last.Text != "" && last.ExecutableCode == nil && last.CodeExecutionResult == nil {
			last.Text += text
			return
		}
	}
	s.reply.Parts = append(s.reply.Parts, &genai.Part{Text: text})
}

func (s *stream) closeText() {
	if s.inText {
		s.emit(dave.EventTextDone{})
		s.inText = false
	}
}

func (s *stream) closeCall() {
	if s.callID != "" {
		s.emit(dave.EventToolCallDone{ID: s.callID})
		s.callID = ""
	}
}

func (s *stream) finish() {
	s.closeText()
	s.closeCall()
	s.state = stateComplete
	if s.onComplete != nil && len(s.reply.Parts) > 0 {
		reply := s.reply
		s.onComplete(&reply)
	}
}

// resultLogs renders a code execution result as printed output.
func resultLogs(r *genai.CodeExecutionResult) string {
	if r.Outcome == genai.OutcomeOK || r.Outcome == "" {
		return r.Output
	}
	if r.Output == "" {
		return string(r.Outcome)
	}
	return r.Output + "\n" + string(r.Outcome)
}
