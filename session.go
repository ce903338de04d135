package dave

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Session drives the interaction with the hosted assistant: it uploads
// datasets, screens and forwards questions, feeds each run's events to a
// Reducer, collects generated files, and cleans up remote resources.
//
// A Session processes at most one run at a time and must be driven from a
// single goroutine.
type Session struct {
	ID         string
	Transcript *Transcript
	CreatedAt  time.Time
	UpdatedAt  time.Time

	runs      RunService
	files     FileService
	moderator Moderator
	images    ImageStore
	artifacts ArtifactStore
	audit     AuditLog
	logger    *zap.Logger
	preamble  string
	request   RunRequest
	timeout   time.Duration

	conversationID string
	uploads        []string
	attached       int
	collected      map[string]bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithImageStore sets the local cache images are written to.
func WithImageStore(is ImageStore) Option {
	return func(s *Session) { s.images = is }
}

// WithArtifactStore sets where generated files are saved. Without one,
// generated files are not collected.
func WithArtifactStore(as ArtifactStore) Option {
	return func(s *Session) { s.artifacts = as }
}

// WithAuditLog sets the audit log a record is written to per question.
func WithAuditLog(a AuditLog) Option {
	return func(s *Session) { s.audit = a }
}

// WithRunRequest sets the options every run is started with.
func WithRunRequest(req RunRequest) Option {
	return func(s *Session) { s.request = req }
}

// WithTimeout bounds the duration of each run. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithSessionPreamble sets the label seeded into each assistant text block.
func WithSessionPreamble(p string) Option {
	return func(s *Session) { s.preamble = p }
}

// NewSession creates a Session backed by the given services.
func NewSession(runs RunService, files FileService, moderator Moderator, opts ...Option) *Session {
	now := time.Now()
	s := &Session{
		ID:         uuid.NewString(),
		Transcript: NewTranscript(),
		CreatedAt:  now,
		UpdatedAt:  now,
		runs:       runs,
		files:      files,
		moderator:  moderator,
		logger:     zap.NewNop(),
		preamble:   DefaultPreamble,
		collected:  make(map[string]bool),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ConversationID returns the remote conversation id, empty before the first
// question.
func (s *Session) ConversationID() string { return s.conversationID }

// Uploads returns the ids of uploaded datasets not yet deleted.
func (s *Session) Uploads() []string { return append([]string(nil), s.uploads...) }

// Dataset is a named file to upload for analysis.
type Dataset struct {
	Name string
	Data []byte
}

// Upload sends datasets to the file service concurrently. Ids are recorded
// in dataset order and attached to the conversation on the next question.
func (s *Session) Upload(ctx context.Context, datasets []Dataset) error {
	ids := make([]string, len(datasets))
	g, ctx := errgroup.WithContext(ctx)
	for i, d := range datasets {
		g.Go(func() error {
			id, err := s.files.Upload(ctx, d.Name, bytes.NewReader(d.Data))
			if err != nil {
				return fmt.Errorf("upload %s: %w", d.Name, err)
			}
			s.logger.Info("uploaded dataset", zap.String("name", d.Name), zap.String("file_id", id))
			ids[i] = id
			return nil
		})
	}
	err := g.Wait()
	for _, id := range ids {
		if id != "" {
			s.uploads = append(s.uploads, id)
		}
	}
	return err
}

// Snapshot is a copy of the turn being built, handed to observers after each
// reducer step.
type Snapshot struct {
	Turn   Turn
	Groups []CodeGroup
}

// AskOption configures a single Ask invocation.
type AskOption func(*askConfig)

type askConfig struct {
	observe func(Snapshot)
}

// WithObserver sets a callback that receives a snapshot after the user turn
// is added and after every event applied to the assistant turn. If nil or
// not set, snapshots are not taken.
func WithObserver(fn func(Snapshot)) AskOption {
	return func(c *askConfig) { c.observe = fn }
}

func (c *askConfig) notify(turn *Turn, r *Reducer) {
	if c.observe == nil {
		return
	}
	snap := Snapshot{Turn: turn.Clone()}
	if r != nil {
		snap.Groups = r.Groups()
	}
	c.observe(snap)
}

// Ask screens question, forwards it to the assistant and reduces the run's
// events into a new assistant turn. Flagged questions return ErrFlagged and
// discard uploaded datasets without starting a run. Timeouts and remote
// failures halt the turn, which is left frozen with whatever it held.
func (s *Session) Ask(ctx context.Context, question string, opts ...AskOption) error {
	var cfg askConfig
	for _, o := range opts {
		o(&cfg)
	}
	start := time.Now()
	rec := AuditRecord{Time: start, SessionID: s.ID, Question: question}
	err := s.ask(ctx, question, &cfg, &rec)
	rec.Duration = time.Since(start)
	rec.ConversationID = s.conversationID
	if err != nil {
		rec.Error = err.Error()
	}
	s.record(rec)
	return err
}

func (s *Session) ask(ctx context.Context, question string, cfg *askConfig, rec *AuditRecord) error {
	if err := ValidateQuestion(question); err != nil {
		return err
	}
	if s.Transcript.Active() != nil {
		return fmt.Errorf("question while a run is in flight: %w", ErrInvalidState)
	}

	flagged, err := s.moderator.Flagged(ctx, question)
	if err != nil {
		return fmt.Errorf("moderate: %w", err)
	}
	if flagged {
		rec.Flagged = true
		s.logger.Warn("question flagged", zap.String("question", question))
		if err := s.discardUploads(ctx); err != nil {
			s.logger.Warn("discard uploads", zap.Error(err))
		}
		return ErrFlagged
	}

	// The user turn is recorded only once the remote thread holds the
	// question, so a failed submission leaves the transcript untouched.
	if err := s.prepareConversation(ctx); err != nil {
		return err
	}
	if err := s.runs.AddMessage(ctx, s.conversationID, question); err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	user, err := s.Transcript.BeginUserTurn(question)
	if err != nil {
		return err
	}
	cfg.notify(user, nil)

	turn, err := s.Transcript.BeginAssistantTurn()
	if err != nil {
		return err
	}
	reducer := NewReducer(turn,
		WithFiles(s.files),
		WithImages(s.images),
		WithPreamble(s.preamble),
		WithReducerLogger(s.logger),
	)
	err = s.drain(ctx, reducer, cfg)
	if err == nil {
		s.collectArtifacts(ctx, turn)
	}
	s.Transcript.FinalizeAssistantTurn()
	cfg.notify(turn, reducer)
	s.UpdatedAt = time.Now()
	rec.Blocks, rec.Images, rec.Files = countBlocks(turn)
	return err
}

// drain pulls events from one run and applies them until the run is done or
// a terminal condition halts it.
func (s *Session) drain(ctx context.Context, reducer *Reducer, cfg *askConfig) error {
	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	stream, err := s.runs.Run(runCtx, s.conversationID, s.request)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	defer stream.Close()

	for {
		evt, err := stream.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.Is(runCtx.Err(), context.DeadlineExceeded):
				evt = EventTimeout{}
			default:
				evt = EventException{Err: err}
			}
		}
		applyErr := reducer.Apply(runCtx, evt)
		cfg.notify(reducer.Turn(), reducer)
		if applyErr != nil {
			s.logger.Error("run halted", zap.String("conversation_id", s.conversationID), zap.Error(applyErr))
			return applyErr
		}
	}
}

// prepareConversation creates the remote conversation on first use and
// attaches datasets uploaded since the last question.
func (s *Session) prepareConversation(ctx context.Context) error {
	if s.conversationID == "" {
		id, err := s.runs.CreateConversation(ctx)
		if err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		s.conversationID = id
		s.logger.Info("created conversation", zap.String("conversation_id", id))
	}
	if len(s.uploads) > s.attached {
		if err := s.runs.AttachFiles(ctx, s.conversationID, s.uploads); err != nil {
			return fmt.Errorf("attach files: %w", err)
		}
		s.attached = len(s.uploads)
	}
	return nil
}

// collectArtifacts downloads files the assistant generated, appends a
// FileBlock for each, and deletes the remote copies. Each file id is tried
// once per session: listings cover the whole conversation, so files from
// earlier turns are skipped. Failures are logged and skipped so a finished
// turn is never lost over a download.
func (s *Session) collectArtifacts(ctx context.Context, turn *Turn) {
	if s.artifacts == nil {
		return
	}
	ids, err := s.runs.Artifacts(ctx, s.conversationID)
	if err != nil {
		s.logger.Warn("list generated files", zap.Error(err))
		return
	}
	for _, id := range ids {
		if s.collected[id] {
			continue
		}
		s.collected[id] = true
		f, err := s.files.Content(ctx, id)
		if err != nil {
			s.logger.Warn("download generated file", zap.String("file_id", id), zap.Error(err))
			continue
		}
		path, err := s.artifacts.SaveArtifact(f.Name, f.Data)
		if err != nil {
			s.logger.Warn("save generated file", zap.String("file_id", id), zap.Error(err))
			continue
		}
		turn.appendBlock(&FileBlock{FileID: id, Name: f.Name, Path: path})
		if err := s.files.Delete(ctx, id); err != nil {
			s.logger.Warn("delete generated file", zap.String("file_id", id), zap.Error(err))
		}
	}
}

// discardUploads deletes every uploaded dataset.
func (s *Session) discardUploads(ctx context.Context) error {
	var g errgroup.Group
	for _, id := range s.uploads {
		g.Go(func() error {
			if err := s.files.Delete(ctx, id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			return nil
		})
	}
	s.uploads = nil
	s.attached = 0
	return g.Wait()
}

// Close deletes uploaded datasets and the remote conversation.
func (s *Session) Close(ctx context.Context) error {
	errUploads := s.discardUploads(ctx)
	var errConv error
	if s.conversationID != "" {
		if err := s.runs.DeleteConversation(ctx, s.conversationID); err != nil {
			errConv = fmt.Errorf("delete conversation: %w", err)
		} else {
			s.logger.Info("deleted conversation", zap.String("conversation_id", s.conversationID))
			s.conversationID = ""
		}
	}
	return errors.Join(errUploads, errConv)
}

func (s *Session) record(rec AuditRecord) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(rec); err != nil {
		s.logger.Warn("write audit record", zap.Error(err))
	}
}

func countBlocks(turn *Turn) (blocks, images, files int) {
	for _, b := range turn.Blocks {
		switch b := b.(type) {
		case *ImageBlock:
			images += len(b.Images)
		case *FileBlock:
			files++
		case *TextBlock:
			if b.Content == "" {
				continue
			}
		case *CodeInputBlock:
			if b.Content == "" {
				continue
			}
		case *CodeOutputBlock:
			if b.Content == "" {
				continue
			}
		}
		blocks++
	}
	return blocks, images, files
}
