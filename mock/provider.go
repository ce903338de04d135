// Package mock provides test doubles for dave interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/dave"
)

// Interface compliance checks.
var (
	_ dave.RunService = (*RunService)(nil)
	_ dave.Moderator  = (*Moderator)(nil)
)

// RunService is a test double for dave.RunService.
// Set the function fields for the methods you need. RunFn panics when nil
// to catch missing setup. The remaining methods are nil-safe: creating a
// conversation returns "conv-1", listing artifacts returns none, and the
// others succeed, since tests rarely need custom behavior for them.
type RunService struct {
	CreateConversationFn func(ctx context.Context) (string, error)
	AttachFilesFn        func(ctx context.Context, conversationID string, fileIDs []string) error
	AddMessageFn         func(ctx context.Context, conversationID, text string) error
	RunFn                func(ctx context.Context, conversationID string, req dave.RunRequest) (dave.Stream, error)
	ArtifactsFn          func(ctx context.Context, conversationID string) ([]string, error)
	DeleteConversationFn func(ctx context.Context, conversationID string) error
}

// CreateConversation delegates to CreateConversationFn.
func (s *RunService) CreateConversation(ctx context.Context) (string, error) {
	if s.CreateConversationFn == nil {
		return "conv-1", nil
	}
	return s.CreateConversationFn(ctx)
}

// AttachFiles delegates to AttachFilesFn.
func (s *RunService) AttachFiles(ctx context.Context, conversationID string, fileIDs []string) error {
	if s.AttachFilesFn == nil {
		return nil
	}
	return s.AttachFilesFn(ctx, conversationID, fileIDs)
}

// AddMessage delegates to AddMessageFn.
func (s *RunService) AddMessage(ctx context.Context, conversationID, text string) error {
	if s.AddMessageFn == nil {
		return nil
	}
	return s.AddMessageFn(ctx, conversationID, text)
}

// Run delegates to RunFn.
func (s *RunService) Run(ctx context.Context, conversationID string, req dave.RunRequest) (dave.Stream, error) {
	return s.RunFn(ctx, conversationID, req)
}

// Artifacts delegates to ArtifactsFn.
func (s *RunService) Artifacts(ctx context.Context, conversationID string) ([]string, error) {
	if s.ArtifactsFn == nil {
		return nil, nil
	}
	return s.ArtifactsFn(ctx, conversationID)
}

// DeleteConversation delegates to DeleteConversationFn.
func (s *RunService) DeleteConversation(ctx context.Context, conversationID string) error {
	if s.DeleteConversationFn == nil {
		return nil
	}
	return s.DeleteConversationFn(ctx, conversationID)
}

// Moderator is a test double for dave.Moderator.
// Set FlaggedFn before calling Flagged.
type Moderator struct {
	FlaggedFn func(ctx context.Context, text string) (bool, error)
}

// Flagged delegates to FlaggedFn.
func (m *Moderator) Flagged(ctx context.Context, text string) (bool, error) {
	return m.FlaggedFn(ctx, text)
}
