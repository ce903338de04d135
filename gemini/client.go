package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fwojciec/dave"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Interface compliance checks.
var (
	_ dave.RunService  = (*Client)(nil)
	_ dave.FileService = (*Client)(nil)
	_ dave.Moderator   = (*Client)(nil)
)

// ErrNotFound indicates an unknown conversation or file handle.
var ErrNotFound = errors.New("not found")

// Client runs conversations against Gemini with code execution enabled.
type Client struct {
	client          *genai.Client
	model           string
	moderationModel string
	instructions    string
	baseURL         string
	logger          *zap.Logger
	blobs           *Blobs

	mu            sync.Mutex
	conversations map[string]*conversation
	uploads       map[string]*genai.File
}

// conversation is the replayed history of one chat.
type conversation struct {
	history  []*genai.Content
	files    []string // attached upload names
	included int      // files already sent in a user turn
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the model runs use when the request names none.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithModerationModel sets the model used to classify questions.
func WithModerationModel(model string) Option {
	return func(c *Client) { c.moderationModel = model }
}

// WithInstructions sets the default system instruction.
func WithInstructions(s string) Option {
	return func(c *Client) { c.instructions = s }
}

// WithBaseURL overrides the API endpoint. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		model:           defaultModel,
		moderationModel: defaultModerationModel,
		instructions:    defaultInstructions,
		logger:          zap.NewNop(),
		blobs:           NewBlobs(),
		conversations:   make(map[string]*conversation),
		uploads:         make(map[string]*genai.File),
	}
	for _, o := range opts {
		o(c)
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c.client = gc
	return c, nil
}

// Blobs returns the store holding inline images produced by runs.
func (c *Client) Blobs() *Blobs { return c.blobs }

// CreateConversation starts an empty in-memory conversation.
func (c *Client) CreateConversation(ctx context.Context) (string, error) {
	id := uuid.NewString()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversations[id] = &conversation{}
	return id, nil
}

// AttachFiles makes uploaded files part of the next user message.
func (c *Client) AttachFiles(ctx context.Context, conversationID string, fileIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, err := c.conversation(conversationID)
	if err != nil {
		return err
	}
	for _, id := range fileIDs {
		if _, ok := c.uploads[id]; !ok {
			return fmt.Errorf("gemini: file %s: %w", id, ErrNotFound)
		}
	}
	conv.files = append([]string(nil), fileIDs...)
	if conv.included > len(conv.files) {
		conv.included = len(conv.files)
	}
	return nil
}

// AddMessage appends a user message, carrying any files attached since the
// previous message.
func (c *Client) AddMessage(ctx context.Context, conversationID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, err := c.conversation(conversationID)
	if err != nil {
		return err
	}
	var parts []*genai.Part
	for _, id := range conv.files[conv.included:] {
		f := c.uploads[id]
		parts = append(parts, &genai.Part{FileData: &genai.FileData{FileURI: f.URI, MIMEType: f.MIMEType}})
	}
	conv.included = len(conv.files)
	parts = append(parts, &genai.Part{Text: text})
	conv.history = append(conv.history, &genai.Content{Role: "user", Parts: parts})
	return nil
}

// Run streams a response to the conversation with code execution enabled.
// The model's reply is appended to the conversation once the stream ends.
func (c *Client) Run(ctx context.Context, conversationID string, req dave.RunRequest) (dave.Stream, error) {
	c.mu.Lock()
	conv, err := c.conversation(conversationID)
	var contents []*genai.Content
	if err == nil {
		contents = append(contents, conv.history...)
	}
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	seq := c.client.Models.GenerateContentStream(ctx, model, contents, BuildConfig(req, c.instructions))
	return NewStreamFromIter(ctx, seq,
		WithBlobs(c.blobs),
		WithOnComplete(func(reply *genai.Content) {
			c.mu.Lock()
			defer c.mu.Unlock()
			if conv, ok := c.conversations[conversationID]; ok {
				conv.history = append(conv.history, reply)
			}
		}),
	), nil
}

// Artifacts returns nothing: Gemini code execution only produces inline
// images, which arrive through the stream.
func (c *Client) Artifacts(ctx context.Context, conversationID string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.conversation(conversationID); err != nil {
		return nil, err
	}
	return nil, nil
}

// DeleteConversation forgets the conversation.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.conversation(conversationID); err != nil {
		return err
	}
	delete(c.conversations, conversationID)
	return nil
}

// Upload sends a file to the Files API.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	f, err := c.client.Files.Upload(ctx, r, &genai.UploadFileConfig{
		MIMEType:    MIMEType(name),
		DisplayName: name,
	})
	if err != nil {
		return "", fmt.Errorf("gemini: upload %s: %w", name, err)
	}
	c.mu.Lock()
	c.uploads[f.Name] = f
	c.mu.Unlock()
	c.logger.Debug("uploaded file", zap.String("name", f.Name), zap.String("uri", f.URI))
	return f.Name, nil
}

// Content returns an inline blob produced by a run. Uploaded files cannot be
// downloaded from the Files API.
func (c *Client) Content(ctx context.Context, id string) (dave.File, error) {
	mimeType, data, ok := c.blobs.Get(id)
	if !ok {
		return dave.File{}, fmt.Errorf("gemini: content %s: %w", id, ErrNotFound)
	}
	return dave.File{ID: id, Name: blobName(id, mimeType), Data: data}, nil
}

// Delete removes an inline blob or an uploaded file.
func (c *Client) Delete(ctx context.Context, id string) error {
	if IsBlob(id) {
		if !c.blobs.Delete(id) {
			return fmt.Errorf("gemini: delete %s: %w", id, ErrNotFound)
		}
		return nil
	}
	if _, err := c.client.Files.Delete(ctx, id, nil); err != nil {
		return fmt.Errorf("gemini: delete %s: %w", id, err)
	}
	c.mu.Lock()
	delete(c.uploads, id)
	c.mu.Unlock()
	return nil
}

// Flagged asks the moderation model for a one-token verdict. A prompt the
// API itself blocks counts as flagged.
func (c *Client) Flagged(ctx context.Context, text string) (bool, error) {
	temp := float32(0)
	resp, err := c.client.Models.GenerateContent(ctx, c.moderationModel,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: text}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: moderationPrompt}}},
			Temperature:       &temp,
			MaxOutputTokens:   1,
		})
	if err != nil {
		return false, fmt.Errorf("gemini: moderate: %w", err)
	}
	return Verdict(resp)
}

// Verdict interprets a moderation response.
func Verdict(resp *genai.GenerateContentResponse) (bool, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return true, nil
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.FinishReason == genai.FinishReasonSafety {
			return true, nil
		}
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			text.WriteString(p.Text)
		}
	}
	switch strings.TrimSpace(text.String()) {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, fmt.Errorf("gemini: unexpected moderation verdict %q", text.String())
	}
}

// BuildConfig returns the generation config for a run.
// Exported for testing.
func BuildConfig(req dave.RunRequest, defaultInstructions string) *genai.GenerateContentConfig {
	instructions := req.Instructions
	if instructions == "" {
		instructions = defaultInstructions
	}
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{CodeExecution: &genai.ToolCodeExecution{}}},
	}
	if instructions != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: instructions}}}
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}
	return config
}

// MIMEType guesses the upload MIME type from a file name.
func MIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".csv":
		return "text/csv"
	case ".tsv":
		return "text/tab-separated-values"
	case ".json":
		return "application/json"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if base, _, err := mime.ParseMediaType(t); err == nil {
			return base
		}
	}
	return "text/plain"
}

// conversation returns the conversation with id. Callers hold c.mu.
func (c *Client) conversation(id string) (*conversation, error) {
	conv, ok := c.conversations[id]
	if !ok {
		return nil, fmt.Errorf("gemini: conversation %s: %w", id, ErrNotFound)
	}
	return conv, nil
}
