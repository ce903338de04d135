package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/fwojciec/dave"
)

// Interface compliance checks.
var (
	_ dave.RunService  = (*Client)(nil)
	_ dave.FileService = (*Client)(nil)
	_ dave.Moderator   = (*Client)(nil)
)

// Client talks to the OpenAI Assistants, Files and Moderations APIs.
type Client struct {
	apiKey      string
	assistantID string
	baseURL     string
	httpClient  *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAssistantID sets the assistant runs are started with.
func WithAssistantID(id string) Option {
	return func(c *Client) { c.assistantID = id }
}

// New creates a new OpenAI [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CreateConversation creates an empty thread.
func (c *Client) CreateConversation(ctx context.Context) (string, error) {
	var thread apiObject
	if err := c.doJSON(ctx, http.MethodPost, threadsPath, struct{}{}, &thread); err != nil {
		return "", err
	}
	return thread.ID, nil
}

// AttachFiles sets the code interpreter's files on the thread. fileIDs
// replaces the previous set.
func (c *Client) AttachFiles(ctx context.Context, conversationID string, fileIDs []string) error {
	body := apiModifyThread{ToolResources: apiToolResources{
		CodeInterpreter: &apiCodeInterpreterResources{FileIDs: fileIDs},
	}}
	return c.doJSON(ctx, http.MethodPost, threadsPath+"/"+conversationID, body, nil)
}

// AddMessage appends a user message to the thread.
func (c *Client) AddMessage(ctx context.Context, conversationID, text string) error {
	body := apiCreateMessage{Role: "user", Content: text}
	return c.doJSON(ctx, http.MethodPost, threadsPath+"/"+conversationID+"/messages", body, nil)
}

// Run starts a streaming run on the thread with the code interpreter forced
// on, and returns a [dave.Stream] that emits semantic events.
func (c *Client) Run(ctx context.Context, conversationID string, req dave.RunRequest) (dave.Stream, error) {
	if c.assistantID == "" {
		return nil, fmt.Errorf("openai: assistant id not set: %w", dave.ErrValidation)
	}
	body, err := json.Marshal(apiRunRequest{
		AssistantID:  c.assistantID,
		Model:        req.Model,
		Instructions: req.Instructions,
		Temperature:  req.Temperature,
		ToolChoice:   apiToolChoice{Type: "code_interpreter"},
		Stream:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, threadsPath+"/"+conversationID+"/runs", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}
	return newStream(ctx, resp.Body), nil
}

// Artifacts lists files referenced by the thread's assistant messages,
// either as attachments or as file path annotations, in message order
// without duplicates.
func (c *Client) Artifacts(ctx context.Context, conversationID string) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	after := ""
	for {
		q := url.Values{}
		q.Set("order", "asc")
		q.Set("limit", strconv.Itoa(messagePageMax))
		if after != "" {
			q.Set("after", after)
		}
		var page apiMessageList
		p := threadsPath + "/" + conversationID + "/messages?" + q.Encode()
		if err := c.doJSON(ctx, http.MethodGet, p, nil, &page); err != nil {
			return nil, err
		}
		for _, m := range page.Data {
			if m.Role != "assistant" {
				continue
			}
			for _, a := range m.Attachments {
				add(a.FileID)
			}
			for _, content := range m.Content {
				if content.Text == nil {
					continue
				}
				for _, ann := range content.Text.Annotations {
					if ann.FilePath != nil {
						add(ann.FilePath.FileID)
					}
				}
			}
		}
		if !page.HasMore || page.LastID == "" {
			return ids, nil
		}
		after = page.LastID
	}
}

// DeleteConversation deletes the thread.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	return c.doJSON(ctx, http.MethodDelete, threadsPath+"/"+conversationID, nil, nil)
}

// Upload sends a file for use by the code interpreter.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("purpose", filePurpose); err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return "", fmt.Errorf("openai: read %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, filesPath, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var f apiFile
	if err := c.do(req, &f); err != nil {
		return "", err
	}
	return f.ID, nil
}

// Content downloads a file together with its display name.
func (c *Client) Content(ctx context.Context, id string) (dave.File, error) {
	var meta apiFile
	if err := c.doJSON(ctx, http.MethodGet, filesPath+"/"+id, nil, &meta); err != nil {
		return dave.File{}, err
	}
	req, err := c.newRequest(ctx, http.MethodGet, filesPath+"/"+id+"/content", nil)
	if err != nil {
		return dave.File{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dave.File{}, fmt.Errorf("openai: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return dave.File{}, parseHTTPError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return dave.File{}, fmt.Errorf("openai: read file %s: %w", id, err)
	}
	return dave.File{ID: id, Name: path.Base(meta.Filename), Data: data}, nil
}

// Delete removes a file.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, filesPath+"/"+id, nil, nil)
}

// Flagged reports whether the moderation endpoint flags text.
func (c *Client) Flagged(ctx context.Context, text string) (bool, error) {
	var resp apiModerationResponse
	if err := c.doJSON(ctx, http.MethodPost, moderationPath, apiModerationRequest{Input: text}, &resp); err != nil {
		return false, err
	}
	if len(resp.Results) == 0 {
		return false, fmt.Errorf("openai: empty moderation result")
	}
	return resp.Results[0].Flagged, nil
}

func (c *Client) newRequest(ctx context.Context, method, p string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+p, body)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", betaHeader)
	return req, nil
}

// doJSON sends in as a JSON body (when non-nil) and decodes the response
// into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, p string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("openai: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, p, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseHTTPError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("openai: decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("openai: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Message == "" {
		return fmt.Errorf("openai: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return fmt.Errorf("openai: HTTP %d: %s", resp.StatusCode, apiErr.Error.describe())
}

func (e apiErrorBody) describe() string {
	switch {
	case e.Code != "":
		return e.Code + ": " + e.Message
	case e.Type != "":
		return e.Type + ": " + e.Message
	default:
		return e.Message
	}
}
