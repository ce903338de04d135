package gemini_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/fwojciec/dave"
	"github.com/fwojciec/dave/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestBuildConfig(t *testing.T) {
	t.Parallel()
	temp := 0.0
	config := gemini.BuildConfig(dave.RunRequest{Temperature: &temp}, "Be Dave.")

	require.Len(t, config.Tools, 1)
	assert.NotNil(t, config.Tools[0].CodeExecution)
	require.NotNil(t, config.SystemInstruction)
	assert.Equal(t, "Be Dave.", config.SystemInstruction.Parts[0].Text)
	require.NotNil(t, config.Temperature)
	assert.Equal(t, float32(0), *config.Temperature)
}

func TestBuildConfig_RequestInstructionsWin(t *testing.T) {
	t.Parallel()
	config := gemini.BuildConfig(dave.RunRequest{Instructions: "Only tables."}, "Be Dave.")

	assert.Equal(t, "Only tables.", config.SystemInstruction.Parts[0].Text)
	assert.Nil(t, config.Temperature)
}

func TestMIMEType(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "text/csv", gemini.MIMEType("sales.CSV"))
	assert.Equal(t, "application/json", gemini.MIMEType("rows.json"))
	assert.Equal(t, "text/plain", gemini.MIMEType("notes"))
}

func TestVerdict(t *testing.T) {
	t.Parallel()
	text := func(s string) *genai.GenerateContentResponse {
		return chunk(genai.FinishReasonStop, &genai.Part{Text: s})
	}

	flagged, err := gemini.Verdict(text("1"))
	require.NoError(t, err)
	assert.True(t, flagged)

	flagged, err = gemini.Verdict(text("0\n"))
	require.NoError(t, err)
	assert.False(t, flagged)

	flagged, err = gemini.Verdict(chunk(genai.FinishReasonSafety))
	require.NoError(t, err)
	assert.True(t, flagged)

	flagged, err = gemini.Verdict(&genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	})
	require.NoError(t, err)
	assert.True(t, flagged)

	_, err = gemini.Verdict(text("maybe"))
	assert.Error(t, err)
}

func TestBlobs(t *testing.T) {
	t.Parallel()
	b := gemini.NewBlobs()

	h := b.Put("image/png", []byte("png"))
	assert.True(t, gemini.IsBlob(h))
	assert.Equal(t, 1, b.Len())
	assert.NotEqual(t, h, b.Put("image/png", []byte("other")))

	mimeType, data, ok := b.Get(h)
	require.True(t, ok)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, []byte("png"), data)

	assert.True(t, b.Delete(h))
	assert.False(t, b.Delete(h))
	_, _, ok = b.Get(h)
	assert.False(t, ok)
	assert.False(t, gemini.IsBlob("files/abc123"))
}

func TestClient_Conversations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, err := gemini.New(ctx, "test-key")
	require.NoError(t, err)

	id, err := c.CreateConversation(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, c.AddMessage(ctx, id, "hello"))
	ids, err := c.Artifacts(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, ids)

	err = c.AttachFiles(ctx, id, []string{"files/unknown"})
	assert.ErrorIs(t, err, gemini.ErrNotFound)

	require.NoError(t, c.DeleteConversation(ctx, id))
	assert.ErrorIs(t, c.AddMessage(ctx, id, "again"), gemini.ErrNotFound)
	assert.ErrorIs(t, c.DeleteConversation(ctx, id), gemini.ErrNotFound)
	_, err = c.Run(ctx, id, dave.RunRequest{})
	assert.ErrorIs(t, err, gemini.ErrNotFound)
}

func TestClient_BlobContentAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, err := gemini.New(ctx, "test-key")
	require.NoError(t, err)

	h := c.Blobs().Put("image/png", []byte("png"))
	f, err := c.Content(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, dave.File{ID: h, Name: h + ".png", Data: []byte("png")}, f)

	require.NoError(t, c.Delete(ctx, h))
	_, err = c.Content(ctx, h)
	assert.ErrorIs(t, err, gemini.ErrNotFound)
	assert.ErrorIs(t, c.Delete(ctx, h), gemini.ErrNotFound)
}

// fakeGemini answers generateContent with a fixed verdict and
// streamGenerateContent with fixed SSE chunks, recording request bodies.
type fakeGemini struct {
	mu      sync.Mutex
	streams [][]byte
}

func (f *fakeGemini) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		switch {
		case strings.Contains(r.URL.Path, ":streamGenerateContent"):
			f.mu.Lock()
			f.streams = append(f.streams, body)
			f.mu.Unlock()
			w.Header().Set("Content-Type", "text/event-stream")
			for _, c := range []string{
				`{"candidates":[{"content":{"role":"model","parts":[{"text":"Mean is "}]}}]}`,
				`{"candidates":[{"content":{"role":"model","parts":[{"executableCode":{"language":"PYTHON","code":"print(2)"}}]}}]}`,
				`{"candidates":[{"content":{"role":"model","parts":[{"codeExecutionResult":{"outcome":"OUTCOME_OK","output":"2\n"}}]}}]}`,
				`{"candidates":[{"content":{"role":"model","parts":[{"text":"2."}]},"finishReason":"STOP"}]}`,
			} {
				fmt.Fprintf(w, "data: %s\r\n\r\n", c)
			}
		case strings.Contains(r.URL.Path, ":generateContent"):
			var req struct {
				Contents []struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"contents"`
			}
			assert.NoError(t, json.Unmarshal(body, &req))
			verdict := "0"
			if len(req.Contents) > 0 && req.Contents[0].Parts[0].Text == "flag me" {
				verdict = "1"
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":%q}]},"finishReason":"STOP"}]}`, verdict)
		default:
			http.NotFound(w, r)
		}
	}
}

func (f *fakeGemini) streamBodies() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.streams...)
}

func newFakeClient(t *testing.T) (*fakeGemini, *gemini.Client) {
	t.Helper()
	fake := &fakeGemini{}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	c, err := gemini.New(context.Background(), "test-key", gemini.WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)
	return fake, c
}

func TestClient_Flagged(t *testing.T) {
	t.Parallel()
	_, c := newFakeClient(t)
	ctx := context.Background()

	flagged, err := c.Flagged(ctx, "flag me")
	require.NoError(t, err)
	assert.True(t, flagged)

	flagged, err = c.Flagged(ctx, "What is the mean?")
	require.NoError(t, err)
	assert.False(t, flagged)
}

func TestClient_RunReplaysHistory(t *testing.T) {
	t.Parallel()
	fake, c := newFakeClient(t)
	ctx := context.Background()

	id, err := c.CreateConversation(ctx)
	require.NoError(t, err)

	ask := func(q string) []dave.Event {
		require.NoError(t, c.AddMessage(ctx, id, q))
		s, err := c.Run(ctx, id, dave.RunRequest{})
		require.NoError(t, err)
		defer s.Close()
		return collectStreamEvents(t, s)
	}

	events := ask("What is the mean?")
	require.Len(t, events, 10)
	assert.Equal(t, dave.EventTextDelta{Delta: "Mean is "}, events[1])
	assert.Equal(t, dave.EventTextDone{}, events[9])

	ask("And the max?")

	bodies := fake.streamBodies()
	require.Len(t, bodies, 2)
	var second struct {
		Contents []struct {
			Role string `json:"role"`
		} `json:"contents"`
		Tools []map[string]any `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(bodies[1], &second))
	roles := make([]string, len(second.Contents))
	for i, c := range second.Contents {
		roles[i] = c.Role
	}
	assert.Equal(t, []string{"user", "model", "user"}, roles)
	require.Len(t, second.Tools, 1)
	assert.Contains(t, second.Tools[0], "codeExecution")
}
