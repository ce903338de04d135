package gemini_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/fwojciec/dave"
	"github.com/fwojciec/dave/gemini"
	"github.com/fwojciec/dave/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// mockChunks returns a genai-style streaming iterator from pre-built chunks.
func mockChunks(chunks ...*genai.GenerateContentResponse) func(func(*genai.GenerateContentResponse, error) bool) {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
	}
}

func chunk(reason genai.FinishReason, parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: "model", Parts: parts},
			FinishReason: reason,
		}},
	}
}

func collectStreamEvents(t *testing.T, s dave.Stream) []dave.Event {
	t.Helper()
	var events []dave.Event
	for {
		evt, err := s.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		events = append(events, evt)
	}
	return events
}

// callID returns the id of the first ToolCallCreated event.
func callID(t *testing.T, events []dave.Event) string {
	t.Helper()
	for _, e := range events {
		if c, ok := e.(dave.EventToolCallCreated); ok {
			require.NotEmpty(t, c.ID)
			return c.ID
		}
	}
	t.Fatal("no tool call created")
	return ""
}

func TestStream_TextDelta(t *testing.T) {
	t.Parallel()
	s := gemini.NewStreamFromIter(context.Background(), mockChunks(
		chunk("", &genai.Part{Text: "Hello"}),
		chunk(genai.FinishReasonStop, &genai.Part{Text: " world"}),
	))

	events := collectStreamEvents(t, s)

	assert.Equal(t, []dave.Event{
		dave.EventTextCreated{},
		dave.EventTextDelta{Delta: "Hello"},
		dave.EventTextDelta{Delta: " world"},
		dave.EventTextDone{},
	}, events)
}

func TestStream_SkipsThoughts(t *testing.T) {
	t.Parallel()
	s := gemini.NewStreamFromIter(context.Background(), mockChunks(
		chunk("", &genai.Part{Text: "planning", Thought: true}, &genai.Part{Text: "Answer"}),
	))

	events := collectStreamEvents(t, s)

	assert.Equal(t, []dave.Event{
		dave.EventTextCreated{},
		dave.EventTextDelta{Delta: "Answer"},
		dave.EventTextDone{},
	}, events)
}

func TestStream_CodeExecution(t *testing.T) {
	t.Parallel()
	s := gemini.NewStreamFromIter(context.Background(), mockChunks(
		chunk("", &genai.Part{Text: "Computing."}),
		chunk("", &genai.Part{ExecutableCode: &genai.ExecutableCode{Code: "print(1+2)", Language: genai.LanguagePython}}),
		chunk("", &genai.Part{CodeExecutionResult: &genai.CodeExecutionResult{Outcome: genai.OutcomeOK, Output: "3\n"}}),
		chunk(genai.FinishReasonStop, &genai.Part{Text: "The sum is 3."}),
	))

	events := collectStreamEvents(t, s)
	id := callID(t, events)

	assert.Equal(t, []dave.Event{
		dave.EventTextCreated{},
		dave.EventTextDelta{Delta: "Computing."},
		dave.EventTextDone{},
		dave.EventToolCallCreated{ID: id},
		dave.EventToolCallDelta{ID: id, Input: "print(1+2)"},
		dave.EventToolCallDelta{ID: id, Outputs: []dave.CodeOutput{{Kind: dave.OutputLogs, Logs: "3\n"}}},
		dave.EventToolCallDone{ID: id},
		dave.EventTextCreated{},
		dave.EventTextDelta{Delta: "The sum is 3."},
		dave.EventTextDone{},
	}, events)
}

func TestStream_CodeWithoutResult(t *testing.T) {
	t.Parallel()
	s := gemini.NewStreamFromIter(context.Background(), mockChunks(
		chunk("", &genai.Part{ExecutableCode: &genai.ExecutableCode{Code: "a=1"}}),
		chunk("", &genai.Part{ExecutableCode: &genai.ExecutableCode{Code: "b=2"}}),
	))

	events := collectStreamEvents(t, s)

	require.Len(t, events, 6)
	first := events[0].(dave.EventToolCallCreated).ID
	second := events[3].(dave.EventToolCallCreated).ID
	assert.NotEqual(t, first, second)
	assert.Equal(t, dave.EventToolCallDone{ID: first}, events[2])
	assert.Equal(t, dave.EventToolCallDone{ID: second}, events[5])
}

func TestStream_FailedExecution(t *testing.T) {
	t.Parallel()
	s := gemini.NewStreamFromIter(context.Background(), mockChunks(
		chunk("",
			&genai.Part{ExecutableCode: &genai.ExecutableCode{Code: "1/0"}},
			&genai.Part{CodeExecutionResult: &genai.CodeExecutionResult{Outcome: genai.OutcomeFailed, Output: "ZeroDivisionError"}},
		),
	))

	events := collectStreamEvents(t, s)
	id := callID(t, events)

	assert.Contains(t, events, dave.EventToolCallDelta{ID: id, Outputs: []dave.CodeOutput{{
		Kind: dave.OutputLogs,
		Logs: "ZeroDivisionError\n" + string(genai.OutcomeFailed),
	}}})
}

func TestStream_InlineImage(t *testing.T) {
	t.Parallel()
	blobs := gemini.NewBlobs()
	png := []byte("\x89PNG\r\n\x1a\n")
	s := gemini.NewStreamFromIter(context.Background(), mockChunks(
		chunk("", &genai.Part{Text: "Here:"}),
		chunk("", &genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: png}}),
	), gemini.WithBlobs(blobs))

	events := collectStreamEvents(t, s)

	require.Len(t, events, 4)
	assert.Equal(t, dave.EventTextDone{}, events[2])
	img, ok := events[3].(dave.EventImageFileDone)
	require.True(t, ok)
	assert.True(t, gemini.IsBlob(img.FileID))

	mimeType, data, ok := blobs.Get(img.FileID)
	require.True(t, ok)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, png, data)
}

func TestStream_FinishReasonRaisesException(t *testing.T) {
	t.Parallel()
	resp := chunk(genai.FinishReasonMaxTokens, &genai.Part{Text: "cut"})
	resp.Candidates[0].FinishMessage = "output limit"
	s := gemini.NewStreamFromIter(context.Background(), mockChunks(resp))

	events := collectStreamEvents(t, s)

	require.Len(t, events, 4)
	assert.Equal(t, dave.EventTextDone{}, events[2])
	exc, ok := events[3].(dave.EventException)
	require.True(t, ok)
	assert.Contains(t, exc.Err.Error(), string(genai.FinishReasonMaxTokens))
	assert.Contains(t, exc.Err.Error(), "output limit")
}

func TestStream_PromptBlocked(t *testing.T) {
	t.Parallel()
	s := gemini.NewStreamFromIter(context.Background(), mockChunks(&genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	}))

	events := collectStreamEvents(t, s)

	require.Len(t, events, 1)
	assert.IsType(t, dave.EventException{}, events[0])
}

func TestStream_IteratorError(t *testing.T) {
	t.Parallel()
	wantErr := errors.New("quota exhausted")
	seq := func(yield func(*genai.GenerateContentResponse, error) bool) {
		if !yield(chunk("", &genai.Part{Text: "Hi"}), nil) {
			return
		}
		yield(nil, wantErr)
	}
	s := gemini.NewStreamFromIter(context.Background(), seq)

	_, err := s.Next()
	require.NoError(t, err)
	_, err = s.Next()
	require.NoError(t, err)
	_, err = s.Next()
	assert.ErrorIs(t, err, wantErr)
	_, err = s.Next()
	assert.ErrorIs(t, err, wantErr)
	require.NoError(t, s.Close())
}

func TestStream_OnCompleteReceivesReply(t *testing.T) {
	t.Parallel()
	var reply *genai.Content
	s := gemini.NewStreamFromIter(context.Background(), mockChunks(
		chunk("", &genai.Part{Text: "Mean"}),
		chunk("", &genai.Part{Text: " is"}),
		chunk("", &genai.Part{ExecutableCode: &genai.ExecutableCode{Code: "df.mean()"}}),
		chunk("", &genai.Part{CodeExecutionResult: &genai.CodeExecutionResult{Outcome: genai.OutcomeOK, Output: "4.2"}}),
		chunk("", &genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("png")}}),
		chunk(genai.FinishReasonStop, &genai.Part{Text: "4.2"}),
	), gemini.WithOnComplete(func(c *genai.Content) { reply = c }))

	collectStreamEvents(t, s)

	require.NotNil(t, reply)
	assert.Equal(t, "model", reply.Role)
	require.Len(t, reply.Parts, 4)
	assert.Equal(t, "Mean is", reply.Parts[0].Text)
	assert.Equal(t, "df.mean()", reply.Parts[1].ExecutableCode.Code)
	assert.Equal(t, "4.2", reply.Parts[2].CodeExecutionResult.Output)
	assert.Equal(t, "4.2", reply.Parts[3].Text)
}

func TestStream_NextAfterClose(t *testing.T) {
	t.Parallel()
	s := gemini.NewStreamFromIter(context.Background(), mockChunks(chunk("", &genai.Part{Text: "Hi"})))

	require.NoError(t, s.Close())
	_, err := s.Next()
	assert.ErrorIs(t, err, dave.ErrStreamClosed)
}

func TestStream_FeedsReducer(t *testing.T) {
	t.Parallel()
	blobs := gemini.NewBlobs()
	s := gemini.NewStreamFromIter(context.Background(), mockChunks(
		chunk("", &genai.Part{ExecutableCode: &genai.ExecutableCode{Code: "plt.plot(x)"}}),
		chunk("", &genai.Part{CodeExecutionResult: &genai.CodeExecutionResult{Outcome: genai.OutcomeOK}}),
		chunk("", &genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("\x89PNG\r\n\x1a\n")}}),
		chunk(genai.FinishReasonStop, &genai.Part{Text: "Plotted."}),
	), gemini.WithBlobs(blobs))

	ctx := context.Background()
	turn, err := dave.NewTranscript().BeginAssistantTurn()
	require.NoError(t, err)
	files := &mock.FileService{
		ContentFn: func(ctx context.Context, id string) (dave.File, error) {
			_, data, ok := blobs.Get(id)
			require.True(t, ok)
			return dave.File{ID: id, Data: data}, nil
		},
		DeleteFn: func(ctx context.Context, id string) error {
			blobs.Delete(id)
			return nil
		},
	}
	r := dave.NewReducer(turn, dave.WithPreamble(""), dave.WithFiles(files), dave.WithImages(mock.MemoryImages()))
	require.NoError(t, r.ApplyAll(ctx, collectStreamEvents(t, s)))

	var images int
	for _, b := range turn.Blocks {
		if img, ok := b.(*dave.ImageBlock); ok {
			images++
			assert.Equal(t, "image/png", img.Images[0].MimeType)
		}
	}
	assert.Equal(t, 1, images)
	assert.Equal(t, "Plotted.", turn.Text())
	assert.Equal(t, 0, blobs.Len())
	assert.Equal(t, []dave.CodeGroup{{ID: 1, Status: dave.GroupComplete}}, r.Groups())
}
