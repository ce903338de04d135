package json_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/dave"
	davejson "github.com/fwojciec/dave/json"
	"github.com/fwojciec/dave/mock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func askedSession(t *testing.T) *dave.Session {
	t.Helper()
	runs := &mock.RunService{
		RunFn: func(ctx context.Context, conversationID string, req dave.RunRequest) (dave.Stream, error) {
			return mock.Events(
				dave.EventTextCreated{},
				dave.EventTextDelta{Delta: "Summing. "},
				dave.EventTextDone{},
				dave.EventToolCallCreated{ID: "c1"},
				dave.EventToolCallDelta{ID: "c1", Input: "print(1+1)"},
				dave.EventToolCallDelta{ID: "c1", Outputs: []dave.CodeOutput{{Kind: dave.OutputLogs, Logs: "2"}}},
				dave.EventToolCallDone{ID: "c1"},
				dave.EventTextCreated{},
				dave.EventTextDelta{Delta: "The sum is 2."},
				dave.EventTextDone{},
			), nil
		},
	}
	moderator := &mock.Moderator{
		FlaggedFn: func(ctx context.Context, text string) (bool, error) { return false, nil },
	}
	s := dave.NewSession(runs, &mock.FileService{}, moderator, dave.WithSessionPreamble(""))
	require.NoError(t, s.Ask(t.Context(), "What is 1+1?"))
	return s
}

func cloneTurns(s *dave.Session) []dave.Turn {
	var turns []dave.Turn
	for _, t := range s.Transcript.Turns() {
		turns = append(turns, t.Clone())
	}
	return turns
}

func TestMarshalSession_RoundTrip(t *testing.T) {
	t.Parallel()
	s := askedSession(t)

	data, err := davejson.MarshalSession(s)
	require.NoError(t, err)

	got, err := davejson.UnmarshalDocument(data)
	require.NoError(t, err)

	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "conv-1", got.ConversationID)
	assert.True(t, s.CreatedAt.Equal(got.CreatedAt))
	if diff := cmp.Diff(cloneTurns(s), got.Turns, cmpopts.IgnoreUnexported(dave.TextBlock{})); diff != "" {
		t.Errorf("turns mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalSession_ImagesOmitBytes(t *testing.T) {
	t.Parallel()
	runs := &mock.RunService{
		RunFn: func(ctx context.Context, conversationID string, req dave.RunRequest) (dave.Stream, error) {
			return mock.Events(dave.EventImageFileDone{FileID: "img-1"}), nil
		},
	}
	files := &mock.FileService{
		ContentFn: func(ctx context.Context, id string) (dave.File, error) {
			return dave.File{ID: id, Data: []byte("\x89PNG\r\n\x1a\n")}, nil
		},
		DeleteFn: func(ctx context.Context, id string) error { return nil },
	}
	moderator := &mock.Moderator{
		FlaggedFn: func(ctx context.Context, text string) (bool, error) { return false, nil },
	}
	s := dave.NewSession(runs, files, moderator, dave.WithImageStore(mock.MemoryImages()))
	require.NoError(t, s.Ask(t.Context(), "Plot it"))

	data, err := davejson.MarshalSession(s)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"data"`)

	got, err := davejson.UnmarshalDocument(data)
	require.NoError(t, err)
	var img *dave.ImageBlock
	for _, b := range got.Turns[1].Blocks {
		if ib, ok := b.(*dave.ImageBlock); ok {
			img = ib
		}
	}
	require.NotNil(t, img)
	require.Len(t, img.Images, 1)
	assert.Equal(t, "img-1", img.Images[0].Handle)
	assert.Equal(t, "image/png", img.Images[0].MimeType)
	assert.NotEmpty(t, img.Images[0].Path)
	assert.Empty(t, img.Images[0].Data)
}

func TestUnmarshalDocument_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{`},
		{"unsupported version", `{"version":2}`},
		{"unknown role", `{"version":1,"turns":[{"role":"system"}]}`},
		{"unknown block", `{"version":1,"turns":[{"role":"user","blocks":[{"type":"video"}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := davejson.UnmarshalDocument([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()
	s := askedSession(t)
	path := filepath.Join(t.TempDir(), "nested", "transcript.json")

	require.NoError(t, davejson.Save(path, s))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	doc, err := davejson.Load(path)
	require.NoError(t, err)
	require.Len(t, doc.Turns, 2)
	assert.Equal(t, "What is 1+1?", doc.Turns[0].Text())
	assert.Equal(t, "Summing. The sum is 2.", doc.Turns[1].Text())
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := davejson.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
