package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fwojciec/dave"
	"github.com/fwojciec/dave/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	t.Parallel()

	moderator := func(flagged bool, err error) *mock.Moderator {
		return &mock.Moderator{
			FlaggedFn: func(ctx context.Context, text string) (bool, error) { return flagged, err },
		}
	}

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		require.NoError(t, check(context.Background(), moderator(false, nil), "mean sales?", &out))
		assert.Equal(t, "ok\n", out.String())
	})

	t.Run("flagged", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		require.NoError(t, check(context.Background(), moderator(true, nil), "bad", &out))
		assert.Equal(t, "flagged\n", out.String())
	})

	t.Run("blank question", func(t *testing.T) {
		t.Parallel()
		err := check(context.Background(), &mock.Moderator{}, "  ", &bytes.Buffer{})
		assert.ErrorIs(t, err, dave.ErrValidation)
	})

	t.Run("moderation error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		err := check(context.Background(), moderator(false, boom), "q", &bytes.Buffer{})
		assert.ErrorIs(t, err, boom)
	})
}

func TestRootCmd_Flags(t *testing.T) {
	t.Parallel()
	cmd := newRootCmd(environment{}, t.TempDir())

	for _, name := range []string{"data", "timeout", "cache-dir", "transcript", "audit-log"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	for _, name := range []string{"provider", "api-key", "assistant-id", "model", "config", "verbose"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}

	sub, _, err := cmd.Find([]string{"check"})
	require.NoError(t, err)
	assert.Equal(t, "check", sub.Name())
}

func TestRootCmd_NoAPIKey(t *testing.T) {
	t.Parallel()
	cmd := newRootCmd(environment{}, t.TempDir())
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key found")
}

func TestRootCmd_BadDataGlobFailsBeforeTUI(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	cmd := newRootCmd(environment{GeminiKey: "gk"}, home)
	cmd.SetArgs([]string{"--data", filepath.Join(home, "missing", "*.csv")})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())

	assert.Error(t, err)
}

func TestRootCmd_ExplicitConfigMissing(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	cmd := newRootCmd(environment{GeminiKey: "gk"}, home)
	cmd.SetArgs([]string{"check", "--config", filepath.Join(home, "nope.yaml"), "hello"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
