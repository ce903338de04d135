package bubbletea_test

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/dave"
	bt "github.com/fwojciec/dave/bubbletea"
	"github.com/stretchr/testify/require"
)

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, ask bt.AskFunc) bt.Model {
	t.Helper()
	return initModelWithSize(t, ask, 80, 24)
}

// initModelWithSize creates a model with a custom terminal size.
func initModelWithSize(t *testing.T, ask bt.AskFunc, width, height int) bt.Model {
	t.Helper()
	m := bt.New(ask, dave.DefaultTheme())
	updated, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// nopAsk answers nothing.
func nopAsk(_ context.Context, _ string, _ func(dave.Snapshot)) error {
	return nil
}

func userSnapshot(text string) dave.Snapshot {
	return dave.Snapshot{Turn: dave.Turn{
		Role:     dave.RoleUser,
		Blocks:   []dave.Block{dave.NewTextBlock(text)},
		Complete: true,
	}}
}

func assistantSnapshot(complete bool, groups []dave.CodeGroup, blocks ...dave.Block) dave.Snapshot {
	return dave.Snapshot{
		Turn:   dave.Turn{Role: dave.RoleAssistant, Blocks: blocks, Complete: complete},
		Groups: groups,
	}
}
