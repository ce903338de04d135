package dave_test

import (
	"testing"

	"github.com/fwojciec/dave"
	"github.com/stretchr/testify/assert"
)

func TestEventTypeSwitch_Exhaustive(t *testing.T) {
	t.Parallel()
	events := []dave.Event{
		dave.EventTextCreated{},
		dave.EventTextDelta{Delta: "hello"},
		dave.EventTextDone{},
		dave.EventToolCallCreated{ID: "call_1"},
		dave.EventToolCallDelta{ID: "call_1", Input: "x = 1"},
		dave.EventToolCallDone{ID: "call_1"},
		dave.EventImageFileDone{FileID: "file-1"},
		dave.EventTimeout{},
		dave.EventException{},
	}
	assert.Len(t, events, 9, "update slice and switch when adding new Event types")
	for _, e := range events {
		switch e.(type) {
		case dave.EventTextCreated:
		case dave.EventTextDelta:
		case dave.EventTextDone:
		case dave.EventToolCallCreated:
		case dave.EventToolCallDelta:
		case dave.EventToolCallDone:
		case dave.EventImageFileDone:
		case dave.EventTimeout:
		case dave.EventException:
		default:
			t.Fatalf("unexpected event type: %T", e)
		}
	}
}

func TestBlockTypeSwitch_Exhaustive(t *testing.T) {
	t.Parallel()
	blocks := []dave.Block{
		dave.NewTextBlock("q"),
		&dave.CodeInputBlock{},
		&dave.CodeOutputBlock{},
		&dave.ImageBlock{},
		&dave.FileBlock{},
	}
	assert.Len(t, blocks, 5, "update slice and switch when adding new Block types")
	for _, b := range blocks {
		switch b.(type) {
		case *dave.TextBlock:
		case *dave.CodeInputBlock:
		case *dave.CodeOutputBlock:
		case *dave.ImageBlock:
		case *dave.FileBlock:
		default:
			t.Fatalf("unexpected block type: %T", b)
		}
		assert.False(t, dave.IsOpen(b))
	}
}

func TestImage_DataURL(t *testing.T) {
	t.Parallel()
	img := dave.Image{MimeType: "image/png", Data: "iVBORw0KGgo="}
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", img.DataURL())
}
