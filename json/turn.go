package json

import (
	"fmt"

	"github.com/fwojciec/dave"
)

type turnDTO struct {
	Role     string     `json:"role"`
	Complete bool       `json:"complete"`
	Blocks   []blockDTO `json:"blocks"`
}

// blockDTO is the JSON representation of a Block with a type discriminator.
type blockDTO struct {
	Type    string     `json:"type"`
	Content *string    `json:"content,omitempty"`
	Group   int        `json:"group,omitempty"`
	Images  []imageDTO `json:"images,omitempty"`
	FileID  *string    `json:"file_id,omitempty"`
	Name    *string    `json:"name,omitempty"`
	Path    *string    `json:"path,omitempty"`
}

// imageDTO omits the inline bytes; the cached file at Path holds them.
type imageDTO struct {
	Handle   string `json:"handle"`
	Path     string `json:"path"`
	MimeType string `json:"mime_type"`
}

func marshalTurn(t *dave.Turn) (turnDTO, error) {
	dto := turnDTO{Role: string(t.Role), Complete: t.Complete, Blocks: make([]blockDTO, 0, len(t.Blocks))}
	for i, b := range t.Blocks {
		cb, err := marshalBlock(b)
		if err != nil {
			return turnDTO{}, fmt.Errorf("block %d: %w", i, err)
		}
		dto.Blocks = append(dto.Blocks, cb)
	}
	return dto, nil
}

func marshalBlock(b dave.Block) (blockDTO, error) {
	switch v := b.(type) {
	case *dave.TextBlock:
		return blockDTO{Type: "text", Content: &v.Content}, nil
	case *dave.CodeInputBlock:
		return blockDTO{Type: "code_input", Content: &v.Content, Group: v.Group}, nil
	case *dave.CodeOutputBlock:
		return blockDTO{Type: "code_output", Content: &v.Content}, nil
	case *dave.ImageBlock:
		images := make([]imageDTO, len(v.Images))
		for i, img := range v.Images {
			images[i] = imageDTO{Handle: img.Handle, Path: img.Path, MimeType: img.MimeType}
		}
		return blockDTO{Type: "image", Images: images}, nil
	case *dave.FileBlock:
		return blockDTO{Type: "file", FileID: &v.FileID, Name: &v.Name, Path: &v.Path}, nil
	default:
		return blockDTO{}, fmt.Errorf("unknown block type %T", b)
	}
}

func unmarshalTurn(dto turnDTO) (dave.Turn, error) {
	role := dave.Role(dto.Role)
	if role != dave.RoleUser && role != dave.RoleAssistant {
		return dave.Turn{}, fmt.Errorf("unknown role %q", dto.Role)
	}
	t := dave.Turn{Role: role, Complete: dto.Complete, Blocks: make([]dave.Block, len(dto.Blocks))}
	for i, cb := range dto.Blocks {
		b, err := unmarshalBlock(cb)
		if err != nil {
			return dave.Turn{}, fmt.Errorf("block %d: %w", i, err)
		}
		t.Blocks[i] = b
	}
	return t, nil
}

func unmarshalBlock(dto blockDTO) (dave.Block, error) {
	switch dto.Type {
	case "text":
		return dave.NewTextBlock(deref(dto.Content)), nil
	case "code_input":
		return &dave.CodeInputBlock{Content: deref(dto.Content), Group: dto.Group}, nil
	case "code_output":
		return &dave.CodeOutputBlock{Content: deref(dto.Content)}, nil
	case "image":
		images := make([]dave.Image, len(dto.Images))
		for i, img := range dto.Images {
			images[i] = dave.Image{Handle: img.Handle, Path: img.Path, MimeType: img.MimeType}
		}
		return &dave.ImageBlock{Images: images}, nil
	case "file":
		return &dave.FileBlock{FileID: deref(dto.FileID), Name: deref(dto.Name), Path: deref(dto.Path)}, nil
	default:
		return nil, fmt.Errorf("unknown block type %q", dto.Type)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
