package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/dave"
)

var (
	_ MessageBlock = (*ImageBlock)(nil)
	_ MessageBlock = (*FileBlock)(nil)
)

// ImageBlock points to an image the assistant generated. Terminals cannot
// show the image inline, so the block names the cached file.
type ImageBlock struct {
	image  dave.Image
	styles Styles
}

// NewImageBlock creates an ImageBlock.
func NewImageBlock(image dave.Image, styles Styles) *ImageBlock {
	return &ImageBlock{image: image, styles: styles}
}

func (b *ImageBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *ImageBlock) View(width int) string {
	content := b.styles.Accent.Render("▣ Chart") + " " + b.styles.Muted.Render(b.image.MimeType) + "\n  " + b.image.Path
	return lipgloss.NewStyle().Width(width).Render(content)
}

// FileBlock points to a generated file saved locally.
type FileBlock struct {
	file   dave.FileBlock
	styles Styles
}

// NewFileBlock creates a FileBlock.
func NewFileBlock(file dave.FileBlock, styles Styles) *FileBlock {
	return &FileBlock{file: file, styles: styles}
}

func (b *FileBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *FileBlock) View(width int) string {
	content := b.styles.Success.Render("⭳ "+b.file.Name) + " " + b.styles.Muted.Render("saved to "+b.file.Path)
	return lipgloss.NewStyle().Width(width).Render(content)
}
