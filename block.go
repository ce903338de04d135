package dave

// Block is a sealed interface representing one renderable unit of a turn.
// The unexported marker method prevents external implementations.
// Blocks are pointers so the reducer can grow them in place.
type Block interface {
	block()
}

// TextBlock holds assistant narration or the text of a user question.
// Content is the link-stripped rendering of everything appended so far.
type TextBlock struct {
	Content string
	Open    bool

	raw string
}

func (*TextBlock) block() {}

// NewTextBlock returns a closed TextBlock holding text verbatim.
func NewTextBlock(text string) *TextBlock {
	return &TextBlock{Content: text, raw: text}
}

// appendRaw adds a fragment and recomputes Content. Closed blocks are
// immutable.
func (b *TextBlock) appendRaw(s string) {
	if !b.Open {
		return
	}
	b.raw += s
	b.Content = StripLinks(b.raw)
}

// CodeInputBlock holds code generated by the assistant. Group identifies the
// code group the block is displayed under; zero means none was registered.
type CodeInputBlock struct {
	Content string
	Open    bool
	Group   int
}

func (*CodeInputBlock) block() {}

// CodeOutputBlock holds logs printed by executed code.
type CodeOutputBlock struct {
	Content string
	Open    bool
}

func (*CodeOutputBlock) block() {}

// ImageBlock holds images generated by executed code. It is created fully
// populated and never streamed.
type ImageBlock struct {
	Images []Image
}

func (*ImageBlock) block() {}

// Image is an image cached locally and encoded for inline embedding.
type Image struct {
	Handle   string // remote handle the image was retrieved by
	Path     string // local cache path
	MimeType string
	Data     string // base64-encoded bytes
}

// DataURL returns the image as a data: URL.
func (i Image) DataURL() string {
	return "data:" + i.MimeType + ";base64," + i.Data
}

// FileBlock references a file generated by the assistant and saved locally.
type FileBlock struct {
	FileID string
	Name   string
	Path   string
}

func (*FileBlock) block() {}

// IsOpen reports whether b is an accumulator still accepting content.
func IsOpen(b Block) bool {
	switch b := b.(type) {
	case *TextBlock:
		return b.Open
	case *CodeInputBlock:
		return b.Open
	case *CodeOutputBlock:
		return b.Open
	default:
		return false
	}
}

// closeBlock marks an accumulator block closed. Other blocks are left as-is.
func closeBlock(b Block) {
	switch b := b.(type) {
	case *TextBlock:
		b.Open = false
	case *CodeInputBlock:
		b.Open = false
	case *CodeOutputBlock:
		b.Open = false
	}
}

// cloneBlock returns a deep copy of b.
func cloneBlock(b Block) Block {
	switch b := b.(type) {
	case *TextBlock:
		c := *b
		return &c
	case *CodeInputBlock:
		c := *b
		return &c
	case *CodeOutputBlock:
		c := *b
		return &c
	case *ImageBlock:
		return &ImageBlock{Images: append([]Image(nil), b.Images...)}
	case *FileBlock:
		c := *b
		return &c
	default:
		return b
	}
}

// Interface compliance checks.
var (
	_ Block = (*TextBlock)(nil)
	_ Block = (*CodeInputBlock)(nil)
	_ Block = (*CodeOutputBlock)(nil)
	_ Block = (*ImageBlock)(nil)
	_ Block = (*FileBlock)(nil)
)
