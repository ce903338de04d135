package gemini

import (
	"mime"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Blobs holds inline data produced by a run, addressed by generated handles.
// It is safe for concurrent use.
type Blobs struct {
	mu    sync.Mutex
	items map[string]blob
}

type blob struct {
	mimeType string
	data     []byte
}

// NewBlobs returns an empty store.
func NewBlobs() *Blobs {
	return &Blobs{items: make(map[string]blob)}
}

// Put stores data and returns its handle.
func (b *Blobs) Put(mimeType string, data []byte) string {
	handle := blobPrefix + uuid.NewString()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[handle] = blob{mimeType: mimeType, data: data}
	return handle
}

// Get returns the blob stored under handle.
func (b *Blobs) Get(handle string) (mimeType string, data []byte, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	it, ok := b.items[handle]
	return it.mimeType, it.data, ok
}

// Delete removes handle. It reports whether the handle existed.
func (b *Blobs) Delete(handle string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.items[handle]
	delete(b.items, handle)
	return ok
}

// Len returns the number of stored blobs.
func (b *Blobs) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// IsBlob reports whether id is a handle issued by a Blobs store.
func IsBlob(id string) bool {
	return strings.HasPrefix(id, blobPrefix)
}

// blobName returns a display file name for a blob.
func blobName(handle, mimeType string) string {
	exts, _ := mime.ExtensionsByType(mimeType)
	ext := ".bin"
	switch {
	case mimeType == "image/png":
		ext = ".png"
	case mimeType == "image/jpeg":
		ext = ".jpg"
	case len(exts) > 0:
		ext = exts[0]
	}
	return handle + ext
}
