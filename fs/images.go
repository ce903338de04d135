package fs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/dave"
)

// Interface compliance check.
var _ dave.ImageStore = (*ImageCache)(nil)

// ImageCache stores images as <dir>/<handle>.png.
type ImageCache struct {
	dir string
}

// NewImageCache returns a cache rooted at dir. The directory is created on
// first write.
func NewImageCache(dir string) *ImageCache {
	return &ImageCache{dir: dir}
}

// Save writes data for handle and returns the file path.
func (c *ImageCache) Save(handle string, data []byte) (string, error) {
	path, err := c.path(handle)
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("cache image %s: %w", handle, err)
	}
	return path, nil
}

// Load reads the image cached for handle.
func (c *ImageCache) Load(handle string) ([]byte, error) {
	path, err := c.path(handle)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", handle, err)
	}
	return data, nil
}

func (c *ImageCache) path(handle string) (string, error) {
	name, err := safeName(handle)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.dir, name+".png"), nil
}
