package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/dave"
)

// Interface compliance check.
var _ dave.ArtifactStore = (*Downloads)(nil)

// maxSuffix bounds the search for a free file name.
const maxSuffix = 1000

// Downloads saves generated files into a directory without overwriting
// earlier ones: a clash on report.csv yields report-1.csv, report-2.csv, ...
type Downloads struct {
	dir string
}

// NewDownloads returns a store rooted at dir. The directory is created on
// first write.
func NewDownloads(dir string) *Downloads {
	return &Downloads{dir: dir}
}

// SaveArtifact writes data under name and returns the path written.
func (d *Downloads) SaveArtifact(name string, data []byte) (string, error) {
	base, err := safeName(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 0; i < maxSuffix; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		path := filepath.Join(d.dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, iofs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("save %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("save %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("save %s: %w", name, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("save %s: no free file name in %s", name, d.dir)
}
