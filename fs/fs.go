// Package fs provides local file handling: dataset discovery by glob, the
// on-disk image cache, and the directory generated files are saved to.
package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/dave"
)

// writeFileAtomic writes data to path through a temporary file in the same
// directory, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// safeName reduces name to a plain file name usable inside a directory.
func safeName(name string) (string, error) {
	base := filepath.Base(filepath.FromSlash(strings.TrimSpace(name)))
	switch base {
	case "", ".", "..", string(filepath.Separator):
		return "", fmt.Errorf("unusable file name %q: %w", name, dave.ErrValidation)
	}
	return base, nil
}
