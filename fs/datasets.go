package fs

import (
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/dave"
)

// Datasets reads every file matched by patterns whose extension is in
// extensions (case-insensitive; empty accepts all). Patterns support ** for
// recursive matching; a plain path matches itself. A pattern that matches no
// acceptable file is an error. Files matched by several patterns are read
// once.
func Datasets(patterns []string, extensions []string) ([]dave.Dataset, error) {
	var paths []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := Glob(pattern)
		if err != nil {
			return nil, err
		}
		var accepted int
		for _, m := range matches {
			if !hasExtension(m, extensions) {
				continue
			}
			accepted++
			if seen[m] {
				continue
			}
			seen[m] = true
			paths = append(paths, m)
		}
		if accepted == 0 {
			return nil, fmt.Errorf("no %s files match %q: %w", strings.Join(extensions, "/"), pattern, dave.ErrValidation)
		}
	}

	datasets := make([]dave.Dataset, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read dataset: %w", err)
		}
		datasets = append(datasets, dave.Dataset{Name: filepath.Base(p), Data: data})
	}
	return datasets, nil
}

// Glob returns the regular files matching pattern, sorted.
func Glob(pattern string) ([]string, error) {
	pattern = filepath.ToSlash(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, dave.ErrValidation)
	}
	base, rel := doublestar.SplitPattern(pattern)
	if _, err := os.Stat(filepath.FromSlash(base)); err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}

	var matches []string
	err := doublestar.GlobWalk(os.DirFS(filepath.FromSlash(base)), rel, func(p string, d iofs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		matches = append(matches, filepath.Join(filepath.FromSlash(base), filepath.FromSlash(p)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	slices.Sort(matches)
	return matches, nil
}

func hasExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
