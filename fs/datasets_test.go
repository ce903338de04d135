package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/dave"
	"github.com/fwojciec/dave/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestDatasets(t *testing.T) {
	t.Parallel()

	t.Run("recursive pattern filters by extension", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{
			"a.csv":          "a",
			"sub/b.CSV":      "b",
			"sub/deep/c.csv": "c",
			"notes.txt":      "skip",
		})

		got, err := fs.Datasets([]string{filepath.Join(dir, "**", "*")}, []string{".csv"})
		require.NoError(t, err)

		require.Len(t, got, 3)
		assert.Equal(t, dave.Dataset{Name: "a.csv", Data: []byte("a")}, got[0])
		assert.Equal(t, "b.CSV", got[1].Name)
		assert.Equal(t, "c.csv", got[2].Name)
	})

	t.Run("plain path matches itself", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"sales.xlsx": "xl"})

		got, err := fs.Datasets([]string{filepath.Join(dir, "sales.xlsx")}, []string{".csv", ".xlsx"})
		require.NoError(t, err)

		require.Len(t, got, 1)
		assert.Equal(t, []byte("xl"), got[0].Data)
	})

	t.Run("overlapping patterns read each file once", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"a.csv": "a"})

		got, err := fs.Datasets([]string{
			filepath.Join(dir, "*.csv"),
			filepath.Join(dir, "a.csv"),
		}, nil)
		require.NoError(t, err)

		assert.Len(t, got, 1)
	})

	t.Run("pattern with no accepted match is rejected", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"notes.txt": "x"})

		_, err := fs.Datasets([]string{filepath.Join(dir, "*")}, []string{".csv"})

		assert.ErrorIs(t, err, dave.ErrValidation)
	})

	t.Run("invalid pattern is rejected", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		_, err := fs.Datasets([]string{filepath.Join(dir, "[")}, nil)

		assert.ErrorIs(t, err, dave.ErrValidation)
	})

	t.Run("missing base directory fails", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		_, err := fs.Datasets([]string{filepath.Join(dir, "missing", "*.csv")}, nil)

		assert.Error(t, err)
	})
}

func TestGlob(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"x/1.csv": "",
		"x/2.csv": "",
		"y/3.csv": "",
	})

	got, err := fs.Glob(filepath.Join(dir, "x", "*.csv"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "x", "1.csv"),
		filepath.Join(dir, "x", "2.csv"),
	}, got)
}
