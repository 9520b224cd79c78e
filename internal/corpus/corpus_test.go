package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestEnumerateSortsAndSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"b.txt":       "bee",
		"a.txt":       "ay",
		"c.md":        "see",
		"sub/d.txt":   "dee",
		"sub/e/f.txt": "eff",
	})

	paths, err := Enumerate(dir, "*")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "c.md"),
	}, paths)

	paths, err = Enumerate(dir, "**/*.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "sub", "d.txt"),
		filepath.Join(dir, "sub", "e", "f.txt"),
	}, paths)
}

func TestEnumerateErrors(t *testing.T) {
	_, err := Enumerate(filepath.Join(t.TempDir(), "missing"), "*")
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = Enumerate(file, "*")
	require.Error(t, err)

	_, err = Enumerate(t.TempDir(), "[")
	require.Error(t, err)
}

func TestLoadPreservesOrderAndReportsFailures(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"1.txt": "one", "2.txt": "two", "3.txt": "three", "4.txt": "four", "5.txt": "five",
	})
	paths := []string{
		filepath.Join(dir, "1.txt"),
		filepath.Join(dir, "missing.txt"),
		filepath.Join(dir, "2.txt"),
		filepath.Join(dir, "3.txt"),
		filepath.Join(dir, "4.txt"),
		filepath.Join(dir, "5.txt"),
	}

	var got []Content
	err := Load(context.Background(), paths, 2, func(c Content) error {
		got = append(got, c)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, len(paths))
	for i, c := range got {
		assert.Equal(t, paths[i], c.Path)
	}
	assert.Error(t, got[1].Err)
	assert.Nil(t, got[1].Data)
	assert.Equal(t, "five", string(got[5].Data))
}

func TestLoadStopsOnCallbackError(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"1.txt": "one", "2.txt": "two"})
	paths := []string{filepath.Join(dir, "1.txt"), filepath.Join(dir, "2.txt")}

	stop := errors.New("stop")
	calls := 0
	err := Load(context.Background(), paths, 1, func(c Content) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestLoadHonoursCancellation(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"1.txt": "one"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Load(ctx, []string{filepath.Join(dir, "1.txt")}, 1, func(c Content) error {
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}
