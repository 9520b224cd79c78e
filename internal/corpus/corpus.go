// Package corpus enumerates the documents of a corpus directory and reads
// their contents. Enumeration is lexicographic by path so that document IDs
// are reproducible across platforms.
package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// Content is the result of reading one corpus file. Err is set when the file
// could not be read; Data is then nil.
type Content struct {
	Path string
	Data []byte
	Err  error
}

// Enumerate returns the regular files under dir whose slash-separated path
// relative to dir matches pattern, sorted lexicographically. The default
// pattern "*" selects the files directly inside dir.
func Enumerate(dir string, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid corpus pattern %q", pattern)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening corpus directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path %s is not a directory", dir)
	}
	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("matching corpus files: %w", err)
	}
	sort.Strings(matches)
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, filepath.Join(dir, filepath.FromSlash(m)))
	}
	return paths, nil
}

// Load reads paths with up to workers concurrent reads and hands each result
// to fn strictly in input order. Read failures are reported through
// Content.Err rather than aborting; only fn's error or ctx cancellation stops
// the walk.
func Load(ctx context.Context, paths []string, workers int, fn func(c Content) error) error {
	if workers < 1 {
		workers = 1
	}
	batchSize := workers * 2
	for start := 0; start < len(paths); start += batchSize {
		end := min(start+batchSize, len(paths))
		batch := make([]Content, end-start)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := range batch {
			path := paths[start+i]
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				data, err := os.ReadFile(path)
				batch[i] = Content{Path: path, Data: data, Err: err}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("reading corpus batch: %w", err)
		}
		for _, c := range batch {
			if err := fn(c); err != nil {
				return err
			}
		}
	}
	return nil
}
