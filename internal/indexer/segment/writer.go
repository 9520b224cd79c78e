package segment

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/indexer/index"
)

// RunFilePattern names partial run files; n starts at 1.
const RunFilePattern = "index_%d.txt"

// Writer serialises buffered TermEntry slices into numbered run files.
type Writer struct {
	dataDir string
	count   int
}

// NewWriter creates a Writer that writes runs into the given directory.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// Write creates the next run file containing entries, which must already be
// in ascending term order. It writes to a .tmp file first and renames on
// success, returning the final path.
func (w *Writer) Write(entries []index.TermEntry) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("cannot write empty run")
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Term >= entries[i].Term {
			return "", fmt.Errorf("run entries out of order: %q before %q", entries[i-1].Term, entries[i].Term)
		}
	}
	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}
	finalPath := filepath.Join(w.dataDir, fmt.Sprintf(RunFilePattern, w.count+1))
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp run file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	for _, entry := range entries {
		if _, err := bw.WriteString(FormatLine(entry)); err != nil {
			return "", fmt.Errorf("writing postings for term %q: %w", entry.Term, err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return "", fmt.Errorf("writing postings for term %q: %w", entry.Term, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("flushing run file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing run file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming run file: %w", err)
	}
	w.count++
	return finalPath, nil
}

// Count returns the number of runs written so far.
func (w *Writer) Count() int {
	return w.count
}
