package segment

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/errors"
)

// maxLineSize bounds a single run line; a frequent term's postings can be far
// longer than bufio's 64 KiB default.
const maxLineSize = 64 << 20

// Cursor reads a run file one term line at a time.
type Cursor struct {
	path    string
	file    *os.File
	scanner *bufio.Scanner
	line    int
	last    string
	closed  bool
}

// OpenCursor opens the run file at path.
func OpenCursor(path string) (*Cursor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening run file: %w", err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Cursor{
		path:    path,
		file:    f,
		scanner: sc,
	}, nil
}

// Next returns the next term entry. It returns io.EOF once the run is
// exhausted. Parse errors carry the file path and line number and wrap
// ErrMalformedPosting, as does a term that does not sort after its
// predecessor.
func (c *Cursor) Next() (index.TermEntry, error) {
	if c.closed {
		return index.TermEntry{}, io.EOF
	}
	for c.scanner.Scan() {
		c.line++
		text := c.scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		entry, err := ParseLine(text)
		if err != nil {
			return index.TermEntry{}, fmt.Errorf("%s:%d: %w", c.path, c.line, err)
		}
		if c.last != "" && entry.Term <= c.last {
			return index.TermEntry{}, fmt.Errorf("%s:%d: %w: terms out of order: %q then %q",
				c.path, c.line, apperrors.ErrMalformedPosting, c.last, entry.Term)
		}
		c.last = entry.Term
		return entry, nil
	}
	if err := c.scanner.Err(); err != nil {
		return index.TermEntry{}, fmt.Errorf("reading %s: %w", c.path, err)
	}
	return index.TermEntry{}, io.EOF
}

// Path returns the run file path.
func (c *Cursor) Path() string {
	return c.path
}

// Close releases the file. It is safe to call more than once.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.file.Close()
}

// IsExhausted reports whether err marks the normal end of a run.
func IsExhausted(err error) bool {
	return errors.Is(err, io.EOF)
}
