package segment

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strconv"

	"github.com/dchest/safefile"

	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/indexer/index"
)

// IndexWriter streams the merged index as one JSON object keyed by term:
//
//	{
//	  "cat": [ 2, {
//	    "1": [1],
//	    "2": [0]
//	  }]
//	}
//
// Entries must arrive in ascending term order. The file only replaces its
// destination on Commit.
type IndexWriter struct {
	file  *safefile.File
	w     *bufio.Writer
	sum   hash.Hash
	terms int
}

// CreateIndexFile starts a new merged index at path.
func CreateIndexFile(path string) (*IndexWriter, error) {
	f, err := safefile.Create(path, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating index file %s: %w", path, err)
	}
	sum := sha256.New()
	w := &IndexWriter{
		file: f,
		w:    bufio.NewWriter(io.MultiWriter(f, sum)),
		sum:  sum,
	}
	if _, err := w.w.WriteString("{\n"); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing index header: %w", err)
	}
	return w, nil
}

// WriteEntry appends one term.
func (w *IndexWriter) WriteEntry(entry index.TermEntry) error {
	buf := make([]byte, 0, 64+len(entry.Postings)*16)
	if w.terms > 0 {
		buf = append(buf, ",\n"...)
	}
	buf = append(buf, `  "`...)
	buf = append(buf, entry.Term...)
	buf = append(buf, `": [ `...)
	buf = strconv.AppendInt(buf, int64(entry.DocCount()), 10)
	buf = append(buf, ", {\n"...)
	for i, p := range entry.Postings {
		if i > 0 {
			buf = append(buf, ",\n"...)
		}
		buf = append(buf, `    "`...)
		buf = strconv.AppendInt(buf, int64(p.DocID), 10)
		buf = append(buf, `": [`...)
		for j, pos := range p.Positions {
			if j > 0 {
				buf = append(buf, ", "...)
			}
			buf = strconv.AppendInt(buf, int64(pos), 10)
		}
		buf = append(buf, ']')
	}
	buf = append(buf, "\n  }]"...)
	if _, err := w.w.Write(buf); err != nil {
		return fmt.Errorf("writing term %q: %w", entry.Term, err)
	}
	w.terms++
	return nil
}

// Terms returns the number of entries written.
func (w *IndexWriter) Terms() int {
	return w.terms
}

// Checksum returns the hex SHA-256 of everything written so far. After
// Commit it identifies the index build.
func (w *IndexWriter) Checksum() string {
	return hex.EncodeToString(w.sum.Sum(nil))
}

// Commit closes the JSON object and atomically moves the file into place.
func (w *IndexWriter) Commit() error {
	if _, err := w.w.WriteString("\n}\n"); err != nil {
		return fmt.Errorf("writing index footer: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flushing index file: %w", err)
	}
	if err := w.file.Commit(); err != nil {
		return fmt.Errorf("committing index file: %w", err)
	}
	return nil
}

// Close discards the file unless it was committed.
func (w *IndexWriter) Close() error {
	return w.file.Close()
}
