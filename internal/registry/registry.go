// Package registry assigns document IDs and persists the ID-to-path table.
package registry

import (
	"bufio"
	"context"
	"fmt"
	"strconv"

	"github.com/dchest/safefile"
)

// Document is one corpus file. IDs are dense and start at 1.
type Document struct {
	ID   int
	Path string
}

// Registry is the document table of one indexing session.
type Registry struct {
	docs []Document
}

func New() *Registry {
	return &Registry{}
}

// Add assigns the next ID to path.
func (r *Registry) Add(path string) Document {
	doc := Document{ID: len(r.docs) + 1, Path: path}
	r.docs = append(r.docs, doc)
	return doc
}

// Path returns the path registered under id.
func (r *Registry) Path(id int) (string, bool) {
	if id < 1 || id > len(r.docs) {
		return "", false
	}
	return r.docs[id-1].Path, true
}

// Len returns the number of registered documents.
func (r *Registry) Len() int {
	return len(r.docs)
}

// All returns the documents in ID order.
func (r *Registry) All() []Document {
	out := make([]Document, len(r.docs))
	copy(out, r.docs)
	return out
}

// Sink persists a registry somewhere.
type Sink interface {
	Save(ctx context.Context, reg *Registry) error
}

// CSVSink writes "docID, path" lines with no header row.
type CSVSink struct {
	Path string
}

func (s CSVSink) Save(_ context.Context, reg *Registry) error {
	f, err := safefile.Create(s.Path, 0644)
	if err != nil {
		return fmt.Errorf("creating documents map %s: %w", s.Path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, doc := range reg.docs {
		w.WriteString(strconv.Itoa(doc.ID))
		w.WriteString(", ")
		w.WriteString(doc.Path)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing documents map: %w", err)
	}
	if err := f.Commit(); err != nil {
		return fmt.Errorf("committing documents map: %w", err)
	}
	return nil
}
