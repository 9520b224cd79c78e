// Package indexer builds partial inverted indexes from a corpus with SPIMI:
// postings are buffered in memory until the buffer holds threshold distinct
// terms, then spilled to a sorted run file and the buffer is cleared.
package indexer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/registry"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/metrics"
)

// InvertResult is the output of one indexing pass.
type InvertResult struct {
	Runs      []string
	Documents *registry.Registry
	Skipped   int
}

type Engine struct {
	memIndex *index.MemoryIndex
	writer   *segment.Writer
	cfg      config.IndexerConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
	runs     []string
}

func NewEngine(cfg config.IndexerConfig, m *metrics.Metrics) (*Engine, error) {
	if cfg.Threshold < 1 {
		return nil, fmt.Errorf("flush threshold must be >= 1, got %d", cfg.Threshold)
	}
	if err := os.MkdirAll(cfg.RunDir, 0755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	return &Engine{
		memIndex: index.NewMemoryIndex(),
		writer:   segment.NewWriter(cfg.RunDir),
		cfg:      cfg,
		metrics:  m,
		logger:   slog.Default().With("component", "indexer"),
	}, nil
}

// Invert indexes the files at paths in order. Each path gets the next
// document ID before it is read, so a file that cannot be read still consumes
// an ID; it is logged and contributes no postings. Any buffered postings are
// flushed as a final run.
func (e *Engine) Invert(ctx context.Context, paths []string, readWorkers int) (*InvertResult, error) {
	reg := registry.New()
	skipped := 0
	err := corpus.Load(ctx, paths, readWorkers, func(c corpus.Content) error {
		doc := reg.Add(c.Path)
		if c.Err != nil {
			e.logger.Warn("failed to open document, skipping",
				"doc_id", doc.ID,
				"path", c.Path,
				"error", c.Err,
			)
			e.metrics.DocsSkippedTotal.Inc()
			skipped++
			return nil
		}
		if err := e.IndexDocument(doc.ID, bytes.NewReader(c.Data)); err != nil {
			return fmt.Errorf("indexing %s: %w", c.Path, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := e.Flush(); err != nil {
		return nil, fmt.Errorf("flushing final run: %w", err)
	}
	e.logger.Info("inversion complete",
		"documents", reg.Len(),
		"skipped", skipped,
		"runs", len(e.runs),
	)
	return &InvertResult{
		Runs:      e.Runs(),
		Documents: reg,
		Skipped:   skipped,
	}, nil
}

// IndexDocument scans r as the full text of docID. Positions start at 0 and
// count every closed token. The threshold is checked at each boundary before
// the closed token is inserted, so a flush may split a document across runs.
func (e *Engine) IndexDocument(docID int, r io.Reader) error {
	s := tokenizer.NewScanner(r)
	for {
		b, ok := s.Next()
		if !ok {
			break
		}
		if e.memIndex.TermCount() >= e.cfg.Threshold {
			e.logger.Debug("buffer reached threshold, flushing",
				"terms", e.memIndex.TermCount(),
				"threshold", e.cfg.Threshold,
				"doc_id", docID,
			)
			if err := e.Flush(); err != nil {
				return fmt.Errorf("flushing memory index: %w", err)
			}
		}
		if b.Retained {
			e.memIndex.Add(b.Raw, docID, b.Position)
		}
	}
	e.metrics.TokensScannedTotal.Add(float64(s.Position()))
	if err := s.Err(); err != nil {
		return fmt.Errorf("reading document %d: %w", docID, err)
	}
	e.metrics.DocsIndexedTotal.Inc()
	e.logger.Debug("document indexed in memory",
		"doc_id", docID,
		"token_count", s.Position(),
		"buffered_terms", e.memIndex.TermCount(),
		"mem_size", e.memIndex.Size(),
	)
	return nil
}

// Flush writes the buffer to the next run file and clears it. An empty buffer
// is a no-op.
func (e *Engine) Flush() error {
	snapshot := e.memIndex.Snapshot()
	if len(snapshot) == 0 {
		return nil
	}
	path, err := e.writer.Write(snapshot)
	if err != nil {
		e.metrics.RunFlushesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("writing run: %w", err)
	}
	e.metrics.RunFlushesTotal.WithLabelValues("ok").Inc()
	e.runs = append(e.runs, path)
	e.logger.Info("run flushed",
		"run", path,
		"terms", len(snapshot),
		"mem_size", e.memIndex.Size(),
		"runs", len(e.runs),
	)
	e.memIndex.Reset()
	return nil
}

// Runs returns the run files written so far, in creation order.
func (e *Engine) Runs() []string {
	out := make([]string, len(e.runs))
	copy(out, e.runs)
	return out
}
