// Package merger performs the external k-way merge of partial run files into
// one globally term-sorted index. It writes the merged index to disk and
// returns the same content as an in-memory index.FinalIndex.
//
// The merge keeps a frontier of term entries read but not yet emitted. Every
// iteration pops the smallest frontier term, emits it, and then advances
// every open run by one line, whether or not that run contributed to the
// popped term. Each open run always has its most recently read line in the
// frontier, and a run's unread terms sort after that line, so no unread term
// can undercut the popped minimum.
package merger

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/metrics"
)

// Options controls merge failure policy.
type Options struct {
	// StrictRuns turns an unopenable run into a merge failure. When false the
	// run is skipped with a warning and listed in Result.SkippedRuns.
	StrictRuns bool
}

// Result is the outcome of a merge.
type Result struct {
	Path        string
	Checksum    string
	Terms       int
	Final       *index.FinalIndex
	SkippedRuns []string
}

type Merger struct {
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(opts Options, m *metrics.Metrics) *Merger {
	return &Merger{
		opts:    opts,
		metrics: m,
		logger:  slog.Default().With("component", "merger"),
	}
}

// Merge merges runs, in the given order, into a new index file at outPath.
// A malformed run line aborts the merge and leaves outPath untouched.
func (m *Merger) Merge(ctx context.Context, runs []string, outPath string) (*Result, error) {
	start := time.Now()
	result := &Result{
		Path:  outPath,
		Final: index.NewFinalIndex(),
	}

	cursors := make([]*segment.Cursor, 0, len(runs))
	defer func() {
		for _, c := range cursors {
			if err := c.Close(); err != nil {
				m.logger.Error("closing run", "run", c.Path(), "error", err)
			}
		}
	}()
	for _, path := range runs {
		c, err := segment.OpenCursor(path)
		if err != nil {
			if m.opts.StrictRuns {
				return nil, fmt.Errorf("%w: %w", apperrors.ErrRunUnreadable, err)
			}
			m.logger.Warn("run file unreadable, skipping; merged index will be missing its terms",
				"run", path,
				"error", err,
			)
			m.metrics.RunsSkippedTotal.Inc()
			result.SkippedRuns = append(result.SkippedRuns, path)
			continue
		}
		cursors = append(cursors, c)
	}

	out, err := segment.CreateIndexFile(outPath)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	f := newFrontier()
	open := cursors
	open, err = m.advance(open, f)
	if err != nil {
		return nil, err
	}

	last := ""
	for f.Len() > 0 || len(open) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("merge cancelled: %w", err)
		}
		if f.Len() > 0 {
			entry := f.popMin()
			if result.Terms > 0 && entry.Term <= last {
				return nil, fmt.Errorf("%w: merged term %q emitted after %q", apperrors.ErrInternal, entry.Term, last)
			}
			last = entry.Term
			if err := out.WriteEntry(entry); err != nil {
				return nil, err
			}
			result.Final.Insert(entry)
			result.Terms++
		}
		open, err = m.advance(open, f)
		if err != nil {
			return nil, err
		}
	}

	if err := out.Commit(); err != nil {
		return nil, err
	}
	result.Checksum = out.Checksum()

	elapsed := time.Since(start)
	m.metrics.RunsMergedTotal.Add(float64(len(cursors)))
	m.metrics.MergedTermsTotal.Add(float64(result.Terms))
	m.metrics.MergeDuration.Observe(elapsed.Seconds())
	m.logger.Info("merge complete",
		"runs", len(cursors),
		"skipped_runs", len(result.SkippedRuns),
		"terms", result.Terms,
		"output", outPath,
		"elapsed", elapsed,
	)
	return result, nil
}

// advance reads one line from every open cursor into the frontier and
// returns the cursors that are still open. Exhausted cursors are closed.
func (m *Merger) advance(open []*segment.Cursor, f *frontier) ([]*segment.Cursor, error) {
	still := make([]*segment.Cursor, 0, len(open))
	for _, c := range open {
		entry, err := c.Next()
		if segment.IsExhausted(err) {
			if cerr := c.Close(); cerr != nil {
				m.logger.Error("closing run", "run", c.Path(), "error", cerr)
			}
			m.logger.Debug("run exhausted", "run", c.Path())
			continue
		}
		if err != nil {
			if errors.Is(err, apperrors.ErrMalformedPosting) {
				return nil, fmt.Errorf("merging runs: %w", err)
			}
			return nil, fmt.Errorf("%w: %w", apperrors.ErrRunUnreadable, err)
		}
		f.add(entry)
		still = append(still, c)
	}
	return still, nil
}

// frontier accumulates postings per (term, docID) and yields terms in
// ascending order.
type frontier struct {
	postings map[string]map[int][]int
	terms    termHeap
}

func newFrontier() *frontier {
	return &frontier{
		postings: make(map[string]map[int][]int),
	}
}

func (f *frontier) Len() int {
	return len(f.postings)
}

// add merges entry into the frontier, appending to positions already held
// for the same (term, docID) instead of replacing them.
func (f *frontier) add(entry index.TermEntry) {
	docs, exists := f.postings[entry.Term]
	if !exists {
		docs = make(map[int][]int, len(entry.Postings))
		f.postings[entry.Term] = docs
		heap.Push(&f.terms, entry.Term)
	}
	for _, p := range entry.Postings {
		docs[p.DocID] = append(docs[p.DocID], p.Positions...)
	}
}

// popMin removes the smallest term and returns its postings with doc IDs
// ascending and positions sorted and de-duplicated.
func (f *frontier) popMin() index.TermEntry {
	term := heap.Pop(&f.terms).(string)
	docs := f.postings[term]
	delete(f.postings, term)

	postings := make(index.PostingList, 0, len(docs))
	for docID, positions := range docs {
		postings = append(postings, index.Posting{
			DocID:     docID,
			Positions: sortUnique(positions),
		})
	}
	sort.Slice(postings, func(i, j int) bool {
		return postings[i].DocID < postings[j].DocID
	})
	return index.TermEntry{Term: term, Postings: postings}
}

func sortUnique(positions []int) []int {
	sort.Ints(positions)
	out := make([]int, 0, len(positions))
	for _, p := range positions {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}

type termHeap []string

func (h termHeap) Len() int { return len(h) }

func (h termHeap) Less(i, j int) bool { return h[i] < h[j] }

func (h termHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *termHeap) Push(x interface{}) {
	*h = append(*h, x.(string))
}

func (h *termHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
