// Package handler is the console surface of the query engine: it reads a
// query line, runs it (through the cache when one is configured) and prints
// the matches.
package handler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/searcher/parser"
)

// NoMatchesMessage is printed when a query has no phrase match.
const NoMatchesMessage = "No documents found matching the query within the specified window size."

type SearchExecutor interface {
	Execute(plan *parser.QueryPlan, windowSize int) *executor.SearchResult
	FillPaths(result *executor.SearchResult)
}

type Handler struct {
	executor   SearchExecutor
	cache      *cache.QueryCache
	windowSize int
	logger     *slog.Logger
}

// New returns a Handler. queryCache may be nil.
func New(exec SearchExecutor, queryCache *cache.QueryCache, windowSize int) *Handler {
	return &Handler{
		executor:   exec,
		cache:      queryCache,
		windowSize: windowSize,
		logger:     slog.Default().With("component", "search-handler"),
	}
}

// Search runs query and writes a report of its matches to w.
func (h *Handler) Search(ctx context.Context, query string, w io.Writer) (*executor.SearchResult, error) {
	start := time.Now()
	plan := parser.Parse(query)

	var result *executor.SearchResult
	cacheHit := false
	if h.cache != nil && !plan.Empty() {
		var err error
		result, cacheHit, err = h.cache.GetOrCompute(ctx, plan, h.windowSize, func() *executor.SearchResult {
			return h.executor.Execute(plan, h.windowSize)
		})
		if err != nil {
			return nil, fmt.Errorf("searching %q: %w", query, err)
		}
		if cacheHit {
			h.executor.FillPaths(result)
		}
	} else {
		result = h.executor.Execute(plan, h.windowSize)
	}

	h.logger.Info("search completed",
		"query", query,
		"matches", len(result.Matches),
		"cache_hit", cacheHit,
		"latency", time.Since(start),
	)
	if err := WriteResult(w, result); err != nil {
		return nil, fmt.Errorf("writing results: %w", err)
	}
	return result, nil
}

// WriteResult prints result in the console format:
//
//	Document ID: 1 Path: corpus/a.txt
//	Phrase positions: 1 7
func WriteResult(w io.Writer, result *executor.SearchResult) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "-------------------")
	fmt.Fprintf(bw, "Searching for: %s\n", result.Query)
	if result.MissingTerm != "" {
		fmt.Fprintf(bw, "Term not found: %s\n", result.MissingTerm)
	}
	if len(result.Matches) == 0 {
		fmt.Fprintln(bw, NoMatchesMessage)
		return bw.Flush()
	}
	for _, m := range result.Matches {
		fmt.Fprintf(bw, "Document ID: %d Path: %s\n", m.DocID, m.Path)
		bw.WriteString("Phrase positions:")
		for _, pos := range m.Positions {
			fmt.Fprintf(bw, " %d", pos)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ReadQuery reads one line from r. A final line without a newline is
// accepted; empty input yields an empty query.
func ReadQuery(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading query: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
