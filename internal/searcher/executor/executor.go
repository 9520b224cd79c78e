package executor

import (
	"log/slog"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/registry"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/metrics"
)

// DocMatch lists the phrase-start positions found in one document.
type DocMatch struct {
	DocID     int    `json:"doc_id"`
	Path      string `json:"path"`
	Positions []int  `json:"positions"`
}

// SearchResult holds the matches of one phrase query, ordered by doc ID.
// MissingTerm is the first query term absent from the index: term collection
// stops there, and since every term must extend the phrase, Matches is then
// empty.
type SearchResult struct {
	Query       string     `json:"query"`
	Terms       []string   `json:"terms"`
	WindowSize  int        `json:"window_size"`
	MissingTerm string     `json:"missing_term,omitempty"`
	Candidates  int        `json:"candidates"`
	Matches     []DocMatch `json:"matches"`
}

type Executor struct {
	final   *index.FinalIndex
	docs    *registry.Registry
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(final *index.FinalIndex, docs *registry.Registry, m *metrics.Metrics) *Executor {
	return &Executor{
		final:   final,
		docs:    docs,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Execute evaluates plan as a windowed phrase query. Each consecutive pair
// of matched terms may be at most windowSize positions apart.
func (e *Executor) Execute(plan *parser.QueryPlan, windowSize int) *SearchResult {
	start := time.Now()
	result := Search(e.final, plan, windowSize)
	e.FillPaths(result)

	resultType := "match"
	switch {
	case result.MissingTerm != "":
		resultType = "missing_term"
	case len(result.Matches) == 0:
		resultType = "zero_result"
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	e.metrics.SearchLatency.Observe(time.Since(start).Seconds())

	if result.MissingTerm != "" {
		e.logger.Info("term not found", "term", result.MissingTerm)
	}
	e.logger.Info("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"window", windowSize,
		"candidates", result.Candidates,
		"results", len(result.Matches),
	)
	return result
}

// FillPaths sets the path of every match from this session's registry.
func (e *Executor) FillPaths(result *SearchResult) {
	for i := range result.Matches {
		if path, ok := e.docs.Path(result.Matches[i].DocID); ok {
			result.Matches[i].Path = path
		}
	}
}

// Search runs the phrase query against final without document paths.
//
// Terms are looked up in order and collection stops at the first missing
// one. The doc lists of the collected terms are intersected. Then, for every
// candidate document and every position p of the first term, the phrase is
// extended greedily: each following term takes its smallest position q with
// cur < q <= cur+windowSize, and the walk is abandoned (no backtracking) if
// there is none. Completed walks record p.
func Search(final *index.FinalIndex, plan *parser.QueryPlan, windowSize int) *SearchResult {
	result := &SearchResult{
		Query:      plan.RawQuery,
		Terms:      plan.Terms,
		WindowSize: windowSize,
		Matches:    []DocMatch{},
	}
	if plan.Empty() {
		return result
	}

	lists := make([][]int, 0, len(plan.Terms))
	for _, term := range plan.Terms {
		if !final.Contains(term) {
			result.MissingTerm = term
			break
		}
		lists = append(lists, final.DocIDs(term))
	}
	candidates := intersectAll(lists)
	result.Candidates = len(candidates)

	for _, docID := range candidates {
		starts := phraseStarts(final, plan.Terms, docID, windowSize)
		if len(starts) > 0 {
			result.Matches = append(result.Matches, DocMatch{
				DocID:     docID,
				Positions: starts,
			})
		}
	}
	return result
}

func phraseStarts(final *index.FinalIndex, terms []string, docID int, windowSize int) []int {
	termPositions := make([][]int, len(terms))
	for i, term := range terms {
		termPositions[i] = final.Positions(term, docID)
	}
	var starts []int
	for _, p := range termPositions[0] {
		cur := p
		matched := true
		for _, positions := range termPositions[1:] {
			next, ok := nextWithin(positions, cur, windowSize)
			if !ok {
				matched = false
				break
			}
			cur = next
		}
		if matched && (len(starts) == 0 || starts[len(starts)-1] != p) {
			starts = append(starts, p)
		}
	}
	return starts
}

// nextWithin returns the smallest position q in the ascending positions with
// cur < q <= cur+window.
func nextWithin(positions []int, cur int, window int) (int, bool) {
	i := sort.SearchInts(positions, cur+1)
	if i < len(positions) && positions[i] <= cur+window {
		return positions[i], true
	}
	return 0, false
}

// intersectAll intersects ascending doc ID lists pairwise, left to right.
func intersectAll(lists [][]int) []int {
	if len(lists) == 0 {
		return nil
	}
	result := lists[0]
	for _, l := range lists[1:] {
		result = intersectTwo(result, l)
		if len(result) == 0 {
			break
		}
	}
	return result
}

func intersectTwo(a, b []int) []int {
	out := make([]int, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}
