package handler

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/registry"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/metrics"
)

type stubExecutor struct {
	calls  int
	result executor.SearchResult
}

func (s *stubExecutor) Execute(plan *parser.QueryPlan, windowSize int) *executor.SearchResult {
	s.calls++
	res := s.result
	res.Query = plan.RawQuery
	res.Terms = plan.Terms
	res.WindowSize = windowSize
	return &res
}

func (s *stubExecutor) FillPaths(result *executor.SearchResult) {
	for i, m := range result.Matches {
		for _, known := range s.result.Matches {
			if known.DocID == m.DocID {
				result.Matches[i].Path = known.Path
			}
		}
	}
}

func TestSearchPrintsMatches(t *testing.T) {
	stub := &stubExecutor{result: executor.SearchResult{
		Matches: []executor.DocMatch{
			{DocID: 1, Path: "corpus/a.txt", Positions: []int{1}},
			{DocID: 2, Path: "corpus/b.txt", Positions: []int{0, 9}},
		},
	}}
	h := New(stub, nil, 4)

	var out bytes.Buffer
	res, err := h.Search(context.Background(), "cat mat", &out)
	require.NoError(t, err)
	assert.Equal(t, 4, res.WindowSize)
	assert.Equal(t, `-------------------
Searching for: cat mat
Document ID: 1 Path: corpus/a.txt
Phrase positions: 1
Document ID: 2 Path: corpus/b.txt
Phrase positions: 0 9
`, out.String())
}

func TestSearchPrintsNoMatches(t *testing.T) {
	stub := &stubExecutor{result: executor.SearchResult{MissingTerm: "dog"}}
	h := New(stub, nil, 4)

	var out bytes.Buffer
	_, err := h.Search(context.Background(), "dog", &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Term not found: dog\n")
	assert.Contains(t, out.String(), NoMatchesMessage)
}

type mapStore struct {
	data map[string]string
}

func (s *mapStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.data[key]
	if !ok {
		return "", errMiss
	}
	return v, nil
}

func (s *mapStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.data[key] = string(value)
	return nil
}

func (s *mapStore) FlushByPattern(context.Context, string) (int64, error) {
	n := int64(len(s.data))
	s.data = map[string]string{}
	return n, nil
}

type missError struct{}

func (missError) Error() string { return "miss" }

var errMiss = missError{}

func TestSearchUsesCache(t *testing.T) {
	stub := &stubExecutor{result: executor.SearchResult{
		Matches: []executor.DocMatch{{DocID: 1, Path: "a.txt", Positions: []int{3}}},
	}}
	qc := cache.New(&mapStore{data: map[string]string{}}, "build", time.Minute, metrics.New())
	h := New(stub, qc, 2)

	var first, second bytes.Buffer
	_, err := h.Search(context.Background(), "cat mat", &first)
	require.NoError(t, err)
	_, err = h.Search(context.Background(), "cat mat", &second)
	require.NoError(t, err)

	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, first.String(), second.String())
}

func TestCachedResultUsesCurrentSession(t *testing.T) {
	final := index.NewFinalIndex()
	final.Insert(index.TermEntry{Term: "cat", Postings: index.PostingList{{DocID: 1, Positions: []int{1}}}})
	final.Insert(index.TermEntry{Term: "mat", Postings: index.PostingList{{DocID: 1, Positions: []int{5}}}})
	store := &mapStore{data: map[string]string{}}

	session := func(path string) (*Handler, *cache.QueryCache) {
		docs := registry.New()
		docs.Add(path)
		m := metrics.New()
		qc := cache.New(store, "same-build", time.Minute, m)
		return New(executor.New(final, docs, m), qc, 4), qc
	}
	first, _ := session("/old/corpus/a.txt")
	second, secondCache := session("/new/corpus/a.txt")

	var out bytes.Buffer
	_, err := first.Search(context.Background(), "cat mat", &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Path: /old/corpus/a.txt")

	out.Reset()
	res, err := second.Search(context.Background(), "The CAT, on the MAT!", &out)
	require.NoError(t, err)
	hits, _ := secondCache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, "The CAT, on the MAT!", res.Query)
	assert.Contains(t, out.String(), "Searching for: The CAT, on the MAT!\n")
	assert.Contains(t, out.String(), "Document ID: 1 Path: /new/corpus/a.txt\n")
	assert.NotContains(t, out.String(), "/old/corpus")
}

func TestReadQuery(t *testing.T) {
	q, err := ReadQuery(strings.NewReader("cat mat\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "cat mat", q)

	q, err = ReadQuery(strings.NewReader("no newline"))
	require.NoError(t, err)
	assert.Equal(t, "no newline", q)

	q, err = ReadQuery(strings.NewReader("crlf\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "crlf", q)

	q, err = ReadQuery(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, q)
}
