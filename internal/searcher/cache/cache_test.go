package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/metrics"
)

type memStore struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = string(value)
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func sampleResult(q string) *executor.SearchResult {
	return &executor.SearchResult{
		Query:      q,
		Terms:      []string{"cat", "mat"},
		WindowSize: 4,
		Candidates: 1,
		Matches:    []executor.DocMatch{{DocID: 1, Path: "a.txt", Positions: []int{1}}},
	}
}

func TestGetOrComputeCachesResult(t *testing.T) {
	ctx := context.Background()
	c := New(newMemStore(), "build-1", time.Minute, metrics.New())
	plan := parser.Parse("cat mat")

	calls := 0
	compute := func() *executor.SearchResult {
		calls++
		return sampleResult(plan.RawQuery)
	}

	res, hit, err := c.GetOrCompute(ctx, plan, 4, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, sampleResult("cat mat"), res)

	res, hit, err = c.GetOrCompute(ctx, parser.Parse("Cat, the MAT"), 4, compute)
	require.NoError(t, err)
	assert.True(t, hit, "normalised terms share a key")
	assert.Equal(t, 1, calls)

	want := sampleResult("Cat, the MAT")
	want.Matches[0].Path = ""
	assert.Equal(t, want, res, "hits carry the caller's query and no paths")

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestKeysSeparateWindowOrderAndBuild(t *testing.T) {
	store := newMemStore()
	c1 := New(store, "build-1", time.Minute, metrics.New())
	c2 := New(store, "build-2", time.Minute, metrics.New())
	plan := parser.Parse("cat mat")

	keys := map[string]struct{}{}
	for _, k := range []string{
		c1.buildKey(plan, 4),
		c1.buildKey(plan, 5),
		c1.buildKey(parser.Parse("mat cat"), 4),
		c2.buildKey(plan, 4),
	} {
		assert.True(t, strings.HasPrefix(k, keyPrefix))
		keys[k] = struct{}{}
	}
	assert.Len(t, keys, 4)
}

func TestSetDoesNotModifyResult(t *testing.T) {
	c := New(newMemStore(), "b", time.Minute, metrics.New())
	res := sampleResult("cat mat")
	c.Set(context.Background(), parser.Parse("cat mat"), 4, res)
	assert.Equal(t, sampleResult("cat mat"), res)
}

func TestGetTreatsStoreErrorsAsMiss(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("connection refused")
	c := New(store, "b", time.Minute, metrics.New())

	_, ok := c.Get(context.Background(), parser.Parse("cat"), 1)
	assert.False(t, ok)
	_, misses := c.Stats()
	assert.Equal(t, int64(1), misses)
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	c := New(store, "b", time.Minute, metrics.New())
	plan := parser.Parse("cat mat")
	c.Set(ctx, plan, 4, sampleResult("cat mat"))

	_, ok := c.Get(ctx, plan, 4)
	require.True(t, ok)

	require.NoError(t, c.Invalidate(ctx))
	_, ok = c.Get(ctx, plan, 4)
	assert.False(t, ok)
}
