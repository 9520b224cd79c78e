package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/redis"
)

const keyPrefix = "spimi:search:"

// Store is the key-value backend of the cache; *pkgredis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// QueryCache caches phrase query results of one index build. Keys include
// the build checksum of the merged index, so results of an older build are
// never served for a new one.
type QueryCache struct {
	store   Store
	build   string
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(store Store, build string, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		build:   build,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached result for plan. The result carries plan's raw query
// and no document paths; callers fill paths from their own registry.
func (c *QueryCache) Get(ctx context.Context, plan *parser.QueryPlan, window int) (*executor.SearchResult, bool) {
	key := c.buildKey(plan, window)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	result.Query = plan.RawQuery
	c.hits.Add(1)
	c.metrics.CacheHitsTotal.Inc()
	c.logger.Debug("cache hit", "query", plan.RawQuery, "key", key)
	return &result, true
}

// Set stores result without its raw query and document paths. Both depend on
// the session rather than on the index content the key identifies.
func (c *QueryCache) Set(ctx context.Context, plan *parser.QueryPlan, window int, result *executor.SearchResult) {
	key := c.buildKey(plan, window)
	stored := *result
	stored.Query = ""
	stored.Matches = make([]executor.DocMatch, len(result.Matches))
	for i, m := range result.Matches {
		m.Path = ""
		stored.Matches[i] = m
	}
	data, err := json.Marshal(&stored)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or computes and stores it. The
// boolean reports a cache hit; a hit has no document paths.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	plan *parser.QueryPlan,
	window int,
	computeFn func() *executor.SearchResult,
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, plan, window); ok {
		return result, true, nil
	}
	key := c.buildKey(plan, window)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result := computeFn()
		c.Set(ctx, plan, window, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops every cached result, for every build.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	c.metrics.CacheMissesTotal.Inc()
}

// buildKey hashes the build, the normalised terms and the window. Term order
// matters for phrase queries and is kept.
func (c *QueryCache) buildKey(plan *parser.QueryPlan, window int) string {
	raw := fmt.Sprintf("%s|%s|window=%d", c.build, strings.Join(plan.Terms, ","), window)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
