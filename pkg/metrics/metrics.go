// Package metrics defines the Prometheus metric collectors used by the
// indexing pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	DocsIndexedTotal   prometheus.Counter
	DocsSkippedTotal   prometheus.Counter
	TokensScannedTotal prometheus.Counter
	RunFlushesTotal    *prometheus.CounterVec
	RunsMergedTotal    prometheus.Counter
	RunsSkippedTotal   prometheus.Counter
	MergedTermsTotal   prometheus.Counter
	MergeDuration      prometheus.Histogram
	SearchQueriesTotal *prometheus.CounterVec
	SearchLatency      prometheus.Histogram
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter

	registry *prometheus.Registry
}

// New creates all collectors and registers them on a private registry so that
// tests can build as many instances as they like.
func New() *Metrics {
	m := &Metrics{
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "spimi_docs_indexed_total",
				Help: "Total documents scanned into the partial index buffer.",
			},
		),
		DocsSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "spimi_docs_skipped_total",
				Help: "Total documents skipped because they could not be read.",
			},
		),
		TokensScannedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "spimi_tokens_scanned_total",
				Help: "Total token boundaries scanned, filtered tokens included.",
			},
		),
		RunFlushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spimi_run_flushes_total",
				Help: "Total partial run flushes by status.",
			},
			[]string{"status"},
		),
		RunsMergedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "spimi_runs_merged_total",
				Help: "Total run files consumed by the merge.",
			},
		),
		RunsSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "spimi_runs_skipped_total",
				Help: "Total run files skipped by the merge because they could not be opened.",
			},
		),
		MergedTermsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "spimi_merged_terms_total",
				Help: "Total terms emitted into the merged index.",
			},
		),
		MergeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spimi_merge_duration_seconds",
				Help:    "Wall time of the external merge.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spimi_search_queries_total",
				Help: "Total phrase queries by result type (match, zero_result, missing_term).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spimi_search_latency_seconds",
				Help:    "Phrase query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "spimi_cache_hits_total",
				Help: "Total query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "spimi_cache_misses_total",
				Help: "Total query cache misses.",
			},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.DocsIndexedTotal,
		m.DocsSkippedTotal,
		m.TokensScannedTotal,
		m.RunFlushesTotal,
		m.RunsMergedTotal,
		m.RunsSkippedTotal,
		m.MergedTermsTotal,
		m.MergeDuration,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler for this instance.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
