package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/indexer/merger"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/registry"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/workspace"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "", "optional path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("spimi failed", "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(apperrors.ExitCode(err))
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.WithComponent("cli")
	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(m, cfg.Metrics.Port)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				log.Error("metrics server shutdown failed", "error", err)
			}
		}()
	}

	if err := workspace.Prepare(cfg.Indexer.RunDir, cfg.Merge.OutputDir); err != nil {
		return err
	}
	paths, err := corpus.Enumerate(cfg.Corpus.Dir, cfg.Corpus.Pattern)
	if err != nil {
		return apperrors.Newf(apperrors.ErrCorpusUnreadable, apperrors.ExitFailure, "%s: %v", cfg.Corpus.Dir, err)
	}
	if len(paths) == 0 {
		log.Warn("corpus has no matching files", "dir", cfg.Corpus.Dir, "pattern", cfg.Corpus.Pattern)
	}

	engine, err := indexer.NewEngine(cfg.Indexer, m)
	if err != nil {
		return err
	}
	inverted, err := engine.Invert(ctx, paths, cfg.Corpus.ReadWorkers)
	if err != nil {
		return fmt.Errorf("building partial indexes: %w", err)
	}

	merged, err := merger.New(merger.Options{StrictRuns: cfg.Merge.StrictRuns}, m).
		Merge(ctx, inverted.Runs, filepath.Join(cfg.Merge.OutputDir, cfg.Merge.IndexFile))
	if err != nil {
		return fmt.Errorf("merging runs: %w", err)
	}

	sinks := []registry.Sink{
		registry.CSVSink{Path: filepath.Join(cfg.Merge.OutputDir, cfg.Merge.DocMapFile)},
	}
	if cfg.Postgres.Enabled {
		var pg *postgres.Client
		err := resilience.Do(ctx, "postgres connect", resilience.DefaultBackoff(), func(context.Context) error {
			var err error
			pg, err = postgres.New(cfg.Postgres)
			return err
		})
		if err != nil {
			return fmt.Errorf("connecting registry database: %w", err)
		}
		defer pg.Close()
		sinks = append(sinks, registry.NewPostgresSink(pg))
	}
	for _, sink := range sinks {
		if err := sink.Save(ctx, inverted.Documents); err != nil {
			return fmt.Errorf("saving document registry: %w", err)
		}
	}

	fmt.Println("Inverted Indexing Completed Successfully!")
	log.Info("index ready",
		"documents", inverted.Documents.Len(),
		"runs", len(inverted.Runs),
		"terms", merged.Terms,
		"checksum", merged.Checksum,
	)

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		var rc *pkgredis.Client
		err := resilience.Do(ctx, "redis connect", resilience.DefaultBackoff(), func(context.Context) error {
			var err error
			rc, err = pkgredis.NewClient(cfg.Redis)
			return err
		})
		if err != nil {
			log.Warn("redis unavailable, query cache disabled", "error", err)
		} else {
			defer rc.Close()
			queryCache = cache.New(rc, merged.Checksum, cfg.Redis.CacheTTL, m)
			if cfg.Redis.FlushOnBuild {
				if err := queryCache.Invalidate(ctx); err != nil {
					log.Warn("flushing query cache failed", "error", err)
				}
			}
		}
	}

	h := handler.New(executor.New(merged.Final, inverted.Documents, m), queryCache, cfg.Search.WindowSize)
	fmt.Print("enter a query : ")
	query, err := handler.ReadQuery(os.Stdin)
	if err != nil {
		return err
	}
	if _, err := h.Search(ctx, query, os.Stdout); err != nil {
		return err
	}
	if queryCache != nil {
		hits, misses := queryCache.Stats()
		log.Info("query cache stats", "hits", hits, "misses", misses)
	}
	return nil
}
