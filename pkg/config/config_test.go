package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "./corpus/", cfg.Corpus.Dir)
	assert.Equal(t, 1000, cfg.Indexer.Threshold)
	assert.Equal(t, 4, cfg.Search.WindowSize)
	assert.True(t, cfg.Merge.StrictRuns)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Postgres.Enabled)
}

func TestLoadFileKeepsUnsetDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
indexer:
  threshold: 50
search:
  windowSize: 2
redis:
  cacheTTL: 30s
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Indexer.Threshold)
	assert.Equal(t, 2, cfg.Search.WindowSize)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, "./indexes/", cfg.Indexer.RunDir)
	assert.Equal(t, "final_index.json", cfg.Merge.IndexFile)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("SPIMI_INDEXER_THRESHOLD", "7")
	t.Setenv("SPIMI_MERGE_STRICT_RUNS", "false")
	t.Setenv("SPIMI_REDIS_FLUSH_ON_BUILD", "true")
	t.Setenv("SPIMI_SEARCH_WINDOW_SIZE", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Indexer.Threshold)
	assert.False(t, cfg.Merge.StrictRuns)
	assert.True(t, cfg.Redis.FlushOnBuild)
	assert.Equal(t, 4, cfg.Search.WindowSize, "unparsable override is ignored")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero threshold", func(c *Config) { c.Indexer.Threshold = 0 }},
		{"negative window", func(c *Config) { c.Search.WindowSize = -1 }},
		{"empty corpus dir", func(c *Config) { c.Corpus.Dir = "" }},
		{"missing run dir", func(c *Config) { c.Indexer.RunDir = "" }},
		{"output is corpus", func(c *Config) { c.Merge.OutputDir = "corpus" }},
		{"run dir is cwd above corpus", func(c *Config) { c.Corpus.Dir = "./data/corpus/"; c.Indexer.RunDir = "." }},
		{"run dir is ./ above corpus", func(c *Config) { c.Corpus.Dir = "./data/corpus/"; c.Indexer.RunDir = "./" }},
		{"run dir is corpus parent", func(c *Config) { c.Corpus.Dir = "./data/corpus/"; c.Indexer.RunDir = "./data" }},
		{"output dir is corpus ancestor", func(c *Config) { c.Corpus.Dir = "./data/corpus/"; c.Merge.OutputDir = "./data/../" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), apperrors.ErrInvalidConfig)
		})
	}

	cfg := Default()
	cfg.Search.WindowSize = 0
	assert.NoError(t, cfg.Validate(), "window 0 is allowed")

	cfg = Default()
	cfg.Corpus.Dir = "./data/corpus/"
	cfg.Indexer.RunDir = "./data/indexes"
	cfg.Merge.OutputDir = "./data/corpus-index"
	assert.NoError(t, cfg.Validate(), "siblings of the corpus directory are allowed")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
