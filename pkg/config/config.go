// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Corpus, Indexer, Merge, Search, Postgres, Redis, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Corpus   CorpusConfig   `yaml:"corpus"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Merge    MergeConfig    `yaml:"merge"`
	Search   SearchConfig   `yaml:"search"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// CorpusConfig describes where documents are read from.
type CorpusConfig struct {
	Dir         string `yaml:"dir"`
	Pattern     string `yaml:"pattern"`
	ReadWorkers int    `yaml:"readWorkers"`
}

// IndexerConfig controls the partial index builder: where runs are spilled
// and how many distinct terms are buffered before a flush.
type IndexerConfig struct {
	RunDir    string `yaml:"runDir"`
	Threshold int    `yaml:"threshold"`
}

// MergeConfig controls the external merge of partial runs.
type MergeConfig struct {
	OutputDir  string `yaml:"outputDir"`
	IndexFile  string `yaml:"indexFile"`
	DocMapFile string `yaml:"docMapFile"`
	// StrictRuns fails the merge when a run file cannot be opened instead of
	// skipping it with a warning.
	StrictRuns bool `yaml:"strictRuns"`
}

// SearchConfig controls phrase query evaluation.
type SearchConfig struct {
	WindowSize int `yaml:"windowSize"`
}

// PostgresConfig holds PostgreSQL connection parameters for the optional
// document registry sink.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection and query-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`

	// FlushOnBuild drops every cached result once a new index is built.
	FlushOnBuild bool `yaml:"flushOnBuild"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values, or an error if the result does not validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given: the fixed
// corpus path, threshold and window of the interactive tool.
func Default() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Dir:         "./corpus/",
			Pattern:     "*",
			ReadWorkers: 4,
		},
		Indexer: IndexerConfig{
			RunDir:    "./indexes/",
			Threshold: 1000,
		},
		Merge: MergeConfig{
			OutputDir:  "./final_index/",
			IndexFile:  "final_index.json",
			DocMapFile: "documents_map.csv",
			StrictRuns: true,
		},
		Search: SearchConfig{
			WindowSize: 4,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "spimi",
			User:            "spimi",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 4,
			CacheTTL: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}

// Validate reports configuration values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Corpus.Dir == "" {
		return fmt.Errorf("%w: corpus dir is empty", apperrors.ErrInvalidConfig)
	}
	if c.Indexer.Threshold < 1 {
		return fmt.Errorf("%w: threshold must be >= 1, got %d", apperrors.ErrInvalidConfig, c.Indexer.Threshold)
	}
	if c.Search.WindowSize < 0 {
		return fmt.Errorf("%w: window size must be >= 0, got %d", apperrors.ErrInvalidConfig, c.Search.WindowSize)
	}
	if c.Indexer.RunDir == "" || c.Merge.OutputDir == "" {
		return fmt.Errorf("%w: run and output directories are required", apperrors.ErrInvalidConfig)
	}
	// Both working directories are wiped at startup.
	for _, dir := range []string{c.Indexer.RunDir, c.Merge.OutputDir} {
		within, err := isWithin(c.Corpus.Dir, dir)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrInvalidConfig, err)
		}
		if within {
			return fmt.Errorf("%w: working directory %s contains the corpus directory %s",
				apperrors.ErrInvalidConfig, dir, c.Corpus.Dir)
		}
	}
	return nil
}

// isWithin reports whether path is dir or lies below it.
func isWithin(path, dir string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("resolving %s: %w", path, err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, fmt.Errorf("resolving %s: %w", dir, err)
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false, nil
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)), nil
}

// applyEnvOverrides reads SPIMI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SPIMI_CORPUS_DIR"); v != "" {
		cfg.Corpus.Dir = v
	}
	if v := os.Getenv("SPIMI_CORPUS_PATTERN"); v != "" {
		cfg.Corpus.Pattern = v
	}
	if v := os.Getenv("SPIMI_INDEXER_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Threshold = n
		}
	}
	if v := os.Getenv("SPIMI_INDEXER_RUN_DIR"); v != "" {
		cfg.Indexer.RunDir = v
	}
	if v := os.Getenv("SPIMI_MERGE_OUTPUT_DIR"); v != "" {
		cfg.Merge.OutputDir = v
	}
	if v := os.Getenv("SPIMI_MERGE_STRICT_RUNS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Merge.StrictRuns = b
		}
	}
	if v := os.Getenv("SPIMI_SEARCH_WINDOW_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.WindowSize = n
		}
	}
	if v := os.Getenv("SPIMI_POSTGRES_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Postgres.Enabled = b
		}
	}
	if v := os.Getenv("SPIMI_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SPIMI_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SPIMI_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("SPIMI_REDIS_FLUSH_ON_BUILD"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.FlushOnBuild = b
		}
	}
	if v := os.Getenv("SPIMI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SPIMI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SPIMI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SPIMI_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
}
