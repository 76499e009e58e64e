// Package config loads codeindex settings from defaults, an optional config
// file, CODEINDEX_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/HelixDB/codebase-index/internal/embedder"
	"github.com/HelixDB/codebase-index/internal/index"
	"github.com/HelixDB/codebase-index/internal/indexer"
)

// EnvPrefix prefixes every environment override, e.g. CODEINDEX_INDEX_ADDRESS
const EnvPrefix = "CODEINDEX"

// Index backends
const (
	BackendHTTP   = "http"
	BackendSQLite = "sqlite"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the resolved configuration
type Config struct {
	Index     IndexConfig
	Policy    string
	Workers   int
	Embedding EmbeddingConfig
	Staleness time.Duration
	Poll      time.Duration
	Debounce  time.Duration
	Log       LogConfig
}

// IndexConfig selects and addresses the index backend
type IndexConfig struct {
	Backend    string
	Address    string
	SQLitePath string
}

// EmbeddingConfig configures the provider and the embedding worker
type EmbeddingConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	RPM         int
	QueueSize   int
	MaxInFlight int
	CacheSize   int
}

// LogConfig selects log level and format (text or json)
type LogConfig struct {
	Level  string
	Format string
}

// SetDefaults registers every key with its default value
func SetDefaults(v *viper.Viper) {
	v.SetDefault("index.backend", BackendHTTP)
	v.SetDefault("index.address", index.DefaultAddress)
	v.SetDefault("index.sqlite_path", defaultSQLitePath())
	v.SetDefault("policy.path", "index-types.json")
	v.SetDefault("workers", indexer.DefaultWorkers)
	v.SetDefault("embedding.provider", "")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.rpm", embedder.DefaultRequestsPerMinute)
	v.SetDefault("embedding.queue_size", embedder.DefaultQueueSize)
	v.SetDefault("embedding.max_in_flight", embedder.DefaultMaxInFlight)
	v.SetDefault("embedding.cache_size", 10000)
	v.SetDefault("update.staleness_seconds", 1)
	v.SetDefault("run.poll_interval", indexer.DefaultPollInterval)
	v.SetDefault("watch.debounce", 2*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func defaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "codeindex.db"
	}
	return filepath.Join(home, ".config", "codeindex", "index.db")
}

// New creates a viper instance with defaults and environment binding. When
// configFile is empty, codeindex.toml is looked up in the working directory
// and in $HOME/.config/codeindex; a missing file is not an error.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("codeindex")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "codeindex"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return v, nil
}

// Load resolves the configuration from v and validates it
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Index: IndexConfig{
			Backend:    strings.ToLower(v.GetString("index.backend")),
			Address:    v.GetString("index.address"),
			SQLitePath: v.GetString("index.sqlite_path"),
		},
		Policy:  v.GetString("policy.path"),
		Workers: v.GetInt("workers"),
		Embedding: EmbeddingConfig{
			Provider:    strings.ToLower(v.GetString("embedding.provider")),
			Model:       v.GetString("embedding.model"),
			APIKey:      v.GetString("embedding.api_key"),
			BaseURL:     v.GetString("embedding.base_url"),
			RPM:         v.GetInt("embedding.rpm"),
			QueueSize:   v.GetInt("embedding.queue_size"),
			MaxInFlight: v.GetInt("embedding.max_in_flight"),
			CacheSize:   v.GetInt("embedding.cache_size"),
		},
		Staleness: time.Duration(v.GetFloat64("update.staleness_seconds") * float64(time.Second)),
		Poll:      v.GetDuration("run.poll_interval"),
		Debounce:  v.GetDuration("watch.debounce"),
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case BackendHTTP:
		if c.Index.Address == "" {
			return fmt.Errorf("%w: index.address is required for the http backend", ErrInvalidConfig)
		}
	case BackendSQLite:
		if c.Index.SQLitePath == "" {
			return fmt.Errorf("%w: index.sqlite_path is required for the sqlite backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown index.backend %q", ErrInvalidConfig, c.Index.Backend)
	}

	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.Embedding.RPM <= 0 {
		return fmt.Errorf("%w: embedding.rpm must be positive, got %d", ErrInvalidConfig, c.Embedding.RPM)
	}
	if c.Embedding.QueueSize <= 0 {
		return fmt.Errorf("%w: embedding.queue_size must be positive, got %d", ErrInvalidConfig, c.Embedding.QueueSize)
	}
	if c.Embedding.MaxInFlight <= 0 {
		return fmt.Errorf("%w: embedding.max_in_flight must be positive, got %d", ErrInvalidConfig, c.Embedding.MaxInFlight)
	}
	if c.Poll <= 0 {
		return fmt.Errorf("%w: run.poll_interval must be positive, got %s", ErrInvalidConfig, c.Poll)
	}
	if c.Staleness < 0 {
		return fmt.Errorf("%w: update.staleness_seconds must not be negative", ErrInvalidConfig)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("%w: watch.debounce must not be negative", ErrInvalidConfig)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// IndexerConfig maps the settings onto the indexer
func (c *Config) IndexerConfig() indexer.Config {
	cfg := indexer.DefaultConfig()
	cfg.Workers = c.Workers
	cfg.Staleness = c.Staleness
	cfg.PollInterval = c.Poll
	cfg.RequestsPerMinute = c.Embedding.RPM
	cfg.Embedding = embedder.WorkerConfig{
		QueueSize:   c.Embedding.QueueSize,
		MaxInFlight: c.Embedding.MaxInFlight,
	}
	return cfg
}

// EmbedderConfig maps the settings onto the embedder factory. An empty API
// key lets the provider fall back to its own environment variable.
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:  c.Embedding.Provider,
		Model:     c.Embedding.Model,
		APIKey:    c.Embedding.APIKey,
		BaseURL:   c.Embedding.BaseURL,
		CacheSize: c.Embedding.CacheSize,
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidConfig, s)
	}
	return level, nil
}

// NewLogger builds the process logger writing to w
func NewLogger(cfg LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("%w: log.format %q", ErrInvalidConfig, cfg.Format)
	}
	return slog.New(handler), nil
}
