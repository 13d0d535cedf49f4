// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (GROVE_* prefix, DATABASE_URL)
//  2. Config file (~/.grove/config.yaml or ./config.yaml)
//  3. Default values
//
// Error Handling: sentinel errors for Go-idiomatic errors.Is checking,
// wrapped with context via fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidEmbedderModel indicates the embedder model name is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidDimension indicates the embedding dimension is out of range.
	ErrInvalidDimension = errors.New("invalid embedding dimension")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidChunking indicates chunk size / overlap values are inconsistent.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidRetrieval indicates retrieval parameters are out of range.
	ErrInvalidRetrieval = errors.New("invalid retrieval parameters")

	// ErrInvalidIngest indicates ingestion limits are out of range.
	ErrInvalidIngest = errors.New("invalid ingest limits")
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model.
	// text-embedding-004 outputs 768 dimensions, matching the embeddings
	// table schema; see db/migrations.
	DefaultEmbedderModel = "text-embedding-004"

	// DefaultDimension is the vector dimension the schema is built for.
	// Changing the embedder model to one with a different dimension requires
	// re-embedding every stored chunk; mixed dimensions are never valid.
	DefaultDimension = 768
)

// ChunkingConfig controls the document splitter.
type ChunkingConfig struct {
	MaxSize int `mapstructure:"max_size" json:"max_size"`
	Overlap int `mapstructure:"overlap" json:"overlap"`
}

// RetrievalConfig controls semantic search behavior.
type RetrievalConfig struct {
	TopK          int     `mapstructure:"top_k" json:"top_k"`
	MinSimilarity float64 `mapstructure:"min_similarity" json:"min_similarity"`
}

// IngestConfig bounds work a single upload may generate.
type IngestConfig struct {
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" json:"max_upload_bytes"`
	EmbedBatchSize int   `mapstructure:"embed_batch_size" json:"embed_batch_size"`

	// EmbedRateLimit caps embedding requests per second. Zero disables
	// rate limiting.
	EmbedRateLimit float64 `mapstructure:"embed_rate_limit" json:"embed_rate_limit"`
}

// Config stores application configuration.
// SECURITY: the PostgreSQL password is never logged.
type Config struct {
	// Embedding model configuration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	Dimension     int    `mapstructure:"dimension" json:"dimension"`

	// Storage configuration (see postgres.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"-"` // SENSITIVE
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	Chunking  ChunkingConfig  `mapstructure:"chunking" json:"chunking"`
	Retrieval RetrievalConfig `mapstructure:"retrieval" json:"retrieval"`
	Ingest    IngestConfig    `mapstructure:"ingest" json:"ingest"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".grove")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("GROVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("dimension", DefaultDimension)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "grove")
	v.SetDefault("postgres_password", "grove_dev_password")
	v.SetDefault("postgres_db_name", "grove")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("chunking.max_size", 1000)
	v.SetDefault("chunking.overlap", 100)

	v.SetDefault("retrieval.top_k", 4)
	v.SetDefault("retrieval.min_similarity", 0.1)

	v.SetDefault("ingest.max_upload_bytes", int64(50*1024*1024))
	v.SetDefault("ingest.embed_batch_size", 5)
	v.SetDefault("ingest.embed_rate_limit", 0.0)
}

// Validate checks configuration values and fails fast with sentinel errors.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model must not be empty", ErrInvalidEmbedderModel)
	}
	if c.Dimension < 1 || c.Dimension > 8192 {
		return fmt.Errorf("%w: %d (must be 1-8192)", ErrInvalidDimension, c.Dimension)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}
	switch c.PostgresSSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	if c.Chunking.MaxSize < 100 {
		return fmt.Errorf("%w: max_size %d (must be >= 100)", ErrInvalidChunking, c.Chunking.MaxSize)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxSize {
		return fmt.Errorf("%w: overlap %d must be in [0, max_size)", ErrInvalidChunking, c.Chunking.Overlap)
	}

	if c.Retrieval.TopK < 1 || c.Retrieval.TopK > 100 {
		return fmt.Errorf("%w: top_k %d (must be 1-100)", ErrInvalidRetrieval, c.Retrieval.TopK)
	}
	if c.Retrieval.MinSimilarity < -1 || c.Retrieval.MinSimilarity > 1 {
		return fmt.Errorf("%w: min_similarity %v (must be in [-1, 1])", ErrInvalidRetrieval, c.Retrieval.MinSimilarity)
	}

	if c.Ingest.MaxUploadBytes < 1 {
		return fmt.Errorf("%w: max_upload_bytes %d", ErrInvalidIngest, c.Ingest.MaxUploadBytes)
	}
	if c.Ingest.EmbedBatchSize < 1 || c.Ingest.EmbedBatchSize > 100 {
		return fmt.Errorf("%w: embed_batch_size %d (must be 1-100)", ErrInvalidIngest, c.Ingest.EmbedBatchSize)
	}
	if c.Ingest.EmbedRateLimit < 0 {
		return fmt.Errorf("%w: embed_rate_limit %v", ErrInvalidIngest, c.Ingest.EmbedRateLimit)
	}

	return nil
}
