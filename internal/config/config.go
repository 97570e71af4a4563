// Package config loads vecfs configuration.
//
// Values come from hardcoded defaults, then an optional YAML file, then
// VECFS_-prefixed environment variables, highest last.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the complete daemon configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Storage    StorageConfig    `koanf:"storage"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Ingest     IngestConfig     `koanf:"ingest"`
	Search     SearchConfig     `koanf:"search"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	BodyLimit       string   `koanf:"body_limit"`
	// DefaultTenant serves requests without a tenant header. Empty means
	// such requests are rejected; "auto" derives it from the git user.
	DefaultTenant string `koanf:"default_tenant"`
}

// StorageConfig configures the embedded key-value store.
type StorageConfig struct {
	Path             string   `koanf:"path"`
	InMemory         bool     `koanf:"in_memory"`
	SyncWrites       bool     `koanf:"sync_writes"`
	ValueLogFileSize int64    `koanf:"value_log_file_size"`
	GCInterval       Duration `koanf:"gc_interval"`
}

// EmbeddingsConfig selects the embedding provider.
type EmbeddingsConfig struct {
	Provider  string `koanf:"provider"`
	BaseURL   string `koanf:"base_url"`
	Model     string `koanf:"model"`
	APIKey    Secret `koanf:"api_key"`
	CacheDir  string `koanf:"cache_dir"`
	Dimension int    `koanf:"dimension"`
}

// IngestConfig tunes file chunking and secret redaction.
type IngestConfig struct {
	MaxChunkSize int `koanf:"max_chunk_size"`
	BatchSize    int `koanf:"batch_size"`
	Concurrency  int `koanf:"concurrency"`

	// DisableSecretScrub stores document text as uploaded.
	DisableSecretScrub bool `koanf:"disable_secret_scrub"`
	// SecretAllowlist is a gitleaks-style TOML file of exempt patterns.
	SecretAllowlist string `koanf:"secret_allowlist"`

	// DataTags tag chunks whose text matches Pattern.
	DataTags []DataTagConfig `koanf:"data_tags"`
}

// DataTagConfig declares one data tag.
type DataTagConfig struct {
	Name        string `koanf:"name"`
	Description string `koanf:"description"`
	Pattern     string `koanf:"pattern"`
}

// SearchConfig bounds search requests.
type SearchConfig struct {
	DefaultK     int `koanf:"default_k"`
	MaxK         int `koanf:"max_k"`
	NumResources int `koanf:"num_resources"`
}

// LoggingConfig selects log verbosity and encoding.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
	Insecure    bool   `koanf:"insecure"`
	// Protocol is "grpc" or "http/protobuf".
	Protocol   string  `koanf:"protocol"`
	SampleRate float64 `koanf:"sample_rate"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9550
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.BodyLimit == "" {
		cfg.Server.BodyLimit = "200M"
	}

	if cfg.Storage.Path == "" && !cfg.Storage.InMemory {
		cfg.Storage.Path = "~/.local/share/vecfs/db"
	}
	if cfg.Storage.ValueLogFileSize == 0 {
		cfg.Storage.ValueLogFileSize = 100 << 20
	}
	if cfg.Storage.GCInterval == 0 {
		cfg.Storage.GCInterval = Duration(10 * time.Minute)
	}

	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "tei"
	}
	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8080"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}

	if cfg.Ingest.MaxChunkSize == 0 {
		cfg.Ingest.MaxChunkSize = 400
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 32
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = 4
	}

	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = 10
	}
	if cfg.Search.MaxK == 0 {
		cfg.Search.MaxK = 100
	}
	if cfg.Search.NumResources == 0 {
		cfg.Search.NumResources = 5
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "vecfs"
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return errors.New("storage path required unless in_memory is set")
	}
	if c.Storage.ValueLogFileSize < 1<<20 || c.Storage.ValueLogFileSize >= 2<<30 {
		return fmt.Errorf("storage value_log_file_size %d out of range [1MiB, 2GiB)", c.Storage.ValueLogFileSize)
	}
	switch c.Embeddings.Provider {
	case "tei":
		if c.Embeddings.BaseURL == "" {
			return errors.New("embeddings base_url required for tei provider")
		}
	case "fastembed", "hash":
	default:
		return fmt.Errorf("unknown embeddings provider %q (tei, fastembed or hash)", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimension < 0 {
		return fmt.Errorf("embeddings dimension must not be negative, got %d", c.Embeddings.Dimension)
	}
	if c.Search.DefaultK < 1 || c.Search.DefaultK > c.Search.MaxK {
		return fmt.Errorf("search default_k %d must be between 1 and max_k %d", c.Search.DefaultK, c.Search.MaxK)
	}
	if c.Search.NumResources < 1 {
		return fmt.Errorf("search num_resources must be positive, got %d", c.Search.NumResources)
	}
	for i, t := range c.Ingest.DataTags {
		if t.Name == "" || t.Pattern == "" {
			return fmt.Errorf("ingest data_tags[%d] needs a name and a pattern", i)
		}
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry sample_rate must be between 0 and 1, got %g", c.Telemetry.SampleRate)
	}
	return nil
}
