package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

var ErrMissingRequired = errors.New("missing required configuration")

const (
	DefaultConfigPath = "./configs/config.yaml"

	DefaultEmbeddingModel     = "text-embedding-3-small"
	DefaultEmbeddingDimension = 1536
	DefaultMaxTokens          = 8191

	DefaultTableChunkSize = 50
	DefaultTextChunkSize  = 1000
	DefaultBatchSize      = 50
	DefaultTPMLimit       = 1000000
	DefaultPageSize       = 50

	DefaultStagingDir      = "downloads"
	DefaultChromemPath     = "./chromemdb"
	DefaultDownloadTimeout = 60 // seconds

	BackendSupabase = "supabase"
	BackendChromem  = "chromem"
)

type Config struct {
	LogLevel string         `yaml:"log_level"`
	Database DatabaseConfig `yaml:"database"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Storage  StorageConfig  `yaml:"storage"`
	Download DownloadConfig `yaml:"download"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url" envconfig:"SUPABASE_DB_URL"`
	Password string `yaml:"password" envconfig:"SERVICE_ROLE"`
	Driver   string `yaml:"driver" envconfig:"DB_DRIVER"`
	SSLMode  string `yaml:"ssl_mode" envconfig:"DB_SSL_MODE"`
	Debug    bool   `yaml:"debug" envconfig:"DB_DEBUG"`
}

type LLMConfig struct {
	BaseURL   string `yaml:"base_url" envconfig:"OPENAI_BASE_URL"`
	Key       string `yaml:"key" envconfig:"OPENAI_API_KEY"`
	Model     string `yaml:"model" envconfig:"EMBEDDING_MODEL"`
	Dimension int    `yaml:"dimension" envconfig:"EMBEDDING_DIMENSION"`
}

// PipelineConfig holds the chunking and throttling knobs of one processing run.
type PipelineConfig struct {
	TableChunkSize int `yaml:"table_chunk_size" envconfig:"TABLE_CHUNK_SIZE"`
	TextChunkSize  int `yaml:"text_chunk_size" envconfig:"TEXT_CHUNK_SIZE"`
	BatchSize      int `yaml:"batch_size" envconfig:"BATCH_SIZE"`
	TPMLimit       int `yaml:"tpm_limit" envconfig:"TPM_LIMIT"`
	PageSize       int `yaml:"page_size" envconfig:"PAGE_SIZE"`
	MaxTokens      int `yaml:"max_tokens" envconfig:"MAX_TOKENS"`
	Dimension      int `yaml:"-" ignored:"true"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend" envconfig:"STORAGE_BACKEND"`
	ChromemPath string `yaml:"chromem_path" envconfig:"CHROMEM_PATH"`
}

type DownloadConfig struct {
	StagingDir     string `yaml:"staging_dir" envconfig:"STAGING_DIR"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"DOWNLOAD_TIMEOUT_SECONDS"`
}

// LoadConfig reads the YAML file at path (if present), then .env and the
// process environment, which take precedence over the file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// environment only
	default:
		return nil, err
	}

	// env vars might already be set in the shell
	_ = godotenv.Load(".env")

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero values with the pipeline defaults.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.EmbedLLM.Model == "" {
		c.EmbedLLM.Model = DefaultEmbeddingModel
	}
	if c.EmbedLLM.Dimension <= 0 {
		c.EmbedLLM.Dimension = DefaultEmbeddingDimension
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "pgdriver"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "require"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendSupabase
	}
	if c.Storage.ChromemPath == "" {
		c.Storage.ChromemPath = DefaultChromemPath
	}
	if c.Download.StagingDir == "" {
		c.Download.StagingDir = DefaultStagingDir
	}
	if c.Download.TimeoutSeconds <= 0 {
		c.Download.TimeoutSeconds = DefaultDownloadTimeout
	}
	c.Pipeline.ApplyDefaults()
	c.Pipeline.Dimension = c.EmbedLLM.Dimension
}

func (p *PipelineConfig) ApplyDefaults() {
	if p.TableChunkSize <= 0 {
		p.TableChunkSize = DefaultTableChunkSize
	}
	if p.TextChunkSize <= 0 {
		p.TextChunkSize = DefaultTextChunkSize
	}
	if p.BatchSize <= 0 {
		p.BatchSize = DefaultBatchSize
	}
	if p.TPMLimit <= 0 {
		p.TPMLimit = DefaultTPMLimit
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = DefaultMaxTokens
	}
	if p.Dimension <= 0 {
		p.Dimension = DefaultEmbeddingDimension
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSupabase:
		if c.Database.URL == "" {
			return fmt.Errorf("%w: SUPABASE_DB_URL", ErrMissingRequired)
		}
	case BackendChromem:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Database.Driver {
	case "pgdriver", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}
