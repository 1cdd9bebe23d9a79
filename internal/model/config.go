package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Build modes
const (
	BuildDev  = "dev"
	BuildTest = "test"
	BuildProd = "prod"
)

// Config is the complete runtime configuration
type Config struct {
	APIVersion string `yaml:"api_version" mapstructure:"api_version"`
	Build      string `yaml:"build" mapstructure:"build"`

	// DataDir holds the corpus and the persisted index
	DataDir    string `yaml:"data_dir" mapstructure:"data_dir"`
	CorpusPath string `yaml:"corpus_path" mapstructure:"corpus_path"`
	IndexDir   string `yaml:"index_dir" mapstructure:"index_dir"`

	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Index     IndexConfig     `yaml:"index" mapstructure:"index"`
	Warmup    WarmupConfig    `yaml:"warmup" mapstructure:"warmup"`
	Scraper   ScraperConfig   `yaml:"scraper" mapstructure:"scraper"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ServerConfig controls the HTTP boundary
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// LLMConfig selects and tunes the generation provider
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`

	// StrictSources rejects answers citing URLs that were not in the retrieved context
	StrictSources bool `yaml:"strict_sources" mapstructure:"strict_sources"`

	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// EmbeddingConfig selects the embedding function
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider" mapstructure:"provider"` // openai, hash
	Model             string        `yaml:"model" mapstructure:"model"`
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Dimension         int           `yaml:"dimension" mapstructure:"dimension"` // hash provider only
	BatchSize         int           `yaml:"batch_size" mapstructure:"batch_size"`
	Workers           int           `yaml:"workers" mapstructure:"workers"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	CacheDir          string        `yaml:"cache_dir,omitempty" mapstructure:"cache_dir"`
	CacheTTL          time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// IndexConfig tunes chunking and retrieval
type IndexConfig struct {
	ChunkSize    int           `yaml:"chunk_size" mapstructure:"chunk_size"`
	ChunkOverlap int           `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
	TopK         int           `yaml:"top_k" mapstructure:"top_k"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// WarmupConfig controls the canary query issued after startup
type WarmupConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Query   string `yaml:"query" mapstructure:"query"`
}

// ScraperConfig controls the corpus builder
type ScraperConfig struct {
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
	Delay     time.Duration `yaml:"delay" mapstructure:"delay"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes" mapstructure:"max_bytes"`
	BatchSize int           `yaml:"batch_size" mapstructure:"batch_size"`
	Sections  int           `yaml:"sections" mapstructure:"sections"`
	Workers   int           `yaml:"workers" mapstructure:"workers"`
}

// LogConfig controls the slog handler
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		APIVersion: "v1",
		Build:      BuildDev,
		DataDir:    "data",
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second, // Generation can be slow
			ShutdownTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Timeout:     60,
			MaxTokens:   1000,
			Temperature: 0.2,
		},
		Embedding: EmbeddingConfig{
			Provider:          "openai",
			Model:             "text-embedding-3-small",
			Dimension:         384,
			BatchSize:         64,
			Workers:           4,
			RequestsPerSecond: 5,
			CacheTTL:          24 * time.Hour,
		},
		Index: IndexConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			TopK:         3,
			Timeout:      30 * time.Second,
		},
		Warmup: WarmupConfig{
			Enabled: true,
			Query:   "Proxy China",
		},
		Scraper: ScraperConfig{
			UserAgent: "QnA-Bot/0.1",
			Delay:     100 * time.Millisecond,
			Timeout:   10 * time.Second,
			MaxBytes:  2_000_000,
			BatchSize: 100,
			Sections:  2,
			Workers:   1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// buildDataDir is the data directory after applying the build mode
func (c *Config) buildDataDir() string {
	if c.Build == BuildTest {
		return filepath.Join(c.DataDir, "test")
	}
	return c.DataDir
}

// ResolvedCorpusPath returns the corpus file, defaulting under the build's data dir
func (c *Config) ResolvedCorpusPath() string {
	if c.CorpusPath != "" {
		return c.CorpusPath
	}
	return filepath.Join(c.buildDataDir(), "raw_data.json")
}

// ResolvedIndexDir returns the index persistence directory, defaulting under the build's data dir
func (c *Config) ResolvedIndexDir() string {
	if c.IndexDir != "" {
		return c.IndexDir
	}
	return filepath.Join(c.buildDataDir(), "vector_store")
}

// EnvFile returns the dotenv file for the build mode
func (c *Config) EnvFile() string {
	if c.Build == BuildTest {
		return ".env.test"
	}
	return ".env"
}

// Validate checks the configuration for values the components cannot work with
func (c *Config) Validate() error {
	if err := c.ValidateIndex(); err != nil {
		return err
	}

	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "anthropic", "claude":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for provider %s", c.LLM.Provider)
		}
	case "ollama":
	default:
		return fmt.Errorf("unknown llm provider %q (supported: openai, anthropic, ollama)", c.LLM.Provider)
	}

	return nil
}

// ValidateIndex checks only what building the index needs: build mode,
// chunking and the embedding provider. Commands that never generate use it.
func (c *Config) ValidateIndex() error {
	switch c.Build {
	case BuildDev, BuildTest, BuildProd:
	default:
		return fmt.Errorf("invalid build %q (supported: dev, test, prod)", c.Build)
	}

	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("index.chunk_size must be positive, got %d", c.Index.ChunkSize)
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("index.chunk_overlap must be in [0, chunk_size), got %d", c.Index.ChunkOverlap)
	}
	if c.Index.TopK <= 0 {
		return fmt.Errorf("index.top_k must be positive, got %d", c.Index.TopK)
	}

	switch strings.ToLower(c.Embedding.Provider) {
	case "openai":
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("embedding.api_key is required for provider openai")
		}
	case "hash":
		if c.Embedding.Dimension <= 0 {
			return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
		}
	default:
		return fmt.Errorf("unknown embedding provider %q (supported: openai, hash)", c.Embedding.Provider)
	}

	return nil
}

// Masked returns a copy safe to print, with secrets elided
func (c *Config) Masked() *Config {
	out := *c
	out.LLM.APIKey = maskSecret(out.LLM.APIKey)
	out.Embedding.APIKey = maskSecret(out.Embedding.APIKey)
	return &out
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
