package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the caselex search-engine configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Cache      CacheConfig      `yaml:"cache"`
	Index      IndexConfig      `yaml:"index"`
	Search     SearchConfig     `yaml:"search"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// DatabaseConfig holds the relational decision-store connection settings.
type DatabaseConfig struct {
	DSN               string `yaml:"dsn"`
	ConnectTimeoutSec int    `yaml:"connect_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	// TextCap bounds the full-text prefix used when composing embedding input.
	// A latency trade-off, not a correctness requirement.
	TextCap int `yaml:"text_cap_chars"`
}

// CacheConfig holds the optional Redis embedding-cache settings.
// Empty addrs disables the cache entirely.
type CacheConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
}

// IndexConfig holds per-area index storage settings.
type IndexConfig struct {
	Dir         string `yaml:"dir"`
	LoadedAreas int    `yaml:"loaded_areas"` // LRU cache capacity for resident areas
	MinTextLen  int    `yaml:"min_text_len"` // decisions shorter than this are never indexed
	FetchBatch  int    `yaml:"fetch_batch"`  // max decisions fetched per batch
}

// SearchConfig holds query-engine ranking and fan-out settings.
type SearchConfig struct {
	TopKPerArea     int     `yaml:"top_k_per_area"`
	MaxAreas        int     `yaml:"max_areas"`
	VectorWeight    float64 `yaml:"vector_weight"`
	KeywordWeight   float64 `yaml:"keyword_weight"`
	MinRelevance    float64 `yaml:"min_relevance"`
	DefaultPageSize int     `yaml:"default_page_size"`
	MaxPageSize     int     `yaml:"max_page_size"`
	AreaTimeoutSec  int     `yaml:"area_timeout_sec"`
	Workers         int     `yaml:"workers"`
}

// CheckpointConfig holds the indexer checkpoint location.
type CheckpointConfig struct {
	Path string `yaml:"path"` // defaults to <index.dir>/checkpoint
}

// MetricsConfig holds the optional Prometheus listener settings.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // e.g. ":9090"; empty disables the listener
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Database.ConnectTimeoutSec <= 0 {
		c.Database.ConnectTimeoutSec = 10
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 64
	}
	if c.Embedding.TextCap <= 0 {
		c.Embedding.TextCap = 2000
	}
	if c.Index.Dir == "" {
		c.Index.Dir = "data/indexes"
	}
	if c.Index.LoadedAreas <= 0 {
		c.Index.LoadedAreas = 8
	}
	if c.Index.MinTextLen <= 0 {
		c.Index.MinTextLen = 200
	}
	if c.Index.FetchBatch <= 0 {
		c.Index.FetchBatch = 500
	}
	if c.Search.TopKPerArea <= 0 {
		c.Search.TopKPerArea = 10
	}
	if c.Search.MaxAreas <= 0 {
		c.Search.MaxAreas = 10
	}
	if c.Search.VectorWeight <= 0 {
		c.Search.VectorWeight = 0.3
	}
	if c.Search.KeywordWeight <= 0 {
		c.Search.KeywordWeight = 0.7
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 20
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
	if c.Search.AreaTimeoutSec <= 0 {
		c.Search.AreaTimeoutSec = 5
	}
	if c.Search.Workers <= 0 {
		c.Search.Workers = 4
	}
	if c.Checkpoint.Path == "" {
		c.Checkpoint.Path = filepath.Join(c.Index.Dir, "checkpoint")
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Search.VectorWeight+c.Search.KeywordWeight <= 0 {
		return fmt.Errorf("search weights must sum to a positive value")
	}
	if c.Search.MinRelevance < 0 || c.Search.MinRelevance > 1 {
		return fmt.Errorf("search.min_relevance must be in [0,1], got %f", c.Search.MinRelevance)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
