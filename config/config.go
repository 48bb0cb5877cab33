package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Config holds all configuration for docindex.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Extract   ExtractConfig   `yaml:"extract"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IndexConfig holds indexing configuration.
type IndexConfig struct {
	Includes         []string `yaml:"includes"`
	Excludes         []string `yaml:"excludes"`
	MaxChunkSize     int      `yaml:"max_chunk_size"`     // characters
	MinContentLength int      `yaml:"min_content_length"` // shorter extracted text is not indexed
	MaxFileSize      int64    `yaml:"max_file_size"`      // bytes; larger files are indexed as metadata only
}

// EmbeddingConfig holds embedding backend configuration.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"` // "ollama", "openai", "mock"
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"` // openai only
	Timeout   time.Duration `yaml:"timeout"`
	Throttle  time.Duration `yaml:"throttle"`  // pause between calls while bulk indexing
	Dimension int           `yaml:"dimension"` // mock only
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK      int           `yaml:"top_k"`
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// ExtractConfig controls the binary document extractors.
type ExtractConfig struct {
	PDF       bool `yaml:"pdf"`
	Office    bool `yaml:"office"`
	TextLimit int  `yaml:"text_limit"` // characters kept per extracted document
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultIncludes lists the indexable extensions.
var DefaultIncludes = []string{
	"**/*.txt", "**/*.md", "**/*.js", "**/*.ts", "**/*.jsx", "**/*.tsx", "**/*.py",
	"**/*.java", "**/*.cpp", "**/*.c", "**/*.html", "**/*.css", "**/*.json", "**/*.xml",
	"**/*.yml", "**/*.yaml", "**/*.sql", "**/*.sh", "**/*.bat", "**/*.php", "**/*.rb",
	"**/*.go", "**/*.rs", "**/*.swift", "**/*.kt", "**/*.scala", "**/*.clj", "**/*.hs",
	"**/*.pdf", "**/*.epub", "**/*.docx", "**/*.doc", "**/*.xlsx", "**/*.xls", "**/*.pptx", "**/*.ppt",
}

// DefaultExcludes lists build artifacts, VCS metadata and scratch files.
var DefaultExcludes = []string{
	"**/node_modules/**", "**/.git/**", "**/.next/**", "**/build/**", "**/dist/**",
	"**/.cache/**", "**/coverage/**", "**/.nyc_output/**", "**/logs/**",
	"**/.docindex/**", "**/*.log", "**/*.tmp", "**/*.temp",
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Includes:         append([]string(nil), DefaultIncludes...),
			Excludes:         append([]string(nil), DefaultExcludes...),
			MaxChunkSize:     500,
			MinContentLength: 10,
			MaxFileSize:      20 << 20,
		},
		Embedding: EmbeddingConfig{
			Provider:  ProviderOllama,
			Model:     "nomic-embed-text",
			BaseURL:   "http://localhost:11434",
			APIKeyEnv: "OPENAI_API_KEY",
			Timeout:   60 * time.Second,
			Throttle:  100 * time.Millisecond,
			Dimension: 64,
		},
		Retrieve: RetrieveConfig{
			TopK:      5,
			CacheSize: 128,
			CacheTTL:  5 * time.Minute,
		},
		Extract: ExtractConfig{
			PDF:       true,
			Office:    true,
			TextLimit: 20000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnv()
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docindex.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docindex.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, IndexDirName, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides settings from the environment. OLLAMA_HOST is honoured
// so a shared Ollama setup works without a config file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("OLLAMA_HOST"); v != "" && c.Embedding.Provider == ProviderOllama {
		c.Embedding.BaseURL = normalizeHost(v)
	}
	if v := os.Getenv("DOCINDEX_EMBEDDING_URL"); v != "" {
		c.Embedding.BaseURL = v
	}
	if v := os.Getenv("DOCINDEX_EMBEDDING_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("DOCINDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func normalizeHost(h string) string {
	if strings.HasPrefix(h, "http://") || strings.HasPrefix(h, "https://") {
		return h
	}
	return "http://" + h
}

// Validate reports settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	if c.Index.MaxChunkSize <= 0 {
		return fmt.Errorf("index.max_chunk_size must be positive, got %d", c.Index.MaxChunkSize)
	}
	if c.Index.MinContentLength < 0 {
		return fmt.Errorf("index.min_content_length must not be negative, got %d", c.Index.MinContentLength)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	}
	switch c.Embedding.Provider {
	case ProviderOllama, ProviderOpenAI:
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for provider %s", c.Embedding.Provider)
		}
	case ProviderMock:
		if c.Embedding.Dimension <= 0 {
			return fmt.Errorf("embedding.dimension must be positive for the mock provider")
		}
	default:
		return fmt.Errorf("unsupported embedding provider: %q", c.Embedding.Provider)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDirName is the per-root directory holding the index and optional config.
const IndexDirName = ".docindex"

// IndexDBPath returns the path to the index database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, IndexDirName, "index.db")
}

// EnsureIndexDir ensures the .docindex directory exists.
func EnsureIndexDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, IndexDirName), 0755)
}
