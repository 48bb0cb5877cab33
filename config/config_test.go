package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Index.MaxChunkSize != 500 {
		t.Errorf("expected MaxChunkSize=500, got %d", cfg.Index.MaxChunkSize)
	}
	if cfg.Index.MinContentLength != 10 {
		t.Errorf("expected MinContentLength=10, got %d", cfg.Index.MinContentLength)
	}
	if cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("expected model nomic-embed-text, got %s", cfg.Embedding.Model)
	}
	if cfg.Embedding.Throttle != 100*time.Millisecond {
		t.Errorf("expected Throttle=100ms, got %s", cfg.Embedding.Throttle)
	}
	if cfg.Retrieve.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieve.TopK)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "docindex.yaml")

	content := `
index:
  max_chunk_size: 256
embedding:
  provider: mock
  dimension: 16
  throttle: 250ms
retrieve:
  top_k: 10
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Index.MaxChunkSize != 256 {
		t.Errorf("expected MaxChunkSize=256, got %d", cfg.Index.MaxChunkSize)
	}
	if cfg.Embedding.Provider != ProviderMock {
		t.Errorf("expected provider mock, got %s", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Throttle != 250*time.Millisecond {
		t.Errorf("expected Throttle=250ms, got %s", cfg.Embedding.Throttle)
	}
	if cfg.Retrieve.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieve.TopK)
	}
	// untouched sections keep their defaults
	if cfg.Index.MinContentLength != 10 {
		t.Errorf("expected MinContentLength=10, got %d", cfg.Index.MinContentLength)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "docindex.yaml")
	if err := os.WriteFile(configPath, []byte("index: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := EnsureIndexDir(tmpDir); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, IndexDirName, "config.yaml")

	content := `
retrieve:
  top_k: 8
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Retrieve.TopK != 8 {
		t.Errorf("expected TopK=8, got %d", cfg.Retrieve.TopK)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "gpu-box:11434")
	t.Setenv("DOCINDEX_EMBEDDING_MODEL", "mxbai-embed-large")
	t.Setenv("DOCINDEX_EMBEDDING_URL", "")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Embedding.BaseURL != "http://gpu-box:11434" {
		t.Errorf("expected OLLAMA_HOST to set base URL, got %s", cfg.Embedding.BaseURL)
	}
	if cfg.Embedding.Model != "mxbai-embed-large" {
		t.Errorf("expected model override, got %s", cfg.Embedding.Model)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Index.MaxChunkSize = 0 }},
		{"zero top k", func(c *Config) { c.Retrieve.TopK = 0 }},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "bert-server" }},
		{"mock without dimension", func(c *Config) {
			c.Embedding.Provider = ProviderMock
			c.Embedding.Dimension = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docindex.yaml")
	cfg := DefaultConfig()
	cfg.Retrieve.TopK = 7

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Retrieve.TopK != 7 {
		t.Errorf("expected TopK=7 after reload, got %d", loaded.Retrieve.TopK)
	}
}

func TestIndexDBPath(t *testing.T) {
	path := IndexDBPath("/home/user/notes")
	expected := filepath.Join("/home/user/notes", ".docindex", "index.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}
}
