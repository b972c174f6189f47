// Package config provides configuration loading and structs for the kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chat      ChatConfig      `yaml:"chat"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database, the session index file, and uploads.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path"`
	SessionIndexPath string `yaml:"session_index_path"`
	UploadDir        string `yaml:"upload_dir"`
}

// EmbeddingConfig holds embedding provider settings. The API key itself is
// read from the environment variable named by APIKeyEnv, never from YAML.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "gemini" or "mock"
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CacheSize      int    `yaml:"cache_size"`
	APIKeyEnv      string `yaml:"api_key_env"`
}

// ChatConfig holds generative-model and retrieval settings.
type ChatConfig struct {
	Model              string  `yaml:"model"`
	Temperature        float64 `yaml:"temperature"`
	TopK               int     `yaml:"top_k"`
	MaxTopK            int     `yaml:"max_top_k"`
	TimeoutSeconds     int     `yaml:"timeout_seconds"`
	RetryBackoffMillis int     `yaml:"retry_backoff_ms"`
}

// IngestConfig holds chunking and ingestion settings.
type IngestConfig struct {
	ChunkSize      int      `yaml:"chunk_size"`
	ChunkOverlap   int      `yaml:"chunk_overlap"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Extensions     []string `yaml:"extensions"`
}

// WatchConfig holds drop-directory auto-ingestion settings. Files dropped
// under <directory>/<session-id>/ are ingested into that session.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.SessionIndexPath = expandPath(cfg.Storage.SessionIndexPath, configDir)
	cfg.Storage.UploadDir = expandPath(cfg.Storage.UploadDir, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
