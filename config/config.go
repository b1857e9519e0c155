package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Index store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Search  SearchConfig  `yaml:"search"`
	Jobs    JobsConfig    `yaml:"jobs"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	MaxRequestBytes int64  `yaml:"max_request_bytes"`
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for documents and indexes.
type StorageConfig struct {
	DataDir      string `yaml:"data_dir"`
	IndexBackend string `yaml:"index_backend"` // "memory" (gob snapshots in data_dir) or "sqlite"
	SQLitePath   string `yaml:"sqlite_path"`
}

// SearchConfig holds query and indexing settings.
type SearchConfig struct {
	DefaultLanguage    string `yaml:"default_language"`
	TokenizerCacheSize int    `yaml:"tokenizer_cache_size"`
	RefreshBatchSize   int    `yaml:"refresh_batch_size"`
}

// JobsConfig holds background job settings.
type JobsConfig struct {
	Workers int `yaml:"workers"`
}

// Default returns a config with every default applied.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
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
	cfg.Storage.DataDir = expandPath(cfg.Storage.DataDir, configDir)
	cfg.Storage.SQLitePath = expandPath(cfg.Storage.SQLitePath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxRequestBytes == 0 {
		cfg.Server.MaxRequestBytes = 32 << 20
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "./data"
	}
	if cfg.Storage.IndexBackend == "" {
		cfg.Storage.IndexBackend = BackendMemory
	}
	if cfg.Storage.SQLitePath == "" {
		// not filepath.Join: it would drop the "./" that marks config-relative paths
		cfg.Storage.SQLitePath = strings.TrimRight(cfg.Storage.DataDir, "/") + "/indexes.db"
	}
	if cfg.Search.DefaultLanguage == "" {
		cfg.Search.DefaultLanguage = "en"
	}
	if cfg.Search.TokenizerCacheSize == 0 {
		cfg.Search.TokenizerCacheSize = 16
	}
	if cfg.Search.RefreshBatchSize == 0 {
		cfg.Search.RefreshBatchSize = 500
	}
	if cfg.Jobs.Workers == 0 {
		cfg.Jobs.Workers = 2
	}
}

// Validate reports settings that cannot be used.
func (cfg *Config) Validate() error {
	switch cfg.Storage.IndexBackend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("invalid index_backend %q (must be %q or %q)", cfg.Storage.IndexBackend, BackendMemory, BackendSQLite)
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Search.RefreshBatchSize < 0 {
		return fmt.Errorf("refresh_batch_size must be positive")
	}
	if cfg.Jobs.Workers < 0 {
		return fmt.Errorf("jobs.workers must be positive")
	}
	return nil
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
