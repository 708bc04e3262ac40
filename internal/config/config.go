// Package config provides configuration loading and structs for paperselect.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/paperselect/internal/selection"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Selection SelectionConfig `yaml:"selection"`
	Library   LibraryConfig   `yaml:"library"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// StorageConfig holds paths for the run database and uploaded libraries.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	UploadDir    string `yaml:"upload_dir"`
}

// EmbeddingConfig holds ONNX embedder settings.
type EmbeddingConfig struct {
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	BatchSize  int    `yaml:"batch_size"`
}

// SelectionConfig holds the threshold policy applied when the caller does not pass one.
type SelectionConfig struct {
	ThresholdMethod string   `yaml:"threshold_method"`
	CustomThreshold *float64 `yaml:"custom_threshold,omitempty"`
}

// Policy returns the parsed threshold method.
func (s *SelectionConfig) Policy() (selection.Policy, error) {
	return selection.ParsePolicy(s.ThresholdMethod)
}

// LibraryConfig holds column detection and text combination settings.
type LibraryConfig struct {
	TitleColumns    []string `yaml:"title_columns"`
	AbstractColumns []string `yaml:"abstract_columns"`
	Separator       string   `yaml:"separator"`
}

// WatchConfig holds file watch settings for the watch command.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// Load reads and parses the config file at path, expands paths, applies defaults and validates
// the selection section. Returns an error if the file cannot be read or parsed.
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
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.UploadDir = expandPath(cfg.Storage.UploadDir, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	return &cfg, nil
}

// Default returns a config with all defaults applied, for use when no file exists.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Validate checks the selection section: the method must be known and custom needs a value.
func Validate(cfg *Config) error {
	policy, err := cfg.Selection.Policy()
	if err != nil {
		return fmt.Errorf("invalid selection config: %w", err)
	}
	if policy == selection.PolicyCustom && cfg.Selection.CustomThreshold == nil {
		return fmt.Errorf("invalid selection config: %w: custom_threshold is required when threshold_method is %q",
			selection.ErrMissingArgument, selection.PolicyCustom)
	}
	return nil
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

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
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
