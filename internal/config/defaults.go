package config

import (
	"github.com/hyperjump/paperselect/internal/library"
	"github.com/hyperjump/paperselect/internal/selection"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 100 << 20
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/paperselect/data/runs.db"
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "/usr/local/var/paperselect/data/uploads"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/paperselect/data/models/all-mpnet-base-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Selection.ThresholdMethod == "" {
		cfg.Selection.ThresholdMethod = string(selection.DefaultPolicy)
	}
	if cfg.Library.TitleColumns == nil {
		cfg.Library.TitleColumns = append([]string(nil), library.DefaultTitleColumns...)
	}
	if cfg.Library.AbstractColumns == nil {
		cfg.Library.AbstractColumns = append([]string(nil), library.DefaultAbstractColumns...)
	}
	if cfg.Library.Separator == "" {
		cfg.Library.Separator = library.DefaultSeparator
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 400
	}
}
