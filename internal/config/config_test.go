package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/paperselect/internal/library"
	"github.com/hyperjump/paperselect/internal/selection"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
selection:
  threshold_method: percentile_90
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Selection.ThresholdMethod != "percentile_90" {
		t.Errorf("threshold_method = %q", cfg.Selection.ThresholdMethod)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/runs.db"
  upload_dir: "./data/uploads"
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "runs.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "data", "uploads"); cfg.Storage.UploadDir != want {
		t.Errorf("upload_dir = %s, want %s", cfg.Storage.UploadDir, want)
	}
}

func TestLoad_customThreshold(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
selection:
  threshold_method: custom
  custom_threshold: 0.35
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Selection.CustomThreshold == nil || *cfg.Selection.CustomThreshold != 0.35 {
		t.Errorf("custom_threshold = %v", cfg.Selection.CustomThreshold)
	}
}

func TestLoad_invalidSelection(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"unknown method", "selection:\n  threshold_method: top_k\n", selection.ErrUnknownPolicy},
		{"custom without value", "selection:\n  threshold_method: custom\n", selection.ErrMissingArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadBytes != 100<<20 {
		t.Errorf("default max_upload_bytes: got %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.Selection.ThresholdMethod != string(selection.PolicyMean2Std) {
		t.Errorf("default threshold_method: got %s", cfg.Selection.ThresholdMethod)
	}
	if cfg.Embedding.Dimensions != 384 || cfg.Embedding.BatchSize != 32 {
		t.Errorf("embedding defaults: got %+v", cfg.Embedding)
	}
	if cfg.Library.Separator != " [SEP] " {
		t.Errorf("default separator: got %q", cfg.Library.Separator)
	}
	if len(cfg.Library.TitleColumns) == 0 || cfg.Library.TitleColumns[0] != "Title" {
		t.Errorf("title columns: got %v", cfg.Library.TitleColumns)
	}
	if cfg.Watch.DebounceMS != 400 {
		t.Errorf("default debounce: got %d", cfg.Watch.DebounceMS)
	}
}

func TestApplyDefaults_doesNotAliasDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Library.TitleColumns[0] = "changed"
	if library.DefaultTitleColumns[0] != "Title" {
		t.Error("ApplyDefaults must copy the default column list")
	}
}

func TestSave_roundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	custom := 0.5
	cfg := Default()
	cfg.Storage.DatabasePath = "/tmp/runs.db"
	cfg.Selection.ThresholdMethod = "custom"
	cfg.Selection.CustomThreshold = &custom
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Storage.DatabasePath != "/tmp/runs.db" || *got.Selection.CustomThreshold != 0.5 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestExpandPath(t *testing.T) {
	if got := expandPath("/abs/x", "/cfg"); got != "/abs/x" {
		t.Errorf("absolute path changed: %s", got)
	}
	if got := expandPath("", "/cfg"); got != "" {
		t.Errorf("empty path changed: %s", got)
	}
	if got := expandPath("./x", "/cfg"); got != filepath.Join("/cfg", "x") {
		t.Errorf("dot-slash path: %s", got)
	}
}
