// Package main is the paperselect CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hyperjump/paperselect/internal/config"
	"github.com/hyperjump/paperselect/internal/embedding"
	"github.com/hyperjump/paperselect/internal/pipeline"
	"github.com/hyperjump/paperselect/internal/server"
	"github.com/hyperjump/paperselect/internal/storage"
	"github.com/hyperjump/paperselect/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/paperselect/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if present; when neither exists the built-in defaults are used.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "select":
		runSelect()
	case "bibtex":
		runBibTeX()
	case "server":
		runServer()
	case "watch":
		runWatch()
	case "version", "--version":
		fmt.Printf("paperselect version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(components.Pipeline, components.Storage, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Embedder embedding.Embedder
	Pipeline *pipeline.Pipeline
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

// initializeComponents builds the embedder and pipeline from cfg, plus the run database
// when withStorage is set. Extra pipeline options are appended after the config-derived ones.
func initializeComponents(cfg *config.Config, logger *zap.Logger, withStorage bool, opts ...pipeline.Option) (*Components, error) {
	c := &Components{}
	if withStorage {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		c.Storage = store
	}

	c.Embedder = embedding.WithCache(newEmbedder(cfg, logger), cfg.Embedding.CacheSize)

	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithColumns(cfg.Library.TitleColumns, cfg.Library.AbstractColumns),
		pipeline.WithSeparator(cfg.Library.Separator),
		pipeline.WithBatchSize(cfg.Embedding.BatchSize),
	}
	c.Pipeline = pipeline.New(c.Embedder, append(pipeOpts, opts...)...)
	return c, nil
}

// newEmbedder loads the ONNX model when it exists and falls back to the hashing embedder.
func newEmbedder(cfg *config.Config, logger *zap.Logger) embedding.Embedder {
	modelPath := cfg.Embedding.ModelPath
	if _, err := os.Stat(modelPath); err != nil {
		logger.Warn("embedding model not found, using hashing embedder",
			zap.String("model_path", modelPath),
			zap.Int("dimensions", cfg.Embedding.Dimensions))
		return embedding.NewHashEmbedder(cfg.Embedding.Dimensions)
	}
	onnx, err := embedding.NewONNXEmbedder(embedding.ONNXConfig{
		ModelPath:  modelPath,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
	})
	if err != nil {
		logger.Warn("failed to load ONNX model, using hashing embedder",
			zap.String("model_path", modelPath),
			zap.Error(err))
		return embedding.NewHashEmbedder(cfg.Embedding.Dimensions)
	}
	logger.Info("embedding model loaded",
		zap.String("model_path", modelPath),
		zap.Int("dimensions", onnx.Dimensions()))
	return onnx
}

func printUsage() {
	fmt.Println(`paperselect - Select papers from a reference library by semantic similarity

Usage:
  paperselect select [flags]    Score a library against a reference and write the selection
  paperselect bibtex [flags]    Convert a library or selection CSV to BibTeX
  paperselect watch [flags]     Like select, re-running whenever the input or reference changes
  paperselect server [flags]    Start the HTTP server
  paperselect version           Show version
  paperselect help              Show this help

Select / Watch Flags:
  -i, --input string             Zotero export (.csv, .tsv or .xlsx) (required)
  -o, --output string            Output CSV for selected papers (required)
  -r, --reference string         Reference document (default: config/reference.txt)
  -t, --threshold float          Custom similarity threshold (implies --threshold-method custom)
  --threshold-method string      mean_2std, mean_1std, median, percentile_75, percentile_90 or custom
                                 (default from config, or mean_2std)
  --stats                        Print the similarity distribution
  --bibtex                       Also write the selection as BibTeX next to the output CSV
  --batch-size int               Papers embedded per batch (default from config, or 32)
  -m, --model string             ONNX model path (default from config)
  --output-format string         text, compact or json (default: text)
  --config string                Config file path (default: /usr/local/etc/paperselect/config.yaml)
  --debug                        Enable debug logging

BibTeX Flags:
  -i, --input string    Input CSV (required)
  -o, --output string   Output .bib file (required)

Server Flags:
  --config string    Config file path (default: /usr/local/etc/paperselect/config.yaml)
  --debug            Enable debug logging

Examples:
  paperselect select -i data/library.csv -o data/selected.csv
  paperselect select -i data/library.csv -o data/selected.csv -t 0.35 --stats
  paperselect select -i data/library.csv -o out/selected.csv --threshold-method percentile_90 --bibtex
  paperselect bibtex -i data/selected.csv -o data/selected.bib
  paperselect watch -i data/library.csv -o data/selected.csv -r notes/reference.md
  paperselect server`)
}
