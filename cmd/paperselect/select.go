package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/hyperjump/paperselect/internal/cli"
	"github.com/hyperjump/paperselect/internal/config"
	"github.com/hyperjump/paperselect/internal/export"
	"github.com/hyperjump/paperselect/internal/library"
	"github.com/hyperjump/paperselect/internal/pipeline"
	"github.com/hyperjump/paperselect/internal/selection"
	"github.com/hyperjump/paperselect/pkg/utils"
	"go.uber.org/zap"
)

const (
	defaultReferencePath = "config/reference.txt"
	topPapersShown       = 10
)

// optionalFloat is a float flag that remembers whether it was set.
type optionalFloat struct {
	value *float64
}

func (f *optionalFloat) String() string {
	if f == nil || f.value == nil {
		return ""
	}
	return strconv.FormatFloat(*f.value, 'g', -1, 64)
}

func (f *optionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	f.value = &v
	return nil
}

// selectOptions holds the parsed flags shared by select and watch.
type selectOptions struct {
	Input      string
	Output     string
	Reference  string
	Threshold  *float64
	Method     string
	Stats      bool
	BibTeX     bool
	BatchSize  int
	Model      string
	Format     cli.OutputFormat
	ConfigPath string
	Debug      bool
}

// parseSelectFlags parses args for the named subcommand. Short and long forms share a target.
func parseSelectFlags(name string, args []string) (*selectOptions, error) {
	opts := &selectOptions{}
	var threshold optionalFloat
	var format string

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&opts.Input, "input", "", "input library export (.csv, .tsv, .xlsx)")
	fs.StringVar(&opts.Input, "i", "", "shorthand for --input")
	fs.StringVar(&opts.Output, "output", "", "output CSV for selected papers")
	fs.StringVar(&opts.Output, "o", "", "shorthand for --output")
	fs.StringVar(&opts.Reference, "reference", defaultReferencePath, "reference document")
	fs.StringVar(&opts.Reference, "r", defaultReferencePath, "shorthand for --reference")
	fs.Var(&threshold, "threshold", "custom similarity threshold")
	fs.Var(&threshold, "t", "shorthand for --threshold")
	fs.StringVar(&opts.Method, "threshold-method", "", "threshold method (default from config)")
	fs.BoolVar(&opts.Stats, "stats", false, "print similarity statistics")
	fs.BoolVar(&opts.BibTeX, "bibtex", false, "also write the selection as BibTeX")
	fs.IntVar(&opts.BatchSize, "batch-size", 0, "papers embedded per batch (default from config)")
	fs.StringVar(&opts.Model, "model", "", "ONNX model path (default from config)")
	fs.StringVar(&opts.Model, "m", "", "shorthand for --model")
	fs.StringVar(&format, "output-format", string(cli.OutputText), "text, compact or json")
	fs.StringVar(&opts.ConfigPath, "config", defaultConfigPath, "config file path")
	fs.BoolVar(&opts.Debug, "debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if opts.Input == "" || opts.Output == "" {
		return nil, errors.New("both --input and --output are required")
	}
	if opts.BatchSize < 0 {
		return nil, fmt.Errorf("--batch-size must be positive, got %d", opts.BatchSize)
	}
	f, err := cli.ParseOutputFormat(format)
	if err != nil {
		return nil, err
	}
	opts.Format = f
	opts.Threshold = threshold.value
	if opts.Method != "" {
		if _, err := selection.ParsePolicy(opts.Method); err != nil {
			return nil, err
		}
	}
	return opts, nil
}

// applyConfig fills unset options from cfg and pushes flag overrides into it.
func (o *selectOptions) applyConfig(cfg *config.Config) {
	if o.Method == "" {
		o.Method = cfg.Selection.ThresholdMethod
	}
	if o.Threshold == nil && o.Method == string(selection.PolicyCustom) {
		o.Threshold = cfg.Selection.CustomThreshold
	}
	if o.BatchSize > 0 {
		cfg.Embedding.BatchSize = o.BatchSize
	}
	if o.Model != "" {
		cfg.Embedding.ModelPath = o.Model
	}
	cfg.Debug = cfg.Debug || o.Debug
}

// bibPathFor returns the BibTeX path written next to the output CSV.
func bibPathFor(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".bib"
}

// checkInputs fails early on missing input or reference files.
func checkInputs(opts *selectOptions) error {
	if _, err := os.Stat(opts.Input); err != nil {
		return fmt.Errorf("input file not found: %s", opts.Input)
	}
	if _, err := os.Stat(opts.Reference); err != nil {
		return fmt.Errorf("reference file not found: %s", opts.Reference)
	}
	return nil
}

type selectReport struct {
	Summary    cli.Summary           `json:"summary"`
	Statistics *selection.Statistics `json:"statistics,omitempty"`
	BibTeX     string                `json:"bibtex,omitempty"`
}

// executeSelect runs one selection and writes the output CSV (and .bib when requested).
// The report goes to stdout in the requested format.
func executeSelect(ctx context.Context, p *pipeline.Pipeline, opts *selectOptions, stdout io.Writer) (*pipeline.Result, error) {
	if err := checkInputs(opts); err != nil {
		return nil, err
	}
	reference, err := library.LoadReference(opts.Reference)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(opts.Output), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	res, err := p.Run(ctx, pipeline.Request{
		LibraryPath:     opts.Input,
		Reference:       reference,
		Method:          selection.Policy(opts.Method),
		CustomThreshold: opts.Threshold,
	})
	if err != nil {
		return nil, err
	}

	if err := writeFile(opts.Output, func(w io.Writer) error {
		_, err := export.WriteCSV(w, res.Library, res.Papers)
		return err
	}); err != nil {
		return nil, err
	}
	report := selectReport{
		Summary: cli.Summary{
			Total:     len(res.Scores),
			Selected:  res.SelectedCount(),
			Method:    res.Method,
			Threshold: res.Threshold,
			Output:    opts.Output,
		},
	}
	if opts.BibTeX {
		report.BibTeX = bibPathFor(opts.Output)
		if err := writeFile(report.BibTeX, func(w io.Writer) error {
			return export.WriteSelectedBibTeX(w, res.Papers)
		}); err != nil {
			return nil, err
		}
	}
	if opts.Stats {
		report.Statistics = res.Statistics
	}

	if opts.Format == cli.OutputJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return res, enc.Encode(report)
	}
	if report.Statistics != nil {
		if err := cli.WriteStatistics(stdout, report.Statistics, opts.Format); err != nil {
			return nil, err
		}
	}
	if opts.Format == cli.OutputText {
		if selected := res.SelectedPapers(); len(selected) > 0 {
			fmt.Fprintf(stdout, "Top selected papers:\n")
			cli.WriteTopPapers(stdout, selected, res.Columns.Title, topPapersShown)
			fmt.Fprintln(stdout)
		}
		if report.BibTeX != "" {
			fmt.Fprintf(stdout, "BibTeX saved to:         %s\n", report.BibTeX)
		}
	}
	return res, cli.WriteSummary(stdout, report.Summary, opts.Format)
}

// writeFile creates path and hands it to write, closing it afterwards.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// setupSelect parses flags, loads config and builds the pipeline shared by select and watch.
func setupSelect(name string, args []string) (*selectOptions, *config.Config, *Components, *zap.Logger) {
	opts, err := parseSelectFlags(name, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	cfg, _, err := loadConfig(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	opts.applyConfig(cfg)

	logger, err := utils.NewCLILogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	var pipeOpts []pipeline.Option
	if opts.Format == cli.OutputText {
		pipeOpts = append(pipeOpts, pipeline.WithProgress(func(done, total int) {
			fmt.Fprintf(os.Stderr, "\rEncoding papers: %d/%d", done, total)
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		}))
	}
	components, err := initializeComponents(cfg, logger, false, pipeOpts...)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return opts, cfg, components, logger
}

func runSelect() {
	opts, _, components, logger := setupSelect("select", os.Args[2:])
	defer logger.Sync()
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if _, err := executeSelect(ctx, components.Pipeline, opts, os.Stdout); err != nil {
		logger.Error("selection failed", zap.Error(err))
		components.Close()
		os.Exit(1)
	}
}
