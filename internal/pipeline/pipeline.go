// Package pipeline runs one paper selection end to end: load the library, embed the
// reference and every paper, score, threshold and select.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/paperselect/internal/embedding"
	"github.com/hyperjump/paperselect/internal/library"
	"github.com/hyperjump/paperselect/internal/models"
	"github.com/hyperjump/paperselect/internal/selection"
	"github.com/hyperjump/paperselect/internal/similarity"
	"go.uber.org/zap"
)

// Request describes one selection run. Either Library or LibraryPath must be set.
type Request struct {
	Library         *models.Library
	LibraryPath     string
	Reference       string
	Method          selection.Policy
	CustomThreshold *float64
}

// Result is the outcome of a run. Papers are in library order.
type Result struct {
	Library    *models.Library
	Columns    library.Columns
	Report     library.ValidationReport
	Method     selection.Policy
	Threshold  float64
	Scores     []float64
	Selection  []bool
	Statistics *selection.Statistics
	Papers     []models.ScoredPaper
	Duration   time.Duration
}

// SelectedCount returns the number of selected papers.
func (r *Result) SelectedCount() int {
	return selection.CountSelected(r.Selection)
}

// SelectedPapers returns the selected papers by descending score. Ties keep library order.
func (r *Result) SelectedPapers() []models.ScoredPaper {
	return models.SelectedByScore(r.Papers)
}

// Pipeline holds the collaborators shared across runs. It is safe for concurrent use
// as long as the embedder is.
type Pipeline struct {
	embedder        embedding.Embedder
	engine          *similarity.Engine
	logger          *zap.Logger
	titleColumns    []string
	abstractColumns []string
	separator       string
	batchSize       int
	progress        embedding.ProgressFunc
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithEngine sets the similarity engine.
func WithEngine(e *similarity.Engine) Option {
	return func(p *Pipeline) { p.engine = e }
}

// WithColumns sets the candidate title and abstract column names, tried in order.
func WithColumns(title, abstract []string) Option {
	return func(p *Pipeline) {
		if len(title) > 0 {
			p.titleColumns = title
		}
		if len(abstract) > 0 {
			p.abstractColumns = abstract
		}
	}
}

// WithSeparator sets the string joining title and abstract.
func WithSeparator(sep string) Option {
	return func(p *Pipeline) { p.separator = sep }
}

// WithBatchSize sets how many papers are embedded per batch.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) { p.batchSize = n }
}

// WithProgress sets a callback invoked after each embedding batch.
func WithProgress(fn embedding.ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// New returns a pipeline embedding with e.
func New(e embedding.Embedder, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedder:        e,
		titleColumns:    library.DefaultTitleColumns,
		abstractColumns: library.DefaultAbstractColumns,
		separator:       library.DefaultSeparator,
		batchSize:       embedding.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.engine == nil {
		p.engine = similarity.NewEngine(similarity.WithLogger(p.logger))
	}
	return p
}

// Run executes req. A custom threshold value takes precedence over Method.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		return nil, library.ErrEmptyReference
	}
	method := req.Method
	if req.CustomThreshold != nil {
		method = selection.PolicyCustom
	}
	method, err := selection.ParsePolicy(string(method))
	if err != nil {
		return nil, err
	}

	lib := req.Library
	if lib == nil {
		if lib, err = library.Load(req.LibraryPath); err != nil {
			return nil, err
		}
	}
	cols, err := library.DetectColumns(lib, p.titleColumns, p.abstractColumns)
	if err != nil {
		return nil, err
	}
	report, err := library.Validate(lib, cols)
	if err != nil {
		return nil, err
	}
	p.logger.Info("library loaded",
		zap.String("file", lib.Filename),
		zap.Int("papers", report.Total),
		zap.String("title_column", cols.Title),
		zap.String("abstract_column", cols.Abstract))
	if n := report.MissingTitles(); n > 0 {
		p.logger.Warn("papers missing titles", zap.Int("count", n), zap.Int("total", report.Total))
	}
	if n := report.MissingAbstracts(); n > 0 {
		p.logger.Warn("papers missing abstracts", zap.Int("count", n), zap.Int("total", report.Total))
	}

	refEmb, err := p.embedder.Embed(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("embed reference: %w", err)
	}
	texts := library.Texts(lib, cols, p.separator)
	paperEmbs, err := embedding.EmbedAll(ctx, p.embedder, texts, p.batchSize, p.progress)
	if err != nil {
		return nil, fmt.Errorf("embed papers: %w", err)
	}

	sel := selection.NewSelector(selection.WithEngine(p.engine), selection.WithLogger(p.logger))
	scores, err := sel.ComputeSimilarities(paperEmbs, refEmb)
	if err != nil {
		return nil, err
	}
	threshold, err := sel.ComputeThreshold(method, req.CustomThreshold)
	if err != nil {
		return nil, err
	}
	mask, err := sel.Select(nil)
	if err != nil {
		return nil, err
	}
	st, err := sel.Statistics()
	if err != nil {
		return nil, err
	}

	papers := make([]models.ScoredPaper, lib.Len())
	for i, rec := range lib.Records {
		papers[i] = models.ScoredPaper{Index: i, Record: rec, Score: scores[i], Selected: mask[i]}
	}
	res := &Result{
		Library:    lib,
		Columns:    cols,
		Report:     report,
		Method:     method,
		Threshold:  threshold,
		Scores:     scores,
		Selection:  mask,
		Statistics: st,
		Papers:     papers,
		Duration:   time.Since(start),
	}
	p.logger.Info("selection complete",
		zap.String("method", string(method)),
		zap.Float64("threshold", threshold),
		zap.Int("selected", res.SelectedCount()),
		zap.Int("total", len(scores)),
		zap.Duration("duration", res.Duration))
	return res, nil
}
