// Package similarity scores document embeddings against a reference embedding by cosine similarity.
package similarity

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// ReferenceRow is the row index reported by DegenerateVectorError when the reference vector is degenerate.
const ReferenceRow = -1

// defaultParallelRows is the batch size from which rows are fanned out over workers.
const defaultParallelRows = 2048

var (
	// ErrEmptyBatch is returned when there are no document vectors to score.
	ErrEmptyBatch = errors.New("no document vectors to score")
	// ErrDimensionMismatch is returned when a document vector and the reference differ in length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// DegenerateVectorError reports a vector whose norm is zero or not finite (a NaN or ±Inf
// component), for which cosine similarity is undefined.
type DegenerateVectorError struct {
	// Row is the index of the offending document, or ReferenceRow for the reference vector.
	Row int
}

func (e *DegenerateVectorError) Error() string {
	if e.Row == ReferenceRow {
		return "degenerate vector: reference has zero or non-finite norm"
	}
	return fmt.Sprintf("degenerate vector: document %d has zero or non-finite norm", e.Row)
}

// degenerate reports whether a norm rules out a cosine score.
func degenerate(norm float64) bool {
	return norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0)
}

// Engine computes cosine similarity scores. The zero value is not usable; use NewEngine.
type Engine struct {
	workers      int
	parallelRows int
	logger       *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of goroutines used for large batches. Values below 1 mean sequential.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithParallelThreshold sets the minimum number of rows before work is split across workers.
func WithParallelThreshold(rows int) Option {
	return func(e *Engine) { e.parallelRows = rows }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine returns an engine that uses up to GOMAXPROCS workers for large batches.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		workers:      runtime.GOMAXPROCS(0),
		parallelRows: defaultParallelRows,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Score returns one cosine similarity per document row, in input order.
// All rows are checked against the reference dimension before any score is computed.
func (e *Engine) Score(documents [][]float32, reference []float32) ([]float64, error) {
	if len(documents) == 0 {
		return nil, ErrEmptyBatch
	}
	for i, row := range documents {
		if len(row) != len(reference) {
			return nil, fmt.Errorf("%w: document %d has %d dimensions, reference has %d",
				ErrDimensionMismatch, i, len(row), len(reference))
		}
	}
	refNorm := L2Norm(reference)
	if degenerate(refNorm) {
		return nil, &DegenerateVectorError{Row: ReferenceRow}
	}

	scores := make([]float64, len(documents))
	norms := make([]float64, len(documents))
	workers := e.workers
	if len(documents) < e.parallelRows || workers < 2 {
		workers = 1
	}
	if workers > len(documents) {
		workers = len(documents)
	}

	if workers == 1 {
		scoreRange(documents, reference, refNorm, scores, norms, 0, len(documents))
	} else {
		chunk := (len(documents) + workers - 1) / workers
		var wg sync.WaitGroup
		for start := 0; start < len(documents); start += chunk {
			end := start + chunk
			if end > len(documents) {
				end = len(documents)
			}
			wg.Add(1)
			go func(start, end int) {
				defer wg.Done()
				scoreRange(documents, reference, refNorm, scores, norms, start, end)
			}(start, end)
		}
		wg.Wait()
	}

	for i, n := range norms {
		if degenerate(n) {
			return nil, &DegenerateVectorError{Row: i}
		}
	}
	e.logger.Debug("scored documents",
		zap.Int("documents", len(documents)),
		zap.Int("dimensions", len(reference)),
		zap.Int("workers", workers))
	return scores, nil
}

// scoreRange fills scores[start:end] and norms[start:end]. Degenerate rows get score 0 and are
// reported by the caller.
func scoreRange(documents [][]float32, reference []float32, refNorm float64, scores, norms []float64, start, end int) {
	for i := start; i < end; i++ {
		n := L2Norm(documents[i])
		norms[i] = n
		if degenerate(n) {
			continue
		}
		scores[i] = InnerProduct(documents[i], reference) / (n * refNorm)
	}
}

var defaultEngine = NewEngine()

// Score scores documents against reference with a default engine.
func Score(documents [][]float32, reference []float32) ([]float64, error) {
	return defaultEngine.Score(documents, reference)
}

// Cosine returns the cosine similarity of a and b. It returns an error for mismatched lengths
// or a degenerate operand (a is reported as row 0).
func Cosine(a, b []float32) (float64, error) {
	scores, err := defaultEngine.Score([][]float32{a}, b)
	if err != nil {
		return 0, err
	}
	return scores[0], nil
}

// InnerProduct returns the inner product of two equal-length vectors, accumulated in float64.
func InnerProduct(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		f := float64(v)
		sum += f * f
	}
	return math.Sqrt(sum)
}
