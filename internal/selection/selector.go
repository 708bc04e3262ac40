// Package selection turns similarity scores into a threshold and a selection mask.
//
// A Selector is a per-run session: it owns the score vector and the current threshold.
// It has no internal locking; share an instance across goroutines only with external
// serialization.
package selection

import (
	"errors"

	"github.com/hyperjump/paperselect/internal/similarity"
	"github.com/hyperjump/paperselect/internal/stats"
	"go.uber.org/zap"
)

var (
	// ErrPrecursorMissing is returned when an operation needs scores that were never computed.
	ErrPrecursorMissing = errors.New("similarity scores have not been computed")
	// ErrUnknownPolicy is returned for an unrecognized threshold policy name.
	ErrUnknownPolicy = errors.New("unknown threshold method")
	// ErrMissingArgument is returned when the custom policy has no value.
	ErrMissingArgument = errors.New("missing argument")
	// ErrEmptyScores is returned by SetScores for an empty score vector.
	ErrEmptyScores = errors.New("score vector is empty")
)

// Selector holds the scores and threshold of one selection run.
type Selector struct {
	engine    *similarity.Engine
	logger    *zap.Logger
	scores    []float64
	threshold *float64
}

// Option configures a Selector.
type Option func(*Selector)

// WithEngine sets the similarity engine used by ComputeSimilarities.
func WithEngine(e *similarity.Engine) Option {
	return func(s *Selector) { s.engine = e }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Selector) { s.logger = l }
}

// NewSelector returns an empty selector.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.engine == nil {
		s.engine = similarity.NewEngine(similarity.WithLogger(s.logger))
	}
	return s
}

// ComputeSimilarities scores documents against reference and stores the result.
// On error the previous scores are left untouched.
func (s *Selector) ComputeSimilarities(documents [][]float32, reference []float32) ([]float64, error) {
	scores, err := s.engine.Score(documents, reference)
	if err != nil {
		return nil, err
	}
	s.scores = scores
	return s.Scores(), nil
}

// SetScores stores a copy of an externally computed score vector.
func (s *Selector) SetScores(scores []float64) error {
	if len(scores) == 0 {
		return ErrEmptyScores
	}
	s.scores = append([]float64(nil), scores...)
	return nil
}

// Scores returns a copy of the current scores, or nil before any were set.
func (s *Selector) Scores() []float64 {
	if s.scores == nil {
		return nil
	}
	return append([]float64(nil), s.scores...)
}

// Threshold returns the current threshold and whether one has been set.
func (s *Selector) Threshold() (float64, bool) {
	if s.threshold == nil {
		return 0, false
	}
	return *s.threshold, true
}

// ComputeThreshold resolves policy against the current scores and makes the result the
// current threshold. custom is required for PolicyCustom and ignored otherwise.
func (s *Selector) ComputeThreshold(policy Policy, custom *float64) (float64, error) {
	if s.scores == nil {
		return 0, ErrPrecursorMissing
	}
	t, err := Resolve(policy, s.scores, custom)
	if err != nil {
		return 0, err
	}
	s.threshold = &t
	s.logger.Debug("threshold computed", zap.String("method", string(policy)), zap.Float64("threshold", t))
	return t, nil
}

// Select returns score[i] >= threshold for every score, in order.
//
// A non-nil threshold replaces the current one. With a nil threshold the current one is used;
// if none was ever set, the DefaultPolicy threshold is computed first. New callers should
// resolve the threshold explicitly with ComputeThreshold; the fallback is kept for
// compatibility.
func (s *Selector) Select(threshold *float64) ([]bool, error) {
	if s.scores == nil {
		return nil, ErrPrecursorMissing
	}
	switch {
	case threshold != nil:
		t := *threshold
		s.threshold = &t
	case s.threshold == nil:
		s.logger.Debug("no threshold set, falling back to default method", zap.String("method", string(DefaultPolicy)))
		if _, err := s.ComputeThreshold(DefaultPolicy, nil); err != nil {
			return nil, err
		}
	}
	return Mask(s.scores, *s.threshold), nil
}

// Mask returns scores[i] >= threshold for every score, in order.
func Mask(scores []float64, threshold float64) []bool {
	mask := make([]bool, len(scores))
	for i, v := range scores {
		mask[i] = v >= threshold
	}
	return mask
}

// CountSelected returns the number of true entries in mask.
func CountSelected(mask []bool) int {
	n := 0
	for _, m := range mask {
		if m {
			n++
		}
	}
	return n
}

// Statistics summarizes the current score distribution. Threshold fields are nil until a
// threshold has been computed or applied.
func (s *Selector) Statistics() (*Statistics, error) {
	if s.scores == nil {
		return nil, ErrPrecursorMissing
	}
	sorted := stats.Sorted(s.scores)
	st := &Statistics{
		Count:  len(s.scores),
		Mean:   stats.Mean(s.scores),
		Std:    stats.PopulationStdDev(s.scores),
		Median: stats.PercentileSorted(sorted, 50),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Q25:    stats.PercentileSorted(sorted, 25),
		Q75:    stats.PercentileSorted(sorted, 75),
		Q90:    stats.PercentileSorted(sorted, 90),
		Q95:    stats.PercentileSorted(sorted, 95),
	}
	if s.threshold != nil {
		t := *s.threshold
		count := CountSelected(Mask(s.scores, t))
		pct := 100 * float64(count) / float64(len(s.scores))
		st.Threshold = &t
		st.SelectedCount = &count
		st.SelectedPercentage = &pct
	}
	return st, nil
}
