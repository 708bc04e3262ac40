// Package cli renders selection results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hyperjump/paperselect/internal/models"
	"github.com/hyperjump/paperselect/internal/selection"
	"github.com/hyperjump/paperselect/pkg/utils"
)

// OutputFormat selects how reports are rendered.
type OutputFormat string

const (
	// OutputText is the human-readable boxed report (default).
	OutputText OutputFormat = "text"
	// OutputCompact is a single line per report.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat. Empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputCompact, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, compact or json)", s)
	}
}

const ruleWidth = 60

// WriteStatistics writes the score distribution and, when a threshold is set, the selection.
func WriteStatistics(w io.Writer, st *selection.Statistics, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, st)
	case OutputCompact:
		fmt.Fprintf(w, "n=%d mean=%.4f std=%.4f median=%.4f min=%.4f max=%.4f q25=%.4f q75=%.4f q90=%.4f q95=%.4f",
			st.Count, st.Mean, st.Std, st.Median, st.Min, st.Max, st.Q25, st.Q75, st.Q90, st.Q95)
		if st.HasThreshold() {
			fmt.Fprintf(w, " threshold=%.4f selected=%d (%.2f%%)", *st.Threshold, *st.SelectedCount, *st.SelectedPercentage)
		}
		fmt.Fprintln(w)
		return nil
	default:
		writeStatisticsText(w, st)
		return nil
	}
}

func writeStatisticsText(w io.Writer, st *selection.Statistics) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(w, "\n%s\nSIMILARITY STATISTICS\n%s\n", rule, rule)
	fmt.Fprintf(w, "Total papers:        %s\n", humanize.Comma(int64(st.Count)))
	fmt.Fprintln(w, "\nDistribution:")
	row(w, "Mean", st.Mean)
	row(w, "Std", st.Std)
	row(w, "Median", st.Median)
	row(w, "Min", st.Min)
	row(w, "Max", st.Max)
	fmt.Fprintln(w, "\nPercentiles:")
	row(w, "25th", st.Q25)
	row(w, "75th", st.Q75)
	row(w, "90th", st.Q90)
	row(w, "95th", st.Q95)
	if st.HasThreshold() {
		fmt.Fprintln(w, "\nSelection:")
		row(w, "Threshold", *st.Threshold)
		fmt.Fprintf(w, "  %-19s%s\n", "Selected papers:", humanize.Comma(int64(*st.SelectedCount)))
		fmt.Fprintf(w, "  %-19s%.2f%%\n", "Selection rate:", *st.SelectedPercentage)
	}
	fmt.Fprintf(w, "%s\n\n", rule)
}

func row(w io.Writer, label string, v float64) {
	fmt.Fprintf(w, "  %-19s%.4f\n", label+":", v)
}

// Summary describes a finished selection run.
type Summary struct {
	Total     int              `json:"total"`
	Selected  int              `json:"selected"`
	Method    selection.Policy `json:"threshold_method"`
	Threshold float64          `json:"threshold"`
	Output    string           `json:"output,omitempty"`
	RunID     string           `json:"run_id,omitempty"`
}

// Percentage returns the selected share of all papers, 0 for an empty run.
func (s Summary) Percentage() float64 {
	if s.Total == 0 {
		return 0
	}
	return 100 * float64(s.Selected) / float64(s.Total)
}

// WriteSummary writes the closing summary of a run.
func WriteSummary(w io.Writer, s Summary, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, s)
	case OutputCompact:
		fmt.Fprintf(w, "selected %d/%d (%.2f%%) threshold=%.4f method=%s", s.Selected, s.Total, s.Percentage(), s.Threshold, s.Method)
		if s.Output != "" {
			fmt.Fprintf(w, " output=%s", s.Output)
		}
		fmt.Fprintln(w)
		return nil
	}
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(w, "%s\nSUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(w, "Total papers processed:  %s\n", humanize.Comma(int64(s.Total)))
	fmt.Fprintf(w, "Papers selected:         %s (%.2f%%)\n", humanize.Comma(int64(s.Selected)), s.Percentage())
	fmt.Fprintf(w, "Similarity threshold:    %.4f (%s)\n", s.Threshold, s.Method)
	if s.Output != "" {
		fmt.Fprintf(w, "Output saved to:         %s\n", s.Output)
	}
	if s.RunID != "" {
		fmt.Fprintf(w, "Run ID:                  %s\n", s.RunID)
	}
	fmt.Fprintln(w, rule)
	return nil
}

// WriteTopPapers lists up to n papers with their scores, titles cut to fit a terminal line.
func WriteTopPapers(w io.Writer, papers []models.ScoredPaper, titleColumn string, n int) {
	if n <= 0 || n > len(papers) {
		n = len(papers)
	}
	for i, p := range papers[:n] {
		fmt.Fprintf(w, "%3d. [%.4f] %s\n", i+1, p.Score, utils.Truncate(p.Record.Get(titleColumn), 80))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
