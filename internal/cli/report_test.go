package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/paperselect/internal/models"
	"github.com/hyperjump/paperselect/internal/selection"
)

func testStatistics(withThreshold bool) *selection.Statistics {
	st := &selection.Statistics{
		Count: 1234, Mean: 0.5, Std: 0.1, Median: 0.49, Min: 0.1, Max: 0.9,
		Q25: 0.4, Q75: 0.6, Q90: 0.7, Q95: 0.8,
	}
	if withThreshold {
		th, n, pct := 0.7, 123, 9.967585
		st.Threshold, st.SelectedCount, st.SelectedPercentage = &th, &n, &pct
	}
	return st
}

func TestWriteStatistics_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStatistics(&buf, testStatistics(true), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"SIMILARITY STATISTICS",
		"Total papers:        1,234",
		"  Mean:              0.5000",
		"  95th:              0.8000",
		"  Threshold:         0.7000",
		"  Selected papers:   123",
		"  Selection rate:    9.97%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteStatistics_TextWithoutThreshold(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStatistics(&buf, testStatistics(false), OutputText); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "Selection:") {
		t.Errorf("selection block should be omitted:\n%s", buf.String())
	}
}

func TestWriteStatistics_Compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStatistics(&buf, testStatistics(true), OutputCompact); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Errorf("compact output should be one line: %q", out)
	}
	if !strings.HasPrefix(out, "n=1234 mean=0.5000") || !strings.Contains(out, "threshold=0.7000 selected=123 (9.97%)") {
		t.Errorf("got %q", out)
	}
}

func TestWriteStatistics_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStatistics(&buf, testStatistics(false), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded["count"] != float64(1234) {
		t.Errorf("count = %v", decoded["count"])
	}
	if _, ok := decoded["threshold"]; ok {
		t.Error("threshold should be omitted before one is set")
	}
}

func TestWriteSummary(t *testing.T) {
	s := Summary{Total: 2000, Selected: 50, Method: selection.PolicyPercentile90, Threshold: 0.61234, Output: "out.csv"}
	var buf bytes.Buffer
	if err := WriteSummary(&buf, s, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Total papers processed:  2,000", "Papers selected:         50 (2.50%)", "0.6123 (percentile_90)", "out.csv"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteSummary(&buf, s, OutputCompact); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "selected 50/2000 (2.50%) threshold=0.6123 method=percentile_90 output=out.csv\n" {
		t.Errorf("compact: got %q", got)
	}
}

func TestSummary_PercentageEmpty(t *testing.T) {
	if (Summary{}).Percentage() != 0 {
		t.Error("empty run should report 0%")
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "TEXT": OutputText, "compact": OutputCompact, "json": OutputJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteTopPapers(t *testing.T) {
	papers := []models.ScoredPaper{
		{Record: models.Record{"Title": "First"}, Score: 0.9},
		{Record: models.Record{"Title": strings.Repeat("x", 100)}, Score: 0.8},
		{Record: models.Record{"Title": "Third"}, Score: 0.7},
	}
	var buf bytes.Buffer
	WriteTopPapers(&buf, papers, "Title", 2)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[0] != "  1. [0.9000] First" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "...") {
		t.Errorf("long title should be truncated: %q", lines[1])
	}
}
