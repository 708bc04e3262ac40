package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/paperselect/internal/selection"
)

// Run is a persisted selection run over one library.
type Run struct {
	ID              string                `json:"id"`
	LibraryID       string                `json:"library_id"`
	ReferenceText   string                `json:"reference_text"`
	ThresholdMethod string                `json:"threshold_method"`
	Threshold       float64               `json:"threshold"`
	Statistics      *selection.Statistics `json:"stats"`
	Scores          []float64             `json:"similarities"`
	Selection       []bool                `json:"selection"`
	CreatedAt       time.Time             `json:"created_at"`
}

// SelectedCount returns the number of selected papers.
func (r *Run) SelectedCount() int {
	return selection.CountSelected(r.Selection)
}

// ProcessRequest asks for a selection run over an uploaded library.
type ProcessRequest struct {
	LibraryID       string   `json:"library_id"`
	ReferenceText   string   `json:"reference_text"`
	ThresholdMethod string   `json:"threshold_method,omitempty"`
	CustomThreshold *float64 `json:"custom_threshold,omitempty"`
}

// Validate checks required fields and normalizes the threshold method.
// A custom_threshold value always selects the custom method; an empty method becomes the default.
func (r *ProcessRequest) Validate() error {
	r.ReferenceText = strings.TrimSpace(r.ReferenceText)
	if r.ReferenceText == "" {
		return fmt.Errorf("%w: reference_text is required", ErrInvalidRequest)
	}
	if r.LibraryID == "" {
		return fmt.Errorf("%w: library_id is required", ErrInvalidRequest)
	}
	if r.CustomThreshold != nil {
		r.ThresholdMethod = string(selection.PolicyCustom)
	}
	policy, err := selection.ParsePolicy(r.ThresholdMethod)
	if err != nil {
		return err
	}
	if policy == selection.PolicyCustom && r.CustomThreshold == nil {
		return fmt.Errorf("%w: custom_threshold is required when threshold_method is %q",
			selection.ErrMissingArgument, selection.PolicyCustom)
	}
	r.ThresholdMethod = string(policy)
	return nil
}

// ProcessResponse is the result of a selection run as returned by the HTTP API.
type ProcessResponse struct {
	RunID         string                `json:"run_id"`
	Stats         *selection.Statistics `json:"stats"`
	Similarities  []float64             `json:"similarities"`
	Threshold     float64               `json:"threshold"`
	SelectedCount int                   `json:"selected_count"`
	TotalCount    int                   `json:"total_count"`
}
