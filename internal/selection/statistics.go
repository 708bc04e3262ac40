package selection

// Statistics is a read-only snapshot of a score distribution.
// Threshold, SelectedCount and SelectedPercentage are nil when no threshold has been decided,
// which is distinct from a threshold that selects nothing.
type Statistics struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
	Q90    float64 `json:"q90"`
	Q95    float64 `json:"q95"`

	Threshold          *float64 `json:"threshold,omitempty"`
	SelectedCount      *int     `json:"selected_count,omitempty"`
	SelectedPercentage *float64 `json:"selected_percentage,omitempty"`
}

// HasThreshold reports whether the threshold-dependent fields are present.
func (s *Statistics) HasThreshold() bool {
	return s.Threshold != nil
}
