package selection

import (
	"fmt"
	"strings"

	"github.com/hyperjump/paperselect/internal/stats"
)

// Policy names a rule for deriving a cutoff from a score distribution.
type Policy string

const (
	// PolicyMean2Std is mean + 2 * population standard deviation (the default).
	PolicyMean2Std Policy = "mean_2std"
	// PolicyMean1Std is mean + 1 * population standard deviation.
	PolicyMean1Std Policy = "mean_1std"
	// PolicyMedian is the median score.
	PolicyMedian Policy = "median"
	// PolicyPercentile75 is the 75th percentile.
	PolicyPercentile75 Policy = "percentile_75"
	// PolicyPercentile90 is the 90th percentile.
	PolicyPercentile90 Policy = "percentile_90"
	// PolicyCustom uses a caller-supplied value.
	PolicyCustom Policy = "custom"
)

// DefaultPolicy is used when no policy is configured and by the Select fallback.
const DefaultPolicy = PolicyMean2Std

// Policies returns all recognized policies in documentation order.
func Policies() []Policy {
	return []Policy{
		PolicyMean2Std,
		PolicyMean1Std,
		PolicyMedian,
		PolicyPercentile75,
		PolicyPercentile90,
		PolicyCustom,
	}
}

// ParsePolicy validates a policy name. The empty string maps to DefaultPolicy.
func ParsePolicy(name string) (Policy, error) {
	if name == "" {
		return DefaultPolicy, nil
	}
	p := Policy(name)
	for _, known := range Policies() {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnknownPolicy, name, policyList())
}

func policyList() string {
	names := make([]string, 0, len(Policies()))
	for _, p := range Policies() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

// Resolve computes the threshold for policy over scores. custom is only read for PolicyCustom.
// scores must be non-empty.
func Resolve(policy Policy, scores []float64, custom *float64) (float64, error) {
	switch policy {
	case PolicyCustom:
		if custom == nil {
			return 0, fmt.Errorf("%w: custom_threshold is required when threshold_method is %q",
				ErrMissingArgument, PolicyCustom)
		}
		return *custom, nil
	case PolicyMean2Std:
		return stats.Mean(scores) + 2*stats.PopulationStdDev(scores), nil
	case PolicyMean1Std:
		return stats.Mean(scores) + stats.PopulationStdDev(scores), nil
	case PolicyMedian:
		return stats.Median(scores), nil
	case PolicyPercentile75:
		return stats.Percentile(scores, 75), nil
	case PolicyPercentile90:
		return stats.Percentile(scores, 90), nil
	default:
		return 0, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownPolicy, string(policy), policyList())
	}
}
