// Package stats provides the descriptive statistics used to derive selection thresholds.
//
// Conventions: standard deviation is the population form (divide by n) and percentiles
// interpolate linearly between closest ranks, rank = p/100 * (n-1) (Hyndman-Fan type 7,
// the same as Excel's PERCENTILE.INC).
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean of xs, or NaN when xs is empty.
// The sum is taken relative to xs[0] so that a constant series yields exactly that constant.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	shift := xs[0]
	var sum float64
	for _, x := range xs {
		sum += x - shift
	}
	return shift + sum/float64(len(xs))
}

// PopulationStdDev returns the population standard deviation of xs, or NaN when xs is empty.
func PopulationStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	mean := Mean(xs)
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)))
}

// Sorted returns an ascending copy of xs.
func Sorted(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	sort.Float64s(out)
	return out
}

// Percentile returns the p-th percentile (0..100) of xs using linear interpolation.
// Returns NaN when xs is empty.
func Percentile(xs []float64, p float64) float64 {
	return PercentileSorted(Sorted(xs), p)
}

// PercentileSorted is Percentile for input already sorted ascending.
func PercentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Median returns the 50th percentile of xs.
func Median(xs []float64) float64 {
	return Percentile(xs, 50)
}
