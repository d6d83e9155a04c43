// Package numeric holds the small numeric helpers shared by the model and the
// aggregator: clamping, averages, interpolated percentiles, the logistic
// sigmoid, Box-Muller sampling and fixed-precision rounding.
package numeric

import (
	"math"
	"slices"

	"github.com/nvandessel/phsim/internal/rng"
)

// DisplayPrecision is the number of decimals kept in aggregated statistics.
const DisplayPrecision = 3

// Clamp constrains v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// Mean returns the arithmetic mean of values. values must not be empty.
func Mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Minimum returns the smallest element of values. values must not be empty.
func Minimum(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between closest ranks. values is not modified.
func Percentile(values []float64, p float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return PercentileSorted(sorted, p)
}

// PercentileSorted is Percentile for input that is already sorted ascending.
func PercentileSorted(sorted []float64, p float64) float64 {
	rank := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	return sorted[lower] + (sorted[upper]-sorted[lower])*(rank-float64(lower))
}

// Sigmoid is the logistic function 1/(1+e^(-steepness*x)).
func Sigmoid(x, steepness float64) float64 {
	return 1 / (1 + math.Exp(-steepness*x))
}

// Gaussian draws a standard normal sample with the Box-Muller transform.
// It consumes exactly two values from src.
func Gaussian(src rng.Source) float64 {
	u1 := src.Float64()
	u2 := src.Float64()
	if u1 <= 0 {
		// log(0) would make the sample infinite.
		u1 = math.SmallestNonzeroFloat64
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// Round rounds v to the given number of decimals, half away from zero.
func Round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

// RoundAll rounds every element of values in place and returns it.
func RoundAll(values []float64, decimals int) []float64 {
	for i, v := range values {
		values[i] = Round(v, decimals)
	}
	return values
}
