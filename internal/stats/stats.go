// Package stats provides the NaN-aware aggregations used across the
// correction and metric stages. Missing values are encoded as NaN and
// every function here ignores them; a statistic with too few usable
// points is NaN, never an error.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Finite returns the non-NaN, non-Inf values of xs. The input is not
// modified.
func Finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}

// Median returns the median of the finite values of xs, or NaN when no
// finite value exists.
func Median(xs []float64) float64 {
	v := Finite(xs)
	if len(v) == 0 {
		return math.NaN()
	}
	sort.Float64s(v)
	mid := len(v) / 2
	if len(v)%2 == 0 {
		return (v[mid-1] + v[mid]) / 2
	}
	return v[mid]
}

// Mean returns the arithmetic mean of the finite values of xs, or NaN
// when no finite value exists.
func Mean(xs []float64) float64 {
	v := Finite(xs)
	if len(v) == 0 {
		return math.NaN()
	}
	return stat.Mean(v, nil)
}

// StdDev returns the sample standard deviation (n-1 denominator) of the
// finite values of xs. Fewer than two finite values yields NaN.
func StdDev(xs []float64) float64 {
	v := Finite(xs)
	if len(v) < 2 {
		return math.NaN()
	}
	return stat.StdDev(v, nil)
}

// CV returns the coefficient of variation of the finite values of xs as
// a percentage: sample standard deviation over mean, times 100. A mean
// of zero or insufficient points yields NaN.
func CV(xs []float64) float64 {
	m := Mean(xs)
	s := StdDev(xs)
	if math.IsNaN(m) || math.IsNaN(s) || m == 0 {
		return math.NaN()
	}
	return s / m * 100
}

// Ratio divides a by b, yielding NaN when either operand is NaN or the
// denominator is zero.
func Ratio(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) || b == 0 {
		return math.NaN()
	}
	return a / b
}
