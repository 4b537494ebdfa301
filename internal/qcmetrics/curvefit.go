package qcmetrics

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// FitLine fits raw area on relative amount by ordinary least squares
// and returns the fit's R² and the two-sided p-value of the slope.
// Pairs with a NaN coordinate are ignored; fewer than three usable
// pairs, or a degenerate predictor, yields (NaN, NaN).
func FitLine(x, y []float64) (r2, p float64) {
	var fx, fy []float64
	for i := range x {
		if i < len(y) && !math.IsNaN(x[i]) && !math.IsNaN(y[i]) {
			fx = append(fx, x[i])
			fy = append(fy, y[i])
		}
	}
	n := len(fx)
	if n < 3 || distinctValues(fx) < 2 {
		return math.NaN(), math.NaN()
	}

	alpha, beta := stat.LinearRegression(fx, fy, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return math.NaN(), math.NaN()
	}
	r2 = stat.RSquared(fx, fy, nil, alpha, beta)
	if math.IsNaN(r2) {
		return math.NaN(), math.NaN()
	}

	// Slope significance via the t statistic t = sqrt(r²(n-2)/(1-r²)).
	df := float64(n - 2)
	if r2 >= 1 {
		return r2, 0
	}
	t := math.Sqrt(r2 * df / (1 - r2))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.Survival(t)
	if p > 1 {
		p = 1
	}
	return r2, p
}

func distinctValues(xs []float64) int {
	seen := make(map[float64]bool, len(xs))
	for _, x := range xs {
		seen[x] = true
	}
	return len(seen)
}
