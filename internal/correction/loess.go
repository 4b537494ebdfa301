package correction

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Loess is a locally weighted linear regression smoother with tricube
// weights. Span is the fraction of training points weighted into each
// local fit. Fits are deterministic: predictions depend only on the
// training points, the targets and the span.
type Loess struct {
	Span float64
}

// minTrainingPoints is the smallest training set a local linear fit is
// attempted on.
const minTrainingPoints = 2

// Predict fits the smoother to the training points (x, y) and returns
// the predicted trend at each target. Training pairs with a NaN
// coordinate are ignored. When the usable training set is too small or
// a local fit degenerates, the affected predictions are NaN; Predict
// only errors on structurally invalid arguments.
func (l Loess) Predict(x, y, targets []float64) ([]float64, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("loess: x and y lengths differ (%d vs %d)", len(x), len(y))
	}
	if l.Span <= 0 || l.Span > 1 {
		return nil, fmt.Errorf("loess: span %v outside (0, 1]", l.Span)
	}

	var tx, ty []float64
	for i := range x {
		if !math.IsNaN(x[i]) && !math.IsNaN(y[i]) {
			tx = append(tx, x[i])
			ty = append(ty, y[i])
		}
	}

	preds := make([]float64, len(targets))
	if len(tx) < minTrainingPoints || distinct(tx) < 2 {
		for i := range preds {
			preds[i] = math.NaN()
		}
		return preds, nil
	}

	q := int(math.Ceil(l.Span * float64(len(tx))))
	if q < minTrainingPoints {
		q = minTrainingPoints
	}
	if q > len(tx) {
		q = len(tx)
	}

	for i, t := range targets {
		preds[i] = l.predictAt(tx, ty, t, q)
	}
	return preds, nil
}

// predictAt runs one tricube-weighted linear fit centred on t.
func (l Loess) predictAt(x, y []float64, t float64, q int) float64 {
	dist := make([]float64, len(x))
	for i, xi := range x {
		dist[i] = math.Abs(xi - t)
	}
	sorted := append([]float64(nil), dist...)
	sort.Float64s(sorted)
	h := sorted[q-1]

	weights := make([]float64, len(x))
	var wsum float64
	for i, d := range dist {
		var w float64
		switch {
		case h == 0:
			// All neighbourhood points sit on t; weight them equally.
			if d == 0 {
				w = 1
			}
		case d < h:
			u := d / h
			w = math.Pow(1-u*u*u, 3)
		}
		weights[i] = w
		wsum += w
	}
	if wsum == 0 {
		return math.NaN()
	}

	// A neighbourhood without spread in x cannot support a slope; fall
	// back to the weighted mean.
	if weightedXVariance(x, weights) < 1e-12 {
		return stat.Mean(y, weights)
	}

	alpha, beta := stat.LinearRegression(x, y, weights, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return math.NaN()
	}
	return alpha + beta*t
}

func weightedXVariance(x, w []float64) float64 {
	mean := stat.Mean(x, w)
	var num, wsum float64
	for i, xi := range x {
		d := xi - mean
		num += w[i] * d * d
		wsum += w[i]
	}
	if wsum == 0 {
		return 0
	}
	return num / wsum
}

func distinct(xs []float64) int {
	seen := make(map[float64]bool, len(xs))
	for _, x := range xs {
		seen[x] = true
	}
	return len(seen)
}
