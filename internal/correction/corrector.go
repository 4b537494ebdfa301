// Package correction removes within-batch signal drift and aligns
// concentration scales across batches using the BQC reference samples.
//
// Per (lipid, batch) group the corrector fits a LOESS trend to the
// group's BQC points over run index in log2 space, subtracts the
// median-centred trend, then applies two alignment passes: divide each
// group by its own BQC median (batch BQC medians become 1), and
// multiply each lipid by the global BQC median taken before batch
// scaling (restores a shared absolute scale). Groups whose BQC data is
// absent or unusable degrade to NaN; nothing here aborts the run.
package correction

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"lipidqc/internal/config"
	"lipidqc/internal/stats"
	"lipidqc/pkg/contracts/domain"
)

// Corrector holds the smoothing parameters.
type Corrector struct {
	span           float64
	minQCPoints    int
	maxConcurrency int
	logger         *slog.Logger
}

// NewCorrector builds a Corrector from configuration.
func NewCorrector(cfg config.CorrectionConfig, logger *slog.Logger) *Corrector {
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.MaxConcurrency
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Corrector{
		span:           cfg.SmoothingSpan,
		minQCPoints:    cfg.MinQCPoints,
		maxConcurrency: workers,
		logger:         logger,
	}
}

// Correct returns a new observation slice with AdjConc filled in. The
// input is not modified. Group fits run concurrently; each goroutine
// reads only its own group's rows and writes only its own group's
// results, so the outcome is independent of scheduling.
func (c *Corrector) Correct(ctx context.Context, observations []domain.Observation) ([]domain.Observation, error) {
	out := make([]domain.Observation, len(observations))
	copy(out, observations)

	groups := groupIndices(out)
	keys := sortedKeys(groups)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)
	for _, key := range keys {
		idx := groups[key]
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			c.smoothGroup(out, idx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.alignBatches(out, groups, keys)

	c.logger.InfoContext(ctx, "drift correction complete",
		slog.Int("groups", len(keys)),
		slog.Float64("span", c.span),
	)
	return out, nil
}

// smoothGroup performs within-batch smoothing on one (lipid, batch)
// group, writing AdjConc for the group's rows.
func (c *Corrector) smoothGroup(obs []domain.Observation, idx []int) {
	// Deterministic fit input ordering.
	sort.Slice(idx, func(a, b int) bool { return obs[idx[a]].RunIndex < obs[idx[b]].RunIndex })

	logConc := make([]float64, len(idx))
	runs := make([]float64, len(idx))
	var qcX, qcY []float64
	for i, oi := range idx {
		o := obs[oi]
		runs[i] = float64(o.RunIndex)
		logConc[i] = safeLog2(o.Conc)
		if o.SampleType == domain.SampleTypeBQC && !math.IsNaN(logConc[i]) {
			qcX = append(qcX, runs[i])
			qcY = append(qcY, logConc[i])
		}
	}

	trend := make([]float64, len(idx))
	if len(qcX) < c.minQCPoints {
		for i := range trend {
			trend[i] = math.NaN()
		}
	} else {
		fitted, err := Loess{Span: c.span}.Predict(qcX, qcY, runs)
		if err != nil {
			// Structural misuse cannot happen with equal-length inputs;
			// degrade the group rather than abort.
			fitted = make([]float64, len(idx))
			for i := range fitted {
				fitted[i] = math.NaN()
			}
		}
		trend = fitted
	}

	// Centre so the correction is relative, not absolute.
	centre := stats.Median(trend)
	for i, oi := range idx {
		adj := math.NaN()
		if !math.IsNaN(logConc[i]) && !math.IsNaN(trend[i]) && !math.IsNaN(centre) {
			adj = math.Exp2(logConc[i] - (trend[i] - centre))
		}
		obs[oi].AdjConc = adj
	}
}

// alignBatches applies the two between-batch passes. Pass 1 scales each
// (lipid, batch) group by its BQC median; pass 2 multiplies each lipid
// by the global BQC median computed before pass 1 scaling.
func (c *Corrector) alignBatches(obs []domain.Observation, groups map[domain.GroupKey][]int, keys []domain.GroupKey) {
	globalBQC := make(map[string][]float64)
	for _, key := range keys {
		for _, oi := range groups[key] {
			if obs[oi].SampleType == domain.SampleTypeBQC {
				globalBQC[key.Lipid] = append(globalBQC[key.Lipid], obs[oi].AdjConc)
			}
		}
	}
	globalMedian := make(map[string]float64, len(globalBQC))
	for lipid, values := range globalBQC {
		globalMedian[lipid] = stats.Median(values)
	}

	for _, key := range keys {
		idx := groups[key]
		var batchBQC []float64
		for _, oi := range idx {
			if obs[oi].SampleType == domain.SampleTypeBQC {
				batchBQC = append(batchBQC, obs[oi].AdjConc)
			}
		}
		batchMedian := stats.Median(batchBQC)

		global, ok := globalMedian[key.Lipid]
		if !ok {
			global = math.NaN()
		}
		for _, oi := range idx {
			scaled := stats.Ratio(obs[oi].AdjConc, batchMedian)
			if math.IsNaN(scaled) || math.IsNaN(global) {
				obs[oi].AdjConc = math.NaN()
				continue
			}
			obs[oi].AdjConc = scaled * global
		}
	}
}

// RescaleToBatchMedian applies alignment pass 1 alone: every value in
// each (lipid, batch) group divided by the group's BQC median. Exposed
// for verification that re-running the pass on aligned data is a no-op.
func RescaleToBatchMedian(observations []domain.Observation) []domain.Observation {
	out := make([]domain.Observation, len(observations))
	copy(out, observations)
	groups := groupIndices(out)
	for _, idx := range groups {
		var batchBQC []float64
		for _, oi := range idx {
			if out[oi].SampleType == domain.SampleTypeBQC {
				batchBQC = append(batchBQC, out[oi].AdjConc)
			}
		}
		median := stats.Median(batchBQC)
		for _, oi := range idx {
			out[oi].AdjConc = stats.Ratio(out[oi].AdjConc, median)
		}
	}
	return out
}

func safeLog2(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return math.NaN()
	}
	return math.Log2(v)
}

func groupIndices(obs []domain.Observation) map[domain.GroupKey][]int {
	groups := make(map[domain.GroupKey][]int)
	for i, o := range obs {
		key := domain.GroupKey{Lipid: o.Lipid, Batch: o.Batch}
		groups[key] = append(groups[key], i)
	}
	return groups
}

func sortedKeys(groups map[domain.GroupKey][]int) []domain.GroupKey {
	keys := make([]domain.GroupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].Lipid != keys[b].Lipid {
			return keys[a].Lipid < keys[b].Lipid
		}
		return keys[a].Batch < keys[b].Batch
	})
	return keys
}
