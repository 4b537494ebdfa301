// Package quant turns raw peak areas into ISTD-normalized
// concentrations using the static reference tables.
package quant

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"lipidqc/internal/config"
	"lipidqc/pkg/contracts/domain"
)

// Calculator computes normalized areas and concentrations. Lipids
// without an ISTD mapping are dropped with a warning and recorded in
// Dropped for the audit sidecar.
type Calculator struct {
	istdMap   map[string]domain.ISTDMapping
	istdConc  map[string]float64
	spikeVol  float64
	sampleVol float64
	logger    *slog.Logger
}

// NewCalculator builds a Calculator from the reference tables and the
// fixed instrument constants.
func NewCalculator(refs domain.ReferenceTables, cfg config.QuantConfig, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	// Every internal standard normalizes against itself, whether or not
	// the mapping table lists it explicitly.
	istdMap := make(map[string]domain.ISTDMapping, len(refs.ISTDMap)+len(refs.ISTDConc))
	for lipid, m := range refs.ISTDMap {
		istdMap[lipid] = m
	}
	for istd := range refs.ISTDConc {
		if _, ok := istdMap[istd]; !ok {
			istdMap[istd] = domain.ISTDMapping{Lipid: istd, ISTD: istd, ResponseFactor: 1}
		}
	}
	return &Calculator{
		istdMap:   istdMap,
		istdConc:  refs.ISTDConc,
		spikeVol:  cfg.ISTDSpikeVolUL,
		sampleVol: cfg.SampleVolUL,
		logger:    logger,
	}
}

// Calculate enriches each observation with NormArea and Conc and
// returns a new slice; the input is not modified. The second return
// value lists lipids dropped for lacking an ISTD mapping.
func (c *Calculator) Calculate(ctx context.Context, observations []domain.Observation) ([]domain.Observation, []string, error) {
	// ISTD own areas, keyed by (sample, istd). The ISTD's area row is
	// the denominator for every lipid in its group within that sample.
	istdAreas := make(map[[2]string]float64)
	for _, o := range observations {
		if _, isISTD := c.istdConc[o.Lipid]; isISTD {
			istdAreas[[2]string{o.SampleID, o.Lipid}] = o.Area
		}
	}

	droppedSet := make(map[string]bool)
	out := make([]domain.Observation, 0, len(observations))
	for _, o := range observations {
		mapping, ok := c.istdMap[o.Lipid]
		if !ok {
			droppedSet[o.Lipid] = true
			continue
		}

		istdArea, found := istdAreas[[2]string{o.SampleID, mapping.ISTD}]
		if !found || math.IsNaN(istdArea) || istdArea == 0 {
			// Undefined, not a division error.
			o.NormArea = math.NaN()
			o.Conc = math.NaN()
			out = append(out, o)
			continue
		}

		o.NormArea = o.Area / istdArea
		conc, hasConc := c.istdConc[mapping.ISTD]
		if !hasConc {
			o.Conc = math.NaN()
		} else {
			o.Conc = o.NormArea * mapping.ResponseFactor * conc / 1000 * (c.spikeVol / c.sampleVol)
		}
		out = append(out, o)
	}

	dropped := make([]string, 0, len(droppedSet))
	for lipid := range droppedSet {
		dropped = append(dropped, lipid)
	}
	sort.Strings(dropped)
	for _, lipid := range dropped {
		c.logger.WarnContext(ctx, "dropping lipid without ISTD mapping",
			slog.String("lipid", lipid),
		)
	}

	c.logger.InfoContext(ctx, "computed concentrations",
		slog.Int("observations", len(out)),
		slog.Int("dropped_lipids", len(dropped)),
	)
	return out, dropped, nil
}
