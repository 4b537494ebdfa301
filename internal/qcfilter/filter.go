// Package qcfilter applies the per-lipid pass/fail rules and builds
// the final sample-by-lipid concentration table.
package qcfilter

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"lipidqc/internal/config"
	"lipidqc/pkg/contracts/domain"
)

// Filter scores QC records against the configured thresholds.
type Filter struct {
	cfg    config.QCConfig
	logger *slog.Logger
}

// NewFilter builds a Filter.
func NewFilter(cfg config.QCConfig, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{cfg: cfg, logger: logger}
}

// Apply sets the Pass flag on each record and returns a new slice; the
// input is not modified. A lipid passes only when every criterion
// holds; a missing (NaN) metric fails its criterion.
func (f *Filter) Apply(ctx context.Context, records []domain.QCRecord) []domain.QCRecord {
	out := make([]domain.QCRecord, len(records))
	copy(out, records)

	passed := 0
	for i := range out {
		out[i].Pass = f.passes(out[i])
		if out[i].Pass {
			passed++
		}
	}
	f.logger.InfoContext(ctx, "applied QC filter",
		slog.Int("lipids", len(out)),
		slog.Int("passed", passed),
	)
	return out
}

// passes evaluates the full rule set. NaN comparisons are false, which
// is exactly the wanted fail-on-missing behaviour.
func (f *Filter) passes(r domain.QCRecord) bool {
	precision := r.CVBQC < f.cfg.CVBQCStrict ||
		(r.CVBQC < f.cfg.CVBQCRelaxed && r.DRatio < f.cfg.DRatioMax)
	if !precision {
		return false
	}
	if !(r.SBRatio > f.cfg.SBRatioMin) {
		return false
	}
	if !(firstCurveR2(r) > f.cfg.CurveR2Min) {
		return false
	}
	return r.IsQuantifier && !r.IsISTD
}

// firstCurveR2 returns the R² of the lowest-indexed response curve, or
// NaN when no curve was fitted.
func firstCurveR2(r domain.QCRecord) float64 {
	indices := r.CurveIndices()
	if len(indices) == 0 {
		return math.NaN()
	}
	return r.CurveR2[indices[0]]
}

// BuildResultTable pivots the corrected observations into the final
// wide matrix: SAMPLE-type rows only, passing lipids only, one column
// per lipid. Samples are ordered by run index, lipids lexically. A
// lipid absent from the records (dropped upstream) is absent here.
func BuildResultTable(observations []domain.Observation, records []domain.QCRecord) domain.ResultTable {
	passing := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Pass {
			passing[r.Lipid] = true
		}
	}

	lipids := make([]string, 0, len(passing))
	for lipid := range passing {
		lipids = append(lipids, lipid)
	}
	sort.Strings(lipids)
	lipidCol := make(map[string]int, len(lipids))
	for j, lipid := range lipids {
		lipidCol[lipid] = j
	}

	type sampleRow struct {
		id  string
		run int
	}
	var samples []sampleRow
	seen := make(map[string]bool)
	for _, o := range observations {
		if o.SampleType != domain.SampleTypeSPL || seen[o.SampleID] {
			continue
		}
		seen[o.SampleID] = true
		samples = append(samples, sampleRow{id: o.SampleID, run: o.RunIndex})
	}
	sort.Slice(samples, func(a, b int) bool { return samples[a].run < samples[b].run })

	table := domain.ResultTable{
		Samples: make([]string, len(samples)),
		Lipids:  lipids,
		Values:  make([][]float64, len(samples)),
	}
	rowIndex := make(map[string]int, len(samples))
	for i, s := range samples {
		table.Samples[i] = s.id
		rowIndex[s.id] = i
		row := make([]float64, len(lipids))
		for j := range row {
			row[j] = math.NaN()
		}
		table.Values[i] = row
	}

	for _, o := range observations {
		if o.SampleType != domain.SampleTypeSPL {
			continue
		}
		j, ok := lipidCol[o.Lipid]
		if !ok {
			continue
		}
		table.Values[rowIndex[o.SampleID]][j] = o.AdjConc
	}
	return table
}
