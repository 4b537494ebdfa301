// Package assembler reshapes the wide peak-area table into long-format
// observations: one row per (sample, lipid), tagged with run order and
// QC sample type.
package assembler

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"strings"

	pipeerrors "lipidqc/internal/errors"
	"lipidqc/pkg/contracts/domain"
)

// rawFileExt matches the vendor raw-file suffixes acquisition software
// appends to sample identifiers.
var rawFileExt = regexp.MustCompile(`(?i)\.(raw|d|mzml|mzxml|wiff2?|lcd|cdf|txt)$`)

// Assembler performs the wide-to-long reshape. Pure transform: it
// never touches the filesystem.
type Assembler struct {
	excluded map[string]bool
	logger   *slog.Logger
}

// New creates an Assembler that drops the given sample identifiers
// (compared after extension stripping, case-insensitively).
func New(excludedSamples []string, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	excluded := make(map[string]bool, len(excludedSamples))
	for _, s := range excludedSamples {
		excluded[strings.ToLower(StripRawExtension(s))] = true
	}
	return &Assembler{excluded: excluded, logger: logger}
}

// StripRawExtension removes a trailing raw-data file extension from a
// sample identifier, if present.
func StripRawExtension(sampleID string) string {
	return rawFileExt.ReplaceAllString(strings.TrimSpace(sampleID), "")
}

// Assemble converts the wide table to long-format observations. Run
// indices are 1-based in acquisition order, assigned after exclusion.
// Duplicate sample identifiers violate the (sample, lipid) uniqueness
// invariant and are a structural error.
func (a *Assembler) Assemble(ctx context.Context, wide *WideTable) ([]domain.Observation, error) {
	if wide == nil || len(wide.Samples) == 0 {
		return nil, pipeerrors.NewImportError(pipeerrors.CodeEmptyTable, "wide_table", "no samples to assemble")
	}

	seen := make(map[string]bool, len(wide.Samples))
	observations := make([]domain.Observation, 0, len(wide.Samples)*len(wide.Lipids))
	runIndex := 0
	excludedCount := 0
	unknownTypes := make(map[string]bool)

	for _, sample := range wide.Samples {
		id := StripRawExtension(sample.SampleID)
		if a.excluded[strings.ToLower(id)] {
			excludedCount++
			a.logger.InfoContext(ctx, "excluding flagged sample",
				slog.String("sample_id", id),
			)
			continue
		}
		if seen[id] {
			return nil, pipeerrors.NewImportError(pipeerrors.CodeDuplicateKey, "wide_table",
				"duplicate sample identifier "+id)
		}
		seen[id] = true
		runIndex++

		sampleType := domain.ParseSampleType(sample.QCType)
		if sampleType == domain.SampleTypeUnknown && !unknownTypes[sample.QCType] {
			unknownTypes[sample.QCType] = true
			a.logger.WarnContext(ctx, "unrecognised qc_type, rows excluded from QC roles",
				slog.String("qc_type", sample.QCType),
				slog.String("sample_id", id),
			)
		}

		for j, lipid := range wide.Lipids {
			area := math.NaN()
			if j < len(sample.Areas) {
				area = sample.Areas[j]
			}
			observations = append(observations, domain.Observation{
				SampleID:   id,
				Lipid:      lipid,
				RunIndex:   runIndex,
				Batch:      sample.Batch,
				SampleType: sampleType,
				Area:       area,
				NormArea:   math.NaN(),
				Conc:       math.NaN(),
				AdjConc:    math.NaN(),
			})
		}
	}

	if len(observations) == 0 {
		return nil, pipeerrors.NewImportError(pipeerrors.CodeEmptyTable, "wide_table", "all samples excluded")
	}

	a.logger.InfoContext(ctx, "assembled long-format table",
		slog.Int("samples", runIndex),
		slog.Int("lipids", len(wide.Lipids)),
		slog.Int("observations", len(observations)),
		slog.Int("excluded_samples", excludedCount),
	)
	return observations, nil
}
