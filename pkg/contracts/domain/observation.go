package domain

import (
	"math"
	"strings"
)

// SampleType classifies the role a sample plays in QC processing.
// It determines how an observation participates in correction and
// metric aggregation, never the identity of the measured lipid.
type SampleType string

const (
	// SampleTypeSPL marks a biological study sample.
	SampleTypeSPL SampleType = "SPL"
	// SampleTypeBQC marks a batch/process quality control sample.
	SampleTypeBQC SampleType = "BQC"
	// SampleTypeTQC marks a technical quality control sample.
	SampleTypeTQC SampleType = "TQC"
	// SampleTypePBLK marks a process blank.
	SampleTypePBLK SampleType = "PBLK"
	// SampleTypeSBLK marks a solvent blank.
	SampleTypeSBLK SampleType = "SBLK"
	// SampleTypeRQC marks a response-curve quality control sample.
	SampleTypeRQC SampleType = "RQC"
	// SampleTypeUnknown tags rows whose qc_type column was not recognised.
	// Unknown rows are carried through but excluded from every QC role.
	SampleTypeUnknown SampleType = "UNKNOWN"
)

// ParseSampleType maps the qc_type column value to a SampleType.
// Matching is case-insensitive and tolerates the long-form labels
// some acquisition software writes ("Sample", "Blank").
func ParseSampleType(s string) SampleType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SPL", "SAMPLE", "STUDY SAMPLE":
		return SampleTypeSPL
	case "BQC", "POOLED QC", "PQC":
		return SampleTypeBQC
	case "TQC", "TECHNICAL QC":
		return SampleTypeTQC
	case "PBLK", "PROCESS BLANK", "BLANK":
		return SampleTypePBLK
	case "SBLK", "SOLVENT BLANK", "SOLVENT":
		return SampleTypeSBLK
	case "RQC", "RESPONSE QC", "CURVE":
		return SampleTypeRQC
	default:
		return SampleTypeUnknown
	}
}

// IsQC reports whether the type is one of the quality-control roles
// (everything except a study sample or an unknown tag).
func (t SampleType) IsQC() bool {
	switch t {
	case SampleTypeBQC, SampleTypeTQC, SampleTypePBLK, SampleTypeSBLK, SampleTypeRQC:
		return true
	}
	return false
}

// Observation is one (sample, lipid) measurement flowing through the
// pipeline. Stages enrich it by filling later fields; a field written by
// an earlier stage is never overwritten downstream. Missing values are
// encoded as NaN throughout.
type Observation struct {
	SampleID   string     `json:"sample_id"`
	Lipid      string     `json:"lipid"`
	RunIndex   int        `json:"run_index"`
	Batch      string     `json:"batch"`
	SampleType SampleType `json:"sample_type"`

	// Area is the raw chromatographic peak area from the wide input table.
	Area float64 `json:"area"`
	// NormArea is Area divided by the ISTD's own area in the same sample.
	NormArea float64 `json:"norm_area"`
	// Conc is the ISTD-derived concentration before drift correction.
	Conc float64 `json:"conc"`
	// AdjConc is the drift- and batch-corrected concentration.
	AdjConc float64 `json:"adj_conc"`
}

// HasArea reports whether the raw area is present and usable.
func (o Observation) HasArea() bool {
	return !math.IsNaN(o.Area)
}

// GroupKey identifies an independent correction group. Within-batch
// smoothing and the first alignment pass both operate per key.
type GroupKey struct {
	Lipid string
	Batch string
}
