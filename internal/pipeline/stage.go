// Package pipeline sequences the five processing stages over a shared
// run state. Each stage consumes the tables earlier stages produced
// and owns exactly one new table; nothing is mutated in place across
// stage boundaries.
package pipeline

import (
	"context"
	"time"

	"lipidqc/internal/assembler"
	"lipidqc/pkg/contracts/domain"
)

// Stage is one pipeline step.
type Stage interface {
	// ID returns the stable identifier used in logs and stage states.
	ID() string

	// Name returns the human-readable stage name.
	Name() string

	// Run executes the stage against the run state. Returning an error
	// aborts the run; analytic degradation must surface as NaN in the
	// produced table instead.
	Run(ctx context.Context, state *State) error
}

// State carries the versioned tables of one pipeline run. Fields are
// filled in stage order; a stage reads earlier fields and writes only
// its own.
type State struct {
	// Inputs, loaded before the run starts.
	Wide *assembler.WideTable
	Refs domain.ReferenceTables

	// Stage outputs.
	Observations []domain.Observation // assembler
	Quantified   []domain.Observation // concentration calculator
	Corrected    []domain.Observation // drift/batch corrector
	QCRecords    []domain.QCRecord    // metric engine, then filter
	Result       domain.ResultTable   // filter/exporter

	// DroppedLipids lists lipids excluded for missing ISTD mappings.
	DroppedLipids []string
}

// StageStatus is the lifecycle state of a stage within a run.
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusActive    StageStatus = "active"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
)

// StageState records the outcome and timing of one stage.
type StageState struct {
	ID        string
	Name      string
	Status    StageStatus
	StartTime time.Time
	EndTime   time.Time
	Err       error
}

// Duration returns the stage's wall time, zero until it finished.
func (s StageState) Duration() time.Duration {
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}
