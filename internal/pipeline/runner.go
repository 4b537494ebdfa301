package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Runner executes stages sequentially, recording per-stage state and
// logging progress. The first stage error aborts the run; remaining
// stages stay pending.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// Run executes the stages in order against state and returns the
// per-stage records alongside any aborting error.
func (r *Runner) Run(ctx context.Context, stages []Stage, state *State) ([]StageState, error) {
	runID := uuid.NewString()
	logger := r.logger.With(slog.String("run_id", runID))
	logger.InfoContext(ctx, "starting pipeline run",
		slog.Int("stages", len(stages)),
	)
	runStart := time.Now()

	states := make([]StageState, len(stages))
	for i, stage := range stages {
		states[i] = StageState{ID: stage.ID(), Name: stage.Name(), Status: StageStatusPending}
	}

	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			states[i].Status = StageStatusFailed
			states[i].Err = err
			return states, fmt.Errorf("run cancelled before stage %s: %w", stage.ID(), err)
		}

		states[i].Status = StageStatusActive
		states[i].StartTime = time.Now()
		logger.InfoContext(ctx, "stage started",
			slog.String("stage", stage.ID()),
			slog.String("name", stage.Name()),
		)

		err := stage.Run(ctx, state)
		states[i].EndTime = time.Now()
		if err != nil {
			states[i].Status = StageStatusFailed
			states[i].Err = err
			logger.ErrorContext(ctx, "stage failed",
				slog.String("stage", stage.ID()),
				slog.Duration("duration", states[i].Duration()),
				slog.Any("error", err),
			)
			return states, fmt.Errorf("stage %s: %w", stage.ID(), err)
		}

		states[i].Status = StageStatusCompleted
		logger.InfoContext(ctx, "stage completed",
			slog.String("stage", stage.ID()),
			slog.Duration("duration", states[i].Duration()),
		)
	}

	logger.InfoContext(ctx, "pipeline run completed",
		slog.Duration("duration", time.Since(runStart)),
	)
	return states, nil
}
