package etl

import (
	"context"
	"time"

	"go.uber.org/zap"

	"jobfeed/internal/errors"
	"jobfeed/internal/logger"
)

// ── Engine ─────────────────────────────────────────────────
// Orchestrates: source.Extract → transformer.Transform → destination.Load.
// Stages run strictly in sequence; the first failure aborts the rest and
// nothing is retried.

// Stage names a pipeline step.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageTransform Stage = "transform"
	StageLoad      Stage = "load"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	Status      string        `json:"status"`
	Stage       Stage         `json:"stage,omitempty"` // failing stage, empty on success
	RowsRead    int           `json:"rowsRead"`
	RowsWritten int           `json:"rowsWritten"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// Engine runs the three stages in order.
type Engine struct {
	Source      Source
	Transformer Transformer
	Dest        Destination
	Logger      *zap.SugaredLogger
}

// Run executes the pipeline end-to-end: load(transform(extract())).
// The returned result is never nil.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	log := logger.OrNop(e.Logger)
	start := time.Now()
	result := &RunResult{}

	fail := func(stage Stage, err error) (*RunResult, error) {
		err = errors.Wrapf(err, "%s", stage)
		result.Status = StatusError
		result.Stage = stage
		result.Error = err.Error()
		result.Duration = time.Since(start)
		log.Errorw("Pipeline stage failed",
			logger.FieldStage, stage,
			"kind", Kind(err),
			logger.FieldError, err,
		)
		return result, err
	}

	// 1. Extract.
	raw, err := e.Source.Extract(ctx)
	if err != nil {
		return fail(StageExtract, err)
	}
	result.RowsRead = raw.Len()
	log.Debugw("Extracted batch", logger.FieldStage, StageExtract, logger.FieldCount, raw.Len())

	// 2. Transform.
	persisted, err := e.Transformer.Transform(raw)
	if err != nil {
		return fail(StageTransform, err)
	}
	log.Debugw("Transformed batch", logger.FieldStage, StageTransform, logger.FieldCount, persisted.Len())

	// 3. Load.
	written, err := e.Dest.Load(ctx, persisted)
	if err != nil {
		return fail(StageLoad, err)
	}

	result.Status = StatusSuccess
	result.RowsWritten = written
	result.Duration = time.Since(start)
	log.Infow("Pipeline run committed",
		logger.FieldCount, written,
		logger.FieldDurationMS, result.Duration.Milliseconds(),
	)
	return result, nil
}
