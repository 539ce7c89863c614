package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/edgecard/internal/logger"
	"github.com/yourusername/edgecard/internal/metrics"
	"github.com/yourusername/edgecard/internal/models"
	"github.com/yourusername/edgecard/internal/repository"
)

// Skip reasons reported in Outcome.Skipped
const (
	SkipAlreadyRunning = "already_running"
	SkipIdempotent     = "idempotent"
)

// Outcome reports what happened to one Execute call
type Outcome struct {
	RunID   uuid.UUID
	Skipped string
	Err     error
}

// Ran reports whether the job body actually executed
func (o *Outcome) Ran() bool {
	return o.Skipped == ""
}

// Runtime wraps every scheduled or manual job execution with single-flight
// and idempotency checks and the job_runs audit trail.
type Runtime struct {
	runs   repository.JobRunRepository
	log    *logger.JobLogger
	window time.Duration
}

// NewRuntime creates a job runtime. window is how long a successful
// deterministic job key suppresses re-execution.
func NewRuntime(runs repository.JobRunRepository, log *logger.JobLogger, window time.Duration) *Runtime {
	return &Runtime{runs: runs, log: log, window: window}
}

// Execute runs fn under a JobRun row. A running row for (jobName, jobKey)
// or a recent success on the same key skips the body. fn receives the run
// id so writes can be pinned to it. The returned Outcome always describes
// what happened; Err mirrors fn's error after the row is marked failed.
func (r *Runtime) Execute(ctx context.Context, jobName string, jobKey *string, fn func(ctx context.Context, runID uuid.UUID) error) (*Outcome, error) {
	keyStr := ""
	if jobKey != nil {
		keyStr = *jobKey
	}

	running, err := r.runs.HasRunning(ctx, jobName, jobKey)
	if err != nil {
		return nil, err
	}
	if running {
		r.log.LogJobSkipped(jobName, keyStr, SkipAlreadyRunning)
		metrics.RecordJobSkip(jobName, SkipAlreadyRunning)
		return &Outcome{Skipped: SkipAlreadyRunning}, nil
	}

	recent, err := r.runs.WasRecentlySuccessful(ctx, jobName, jobKey, r.window)
	if err != nil {
		return nil, err
	}
	if recent {
		r.log.LogJobSkipped(jobName, keyStr, SkipIdempotent)
		metrics.RecordJobSkip(jobName, SkipIdempotent)
		return &Outcome{Skipped: SkipIdempotent}, nil
	}

	run := &models.JobRun{JobName: jobName, JobKey: jobKey}
	if err := r.runs.Insert(ctx, run); err != nil {
		return nil, err
	}
	r.log.LogJobStart(jobName, keyStr, run.ID.String())

	start := time.Now()
	jobErr := fn(ctx, run.ID)
	duration := time.Since(start)
	endedAt := time.Now().UTC()

	if jobErr != nil {
		if markErr := r.runs.MarkFailed(ctx, run.ID, endedAt, jobErr.Error()); markErr != nil {
			r.log.WithError(markErr).Error("Failed to mark job run failed")
		}
		r.log.LogJobFailure(jobName, keyStr, run.ID.String(), duration, jobErr)
		metrics.RecordJobRun(jobName, models.JobStatusFailed)
		return &Outcome{RunID: run.ID, Err: jobErr}, jobErr
	}

	if err := r.runs.MarkSuccess(ctx, run.ID, endedAt); err != nil {
		return nil, err
	}
	r.log.LogJobSuccess(jobName, keyStr, run.ID.String(), duration)
	metrics.RecordJobRun(jobName, models.JobStatusSuccess)

	return &Outcome{RunID: run.ID}, nil
}

// SweepOrphans marks running rows older than the threshold as failed with
// reason orphaned. Called once at startup before the scheduler begins.
func (r *Runtime) SweepOrphans(ctx context.Context, olderThan time.Duration) (int, error) {
	marked, err := r.runs.SweepOrphans(ctx, olderThan, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	r.log.LogOrphanSweep(marked, olderThan)
	return marked, nil
}
