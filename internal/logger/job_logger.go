// Package logger provides job-specific logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// JobLogger provides dedicated logging for job runtime events.
type JobLogger struct {
	*logrus.Entry
}

// NewJobLogger creates a new job logger.
func NewJobLogger(baseLogger *logrus.Logger) *JobLogger {
	return &JobLogger{
		Entry: baseLogger.WithField("component", "jobs"),
	}
}

// LogJobStart logs the start of a job run.
func (jl *JobLogger) LogJobStart(jobName, jobKey, runID string) {
	jl.WithFields(logrus.Fields{
		"job_name": jobName,
		"job_key":  jobKey,
		"run_id":   runID,
	}).Info("Job started")
}

// LogJobSuccess logs a successful job completion.
func (jl *JobLogger) LogJobSuccess(jobName, jobKey, runID string, duration time.Duration) {
	jl.WithFields(logrus.Fields{
		"job_name":    jobName,
		"job_key":     jobKey,
		"run_id":      runID,
		"duration_ms": duration.Milliseconds(),
	}).Info("Job succeeded")
}

// LogJobFailure logs a failed job run.
func (jl *JobLogger) LogJobFailure(jobName, jobKey, runID string, duration time.Duration, err error) {
	jl.WithFields(logrus.Fields{
		"job_name":    jobName,
		"job_key":     jobKey,
		"run_id":      runID,
		"duration_ms": duration.Milliseconds(),
	}).WithError(err).Error("Job failed")
}

// LogJobSkipped logs an idempotency or single-flight skip.
func (jl *JobLogger) LogJobSkipped(jobName, jobKey, reason string) {
	jl.WithFields(logrus.Fields{
		"job_name": jobName,
		"job_key":  jobKey,
		"reason":   reason,
	}).Info("Job skipped")
}

// LogOrphanSweep logs the result of a startup orphan sweep.
func (jl *JobLogger) LogOrphanSweep(marked int, olderThan time.Duration) {
	jl.WithFields(logrus.Fields{
		"marked_failed": marked,
		"older_than":    olderThan.String(),
	}).Info("Orphaned job runs swept")
}
