package models

import (
	"time"

	"github.com/google/uuid"
)

// JobRun statuses
const (
	JobStatusRunning = "running"
	JobStatusSuccess = "success"
	JobStatusFailed  = "failed"
)

// JobRun is the audit record for one attempted job execution. At most one
// running row exists per (job_name, job_key); the Job Runtime enforces it.
type JobRun struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	JobName      string     `db:"job_name" json:"job_name" validate:"required"`
	JobKey       *string    `db:"job_key" json:"job_key"`
	Status       string     `db:"status" json:"status" validate:"oneof=running success failed"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	EndedAt      *time.Time `db:"ended_at" json:"ended_at"`
	ErrorMessage *string    `db:"error_message" json:"error_message"`
}

// Duration returns the run duration, or 0 while still running.
func (j *JobRun) Duration() time.Duration {
	if j.EndedAt == nil {
		return 0
	}
	return j.EndedAt.Sub(j.StartedAt)
}
