package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/edgecard/internal/database"
	"github.com/yourusername/edgecard/internal/models"
)

// PostgresJobRunRepository implements JobRunRepository for PostgreSQL
type PostgresJobRunRepository struct {
	db *database.DB
}

// NewPostgresJobRunRepository creates a new job run repository
func NewPostgresJobRunRepository(db *database.DB) JobRunRepository {
	return &PostgresJobRunRepository{db: db}
}

// Insert records a new job run row
func (j *PostgresJobRunRepository) Insert(ctx context.Context, run *models.JobRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = models.JobStatusRunning
	}

	_, err := j.db.GetPool().Exec(ctx, `
		INSERT INTO job_runs (id, job_name, job_key, status, started_at)
		VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.JobName, run.JobKey, run.Status, run.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert job run: %w", database.MapError(err))
	}

	return nil
}

// MarkSuccess transitions a running row to success
func (j *PostgresJobRunRepository) MarkSuccess(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	return j.finish(ctx, id, models.JobStatusSuccess, endedAt, nil)
}

// MarkFailed transitions a running row to failed with an error message
func (j *PostgresJobRunRepository) MarkFailed(ctx context.Context, id uuid.UUID, endedAt time.Time, errorMessage string) error {
	return j.finish(ctx, id, models.JobStatusFailed, endedAt, &errorMessage)
}

func (j *PostgresJobRunRepository) finish(ctx context.Context, id uuid.UUID, status string, endedAt time.Time, errorMessage *string) error {
	commandTag, err := j.db.GetPool().Exec(ctx, `
		UPDATE job_runs SET status = $2, ended_at = $3, error_message = $4
		WHERE id = $1 AND status = 'running'`,
		id, status, endedAt.UTC(), errorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to finish job run: %w", database.MapError(err))
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// HasRunning reports whether a running row exists for (job_name, job_key)
func (j *PostgresJobRunRepository) HasRunning(ctx context.Context, jobName string, jobKey *string) (bool, error) {
	var exists bool
	err := j.db.GetPool().QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM job_runs
			WHERE job_name = $1
			  AND job_key IS NOT DISTINCT FROM $2
			  AND status = 'running'
		)`, jobName, jobKey,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check running job: %w", err)
	}
	return exists, nil
}

// WasRecentlySuccessful reports whether (job_name, job_key) succeeded within
// the window. Keys are deterministic so this is the idempotency gate.
func (j *PostgresJobRunRepository) WasRecentlySuccessful(ctx context.Context, jobName string, jobKey *string, window time.Duration) (bool, error) {
	if jobKey == nil {
		return false, nil
	}

	var exists bool
	err := j.db.GetPool().QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM job_runs
			WHERE job_name = $1 AND job_key = $2 AND status = 'success'
			  AND ended_at >= $3
		)`, jobName, *jobKey, time.Now().UTC().Add(-window),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check recent success: %w", err)
	}
	return exists, nil
}

// SweepOrphans marks running rows older than the threshold as failed with
// reason orphaned. Called once at startup.
func (j *PostgresJobRunRepository) SweepOrphans(ctx context.Context, olderThan time.Duration, now time.Time) (int, error) {
	commandTag, err := j.db.GetPool().Exec(ctx, `
		UPDATE job_runs SET status = 'failed', ended_at = $2, error_message = 'orphaned'
		WHERE status = 'running' AND started_at < $1`,
		now.UTC().Add(-olderThan), now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep orphaned runs: %w", err)
	}
	return int(commandTag.RowsAffected()), nil
}

// LastSuccessPerJob returns the most recent successful end time per job name
func (j *PostgresJobRunRepository) LastSuccessPerJob(ctx context.Context) (map[string]time.Time, error) {
	rows, err := j.db.GetPool().Query(ctx, `
		SELECT job_name, MAX(ended_at)
		FROM job_runs
		WHERE status = 'success'
		GROUP BY job_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query last successes: %w", err)
	}
	defer rows.Close()

	result := make(map[string]time.Time)
	for rows.Next() {
		var name string
		var endedAt time.Time
		if err := rows.Scan(&name, &endedAt); err != nil {
			return nil, fmt.Errorf("failed to scan last success: %w", err)
		}
		result[name] = endedAt
	}

	return result, rows.Err()
}

// RecentKeys returns the most recent runs projected for the key-format audit
func (j *PostgresJobRunRepository) RecentKeys(ctx context.Context, limit int) ([]RecentJobKey, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := j.db.GetPool().Query(ctx, `
		SELECT job_name, job_key, status
		FROM job_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent job keys: %w", err)
	}
	defer rows.Close()

	var result []RecentJobKey
	for rows.Next() {
		var rk RecentJobKey
		if err := rows.Scan(&rk.JobName, &rk.JobKey, &rk.Status); err != nil {
			return nil, fmt.Errorf("failed to scan job key: %w", err)
		}
		result = append(result, rk)
	}

	return result, rows.Err()
}
