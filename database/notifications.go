package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/model"
)

// EnqueueJob persists a notification job. The idempotency key carries a
// UNIQUE constraint and the insert is OR IGNORE: enqueueing the same logical
// event twice leaves a single job and reports false the second time.
func EnqueueJob(db *sqlx.DB, job *model.NotificationJob) (bool, error) {
	res, err := db.NamedExec(`
		INSERT OR IGNORE INTO notification_jobs (
			id, idempotency_key, job_type, payload, status,
			attempts, max_attempts, next_run_at, last_error, created_at, updated_at
		) VALUES (
			:id, :idempotency_key, :job_type, :payload, :status,
			:attempts, :max_attempts, :next_run_at, :last_error, :created_at, :updated_at
		)`, job)
	if err != nil {
		return false, fmt.Errorf("failed to enqueue job %s: %w", job.IdempotencyKey, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClaimDueJob atomically takes ownership of one due pending job. The claim
// is a conditional UPDATE keyed on the pending status, so two workers can
// never hold the same job.
func ClaimDueJob(db *sqlx.DB, now time.Time) (*model.NotificationJob, error) {
	nowStr := now.UTC().Format(time.RFC3339)
	for {
		var job model.NotificationJob
		err := db.Get(&job, `
			SELECT id, idempotency_key, job_type, payload, status,
				attempts, max_attempts, next_run_at, last_error, created_at, updated_at
			FROM notification_jobs
			WHERE status = ? AND next_run_at <= ?
			ORDER BY next_run_at
			LIMIT 1`, model.JobPending, nowStr)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to select due job: %w", err)
		}

		res, err := db.Exec(`
			UPDATE notification_jobs SET status = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			model.JobProcessing, nowStr, job.ID, model.JobPending)
		if err != nil {
			return nil, fmt.Errorf("failed to claim job %s: %w", job.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n > 0 {
			job.Status = model.JobProcessing
			return &job, nil
		}
		// Another worker won the claim; look for the next job.
	}
}

// ResetProcessingJobs returns jobs stranded in processing to pending so they
// run again. A job is only processing while a live worker holds it, so any
// processing row found outside the workers belongs to a run that died before
// acknowledging; re-running it is covered by at-least-once delivery.
func ResetProcessingJobs(db *sqlx.DB) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := db.Exec(`
		UPDATE notification_jobs SET status = ?, next_run_at = ?, updated_at = ?
		WHERE status = ?`,
		model.JobPending, now, now, model.JobProcessing)
	if err != nil {
		return 0, fmt.Errorf("failed to reset processing jobs: %w", err)
	}
	return res.RowsAffected()
}

func MarkJobDone(db *sqlx.DB, jobID string) error {
	_, err := db.Exec(`UPDATE notification_jobs SET status = ?, updated_at = ? WHERE id = ?`,
		model.JobDone, time.Now().UTC().Format(time.RFC3339), jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job %s done: %w", jobID, err)
	}
	return nil
}

// MarkJobRetry schedules one more attempt after the backoff delay.
func MarkJobRetry(db *sqlx.DB, jobID string, attempts int, nextRunAt time.Time, lastError string) error {
	_, err := db.Exec(`
		UPDATE notification_jobs
		SET status = ?, attempts = ?, next_run_at = ?, last_error = ?, updated_at = ?
		WHERE id = ?`,
		model.JobPending, attempts, nextRunAt.UTC().Format(time.RFC3339), lastError,
		time.Now().UTC().Format(time.RFC3339), jobID)
	if err != nil {
		return fmt.Errorf("failed to schedule retry for job %s: %w", jobID, err)
	}
	return nil
}

// MarkJobFailed parks an exhausted job for manual inspection.
func MarkJobFailed(db *sqlx.DB, jobID string, attempts int, lastError string) error {
	_, err := db.Exec(`
		UPDATE notification_jobs
		SET status = ?, attempts = ?, last_error = ?, updated_at = ?
		WHERE id = ?`,
		model.JobFailed, attempts, lastError, time.Now().UTC().Format(time.RFC3339), jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", jobID, err)
	}
	return nil
}

func GetJobByKey(db *sqlx.DB, idempotencyKey string) (*model.NotificationJob, error) {
	var job model.NotificationJob
	err := db.Get(&job, `
		SELECT id, idempotency_key, job_type, payload, status,
			attempts, max_attempts, next_run_at, last_error, created_at, updated_at
		FROM notification_jobs
		WHERE idempotency_key = ?`, idempotencyKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job %s: %w", idempotencyKey, err)
	}
	return &job, nil
}

func ListFailedJobs(db *sqlx.DB) ([]model.NotificationJob, error) {
	var out []model.NotificationJob
	err := db.Select(&out, `
		SELECT id, idempotency_key, job_type, payload, status,
			attempts, max_attempts, next_run_at, last_error, created_at, updated_at
		FROM notification_jobs
		WHERE status = ?
		ORDER BY updated_at DESC`, model.JobFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed jobs: %w", err)
	}
	return out, nil
}
