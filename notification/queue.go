package notification

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/database"
	"github.com/jbrpriv/RentifyPro-sub000/model"
)

// Queue is the producer side of the dispatch pipeline. Jobs are persisted
// rows; the idempotency key identifies the logical event, so producers can
// re-trigger freely without creating duplicates.
type Queue struct {
	db          *sqlx.DB
	maxAttempts int
}

func NewQueue(db *sqlx.DB, maxAttempts int) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Queue{db: db, maxAttempts: maxAttempts}
}

// Enqueue persists one job for the given logical event. Returns true if a
// new job was created, false if the key was already enqueued.
func (q *Queue) Enqueue(jobType, idempotencyKey string, payload model.NotificationPayload) (bool, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal payload for job %s: %w", idempotencyKey, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	job := &model.NotificationJob{
		ID:             uuid.NewString(),
		IdempotencyKey: idempotencyKey,
		JobType:        jobType,
		Payload:        string(raw),
		Status:         model.JobPending,
		Attempts:       0,
		MaxAttempts:    q.maxAttempts,
		NextRunAt:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	inserted, err := database.EnqueueJob(q.db, job)
	if err != nil {
		return false, err
	}
	if !inserted {
		log.Printf("INFO: [Queue] Job %s already enqueued, skipping.", idempotencyKey)
	}
	return inserted, nil
}
