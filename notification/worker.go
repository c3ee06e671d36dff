package notification

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/database"
	"github.com/jbrpriv/RentifyPro-sub000/model"
)

// HandlerFunc processes one job. Handlers re-fetch referenced entities from
// the database at execution time and must tolerate running more than once
// for the same job (at-least-once delivery).
type HandlerFunc func(db *sqlx.DB, senders Senders, payload model.NotificationPayload) error

// Worker pulls due jobs and dispatches them to per-type handlers with a
// fixed concurrency. Failed handlers are retried with exponential backoff;
// exhausted jobs are parked in the failed set, never dropped.
type Worker struct {
	db           *sqlx.DB
	senders      Senders
	concurrency  int
	backoffBase  time.Duration
	pollInterval time.Duration
	handlers     map[string]HandlerFunc

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewWorker(db *sqlx.DB, senders Senders, concurrency, backoffBaseSeconds int) *Worker {
	if concurrency <= 0 {
		concurrency = 4
	}
	if backoffBaseSeconds <= 0 {
		backoffBaseSeconds = 5
	}
	w := &Worker{
		db:           db,
		senders:      senders,
		concurrency:  concurrency,
		backoffBase:  time.Duration(backoffBaseSeconds) * time.Second,
		pollInterval: time.Second,
		stopCh:       make(chan struct{}),
	}
	w.handlers = defaultHandlers()
	return w
}

func (w *Worker) Start() {
	// Jobs claimed by a previous run that died before acknowledging are
	// still marked processing; put them back in line before claiming.
	if n, err := database.ResetProcessingJobs(w.db); err != nil {
		log.Printf("WARN: [Worker] Failed to recover in-flight jobs: %v", err)
	} else if n > 0 {
		log.Printf("INFO: [Worker] Recovered %d in-flight jobs from a previous run.", n)
	}

	log.Printf("INFO: [Worker] Starting %d notification workers.", w.concurrency)
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.run()
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	log.Println("INFO: [Worker] Notification workers stopped.")
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		job, err := database.ClaimDueJob(w.db, time.Now())
		if err != nil {
			log.Printf("WARN: [Worker] Failed to claim job: %v", err)
			time.Sleep(w.pollInterval)
			continue
		}
		if job == nil {
			time.Sleep(w.pollInterval)
			continue
		}
		w.process(job)
	}
}

// process runs one claimed job to a terminal or retry state.
func (w *Worker) process(job *model.NotificationJob) {
	if _, ok := w.handlers[job.JobType]; !ok {
		// Unknown types can never succeed; park without burning retries.
		log.Printf("WARN: [Worker] Job %s has unknown type %q, parking.", job.ID, job.JobType)
		if err := database.MarkJobFailed(w.db, job.ID, job.Attempts,
			fmt.Sprintf("unknown job type %q", job.JobType)); err != nil {
			log.Printf("WARN: [Worker] Failed to park job %s: %v", job.ID, err)
		}
		return
	}

	err := w.dispatch(job)
	if err == nil {
		if err := database.MarkJobDone(w.db, job.ID); err != nil {
			log.Printf("WARN: [Worker] Job %s succeeded but could not be acknowledged: %v", job.ID, err)
		}
		return
	}

	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		log.Printf("WARN: [Worker] Job %s (%s) exhausted after %d attempts: %v",
			job.ID, job.JobType, attempts, err)
		if ferr := database.MarkJobFailed(w.db, job.ID, attempts, err.Error()); ferr != nil {
			log.Printf("WARN: [Worker] Failed to park job %s: %v", job.ID, ferr)
		}
		return
	}

	delay := w.backoffBase << (attempts - 1) // 5s, 10s, 20s
	log.Printf("WARN: [Worker] Job %s (%s) attempt %d failed, retrying in %s: %v",
		job.ID, job.JobType, attempts, delay, err)
	if rerr := database.MarkJobRetry(w.db, job.ID, attempts, time.Now().Add(delay), err.Error()); rerr != nil {
		log.Printf("WARN: [Worker] Failed to schedule retry for job %s: %v", job.ID, rerr)
	}
}

func (w *Worker) dispatch(job *model.NotificationJob) error {
	handler, ok := w.handlers[job.JobType]
	if !ok {
		return fmt.Errorf("no handler registered for job type %q", job.JobType)
	}
	var payload model.NotificationPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload of job %s: %w", job.ID, err)
	}
	return handler(w.db, w.senders, payload)
}
