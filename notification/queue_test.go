package notification

import (
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbrpriv/RentifyPro-sub000/database"
	"github.com/jbrpriv/RentifyPro-sub000/loader"
	"github.com/jbrpriv/RentifyPro-sub000/model"
)

func setupDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, loader.InitDatabase(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEnqueueDeduplicatesOnIdempotencyKey(t *testing.T) {
	db := setupDB(t)
	q := NewQueue(db, 3)

	payload := model.NotificationPayload{AgreementID: "agr-1", RecipientID: "tenant-1"}
	inserted, err := q.Enqueue(model.NotifyRentOverdue, "overdue:agr-1:2026-04", payload)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same logical event re-triggered.
	inserted, err = q.Enqueue(model.NotifyRentOverdue, "overdue:agr-1:2026-04", payload)
	require.NoError(t, err)
	assert.False(t, inserted)

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM notification_jobs`))
	assert.Equal(t, 1, count)
}

func TestClaimDueJobIsExclusive(t *testing.T) {
	db := setupDB(t)
	q := NewQueue(db, 3)
	_, err := q.Enqueue(model.NotifyMaintenanceUpdate, "maint:1", model.NotificationPayload{})
	require.NoError(t, err)

	job, err := database.ClaimDueJob(db, time.Now())
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, model.JobProcessing, job.Status)

	// The claimed job is no longer available.
	second, err := database.ClaimDueJob(db, time.Now())
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestClaimRespectsNextRunAt(t *testing.T) {
	db := setupDB(t)
	q := NewQueue(db, 3)
	_, err := q.Enqueue(model.NotifyMaintenanceUpdate, "maint:1", model.NotificationPayload{})
	require.NoError(t, err)

	job, err := database.ClaimDueJob(db, time.Now())
	require.NoError(t, err)
	require.NotNil(t, job)

	// Push the job into the future; it must not be claimable now.
	require.NoError(t, database.MarkJobRetry(db, job.ID, 1, time.Now().Add(time.Hour), "boom"))
	early, err := database.ClaimDueJob(db, time.Now())
	require.NoError(t, err)
	assert.Nil(t, early)

	// But it is once the backoff has elapsed.
	late, err := database.ClaimDueJob(db, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, late)
	assert.Equal(t, 1, late.Attempts)
}

func TestWorkerRetriesWithBackoffThenParks(t *testing.T) {
	db := setupDB(t)
	q := NewQueue(db, 3)

	w := NewWorker(db, DefaultSenders(), 1, 5)
	calls := 0
	w.handlers["always_fails"] = func(db *sqlx.DB, senders Senders, p model.NotificationPayload) error {
		calls++
		return errors.New("smtp unreachable")
	}

	_, err := q.Enqueue("always_fails", "fail:1", model.NotificationPayload{})
	require.NoError(t, err)

	for attempt := 1; attempt <= 3; attempt++ {
		// Fast-forward past any backoff instead of sleeping.
		_, err := db.Exec(`UPDATE notification_jobs SET next_run_at = ? WHERE idempotency_key = 'fail:1'`,
			time.Now().Add(-time.Second).UTC().Format(time.RFC3339))
		require.NoError(t, err)

		job, err := database.ClaimDueJob(db, time.Now())
		require.NoError(t, err)
		require.NotNil(t, job, "attempt %d should find the job due", attempt)
		w.process(job)
	}

	assert.Equal(t, 3, calls)

	job, err := database.GetJobByKey(db, "fail:1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, model.JobFailed, job.Status)
	assert.Equal(t, 3, job.Attempts)
	assert.Contains(t, job.LastError, "smtp unreachable")

	// Parked, not claimable.
	next, err := database.ClaimDueJob(db, time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestWorkerBackoffDoubles(t *testing.T) {
	db := setupDB(t)
	q := NewQueue(db, 3)

	w := NewWorker(db, DefaultSenders(), 1, 5)
	w.handlers["always_fails"] = func(db *sqlx.DB, senders Senders, p model.NotificationPayload) error {
		return errors.New("boom")
	}

	_, err := q.Enqueue("always_fails", "fail:1", model.NotificationPayload{})
	require.NoError(t, err)

	before := time.Now()
	job, err := database.ClaimDueJob(db, before)
	require.NoError(t, err)
	require.NotNil(t, job)
	w.process(job)

	job, err = database.GetJobByKey(db, "fail:1")
	require.NoError(t, err)
	assert.Equal(t, model.JobPending, job.Status)
	assert.Equal(t, 1, job.Attempts)

	nextRun, err := time.Parse(time.RFC3339, job.NextRunAt)
	require.NoError(t, err)
	delay := nextRun.Sub(before)
	assert.GreaterOrEqual(t, delay, 4*time.Second)
	assert.Less(t, delay, 8*time.Second)
}

func TestWorkerRecoversInFlightJobsOnStart(t *testing.T) {
	db := setupDB(t)
	q := NewQueue(db, 3)

	_, err := q.Enqueue("always_works", "stranded:1", model.NotificationPayload{})
	require.NoError(t, err)

	// Simulate a run that claimed the job and died before acknowledging.
	job, err := database.ClaimDueJob(db, time.Now())
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, model.JobProcessing, job.Status)

	w := NewWorker(db, DefaultSenders(), 1, 5)
	w.handlers["always_works"] = func(db *sqlx.DB, senders Senders, p model.NotificationPayload) error {
		return nil
	}
	w.Start()
	defer w.Stop()

	require.Eventually(t, func() bool {
		got, err := database.GetJobByKey(db, "stranded:1")
		return err == nil && got != nil && got.Status == model.JobDone
	}, 5*time.Second, 50*time.Millisecond, "stranded job should be recovered and run")
}

func TestWorkerMarksDoneOnSuccess(t *testing.T) {
	db := setupDB(t)
	q := NewQueue(db, 3)

	w := NewWorker(db, DefaultSenders(), 1, 5)
	w.handlers["always_works"] = func(db *sqlx.DB, senders Senders, p model.NotificationPayload) error {
		return nil
	}

	_, err := q.Enqueue("always_works", "ok:1", model.NotificationPayload{})
	require.NoError(t, err)

	job, err := database.ClaimDueJob(db, time.Now())
	require.NoError(t, err)
	require.NotNil(t, job)
	w.process(job)

	job, err = database.GetJobByKey(db, "ok:1")
	require.NoError(t, err)
	assert.Equal(t, model.JobDone, job.Status)
}

func TestWorkerParksUnknownJobType(t *testing.T) {
	db := setupDB(t)
	q := NewQueue(db, 3)
	w := NewWorker(db, DefaultSenders(), 1, 5)

	_, err := q.Enqueue("no_such_type", "weird:1", model.NotificationPayload{})
	require.NoError(t, err)

	job, err := database.ClaimDueJob(db, time.Now())
	require.NoError(t, err)
	require.NotNil(t, job)
	w.process(job)

	job, err = database.GetJobByKey(db, "weird:1")
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, job.Status)

	failed, err := database.ListFailedJobs(db)
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

func TestDeliverRespectsOptIns(t *testing.T) {
	db := setupDB(t)
	_, err := db.Exec(`INSERT INTO users (id, name, email, phone, sms_opt_in, push_opt_in, push_token)
		VALUES ('tenant-1', 'Tom', 'tom@example.com', '+1555', 0, 1, 'tok-1')`)
	require.NoError(t, err)

	emails, smses, pushes := 0, 0, 0
	senders := Senders{
		Email: emailFunc(func(to, subject, body string) error { emails++; return nil }),
		SMS:   smsFunc(func(phone, body string) error { smses++; return nil }),
		Push:  pushFunc(func(token, title, body string) error { pushes++; return nil }),
	}

	user, err := database.GetUser(db, "tenant-1")
	require.NoError(t, err)
	require.NoError(t, deliver(senders, user, "subject", "body"))

	assert.Equal(t, 1, emails, "email always sends")
	assert.Equal(t, 0, smses, "sms requires opt-in")
	assert.Equal(t, 1, pushes, "push opted in")
}

type emailFunc func(to, subject, body string) error

func (f emailFunc) SendEmail(to, subject, body string) error { return f(to, subject, body) }

type smsFunc func(phone, body string) error

func (f smsFunc) SendSMS(phone, body string) error { return f(phone, body) }

type pushFunc func(token, title, body string) error

func (f pushFunc) SendPush(token, title, body string) error { return f(token, title, body) }
