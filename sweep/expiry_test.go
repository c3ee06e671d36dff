package sweep

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbrpriv/RentifyPro-sub000/database"
	"github.com/jbrpriv/RentifyPro-sub000/model"
	"github.com/jbrpriv/RentifyPro-sub000/notification"
)

func TestExpirySweep(t *testing.T) {
	db := setupDB(t)
	id := seedActiveAgreement(t, db)

	// Term ends 2027-03-01; the day after, the sweep retires it.
	dayAfterEnd := time.Date(2027, 3, 2, 0, 5, 0, 0, time.UTC)
	require.NoError(t, RunExpiry(db, dayAfterEnd))

	got, err := database.GetAgreement(db, id)
	require.NoError(t, err)
	assert.Equal(t, model.AgreementExpired, got.Status)

	n, err := database.CountAudit(db, id, model.AuditAutoExpired)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Re-running appends nothing.
	require.NoError(t, RunExpiry(db, dayAfterEnd))
	n, err = database.CountAudit(db, id, model.AuditAutoExpired)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExpirySweepLeavesCurrentLeasesAlone(t *testing.T) {
	db := setupDB(t)
	id := seedActiveAgreement(t, db)

	// On the end date itself the lease is still current.
	endDay := time.Date(2027, 3, 1, 0, 5, 0, 0, time.UTC)
	require.NoError(t, RunExpiry(db, endDay))

	got, err := database.GetAgreement(db, id)
	require.NoError(t, err)
	assert.Equal(t, model.AgreementActive, got.Status)
}

func TestReminderSweep(t *testing.T) {
	db := setupDB(t)
	id := seedActiveAgreement(t, db)
	queue := notification.NewQueue(db, 3)

	// Three days before entry 1 falls due.
	day := time.Date(2026, 3, 29, 8, 0, 0, 0, time.UTC)
	require.NoError(t, RunReminders(db, queue, day, 3, 30))

	job, err := database.GetJobByKey(db, "rent_due:"+id+":2026-04")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, model.NotifyRentDueReminder, job.JobType)

	// Rerun the same morning: still one job.
	require.NoError(t, RunReminders(db, queue, day, 3, 30))
	var jobs int
	require.NoError(t, db.Get(&jobs, `SELECT COUNT(*) FROM notification_jobs WHERE idempotency_key LIKE 'rent_due:%'`))
	assert.Equal(t, 1, jobs)
}

func TestExpiryWarningWindow(t *testing.T) {
	db := setupDB(t)
	id := seedActiveAgreement(t, db)
	queue := notification.NewQueue(db, 3)

	// 30-day warning window reaches the 2027-03-01 end date.
	day := time.Date(2027, 2, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, RunReminders(db, queue, day, 3, 30))

	job, err := database.GetJobByKey(db, "expiry_warning:"+id+":2027-03-01")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, model.NotifyExpiryWarning, job.JobType)
}
