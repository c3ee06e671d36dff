package sweep

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbrpriv/RentifyPro-sub000/database"
	"github.com/jbrpriv/RentifyPro-sub000/loader"
	"github.com/jbrpriv/RentifyPro-sub000/model"
	"github.com/jbrpriv/RentifyPro-sub000/notification"
	"github.com/jbrpriv/RentifyPro-sub000/schedule"
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

// seedActiveAgreement creates an active 12-month lease starting 2026-03-01
// with rent 50000, late fee 2000 and a 5-day grace period, schedule
// already generated.
func seedActiveAgreement(t *testing.T, db *sqlx.DB) string {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, name, email) VALUES
		('tenant-1', 'Tom Tenant', 'tom@example.com'),
		('landlord-1', 'Lena Landlord', 'lena@example.com')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO properties (id, landlord_id, title) VALUES ('prop-1', 'landlord-1', '2BR City Flat')`)
	require.NoError(t, err)

	const id = "agr-sweep-1"
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = db.Exec(`INSERT INTO agreements (
			id, landlord_id, tenant_id, property_id, status,
			start_date, end_date, duration_months,
			rent_amount, deposit_amount, late_fee_amount, grace_period_days,
			is_paid, created_at, updated_at
		) VALUES (?, 'landlord-1', 'tenant-1', 'prop-1', 'active',
			'2026-03-01', '2027-03-01', 12, 50000, 100000, 2000, 5, 1, ?, ?)`,
		id, now, now)
	require.NoError(t, err)

	entries, err := schedule.Generate(id, "2026-03-01", 12, 50000,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, database.InsertScheduleEntriesInTx(tx, entries))
	require.NoError(t, tx.Commit())
	return id
}

func entryBySeq(t *testing.T, db *sqlx.DB, agreementID string, seq int) model.RentScheduleEntry {
	t.Helper()
	entries, err := database.GetSchedule(db, agreementID)
	require.NoError(t, err)
	require.Greater(t, len(entries), seq)
	return entries[seq]
}

func TestLateFeeLifecycle(t *testing.T) {
	db := setupDB(t)
	id := seedActiveAgreement(t, db)
	queue := notification.NewQueue(db, 3)

	// Entry 1 is due 2026-04-01. One day past due: overdue, no fee yet.
	oneDayLate := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, RunLateFees(db, queue, oneDayLate))

	e := entryBySeq(t, db, id, 1)
	assert.Equal(t, model.EntryOverdue, e.Status)
	assert.False(t, e.LateFeeApplied)
	assert.Equal(t, int64(50000), e.Amount)

	job, err := database.GetJobByKey(db, "overdue:"+id+":2026-04")
	require.NoError(t, err)
	require.NotNil(t, job)

	// Six days past due exceeds the 5-day grace period: fee folds in once.
	sixDaysLate := time.Date(2026, 4, 7, 9, 0, 0, 0, time.UTC)
	require.NoError(t, RunLateFees(db, queue, sixDaysLate))

	e = entryBySeq(t, db, id, 1)
	assert.Equal(t, model.EntryLateFeeApplied, e.Status)
	assert.True(t, e.LateFeeApplied)
	assert.Equal(t, int64(2000), e.LateFeeAmount)
	assert.Equal(t, int64(52000), e.Amount)

	n, err := database.CountAudit(db, id, model.AuditLateFee)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Paid entry 0 is untouched throughout.
	e0 := entryBySeq(t, db, id, 0)
	assert.Equal(t, model.EntryPaid, e0.Status)
}

func TestLateFeeSweepIsIdempotent(t *testing.T) {
	db := setupDB(t)
	id := seedActiveAgreement(t, db)
	queue := notification.NewQueue(db, 3)

	day := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, RunLateFees(db, queue, day))
	first := entryBySeq(t, db, id, 1)

	// Same day, run again: nothing changes, nothing new is enqueued.
	require.NoError(t, RunLateFees(db, queue, day))
	second := entryBySeq(t, db, id, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(52000), second.Amount)

	n, err := database.CountAudit(db, id, model.AuditLateFee)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var jobs int
	require.NoError(t, db.Get(&jobs, `SELECT COUNT(*) FROM notification_jobs WHERE idempotency_key LIKE 'overdue:%'`))
	assert.Equal(t, 1, jobs)
}

func TestLateFeeSkipsZeroFeeAgreements(t *testing.T) {
	db := setupDB(t)
	id := seedActiveAgreement(t, db)
	_, err := db.Exec(`UPDATE agreements SET late_fee_amount = 0 WHERE id = ?`, id)
	require.NoError(t, err)

	day := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, RunLateFees(db, nil, day))

	// Entry stays pending: the whole agreement is skipped.
	e := entryBySeq(t, db, id, 1)
	assert.Equal(t, model.EntryPending, e.Status)
}

func TestEntryStatusNeverRegresses(t *testing.T) {
	db := setupDB(t)
	id := seedActiveAgreement(t, db)

	// Entry paid before the sweep runs late.
	e := entryBySeq(t, db, id, 1)
	_, err := database.MarkEntryPaid(db, e.ID, "2026-04-03", 50000)
	require.NoError(t, err)

	day := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, RunLateFees(db, nil, day))

	e = entryBySeq(t, db, id, 1)
	assert.Equal(t, model.EntryPaid, e.Status)
	assert.False(t, e.LateFeeApplied)
	assert.Equal(t, int64(50000), e.Amount)
}
