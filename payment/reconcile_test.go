package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbrpriv/RentifyPro-sub000/agreement"
	"github.com/jbrpriv/RentifyPro-sub000/database"
	"github.com/jbrpriv/RentifyPro-sub000/loader"
	"github.com/jbrpriv/RentifyPro-sub000/model"
	"github.com/jbrpriv/RentifyPro-sub000/notification"
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

// signedAgreement walks a fresh agreement to the signed state.
func signedAgreement(t *testing.T, db *sqlx.DB) *model.Agreement {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, name, email) VALUES
		('landlord-1', 'Lena Landlord', 'lena@example.com'),
		('tenant-1', 'Tom Tenant', 'tom@example.com')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO properties
		(id, landlord_id, title, rent_amount, deposit_amount, late_fee_amount, grace_period_days, is_listed)
		VALUES ('prop-1', 'landlord-1', '2BR City Flat', 50000, 100000, 2000, 5, 1)`)
	require.NoError(t, err)

	a, err := agreement.Create(db, nil, agreement.CreateInput{
		LandlordID:     "landlord-1",
		TenantID:       "tenant-1",
		PropertyID:     "prop-1",
		StartDate:      "2026-03-01",
		DurationMonths: 12,
	})
	require.NoError(t, err)
	_, err = agreement.Sign(db, nil, a.ID, "landlord-1", "10.0.0.1")
	require.NoError(t, err)
	a, err = agreement.Sign(db, nil, a.ID, "tenant-1", "10.0.0.2")
	require.NoError(t, err)
	require.Equal(t, model.AgreementSigned, a.Status)
	return a
}

func checkoutEvent(agreementID, transactionID string) *Event {
	return &Event{
		Type:          EventCheckoutCompleted,
		TransactionID: transactionID,
		Metadata: map[string]string{
			"agreementId": agreementID,
			"amount":      "150000",
		},
	}
}

func TestReconcileActivatesOnce(t *testing.T) {
	db := setupDB(t)
	a := signedAgreement(t, db)
	queue := notification.NewQueue(db, 3)

	result, err := Reconcile(db, queue, checkoutEvent(a.ID, "txn_001"))
	require.NoError(t, err)
	assert.True(t, result.Activated)
	assert.Equal(t, "RC000001", result.ReceiptNumber)

	got, err := database.GetAgreement(db, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AgreementActive, got.Status)
	assert.True(t, got.IsPaid)

	entries, err := database.GetSchedule(db, a.ID)
	require.NoError(t, err)
	require.Len(t, entries, got.DurationMonths)
	assert.Equal(t, model.EntryPaid, entries[0].Status)
	assert.NotEmpty(t, entries[0].PaidDate)

	payments, err := database.ListPaymentsForAgreement(db, a.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, model.PaymentInitial, payments[0].PaymentType)
	assert.Equal(t, "txn_001", payments[0].TransactionID)

	prop, err := database.GetProperty(db, a.PropertyID)
	require.NoError(t, err)
	assert.True(t, prop.IsOccupied)
	assert.False(t, prop.IsListed)

	n, err := database.CountAudit(db, a.ID, model.AuditActivated)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, err := database.GetJobByKey(db, "payment_confirmed:txn_001")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, model.NotifyPaymentConfirmed, job.JobType)
}

func TestReconcileReplayIsSingleActivation(t *testing.T) {
	db := setupDB(t)
	a := signedAgreement(t, db)
	queue := notification.NewQueue(db, 3)

	first, err := Reconcile(db, queue, checkoutEvent(a.ID, "txn_001"))
	require.NoError(t, err)
	require.True(t, first.Activated)

	// Same external event delivered again.
	second, err := Reconcile(db, queue, checkoutEvent(a.ID, "txn_001"))
	require.NoError(t, err)
	assert.False(t, second.Activated)

	payments, err := database.ListPaymentsForAgreement(db, a.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	entries, err := database.GetSchedule(db, a.ID)
	require.NoError(t, err)
	assert.Len(t, entries, a.DurationMonths)

	n, err := database.CountAudit(db, a.ID, model.AuditActivated)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReconcileTerminatedAgreementNotActivated(t *testing.T) {
	db := setupDB(t)
	a := signedAgreement(t, db)
	require.NoError(t, agreement.Terminate(db, a.ID, "landlord-1", "tenant withdrew before paying"))

	// A valid checkout event arriving after termination is acknowledged
	// but must not resurrect the agreement.
	result, err := Reconcile(db, nil, checkoutEvent(a.ID, "txn_late"))
	require.NoError(t, err)
	assert.False(t, result.Activated)
	assert.Equal(t, "agreement not awaiting payment", result.Reason)

	got, err := database.GetAgreement(db, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AgreementTerminated, got.Status)
	assert.False(t, got.IsPaid)

	payments, err := database.ListPaymentsForAgreement(db, a.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	entries, err := database.GetSchedule(db, a.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The activation update itself is guarded on the signed status, so the
	// upfront check cannot be raced around.
	tx, err := db.Beginx()
	require.NoError(t, err)
	defer tx.Rollback()
	ok, err := database.ActivateAgreementInTx(tx, a.ID, time.Now().UTC().Format(time.RFC3339))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReconcileInvalidAmountAcknowledged(t *testing.T) {
	db := setupDB(t)
	a := signedAgreement(t, db)

	event := checkoutEvent(a.ID, "txn_bad")
	event.Metadata["amount"] = "fifty thousand"

	result, err := Reconcile(db, nil, event)
	require.NoError(t, err)
	assert.False(t, result.Activated)
	assert.Equal(t, "invalid amount in metadata", result.Reason)

	got, err := database.GetAgreement(db, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AgreementSigned, got.Status)
	assert.False(t, got.IsPaid)
}

func TestReconcileMissingAgreementAcknowledged(t *testing.T) {
	db := setupDB(t)

	result, err := Reconcile(db, nil, checkoutEvent("no-such-agreement", "txn_404"))
	require.NoError(t, err)
	assert.False(t, result.Activated)
	assert.Equal(t, "agreement not found", result.Reason)
}

// signHeader mirrors the processor's signing scheme for test use.
func signHeader(secret string, body []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(body)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"type":"checkout.completed"}`)
	now := time.Now()

	require.NoError(t, VerifySignature(secret, body, signHeader(secret, body, now), now))

	// Tampered body.
	err := VerifySignature(secret, []byte(`{"type":"tampered"}`), signHeader(secret, body, now), now)
	assert.Error(t, err)

	// Wrong secret.
	err = VerifySignature("whsec_other", body, signHeader(secret, body, now), now)
	assert.Error(t, err)

	// Stale timestamp.
	old := now.Add(-10 * time.Minute)
	err = VerifySignature(secret, body, signHeader(secret, body, old), now)
	assert.Error(t, err)

	// Garbage header.
	assert.Error(t, VerifySignature(secret, body, "", now))
	assert.Error(t, VerifySignature(secret, body, "t=abc,v1=def", now))
}

func TestWebhookRejectsBadSignatureWithoutMutation(t *testing.T) {
	db := setupDB(t)
	a := signedAgreement(t, db)

	event := checkoutEvent(a.ID, "txn_001")
	raw, err := json.Marshal(event)
	require.NoError(t, err)

	err = VerifySignature("whsec_test", raw, "t=123,v1=deadbeef", time.Now())
	require.Error(t, err)

	got, err := database.GetAgreement(db, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AgreementSigned, got.Status)
	assert.False(t, got.IsPaid)
}
