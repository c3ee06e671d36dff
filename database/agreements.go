package database

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/model"
)

const agreementColumns = `id, landlord_id, tenant_id, property_id, status,
	start_date, end_date, duration_months,
	rent_amount, deposit_amount, late_fee_amount, grace_period_days,
	landlord_signed, landlord_signed_at, landlord_sign_addr,
	tenant_signed, tenant_signed_at, tenant_sign_addr,
	is_paid,
	renewal_proposed_by, renewal_new_end_date, renewal_new_rent_amount,
	renewal_notes, renewal_status,
	created_at, updated_at`

func CreateAgreementInTx(tx *sqlx.Tx, a *model.Agreement) error {
	_, err := tx.NamedExec(`
		INSERT INTO agreements (
			id, landlord_id, tenant_id, property_id, status,
			start_date, end_date, duration_months,
			rent_amount, deposit_amount, late_fee_amount, grace_period_days,
			created_at, updated_at
		) VALUES (
			:id, :landlord_id, :tenant_id, :property_id, :status,
			:start_date, :end_date, :duration_months,
			:rent_amount, :deposit_amount, :late_fee_amount, :grace_period_days,
			:created_at, :updated_at
		)`, a)
	if err != nil {
		return fmt.Errorf("failed to insert agreement %s: %w", a.ID, err)
	}
	return nil
}

func GetAgreement(db *sqlx.DB, id string) (*model.Agreement, error) {
	var a model.Agreement
	err := db.Get(&a, `SELECT `+agreementColumns+` FROM agreements WHERE id = ?`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get agreement %s: %w", id, err)
	}
	return &a, nil
}

func GetAgreementInTx(tx *sqlx.Tx, id string) (*model.Agreement, error) {
	var a model.Agreement
	err := tx.Get(&a, `SELECT `+agreementColumns+` FROM agreements WHERE id = ?`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get agreement %s: %w", id, err)
	}
	return &a, nil
}

// ListAgreementsForUser returns every agreement where the user is either
// party, newest first.
func ListAgreementsForUser(db *sqlx.DB, userID string) ([]model.Agreement, error) {
	var out []model.Agreement
	err := db.Select(&out, `
		SELECT `+agreementColumns+` FROM agreements
		WHERE landlord_id = ? OR tenant_id = ?
		ORDER BY created_at DESC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agreements for user %s: %w", userID, err)
	}
	return out, nil
}

func ListActiveAgreements(db *sqlx.DB) ([]model.Agreement, error) {
	var out []model.Agreement
	err := db.Select(&out, `SELECT `+agreementColumns+` FROM agreements WHERE status = ?`,
		model.AgreementActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active agreements: %w", err)
	}
	return out, nil
}

// ListActiveAgreementsEndingBy returns active agreements whose end date is
// on or before the given date.
func ListActiveAgreementsEndingBy(db *sqlx.DB, date string) ([]model.Agreement, error) {
	var out []model.Agreement
	err := db.Select(&out, `
		SELECT `+agreementColumns+` FROM agreements
		WHERE status = ? AND end_date <= ?`, model.AgreementActive, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list agreements ending by %s: %w", date, err)
	}
	return out, nil
}

// MarkPartySignedInTx records one party's signature. The WHERE clause is the
// double-sign guard: it only matches while that party's flag is still unset,
// so a concurrent duplicate submission affects zero rows.
func MarkPartySignedInTx(tx *sqlx.Tx, id, party, signedAt, sourceAddr string) (bool, error) {
	var q string
	switch party {
	case "landlord":
		q = `UPDATE agreements
			SET landlord_signed = 1, landlord_signed_at = ?, landlord_sign_addr = ?, updated_at = ?
			WHERE id = ? AND landlord_signed = 0`
	case "tenant":
		q = `UPDATE agreements
			SET tenant_signed = 1, tenant_signed_at = ?, tenant_sign_addr = ?, updated_at = ?
			WHERE id = ? AND tenant_signed = 0`
	default:
		return false, fmt.Errorf("unknown signing party %q", party)
	}
	res, err := tx.Exec(q, signedAt, sourceAddr, signedAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s signed on agreement %s: %w", party, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateStatusInTx moves an agreement from one specific status to another.
// Conditional on the current status so concurrent transitions cannot race.
func UpdateStatusInTx(tx *sqlx.Tx, id, from, to, updatedAt string) (bool, error) {
	res, err := tx.Exec(`UPDATE agreements SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, updatedAt, id, from)
	if err != nil {
		return false, fmt.Errorf("failed to update agreement %s status %s->%s: %w", id, from, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ActivateAgreementInTx flips a fully signed agreement to active exactly
// once. The is_paid guard makes the update a no-op on replay, and the status
// guard keeps terminated (or not-yet-signed) agreements out of active.
func ActivateAgreementInTx(tx *sqlx.Tx, id, updatedAt string) (bool, error) {
	res, err := tx.Exec(`
		UPDATE agreements SET status = ?, is_paid = 1, updated_at = ?
		WHERE id = ? AND is_paid = 0 AND status = ?`,
		model.AgreementActive, updatedAt, id, model.AgreementSigned)
	if err != nil {
		return false, fmt.Errorf("failed to activate agreement %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ExpireAgreementInTx transitions active -> expired.
func ExpireAgreementInTx(tx *sqlx.Tx, id, updatedAt string) (bool, error) {
	return UpdateStatusInTx(tx, id, model.AgreementActive, model.AgreementExpired, updatedAt)
}

// TerminateAgreementInTx moves any non-terminal agreement to terminated.
func TerminateAgreementInTx(tx *sqlx.Tx, id, updatedAt string) (bool, error) {
	res, err := tx.Exec(`
		UPDATE agreements SET status = ?, updated_at = ?
		WHERE id = ? AND status != ?`,
		model.AgreementTerminated, updatedAt, id, model.AgreementTerminated)
	if err != nil {
		return false, fmt.Errorf("failed to terminate agreement %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetRenewalProposalInTx stores a new pending proposal. The WHERE clause
// refuses to clobber an existing pending proposal.
func SetRenewalProposalInTx(tx *sqlx.Tx, id, proposedBy, newEndDate string, newRentAmount int64, notes, updatedAt string) (bool, error) {
	res, err := tx.Exec(`
		UPDATE agreements
		SET renewal_proposed_by = ?, renewal_new_end_date = ?, renewal_new_rent_amount = ?,
			renewal_notes = ?, renewal_status = ?, updated_at = ?
		WHERE id = ? AND renewal_status != ?`,
		proposedBy, newEndDate, newRentAmount, notes, model.RenewalPending, updatedAt,
		id, model.RenewalPending)
	if err != nil {
		return false, fmt.Errorf("failed to set renewal proposal on agreement %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AcceptRenewalInTx applies a pending proposal: new end date, new rent,
// status forced back to active. Guarded on the agreement still being
// renewable, so a proposal stranded on a terminated agreement stays inert.
func AcceptRenewalInTx(tx *sqlx.Tx, id, updatedAt string) (bool, error) {
	res, err := tx.Exec(`
		UPDATE agreements
		SET end_date = renewal_new_end_date,
			rent_amount = renewal_new_rent_amount,
			status = ?,
			renewal_status = ?,
			updated_at = ?
		WHERE id = ? AND renewal_status = ? AND status IN (?, ?)`,
		model.AgreementActive, model.RenewalAccepted, updatedAt, id, model.RenewalPending,
		model.AgreementActive, model.AgreementExpired)
	if err != nil {
		return false, fmt.Errorf("failed to accept renewal on agreement %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RejectRenewalInTx marks a pending proposal rejected; term and financials
// are untouched.
func RejectRenewalInTx(tx *sqlx.Tx, id, updatedAt string) (bool, error) {
	res, err := tx.Exec(`
		UPDATE agreements SET renewal_status = ?, updated_at = ?
		WHERE id = ? AND renewal_status = ?`,
		model.RenewalRejected, updatedAt, id, model.RenewalPending)
	if err != nil {
		return false, fmt.Errorf("failed to reject renewal on agreement %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
