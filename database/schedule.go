package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/model"
)

func InsertScheduleEntriesInTx(tx *sqlx.Tx, entries []model.RentScheduleEntry) error {
	for i := range entries {
		_, err := tx.NamedExec(`
			INSERT INTO rent_schedule_entries (
				agreement_id, seq, due_date, amount, status,
				paid_date, paid_amount, late_fee_applied, late_fee_amount
			) VALUES (
				:agreement_id, :seq, :due_date, :amount, :status,
				:paid_date, :paid_amount, :late_fee_applied, :late_fee_amount
			)`, &entries[i])
		if err != nil {
			return fmt.Errorf("failed to insert schedule entry %d for agreement %s: %w",
				entries[i].Seq, entries[i].AgreementID, err)
		}
	}
	return nil
}

func GetSchedule(db *sqlx.DB, agreementID string) ([]model.RentScheduleEntry, error) {
	var out []model.RentScheduleEntry
	err := db.Select(&out, `
		SELECT id, agreement_id, seq, due_date, amount, status,
			paid_date, paid_amount, late_fee_applied, late_fee_amount
		FROM rent_schedule_entries
		WHERE agreement_id = ?
		ORDER BY seq`, agreementID)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule for agreement %s: %w", agreementID, err)
	}
	return out, nil
}

func CountScheduleEntriesInTx(tx *sqlx.Tx, agreementID string) (int, error) {
	var n int
	err := tx.Get(&n, `SELECT COUNT(*) FROM rent_schedule_entries WHERE agreement_id = ?`, agreementID)
	if err != nil {
		return 0, fmt.Errorf("failed to count schedule entries for agreement %s: %w", agreementID, err)
	}
	return n, nil
}

// MarkEntryOverdue flips a pending entry to overdue. Conditional on the
// current status, so entries that were paid in the meantime (or already
// swept) are left alone.
func MarkEntryOverdue(db *sqlx.DB, entryID int64) (bool, error) {
	res, err := db.Exec(`
		UPDATE rent_schedule_entries SET status = ?
		WHERE id = ? AND status = ?`,
		model.EntryOverdue, entryID, model.EntryPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark entry %d overdue: %w", entryID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ApplyLateFee folds the fee into the entry amount exactly once. The whole
// guard (status and the one-shot flag) lives in the WHERE clause, so two
// concurrent sweeps cannot both charge the fee.
func ApplyLateFee(db *sqlx.DB, entryID int64, fee int64) (bool, error) {
	res, err := db.Exec(`
		UPDATE rent_schedule_entries
		SET status = ?, late_fee_applied = 1, late_fee_amount = ?, amount = amount + ?
		WHERE id = ? AND status = ? AND late_fee_applied = 0`,
		model.EntryLateFeeApplied, fee, fee, entryID, model.EntryOverdue)
	if err != nil {
		return false, fmt.Errorf("failed to apply late fee to entry %d: %w", entryID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkEntryPaid settles an entry, whatever pre-paid state it was in.
func MarkEntryPaid(db *sqlx.DB, entryID int64, paidDate string, paidAmount int64) (bool, error) {
	res, err := db.Exec(`
		UPDATE rent_schedule_entries SET status = ?, paid_date = ?, paid_amount = ?
		WHERE id = ? AND status != ?`,
		model.EntryPaid, paidDate, paidAmount, entryID, model.EntryPaid)
	if err != nil {
		return false, fmt.Errorf("failed to mark entry %d paid: %w", entryID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func GetScheduleSummary(db *sqlx.DB, agreementID string) (*model.ScheduleSummary, error) {
	var s model.ScheduleSummary
	err := db.Get(&s, `
		SELECT
			COUNT(*) AS totalentries,
			COALESCE(SUM(CASE WHEN status = 'paid' THEN 1 ELSE 0 END), 0) AS paidcount,
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) AS pendingcount,
			COALESCE(SUM(CASE WHEN status = 'overdue' THEN 1 ELSE 0 END), 0) AS overduecount,
			COALESCE(SUM(CASE WHEN status = 'late_fee_applied' THEN 1 ELSE 0 END), 0) AS latefeecount,
			COALESCE(SUM(late_fee_amount), 0) AS latefeetotal,
			COALESCE(SUM(CASE WHEN status = 'paid' THEN paid_amount ELSE 0 END), 0) AS paidtotal,
			COALESCE(SUM(CASE WHEN status != 'paid' THEN amount ELSE 0 END), 0) AS outstandingdue
		FROM rent_schedule_entries
		WHERE agreement_id = ?`, agreementID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize schedule for agreement %s: %w", agreementID, err)
	}
	return &s, nil
}
