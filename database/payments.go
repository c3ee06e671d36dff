package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/model"
)

// InsertPaymentInTx records a settled payment. transaction_id carries a
// UNIQUE constraint and the insert is OR IGNORE, so a replayed external
// event inserts nothing and reports false.
func InsertPaymentInTx(tx *sqlx.Tx, p *model.Payment) (bool, error) {
	res, err := tx.NamedExec(`
		INSERT OR IGNORE INTO payments (
			id, agreement_id, transaction_id, amount, payment_type, receipt_number, paid_at
		) VALUES (
			:id, :agreement_id, :transaction_id, :amount, :payment_type, :receipt_number, :paid_at
		)`, p)
	if err != nil {
		return false, fmt.Errorf("failed to insert payment for agreement %s: %w", p.AgreementID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func PaymentExistsByTransactionID(db *sqlx.DB, transactionID string) (bool, error) {
	var n int
	err := db.Get(&n, `SELECT COUNT(*) FROM payments WHERE transaction_id = ?`, transactionID)
	if err != nil {
		return false, fmt.Errorf("failed to check payment for transaction %s: %w", transactionID, err)
	}
	return n > 0, nil
}

func ListPaymentsForAgreement(db *sqlx.DB, agreementID string) ([]model.Payment, error) {
	var out []model.Payment
	err := db.Select(&out, `
		SELECT id, agreement_id, transaction_id, amount, payment_type, receipt_number, paid_at
		FROM payments
		WHERE agreement_id = ?
		ORDER BY paid_at`, agreementID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for agreement %s: %w", agreementID, err)
	}
	return out, nil
}
