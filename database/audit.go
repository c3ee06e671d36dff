package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/model"
)

// The audit log is append-only: nothing in this package updates or deletes
// rows, and reads order by the autoincrement id (insertion order).

func AppendAuditInTx(tx *sqlx.Tx, agreementID, action, actor, detail string) error {
	_, err := tx.Exec(`
		INSERT INTO audit_log (agreement_id, action, actor, detail, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		agreementID, action, actor, detail, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to append audit entry %s for agreement %s: %w", action, agreementID, err)
	}
	return nil
}

func AppendAudit(db *sqlx.DB, agreementID, action, actor, detail string) error {
	_, err := db.Exec(`
		INSERT INTO audit_log (agreement_id, action, actor, detail, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		agreementID, action, actor, detail, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to append audit entry %s for agreement %s: %w", action, agreementID, err)
	}
	return nil
}

func ListAudit(db *sqlx.DB, agreementID string) ([]model.AuditEntry, error) {
	var out []model.AuditEntry
	err := db.Select(&out, `
		SELECT id, agreement_id, action, actor, detail, created_at
		FROM audit_log
		WHERE agreement_id = ?
		ORDER BY id`, agreementID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries for agreement %s: %w", agreementID, err)
	}
	return out, nil
}

func CountAudit(db *sqlx.DB, agreementID, action string) (int, error) {
	var n int
	err := db.Get(&n, `SELECT COUNT(*) FROM audit_log WHERE agreement_id = ? AND action = ?`,
		agreementID, action)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries for agreement %s: %w", agreementID, err)
	}
	return n, nil
}
