package database

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// NextSequenceInTx advances a named counter and renders the next code,
// e.g. NextSequenceInTx(tx, "RC", "RC", 6) -> "RC000017". Runs inside the
// caller's transaction so the counter cannot skip or repeat.
func NextSequenceInTx(tx *sqlx.Tx, name, prefix string, padding int) (string, error) {
	var lastNo int
	err := tx.Get(&lastNo, "SELECT last_no FROM code_sequences WHERE name = ?", name)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("sequence '%s' not found", name)
		}
		return "", fmt.Errorf("failed to get sequence '%s': %w", name, err)
	}

	newNo := lastNo + 1
	_, err = tx.Exec(`UPDATE code_sequences SET last_no = ? WHERE name = ?`, newNo, name)
	if err != nil {
		return "", fmt.Errorf("failed to update sequence '%s': %w", name, err)
	}

	format := fmt.Sprintf("%s%%0%dd", prefix, padding)
	return fmt.Sprintf(format, newNo), nil
}

// InitializeReceiptSequence re-syncs the RC counter with the highest receipt
// number already issued. Used after restoring a database from backup.
func InitializeReceiptSequence(tx *sqlx.Tx) error {
	var maxReceipt sql.NullString
	err := tx.Get(&maxReceipt,
		"SELECT receipt_number FROM payments WHERE receipt_number LIKE 'RC%' ORDER BY receipt_number DESC LIMIT 1")

	maxNum := 0
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	if maxReceipt.Valid && strings.HasPrefix(maxReceipt.String, "RC") {
		numPart := strings.TrimPrefix(maxReceipt.String, "RC")
		maxNum, _ = strconv.Atoi(numPart)
	}

	log.Printf("INFO: [Sequence] Setting 'RC' last_no to %d", maxNum)

	_, err = tx.Exec(`UPDATE code_sequences SET last_no = ? WHERE name = 'RC'`, maxNum)
	return err
}
