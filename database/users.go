package database

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/model"
)

// Users and properties are owned by the surrounding application; this
// engine only reads them, except for the occupancy flip at activation.

func GetUser(db *sqlx.DB, id string) (*model.User, error) {
	var u model.User
	err := db.Get(&u, `
		SELECT id, name, email, phone, sms_opt_in, push_opt_in, push_token
		FROM users WHERE id = ?`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return &u, nil
}

func GetProperty(db *sqlx.DB, id string) (*model.Property, error) {
	var p model.Property
	err := db.Get(&p, `
		SELECT id, landlord_id, title, rent_amount, deposit_amount,
			late_fee_amount, grace_period_days, is_occupied, is_listed
		FROM properties WHERE id = ?`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get property %s: %w", id, err)
	}
	return &p, nil
}

// SetPropertyOccupiedInTx marks a property occupied and removes it from
// listings. Called once, inside the activation transaction.
func SetPropertyOccupiedInTx(tx *sqlx.Tx, id string) error {
	_, err := tx.Exec(`UPDATE properties SET is_occupied = 1, is_listed = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark property %s occupied: %w", id, err)
	}
	return nil
}
