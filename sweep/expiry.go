package sweep

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/database"
	"github.com/jbrpriv/RentifyPro-sub000/model"
	"github.com/jbrpriv/RentifyPro-sub000/schedule"
)

// RunExpiry retires every active agreement whose end date has passed.
// No payment or schedule side effects; one audit entry per agreement.
func RunExpiry(db *sqlx.DB, today time.Time) error {
	yesterday := today.AddDate(0, 0, -1).Format(schedule.DateFormat)
	agreements, err := database.ListActiveAgreementsEndingBy(db, yesterday)
	if err != nil {
		return fmt.Errorf("expiry sweep could not list agreements: %w", err)
	}

	log.Printf("INFO: [Sweep] Expiry sweep found %d lapsed agreements.", len(agreements))
	for i := range agreements {
		a := &agreements[i]
		if err := expireOne(db, a); err != nil {
			log.Printf("WARN: [Sweep] Failed to expire agreement %s: %v", a.ID, err)
		}
	}
	return nil
}

func expireOne(db *sqlx.DB, a *model.Agreement) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	expired, err := database.ExpireAgreementInTx(tx, a.ID, now)
	if err != nil {
		return err
	}
	if !expired {
		// Already expired or otherwise transitioned since the listing.
		return nil
	}
	if err := database.AppendAuditInTx(tx, a.ID, model.AuditAutoExpired, "",
		fmt.Sprintf("Lease term ended %s; agreement auto-expired", a.EndDate)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit expiry: %w", err)
	}
	log.Printf("INFO: [Sweep] Agreement %s expired (term ended %s).", a.ID, a.EndDate)
	return nil
}
