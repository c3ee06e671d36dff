package sweep

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/database"
	"github.com/jbrpriv/RentifyPro-sub000/model"
	"github.com/jbrpriv/RentifyPro-sub000/notification"
	"github.com/jbrpriv/RentifyPro-sub000/schedule"
)

// RunLateFees advances schedule entries past their due date and assesses
// late fees once the grace period is exceeded. Every mutation is a
// conditional update keyed on the entry's current status, so running the
// sweep twice in a day (or two sweeps overlapping) changes nothing the
// second time.
func RunLateFees(db *sqlx.DB, queue *notification.Queue, today time.Time) error {
	agreements, err := database.ListActiveAgreements(db)
	if err != nil {
		return fmt.Errorf("late-fee sweep could not list agreements: %w", err)
	}

	log.Printf("INFO: [Sweep] Late-fee sweep over %d active agreements.", len(agreements))
	for i := range agreements {
		a := &agreements[i]
		if a.LateFeeAmount <= 0 {
			continue
		}
		if err := assessAgreement(db, queue, a, today); err != nil {
			// One bad agreement must not halt the sweep for the rest.
			log.Printf("WARN: [Sweep] Late-fee assessment failed for agreement %s: %v", a.ID, err)
		}
	}
	return nil
}

func assessAgreement(db *sqlx.DB, queue *notification.Queue, a *model.Agreement, today time.Time) error {
	entries, err := database.GetSchedule(db, a.ID)
	if err != nil {
		return err
	}

	for i := range entries {
		e := &entries[i]
		switch e.Status {
		case model.EntryPaid, model.EntryLateFeeApplied:
			continue
		}

		pastDue, err := schedule.DaysPastDue(e.DueDate, today)
		if err != nil {
			return err
		}
		if pastDue <= 0 {
			continue
		}

		if e.Status == model.EntryPending {
			flipped, err := database.MarkEntryOverdue(db, e.ID)
			if err != nil {
				return err
			}
			if flipped {
				e.Status = model.EntryOverdue
				if queue != nil {
					payload := model.NotificationPayload{
						AgreementID: a.ID,
						RecipientID: a.TenantID,
						Amount:      e.Amount,
						DueDate:     e.DueDate,
						Month:       e.DueDate[:7],
					}
					// Keyed per agreement and month: reruns in the same
					// month enqueue nothing new.
					key := fmt.Sprintf("overdue:%s:%s", a.ID, e.DueDate[:7])
					if _, err := queue.Enqueue(model.NotifyRentOverdue, key, payload); err != nil {
						log.Printf("WARN: [Sweep] Failed to enqueue overdue notice for %s: %v", a.ID, err)
					}
				}
			}
		}

		if e.Status == model.EntryOverdue && pastDue > a.GracePeriodDays && !e.LateFeeApplied {
			applied, err := database.ApplyLateFee(db, e.ID, a.LateFeeAmount)
			if err != nil {
				return err
			}
			if !applied {
				continue
			}
			if err := database.AppendAudit(db, a.ID, model.AuditLateFee, "",
				fmt.Sprintf("Late fee %d applied to rent due %s (%d days past due)",
					a.LateFeeAmount, e.DueDate, pastDue)); err != nil {
				return err
			}
			if queue != nil {
				payload := model.NotificationPayload{
					AgreementID: a.ID,
					RecipientID: a.TenantID,
					Amount:      e.Amount + a.LateFeeAmount,
					DueDate:     e.DueDate,
				}
				key := fmt.Sprintf("late_fee:%s:%s", a.ID, e.DueDate[:7])
				if _, err := queue.Enqueue(model.NotifyLateFeeApplied, key, payload); err != nil {
					log.Printf("WARN: [Sweep] Failed to enqueue late-fee notice for %s: %v", a.ID, err)
				}
			}
		}
	}
	return nil
}
