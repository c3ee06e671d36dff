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

// RunReminders enqueues rent-due reminders for entries coming due within
// reminderDays, and lease-expiry warnings for agreements ending within
// warningDays. Idempotency keys scope each notice to its agreement and
// month (or end date), so the morning rerun after a crash sends nothing
// twice.
func RunReminders(db *sqlx.DB, queue *notification.Queue, today time.Time, reminderDays, warningDays int) error {
	agreements, err := database.ListActiveAgreements(db)
	if err != nil {
		return fmt.Errorf("reminder sweep could not list agreements: %w", err)
	}

	reminderCutoff := today.AddDate(0, 0, reminderDays).Format(schedule.DateFormat)
	warningCutoff := today.AddDate(0, 0, warningDays).Format(schedule.DateFormat)
	todayStr := today.Format(schedule.DateFormat)

	log.Printf("INFO: [Sweep] Reminder sweep over %d active agreements.", len(agreements))
	for i := range agreements {
		a := &agreements[i]
		if err := remindAgreement(db, queue, a, todayStr, reminderCutoff); err != nil {
			log.Printf("WARN: [Sweep] Reminder pass failed for agreement %s: %v", a.ID, err)
		}
		if a.EndDate >= todayStr && a.EndDate <= warningCutoff {
			prop, err := database.GetProperty(db, a.PropertyID)
			title := a.PropertyID
			if err == nil && prop != nil {
				title = prop.Title
			}
			payload := model.NotificationPayload{
				AgreementID:   a.ID,
				PropertyTitle: title,
			}
			key := fmt.Sprintf("expiry_warning:%s:%s", a.ID, a.EndDate)
			if _, err := queue.Enqueue(model.NotifyExpiryWarning, key, payload); err != nil {
				log.Printf("WARN: [Sweep] Failed to enqueue expiry warning for %s: %v", a.ID, err)
			}
		}
	}
	return nil
}

func remindAgreement(db *sqlx.DB, queue *notification.Queue, a *model.Agreement, todayStr, cutoff string) error {
	entries, err := database.GetSchedule(db, a.ID)
	if err != nil {
		return err
	}
	for i := range entries {
		e := &entries[i]
		if e.Status != model.EntryPending {
			continue
		}
		if e.DueDate < todayStr || e.DueDate > cutoff {
			continue
		}
		payload := model.NotificationPayload{
			AgreementID: a.ID,
			RecipientID: a.TenantID,
			Amount:      e.Amount,
			DueDate:     e.DueDate,
			Month:       e.DueDate[:7],
		}
		key := fmt.Sprintf("rent_due:%s:%s", a.ID, e.DueDate[:7])
		if _, err := queue.Enqueue(model.NotifyRentDueReminder, key, payload); err != nil {
			log.Printf("WARN: [Sweep] Failed to enqueue rent reminder for %s: %v", a.ID, err)
		}
	}
	return nil
}
