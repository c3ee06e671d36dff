package notification

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/database"
	"github.com/jbrpriv/RentifyPro-sub000/model"
)

func defaultHandlers() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		model.NotifyRentDueReminder:     handleRentDueReminder,
		model.NotifyRentOverdue:         handleRentOverdue,
		model.NotifyLateFeeApplied:      handleLateFeeApplied,
		model.NotifyExpiryWarning:       handleExpiryWarning,
		model.NotifyAgreementSigned:     handleAgreementSigned,
		model.NotifyPaymentConfirmed:    handlePaymentConfirmed,
		model.NotifyApplicationAccepted: handleApplicationAccepted,
		model.NotifyApplicationRejected: handleApplicationRejected,
		model.NotifyMaintenanceUpdate:   handleMaintenanceUpdate,
	}
}

// deliver sends on every channel the recipient accepts: email always,
// SMS and push only when opted in. Safe to call twice for the same job.
func deliver(senders Senders, user *model.User, subject, body string) error {
	if user.Email != "" {
		if err := senders.Email.SendEmail(user.Email, subject, body); err != nil {
			return fmt.Errorf("email send to %s failed: %w", user.Email, err)
		}
	}
	if user.SmsOptIn && user.Phone != "" {
		if err := senders.SMS.SendSMS(user.Phone, body); err != nil {
			return fmt.Errorf("sms send to %s failed: %w", user.Phone, err)
		}
	}
	if user.PushOptIn && user.PushToken != "" {
		if err := senders.Push.SendPush(user.PushToken, subject, body); err != nil {
			return fmt.Errorf("push send failed: %w", err)
		}
	}
	return nil
}

// fetchRecipient re-reads the user at execution time. A missing recipient
// means the account was removed after enqueue; the job is acknowledged as a
// no-op rather than retried forever.
func fetchRecipient(db *sqlx.DB, userID string) (*model.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("payload has no recipient")
	}
	user, err := database.GetUser(db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		log.Printf("WARN: [Worker] Recipient %s no longer exists, dropping notification.", userID)
		return nil, nil
	}
	return user, nil
}

// fetchLiveAgreement re-reads the agreement so the handler never acts on a
// stale payload. A nil result with nil error means the notification is no
// longer relevant and the job should complete as a no-op.
func fetchLiveAgreement(db *sqlx.DB, agreementID string, wantStatuses ...string) (*model.Agreement, error) {
	a, err := database.GetAgreement(db, agreementID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		log.Printf("WARN: [Worker] Agreement %s no longer exists, dropping notification.", agreementID)
		return nil, nil
	}
	if len(wantStatuses) == 0 {
		return a, nil
	}
	for _, s := range wantStatuses {
		if a.Status == s {
			return a, nil
		}
	}
	log.Printf("INFO: [Worker] Agreement %s is now %s, dropping stale notification.", agreementID, a.Status)
	return nil, nil
}

func handleRentDueReminder(db *sqlx.DB, senders Senders, p model.NotificationPayload) error {
	agr, err := fetchLiveAgreement(db, p.AgreementID, model.AgreementActive)
	if err != nil || agr == nil {
		return err
	}
	user, err := fetchRecipient(db, agr.TenantID)
	if err != nil || user == nil {
		return err
	}
	subject := "Rent due soon"
	body := fmt.Sprintf("Hi %s, your rent payment of %s is due on %s.",
		user.Name, formatAmount(agr.RentAmount), p.DueDate)
	return deliver(senders, user, subject, body)
}

func handleRentOverdue(db *sqlx.DB, senders Senders, p model.NotificationPayload) error {
	agr, err := fetchLiveAgreement(db, p.AgreementID, model.AgreementActive)
	if err != nil || agr == nil {
		return err
	}
	user, err := fetchRecipient(db, agr.TenantID)
	if err != nil || user == nil {
		return err
	}
	subject := "Rent payment overdue"
	body := fmt.Sprintf("Hi %s, your rent payment of %s due on %s is overdue. "+
		"A late fee of %s applies after a %d-day grace period.",
		user.Name, formatAmount(p.Amount), p.DueDate,
		formatAmount(agr.LateFeeAmount), agr.GracePeriodDays)
	return deliver(senders, user, subject, body)
}

func handleLateFeeApplied(db *sqlx.DB, senders Senders, p model.NotificationPayload) error {
	agr, err := fetchLiveAgreement(db, p.AgreementID, model.AgreementActive)
	if err != nil || agr == nil {
		return err
	}
	user, err := fetchRecipient(db, agr.TenantID)
	if err != nil || user == nil {
		return err
	}
	subject := "Late fee applied"
	body := fmt.Sprintf("Hi %s, a late fee of %s was added to your rent due %s. The amount now owed is %s.",
		user.Name, formatAmount(agr.LateFeeAmount), p.DueDate, formatAmount(p.Amount))
	return deliver(senders, user, subject, body)
}

func handleExpiryWarning(db *sqlx.DB, senders Senders, p model.NotificationPayload) error {
	agr, err := fetchLiveAgreement(db, p.AgreementID, model.AgreementActive)
	if err != nil || agr == nil {
		return err
	}
	subject := "Lease ending soon"
	body := fmt.Sprintf("The lease for %s ends on %s.", p.PropertyTitle, agr.EndDate)
	for _, id := range []string{agr.TenantID, agr.LandlordID} {
		user, err := fetchRecipient(db, id)
		if err != nil {
			return err
		}
		if user == nil {
			continue
		}
		if err := deliver(senders, user, subject, body); err != nil {
			return err
		}
	}
	return nil
}

func handleAgreementSigned(db *sqlx.DB, senders Senders, p model.NotificationPayload) error {
	agr, err := fetchLiveAgreement(db, p.AgreementID)
	if err != nil || agr == nil {
		return err
	}
	user, err := fetchRecipient(db, p.RecipientID)
	if err != nil || user == nil {
		return err
	}
	subject := "Lease agreement fully signed"
	body := fmt.Sprintf("Hi %s, the lease agreement for %s has been signed by both parties. "+
		"It becomes active once the initial payment is confirmed.",
		user.Name, p.PropertyTitle)
	return deliver(senders, user, subject, body)
}

func handlePaymentConfirmed(db *sqlx.DB, senders Senders, p model.NotificationPayload) error {
	agr, err := fetchLiveAgreement(db, p.AgreementID, model.AgreementActive)
	if err != nil || agr == nil {
		return err
	}
	user, err := fetchRecipient(db, agr.TenantID)
	if err != nil || user == nil {
		return err
	}
	subject := "Payment confirmed - lease active"
	body := fmt.Sprintf("Hi %s, we received your payment of %s (%s). Your lease is now active through %s.",
		user.Name, formatAmount(p.Amount), p.Detail, agr.EndDate)
	return deliver(senders, user, subject, body)
}

func handleApplicationAccepted(db *sqlx.DB, senders Senders, p model.NotificationPayload) error {
	user, err := fetchRecipient(db, p.RecipientID)
	if err != nil || user == nil {
		return err
	}
	subject := "Application accepted"
	body := fmt.Sprintf("Hi %s, your application for %s was accepted. A draft lease agreement is ready for signing.",
		user.Name, p.PropertyTitle)
	return deliver(senders, user, subject, body)
}

func handleApplicationRejected(db *sqlx.DB, senders Senders, p model.NotificationPayload) error {
	user, err := fetchRecipient(db, p.RecipientID)
	if err != nil || user == nil {
		return err
	}
	subject := "Application update"
	body := fmt.Sprintf("Hi %s, your application for %s was not accepted this time.",
		user.Name, p.PropertyTitle)
	return deliver(senders, user, subject, body)
}

func handleMaintenanceUpdate(db *sqlx.DB, senders Senders, p model.NotificationPayload) error {
	user, err := fetchRecipient(db, p.RecipientID)
	if err != nil || user == nil {
		return err
	}
	subject := "Maintenance update"
	body := fmt.Sprintf("Hi %s, %s", user.Name, p.Detail)
	return deliver(senders, user, subject, body)
}
