package payment

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/database"
	"github.com/jbrpriv/RentifyPro-sub000/model"
	"github.com/jbrpriv/RentifyPro-sub000/notification"
	"github.com/jbrpriv/RentifyPro-sub000/schedule"
)

// Result reports what a webhook delivery did. Duplicate and missing-target
// deliveries are acknowledged with Activated=false and a reason.
type Result struct {
	Activated     bool   `json:"activated"`
	Reason        string `json:"reason,omitempty"`
	ReceiptNumber string `json:"receiptNumber,omitempty"`
}

// Reconcile turns a verified checkout confirmation into lease activation.
// The whole state change (payment record, rent schedule, status flip,
// property occupancy) is one transaction, so a crash mid-sequence cannot
// leave an active agreement without a schedule.
//
// Idempotence is keyed on the external transaction id: the payment insert
// is unique on it, so a replayed event inserts nothing and activates
// nothing. is_paid is kept as a cheaper first check.
func Reconcile(db *sqlx.DB, queue *notification.Queue, event *Event) (*Result, error) {
	agreementID := event.Metadata["agreementId"]
	if agreementID == "" {
		log.Printf("WARN: [Payment] Event %s carries no agreement id, acknowledging.", event.TransactionID)
		return &Result{Reason: "no agreement id in metadata"}, nil
	}
	if event.TransactionID == "" {
		return nil, fmt.Errorf("event has no transaction id")
	}

	// A malformed amount will never parse on redelivery either, so
	// acknowledge it instead of making the processor retry forever.
	amount, err := strconv.ParseInt(event.Metadata["amount"], 10, 64)
	if err != nil {
		log.Printf("WARN: [Payment] Event %s carries invalid amount %q, acknowledging.",
			event.TransactionID, event.Metadata["amount"])
		return &Result{Reason: "invalid amount in metadata"}, nil
	}

	agr, err := database.GetAgreement(db, agreementID)
	if err != nil {
		return nil, err
	}
	if agr == nil {
		log.Printf("WARN: [Payment] Agreement %s not found for transaction %s, acknowledging.",
			agreementID, event.TransactionID)
		return &Result{Reason: "agreement not found"}, nil
	}
	if agr.IsPaid {
		log.Printf("WARN: [Payment] Agreement %s already paid, acknowledging duplicate transaction %s.",
			agreementID, event.TransactionID)
		return &Result{Reason: "agreement already paid"}, nil
	}
	if agr.Status != model.AgreementSigned {
		log.Printf("WARN: [Payment] Agreement %s is %s, not awaiting payment; acknowledging transaction %s.",
			agreementID, agr.Status, event.TransactionID)
		return &Result{Reason: "agreement not awaiting payment"}, nil
	}

	now := time.Now().UTC()

	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	receiptNumber, err := database.NextSequenceInTx(tx, "RC", "RC", 6)
	if err != nil {
		return nil, err
	}

	inserted, err := database.InsertPaymentInTx(tx, &model.Payment{
		ID:            uuid.NewString(),
		AgreementID:   agr.ID,
		TransactionID: event.TransactionID,
		Amount:        amount,
		PaymentType:   model.PaymentInitial,
		ReceiptNumber: receiptNumber,
		PaidAt:        now.Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		log.Printf("WARN: [Payment] Transaction %s already recorded, acknowledging replay.", event.TransactionID)
		return &Result{Reason: "transaction already processed"}, nil
	}

	entries, err := schedule.Generate(agr.ID, agr.StartDate, agr.DurationMonths, agr.RentAmount, now)
	if err != nil {
		return nil, err
	}
	if err := database.InsertScheduleEntriesInTx(tx, entries); err != nil {
		return nil, err
	}

	activated, err := database.ActivateAgreementInTx(tx, agr.ID, now.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	if !activated {
		// Lost a race: either a concurrent delivery of the same event
		// won, or the agreement left the signed state mid-flight.
		log.Printf("WARN: [Payment] Agreement %s left the payable state concurrently, acknowledging.", agr.ID)
		return &Result{Reason: "agreement no longer awaiting payment"}, nil
	}

	if err := database.SetPropertyOccupiedInTx(tx, agr.PropertyID); err != nil {
		return nil, err
	}
	if err := database.AppendAuditInTx(tx, agr.ID, model.AuditActivated, "",
		fmt.Sprintf("Initial payment %s confirmed (receipt %s); lease activated with %d schedule entries",
			event.TransactionID, receiptNumber, len(entries))); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit activation: %w", err)
	}

	log.Printf("INFO: [Payment] Agreement %s activated, receipt %s.", agr.ID, receiptNumber)

	if queue != nil {
		payload := model.NotificationPayload{
			AgreementID: agr.ID,
			RecipientID: agr.TenantID,
			Amount:      amount,
			Detail:      fmt.Sprintf("receipt %s", receiptNumber),
		}
		if _, err := queue.Enqueue(model.NotifyPaymentConfirmed,
			fmt.Sprintf("payment_confirmed:%s", event.TransactionID), payload); err != nil {
			log.Printf("WARN: [Payment] Failed to enqueue confirmation for %s: %v", agr.ID, err)
		}
	}

	return &Result{Activated: true, ReceiptNumber: receiptNumber}, nil
}
