package agreement

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/database"
	"github.com/jbrpriv/RentifyPro-sub000/model"
	"github.com/jbrpriv/RentifyPro-sub000/notification"
	"github.com/jbrpriv/RentifyPro-sub000/schedule"
)

var (
	ErrNotFound       = errors.New("agreement not found")
	ErrNotParty       = errors.New("caller is not a party to this agreement")
	ErrAlreadySigned  = errors.New("party has already signed this agreement")
	ErrNotSignable    = errors.New("agreement is not awaiting signatures")
	ErrRenewalPending = errors.New("a renewal proposal is already pending")
	ErrNoRenewal      = errors.New("no pending renewal proposal")
	ErrBadState       = errors.New("operation not allowed in current agreement state")
)

type CreateInput struct {
	LandlordID      string `json:"landlordId"`
	TenantID        string `json:"tenantId"`
	PropertyID      string `json:"propertyId"`
	StartDate       string `json:"startDate"`
	DurationMonths  int    `json:"durationMonths"`
	FromApplication bool   `json:"fromApplication"`
}

// Create opens a draft agreement, freezing the property's financial terms
// at this moment. Later edits to the property never reach the agreement.
func Create(db *sqlx.DB, queue *notification.Queue, in CreateInput) (*model.Agreement, error) {
	if in.DurationMonths <= 0 {
		return nil, fmt.Errorf("duration must be at least one month")
	}
	start, err := time.Parse(schedule.DateFormat, in.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q", in.StartDate)
	}

	prop, err := database.GetProperty(db, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if prop == nil {
		return nil, fmt.Errorf("property %s not found", in.PropertyID)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	a := &model.Agreement{
		ID:              uuid.NewString(),
		LandlordID:      in.LandlordID,
		TenantID:        in.TenantID,
		PropertyID:      in.PropertyID,
		Status:          model.AgreementDraft,
		StartDate:       in.StartDate,
		EndDate:         start.AddDate(0, in.DurationMonths, 0).Format(schedule.DateFormat),
		DurationMonths:  in.DurationMonths,
		RentAmount:      prop.RentAmount,
		DepositAmount:   prop.DepositAmount,
		LateFeeAmount:   prop.LateFeeAmount,
		GracePeriodDays: prop.GracePeriodDays,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := database.CreateAgreementInTx(tx, a); err != nil {
		return nil, err
	}
	if err := database.AppendAuditInTx(tx, a.ID, model.AuditCreated, in.LandlordID,
		fmt.Sprintf("Draft agreement created for property %s", prop.Title)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit agreement creation: %w", err)
	}

	if in.FromApplication && queue != nil {
		payload := model.NotificationPayload{
			AgreementID:   a.ID,
			RecipientID:   in.TenantID,
			PropertyTitle: prop.Title,
		}
		if _, err := queue.Enqueue(model.NotifyApplicationAccepted,
			fmt.Sprintf("application_accepted:%s", a.ID), payload); err != nil {
			log.Printf("WARN: [Agreement] Failed to enqueue acceptance notification for %s: %v", a.ID, err)
		}
	}

	return a, nil
}

// Sign records one party's signature. The caller must be exactly the
// landlord or tenant on record, and each party may sign once; the guard and
// the write are a single conditional update, so a duplicate submission
// cannot slip through between check and set.
func Sign(db *sqlx.DB, queue *notification.Queue, agreementID, signerID, sourceAddr string) (*model.Agreement, error) {
	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	a, err := database.GetAgreementInTx(tx, agreementID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	if a.Status != model.AgreementDraft && a.Status != model.AgreementSent {
		return nil, ErrNotSignable
	}

	var party string
	switch signerID {
	case a.LandlordID:
		party = "landlord"
	case a.TenantID:
		party = "tenant"
	default:
		return nil, ErrNotParty
	}

	now := time.Now().UTC().Format(time.RFC3339)
	signed, err := database.MarkPartySignedInTx(tx, a.ID, party, now, sourceAddr)
	if err != nil {
		return nil, err
	}
	if !signed {
		return nil, ErrAlreadySigned
	}

	a, err = database.GetAgreementInTx(tx, a.ID)
	if err != nil {
		return nil, err
	}

	newStatus := model.AgreementSent
	if a.FullySigned() {
		newStatus = model.AgreementSigned
	}
	if a.Status != newStatus {
		if _, err := database.UpdateStatusInTx(tx, a.ID, a.Status, newStatus, now); err != nil {
			return nil, err
		}
		a.Status = newStatus
	}

	if err := database.AppendAuditInTx(tx, a.ID, model.AuditSigned, signerID,
		fmt.Sprintf("%s signed from %s", party, sourceAddr)); err != nil {
		return nil, err
	}
	if newStatus == model.AgreementSigned {
		if err := database.AppendAuditInTx(tx, a.ID, model.AuditFullySigned, signerID,
			"Both parties have signed; awaiting initial payment"); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit signature: %w", err)
	}

	// Full signature notifies the counter-party. It never activates the
	// agreement; activation is gated on payment reconciliation.
	if newStatus == model.AgreementSigned && queue != nil {
		counterparty := a.LandlordID
		if signerID == a.LandlordID {
			counterparty = a.TenantID
		}
		prop, perr := database.GetProperty(db, a.PropertyID)
		title := a.PropertyID
		if perr == nil && prop != nil {
			title = prop.Title
		}
		payload := model.NotificationPayload{
			AgreementID:   a.ID,
			RecipientID:   counterparty,
			PropertyTitle: title,
		}
		if _, err := queue.Enqueue(model.NotifyAgreementSigned,
			fmt.Sprintf("agreement_signed:%s", a.ID), payload); err != nil {
			log.Printf("WARN: [Agreement] Failed to enqueue signed notification for %s: %v", a.ID, err)
		}
	}

	return a, nil
}

type RenewalInput struct {
	NewEndDate    string `json:"newEndDate"`
	NewRentAmount int64  `json:"newRentAmount"`
	Notes         string `json:"notes"`
}

// ProposeRenewal stores a landlord's proposal. Only one proposal may be
// pending at a time; a second one is rejected outright rather than silently
// replacing the first.
func ProposeRenewal(db *sqlx.DB, agreementID, landlordID string, in RenewalInput) error {
	if _, err := time.Parse(schedule.DateFormat, in.NewEndDate); err != nil {
		return fmt.Errorf("invalid new end date %q", in.NewEndDate)
	}
	if in.NewRentAmount <= 0 {
		return fmt.Errorf("new rent amount must be positive")
	}

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	a, err := database.GetAgreementInTx(tx, agreementID)
	if err != nil {
		return err
	}
	if a == nil {
		return ErrNotFound
	}
	if a.LandlordID != landlordID {
		return ErrNotParty
	}
	if a.Status != model.AgreementActive && a.Status != model.AgreementExpired {
		return ErrBadState
	}

	now := time.Now().UTC().Format(time.RFC3339)
	ok, err := database.SetRenewalProposalInTx(tx, a.ID, landlordID, in.NewEndDate, in.NewRentAmount, in.Notes, now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRenewalPending
	}

	if err := database.AppendAuditInTx(tx, a.ID, model.AuditRenewalProposed, landlordID,
		fmt.Sprintf("Renewal proposed: end %s, rent %d", in.NewEndDate, in.NewRentAmount)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit renewal proposal: %w", err)
	}
	return nil
}

// RespondRenewal records the tenant's decision. Accepting extends the term,
// applies the new rent and forces the agreement back to active; rejecting
// changes nothing but the proposal status.
func RespondRenewal(db *sqlx.DB, agreementID, tenantID string, accept bool) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	a, err := database.GetAgreementInTx(tx, agreementID)
	if err != nil {
		return err
	}
	if a == nil {
		return ErrNotFound
	}
	if a.TenantID != tenantID {
		return ErrNotParty
	}
	if a.RenewalStatus != model.RenewalPending {
		return ErrNoRenewal
	}
	// A proposal left pending when the agreement was terminated must not
	// resurrect it.
	if a.Status != model.AgreementActive && a.Status != model.AgreementExpired {
		return ErrBadState
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if accept {
		ok, err := database.AcceptRenewalInTx(tx, a.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoRenewal
		}
		if err := database.AppendAuditInTx(tx, a.ID, model.AuditRenewalAccepted, tenantID,
			fmt.Sprintf("Renewal accepted: end %s, rent %d", a.RenewalNewEndDate, a.RenewalNewRentAmount)); err != nil {
			return err
		}
	} else {
		ok, err := database.RejectRenewalInTx(tx, a.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoRenewal
		}
		if err := database.AppendAuditInTx(tx, a.ID, model.AuditRenewalRejected, tenantID,
			"Renewal proposal rejected"); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit renewal response: %w", err)
	}
	return nil
}

// Terminate retires an agreement from any non-terminal state. Terminal:
// nothing transitions out of terminated.
func Terminate(db *sqlx.DB, agreementID, actorID, reason string) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	a, err := database.GetAgreementInTx(tx, agreementID)
	if err != nil {
		return err
	}
	if a == nil {
		return ErrNotFound
	}
	if a.Terminal() {
		return ErrBadState
	}

	now := time.Now().UTC().Format(time.RFC3339)
	ok, err := database.TerminateAgreementInTx(tx, a.ID, now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBadState
	}
	if err := database.AppendAuditInTx(tx, a.ID, model.AuditTerminated, actorID, reason); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit termination: %w", err)
	}
	return nil
}
