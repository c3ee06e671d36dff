package model

// Agreement statuses. An agreement only ever moves forward:
// draft -> sent -> signed -> active -> expired, or to terminated from
// any non-terminal state.
const (
	AgreementDraft      = "draft"
	AgreementSent       = "sent"
	AgreementSigned     = "signed"
	AgreementActive     = "active"
	AgreementExpired    = "expired"
	AgreementTerminated = "terminated"
)

// Renewal proposal statuses.
const (
	RenewalPending  = "pending"
	RenewalAccepted = "accepted"
	RenewalRejected = "rejected"
)

type Agreement struct {
	ID         string `db:"id" json:"id"`
	LandlordID string `db:"landlord_id" json:"landlordId"`
	TenantID   string `db:"tenant_id" json:"tenantId"`
	PropertyID string `db:"property_id" json:"propertyId"`
	Status     string `db:"status" json:"status"`

	StartDate      string `db:"start_date" json:"startDate"`
	EndDate        string `db:"end_date" json:"endDate"`
	DurationMonths int    `db:"duration_months" json:"durationMonths"`

	// Financial terms are copied from the property when the agreement is
	// created and never re-read from it afterwards.
	RentAmount      int64 `db:"rent_amount" json:"rentAmount"`
	DepositAmount   int64 `db:"deposit_amount" json:"depositAmount"`
	LateFeeAmount   int64 `db:"late_fee_amount" json:"lateFeeAmount"`
	GracePeriodDays int   `db:"grace_period_days" json:"gracePeriodDays"`

	LandlordSigned   bool   `db:"landlord_signed" json:"landlordSigned"`
	LandlordSignedAt string `db:"landlord_signed_at" json:"landlordSignedAt"`
	LandlordSignAddr string `db:"landlord_sign_addr" json:"landlordSignAddr"`
	TenantSigned     bool   `db:"tenant_signed" json:"tenantSigned"`
	TenantSignedAt   string `db:"tenant_signed_at" json:"tenantSignedAt"`
	TenantSignAddr   string `db:"tenant_sign_addr" json:"tenantSignAddr"`

	IsPaid bool `db:"is_paid" json:"isPaid"`

	RenewalProposedBy    string `db:"renewal_proposed_by" json:"renewalProposedBy"`
	RenewalNewEndDate    string `db:"renewal_new_end_date" json:"renewalNewEndDate"`
	RenewalNewRentAmount int64  `db:"renewal_new_rent_amount" json:"renewalNewRentAmount"`
	RenewalNotes         string `db:"renewal_notes" json:"renewalNotes"`
	RenewalStatus        string `db:"renewal_status" json:"renewalStatus"`

	CreatedAt string `db:"created_at" json:"createdAt"`
	UpdatedAt string `db:"updated_at" json:"updatedAt"`
}

// Terminal reports whether no further status transition is allowed.
func (a *Agreement) Terminal() bool {
	return a.Status == AgreementTerminated
}

// FullySigned reports whether both parties have signed.
func (a *Agreement) FullySigned() bool {
	return a.LandlordSigned && a.TenantSigned
}

// Rent schedule entry statuses. pending -> overdue -> late_fee_applied,
// or directly to paid; never backwards.
const (
	EntryPending        = "pending"
	EntryPaid           = "paid"
	EntryOverdue        = "overdue"
	EntryLateFeeApplied = "late_fee_applied"
)

type RentScheduleEntry struct {
	ID             int64  `db:"id" json:"id"`
	AgreementID    string `db:"agreement_id" json:"agreementId"`
	Seq            int    `db:"seq" json:"seq"`
	DueDate        string `db:"due_date" json:"dueDate"`
	Amount         int64  `db:"amount" json:"amount"`
	Status         string `db:"status" json:"status"`
	PaidDate       string `db:"paid_date" json:"paidDate"`
	PaidAmount     int64  `db:"paid_amount" json:"paidAmount"`
	LateFeeApplied bool   `db:"late_fee_applied" json:"lateFeeApplied"`
	LateFeeAmount  int64  `db:"late_fee_amount" json:"lateFeeAmount"`
}

type AuditEntry struct {
	ID          int64  `db:"id" json:"id"`
	AgreementID string `db:"agreement_id" json:"agreementId"`
	Action      string `db:"action" json:"action"`
	Actor       string `db:"actor" json:"actor"`
	Detail      string `db:"detail" json:"detail"`
	CreatedAt   string `db:"created_at" json:"createdAt"`
}

// Audit actions written by the engine.
const (
	AuditCreated         = "CREATED"
	AuditSigned          = "SIGNED"
	AuditFullySigned     = "FULLY_SIGNED"
	AuditActivated       = "ACTIVATED"
	AuditLateFee         = "LATE_FEE_APPLIED"
	AuditAutoExpired     = "AUTO_EXPIRED"
	AuditTerminated      = "TERMINATED"
	AuditRenewalProposed = "RENEWAL_PROPOSED"
	AuditRenewalAccepted = "RENEWAL_ACCEPTED"
	AuditRenewalRejected = "RENEWAL_REJECTED"
)

// ScheduleSummary is the per-agreement rollup returned alongside an
// agreement's schedule.
type ScheduleSummary struct {
	TotalEntries   int   `json:"totalEntries"`
	PaidCount      int   `json:"paidCount"`
	PendingCount   int   `json:"pendingCount"`
	OverdueCount   int   `json:"overdueCount"`
	LateFeeCount   int   `json:"lateFeeCount"`
	LateFeeTotal   int64 `json:"lateFeeTotal"`
	PaidTotal      int64 `json:"paidTotal"`
	OutstandingDue int64 `json:"outstandingDue"`
}
