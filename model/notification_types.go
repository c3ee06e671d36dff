package model

// Notification job types. The set is closed; the worker rejects anything
// else as a permanent failure.
const (
	NotifyRentDueReminder     = "rent_due_reminder"
	NotifyRentOverdue         = "rent_overdue"
	NotifyLateFeeApplied      = "late_fee_applied"
	NotifyExpiryWarning       = "expiry_warning"
	NotifyAgreementSigned     = "agreement_signed"
	NotifyPaymentConfirmed    = "payment_confirmed"
	NotifyApplicationAccepted = "application_accepted"
	NotifyApplicationRejected = "application_rejected"
	NotifyMaintenanceUpdate   = "maintenance_update"
)

// Notification job statuses.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobDone       = "done"
	JobFailed     = "failed"
)

// NotificationJob is a durable queue row. IdempotencyKey identifies the
// logical event, so re-enqueueing the same event is a no-op and a retried
// job is recognizable as the same notification.
type NotificationJob struct {
	ID             string `db:"id" json:"id"`
	IdempotencyKey string `db:"idempotency_key" json:"idempotencyKey"`
	JobType        string `db:"job_type" json:"jobType"`
	Payload        string `db:"payload" json:"payload"`
	Status         string `db:"status" json:"status"`
	Attempts       int    `db:"attempts" json:"attempts"`
	MaxAttempts    int    `db:"max_attempts" json:"maxAttempts"`
	NextRunAt      string `db:"next_run_at" json:"nextRunAt"`
	LastError      string `db:"last_error" json:"lastError"`
	CreatedAt      string `db:"created_at" json:"createdAt"`
	UpdatedAt      string `db:"updated_at" json:"updatedAt"`
}

// NotificationPayload is the denormalized data carried by a job. Handlers
// re-fetch live entities by id at execution time; the denormalized fields
// are only used for message text, never for state decisions.
type NotificationPayload struct {
	AgreementID   string `json:"agreementId,omitempty"`
	RecipientID   string `json:"recipientId,omitempty"`
	PropertyTitle string `json:"propertyTitle,omitempty"`
	Amount        int64  `json:"amount,omitempty"`
	DueDate       string `json:"dueDate,omitempty"`
	Month         string `json:"month,omitempty"`
	Detail        string `json:"detail,omitempty"`
}
