package model

// Payment types.
const (
	PaymentInitial = "initial"
	PaymentMonthly = "monthly"
)

// Payment is an immutable record of a settled charge. TransactionID is the
// external processor's id and is unique per payment; it is the replay guard
// for webhook redelivery.
type Payment struct {
	ID            string `db:"id" json:"id"`
	AgreementID   string `db:"agreement_id" json:"agreementId"`
	TransactionID string `db:"transaction_id" json:"transactionId"`
	Amount        int64  `db:"amount" json:"amount"`
	PaymentType   string `db:"payment_type" json:"paymentType"`
	ReceiptNumber string `db:"receipt_number" json:"receiptNumber"`
	PaidAt        string `db:"paid_at" json:"paidAt"`
}

// User is the contact surface the notification handlers read. Account
// management lives elsewhere; this engine only reads these rows.
type User struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Email     string `db:"email" json:"email"`
	Phone     string `db:"phone" json:"phone"`
	SmsOptIn  bool   `db:"sms_opt_in" json:"smsOptIn"`
	PushOptIn bool   `db:"push_opt_in" json:"pushOptIn"`
	PushToken string `db:"push_token" json:"pushToken"`
}

// Property carries the financial terms an agreement freezes at creation.
// Listing CRUD lives elsewhere; this engine reads the terms and flips the
// occupancy flags at activation.
type Property struct {
	ID              string `db:"id" json:"id"`
	LandlordID      string `db:"landlord_id" json:"landlordId"`
	Title           string `db:"title" json:"title"`
	RentAmount      int64  `db:"rent_amount" json:"rentAmount"`
	DepositAmount   int64  `db:"deposit_amount" json:"depositAmount"`
	LateFeeAmount   int64  `db:"late_fee_amount" json:"lateFeeAmount"`
	GracePeriodDays int    `db:"grace_period_days" json:"gracePeriodDays"`
	IsOccupied      bool   `db:"is_occupied" json:"isOccupied"`
	IsListed        bool   `db:"is_listed" json:"isListed"`
}
