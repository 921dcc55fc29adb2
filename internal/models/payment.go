package models

// Payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// Payment methods accepted by the ledger. Method is informational; the
// core does not integrate payment rails.
const (
	PaymentMethodUPI          = "upi"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCash         = "cash"
)

// Payment ties a user to a fund round contribution. Exactly one payment
// row exists per (fund, round, user); rows are provisioned pending when a
// round is created, never lazily on read.
type Payment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID string

	// FundID and RoundID locate the obligation.
	FundID  string
	RoundID string

	// UserID is the member who owes this contribution.
	UserID string

	// Amount is the expected contribution (the fund's MonthlyContribution).
	Amount float64

	// Method is one of the PaymentMethod* constants, recorded on completion.
	Method string

	// TransactionRef is an optional external reference (UPI/bank id).
	TransactionRef string

	// Status is pending or completed.
	Status string

	// PaidAt is the Unix timestamp of completion (0 while pending).
	PaidAt int64

	// CreatedAt is the Unix timestamp when the row was provisioned.
	CreatedAt int64
}
