package payment

import "time"

// Payment record statuses. A failed record is terminal: a later succeeded
// event for the same payment reference does not overwrite it.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Record is the per-payment ledger row. StripePaymentID is unique; the
// database constraint is the last line of defence against concurrent
// duplicate deliveries.
type Record struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Amount          int64      `json:"amount"` // minor units (cents)
	Currency        string     `json:"currency"`
	Status          string     `json:"status"`
	StripePaymentID string     `json:"stripe_payment_id"`
	OrderID         *string    `json:"order_id,omitempty"`
	RideID          *string    `json:"ride_id,omitempty"`
	FailureReason   *string    `json:"failure_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}
