// Package order provides models and persistence for checkout orders.
package order

import "time"

// Order status values. pending→completed or pending→failed, terminal thereafter.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Order represents a checkout order created by a completed payment flow.
// StripePaymentID is the processor's payment reference and carries a unique
// constraint: it is the idempotency key for order creation.
type Order struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	TotalAmount     int64      `json:"total_amount"` // Amount in cents
	Currency        string     `json:"currency"`
	Status          string     `json:"status"`
	StripePaymentID string     `json:"stripe_payment_id"`
	RideID          *string    `json:"ride_id,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}
