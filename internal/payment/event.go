// Package payment provides models and services for payment processing.
package payment

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v81"
)

// EventType is the semantic category of an inbound processor event.
// Every inbound event maps to exactly one of these; EventUnknown is a real
// arm, not an error, so unhandled processor types are acknowledged instead
// of retried forever.
type EventType string

const (
	EventCheckoutCompleted EventType = "checkout_completed"
	EventPaymentSucceeded  EventType = "payment_succeeded"
	EventPaymentFailed     EventType = "payment_failed"
	EventUnknown           EventType = "unknown"
)

// ClassifyEventType maps a raw Stripe event type string to our taxonomy.
func ClassifyEventType(stripeType string) EventType {
	switch stripeType {
	case "checkout.session.completed":
		return EventCheckoutCompleted
	case "payment_intent.succeeded":
		return EventPaymentSucceeded
	case "payment_intent.payment_failed":
		return EventPaymentFailed
	default:
		return EventUnknown
	}
}

// Metadata holds the optional references the checkout flow attached to the
// payment. An empty string means the key was absent; each reconciler
// sub-update checks its own key independently.
type Metadata struct {
	OrderID string
	RideID  string
	UserID  string
}

// metadataFromMap extracts the known keys from a Stripe metadata map.
func metadataFromMap(m map[string]string) Metadata {
	if m == nil {
		return Metadata{}
	}
	return Metadata{
		OrderID: m["order_id"],
		RideID:  m["ride_id"],
		UserID:  m["user_id"],
	}
}

// Event is the decoded, verified form of one processor notification.
// It is transient: constructed per delivery and discarded after processing.
type Event struct {
	ID            string
	Type          EventType
	PaymentRef    string // processor payment reference; the idempotency key
	Amount        int64  // amount in minor units (cents)
	Currency      string
	FailureReason string // populated for payment_failed events
	Meta          Metadata
}

// FromStripeEvent decodes a verified Stripe event envelope into an Event.
// Returns an error only when the payload cannot be unmarshalled; missing
// metadata is not an error here (the reconciler decides what to skip).
func FromStripeEvent(stripeEvent stripe.Event) (*Event, error) {
	ev := &Event{
		ID:   stripeEvent.ID,
		Type: ClassifyEventType(string(stripeEvent.Type)),
	}

	switch ev.Type {
	case EventCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(stripeEvent.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("failed to parse checkout session: %w", err)
		}
		// Prefer the payment intent as the reference: it is what later
		// payment_intent.* events for the same payment will carry.
		ev.PaymentRef = session.ID
		if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
			ev.PaymentRef = session.PaymentIntent.ID
		}
		ev.Amount = session.AmountTotal
		ev.Currency = string(session.Currency)
		ev.Meta = metadataFromMap(session.Metadata)

	case EventPaymentSucceeded, EventPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(stripeEvent.Data.Raw, &intent); err != nil {
			return nil, fmt.Errorf("failed to parse payment intent: %w", err)
		}
		ev.PaymentRef = intent.ID
		ev.Amount = intent.Amount
		ev.Currency = string(intent.Currency)
		ev.Meta = metadataFromMap(intent.Metadata)
		if ev.Type == EventPaymentFailed {
			ev.FailureReason = failureReason(&intent)
		}

	case EventUnknown:
		// Nothing to decode; the reconciler ignores it.
	}

	return ev, nil
}

// failureReason extracts a short failure description from a payment intent.
func failureReason(intent *stripe.PaymentIntent) string {
	if intent.LastPaymentError == nil {
		return "unknown"
	}
	if intent.LastPaymentError.Code != "" {
		return string(intent.LastPaymentError.Code)
	}
	if intent.LastPaymentError.Msg != "" {
		return intent.LastPaymentError.Msg
	}
	return "unknown"
}
