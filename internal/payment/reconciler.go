package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/airbearhq/airbear/internal/loyalty"
	"github.com/airbearhq/airbear/internal/order"
	"github.com/airbearhq/airbear/internal/ride"
)

// Outcome classifies what the reconciler did with an event. The webhook
// handler maps outcomes to metrics labels; only a non-nil error changes the
// HTTP status.
type Outcome string

const (
	// OutcomeProcessed means at least one state mutation was applied.
	OutcomeProcessed Outcome = "processed"
	// OutcomeDuplicate means the payment reference was already reconciled.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeSkipped means required metadata was missing; nothing was applied.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeIgnored means the event type is not one we act on.
	OutcomeIgnored Outcome = "ignored"
)

// Reconciler applies verified payment events to orders, rides, payment
// records, and loyalty balances. Every handler is idempotent: re-delivering
// an already-applied event is a no-op, never an error.
type Reconciler struct {
	orders        order.Repository
	rides         ride.Repository
	payments      Repository
	loyalty       loyalty.Repository
	pointsPerUnit int64
	logger        *slog.Logger
}

// NewReconciler creates a reconciler over the given repositories.
// pointsPerUnit is the number of loyalty points awarded per whole currency
// unit (dollar) of a successful payment.
func NewReconciler(
	orders order.Repository,
	rides ride.Repository,
	payments Repository,
	loyaltyRepo loyalty.Repository,
	pointsPerUnit int64,
	logger *slog.Logger,
) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		orders:        orders,
		rides:         rides,
		payments:      payments,
		loyalty:       loyaltyRepo,
		pointsPerUnit: pointsPerUnit,
		logger:        logger,
	}
}

// Reconcile dispatches an event to its handler. A returned error means a
// transient storage failure: no durable record of completion exists, and the
// caller should ask the processor to retry. All handled-but-inapplicable
// cases (duplicates, missing metadata, unknown types) return a nil error.
func (r *Reconciler) Reconcile(ctx context.Context, ev *Event) (Outcome, error) {
	switch ev.Type {
	case EventCheckoutCompleted:
		return r.handleCheckoutCompleted(ctx, ev)
	case EventPaymentSucceeded:
		return r.handlePaymentSucceeded(ctx, ev)
	case EventPaymentFailed:
		return r.handlePaymentFailed(ctx, ev)
	default:
		r.logger.Info("ignoring unhandled event type",
			slog.String("event_id", ev.ID),
			slog.String("event_type", string(ev.Type)),
		)
		return OutcomeIgnored, nil
	}
}

// handleCheckoutCompleted creates the completed order for a checkout. The
// UNIQUE constraint on orders.stripe_payment_id makes re-creation collapse
// into a duplicate no-op.
func (r *Reconciler) handleCheckoutCompleted(ctx context.Context, ev *Event) (Outcome, error) {
	if ev.Meta.UserID == "" || ev.PaymentRef == "" {
		r.logger.Warn("checkout event missing user or payment reference, skipping",
			slog.String("event_id", ev.ID),
			slog.String("payment_ref", ev.PaymentRef),
		)
		return OutcomeSkipped, nil
	}

	// Fast path before the insert; the constraint still catches races.
	_, err := r.orders.GetByPaymentID(ctx, ev.PaymentRef)
	if err == nil {
		r.logger.Info("order already exists for payment, skipping",
			slog.String("event_id", ev.ID),
			slog.String("payment_ref", ev.PaymentRef),
		)
		return OutcomeDuplicate, nil
	}
	if !errors.Is(err, order.ErrOrderNotFound) {
		return "", fmt.Errorf("failed to check existing order: %w", err)
	}

	o := &order.Order{
		UserID:          ev.Meta.UserID,
		TotalAmount:     ev.Amount,
		Currency:        ev.Currency,
		Status:          order.StatusCompleted,
		StripePaymentID: ev.PaymentRef,
	}
	if ev.Meta.RideID != "" {
		rideID := ev.Meta.RideID
		o.RideID = &rideID
	}

	if err := r.orders.Insert(ctx, o); err != nil {
		if errors.Is(err, order.ErrDuplicateOrder) {
			return OutcomeDuplicate, nil
		}
		return "", fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Info("order created from checkout",
		slog.String("event_id", ev.ID),
		slog.String("order_id", o.ID),
		slog.String("payment_ref", ev.PaymentRef),
		slog.Int64("amount", ev.Amount),
	)
	return OutcomeProcessed, nil
}

// handlePaymentSucceeded marks the referenced order and ride completed,
// writes the succeeded payment record, and awards loyalty points. An
// existing record for the payment reference short-circuits the whole
// handler, including a failed one: a terminal failure is never overwritten.
func (r *Reconciler) handlePaymentSucceeded(ctx context.Context, ev *Event) (Outcome, error) {
	if ev.PaymentRef == "" {
		r.logger.Warn("payment succeeded event has no payment reference, skipping",
			slog.String("event_id", ev.ID))
		return OutcomeSkipped, nil
	}

	existing, err := r.payments.GetByPaymentID(ctx, ev.PaymentRef)
	if err == nil {
		r.logger.Info("payment already recorded, skipping",
			slog.String("event_id", ev.ID),
			slog.String("payment_ref", ev.PaymentRef),
			slog.String("recorded_status", existing.Status),
		)
		return OutcomeDuplicate, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return "", fmt.Errorf("failed to check existing payment record: %w", err)
	}

	applied := false

	// Each metadata key drives its own optional sub-update. A missing key
	// skips that sub-update only.
	if ev.Meta.OrderID != "" {
		err := r.orders.UpdateStatus(ctx, ev.Meta.OrderID, order.StatusCompleted)
		switch {
		case err == nil:
			applied = true
		case errors.Is(err, order.ErrOrderNotFound):
			r.logger.Warn("order referenced by payment not found",
				slog.String("event_id", ev.ID),
				slog.String("order_id", ev.Meta.OrderID),
			)
		default:
			return "", fmt.Errorf("failed to complete order: %w", err)
		}
	}

	if ev.Meta.RideID != "" {
		err := r.rides.UpdateStatus(ctx, ev.Meta.RideID, ride.StatusCompleted)
		switch {
		case err == nil:
			applied = true
		case errors.Is(err, ride.ErrRideNotFound):
			r.logger.Warn("ride referenced by payment not found",
				slog.String("event_id", ev.ID),
				slog.String("ride_id", ev.Meta.RideID),
			)
		default:
			return "", fmt.Errorf("failed to complete ride: %w", err)
		}
	}

	if ev.Meta.UserID != "" {
		rec := &Record{
			UserID:          ev.Meta.UserID,
			Amount:          ev.Amount,
			Currency:        ev.Currency,
			Status:          StatusSucceeded,
			StripePaymentID: ev.PaymentRef,
		}
		if ev.Meta.OrderID != "" {
			orderID := ev.Meta.OrderID
			rec.OrderID = &orderID
		}
		if ev.Meta.RideID != "" {
			rideID := ev.Meta.RideID
			rec.RideID = &rideID
		}
		if err := r.payments.Insert(ctx, rec); err != nil {
			if !errors.Is(err, ErrDuplicateRecord) {
				return "", fmt.Errorf("failed to insert payment record: %w", err)
			}
			// Lost a race with a concurrent delivery; the other one won.
			return OutcomeDuplicate, nil
		}
		applied = true

		points := (ev.Amount / 100) * r.pointsPerUnit
		if points > 0 {
			if err := r.loyalty.AwardPoints(ctx, ev.Meta.UserID, points); err != nil {
				// Loyalty is best-effort: the payment record already exists,
				// so retrying the whole event would double-apply.
				r.logger.Error("failed to award loyalty points",
					slog.String("event_id", ev.ID),
					slog.String("user_id", ev.Meta.UserID),
					slog.Int64("points", points),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if !applied {
		r.logger.Warn("payment succeeded event had no applicable metadata",
			slog.String("event_id", ev.ID),
			slog.String("payment_ref", ev.PaymentRef),
		)
		return OutcomeSkipped, nil
	}

	r.logger.Info("payment reconciled",
		slog.String("event_id", ev.ID),
		slog.String("payment_ref", ev.PaymentRef),
		slog.Int64("amount", ev.Amount),
	)
	return OutcomeProcessed, nil
}

// handlePaymentFailed marks the referenced order failed, cancels the ride,
// and writes a failed payment record with the failure reason.
func (r *Reconciler) handlePaymentFailed(ctx context.Context, ev *Event) (Outcome, error) {
	if ev.PaymentRef == "" {
		r.logger.Warn("payment failed event has no payment reference, skipping",
			slog.String("event_id", ev.ID))
		return OutcomeSkipped, nil
	}

	applied := false

	if ev.Meta.OrderID != "" {
		err := r.orders.UpdateStatus(ctx, ev.Meta.OrderID, order.StatusFailed)
		switch {
		case err == nil:
			applied = true
		case errors.Is(err, order.ErrOrderNotFound):
			r.logger.Warn("order referenced by failed payment not found",
				slog.String("event_id", ev.ID),
				slog.String("order_id", ev.Meta.OrderID),
			)
		default:
			return "", fmt.Errorf("failed to mark order failed: %w", err)
		}
	}

	if ev.Meta.RideID != "" {
		err := r.rides.UpdateStatus(ctx, ev.Meta.RideID, ride.StatusCancelled)
		switch {
		case err == nil:
			applied = true
		case errors.Is(err, ride.ErrRideNotFound):
			r.logger.Warn("ride referenced by failed payment not found",
				slog.String("event_id", ev.ID),
				slog.String("ride_id", ev.Meta.RideID),
			)
		default:
			return "", fmt.Errorf("failed to cancel ride: %w", err)
		}
	}

	if ev.Meta.UserID != "" {
		reason := ev.FailureReason
		rec := &Record{
			UserID:          ev.Meta.UserID,
			Amount:          ev.Amount,
			Currency:        ev.Currency,
			Status:          StatusFailed,
			StripePaymentID: ev.PaymentRef,
			FailureReason:   &reason,
		}
		if ev.Meta.OrderID != "" {
			orderID := ev.Meta.OrderID
			rec.OrderID = &orderID
		}
		if ev.Meta.RideID != "" {
			rideID := ev.Meta.RideID
			rec.RideID = &rideID
		}
		if err := r.payments.Insert(ctx, rec); err != nil {
			if !errors.Is(err, ErrDuplicateRecord) {
				return "", fmt.Errorf("failed to insert failed payment record: %w", err)
			}
		} else {
			applied = true
		}
	}

	if !applied {
		r.logger.Warn("payment failed event had no applicable metadata",
			slog.String("event_id", ev.ID),
			slog.String("payment_ref", ev.PaymentRef),
		)
		return OutcomeSkipped, nil
	}

	r.logger.Info("payment failure reconciled",
		slog.String("event_id", ev.ID),
		slog.String("payment_ref", ev.PaymentRef),
		slog.String("reason", ev.FailureReason),
	)
	return OutcomeProcessed, nil
}
