package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/airbearhq/airbear/internal/middleware"
	"github.com/airbearhq/airbear/internal/payment"
	"github.com/airbearhq/airbear/internal/ride"
)

// PaymentHandlers holds dependencies for payment-related HTTP handlers.
type PaymentHandlers struct {
	rideRepo     ride.Repository
	stripeClient payment.Client
	successURL   string
	cancelURL    string
}

// NewPaymentHandlers creates a new PaymentHandlers instance.
func NewPaymentHandlers(
	rideRepo ride.Repository,
	stripeClient payment.Client,
	successURL string,
	cancelURL string,
) *PaymentHandlers {
	return &PaymentHandlers{
		rideRepo:     rideRepo,
		stripeClient: stripeClient,
		successURL:   successURL,
		cancelURL:    cancelURL,
	}
}

// CreateCheckoutRequest represents the request body for starting a checkout.
type CreateCheckoutRequest struct {
	RideID string `json:"ride_id"`
}

// CreateCheckoutResponse represents a successfully created checkout session.
type CreateCheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// CreateCheckout creates a Stripe Checkout Session for a pending ride and
// moves the ride to booked. The ride, order, and user ids travel as session
// metadata so the webhook reconciler can find its way back.
// POST /payments/checkout
func (h *PaymentHandlers) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middleware.GetUserID(ctx)
	if userID == "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "authentication required")
		return
	}

	var req CreateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if req.RideID == "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "ride_id is required")
		return
	}

	bookedRide, err := h.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		if errors.Is(err, ride.ErrRideNotFound) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeRideNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeRideNotFound, "ride not found")
			return
		}
		slog.ErrorContext(ctx, "failed to get ride", "ride_id", req.RideID, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to get ride")
		return
	}
	if bookedRide.RiderID != userID {
		ctx = middleware.SetErrorCode(ctx, ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "not your ride")
		return
	}
	if bookedRide.Status != ride.StatusPending {
		ctx = middleware.SetErrorCode(ctx, ErrCodeConflict)
		WriteError(w, ctx, http.StatusConflict, ErrCodeConflict,
			fmt.Sprintf("ride is %s, only pending rides can be paid for", bookedRide.Status))
		return
	}

	sess, err := h.stripeClient.CreateCheckoutSession(&payment.CheckoutSessionParams{
		RideID:      bookedRide.ID,
		UserID:      userID,
		Description: fmt.Sprintf("AirBear ride %s to %s", bookedRide.PickupSpot, bookedRide.DropoffSpot),
		Amount:      bookedRide.Fare,
		Currency:    "usd",
		SuccessURL:  h.successURL,
		CancelURL:   h.cancelURL,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create checkout session", "ride_id", bookedRide.ID, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to create checkout session")
		return
	}

	if err := h.rideRepo.UpdateStatus(ctx, bookedRide.ID, ride.StatusBooked); err != nil {
		slog.ErrorContext(ctx, "failed to mark ride booked", "ride_id", bookedRide.ID, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to update ride")
		return
	}

	slog.InfoContext(ctx, "checkout session created",
		"ride_id", bookedRide.ID,
		"session_id", sess.ID,
		"amount", bookedRide.Fare,
	)
	WriteJSON(w, http.StatusCreated, CreateCheckoutResponse{
		SessionID: sess.ID,
		URL:       sess.URL,
	})
}
