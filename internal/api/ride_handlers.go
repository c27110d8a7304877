package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/airbearhq/airbear/internal/auth"
	"github.com/airbearhq/airbear/internal/middleware"
	"github.com/airbearhq/airbear/internal/ride"
)

// RideHandlers holds dependencies for ride-related HTTP handlers.
type RideHandlers struct {
	rideRepo ride.Repository
}

// NewRideHandlers creates a new RideHandlers instance.
func NewRideHandlers(rideRepo ride.Repository) *RideHandlers {
	return &RideHandlers{rideRepo: rideRepo}
}

// CreateRideRequest represents the request body for booking a ride.
type CreateRideRequest struct {
	PickupSpot  string `json:"pickup_spot"`
	DropoffSpot string `json:"dropoff_spot"`
}

// CreateRide books a ride between two fixed spots at the flat fare.
// POST /rides
func (h *RideHandlers) CreateRide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middleware.GetUserID(ctx)
	if userID == "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "authentication required")
		return
	}

	var req CreateRideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	fare, err := ride.FareFor(req.PickupSpot, req.DropoffSpot)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeUnknownSpot)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeUnknownSpot, err.Error())
		return
	}

	newRide := &ride.Ride{
		RiderID:     userID,
		PickupSpot:  req.PickupSpot,
		DropoffSpot: req.DropoffSpot,
		Fare:        fare,
		Status:      ride.StatusPending,
	}
	if err := h.rideRepo.Create(ctx, newRide); err != nil {
		slog.ErrorContext(ctx, "failed to create ride", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to create ride")
		return
	}

	slog.InfoContext(ctx, "ride created",
		"ride_id", newRide.ID,
		"pickup", req.PickupSpot,
		"dropoff", req.DropoffSpot,
		"fare", fare,
	)
	WriteJSON(w, http.StatusCreated, newRide)
}

// GetRide returns a ride by id. Riders may only read their own rides; admins
// may read any.
// GET /rides/{id}
func (h *RideHandlers) GetRide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := strings.TrimPrefix(r.URL.Path, "/rides/")
	if id == "" || strings.Contains(id, "/") {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "ride id is required")
		return
	}

	found, err := h.rideRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ride.ErrRideNotFound) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeRideNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeRideNotFound, "ride not found")
			return
		}
		slog.ErrorContext(ctx, "failed to get ride", "ride_id", id, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to get ride")
		return
	}

	userID := middleware.GetUserID(ctx)
	if found.RiderID != userID && middleware.GetRole(ctx) != auth.RoleAdmin {
		ctx = middleware.SetErrorCode(ctx, ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "not your ride")
		return
	}

	WriteJSON(w, http.StatusOK, found)
}

// ListSpots returns the fixed pickup and dropoff spots.
// GET /spots
func (h *RideHandlers) ListSpots(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{"spots": ride.Spots()})
}
