package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/airbearhq/airbear/internal/location"
	"github.com/airbearhq/airbear/internal/middleware"
	"github.com/airbearhq/airbear/internal/realtime"
)

// defaultNearbyRadiusKm bounds /locations/nearby queries when the client
// does not pass a radius.
const defaultNearbyRadiusKm = 5.0

// LocationHandlers holds dependencies for driver-location endpoints.
type LocationHandlers struct {
	store    *location.Store
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewLocationHandlers creates a new LocationHandlers instance.
func NewLocationHandlers(store *location.Store, hub *realtime.Hub) *LocationHandlers {
	return &LocationHandlers{
		store: store,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// UpdateLocationRequest represents the request body for a driver position update.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UpdateLocation records the authenticated driver's position and publishes it
// to the live feed.
// POST /drivers/location
func (h *LocationHandlers) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	driverID := middleware.GetUserID(ctx)
	if driverID == "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "authentication required")
		return
	}

	var req UpdateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	loc := location.DriverLocation{DriverID: driverID, Lat: req.Lat, Lng: req.Lng}
	if err := loc.Validate(); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	if err := h.store.UpdateLocation(ctx, loc); err != nil {
		slog.ErrorContext(ctx, "failed to store driver location", "driver_id", driverID, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to store location")
		return
	}

	if h.hub != nil {
		h.hub.Publish(realtime.UpdateDriverLocation, loc)
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// FindNearby returns drivers near a point, closest first.
// GET /locations/nearby?lat=..&lng=..&radius_km=..
func (h *LocationHandlers) FindNearby(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "lat and lng query parameters are required")
		return
	}

	radius := defaultNearbyRadiusKm
	if raw := r.URL.Query().Get("radius_km"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "radius_km must be a positive number")
			return
		}
		radius = parsed
	}

	drivers, err := h.store.FindNearbyDrivers(ctx, lat, lng, radius)
	if err != nil {
		slog.ErrorContext(ctx, "failed to query nearby drivers", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to query nearby drivers")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"drivers": drivers})
}

// LiveFeed upgrades the connection and subscribes it to the realtime hub.
// GET /locations/live
func (h *LocationHandlers) LiveFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade wrote its own error response.
		slog.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	h.hub.Register <- conn

	// Drain client frames so pings are answered; unregister on close.
	go func() {
		defer func() { h.hub.Unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
