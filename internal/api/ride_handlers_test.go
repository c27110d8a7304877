package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/airbearhq/airbear/internal/auth"
	"github.com/airbearhq/airbear/internal/middleware"
	"github.com/airbearhq/airbear/internal/ride"
)

func authedRequest(method, target string, body []byte, userID, role string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := middleware.SetUserID(req.Context(), userID)
	ctx = middleware.SetRole(ctx, role)
	return req.WithContext(ctx)
}

func TestCreateRide_Success(t *testing.T) {
	repo := ride.NewInMemoryRepository()
	handlers := NewRideHandlers(repo)

	body, _ := json.Marshal(CreateRideRequest{PickupSpot: "campus-north", DropoffSpot: "downtown"})
	req := authedRequest(http.MethodPost, "/rides", body, "user-1", auth.RoleRider)

	w := httptest.NewRecorder()
	handlers.CreateRide(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var created ride.Ride
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID == "" {
		t.Error("expected generated ride id")
	}
	if created.Fare != 400 {
		t.Errorf("expected flat fare 400, got %d", created.Fare)
	}
	if created.Status != ride.StatusPending {
		t.Errorf("expected pending status, got %q", created.Status)
	}
}

func TestCreateRide_UnknownSpot(t *testing.T) {
	handlers := NewRideHandlers(ride.NewInMemoryRepository())

	body, _ := json.Marshal(CreateRideRequest{PickupSpot: "narnia", DropoffSpot: "downtown"})
	req := authedRequest(http.MethodPost, "/rides", body, "user-1", auth.RoleRider)

	w := httptest.NewRecorder()
	handlers.CreateRide(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp.Error.Code != ErrCodeUnknownSpot {
		t.Errorf("expected error code %s, got %s", ErrCodeUnknownSpot, errResp.Error.Code)
	}
}

func TestCreateRide_SamePickupAndDropoff(t *testing.T) {
	handlers := NewRideHandlers(ride.NewInMemoryRepository())

	body, _ := json.Marshal(CreateRideRequest{PickupSpot: "downtown", DropoffSpot: "downtown"})
	req := authedRequest(http.MethodPost, "/rides", body, "user-1", auth.RoleRider)

	w := httptest.NewRecorder()
	handlers.CreateRide(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestCreateRide_Unauthenticated(t *testing.T) {
	handlers := NewRideHandlers(ride.NewInMemoryRepository())

	body, _ := json.Marshal(CreateRideRequest{PickupSpot: "campus-north", DropoffSpot: "downtown"})
	req := httptest.NewRequest(http.MethodPost, "/rides", bytes.NewReader(body))

	w := httptest.NewRecorder()
	handlers.CreateRide(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestGetRide_OwnRide(t *testing.T) {
	repo := ride.NewInMemoryRepository()
	handlers := NewRideHandlers(repo)

	seeded := &ride.Ride{ID: "ride-1", RiderID: "user-1", PickupSpot: "campus-north", DropoffSpot: "downtown", Fare: 400, Status: ride.StatusBooked}
	if err := repo.Create(httptest.NewRequest(http.MethodGet, "/", nil).Context(), seeded); err != nil {
		t.Fatalf("failed to seed ride: %v", err)
	}

	req := authedRequest(http.MethodGet, "/rides/ride-1", nil, "user-1", auth.RoleRider)
	w := httptest.NewRecorder()
	handlers.GetRide(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetRide_OtherRidersRideForbidden(t *testing.T) {
	repo := ride.NewInMemoryRepository()
	handlers := NewRideHandlers(repo)

	seeded := &ride.Ride{ID: "ride-1", RiderID: "user-1", PickupSpot: "campus-north", DropoffSpot: "downtown", Fare: 400, Status: ride.StatusBooked}
	if err := repo.Create(httptest.NewRequest(http.MethodGet, "/", nil).Context(), seeded); err != nil {
		t.Fatalf("failed to seed ride: %v", err)
	}

	req := authedRequest(http.MethodGet, "/rides/ride-1", nil, "user-2", auth.RoleRider)
	w := httptest.NewRecorder()
	handlers.GetRide(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", w.Code)
	}

	// Admins can read any ride.
	req = authedRequest(http.MethodGet, "/rides/ride-1", nil, "admin-1", auth.RoleAdmin)
	w = httptest.NewRecorder()
	handlers.GetRide(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for admin, got %d", w.Code)
	}
}

func TestGetRide_NotFound(t *testing.T) {
	handlers := NewRideHandlers(ride.NewInMemoryRepository())

	req := authedRequest(http.MethodGet, "/rides/nope", nil, "user-1", auth.RoleRider)
	w := httptest.NewRecorder()
	handlers.GetRide(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestListSpots(t *testing.T) {
	handlers := NewRideHandlers(ride.NewInMemoryRepository())

	req := httptest.NewRequest(http.MethodGet, "/spots", nil)
	w := httptest.NewRecorder()
	handlers.ListSpots(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp struct {
		Spots []ride.Spot `json:"spots"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Spots) == 0 {
		t.Error("expected at least one spot")
	}
}
