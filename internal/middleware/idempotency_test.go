package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/airbearhq/airbear/internal/idempotency"
)

func TestIdempotency_MissingKey(t *testing.T) {
	repo := idempotency.NewInMemoryRepository()
	routes := map[string]bool{"/rides": true}
	mw := Idempotency(repo, routes)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"ride-1"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/rides", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "missing_idempotency_key") {
		t.Errorf("expected error code 'missing_idempotency_key', got %s", w.Body.String())
	}
}

func TestIdempotency_KeyTooLong(t *testing.T) {
	repo := idempotency.NewInMemoryRepository()
	routes := map[string]bool{"/rides": true}
	mw := Idempotency(repo, routes)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/rides", nil)
	req.Header.Set(IdempotencyKeyHeader, strings.Repeat("a", idempotency.MaxKeyLength+1))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "idempotency_key_too_long") {
		t.Errorf("expected error code 'idempotency_key_too_long', got %s", w.Body.String())
	}
}

func TestIdempotency_FirstRequestStoresResponse(t *testing.T) {
	repo := idempotency.NewInMemoryRepository()
	routes := map[string]bool{"/rides": true}
	mw := Idempotency(repo, routes)

	handlerCalled := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"ride-1","status":"pending"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/rides", nil)
	req.Header.Set(IdempotencyKeyHeader, "ride-key-123")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if !handlerCalled {
		t.Error("handler should have been called for first request")
	}
	if w.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", w.Code)
	}

	stored, err := repo.Get("ride-key-123")
	if err != nil {
		t.Fatalf("expected key to be stored: %v", err)
	}
	if stored.ResponseStatusCode != http.StatusCreated {
		t.Errorf("expected stored status 201, got %d", stored.ResponseStatusCode)
	}
	if stored.ResponseBody != `{"id":"ride-1","status":"pending"}` {
		t.Errorf("unexpected stored body: %s", stored.ResponseBody)
	}
}

func TestIdempotency_DuplicateReplaysCachedResponse(t *testing.T) {
	repo := idempotency.NewInMemoryRepository()
	routes := map[string]bool{"/rides": true}
	mw := Idempotency(repo, routes)

	calls := 0
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"ride-1"}`))
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/rides", nil)
		req.Header.Set(IdempotencyKeyHeader, "ride-key-456")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Errorf("request %d: expected status 201, got %d", i, w.Code)
		}
		if w.Body.String() != `{"id":"ride-1"}` {
			t.Errorf("request %d: unexpected body %s", i, w.Body.String())
		}
	}

	if calls != 1 {
		t.Errorf("expected handler to run once, ran %d times", calls)
	}
}

func TestIdempotency_ErrorResponseNotCached(t *testing.T) {
	repo := idempotency.NewInMemoryRepository()
	routes := map[string]bool{"/rides": true}
	mw := Idempotency(repo, routes)

	calls := 0
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"ride-1"}`))
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/rides", nil)
		req.Header.Set(IdempotencyKeyHeader, "ride-key-789")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
	}

	if calls != 2 {
		t.Errorf("expected handler to retry after a failed attempt, ran %d times", calls)
	}
	if _, err := repo.Get("ride-key-789"); err != nil {
		t.Errorf("expected successful retry to be cached: %v", err)
	}
}

func TestIdempotency_UnmatchedRouteBypassed(t *testing.T) {
	repo := idempotency.NewInMemoryRepository()
	routes := map[string]bool{"/rides": true}
	mw := Idempotency(repo, routes)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/spots", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 without idempotency key, got %d", w.Code)
	}
}
