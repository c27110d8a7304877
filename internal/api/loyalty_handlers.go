package api

import (
	"log/slog"
	"net/http"

	"github.com/airbearhq/airbear/internal/loyalty"
	"github.com/airbearhq/airbear/internal/middleware"
)

// LoyaltyHandlers holds dependencies for loyalty endpoints.
type LoyaltyHandlers struct {
	loyaltyRepo loyalty.Repository
}

// NewLoyaltyHandlers creates a new LoyaltyHandlers instance.
func NewLoyaltyHandlers(loyaltyRepo loyalty.Repository) *LoyaltyHandlers {
	return &LoyaltyHandlers{loyaltyRepo: loyaltyRepo}
}

// GetBalance returns the authenticated rider's loyalty balance.
// GET /loyalty/balance
func (h *LoyaltyHandlers) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middleware.GetUserID(ctx)
	if userID == "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "authentication required")
		return
	}

	balance, err := h.loyaltyRepo.GetBalance(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get loyalty balance", "user_id", userID, "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to get balance")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}
