package api

import (
	"log/slog"
	"net/http"

	"github.com/airbearhq/airbear/internal/middleware"
	"github.com/airbearhq/airbear/internal/stats"
)

// StatsHandlers holds dependencies for admin stats endpoints.
type StatsHandlers struct {
	statsService *stats.Service
}

// NewStatsHandlers creates a new StatsHandlers instance.
func NewStatsHandlers(statsService *stats.Service) *StatsHandlers {
	return &StatsHandlers{statsService: statsService}
}

// GetStats returns the operational summary. Restricted to admins by the
// RequireRole middleware on the route.
// GET /admin/stats
func (h *StatsHandlers) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.statsService.Summarize(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to compute stats", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to compute stats")
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}
