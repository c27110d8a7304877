package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/airbearhq/airbear/internal/middleware"
	"github.com/airbearhq/airbear/internal/payment"
)

// WebhookHandlers holds dependencies for webhook-related HTTP handlers.
type WebhookHandlers struct {
	webhookSecret string
	webhookRepo   payment.WebhookRepository
	reconciler    *payment.Reconciler
	metrics       *middleware.Metrics
}

// NewWebhookHandlers creates a new WebhookHandlers instance. metrics may be
// nil in tests.
func NewWebhookHandlers(
	webhookSecret string,
	webhookRepo payment.WebhookRepository,
	reconciler *payment.Reconciler,
	metrics *middleware.Metrics,
) *WebhookHandlers {
	return &WebhookHandlers{
		webhookSecret: webhookSecret,
		webhookRepo:   webhookRepo,
		reconciler:    reconciler,
		metrics:       metrics,
	}
}

// HandleStripeWebhook processes Stripe webhook events with signature
// verification.
// POST /internal/stripe
//
// The response status is the contract with the processor's retry loop:
// 400 rejects a delivery that can never succeed (bad signature, malformed
// payload), 500 asks for a retry after a transient storage failure, and 200
// acknowledges everything else, including duplicates and event types we do
// not act on.
func (h *WebhookHandlers) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "failed to read request body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeInvalidSignature)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidSignature, "missing Stripe-Signature header")
		return
	}

	stripeEvent, err := webhook.ConstructEvent(body, signature, h.webhookSecret)
	if err != nil {
		slog.WarnContext(ctx, "webhook signature verification failed", "error", err)
		h.incEvent("unknown", "rejected")
		ctx = middleware.SetErrorCode(ctx, ErrCodeInvalidSignature)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidSignature, "invalid signature")
		return
	}

	// Log minimal event info (type and ID only, not full payload).
	slog.InfoContext(ctx, "webhook event received", "event_type", stripeEvent.Type, "event_id", stripeEvent.ID)

	ev, err := payment.FromStripeEvent(stripeEvent)
	if err != nil {
		slog.WarnContext(ctx, "webhook payload malformed", "event_id", stripeEvent.ID, "error", err)
		h.incEvent(string(stripeEvent.Type), "rejected")
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "malformed event payload")
		return
	}

	// Re-delivery of an envelope we already finished: acknowledge and stop.
	processed, err := h.webhookRepo.HasProcessed(ctx, ev.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check webhook event", "event_id", ev.ID, "error", err)
		h.incEvent(string(ev.Type), "failed")
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to process webhook")
		return
	}
	if processed {
		slog.InfoContext(ctx, "webhook event already processed, ignoring", "event_id", ev.ID)
		h.incDuplicate()
		h.incEvent(string(ev.Type), "duplicate")
		WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	outcome, err := h.reconciler.Reconcile(ctx, ev)
	if err != nil {
		// No completion record was written, so asking the processor to
		// retry cannot double-apply.
		slog.ErrorContext(ctx, "webhook reconciliation failed",
			"event_id", ev.ID, "event_type", ev.Type, "error", err)
		h.incEvent(string(ev.Type), "failed")
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to process webhook")
		return
	}

	// Mark the envelope done only after reconciliation, so a crash between
	// the two is resolved by a retried delivery hitting the reconciler's
	// own idempotency instead of being silently dropped.
	if err := h.webhookRepo.RecordEvent(ctx, ev.ID, string(stripeEvent.Type)); err != nil && !errors.Is(err, payment.ErrEventAlreadyProcessed) {
		slog.ErrorContext(ctx, "failed to record webhook event", "event_id", ev.ID, "error", err)
		h.incEvent(string(ev.Type), "failed")
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "failed to process webhook")
		return
	}

	if outcome == payment.OutcomeDuplicate {
		h.incDuplicate()
	}
	h.incEvent(string(ev.Type), string(outcome))
	WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *WebhookHandlers) incEvent(eventType, outcome string) {
	if h.metrics != nil {
		h.metrics.IncWebhookEvent(eventType, outcome)
	}
}

func (h *WebhookHandlers) incDuplicate() {
	if h.metrics != nil {
		h.metrics.IncWebhookDuplicate()
	}
}
