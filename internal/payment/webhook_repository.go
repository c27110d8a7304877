package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/airbearhq/airbear/internal/db"
	"github.com/airbearhq/airbear/internal/tracing"
)

// ErrEventAlreadyProcessed is returned when attempting to record a duplicate
// webhook event.
var ErrEventAlreadyProcessed = errors.New("webhook event already processed")

// WebhookEvent represents a processed webhook event for idempotency tracking.
type WebhookEvent struct {
	ID          string
	EventID     string // processor event ID (evt_*)
	EventType   string
	ProcessedAt time.Time
}

// WebhookRepository tracks processed event IDs so re-deliveries of the same
// envelope are acknowledged without touching domain state. This is the first
// idempotency layer; the payment-reference keys in the payments and orders
// tables are the second.
type WebhookRepository interface {
	// RecordEvent records a webhook event as processed.
	// Returns ErrEventAlreadyProcessed if the event was already recorded.
	RecordEvent(ctx context.Context, eventID, eventType string) error

	// HasProcessed checks if an event has already been processed.
	HasProcessed(ctx context.Context, eventID string) (bool, error)
}

// PostgresWebhookRepository stores processed events in webhook_events with a
// UNIQUE constraint on event_id, so concurrent duplicate deliveries race on
// the constraint rather than on application state.
type PostgresWebhookRepository struct {
	db *sql.DB
}

func NewPostgresWebhookRepository(database *sql.DB) *PostgresWebhookRepository {
	return &PostgresWebhookRepository{db: database}
}

func (r *PostgresWebhookRepository) RecordEvent(ctx context.Context, eventID, eventType string) error {
	ctx, end := tracing.StartDBSpan(ctx, "webhook_events", tracing.DBOperationInsert)
	var err error
	defer func() { end(err) }()

	query := `
		INSERT INTO webhook_events (id, event_id, event_type, processed_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err = r.db.ExecContext(ctx, query, uuid.New().String(), eventID, eventType, time.Now().UTC())
	if err != nil {
		if db.IsUniqueViolation(err) {
			err = ErrEventAlreadyProcessed
			return err
		}
		err = fmt.Errorf("failed to record webhook event: %w", err)
		return err
	}
	return nil
}

func (r *PostgresWebhookRepository) HasProcessed(ctx context.Context, eventID string) (bool, error) {
	ctx, end := tracing.StartDBSpan(ctx, "webhook_events", tracing.DBOperationQuery)
	var err error
	defer func() { end(err) }()

	var exists bool
	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM webhook_events WHERE event_id = $1)`, eventID,
	).Scan(&exists)
	if err != nil {
		err = fmt.Errorf("failed to check webhook event: %w", err)
		return false, err
	}
	return exists, nil
}

// InMemoryWebhookRepository implements WebhookRepository with in-memory storage.
type InMemoryWebhookRepository struct {
	mu     sync.RWMutex
	events map[string]*WebhookEvent // event_id -> WebhookEvent
}

// NewInMemoryWebhookRepository creates a new in-memory webhook repository.
func NewInMemoryWebhookRepository() *InMemoryWebhookRepository {
	return &InMemoryWebhookRepository{
		events: make(map[string]*WebhookEvent),
	}
}

// RecordEvent records a webhook event as processed.
func (r *InMemoryWebhookRepository) RecordEvent(_ context.Context, eventID, eventType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.events[eventID]; exists {
		return ErrEventAlreadyProcessed
	}

	r.events[eventID] = &WebhookEvent{
		ID:          uuid.New().String(),
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now(),
	}
	return nil
}

// HasProcessed checks if an event has already been processed.
func (r *InMemoryWebhookRepository) HasProcessed(_ context.Context, eventID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.events[eventID]
	return exists, nil
}
