// Package order provides repository implementations for order persistence.
package order

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

// ErrOrderNotFound is returned when an order is not found.
var ErrOrderNotFound = errors.New("order not found")

// ErrDuplicateOrder is returned when an order with the same stripe_payment_id
// already exists. Callers treat it as "already processed", not a failure.
var ErrDuplicateOrder = errors.New("order already exists for payment reference")

// Repository defines methods for order persistence.
type Repository interface {
	// Insert persists a new order.
	// Returns ErrDuplicateOrder if an order with the same StripePaymentID exists.
	Insert(ctx context.Context, o *Order) error

	// GetByPaymentID retrieves an order by its processor payment reference.
	// Returns ErrOrderNotFound if none exists.
	GetByPaymentID(ctx context.Context, stripePaymentID string) (*Order, error)

	// UpdateStatus sets the order status by id.
	// Returns ErrOrderNotFound if no order with the id exists.
	UpdateStatus(ctx context.Context, id, status string) error
}

// PostgresRepository implements Repository using PostgreSQL.
// The orders.stripe_payment_id UNIQUE constraint is the authoritative
// duplicate guard; the fast-path lookup is only an optimization.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL order repository.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Insert persists a new order.
func (r *PostgresRepository) Insert(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "orders", tracing.DBOperationInsert)
	var err error
	defer func() { endSpan(err) }()

	query := `
		INSERT INTO orders (id, user_id, total_amount, currency, status, stripe_payment_id, ride_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err = r.db.ExecContext(ctx, query,
		o.ID, o.UserID, o.TotalAmount, o.Currency, o.Status, o.StripePaymentID, o.RideID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			err = ErrDuplicateOrder
			return err
		}
		err = fmt.Errorf("failed to insert order: %w", err)
		return err
	}
	return nil
}

// GetByPaymentID retrieves an order by its processor payment reference.
func (r *PostgresRepository) GetByPaymentID(ctx context.Context, stripePaymentID string) (*Order, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "orders", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	query := `
		SELECT id, user_id, total_amount, currency, status, stripe_payment_id, ride_id, created_at, updated_at
		FROM orders WHERE stripe_payment_id = $1
	`
	var o Order
	err = r.db.QueryRowContext(ctx, query, stripePaymentID).Scan(
		&o.ID, &o.UserID, &o.TotalAmount, &o.Currency, &o.Status,
		&o.StripePaymentID, &o.RideID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrOrderNotFound
			return nil, err
		}
		err = fmt.Errorf("failed to query order: %w", err)
		return nil, err
	}
	return &o, nil
}

// UpdateStatus sets the order status by id.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id, status string) error {
	ctx, endSpan := tracing.StartDBSpan(ctx, "orders", tracing.DBOperationUpdate)
	var err error
	defer func() { endSpan(err) }()

	query := `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		err = fmt.Errorf("failed to update order status: %w", err)
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		err = fmt.Errorf("failed to read rows affected: %w", err)
		return err
	}
	if rows == 0 {
		err = ErrOrderNotFound
		return err
	}
	return nil
}

// InMemoryRepository implements Repository with in-memory storage.
type InMemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

// NewInMemoryRepository creates a new in-memory order repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		orders: make(map[string]*Order),
	}
}

// Insert persists a new order. Enforces stripe_payment_id uniqueness the way
// the database constraint does.
func (r *InMemoryRepository) Insert(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.orders {
		if existing.StripePaymentID == o.StripePaymentID {
			return ErrDuplicateOrder
		}
	}

	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}

	now := time.Now()
	if o.CreatedAt == nil {
		o.CreatedAt = &now
	}
	if o.UpdatedAt == nil {
		o.UpdatedAt = &now
	}

	copied := *o
	r.orders[o.ID] = &copied

	return nil
}

// GetByPaymentID retrieves an order by its processor payment reference.
func (r *InMemoryRepository) GetByPaymentID(_ context.Context, stripePaymentID string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.orders {
		if o.StripePaymentID == stripePaymentID {
			copied := *o
			return &copied, nil
		}
	}
	return nil, ErrOrderNotFound
}

// UpdateStatus sets the order status by id.
func (r *InMemoryRepository) UpdateStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return ErrOrderNotFound
	}

	now := time.Now()
	o.Status = status
	o.UpdatedAt = &now
	return nil
}
