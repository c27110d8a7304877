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

var (
	ErrRecordNotFound  = errors.New("payment record not found")
	ErrDuplicateRecord = errors.New("payment record already exists for this payment reference")
)

// Repository persists payment records keyed by processor payment reference.
type Repository interface {
	Insert(ctx context.Context, rec *Record) error
	GetByPaymentID(ctx context.Context, stripePaymentID string) (*Record, error)
}

// PostgresRepository is the production implementation. The UNIQUE constraint
// on stripe_payment_id makes duplicate inserts fail with 23505, which is
// surfaced as ErrDuplicateRecord.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(database *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: database}
}

func (r *PostgresRepository) Insert(ctx context.Context, rec *Record) error {
	ctx, end := tracing.StartDBSpan(ctx, "payments", tracing.DBOperationInsert)
	var err error
	defer func() { end(err) }()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO payments (id, user_id, amount, currency, status, stripe_payment_id, order_id, ride_id, failure_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.Amount, rec.Currency, rec.Status,
		rec.StripePaymentID, rec.OrderID, rec.RideID, rec.FailureReason, rec.CreatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			err = ErrDuplicateRecord
			return err
		}
		err = fmt.Errorf("failed to insert payment record: %w", err)
		return err
	}
	return nil
}

func (r *PostgresRepository) GetByPaymentID(ctx context.Context, stripePaymentID string) (*Record, error) {
	ctx, end := tracing.StartDBSpan(ctx, "payments", tracing.DBOperationQuery)
	var err error
	defer func() { end(err) }()

	query := `
		SELECT id, user_id, amount, currency, status, stripe_payment_id, order_id, ride_id, failure_reason, created_at, updated_at
		FROM payments
		WHERE stripe_payment_id = $1
	`
	rec := &Record{}
	err = r.db.QueryRowContext(ctx, query, stripePaymentID).Scan(
		&rec.ID, &rec.UserID, &rec.Amount, &rec.Currency, &rec.Status,
		&rec.StripePaymentID, &rec.OrderID, &rec.RideID, &rec.FailureReason,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrRecordNotFound
			return nil, err
		}
		err = fmt.Errorf("failed to query payment record: %w", err)
		return nil, err
	}
	return rec, nil
}

// InMemoryRepository backs tests and local development.
type InMemoryRepository struct {
	mu        sync.RWMutex
	byPayment map[string]*Record
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byPayment: make(map[string]*Record)}
}

func (r *InMemoryRepository) Insert(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byPayment[rec.StripePaymentID]; exists {
		return ErrDuplicateRecord
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	r.byPayment[rec.StripePaymentID] = copyRecord(rec)
	return nil
}

func (r *InMemoryRepository) GetByPaymentID(_ context.Context, stripePaymentID string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byPayment[stripePaymentID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return copyRecord(rec), nil
}

func copyRecord(rec *Record) *Record {
	c := *rec
	if rec.OrderID != nil {
		v := *rec.OrderID
		c.OrderID = &v
	}
	if rec.RideID != nil {
		v := *rec.RideID
		c.RideID = &v
	}
	if rec.FailureReason != nil {
		v := *rec.FailureReason
		c.FailureReason = &v
	}
	if rec.UpdatedAt != nil {
		v := *rec.UpdatedAt
		c.UpdatedAt = &v
	}
	return &c
}
