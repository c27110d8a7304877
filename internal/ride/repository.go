// Package ride provides repository implementations for ride persistence.
package ride

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/airbearhq/airbear/internal/tracing"
)

// ErrRideNotFound is returned when a ride is not found.
var ErrRideNotFound = errors.New("ride not found")

// Repository defines methods for ride persistence.
type Repository interface {
	Create(ctx context.Context, r *Ride) error
	GetByID(ctx context.Context, id string) (*Ride, error)
	// UpdateStatus sets the ride status by id.
	// Returns ErrRideNotFound if no ride with the id exists.
	UpdateStatus(ctx context.Context, id, status string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL ride repository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists a new ride. Generates an ID when none is set.
func (r *PostgresRepository) Create(ctx context.Context, ride *Ride) error {
	if ride.ID == "" {
		ride.ID = uuid.New().String()
	}
	if ride.Status == "" {
		ride.Status = StatusPending
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "rides", tracing.DBOperationInsert)
	var err error
	defer func() { endSpan(err) }()

	query := `
		INSERT INTO rides (id, rider_id, pickup_spot, dropoff_spot, fare, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err = r.db.ExecContext(ctx, query,
		ride.ID, ride.RiderID, ride.PickupSpot, ride.DropoffSpot, ride.Fare, ride.Status,
	)
	if err != nil {
		err = fmt.Errorf("failed to insert ride: %w", err)
		return err
	}
	return nil
}

// GetByID retrieves a ride by ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Ride, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "rides", tracing.DBOperationQuery)
	var err error
	defer func() { endSpan(err) }()

	query := `
		SELECT id, rider_id, pickup_spot, dropoff_spot, fare, status, created_at, updated_at
		FROM rides WHERE id = $1
	`
	var ride Ride
	err = r.db.QueryRowContext(ctx, query, id).Scan(
		&ride.ID, &ride.RiderID, &ride.PickupSpot, &ride.DropoffSpot,
		&ride.Fare, &ride.Status, &ride.CreatedAt, &ride.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrRideNotFound
			return nil, err
		}
		err = fmt.Errorf("failed to query ride: %w", err)
		return nil, err
	}
	return &ride, nil
}

// UpdateStatus sets the ride status by id.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id, status string) error {
	ctx, endSpan := tracing.StartDBSpan(ctx, "rides", tracing.DBOperationUpdate)
	var err error
	defer func() { endSpan(err) }()

	query := `UPDATE rides SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		err = fmt.Errorf("failed to update ride status: %w", err)
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		err = fmt.Errorf("failed to read rows affected: %w", err)
		return err
	}
	if rows == 0 {
		err = ErrRideNotFound
		return err
	}
	return nil
}

// InMemoryRepository implements Repository with in-memory storage.
type InMemoryRepository struct {
	mu    sync.RWMutex
	rides map[string]*Ride
}

// NewInMemoryRepository creates a new in-memory ride repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		rides: make(map[string]*Ride),
	}
}

// Create persists a new ride.
func (r *InMemoryRepository) Create(_ context.Context, ride *Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ride.ID == "" {
		ride.ID = uuid.New().String()
	}
	if ride.Status == "" {
		ride.Status = StatusPending
	}

	now := time.Now()
	if ride.CreatedAt == nil {
		ride.CreatedAt = &now
	}
	if ride.UpdatedAt == nil {
		ride.UpdatedAt = &now
	}

	// Deep copy to prevent external mutation
	copied := *ride
	r.rides[ride.ID] = &copied

	return nil
}

// GetByID retrieves a ride by ID.
func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*Ride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ride, ok := r.rides[id]
	if !ok {
		return nil, ErrRideNotFound
	}

	copied := *ride
	return &copied, nil
}

// UpdateStatus sets the ride status by id.
func (r *InMemoryRepository) UpdateStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok {
		return ErrRideNotFound
	}

	now := time.Now()
	ride.Status = status
	ride.UpdatedAt = &now
	return nil
}
