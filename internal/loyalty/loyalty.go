// Package loyalty tracks per-rider loyalty point balances.
package loyalty

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/airbearhq/airbear/internal/tracing"
)

// Repository persists loyalty point balances.
type Repository interface {
	// AwardPoints adds points to a rider's balance, creating it if absent.
	AwardPoints(ctx context.Context, userID string, points int64) error

	// GetBalance returns a rider's current balance. Unknown riders have a
	// balance of zero, not an error.
	GetBalance(ctx context.Context, userID string) (int64, error)
}

// PostgresRepository stores balances in the loyalty_points table, one row per
// rider, upserted on award.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(database *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: database}
}

func (r *PostgresRepository) AwardPoints(ctx context.Context, userID string, points int64) error {
	ctx, end := tracing.StartDBSpan(ctx, "loyalty_points", tracing.DBOperationUpdate)
	var err error
	defer func() { end(err) }()

	query := `
		INSERT INTO loyalty_points (user_id, balance, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET balance = loyalty_points.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.ExecContext(ctx, query, userID, points, time.Now().UTC())
	if err != nil {
		err = fmt.Errorf("failed to award loyalty points: %w", err)
		return err
	}
	return nil
}

func (r *PostgresRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	ctx, end := tracing.StartDBSpan(ctx, "loyalty_points", tracing.DBOperationQuery)
	var err error
	defer func() { end(err) }()

	var balance int64
	err = r.db.QueryRowContext(ctx,
		`SELECT balance FROM loyalty_points WHERE user_id = $1`, userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
			return 0, nil
		}
		err = fmt.Errorf("failed to query loyalty balance: %w", err)
		return 0, err
	}
	return balance, nil
}

// InMemoryRepository backs tests and local development.
type InMemoryRepository struct {
	mu       sync.RWMutex
	balances map[string]int64
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{balances: make(map[string]int64)}
}

func (r *InMemoryRepository) AwardPoints(_ context.Context, userID string, points int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[userID] += points
	return nil
}

func (r *InMemoryRepository) GetBalance(_ context.Context, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.balances[userID], nil
}
