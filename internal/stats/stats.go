// Package stats computes operational aggregates for the admin dashboard.
package stats

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/airbearhq/airbear/internal/tracing"
)

// Summary is the admin dashboard snapshot.
type Summary struct {
	RidesByStatus    map[string]int64 `json:"rides_by_status"`
	TotalPaymentsUSD int64            `json:"total_payments_cents"` // succeeded payments, cents
	FailedPayments   int64            `json:"failed_payments"`
	OrdersCompleted  int64            `json:"orders_completed"`
}

// Service queries aggregate counts from Postgres.
type Service struct {
	db *sql.DB
}

func New(database *sql.DB) *Service {
	return &Service{db: database}
}

// Summarize computes the current snapshot.
func (s *Service) Summarize(ctx context.Context) (*Summary, error) {
	ctx, end := tracing.StartDBSpan(ctx, "stats", tracing.DBOperationQuery)
	var err error
	defer func() { end(err) }()

	summary := &Summary{RidesByStatus: make(map[string]int64)}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM rides GROUP BY status`)
	if err != nil {
		err = fmt.Errorf("failed to count rides: %w", err)
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err = rows.Scan(&status, &count); err != nil {
			err = fmt.Errorf("failed to scan ride counts: %w", err)
			return nil, err
		}
		summary.RidesByStatus[status] = count
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("failed to iterate ride counts: %w", err)
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'succeeded'`,
	).Scan(&summary.TotalPaymentsUSD)
	if err != nil {
		err = fmt.Errorf("failed to sum payments: %w", err)
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments WHERE status = 'failed'`,
	).Scan(&summary.FailedPayments)
	if err != nil {
		err = fmt.Errorf("failed to count failed payments: %w", err)
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE status = 'completed'`,
	).Scan(&summary.OrdersCompleted)
	if err != nil {
		err = fmt.Errorf("failed to count orders: %w", err)
		return nil, err
	}

	return summary, nil
}
