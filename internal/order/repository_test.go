package order

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func TestInMemory_InsertAndGetByPaymentID(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	o := &Order{
		UserID:          "u1",
		TotalAmount:     400,
		Currency:        "usd",
		Status:          StatusCompleted,
		StripePaymentID: "pi_123",
	}
	if err := repo.Insert(ctx, o); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := repo.GetByPaymentID(ctx, "pi_123")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.UserID != "u1" || got.TotalAmount != 400 {
		t.Errorf("unexpected order %+v", got)
	}
}

func TestInMemory_Insert_DuplicatePaymentID(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	first := &Order{UserID: "u1", StripePaymentID: "pi_123", Status: StatusCompleted}
	if err := repo.Insert(ctx, first); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	second := &Order{UserID: "u1", StripePaymentID: "pi_123", Status: StatusCompleted}
	if err := repo.Insert(ctx, second); !errors.Is(err, ErrDuplicateOrder) {
		t.Errorf("expected ErrDuplicateOrder, got %v", err)
	}
}

func TestInMemory_GetByPaymentID_NotFound(t *testing.T) {
	repo := NewInMemoryRepository()

	if _, err := repo.GetByPaymentID(context.Background(), "pi_missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestPostgres_Insert_UniqueViolationMapsToDuplicate(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	repo := NewPostgresRepository(mockDB)

	mock.ExpectExec("INSERT INTO orders").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_stripe_payment_id_key"})

	o := &Order{UserID: "u1", StripePaymentID: "pi_123"}
	if err := repo.Insert(context.Background(), o); !errors.Is(err, ErrDuplicateOrder) {
		t.Errorf("expected ErrDuplicateOrder for unique violation, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgres_UpdateStatus_NotFound(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	repo := NewPostgresRepository(mockDB)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(StatusFailed, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UpdateStatus(context.Background(), "missing", StatusFailed); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}
