package payment

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func TestInMemoryRepository_InsertAndGet(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	rec := &Record{
		UserID:          "user-1",
		Amount:          400,
		Currency:        "usd",
		Status:          StatusSucceeded,
		StripePaymentID: "pi_123",
	}
	if err := repo.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("Expected generated id")
	}

	got, err := repo.GetByPaymentID(ctx, "pi_123")
	if err != nil {
		t.Fatalf("GetByPaymentID failed: %v", err)
	}
	if got.Amount != 400 || got.Status != StatusSucceeded {
		t.Errorf("Unexpected record: %+v", got)
	}
}

func TestInMemoryRepository_DuplicatePaymentID(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	first := &Record{UserID: "user-1", Amount: 400, Currency: "usd", Status: StatusSucceeded, StripePaymentID: "pi_123"}
	if err := repo.Insert(ctx, first); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	second := &Record{UserID: "user-2", Amount: 999, Currency: "usd", Status: StatusSucceeded, StripePaymentID: "pi_123"}
	if err := repo.Insert(ctx, second); !errors.Is(err, ErrDuplicateRecord) {
		t.Errorf("Expected ErrDuplicateRecord, got %v", err)
	}
}

func TestInMemoryRepository_NotFound(t *testing.T) {
	repo := NewInMemoryRepository()

	if _, err := repo.GetByPaymentID(context.Background(), "pi_missing"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}

func TestInMemoryRepository_ReturnsCopy(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	rec := &Record{UserID: "user-1", Amount: 400, Currency: "usd", Status: StatusSucceeded, StripePaymentID: "pi_123"}
	if err := repo.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, _ := repo.GetByPaymentID(ctx, "pi_123")
	got.Status = StatusFailed

	again, _ := repo.GetByPaymentID(ctx, "pi_123")
	if again.Status != StatusSucceeded {
		t.Error("Mutating a returned record leaked into the repository")
	}
}

func TestPostgresRepository_InsertUniqueViolation(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	mock.ExpectExec("INSERT INTO payments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "payments_stripe_payment_id_key"})

	repo := NewPostgresRepository(mockDB)
	rec := &Record{UserID: "user-1", Amount: 400, Currency: "usd", Status: StatusSucceeded, StripePaymentID: "pi_123"}

	if err := repo.Insert(context.Background(), rec); !errors.Is(err, ErrDuplicateRecord) {
		t.Errorf("Expected ErrDuplicateRecord, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestPostgresWebhookRepository_RecordDuplicate(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	mock.ExpectExec("INSERT INTO webhook_events").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "webhook_events_event_id_key"})

	repo := NewPostgresWebhookRepository(mockDB)
	if err := repo.RecordEvent(context.Background(), "evt_1", "payment_intent.succeeded"); !errors.Is(err, ErrEventAlreadyProcessed) {
		t.Errorf("Expected ErrEventAlreadyProcessed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}
