package ride

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestInMemory_CreateAndGet(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	r := &Ride{
		RiderID:     "rider-1",
		PickupSpot:  "campus-north",
		DropoffSpot: "downtown",
		Fare:        400,
	}
	if err := repo.Create(ctx, r); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if r.ID == "" {
		t.Fatal("expected generated ride ID")
	}

	got, err := repo.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("expected default status pending, got %q", got.Status)
	}
	if got.Fare != 400 {
		t.Errorf("expected fare 400, got %d", got.Fare)
	}
}

func TestInMemory_UpdateStatus(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	r := &Ride{RiderID: "rider-1", PickupSpot: "stadium", DropoffSpot: "downtown", Fare: 400}
	if err := repo.Create(ctx, r); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.UpdateStatus(ctx, r.ID, StatusCompleted); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, _ := repo.GetByID(ctx, r.ID)
	if got.Status != StatusCompleted {
		t.Errorf("expected completed, got %q", got.Status)
	}
	if !got.IsTerminal() {
		t.Error("completed ride should be terminal")
	}
}

func TestInMemory_UpdateStatus_NotFound(t *testing.T) {
	repo := NewInMemoryRepository()

	err := repo.UpdateStatus(context.Background(), "missing", StatusCancelled)
	if !errors.Is(err, ErrRideNotFound) {
		t.Errorf("expected ErrRideNotFound, got %v", err)
	}
}

func TestFareFor(t *testing.T) {
	tests := []struct {
		name    string
		pickup  string
		dropoff string
		want    int64
		wantErr error
	}{
		{name: "valid trip", pickup: "campus-north", dropoff: "downtown", want: 400},
		{name: "unknown pickup", pickup: "nowhere", dropoff: "downtown", wantErr: ErrUnknownSpot},
		{name: "unknown dropoff", pickup: "downtown", dropoff: "nowhere", wantErr: ErrUnknownSpot},
		{name: "same spot", pickup: "downtown", dropoff: "downtown", wantErr: ErrSameSpot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fare, err := FareFor(tt.pickup, tt.dropoff)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fare != tt.want {
				t.Errorf("expected fare %d, got %d", tt.want, fare)
			}
		})
	}
}

func TestPostgres_UpdateStatus(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer mockDB.Close()

	repo := NewPostgresRepository(mockDB)

	mock.ExpectExec("UPDATE rides SET status").
		WithArgs(StatusCompleted, "ride-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateStatus(context.Background(), "ride-1", StatusCompleted); err != nil {
		t.Fatalf("update failed: %v", err)
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

	mock.ExpectExec("UPDATE rides SET status").
		WithArgs(StatusCancelled, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UpdateStatus(context.Background(), "missing", StatusCancelled); !errors.Is(err, ErrRideNotFound) {
		t.Errorf("expected ErrRideNotFound, got %v", err)
	}
}
