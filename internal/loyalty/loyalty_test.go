package loyalty

import (
	"context"
	"testing"
)

func TestInMemoryRepository_AwardAndBalance(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if err := repo.AwardPoints(ctx, "user-1", 4); err != nil {
		t.Fatalf("AwardPoints failed: %v", err)
	}
	if err := repo.AwardPoints(ctx, "user-1", 6); err != nil {
		t.Fatalf("AwardPoints failed: %v", err)
	}

	balance, err := repo.GetBalance(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 10 {
		t.Errorf("Expected balance 10, got %d", balance)
	}
}

func TestInMemoryRepository_UnknownUserHasZeroBalance(t *testing.T) {
	repo := NewInMemoryRepository()

	balance, err := repo.GetBalance(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("Expected zero balance for unknown user, got %d", balance)
	}
}
