package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
	"github.com/vladislavdragonenkov/cartstore/internal/storage/memory"
)

func newSnapshot() domain.CartSnapshot {
	return domain.CartSnapshot{
		Products: []domain.Product{
			{ID: 1, Title: "Backpack", Price: decimal.NewFromInt(10), Quantity: 2},
		},
		TotalAmount:   decimal.NewFromInt(20),
		ProductsCount: 2,
	}
}

func TestSnapshotRepository_SaveLoad(t *testing.T) {
	repo := memory.NewSnapshotRepository()
	ctx := context.Background()

	if err := repo.Save(ctx, "session-1", newSnapshot()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	stored, err := repo.Load(ctx, "session-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(stored.Products) != 1 || stored.Products[0].Quantity != 2 {
		t.Fatalf("unexpected products: %+v", stored.Products)
	}
}

func TestSnapshotRepository_LoadMissing(t *testing.T) {
	repo := memory.NewSnapshotRepository()

	_, err := repo.Load(context.Background(), "missing")
	if !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestSnapshotRepository_SaveCopiesInput(t *testing.T) {
	repo := memory.NewSnapshotRepository()
	ctx := context.Background()
	snapshot := newSnapshot()

	if err := repo.Save(ctx, "session-1", snapshot); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	snapshot.Products[0].Quantity = 99

	stored, err := repo.Load(ctx, "session-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if stored.Products[0].Quantity != 2 {
		t.Fatalf("expected stored qty 2, got %d", stored.Products[0].Quantity)
	}
}

func TestSnapshotRepository_Delete(t *testing.T) {
	repo := memory.NewSnapshotRepository()
	ctx := context.Background()

	if err := repo.Save(ctx, "session-1", newSnapshot()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := repo.Delete(ctx, "session-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := repo.Delete(ctx, "session-1"); err != nil {
		t.Fatalf("second delete must be a no-op, got %v", err)
	}
	if _, err := repo.Load(ctx, "session-1"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound after delete, got %v", err)
	}
}

func TestSnapshotRepository_SaveRequiresSession(t *testing.T) {
	repo := memory.NewSnapshotRepository()

	err := repo.Save(context.Background(), "", newSnapshot())
	if !errors.Is(err, domain.ErrSessionRequired) {
		t.Fatalf("expected ErrSessionRequired, got %v", err)
	}
}
