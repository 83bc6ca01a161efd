package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
)

func TestSnapshotRepository_RoundTrip(t *testing.T) {
	repo, err := NewSnapshotRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	snapshot := domain.CartSnapshot{
		Products: []domain.Product{
			{ID: 1, Title: "Backpack", Price: decimal.RequireFromString("109.95"), Quantity: 2},
		},
		TotalAmount:   decimal.RequireFromString("219.9"),
		ProductsCount: 2,
	}
	require.NoError(t, repo.Save(ctx, "local", snapshot))

	loaded, err := repo.Load(ctx, "local")
	require.NoError(t, err)
	require.Len(t, loaded.Products, 1)
	require.True(t, loaded.Products[0].Price.Equal(decimal.RequireFromString("109.95")))
	require.Equal(t, int64(2), loaded.Products[0].Quantity)
}

func TestSnapshotRepository_Missing(t *testing.T) {
	repo, err := NewSnapshotRepository(t.TempDir())
	require.NoError(t, err)

	_, err = repo.Load(context.Background(), "nobody")
	require.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestSnapshotRepository_Corrupt(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewSnapshotRepository(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cart-broken.json"), []byte("{not json"), 0o600))

	_, err = repo.Load(context.Background(), "broken")
	require.True(t, errors.Is(err, domain.ErrSnapshotCorrupt), "expected corrupt error, got %v", err)
}

func TestSnapshotRepository_RejectsPathTraversal(t *testing.T) {
	repo, err := NewSnapshotRepository(t.TempDir())
	require.NoError(t, err)

	err = repo.Save(context.Background(), "../escape", domain.EmptySnapshot())
	require.Error(t, err)
}

func TestSnapshotRepository_Delete(t *testing.T) {
	repo, err := NewSnapshotRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "local", domain.EmptySnapshot()))
	require.NoError(t, repo.Delete(ctx, "local"))
	require.NoError(t, repo.Delete(ctx, "local"))

	_, err = repo.Load(ctx, "local")
	require.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}
