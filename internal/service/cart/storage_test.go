package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
	"github.com/vladislavdragonenkov/cartstore/internal/storage/memory"
)

type loadErrorRepository struct {
	domain.SnapshotRepository
	err error
}

func (r loadErrorRepository) Load(context.Context, string) (domain.CartSnapshot, error) {
	return domain.CartSnapshot{}, r.err
}

func TestSessionStorage_RoundTrip(t *testing.T) {
	repo := memory.NewSnapshotRepository()
	persister := NewPersister(repo)
	storage := NewSessionStorage("s1", repo, persister, nil)

	_, ok := storage.LoadState()
	require.False(t, ok)

	storage.SaveState(snapshotOf(product(1, "10")))
	require.Equal(t, 1, persister.Pending())
	require.NoError(t, persister.Flush(context.Background()))

	loaded, ok := storage.LoadState()
	require.True(t, ok)
	require.Len(t, loaded.Products, 1)
}

func TestSessionStorage_LoadErrorsStartEmpty(t *testing.T) {
	for name, err := range map[string]error{
		"corrupt":     domain.ErrSnapshotCorrupt,
		"unavailable": domain.ErrStorageUnavailable,
		"other":       errors.New("boom"),
	} {
		t.Run(name, func(t *testing.T) {
			storage := NewSessionStorage("s1", loadErrorRepository{err: err}, NewPersister(nil), nil)
			snapshot, ok := storage.LoadState()
			require.False(t, ok)
			require.Nil(t, snapshot.Products)
		})
	}
}

func TestSessionStorage_StoreSurvivesRestart(t *testing.T) {
	repo := memory.NewSnapshotRepository()
	persister := NewPersister(repo)

	first := NewStore(NewSessionStorage("s1", repo, persister, nil), &stubNotifier{})
	first.AddToCart(product(1, "10"))
	first.AddToCart(product(1, "10"))
	first.AddToCart(product(2, "2.5"))
	require.NoError(t, persister.Flush(context.Background()))

	second := NewStore(NewSessionStorage("s1", repo, persister, nil), &stubNotifier{})
	require.Equal(t, int64(3), second.ProductsCount())
	require.True(t, second.TotalAmount().Equal(dec("22.5")))
}
