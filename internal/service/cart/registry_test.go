package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
	"github.com/vladislavdragonenkov/cartstore/internal/storage/memory"
)

func TestRegistry_SessionIsolationAndCaching(t *testing.T) {
	repo := memory.NewSnapshotRepository()
	notifiers := map[string]*stubNotifier{}
	var mu sync.Mutex
	registry := NewRegistry(repo, NewPersister(repo), func(sessionID string) domain.Notifier {
		mu.Lock()
		defer mu.Unlock()
		n := &stubNotifier{}
		notifiers[sessionID] = n
		return n
	})

	a, err := registry.Session("alice")
	require.NoError(t, err)
	b, err := registry.Session(" bob ")
	require.NoError(t, err)

	again, err := registry.Session("alice")
	require.NoError(t, err)
	require.Same(t, a, again)

	bobAgain, err := registry.Session("bob")
	require.NoError(t, err)
	require.Same(t, b, bobAgain)

	a.AddToCart(product(1, "10"))
	require.Equal(t, int64(1), a.ProductsCount())
	require.Zero(t, b.ProductsCount())
	require.Len(t, notifiers["alice"].all(), 1)
	require.Empty(t, notifiers["bob"].all())
	require.Equal(t, 2, registry.Len())
}

func TestRegistry_RequiresSession(t *testing.T) {
	registry := NewRegistry(memory.NewSnapshotRepository(), NewPersister(nil), func(string) domain.Notifier { return &stubNotifier{} })

	for _, id := range []string{"", "   "} {
		_, err := registry.Session(id)
		require.ErrorIs(t, err, domain.ErrSessionRequired)
	}
	require.Zero(t, registry.Len())
}

func TestRegistry_HydratesFromRepository(t *testing.T) {
	repo := memory.NewSnapshotRepository()
	require.NoError(t, repo.Save(context.Background(), "carol", snapshotOf(product(5, "4"), product(6, "1"))))

	registry := NewRegistry(repo, NewPersister(repo), func(string) domain.Notifier { return &stubNotifier{} })
	store, err := registry.Session("carol")
	require.NoError(t, err)

	require.Equal(t, int64(2), store.ProductsCount())
	require.True(t, store.TotalAmount().Equal(dec("5")))
}

func TestRegistry_ConcurrentSessionLookup(t *testing.T) {
	registry := NewRegistry(memory.NewSnapshotRepository(), NewPersister(nil), func(string) domain.Notifier { return &stubNotifier{} })

	stores := make([]*Store, 20)
	var wg sync.WaitGroup
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := registry.Session("shared")
			if err == nil {
				stores[i] = s
			}
		}(i)
	}
	wg.Wait()

	for _, s := range stores {
		require.Same(t, stores[0], s)
	}
	require.Equal(t, 1, registry.Len())
}

// slowLoadRepository задерживает Load выбранной сессии до закрытия release.
type slowLoadRepository struct {
	domain.SnapshotRepository

	slowSession string
	entered     chan struct{}
	release     chan struct{}
}

func (r *slowLoadRepository) Load(ctx context.Context, sessionID string) (domain.CartSnapshot, error) {
	if sessionID == r.slowSession {
		close(r.entered)
		<-r.release
	}
	return r.SnapshotRepository.Load(ctx, sessionID)
}

func TestRegistry_SlowLoadDoesNotBlockOtherSessions(t *testing.T) {
	repo := &slowLoadRepository{
		SnapshotRepository: memory.NewSnapshotRepository(),
		slowSession:        "slow",
		entered:            make(chan struct{}),
		release:            make(chan struct{}),
	}
	registry := NewRegistry(repo, NewPersister(repo), func(string) domain.Notifier { return &stubNotifier{} })

	fast, err := registry.Session("fast")
	require.NoError(t, err)

	slowDone := make(chan *Store)
	go func() {
		s, _ := registry.Session("slow")
		slowDone <- s
	}()
	<-repo.entered

	lookup := make(chan *Store)
	go func() {
		s, _ := registry.Session("fast")
		lookup <- s
	}()
	select {
	case s := <-lookup:
		require.Same(t, fast, s)
	case <-time.After(time.Second):
		t.Fatal("cached session lookup waited for a slow load")
	}

	close(repo.release)
	require.NotNil(t, <-slowDone)
	require.Equal(t, 2, registry.Len())
}
