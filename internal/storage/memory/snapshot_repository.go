package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
)

// snapshotRepositoryInMemory - простая in-memory реализация SnapshotRepository.
type snapshotRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.CartSnapshot
}

// NewSnapshotRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewSnapshotRepository() domain.SnapshotRepository {
	return &snapshotRepositoryInMemory{
		items: make(map[string]domain.CartSnapshot),
	}
}

// Load возвращает снимок сессии или ErrSnapshotNotFound.
func (r *snapshotRepositoryInMemory) Load(_ context.Context, sessionID string) (domain.CartSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, ok := r.items[sessionID]
	if !ok {
		return domain.CartSnapshot{}, domain.ErrSnapshotNotFound
	}
	return snapshot.Clone(), nil
}

// Save перезаписывает снимок сессии.
func (r *snapshotRepositoryInMemory) Save(ctx context.Context, sessionID string, snapshot domain.CartSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sessionID == "" {
		return domain.ErrSessionRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[sessionID] = snapshot.Clone()
	return nil
}

// Delete удаляет снимок сессии.
func (r *snapshotRepositoryInMemory) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, sessionID)
	return nil
}

var _ domain.SnapshotRepository = (*snapshotRepositoryInMemory)(nil)
