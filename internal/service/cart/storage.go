package cart

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
)

const defaultLoadTimeout = 5 * time.Second

// SessionStorage связывает корзину одной сессии с репозиторием снимков.
// Чтение синхронное, запись уходит в Persister.
type SessionStorage struct {
	sessionID string
	repo      domain.SnapshotRepository
	persister *Persister
	logger    *log.Entry
}

// NewSessionStorage создаёт хранилище корзины для сессии.
func NewSessionStorage(sessionID string, repo domain.SnapshotRepository, persister *Persister, logger *log.Entry) *SessionStorage {
	if logger == nil {
		logger = log.WithField("component", "cart-storage")
	}
	return &SessionStorage{
		sessionID: sessionID,
		repo:      repo,
		persister: persister,
		logger:    logger.WithField("session_id", sessionID),
	}
}

// LoadState читает сохранённый снимок. Отсутствующий или повреждённый снимок
// даёт false: корзина начинает с пустого списка.
func (s *SessionStorage) LoadState() (domain.CartSnapshot, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultLoadTimeout)
	defer cancel()

	snapshot, err := s.repo.Load(ctx, s.sessionID)
	switch {
	case err == nil:
		return snapshot, true
	case errors.Is(err, domain.ErrSnapshotNotFound):
		return domain.CartSnapshot{}, false
	case errors.Is(err, domain.ErrSnapshotCorrupt):
		s.logger.WithError(err).Warn("saved cart is corrupt, starting empty")
		return domain.CartSnapshot{}, false
	default:
		s.logger.WithError(err).Warn("failed to load saved cart, starting empty")
		return domain.CartSnapshot{}, false
	}
}

// SaveState ставит снимок в очередь на запись.
func (s *SessionStorage) SaveState(snapshot domain.CartSnapshot) {
	s.persister.Enqueue(s.sessionID, snapshot)
}

var _ domain.CartStorage = (*SessionStorage)(nil)
