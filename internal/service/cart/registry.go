package cart

import (
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
	"github.com/vladislavdragonenkov/cartstore/internal/metrics"
)

// NotifierFactory создаёт канал уведомлений для сессии.
type NotifierFactory func(sessionID string) domain.Notifier

// Registry держит по одной корзине на сессию.
type Registry struct {
	mu       sync.Mutex
	stores   map[string]*Store
	lastSeen map[string]time.Time
	now      func() time.Time

	repo      domain.SnapshotRepository
	persister *Persister
	notifiers NotifierFactory
	logger    *log.Entry
	metrics   *metrics.CartMetrics
	options   []StoreOption
}

// NewRegistry создаёт реестр корзин.
func NewRegistry(repo domain.SnapshotRepository, persister *Persister, notifiers NotifierFactory, options ...StoreOption) *Registry {
	opts := StoreOptions{}
	for _, option := range options {
		option(&opts)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart-registry")
	}

	return &Registry{
		stores:    make(map[string]*Store),
		lastSeen:  make(map[string]time.Time),
		now:       time.Now,
		repo:      repo,
		persister: persister,
		notifiers: notifiers,
		logger:    logger,
		metrics:   opts.Metrics,
		options:   options,
	}
}

// Session возвращает корзину сессии, при первом обращении восстанавливая её из хранилища.
// Чтение снимка идёт без блокировки реестра, чтобы медленное хранилище
// не задерживало обращения к уже открытым корзинам.
func (r *Registry) Session(sessionID string) (*Store, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.ErrSessionRequired
	}

	if store, ok := r.cached(sessionID); ok {
		return store, nil
	}

	logger := r.logger.WithField("session_id", sessionID)
	storage := NewSessionStorage(sessionID, r.repo, r.persister, logger)
	options := append([]StoreOption{}, r.options...)
	options = append(options, WithLogger(logger))
	store := NewStore(storage, r.notifiers(sessionID), options...)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastSeen[sessionID] = r.now()
	if existing, ok := r.stores[sessionID]; ok {
		// параллельный вызов успел открыть сессию раньше
		return existing, nil
	}
	r.stores[sessionID] = store
	r.metrics.SetActiveSessions(len(r.stores))
	logger.Debug("cart session opened")

	return store, nil
}

func (r *Registry) cached(sessionID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	store, ok := r.stores[sessionID]
	if ok {
		r.lastSeen[sessionID] = r.now()
	}
	return store, ok
}

// EvictIdle выгружает из памяти сессии, к которым не обращались с момента before.
// Сессии с несохранённым снимком остаются: при следующем обращении корзина
// восстанавливается из хранилища и не должна потерять последние изменения.
func (r *Registry) EvictIdle(before time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for sessionID, seen := range r.lastSeen {
		if !seen.Before(before) {
			continue
		}
		if r.persister != nil && r.persister.Busy(sessionID) {
			continue
		}
		delete(r.stores, sessionID)
		delete(r.lastSeen, sessionID)
		evicted++
	}

	if evicted > 0 {
		r.metrics.SetActiveSessions(len(r.stores))
		r.metrics.RecordSessionsEvicted(evicted)
	}
	return evicted
}

// Len возвращает количество открытых сессий.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
