package cart

import (
	"sync"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
	"github.com/vladislavdragonenkov/cartstore/internal/metrics"
)

// Тексты уведомлений, которые видит пользователь.
const (
	NotificationTitle      = "ADM STORE"
	MessageProductAdded    = "Product added!!"
	MessageProductRemoved  = "Product removed!!"
	MessageProductNotFound = "Product not found in cart"
	MessageRemoveFailed    = "Error removing product"
	MessageCartCleared     = "All Products removed!"
)

// RemoveResult описывает исход RemoveFromCart.
type RemoveResult string

const (
	RemoveRemoved  RemoveResult = "removed"
	RemoveNotFound RemoveResult = "not_found"
	RemoveInvalid  RemoveResult = "invalid"
	RemoveFailed   RemoveResult = "failed"
)

// StoreOptions задаёт необязательные зависимости Store.
type StoreOptions struct {
	Logger  *log.Entry
	Metrics *metrics.CartMetrics
}

// StoreOption настраивает Store.
type StoreOption func(*StoreOptions)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) StoreOption {
	return func(opts *StoreOptions) {
		opts.Logger = logger
	}
}

// WithMetrics задаёт метрики операций.
func WithMetrics(m *metrics.CartMetrics) StoreOption {
	return func(opts *StoreOptions) {
		opts.Metrics = m
	}
}

// Store - единственный источник истины о содержимом корзины в рамках сессии.
//
// Каждая мутация выполняется в порядке: изменение списка -> пересчёт
// агрегатов -> передача снимка в хранилище -> уведомление пользователя.
type Store struct {
	mu       sync.RWMutex
	products []domain.Product

	storage  domain.CartStorage
	notifier domain.Notifier
	calc     Calculator
	logger   *log.Entry
	metrics  *metrics.CartMetrics
}

// NewStore создаёт корзину и восстанавливает список позиций из storage, если снимок есть.
// Агрегаты сохранённого снимка не используются: они всегда пересчитываются.
func NewStore(storage domain.CartStorage, notifier domain.Notifier, options ...StoreOption) *Store {
	opts := StoreOptions{}
	for _, option := range options {
		option(&opts)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart-store")
	}

	s := &Store{
		products: []domain.Product{},
		storage:  storage,
		notifier: notifier,
		calc:     NewCalculator(),
		logger:   logger,
		metrics:  opts.Metrics,
	}

	if saved, ok := storage.LoadState(); ok && saved.Products != nil {
		s.products = domain.CloneProducts(saved.Products)
		logger.WithField("products", len(s.products)).Debug("cart hydrated from saved state")
	}

	return s
}

// Products возвращает копию текущего списка позиций.
func (s *Store) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calc.Snapshot(s.products).Products
}

// TotalAmount возвращает сумму корзины, вычисленную по текущему списку.
func (s *Store) TotalAmount() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calc.CalculateTotal(s.products)
}

// ProductsCount возвращает количество единиц товара в корзине.
func (s *Store) ProductsCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calc.CalculateItemsCount(s.products)
}

// Snapshot возвращает согласованный снимок корзины.
func (s *Store) Snapshot() domain.CartSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calc.Snapshot(s.products)
}

// AddToCart добавляет товар в корзину.
//
// Если товар уже есть, позиция заменяется копией product с количеством,
// увеличенным на единицу; прочие поля прежней позиции не сохраняются.
func (s *Store) AddToCart(product domain.Product) domain.CartSnapshot {
	snapshot := s.add(product)
	s.metrics.RecordProductAdded()
	s.notifier.Success(MessageProductAdded, NotificationTitle)
	return snapshot
}

func (s *Store) add(product domain.Product) domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := product.Clone()
	next := make([]domain.Product, len(s.products), len(s.products)+1)
	copy(next, s.products)

	if idx := indexOf(s.products, product.ID); idx >= 0 {
		item.Quantity = s.products[idx].Quantity + 1
		next[idx] = item
	} else {
		item.Quantity = 1
		next = append(next, item)
	}

	s.products = next
	snapshot := s.calc.Snapshot(next)
	s.storage.SaveState(snapshot)
	return snapshot
}

// RemoveFromCart удаляет позицию по идентификатору товара.
//
// Нулевой идентификатор отклоняется до изменения состояния. Отсутствующий
// товар не считается ошибкой: состояние не меняется, пользователь получает
// предупреждение. Любой сбой во время удаления перехватывается, логируется
// и превращается в общее уведомление об ошибке; состояние откатывается.
func (s *Store) RemoveFromCart(productID domain.ProductID) (result RemoveResult, snapshot domain.CartSnapshot) {
	var (
		committed bool
		previous  []domain.Product
	)

	defer func() {
		s.metrics.RecordRemove(string(result))
	}()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if committed {
			snapshot = s.restore(previous)
		} else {
			snapshot = s.Snapshot()
		}
		result = RemoveFailed
		s.logger.WithFields(log.Fields{
			"product_id": productID,
			"panic":      r,
		}).Error("error removing product")
		s.notifyError(MessageRemoveFailed)
	}()

	if productID.IsZero() {
		s.logger.WithError(domain.ErrInvalidProductID).Error("error removing product")
		s.notifier.Error(MessageRemoveFailed)
		return RemoveInvalid, s.Snapshot()
	}

	previous, snapshot, committed = s.remove(productID)
	if !committed {
		s.notifier.Warning(MessageProductNotFound)
		return RemoveNotFound, snapshot
	}

	s.notifier.Success(MessageProductRemoved, NotificationTitle)
	return RemoveRemoved, snapshot
}

// remove фильтрует список под блокировкой. Если сохранение снимка падает,
// список возвращается к прежнему значению до выхода из функции.
func (s *Store) remove(productID domain.ProductID) ([]domain.Product, domain.CartSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.products, productID)
	if idx < 0 {
		return nil, s.calc.Snapshot(s.products), false
	}

	previous := s.products
	next := make([]domain.Product, 0, len(previous)-1)
	next = append(next, previous[:idx]...)
	next = append(next, previous[idx+1:]...)
	s.products = next

	snapshot := s.calc.Snapshot(next)
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.products = previous
				panic(r)
			}
		}()
		s.storage.SaveState(snapshot)
	}()

	return previous, snapshot, true
}

// restore возвращает список к состоянию до удаления и повторно сохраняет его.
func (s *Store) restore(previous []domain.Product) domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = previous
	snapshot := s.calc.Snapshot(previous)
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.WithField("panic", r).Error("failed to persist restored cart")
			}
		}()
		s.storage.SaveState(snapshot)
	}()
	return snapshot
}

// ClearCart безусловно очищает корзину.
func (s *Store) ClearCart() domain.CartSnapshot {
	snapshot := s.clear()
	s.metrics.RecordCartCleared()
	s.notifier.Success(MessageCartCleared, NotificationTitle)
	return snapshot
}

func (s *Store) clear() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = []domain.Product{}
	snapshot := s.calc.Snapshot(s.products)
	s.storage.SaveState(snapshot)
	return snapshot
}

func (s *Store) notifyError(message string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).Error("notifier failed")
		}
	}()
	s.notifier.Error(message)
}

func indexOf(products []domain.Product, id domain.ProductID) int {
	for i, p := range products {
		if p.ID == id {
			return i
		}
	}
	return -1
}
