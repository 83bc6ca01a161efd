package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
)

// journal фиксирует порядок побочных эффектов storage и notifier.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(event string) {
	j.mu.Lock()
	j.events = append(j.events, event)
	j.mu.Unlock()
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

type stubStorage struct {
	journal *journal

	mu        sync.Mutex
	loaded    domain.CartSnapshot
	hasLoaded bool
	saved     []domain.CartSnapshot
	panicOn   int // номер вызова SaveState (с 1), на котором случится panic
	calls     int
}

func newStubStorage(j *journal) *stubStorage {
	return &stubStorage{journal: j}
}

func (s *stubStorage) LoadState() (domain.CartSnapshot, bool) {
	return s.loaded, s.hasLoaded
}

func (s *stubStorage) SaveState(snapshot domain.CartSnapshot) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()

	if s.panicOn > 0 && call == s.panicOn {
		panic("storage exploded")
	}

	s.mu.Lock()
	s.saved = append(s.saved, snapshot)
	s.mu.Unlock()
	if s.journal != nil {
		s.journal.add("save")
	}
}

func (s *stubStorage) last() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[len(s.saved)-1]
}

func (s *stubStorage) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

type stubNotifier struct {
	journal      *journal
	panicSuccess bool

	mu    sync.Mutex
	items []domain.Notification
}

func (n *stubNotifier) Success(message, title string) {
	if n.panicSuccess {
		panic("notifier exploded")
	}
	n.record(domain.Notification{Level: domain.NotificationSuccess, Message: message, Title: title})
}

func (n *stubNotifier) Warning(message string) {
	n.record(domain.Notification{Level: domain.NotificationWarning, Message: message})
}

func (n *stubNotifier) Error(message string) {
	n.record(domain.Notification{Level: domain.NotificationError, Message: message})
}

func (n *stubNotifier) record(item domain.Notification) {
	n.mu.Lock()
	n.items = append(n.items, item)
	n.mu.Unlock()
	if n.journal != nil {
		n.journal.add("notify:" + string(item.Level))
	}
}

func (n *stubNotifier) all() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notification(nil), n.items...)
}

func (n *stubNotifier) last() domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.items[len(n.items)-1]
}

func product(id int64, price string) domain.Product {
	return domain.Product{
		ID:    domain.ProductID(id),
		Title: "product " + domain.ProductID(id).String(),
		Price: decimal.RequireFromString(price),
	}
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}
