// Package spinner отслеживает, идут ли сейчас сетевые запросы, и сообщает
// подписчикам, когда индикатор загрузки нужно показать или скрыть.
package spinner

import (
	"io"
	"net/http"
	"sync"
)

// Service - счётчик активных загрузок.
// Индикатор виден, пока завершились не все начатые операции.
type Service struct {
	mu          sync.Mutex
	inFlight    int
	subscribers map[int]chan bool
	nextID      int
}

// New создаёт Service в скрытом состоянии.
func New() *Service {
	return &Service{subscribers: make(map[int]chan bool)}
}

// Show отмечает начало операции.
func (s *Service) Show() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight++
	if s.inFlight == 1 {
		s.broadcast(true)
	}
}

// Hide отмечает завершение операции. Лишние вызовы игнорируются.
func (s *Service) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight == 0 {
		return
	}
	s.inFlight--
	if s.inFlight == 0 {
		s.broadcast(false)
	}
}

// IsLoading сообщает, видим ли индикатор.
func (s *Service) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}

// Subscribe возвращает канал смены состояния. Первым значением приходит текущее.
// Медленный подписчик получает только самое свежее состояние.
func (s *Service) Subscribe() (<-chan bool, func()) {
	ch := make(chan bool, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = ch
	ch <- s.inFlight > 0
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// broadcast вызывается под s.mu.
func (s *Service) broadcast(loading bool) {
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- loading
	}
}

// Transport показывает индикатор на время HTTP-запроса.
// Индикатор скрывается при ошибке запроса или при закрытии тела ответа.
type Transport struct {
	Spinner *Service
	Base    http.RoundTripper
}

// NewTransport оборачивает base. Если base == nil, используется http.DefaultTransport.
func NewTransport(s *Service, base http.RoundTripper) *Transport {
	return &Transport{Spinner: s, Base: base}
}

// RoundTrip реализует http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	t.Spinner.Show()
	resp, err := base.RoundTrip(req)
	if err != nil {
		t.Spinner.Hide()
		return nil, err
	}
	if resp.Body == nil {
		resp.Body = http.NoBody
	}
	resp.Body = &hideOnClose{ReadCloser: resp.Body, hide: t.Spinner.Hide}
	return resp, nil
}

type hideOnClose struct {
	io.ReadCloser
	once sync.Once
	hide func()
}

func (b *hideOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.hide)
	return err
}
