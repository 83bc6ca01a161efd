// Package notify содержит реализации domain.Notifier.
package notify

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
)

// LogNotifier пишет уведомления в лог.
type LogNotifier struct {
	logger *log.Entry
}

// NewLogNotifier создаёт LogNotifier. Если logger не задан, используется стандартный.
func NewLogNotifier(logger *log.Entry) *LogNotifier {
	if logger == nil {
		logger = log.WithField("component", "notifier")
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Success(message, title string) {
	n.logger.WithField("title", title).Info(message)
}

func (n *LogNotifier) Warning(message string) {
	n.logger.Warn(message)
}

func (n *LogNotifier) Error(message string) {
	n.logger.Error(message)
}

// KafkaNotifier отправляет уведомления сессии в топик cart.notifications
// через Dispatcher. Вызов не ждёт брокер, ошибки публикации только логируются.
type KafkaNotifier struct {
	sessionID  string
	dispatcher *Dispatcher
}

// NewKafkaNotifier создаёт notifier для одной сессии.
func NewKafkaNotifier(sessionID string, dispatcher *Dispatcher) *KafkaNotifier {
	return &KafkaNotifier{sessionID: sessionID, dispatcher: dispatcher}
}

func (n *KafkaNotifier) Success(message, title string) {
	n.dispatcher.Submit(n.sessionID, domain.Notification{Level: domain.NotificationSuccess, Message: message, Title: title})
}

func (n *KafkaNotifier) Warning(message string) {
	n.dispatcher.Submit(n.sessionID, domain.Notification{Level: domain.NotificationWarning, Message: message})
}

func (n *KafkaNotifier) Error(message string) {
	n.dispatcher.Submit(n.sessionID, domain.Notification{Level: domain.NotificationError, Message: message})
}

// Multi рассылает уведомление всем вложенным notifier'ам по порядку.
type Multi []domain.Notifier

func (m Multi) Success(message, title string) {
	for _, n := range m {
		n.Success(message, title)
	}
}

func (m Multi) Warning(message string) {
	for _, n := range m {
		n.Warning(message)
	}
}

func (m Multi) Error(message string) {
	for _, n := range m {
		n.Error(message)
	}
}

// Recorder запоминает уведомления. Используется в CLI и тестах.
type Recorder struct {
	mu    sync.Mutex
	items []domain.Notification
}

// NewRecorder создаёт пустой Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Success(message, title string) {
	r.add(domain.Notification{Level: domain.NotificationSuccess, Message: message, Title: title})
}

func (r *Recorder) Warning(message string) {
	r.add(domain.Notification{Level: domain.NotificationWarning, Message: message})
}

func (r *Recorder) Error(message string) {
	r.add(domain.Notification{Level: domain.NotificationError, Message: message})
}

func (r *Recorder) add(n domain.Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

// Notifications возвращает копию накопленных уведомлений.
func (r *Recorder) Notifications() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Last возвращает последнее уведомление.
func (r *Recorder) Last() (domain.Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return domain.Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Drain возвращает накопленные уведомления и очищает список.
func (r *Recorder) Drain() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	return out
}

var (
	_ domain.Notifier = (*LogNotifier)(nil)
	_ domain.Notifier = (*KafkaNotifier)(nil)
	_ domain.Notifier = Multi(nil)
	_ domain.Notifier = (*Recorder)(nil)
)
