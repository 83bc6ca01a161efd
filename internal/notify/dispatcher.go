package notify

import (
	"context"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
	"github.com/vladislavdragonenkov/cartstore/internal/messaging/kafka"
)

const defaultQueueSize = 1024

// DispatcherOptions задаёт параметры фоновой публикации уведомлений.
type DispatcherOptions struct {
	Logger    *log.Entry
	QueueSize int
}

// DispatcherOption настраивает Dispatcher.
type DispatcherOption func(*DispatcherOptions)

// WithDispatcherLogger задаёт logger.
func WithDispatcherLogger(logger *log.Entry) DispatcherOption {
	return func(opts *DispatcherOptions) {
		opts.Logger = logger
	}
}

// WithQueueSize задаёт ёмкость очереди уведомлений.
func WithQueueSize(size int) DispatcherOption {
	return func(opts *DispatcherOptions) {
		opts.QueueSize = size
	}
}

type outgoing struct {
	sessionID string
	event     *kafka.NotificationEvent
}

// Dispatcher публикует уведомления в Kafka из отдельной горутины.
// Submit никогда не ждёт брокер: при переполненной очереди уведомление
// отбрасывается с предупреждением в лог.
type Dispatcher struct {
	publisher kafka.Publisher
	logger    *log.Entry
	queue     chan outgoing
	dropped   atomic.Int64
}

// NewDispatcher создаёт Dispatcher поверх publisher. Публикация начинается после Run.
func NewDispatcher(publisher kafka.Publisher, options ...DispatcherOption) *Dispatcher {
	opts := DispatcherOptions{QueueSize: defaultQueueSize}
	for _, option := range options {
		option(&opts)
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "notify-dispatcher")
	}

	return &Dispatcher{
		publisher: publisher,
		logger:    logger,
		queue:     make(chan outgoing, opts.QueueSize),
	}
}

// Submit ставит уведомление сессии в очередь и сразу возвращает управление.
// false означает, что очередь заполнена и уведомление потеряно.
func (d *Dispatcher) Submit(sessionID string, notification domain.Notification) bool {
	item := outgoing{sessionID: sessionID, event: kafka.NewNotificationEvent(sessionID, notification)}
	select {
	case d.queue <- item:
		return true
	default:
		d.dropped.Add(1)
		d.logger.WithFields(log.Fields{
			"session_id": sessionID,
			"level":      notification.Level,
		}).Warn("notification queue is full, dropping notification")
		return false
	}
}

// Dropped возвращает число отброшенных уведомлений.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Run публикует уведомления до отмены ctx, затем дописывает то, что осталось в очереди.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drainQueued()
			return
		case item := <-d.queue:
			d.publish(item)
		}
	}
}

func (d *Dispatcher) drainQueued() {
	for {
		select {
		case item := <-d.queue:
			d.publish(item)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(item outgoing) {
	err := d.publisher.PublishEvent(kafka.TopicNotifications, item.sessionID, item.event.EventType, item.event)
	if err != nil {
		d.logger.WithError(err).WithFields(log.Fields{
			"session_id": item.sessionID,
			"level":      item.event.Level,
		}).Warn("failed to publish notification")
	}
}
