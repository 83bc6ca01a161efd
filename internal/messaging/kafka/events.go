package kafka

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	// EventTypeNotification - уведомление пользователю (toast).
	EventTypeNotification EventType = "cart.notification"
	// EventTypeSnapshotSaved - снимок корзины записан в хранилище.
	EventTypeSnapshotSaved EventType = "cart.snapshot_saved"
	// EventTypeSnapshotDeleted - снимок корзины удалён.
	EventTypeSnapshotDeleted EventType = "cart.snapshot_deleted"
)

// Topics для Kafka
const (
	TopicNotifications = "cart.notifications"
	TopicSnapshots     = "cart.snapshots"
)

// HeaderEventType дублирует тип события в заголовке, чтобы потребители могли фильтровать без разбора тела.
const HeaderEventType = "x-event-type"

// NotificationEvent - уведомление, адресованное сессии корзины.
type NotificationEvent struct {
	EventID   string                   `json:"event_id"`
	EventType EventType                `json:"event_type"`
	SessionID string                   `json:"session_id"`
	Level     domain.NotificationLevel `json:"level"`
	Message   string                   `json:"message"`
	Title     string                   `json:"title,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
}

// SnapshotEvent описывает изменение сохранённого снимка корзины.
type SnapshotEvent struct {
	EventID       string          `json:"event_id"`
	EventType     EventType       `json:"event_type"`
	SessionID     string          `json:"session_id"`
	ProductIDs    []int64         `json:"product_ids,omitempty"`
	ProductsCount int64           `json:"products_count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewNotificationEvent создаёт событие уведомления.
func NewNotificationEvent(sessionID string, n domain.Notification) *NotificationEvent {
	return &NotificationEvent{
		EventID:   uuid.NewString(),
		EventType: EventTypeNotification,
		SessionID: sessionID,
		Level:     n.Level,
		Message:   n.Message,
		Title:     n.Title,
		Timestamp: time.Now().UTC(),
	}
}

// NewSnapshotEvent создаёт событие о сохранённом снимке.
func NewSnapshotEvent(eventType EventType, sessionID string, snapshot domain.CartSnapshot) *SnapshotEvent {
	ids := make([]int64, 0, len(snapshot.Products))
	for _, p := range snapshot.Products {
		ids = append(ids, int64(p.ID))
	}
	return &SnapshotEvent{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		SessionID:     sessionID,
		ProductIDs:    ids,
		ProductsCount: snapshot.ProductsCount,
		TotalAmount:   snapshot.TotalAmount,
		Timestamp:     time.Now().UTC(),
	}
}

// Notification возвращает доменное уведомление из события.
func (e *NotificationEvent) Notification() domain.Notification {
	return domain.Notification{Level: e.Level, Message: e.Message, Title: e.Title}
}
