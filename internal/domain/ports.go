package domain

import "context"

// CartStorage - хранилище снимков одной корзины.
type CartStorage interface {
	// LoadState возвращает ранее сохранённый снимок; false, если его нет или он повреждён.
	LoadState() (CartSnapshot, bool)
	// SaveState сохраняет снимок. Вызов не ждёт завершения записи.
	SaveState(snapshot CartSnapshot)
}

// Notifier доставляет пользователю сообщения о результате операций.
type Notifier interface {
	Success(message, title string)
	Warning(message string)
	Error(message string)
}

// SnapshotRepository хранит снимки корзин по идентификатору сессии.
type SnapshotRepository interface {
	// Load возвращает снимок или ErrSnapshotNotFound.
	Load(ctx context.Context, sessionID string) (CartSnapshot, error)
	// Save перезаписывает снимок сессии.
	Save(ctx context.Context, sessionID string, snapshot CartSnapshot) error
	// Delete удаляет снимок; отсутствие снимка ошибкой не считается.
	Delete(ctx context.Context, sessionID string) error
}

// NotificationLevel - уровень пользовательского уведомления.
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// Notification - одно уведомление, показанное пользователю.
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
	Title   string            `json:"title,omitempty"`
}
