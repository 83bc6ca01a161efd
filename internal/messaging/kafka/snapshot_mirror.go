package kafka

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
)

// SnapshotMirror публикует событие в TopicSnapshots после каждой успешной записи снимка.
// Ошибка публикации не влияет на результат записи.
type SnapshotMirror struct {
	next      domain.SnapshotRepository
	publisher Publisher
	logger    *log.Entry
}

// NewSnapshotMirror оборачивает репозиторий снимков.
func NewSnapshotMirror(next domain.SnapshotRepository, publisher Publisher) *SnapshotMirror {
	return &SnapshotMirror{
		next:      next,
		publisher: publisher,
		logger:    log.WithField("component", "snapshot-mirror"),
	}
}

// Load читает снимок из исходного репозитория.
func (m *SnapshotMirror) Load(ctx context.Context, sessionID string) (domain.CartSnapshot, error) {
	return m.next.Load(ctx, sessionID)
}

// Save сохраняет снимок и публикует событие cart.snapshot_saved.
func (m *SnapshotMirror) Save(ctx context.Context, sessionID string, snapshot domain.CartSnapshot) error {
	if err := m.next.Save(ctx, sessionID, snapshot); err != nil {
		return err
	}
	m.publish(sessionID, NewSnapshotEvent(EventTypeSnapshotSaved, sessionID, snapshot))
	return nil
}

// Delete удаляет снимок и публикует событие cart.snapshot_deleted.
func (m *SnapshotMirror) Delete(ctx context.Context, sessionID string) error {
	if err := m.next.Delete(ctx, sessionID); err != nil {
		return err
	}
	m.publish(sessionID, NewSnapshotEvent(EventTypeSnapshotDeleted, sessionID, domain.EmptySnapshot()))
	return nil
}

func (m *SnapshotMirror) publish(sessionID string, event *SnapshotEvent) {
	if err := m.publisher.PublishEvent(TopicSnapshots, sessionID, event.EventType, event); err != nil {
		m.logger.WithError(err).WithField("session_id", sessionID).Warn("failed to mirror snapshot event")
	}
}

var _ domain.SnapshotRepository = (*SnapshotMirror)(nil)
