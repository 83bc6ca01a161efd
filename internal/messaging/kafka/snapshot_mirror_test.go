package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
	"github.com/vladislavdragonenkov/cartstore/internal/storage/memory"
)

type recordingPublisher struct {
	topics []string
	keys   []string
	types  []EventType
	err    error
}

func (p *recordingPublisher) PublishEvent(topic, key string, eventType EventType, _ any) error {
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	p.types = append(p.types, eventType)
	return p.err
}

type failingRepo struct {
	domain.SnapshotRepository
}

func (failingRepo) Save(context.Context, string, domain.CartSnapshot) error {
	return domain.ErrStorageUnavailable
}

func TestSnapshotMirror_SaveAndDelete(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	mirror := NewSnapshotMirror(memory.NewSnapshotRepository(), pub)

	snapshot := domain.CartSnapshot{
		Products:      []domain.Product{{ID: 7, Price: decimal.NewFromInt(3), Quantity: 1}},
		TotalAmount:   decimal.NewFromInt(3),
		ProductsCount: 1,
	}
	require.NoError(t, mirror.Save(ctx, "s1", snapshot))

	loaded, err := mirror.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded.Products, 1)

	require.NoError(t, mirror.Delete(ctx, "s1"))

	require.Equal(t, []string{TopicSnapshots, TopicSnapshots}, pub.topics)
	require.Equal(t, []string{"s1", "s1"}, pub.keys)
	require.Equal(t, []EventType{EventTypeSnapshotSaved, EventTypeSnapshotDeleted}, pub.types)
}

func TestSnapshotMirror_PublishErrorIsIgnored(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	mirror := NewSnapshotMirror(memory.NewSnapshotRepository(), pub)

	require.NoError(t, mirror.Save(context.Background(), "s1", domain.EmptySnapshot()))
	require.Len(t, pub.topics, 1)
}

func TestSnapshotMirror_SaveErrorSkipsPublish(t *testing.T) {
	pub := &recordingPublisher{}
	mirror := NewSnapshotMirror(failingRepo{}, pub)

	err := mirror.Save(context.Background(), "s1", domain.EmptySnapshot())
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	require.Empty(t, pub.topics)
}
