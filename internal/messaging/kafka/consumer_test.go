package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
)

type mockConsumerGroup struct {
	consumeFn func(context.Context, []string, sarama.ConsumerGroupHandler) error
	errorsCh  chan error
	closeFn   func() error
}

func (m *mockConsumerGroup) Consume(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) error {
	if m.consumeFn != nil {
		return m.consumeFn(ctx, topics, handler)
	}
	return nil
}

func (m *mockConsumerGroup) Errors() <-chan error {
	return m.errorsCh
}

func (m *mockConsumerGroup) Close() error {
	if m.closeFn != nil {
		return m.closeFn()
	}
	if m.errorsCh != nil {
		close(m.errorsCh)
	}
	return nil
}

func (m *mockConsumerGroup) Pause(map[string][]int32)  {}
func (m *mockConsumerGroup) Resume(map[string][]int32) {}
func (m *mockConsumerGroup) PauseAll()                 {}
func (m *mockConsumerGroup) ResumeAll()                {}

type mockSession struct {
	ctx    context.Context
	marked []*sarama.ConsumerMessage
}

func (m *mockSession) Claims() map[string][]int32               { return nil }
func (m *mockSession) MemberID() string                         { return "member" }
func (m *mockSession) GenerationID() int32                      { return 1 }
func (m *mockSession) MarkOffset(string, int32, int64, string)  {}
func (m *mockSession) Commit()                                  {}
func (m *mockSession) ResetOffset(string, int32, int64, string) {}
func (m *mockSession) Context() context.Context                 { return m.ctx }
func (m *mockSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	m.marked = append(m.marked, msg)
}

type mockClaim struct {
	topic     string
	partition int32
	messages  chan *sarama.ConsumerMessage
}

func (m *mockClaim) Topic() string                            { return m.topic }
func (m *mockClaim) Partition() int32                         { return m.partition }
func (m *mockClaim) InitialOffset() int64                     { return 0 }
func (m *mockClaim) HighWaterMarkOffset() int64               { return 0 }
func (m *mockClaim) Messages() <-chan *sarama.ConsumerMessage { return m.messages }

func newTestConsumer(handler MessageHandler, maxRetries int) *Consumer {
	c := NewConsumerFromGroup(&mockConsumerGroup{}, []string{TopicNotifications}, handler)
	c.logger = log.WithField("test", "consumer")
	c.maxRetries = maxRetries
	c.retryDelay = time.Millisecond
	return c
}

func notificationMessage(t *testing.T, event *NotificationEvent) *sarama.ConsumerMessage {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &sarama.ConsumerMessage{
		Topic:   TopicNotifications,
		Key:     []byte(event.SessionID),
		Value:   payload,
		Headers: []*sarama.RecordHeader{{Key: []byte(HeaderEventType), Value: []byte(event.EventType)}},
	}
}

func TestNewConsumerErrors(t *testing.T) {
	if _, err := NewConsumer([]string{"invalid-broker:9092"}, "group", []string{"topic"}, func(context.Context, *sarama.ConsumerMessage) error { return nil }); err == nil {
		t.Fatal("expected new consumer error")
	}
}

func TestConsumerStartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	consumeCalls := 0
	errorsCh := make(chan error, 1)
	group := &mockConsumerGroup{
		errorsCh: errorsCh,
		consumeFn: func(_ context.Context, _ []string, _ sarama.ConsumerGroupHandler) error {
			consumeCalls++
			cancel()
			return nil
		},
		closeFn: func() error {
			close(errorsCh)
			return nil
		},
	}

	consumer := NewConsumerFromGroup(group, []string{TopicNotifications}, func(context.Context, *sarama.ConsumerMessage) error { return nil })

	errorsCh <- errors.New("background error")
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := consumer.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if consumeCalls == 0 {
		t.Fatal("expected consume call")
	}
}

func TestConsumerStopError(t *testing.T) {
	errorsCh := make(chan error)
	group := &mockConsumerGroup{errorsCh: errorsCh, closeFn: func() error {
		close(errorsCh)
		return errors.New("close failed")
	}}
	consumer := &Consumer{consumer: group, logger: log.WithField("test", "stop")}
	if err := consumer.Stop(); err == nil {
		t.Fatal("expected stop error")
	}
}

func TestConsumerSetupCleanup(t *testing.T) {
	consumer := &Consumer{}
	if err := consumer.Setup(nil); err != nil {
		t.Fatalf("setup should return nil: %v", err)
	}
	if err := consumer.Cleanup(nil); err != nil {
		t.Fatalf("cleanup should return nil: %v", err)
	}
}

func TestConsumeClaim(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := newTestConsumer(func(context.Context, *sarama.ConsumerMessage) error { return nil }, 1)

	session := &mockSession{ctx: ctx}
	claim := &mockClaim{topic: "topic", partition: 0, messages: make(chan *sarama.ConsumerMessage, 2)}
	claim.messages <- &sarama.ConsumerMessage{Topic: "topic", Partition: 0, Offset: 1, Key: []byte("k"), Value: []byte("v")}
	close(claim.messages)

	if err := consumer.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("ConsumeClaim failed: %v", err)
	}
	if len(session.marked) != 1 {
		t.Fatalf("expected one marked message, got %d", len(session.marked))
	}
}

func TestConsumeClaimRetriesThenSkips(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	consumer := newTestConsumer(func(context.Context, *sarama.ConsumerMessage) error {
		calls++
		return errors.New("failed")
	}, 3)

	session := &mockSession{ctx: ctx}
	claim := &mockClaim{topic: "topic", partition: 0, messages: make(chan *sarama.ConsumerMessage, 1)}
	claim.messages <- &sarama.ConsumerMessage{Topic: "topic", Partition: 0, Offset: 1, Value: []byte("v")}
	close(claim.messages)

	if err := consumer.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("ConsumeClaim failed: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if len(session.marked) != 1 {
		t.Fatalf("skipped message should be marked, got %d", len(session.marked))
	}
}

func TestHandleWithRetry(t *testing.T) {
	msg := &sarama.ConsumerMessage{Topic: "topic", Key: []byte("key"), Value: []byte(`{"a":1}`)}

	t.Run("success after transient failure", func(t *testing.T) {
		calls := 0
		consumer := newTestConsumer(func(context.Context, *sarama.ConsumerMessage) error {
			calls++
			if calls == 1 {
				return errors.New("transient")
			}
			return nil
		}, 3)
		if err := consumer.handleWithRetry(context.Background(), msg); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if calls != 2 {
			t.Fatalf("expected 2 calls, got %d", calls)
		}
	})

	t.Run("malformed is not retried", func(t *testing.T) {
		calls := 0
		consumer := newTestConsumer(func(context.Context, *sarama.ConsumerMessage) error {
			calls++
			return ErrMalformedEvent
		}, 3)
		if err := consumer.handleWithRetry(context.Background(), msg); !errors.Is(err, ErrMalformedEvent) {
			t.Fatalf("expected malformed error, got %v", err)
		}
		if calls != 1 {
			t.Fatalf("expected single call, got %d", calls)
		}
	})

	t.Run("context canceled between attempts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		consumer := newTestConsumer(func(context.Context, *sarama.ConsumerMessage) error {
			cancel()
			return errors.New("failed")
		}, 3)
		consumer.retryDelay = time.Second
		if err := consumer.handleWithRetry(ctx, msg); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestNotificationHandler(t *testing.T) {
	event := NewNotificationEvent("session-1", domain.Notification{
		Level:   domain.NotificationError,
		Message: "Error removing product",
	})

	var got *NotificationEvent
	handler := NotificationHandler(func(_ context.Context, e *NotificationEvent) error {
		got = e
		return nil
	})

	if err := handler(context.Background(), notificationMessage(t, event)); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if got == nil || got.EventID != event.EventID || got.Level != domain.NotificationError {
		t.Fatalf("unexpected event: %+v", got)
	}

	got = nil
	other := &sarama.ConsumerMessage{
		Value:   []byte(`{}`),
		Headers: []*sarama.RecordHeader{{Key: []byte(HeaderEventType), Value: []byte(EventTypeSnapshotSaved)}},
	}
	if err := handler(context.Background(), other); err != nil {
		t.Fatalf("foreign event should be ignored: %v", err)
	}
	if got != nil {
		t.Fatal("foreign event should not reach handler")
	}

	if err := handler(context.Background(), &sarama.ConsumerMessage{Value: []byte("{")}); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestParseSnapshotEvent(t *testing.T) {
	event := NewSnapshotEvent(EventTypeSnapshotSaved, "s", domain.EmptySnapshot())
	payload, _ := json.Marshal(event)

	parsed, err := ParseSnapshotEvent(&sarama.ConsumerMessage{Value: payload})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.SessionID != "s" || parsed.EventType != EventTypeSnapshotSaved {
		t.Fatalf("unexpected event: %+v", parsed)
	}

	if _, err := ParseSnapshotEvent(&sarama.ConsumerMessage{Value: []byte("nope")}); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestConsumeClaimStopsOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	consumer := newTestConsumer(func(context.Context, *sarama.ConsumerMessage) error { return nil }, 1)
	session := &mockSession{ctx: ctx}
	claim := &mockClaim{topic: "topic", partition: 0, messages: make(chan *sarama.ConsumerMessage)}

	done := make(chan struct{})
	go func() {
		_ = consumer.ConsumeClaim(session, claim)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ConsumeClaim did not stop after context cancellation")
	}
}

func TestConsumeClaimLeavesOffsetOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := newTestConsumer(func(context.Context, *sarama.ConsumerMessage) error {
		cancel()
		return errors.New("interrupted")
	}, 3)

	session := &mockSession{ctx: ctx}
	claim := &mockClaim{topic: TopicNotifications, messages: make(chan *sarama.ConsumerMessage, 1)}
	claim.messages <- &sarama.ConsumerMessage{Topic: TopicNotifications, Offset: 7, Value: []byte("{}")}

	if err := consumer.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("ConsumeClaim failed: %v", err)
	}
	if len(session.marked) != 0 {
		t.Fatalf("interrupted message must be re-read by the next session, marked %d", len(session.marked))
	}
}
