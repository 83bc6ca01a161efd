package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// ErrMalformedEvent - тело сообщения не удалось разобрать. Такие сообщения не повторяются.
var ErrMalformedEvent = errors.New("malformed kafka event")

// MessageHandler обрабатывает сообщение из Kafka
type MessageHandler func(ctx context.Context, message *sarama.ConsumerMessage) error

// Consumer читает события корзины из consumer group.
// Сообщение, которое не удалось обработать за maxRetries попыток, пропускается:
// уведомления не имеют ценности после того, как устарели.
type Consumer struct {
	consumer   sarama.ConsumerGroup
	topics     []string
	handler    MessageHandler
	logger     *log.Entry
	wg         sync.WaitGroup
	maxRetries int
	retryDelay time.Duration
}

// NewConsumer создает новый Kafka consumer
func NewConsumer(brokers []string, groupID string, topics []string, handler MessageHandler) (*Consumer, error) {
	config := sarama.NewConfig()
	config.ClientID = "cart-toasts"
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	return NewConsumerFromGroup(group, topics, handler), nil
}

// NewConsumerFromGroup собирает consumer поверх готовой группы.
func NewConsumerFromGroup(group sarama.ConsumerGroup, topics []string, handler MessageHandler) *Consumer {
	return &Consumer{
		consumer:   group,
		topics:     topics,
		handler:    handler,
		logger:     log.WithField("component", "kafka-consumer"),
		maxRetries: 3,
		retryDelay: 100 * time.Millisecond,
	}
}

// Start запускает consumer
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			// Consume должен вызываться в цикле, так как при rebalance он завершается
			if err := c.consumer.Consume(ctx, c.topics, c); err != nil {
				c.logger.WithError(err).Error("error from consumer")
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.consumer.Errors() {
			c.logger.WithError(err).Error("consumer error")
		}
	}()

	c.logger.WithField("topics", c.topics).Info("kafka consumer started")
	return nil
}

// Stop останавливает consumer
func (c *Consumer) Stop() error {
	if err := c.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return nil
}

// Setup вызывается при старте consumer session
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup вызывается при завершении consumer session
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim обрабатывает сообщения из partition
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			fields := log.Fields{
				"topic":     message.Topic,
				"partition": message.Partition,
				"offset":    message.Offset,
			}
			c.logger.WithFields(fields).Debug("received message")

			if err := c.handleWithRetry(session.Context(), message); err != nil {
				if session.Context().Err() != nil {
					// offset не сдвигаем, сообщение перечитается следующей сессией
					return nil
				}
				c.logger.WithError(err).WithFields(fields).Warn("message skipped")
			}

			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, message *sarama.ConsumerMessage) error {
	attempts := c.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = c.handler(ctx, message)
		if err == nil || errors.Is(err, ErrMalformedEvent) {
			return err
		}
		if attempt == attempts {
			break
		}

		delay := c.retryDelay * time.Duration(1<<(attempt-1))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("handler failed after %d attempts: %w", attempts, err)
}

// EventTypeOf возвращает тип события из заголовка сообщения.
func EventTypeOf(message *sarama.ConsumerMessage) EventType {
	for _, h := range message.Headers {
		if h != nil && string(h.Key) == HeaderEventType {
			return EventType(h.Value)
		}
	}
	return ""
}

// ParseNotificationEvent парсит уведомление из сообщения
func ParseNotificationEvent(message *sarama.ConsumerMessage) (*NotificationEvent, error) {
	var event NotificationEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.EventType != EventTypeNotification || event.Message == "" {
		return nil, fmt.Errorf("%w: not a notification event", ErrMalformedEvent)
	}
	return &event, nil
}

// ParseSnapshotEvent парсит событие о снимке корзины
func ParseSnapshotEvent(message *sarama.ConsumerMessage) (*SnapshotEvent, error) {
	var event SnapshotEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return &event, nil
}

// NotificationHandler адаптирует обработчик уведомлений к MessageHandler.
// Сообщения другого типа пропускаются.
func NotificationHandler(fn func(ctx context.Context, event *NotificationEvent) error) MessageHandler {
	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		if t := EventTypeOf(message); t != "" && t != EventTypeNotification {
			return nil
		}
		event, err := ParseNotificationEvent(message)
		if err != nil {
			return err
		}
		return fn(ctx, event)
	}
}
