package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const producerClientID = "cart-service"

// Publisher отправляет событие корзины в топик. Тело кодируется в JSON,
// тип события дублируется в заголовке HeaderEventType.
type Publisher interface {
	PublishEvent(topic, key string, eventType EventType, event any) error
}

// Producer - синхронный Publisher поверх sarama.SyncProducer.
// PublishEvent возвращается, когда брокер подтвердил запись.
type Producer struct {
	sync   sarama.SyncProducer
	logger *log.Entry
}

// producerConfig: подтверждение от всех реплик и идемпотентная запись,
// чтобы повторы sarama не дублировали события.
func producerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = producerClientID
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

// NewProducer подключается к brokers.
func NewProducer(brokers []string) (*Producer, error) {
	sp, err := sarama.NewSyncProducer(brokers, producerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewProducerFromSync(sp, nil), nil
}

// NewProducerFromSync оборачивает готовый sarama.SyncProducer, например mocks.SyncProducer.
func NewProducerFromSync(sp sarama.SyncProducer, logger *log.Entry) *Producer {
	if logger == nil {
		logger = log.WithField("component", "kafka-producer")
	}
	return &Producer{sync: sp, logger: logger}
}

// PublishEvent кодирует event и ждёт подтверждения брокера.
func (p *Producer) PublishEvent(topic, key string, eventType EventType, event any) error {
	msg, err := newMessage(topic, key, eventType, event)
	if err != nil {
		return err
	}

	fields := log.Fields{"topic": topic, "key": key, "event_type": eventType}
	partition, offset, err := p.sync.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(fields).Error("failed to send message to kafka")
		return fmt.Errorf("failed to send message: %w", err)
	}

	fields["partition"] = partition
	fields["offset"] = offset
	p.logger.WithFields(fields).Debug("message sent to kafka")
	return nil
}

// Close закрывает соединение с брокерами.
func (p *Producer) Close() error {
	if err := p.sync.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}

func newMessage(topic, key string, eventType EventType, event any) (*sarama.ProducerMessage, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(body),
		Headers:   []sarama.RecordHeader{{Key: []byte(HeaderEventType), Value: []byte(eventType)}},
		Timestamp: time.Now(),
	}, nil
}

var _ Publisher = (*Producer)(nil)
