package app

import (
	"testing"

	"github.com/IBM/sarama/mocks"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cartstore/internal/messaging/kafka"
)

func TestInitKafkaProducer_DisabledWithoutBrokers(t *testing.T) {
	logger, hook := test.NewNullLogger()

	for _, brokers := range []string{"", "   ", " , ,"} {
		producer, err := initKafkaProducer(brokers, logger.WithField("test", "kafka"))
		require.NoError(t, err)
		require.Nil(t, producer)
	}
	require.Empty(t, hook.AllEntries())
}

func TestInitKafkaProducer_UnreachableBrokersFallBack(t *testing.T) {
	logger, hook := test.NewNullLogger()

	for _, brokers := range []string{
		"127.0.0.1:1",
		"127.0.0.1:1, 127.0.0.1:2",
	} {
		producer, err := initKafkaProducer(brokers, logger.WithField("test", "kafka"))
		require.Error(t, err, brokers)
		require.Nil(t, producer)
	}
	require.Equal(t, "failed to create kafka producer, continuing without kafka", hook.LastEntry().Message)
}

func TestSplitBrokers(t *testing.T) {
	cases := map[string][]string{
		"":                   nil,
		"  ":                 nil,
		"a:9092":             {"a:9092"},
		" a:9092, ,b:9092,":  {"a:9092", "b:9092"},
		"a:9092,b:9092,c:1 ": {"a:9092", "b:9092", "c:1"},
	}
	for raw, want := range cases {
		require.Equal(t, want, splitBrokers(raw), "input %q", raw)
	}
}

func TestCloseKafka(t *testing.T) {
	logger, hook := test.NewNullLogger()
	entry := logger.WithField("test", "kafka")

	closeKafka(nil, entry)
	require.Empty(t, hook.AllEntries())

	sp := mocks.NewSyncProducer(t, nil)
	closeKafka(kafka.NewProducerFromSync(sp, entry), entry)
	require.Equal(t, "kafka producer closed", hook.LastEntry().Message)
}
