// Command cart-toasts читает уведомления корзин из Kafka и выводит их как toast-сообщения.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
	"github.com/vladislavdragonenkov/cartstore/internal/messaging/kafka"
)

const (
	envKafkaBrokers = "CART_KAFKA_BROKERS"
	envGroupID      = "CART_TOASTS_GROUP"
	envSession      = "CART_TOASTS_SESSION"

	defaultGroupID = "cart-toasts"
)

var errNoBrokers = errors.New(envKafkaBrokers + " is required")

type config struct {
	brokers []string
	groupID string
	// session, если задан, оставляет только уведомления этой сессии.
	session string
}

func readConfig(getenv func(string) string) (config, error) {
	cfg := config{groupID: defaultGroupID}

	for _, b := range strings.Split(getenv(envKafkaBrokers), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.brokers = append(cfg.brokers, b)
		}
	}
	if len(cfg.brokers) == 0 {
		return config{}, errNoBrokers
	}
	if v := strings.TrimSpace(getenv(envGroupID)); v != "" {
		cfg.groupID = v
	}
	cfg.session = strings.TrimSpace(getenv(envSession))
	return cfg, nil
}

// toastHandler выводит уведомление в лог с уровнем, соответствующим toast.
func toastHandler(logger *log.Entry, session string) func(context.Context, *kafka.NotificationEvent) error {
	return func(_ context.Context, event *kafka.NotificationEvent) error {
		if session != "" && event.SessionID != session {
			return nil
		}

		entry := logger.WithFields(log.Fields{
			"session_id": event.SessionID,
			"event_id":   event.EventID,
		})
		if event.Title != "" {
			entry = entry.WithField("title", event.Title)
		}

		switch event.Level {
		case domain.NotificationSuccess:
			entry.Info(event.Message)
		case domain.NotificationWarning:
			entry.Warn(event.Message)
		case domain.NotificationError:
			entry.Error(event.Message)
		default:
			entry.WithField("level", event.Level).Info(event.Message)
		}
		return nil
	}
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := readConfig(os.Getenv)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	logger := log.WithField("component", "cart-toasts")
	handler := kafka.NotificationHandler(toastHandler(logger, cfg.session))

	consumer, err := kafka.NewConsumer(cfg.brokers, cfg.groupID, []string{kafka.TopicNotifications}, handler)
	if err != nil {
		log.WithError(err).Fatal("failed to create kafka consumer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil {
		log.WithError(err).Fatal("failed to start kafka consumer")
	}
	logger.WithFields(log.Fields{"brokers": cfg.brokers, "group": cfg.groupID}).Info("waiting for cart notifications")

	<-ctx.Done()
	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Error("failed to stop kafka consumer")
	}
}
