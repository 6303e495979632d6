package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/marketplace/internal/service/intake"
)

// initKafkaProducer инициализирует Kafka producer, если brokers заданы.
// Возвращает nil, nil при пустом списке brokers.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// initIntakeConsumer подписывает intake-воркер на topic-и событий.
// Возвращает nil, nil при пустом groupID: intake можно выключить, не
// выключая публикацию событий.
func initIntakeConsumer(brokers []string, groupID string, dlqProducer *kafka.Producer, maxRetries int, logger *log.Entry) (*kafka.Consumer, error) {
	if len(brokers) == 0 || groupID == "" {
		return nil, nil
	}

	dispatcher := intake.NewDispatcher(nil, logger.WithField("component", "event-intake"))
	consumer, err := kafka.NewConsumerWithDLQ(brokers, groupID, intake.Topics(), dispatcher.Handle, dlqProducer, maxRetries)
	if err != nil {
		logger.WithError(err).Warn("failed to create intake consumer, continuing without intake")
		return nil, err
	}

	logger.WithField("group_id", groupID).Info("event intake consumer initialized")
	return consumer, nil
}

// closeIntake останавливает intake consumer, если он запущен.
func closeIntake(consumer *kafka.Consumer, logger *log.Entry) {
	if consumer == nil {
		return
	}

	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop intake consumer")
	} else {
		logger.Info("event intake consumer stopped")
	}
}

// closeKafka закрывает Kafka producer, если он создан.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
