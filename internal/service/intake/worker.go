// Package intake потребляет события заказов и оплат из Kafka и строит по
// ним операционную сводку: счётчики по типам событий и уведомления
// менеджерам о заказах, ожидающих решения. Сообщения, которые не удаётся
// разобрать, после исчерпания ретраев уходят в DLQ и доступны для
// повторного проигрывания через cmd/dlq-reprocess.
package intake

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
)

var intakeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "marketplace_intake_events_total",
	Help: "Total number of marketplace events consumed from Kafka grouped by type and result.",
}, []string{"event_type", "result"})

// Sink принимает разобранные события. Реализация по умолчанию пишет
// уведомления в журнал; продовая может слать почту или push.
type Sink interface {
	OrderEvent(ctx context.Context, event *kafka.OrderEvent) error
	PaymentEvent(ctx context.Context, event *kafka.PaymentEvent) error
}

// Dispatcher разбирает сообщения из topic-ов маркетплейса и раздаёт их в Sink.
type Dispatcher struct {
	sink   Sink
	logger *log.Entry
}

// NewDispatcher создаёт dispatcher. Нулевой sink заменяется журнальным.
func NewDispatcher(sink Sink, logger *log.Entry) *Dispatcher {
	if logger == nil {
		logger = log.WithField("component", "event-intake")
	}
	if sink == nil {
		sink = NewLogSink(logger)
	}
	return &Dispatcher{sink: sink, logger: logger}
}

// Handle — kafka.MessageHandler: выбирает парсер по topic-у сообщения.
// Ошибка разбора возвращается наружу, чтобы consumer передоставил
// сообщение и в конце концов увёл его в DLQ.
func (d *Dispatcher) Handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	switch message.Topic {
	case kafka.TopicOrderEvents:
		event, err := kafka.ParseOrderEvent(message)
		if err != nil {
			intakeEvents.WithLabelValues("unknown", "parse_error").Inc()
			return err
		}
		if err := d.sink.OrderEvent(ctx, event); err != nil {
			intakeEvents.WithLabelValues(string(event.EventType), "sink_error").Inc()
			return err
		}
		intakeEvents.WithLabelValues(string(event.EventType), "ok").Inc()
		return nil

	case kafka.TopicPaymentEvents:
		event, err := kafka.ParsePaymentEvent(message)
		if err != nil {
			intakeEvents.WithLabelValues("unknown", "parse_error").Inc()
			return err
		}
		if err := d.sink.PaymentEvent(ctx, event); err != nil {
			intakeEvents.WithLabelValues(string(event.EventType), "sink_error").Inc()
			return err
		}
		intakeEvents.WithLabelValues(string(event.EventType), "ok").Inc()
		return nil

	default:
		intakeEvents.WithLabelValues("unknown", "unexpected_topic").Inc()
		return fmt.Errorf("unexpected topic %q", message.Topic)
	}
}

// Topics возвращает список topic-ов, на которые подписывается intake.
func Topics() []string {
	return []string{kafka.TopicOrderEvents, kafka.TopicPaymentEvents}
}

// logSink пишет уведомления в журнал.
type logSink struct {
	logger *log.Entry
}

// NewLogSink создаёт sink, который журналирует события.
func NewLogSink(logger *log.Entry) Sink {
	if logger == nil {
		logger = log.WithField("component", "event-intake")
	}
	return &logSink{logger: logger}
}

func (s *logSink) OrderEvent(_ context.Context, event *kafka.OrderEvent) error {
	entry := s.logger.WithFields(log.Fields{
		"order_id":   event.OrderID,
		"event_type": event.EventType,
		"status":     event.Status,
	})
	switch event.EventType {
	case kafka.EventTypeOrderCreated:
		entry.WithField("buyer_email", event.BuyerEmail).Info("order awaiting manager review")
	default:
		entry.Info("order state changed")
	}
	return nil
}

func (s *logSink) PaymentEvent(_ context.Context, event *kafka.PaymentEvent) error {
	s.logger.WithFields(log.Fields{
		"transaction_id": event.TransactionID,
		"amount":         event.Amount,
		"currency":       event.Currency,
	}).Info("payment confirmed")
	return nil
}
