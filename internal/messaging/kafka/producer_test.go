package kafka

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndSucceed()

	event := NewOrderEvent(
		EventTypeOrderCreated,
		"order-123",
		"product-1",
		"buyer@shop.test",
		"pending",
		map[string]interface{}{
			"order_quantity": 3,
		},
	)

	err := producer.PublishEvent(TopicOrderEvents, "order-123", event)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := NewOrderEvent(
		EventTypeOrderCreated,
		"order-123",
		"product-1",
		"buyer@shop.test",
		"pending",
		nil,
	)

	err := producer.PublishEvent(TopicOrderEvents, "order-123", event)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEventWithHeaders(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicDeadLetterQueue {
			t.Errorf("unexpected topic: %s", msg.Topic)
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Key) != HeaderOriginalTopic {
			t.Errorf("headers must reach the broker message: %+v", msg.Headers)
		}
		return nil
	})

	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderOriginalTopic), Value: []byte(TopicOrderEvents)},
	}
	err := producer.PublishEventWithHeaders(TopicDeadLetterQueue, "order-123", map[string]string{"k": "v"}, headers)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewOrderEvent(t *testing.T) {
	event := NewOrderEvent(
		EventTypeOrderApproved,
		"order-123",
		"product-7",
		"buyer@shop.test",
		"approved",
		map[string]interface{}{
			"manager": "seller@shop.test",
		},
	)

	if event.EventType != EventTypeOrderApproved {
		t.Errorf("expected event type %s, got %s", EventTypeOrderApproved, event.EventType)
	}
	if event.OrderID != "order-123" {
		t.Errorf("expected order id order-123, got %s", event.OrderID)
	}
	if event.ProductID != "product-7" {
		t.Errorf("expected product id product-7, got %s", event.ProductID)
	}
	if event.Status != "approved" {
		t.Errorf("expected status approved, got %s", event.Status)
	}
	if event.Metadata["manager"] != "seller@shop.test" {
		t.Error("metadata not set correctly")
	}

	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("timestamp should be close to current time")
	}
}

func TestNewPaymentEvent(t *testing.T) {
	event := NewPaymentEvent("txn-42", "product-7", "buyer@shop.test", 900, "BDT")

	if event.EventType != EventTypePaymentRecorded {
		t.Errorf("expected event type %s, got %s", EventTypePaymentRecorded, event.EventType)
	}
	if event.TransactionID != "txn-42" {
		t.Errorf("expected transaction id txn-42, got %s", event.TransactionID)
	}
	if event.Amount != 900 || event.Currency != "BDT" {
		t.Errorf("unexpected amount fields: %d %s", event.Amount, event.Currency)
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
}
