package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
)

func TestParseBrokers(t *testing.T) {
	brokers := parseBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(brokers) != 2 {
		t.Fatalf("unexpected brokers count: got=%d want=2", len(brokers))
	}
	if brokers[0] != "kafka-1:9092" || brokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %+v", brokers)
	}
}

func TestExtractReplayMessage_ConsumerDLQPayload(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"original_topic": "marketplace.order.events",
		"original_key":   "order-1",
		"original_value": `{"id":"evt-1"}`,
	})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}

	got, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: raw}, config{targetTopic: "fallback-topic"})
	if err != nil {
		t.Fatalf("extractReplayMessage failed: %v", err)
	}
	if !ok {
		t.Fatal("expected replay candidate")
	}
	if got.topic != "marketplace.order.events" {
		t.Fatalf("unexpected topic: %s", got.topic)
	}
	if got.key != "order-1" {
		t.Fatalf("unexpected key: %s", got.key)
	}
	if string(got.value) != `{"id":"evt-1"}` {
		t.Fatalf("unexpected replay value: %s", string(got.value))
	}
}

func TestExtractReplayMessage_OutboxDLQPayload(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"id":             "outbox-1",
		"aggregate_type": "order",
		"aggregate_id":   "order-1",
		"event_type":     "order.approved",
		"payload": map[string]any{
			"outbox_id":      "outbox-1",
			"aggregate_type": "order",
			"aggregate_id":   "order-1",
			"event_type":     "order.approved",
			"payload":        map[string]any{"status": "approved"},
			"publish_error":  "timeout",
		},
	})
	if err != nil {
		t.Fatalf("marshal envelope failed: %v", err)
	}

	got, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: raw}, config{targetTopic: "marketplace.order.events"})
	if err != nil {
		t.Fatalf("extractReplayMessage failed: %v", err)
	}
	if !ok {
		t.Fatal("expected replay candidate")
	}
	if got.topic != "marketplace.order.events" {
		t.Fatalf("unexpected topic: %s", got.topic)
	}
	if got.key != "order-1" {
		t.Fatalf("unexpected key: %s", got.key)
	}

	var replay kafka.EventEnvelope
	if err := json.Unmarshal(got.value, &replay); err != nil {
		t.Fatalf("replay payload must be a valid envelope: %v", err)
	}
	if replay.EventType != "order.approved" {
		t.Fatalf("unexpected event type: %s", replay.EventType)
	}
}

func TestExtractReplayMessage_OutboxMissingNestedPayload(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"id":             "outbox-1",
		"aggregate_type": "order",
		"aggregate_id":   "order-1",
		"event_type":     "order.approved",
		"payload": map[string]any{
			"outbox_id":     "outbox-1",
			"publish_error": "timeout",
		},
	})
	if err != nil {
		t.Fatalf("marshal envelope failed: %v", err)
	}

	_, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: raw}, config{targetTopic: "marketplace.order.events"})
	if err == nil {
		t.Fatal("expected error for missing nested payload")
	}
	if ok {
		t.Fatal("expected no replay candidate")
	}
}

func TestExtractReplayMessage_UnknownPayload(t *testing.T) {
	_, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: []byte(`{"foo":"bar"}`)}, config{targetTopic: "marketplace.order.events"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected message to be skipped")
	}
}

func TestExtractReplayMessage_Filters(t *testing.T) {
	outboxRaw, err := json.Marshal(map[string]any{
		"id":             "outbox-1",
		"aggregate_type": "order",
		"aggregate_id":   "order-1",
		"event_type":     "order.approved",
		"payload": map[string]any{
			"outbox_id":      "outbox-1",
			"aggregate_type": "order",
			"aggregate_id":   "order-1",
			"event_type":     "order.approved",
			"payload":        map[string]any{"status": "approved"},
			"publish_error":  "timeout",
		},
	})
	if err != nil {
		t.Fatalf("marshal envelope failed: %v", err)
	}

	cases := []struct {
		name   string
		value  []byte
		cfg    config
		wantOK bool
	}{
		{
			name:   "event type matches",
			value:  outboxRaw,
			cfg:    config{targetTopic: "marketplace.order.events", eventType: "order.approved"},
			wantOK: true,
		},
		{
			name:   "event type mismatch",
			value:  outboxRaw,
			cfg:    config{targetTopic: "marketplace.order.events", eventType: "payment.recorded"},
			wantOK: false,
		},
		{
			name:   "aggregate type matches",
			value:  outboxRaw,
			cfg:    config{targetTopic: "marketplace.order.events", aggregateType: "order"},
			wantOK: true,
		},
		{
			name:   "aggregate type mismatch",
			value:  outboxRaw,
			cfg:    config{targetTopic: "marketplace.order.events", aggregateType: "payment"},
			wantOK: false,
		},
		{
			name:   "consumer record excluded by any filter",
			value:  consumerDLQMessage(0, 0, "order-1").Value,
			cfg:    config{targetTopic: "marketplace.order.events", eventType: "order.approved"},
			wantOK: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: tc.value}, tc.cfg)
			if err != nil {
				t.Fatalf("extractReplayMessage failed: %v", err)
			}
			if ok != tc.wantOK {
				t.Fatalf("unexpected replay decision: got=%v want=%v", ok, tc.wantOK)
			}
		})
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "  ", "x", "y"); got != "x" {
		t.Fatalf("unexpected first non-empty value: %q", got)
	}
	if got := firstNonEmpty("", " "); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestReadConfig_FromFlags(t *testing.T) {
	withFlagArgs(t, []string{
		"-brokers=kafka-1:9092,kafka-2:9092",
		"-source-topic=marketplace.dlq",
		"-target-topic=marketplace.order.events",
		"-limit=10",
		"-execute=true",
		"-from-newest=true",
		"-event-type=order.created",
		"-aggregate-type=order",
		"-idle-timeout=3s",
	}, func() {
		cfg, err := readConfig()
		if err != nil {
			t.Fatalf("readConfig failed: %v", err)
		}
		if len(cfg.brokers) != 2 {
			t.Fatalf("unexpected brokers count: %d", len(cfg.brokers))
		}
		if cfg.limit != 10 {
			t.Fatalf("unexpected limit: %d", cfg.limit)
		}
		if !cfg.execute {
			t.Fatal("expected execute=true")
		}
		if !cfg.fromNewest {
			t.Fatal("expected fromNewest=true")
		}
		if cfg.eventType != "order.created" {
			t.Fatalf("unexpected event-type filter: %q", cfg.eventType)
		}
		if cfg.aggregateType != "order" {
			t.Fatalf("unexpected aggregate-type filter: %q", cfg.aggregateType)
		}
		if cfg.idleTimeout != 3*time.Second {
			t.Fatalf("unexpected idle-timeout: %s", cfg.idleTimeout)
		}
	})
}

func TestReadConfig_ValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "no brokers",
			args:    []string{"-brokers="},
			wantErr: "kafka brokers are required",
		},
		{
			name:    "empty source topic",
			args:    []string{"-brokers=kafka:9092", "-source-topic="},
			wantErr: "source-topic is required",
		},
		{
			name:    "empty target topic",
			args:    []string{"-brokers=kafka:9092", "-target-topic="},
			wantErr: "target-topic is required",
		},
		{
			name:    "zero limit",
			args:    []string{"-brokers=kafka:9092", "-limit=0"},
			wantErr: "limit must be > 0",
		},
		{
			name:    "zero idle timeout",
			args:    []string{"-brokers=kafka:9092", "-idle-timeout=0s"},
			wantErr: "idle-timeout must be > 0",
		},
		{
			name:    "unknown aggregate type",
			args:    []string{"-brokers=kafka:9092", "-aggregate-type=invoice"},
			wantErr: "unknown aggregate type",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			withFlagArgs(t, tc.args, func() {
				_, err := readConfig()
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected %q error, got: %v", tc.wantErr, err)
				}
			})
		})
	}
}

func TestPublishReplay(t *testing.T) {
	if err := publishReplay(nil, replayMessage{}); err == nil {
		t.Fatal("expected error for nil producer")
	}

	producer := &fakeReplayProducer{}
	err := publishReplay(producer, replayMessage{topic: "topic", key: "key", value: []byte(`{"x":1}`)})
	if err != nil {
		t.Fatalf("publishReplay failed: %v", err)
	}
	if producer.calls != 1 {
		t.Fatalf("unexpected producer calls: %d", producer.calls)
	}
	if producer.lastMsg == nil || producer.lastMsg.Topic != "topic" {
		t.Fatalf("unexpected last message: %+v", producer.lastMsg)
	}

	producer.sendErr = errors.New("send failed")
	if err := publishReplay(producer, replayMessage{topic: "topic"}); err == nil {
		t.Fatal("expected publishReplay error")
	}
}

func TestProcessPartition_DryRun(t *testing.T) {
	client := &fakeOffsetClient{
		partitions: []int32{0},
		offsets:    map[int32]offsetRange{0: {oldest: 0, newest: 2}},
	}
	consumer := &fakeConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: drainedPartitionConsumer(consumerDLQMessage(0, 0, "order-1")),
		},
	}

	cfg := replayTestConfig(false)

	stats, err := processPartition(context.Background(), consumer, client, nil, cfg, 0, 10)
	if err != nil {
		t.Fatalf("processPartition failed: %v", err)
	}
	if stats.processed != 1 || stats.replayed != 1 || stats.skipped != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(consumer.calls) != 1 || consumer.calls[0].offset != 0 {
		t.Fatalf("unexpected consume calls: %+v", consumer.calls)
	}
}

func TestProcessPartition_FromNewest(t *testing.T) {
	client := &fakeOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 10}}}
	consumer := &fakeConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: drainedPartitionConsumer(
				consumerDLQMessage(0, 7, "order-7"),
				consumerDLQMessage(0, 8, "order-8"),
				consumerDLQMessage(0, 9, "order-9"),
			),
		},
	}

	cfg := replayTestConfig(false)
	cfg.fromNewest = true

	stats, err := processPartition(context.Background(), consumer, client, nil, cfg, 0, 3)
	if err != nil {
		t.Fatalf("processPartition failed: %v", err)
	}
	if stats.processed != 3 || stats.replayed != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(consumer.calls) != 1 || consumer.calls[0].offset != 7 {
		t.Fatalf("expected consume to start at newest-limit, got calls=%+v", consumer.calls)
	}

	// Если хвост короче лимита, старт прижимается к oldest.
	clampedClient := &fakeOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 5, newest: 7}}}
	clampedConsumer := &fakeConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: drainedPartitionConsumer(consumerDLQMessage(0, 5, "order-5")),
		},
	}
	if _, err := processPartition(context.Background(), clampedConsumer, clampedClient, nil, cfg, 0, 10); err != nil {
		t.Fatalf("processPartition failed: %v", err)
	}
	if len(clampedConsumer.calls) != 1 || clampedConsumer.calls[0].offset != 5 {
		t.Fatalf("expected start offset clamped to oldest, got calls=%+v", clampedConsumer.calls)
	}
}

func TestProcessPartition_Execute(t *testing.T) {
	client := &fakeOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	consumer := &fakeConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: drainedPartitionConsumer(consumerDLQMessage(0, 0, "order-1")),
		},
	}
	producer := &fakeReplayProducer{}

	stats, err := processPartition(context.Background(), consumer, client, producer, replayTestConfig(true), 0, 10)
	if err != nil {
		t.Fatalf("processPartition failed: %v", err)
	}
	if stats.replayed != 1 {
		t.Fatalf("expected replayed=1, got %+v", stats)
	}
	if producer.calls != 1 {
		t.Fatalf("expected one producer call, got %d", producer.calls)
	}
	if producer.lastMsg.Topic != "marketplace.order.events" {
		t.Fatalf("unexpected replay topic: %s", producer.lastMsg.Topic)
	}
}

func TestProcessPartition_ErrorBranches(t *testing.T) {
	cfg := replayTestConfig(true)

	offsetErrClient := &fakeOffsetClient{offsetErr: map[int32]error{0: errors.New("offset")}}
	if _, err := processPartition(context.Background(), &fakeConsumerSource{}, offsetErrClient, &fakeReplayProducer{}, cfg, 0, 1); err == nil {
		t.Fatal("expected offset error")
	}

	client := &fakeOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	consumeErr := &fakeConsumerSource{consumeErr: errors.New("consume")}
	if _, err := processPartition(context.Background(), consumeErr, client, &fakeReplayProducer{}, cfg, 0, 1); err == nil {
		t.Fatal("expected consume error")
	}

	badPayload := drainedPartitionConsumer(&sarama.ConsumerMessage{
		Partition: 0,
		Offset:    0,
		Value:     []byte(`{"id":"x","payload":{"outbox_id":"x"}}`),
	})
	consumer := &fakeConsumerSource{consumers: map[int32]partitionConsumer{0: badPayload}}
	stats, err := processPartition(context.Background(), consumer, client, &fakeReplayProducer{}, cfg, 0, 1)
	if err != nil {
		t.Fatalf("unexpected bad-payload error: %v", err)
	}
	if stats.skipped != 1 {
		t.Fatalf("expected skipped=1, got %+v", stats)
	}

	consumer = &fakeConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: drainedPartitionConsumer(consumerDLQMessage(0, 0, "order-1")),
		},
	}
	producer := &fakeReplayProducer{sendErr: errors.New("send fail")}
	if _, err := processPartition(context.Background(), consumer, client, producer, cfg, 0, 1); err == nil {
		t.Fatal("expected producer send error")
	}
}

func TestProcessPartition_IdleTimeoutAndContext(t *testing.T) {
	client := &fakeOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	cfg := replayTestConfig(false)
	cfg.idleTimeout = 10 * time.Millisecond

	idlePC := &fakePartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError),
	}
	consumer := &fakeConsumerSource{consumers: map[int32]partitionConsumer{0: idlePC}}

	stats, err := processPartition(context.Background(), consumer, client, nil, cfg, 0, 1)
	if err != nil {
		t.Fatalf("unexpected idle-timeout error: %v", err)
	}
	if stats.processed != 0 {
		t.Fatalf("expected processed=0, got %+v", stats)
	}
	close(idlePC.messages)
	close(idlePC.errors)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	canceledPC := &fakePartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError),
	}
	canceledConsumer := &fakeConsumerSource{consumers: map[int32]partitionConsumer{0: canceledPC}}
	if _, err := processPartition(ctx, canceledConsumer, client, nil, cfg, 0, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	close(canceledPC.messages)
	close(canceledPC.errors)
}

func TestRunReplay(t *testing.T) {
	cfg := replayTestConfig(false)
	cfg.limit = 1

	if err := runReplay(context.Background(), cfg, nil, nil, nil); err == nil {
		t.Fatal("expected missing deps error")
	}

	client := &fakeOffsetClient{
		partitions: []int32{2, 0},
		offsets: map[int32]offsetRange{
			0: {oldest: 0, newest: 2},
			2: {oldest: 0, newest: 2},
		},
	}
	consumer := &fakeConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: drainedPartitionConsumer(consumerDLQMessage(0, 0, "order-1")),
			2: drainedPartitionConsumer(consumerDLQMessage(2, 0, "order-2")),
		},
	}

	if err := runReplay(context.Background(), cfg, client, consumer, nil); err != nil {
		t.Fatalf("runReplay failed: %v", err)
	}
	if len(consumer.calls) != 1 {
		t.Fatalf("expected one partition due to limit=1, got calls=%d", len(consumer.calls))
	}
	if consumer.calls[0].partition != 0 {
		t.Fatalf("expected first sorted partition=0, got %d", consumer.calls[0].partition)
	}

	executeCfg := cfg
	executeCfg.execute = true
	if err := runReplay(context.Background(), executeCfg, client, consumer, nil); err == nil {
		t.Fatal("expected execute mode to require producer")
	}

	emptyClient := &fakeOffsetClient{partitions: nil}
	if err := runReplay(context.Background(), cfg, emptyClient, consumer, nil); err != nil {
		t.Fatalf("expected nil error for empty partitions, got %v", err)
	}
}

func TestRun_UsesDependencies(t *testing.T) {
	oldDeps := newReplayDependencies
	defer func() { newReplayDependencies = oldDeps }()

	cfg := replayTestConfig(false)
	cfg.limit = 1

	newReplayDependencies = func(config) (offsetClient, partitionConsumerSource, replayProducer, error) {
		return nil, nil, nil, errors.New("deps failed")
	}
	if err := run(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "deps failed") {
		t.Fatalf("expected deps error, got %v", err)
	}

	client := &fakeOffsetClient{
		partitions: []int32{0},
		offsets:    map[int32]offsetRange{0: {oldest: 0, newest: 2}},
	}
	consumer := &fakeConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: drainedPartitionConsumer(consumerDLQMessage(0, 0, "order-1")),
		},
	}
	producer := &fakeReplayProducer{}

	newReplayDependencies = func(config) (offsetClient, partitionConsumerSource, replayProducer, error) {
		return client, consumer, producer, nil
	}
	if err := run(context.Background(), cfg); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !client.closed || !consumer.closed || !producer.closed {
		t.Fatalf("expected all deps to be closed: client=%v consumer=%v producer=%v", client.closed, consumer.closed, producer.closed)
	}
}

func replayTestConfig(execute bool) config {
	return config{
		sourceTopic: "marketplace.dlq",
		targetTopic: "marketplace.order.events",
		limit:       10,
		execute:     execute,
		idleTimeout: 20 * time.Millisecond,
	}
}

func consumerDLQMessage(partition int32, offset int64, key string) *sarama.ConsumerMessage {
	payload, _ := json.Marshal(map[string]any{
		"original_topic": "marketplace.order.events",
		"original_key":   key,
		"original_value": `{"id":"evt-1"}`,
	})
	return &sarama.ConsumerMessage{Partition: partition, Offset: offset, Value: payload}
}

func withFlagArgs(t *testing.T, args []string, fn func()) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine

	os.Args = append([]string{"dlq-reprocess"}, args...)
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	fn()
}

type offsetRange struct {
	oldest int64
	newest int64
}

type fakeOffsetClient struct {
	partitions    []int32
	partitionsErr error
	offsets       map[int32]offsetRange
	offsetErr     map[int32]error
	closed        bool
}

func (f *fakeOffsetClient) GetOffset(_ string, partition int32, marker int64) (int64, error) {
	if err, ok := f.offsetErr[partition]; ok {
		return 0, err
	}

	r := f.offsets[partition]
	switch marker {
	case sarama.OffsetOldest:
		return r.oldest, nil
	case sarama.OffsetNewest:
		return r.newest, nil
	default:
		return 0, fmt.Errorf("unsupported marker %d", marker)
	}
}

func (f *fakeOffsetClient) Partitions(string) ([]int32, error) {
	if f.partitionsErr != nil {
		return nil, f.partitionsErr
	}
	return append([]int32(nil), f.partitions...), nil
}

func (f *fakeOffsetClient) Close() error {
	f.closed = true
	return nil
}

type consumeCall struct {
	partition int32
	offset    int64
}

type fakeConsumerSource struct {
	consumers  map[int32]partitionConsumer
	consumeErr error
	calls      []consumeCall
	closed     bool
}

func (f *fakeConsumerSource) ConsumePartition(_ string, partition int32, offset int64) (partitionConsumer, error) {
	f.calls = append(f.calls, consumeCall{partition: partition, offset: offset})
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	pc, ok := f.consumers[partition]
	if !ok {
		return nil, fmt.Errorf("partition %d not configured", partition)
	}
	return pc, nil
}

func (f *fakeConsumerSource) Close() error {
	f.closed = true
	return nil
}

type fakePartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
	closed   bool
}

func (f *fakePartitionConsumer) Messages() <-chan *sarama.ConsumerMessage { return f.messages }
func (f *fakePartitionConsumer) Errors() <-chan *sarama.ConsumerError     { return f.errors }
func (f *fakePartitionConsumer) Close() error {
	f.closed = true
	return nil
}

func drainedPartitionConsumer(messages ...*sarama.ConsumerMessage) *fakePartitionConsumer {
	msgCh := make(chan *sarama.ConsumerMessage, len(messages))
	errCh := make(chan *sarama.ConsumerError)
	for _, msg := range messages {
		msgCh <- msg
	}
	close(msgCh)
	close(errCh)
	return &fakePartitionConsumer{messages: msgCh, errors: errCh}
}

type fakeReplayProducer struct {
	sendErr error
	calls   int
	closed  bool
	lastMsg *sarama.ProducerMessage
}

func (f *fakeReplayProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	f.calls++
	f.lastMsg = msg
	if f.sendErr != nil {
		return 0, 0, f.sendErr
	}
	return 0, int64(f.calls), nil
}

func (f *fakeReplayProducer) Close() error {
	f.closed = true
	return nil
}
