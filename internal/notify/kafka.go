package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"
)

const (
	defaultDeliveryTimeout = 30 * time.Second
	defaultMaxBuffered     = 10000
)

// KafkaConfig configures the Kafka notifier. Zero DeliveryTimeout and
// MaxBuffered take the defaults.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	Username string
	Password string

	// DeliveryTimeout bounds how long an event is retried before it is dropped.
	DeliveryTimeout time.Duration
	// MaxBuffered caps events waiting for the broker; further events are dropped.
	MaxBuffered int
}

// KafkaNotifier produces events to a topic keyed by order id, so every event of
// one order lands on the same partition.
type KafkaNotifier struct {
	client  *kgo.Client
	topic   string
	dropped atomic.Int64
}

func NewKafkaNotifier(cfg KafkaConfig) (*KafkaNotifier, error) {
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	if cfg.MaxBuffered <= 0 {
		cfg.MaxBuffered = defaultMaxBuffered
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProducerLinger(10 * time.Millisecond),
		kgo.RecordDeliveryTimeout(cfg.DeliveryTimeout),
		kgo.MaxBufferedRecords(cfg.MaxBuffered),
		kgo.WithLogger(kgo.BasicLogger(os.Stderr, kgo.LogLevelWarn, nil)),
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, kgo.SASL(plain.Auth{
			User: cfg.Username,
			Pass: cfg.Password,
		}.AsMechanism()))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return &KafkaNotifier{client: client, topic: cfg.Topic}, nil
}

// Notify enqueues the event and returns without waiting for the broker. When
// the buffer is full the event is dropped and logged.
func (k *KafkaNotifier) Notify(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(ev.OrderID),
		Value: data,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(ev.Type)},
			{Key: "version", Value: []byte("1.0")},
		},
		Timestamp: ev.At,
	}
	// the request context may be cancelled once the handler returns
	k.client.TryProduce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			k.dropped.Add(1)
			log.Printf("notify: produce %s for order %s: %v", ev.Type, ev.OrderID, err)
		}
	})
	return nil
}

// Dropped counts events that never reached the broker.
func (k *KafkaNotifier) Dropped() int64 { return k.dropped.Load() }

// Close flushes buffered records and closes the client.
func (k *KafkaNotifier) Close(ctx context.Context) error {
	err := k.client.Flush(ctx)
	k.client.Close()
	if n := k.Dropped(); n > 0 {
		log.Printf("notify: %d events dropped", n)
	}
	return err
}
