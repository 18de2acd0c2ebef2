package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/tbourn/go-premium-backend/internal/config"
)

// Publisher delivers envelopes to a message bus.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close()
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Envelope) error { return nil }
func (NopPublisher) Close()                                  {}

// producer is the part of *kgo.Client the publisher needs.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// deliveryTimeout caps how long a record may wait for a reachable broker.
const deliveryTimeout = 5 * time.Second

// KafkaPublisher writes envelopes as JSON records to a single topic.
type KafkaPublisher struct {
	client producer
	topic  string
}

// NewKafkaPublisher connects a franz-go client to the configured brokers.
func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordDeliveryTimeout(deliveryTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: new client: %w", err)
	}
	return &KafkaPublisher{client: cl, topic: cfg.Topic}, nil
}

// NewPublisher returns a KafkaPublisher when brokers are configured and a
// NopPublisher otherwise.
func NewPublisher(cfg config.KafkaConfig) (Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return NopPublisher{}, nil
	}
	return NewKafkaPublisher(cfg)
}

// Publish validates env and produces it synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, env Envelope) error {
	if err := env.Validate(); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("kafka publish: marshal: %w", err)
	}

	record := &kgo.Record{
		Topic:     p.topic,
		Value:     data,
		Timestamp: env.Timestamp,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	}
	if env.Key != "" {
		record.Key = []byte(env.Key)
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (p *KafkaPublisher) Close() { p.client.Close() }
