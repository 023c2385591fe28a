package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/namelens/domainwatch/internal/config"
	"github.com/namelens/domainwatch/internal/core"
)

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaSink publishes each payload to a topic keyed by monitor name, so one
// monitor's events stay ordered within a partition.
type KafkaSink struct {
	client producer
	topic  string
}

// NewKafkaSink builds a producer from configuration. The client connects
// lazily on first produce.
func NewKafkaSink(cfg config.KafkaSinkConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka sink requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka sink requires a topic")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: cfg.Topic}, nil
}

func (k *KafkaSink) Emit(ctx context.Context, event *core.CheckEvent) error {
	if event == nil {
		return nil
	}

	value, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.Monitor),
		Value: value,
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish event to %s: %w", k.topic, err)
	}
	return nil
}

// Close releases the Kafka client.
func (k *KafkaSink) Close() error {
	k.client.Close()
	return nil
}
