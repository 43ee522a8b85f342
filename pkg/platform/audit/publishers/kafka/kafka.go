// Package kafka publishes lifecycle events to a Kafka topic, keyed by
// application id so all events for one application stay ordered on a single
// partition.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "readykids/pkg/platform/audit"
)

const (
	headerAction = "action"
	linger       = 5 * time.Millisecond
)

type Config struct {
	Brokers    []string
	Topic      string
	Partitions int32
}

type Sink struct {
	client *kgo.Client
	topic  string
}

// New connects to the brokers and makes sure the topic exists.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerLinger(linger),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}

	if err := ensureTopic(ctx, client, cfg); err != nil {
		client.Close()
		return nil, err
	}
	return &Sink{client: client, topic: cfg.Topic}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, cfg Config) error {
	partitions := cfg.Partitions
	if partitions <= 0 {
		partitions = 1
	}
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, partitions, -1, nil, cfg.Topic)
	if err != nil {
		return fmt.Errorf("kafka: create topic %s: %w", cfg.Topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("kafka: create topic %s: %w", cfg.Topic, resp.Err)
	}
	return nil
}

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: encode event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.ApplicationID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: headerAction, Value: []byte(event.Action)},
		},
		Timestamp: event.Timestamp,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce %s: %w", event.Action, err)
	}
	return nil
}

// Ping checks that at least one broker answers.
func (s *Sink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close flushes buffered records and closes the client.
func (s *Sink) Close(ctx context.Context) error {
	err := s.client.Flush(ctx)
	s.client.Close()
	return err
}
