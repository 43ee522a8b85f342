//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "readykids/pkg/platform/audit"
	"readykids/pkg/platform/audit/publishers/kafka"
	"readykids/pkg/testutil/containers"
)

type KafkaSinkSuite struct {
	suite.Suite
	broker string
}

func TestKafkaSinkSuite(t *testing.T) {
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.broker = mgr.GetRedpanda(s.T()).Broker
}

func (s *KafkaSinkSuite) TestAppendPublishesKeyedRecord() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "readykids.test.lifecycle"
	sink, err := kafka.New(ctx, kafka.Config{Brokers: []string{s.broker}, Topic: topic, Partitions: 1})
	s.Require().NoError(err)
	defer func() { _ = sink.Close(ctx) }()

	s.Run("creating the sink twice tolerates an existing topic", func() {
		again, err := kafka.New(ctx, kafka.Config{Brokers: []string{s.broker}, Topic: topic, Partitions: 1})
		s.Require().NoError(err)
		s.NoError(again.Close(ctx))
	})

	event := audit.Event{
		ID:            "evt-1",
		Action:        string(audit.EventApplicationCreated),
		ApplicationID: "RK-2026-00001",
		Stage:         "new",
		Timestamp:     time.Now().UTC().Truncate(time.Millisecond),
	}
	s.Require().NoError(sink.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)

	rec := records[0]
	s.Equal("RK-2026-00001", string(rec.Key))
	s.Require().Len(rec.Headers, 1)
	s.Equal("application_created", string(rec.Headers[0].Value))

	var got audit.Event
	s.Require().NoError(json.Unmarshal(rec.Value, &got))
	s.Equal(event.ID, got.ID)
	s.Equal(event.ApplicationID, got.ApplicationID)
}
