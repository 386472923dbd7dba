package main

import (
	"context"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/kafka"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

// OutboundMessage is the sink-neutral form of an outbox row.
type OutboundMessage struct {
	Key        string
	Data       []byte
	Attributes map[string]string
}

// Sink delivers resolved outbox events to a broker.
type Sink interface {
	Name() string
	Ping(context.Context) error
	Publish(ctx context.Context, topic string, msg OutboundMessage) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type pubSubSink struct {
	client pubSubClient
}

func newPubSubSink(client pubSubClient) *pubSubSink {
	return &pubSubSink{client: client}
}

func (s *pubSubSink) Name() string { return config.OutboxSinkPubSub }

func (s *pubSubSink) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s *pubSubSink) Publish(ctx context.Context, topic string, msg OutboundMessage) error {
	pub := s.client.Publisher(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data:       msg.Data,
		Attributes: msg.Attributes,
	})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(ctx)
	return err
}

type kafkaProducer interface {
	Ping(context.Context) error
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// kafkaSink keys records by aggregate id so one order's events stay ordered
// within a partition. The registry topic travels as a header; the Kafka topic
// comes from configuration.
type kafkaSink struct {
	producer kafkaProducer
}

func newKafkaSink(producer kafkaProducer) *kafkaSink {
	return &kafkaSink{producer: producer}
}

func (s *kafkaSink) Name() string { return config.OutboxSinkKafka }

func (s *kafkaSink) Ping(ctx context.Context) error { return s.producer.Ping(ctx) }

func (s *kafkaSink) Publish(ctx context.Context, topic string, msg OutboundMessage) error {
	if msg.Key == "" {
		return registry.NewNonRetryableError(errors.New("message key is required"))
	}
	headers := make(map[string]string, len(msg.Attributes)+1)
	for k, v := range msg.Attributes {
		headers[k] = v
	}
	if topic != "" {
		headers["topic"] = topic
	}
	return s.producer.Publish(ctx, kafka.Message{
		Key:     msg.Key,
		Value:   msg.Data,
		Headers: headers,
	})
}
