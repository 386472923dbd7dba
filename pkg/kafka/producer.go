// Package kafka publishes storefront domain events to a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var (
	ErrProducerClosed = errors.New("kafka producer closed")
	errNoBrokers      = errors.New("kafka brokers are required")
)

// Message is a single record written by the producer.
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes synchronously so callers only mark rows delivered after the
// broker acknowledged them.
type Producer struct {
	writer  writer
	brokers []string
	topic   string
	timeout time.Duration
	closed  atomic.Bool
}

func NewProducer(cfg config.KafkaConfig, logg *logger.Logger) (*Producer, error) {
	brokers := cleanBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, errNoBrokers
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka topic is required")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: cfg.WriteTimeout,
		Compression:  kafka.Snappy,
		Transport: &kafka.Transport{
			Dial: func(ctx context.Context, network string, address string) (net.Conn, error) {
				dialer := &kafka.Dialer{
					Timeout:   10 * time.Second,
					DualStack: true,
					KeepAlive: 30 * time.Second,
				}
				return dialer.DialContext(ctx, network, address)
			},
		},
	}
	if logg != nil {
		w.ErrorLogger = kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logg.Warn(context.Background(), "kafka writer: "+fmt.Sprintf(msg, args...))
		})
	}

	return newProducer(w, brokers, cfg.Topic, cfg.WriteTimeout), nil
}

func newProducer(w writer, brokers []string, topic string, timeout time.Duration) *Producer {
	return &Producer{writer: w, brokers: brokers, topic: topic, timeout: timeout}
}

// Topic returns the topic every message is written to.
func (p *Producer) Topic() string {
	return p.topic
}

// Publish writes msgs and blocks until the broker acknowledges them.
func (p *Producer) Publish(ctx context.Context, msgs ...Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if len(msgs) == 0 {
		return nil
	}
	records := make([]kafka.Message, 0, len(msgs))
	for _, msg := range msgs {
		records = append(records, toKafkaMessage(msg))
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.writer.WriteMessages(ctx, records...); err != nil {
		return fmt.Errorf("kafka write %s: %w", p.topic, err)
	}
	return nil
}

// Ping dials the first reachable broker.
func (p *Producer) Ping(ctx context.Context) error {
	var lastErr error
	for _, broker := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	if lastErr == nil {
		lastErr = errNoBrokers
	}
	return fmt.Errorf("kafka ping: %w", lastErr)
}

func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}

func toKafkaMessage(msg Message) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for key, value := range msg.Headers {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}
	return kafka.Message{
		Key:     []byte(msg.Key),
		Value:   msg.Value,
		Headers: headers,
	}
}

func cleanBrokers(brokers []string) []string {
	out := make([]string, 0, len(brokers))
	for _, broker := range brokers {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
