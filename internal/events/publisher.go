package events

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"time"

	"usersvc/internal/observability"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

const publishTimeout = 5 * time.Second

// Publisher delivers metric events. Publish is best-effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher discards every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig holds broker connection settings.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	Username string
	Password string
}

// KafkaPublisher writes events as JSON to a Kafka topic.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher returns a Kafka-backed publisher, or a NopPublisher when
// no brokers are configured.
func NewKafkaPublisher(cfg KafkaConfig) Publisher {
	if len(cfg.Brokers) == 0 {
		observability.GlobalLogger.Info("kafka brokers not configured, metric events disabled")
		return NopPublisher{}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: 10 * time.Second,
	}
	if cfg.Username != "" {
		writer.Transport = &kafka.Transport{
			SASL: plain.Mechanism{Username: cfg.Username, Password: cfg.Password},
			TLS:  &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}

	return newKafkaPublisher(writer, cfg.Topic)
}

func newKafkaPublisher(w messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic}
}

// Publish writes the event, retrying once. A second failure is logged and
// counted but never returned, so callers are not failed by the broker.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.writer == nil {
		return nil
	}

	value, err := json.Marshal(event)
	if err != nil {
		observability.LogAsyncOperationError(ctx, "metric_marshal", err, map[string]any{
			"event_type": event.EventType(),
		})
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Time:  time.Now(),
	}

	// Detach from the request so a finished request does not cancel delivery.
	base := context.WithoutCancel(ctx)
	for attempt := 1; attempt <= 2; attempt++ {
		wctx, cancel := context.WithTimeout(base, publishTimeout)
		err = p.writer.WriteMessages(wctx, msg)
		cancel()
		if err == nil {
			return nil
		}
	}

	observability.MetricEventsDropped.WithLabelValues(event.EventType()).Inc()
	observability.LogAsyncOperationError(ctx, "metric_publish", err, map[string]any{
		"event_type": event.EventType(),
		"topic":      p.topic,
	})
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
