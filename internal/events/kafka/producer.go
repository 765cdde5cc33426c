package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CloudEvent is the CloudEvents v1.0 envelope published to Kafka.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         *string     `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType *string     `json:"datacontenttype,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

const (
	cloudEventSpecVersion     = "1.0"
	cloudEventDataContentType = "application/json"
)

// Publisher is the event-publication interface the services depend on.
type Publisher interface {
	Publish(ctx context.Context, eventType string, subject string, payload interface{}) error
	Close() error
}

// Producer publishes CloudEvents to a single Kafka topic via a sarama sync
// producer.
type Producer struct {
	producer sarama.SyncProducer
	logger   *zap.Logger
	topic    string
	source   string
}

// NewProducer creates a Producer. source identifies this service in the
// CloudEvent envelope, e.g. "/portfolio/auth-service".
func NewProducer(brokers []string, topic, source string, logger *zap.Logger) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{producer: producer, logger: logger, topic: topic, source: source}, nil
}

// Publish wraps the payload in a CloudEvent and sends it, keyed by subject
// so events for one entity stay ordered within a partition.
func (p *Producer) Publish(ctx context.Context, eventType string, subject string, payload interface{}) error {
	contentType := cloudEventDataContentType
	event := CloudEvent{
		SpecVersion:     cloudEventSpecVersion,
		Type:            eventType,
		Source:          p.source,
		ID:              uuid.NewString(),
		Time:            time.Now().UTC(),
		DataContentType: &contentType,
		Data:            payload,
	}
	if subject != "" {
		event.Subject = &subject
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal cloud event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(subject),
		Value: sarama.ByteEncoder(value),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("event_type", eventType), zap.Error(err))
		return fmt.Errorf("publish event %s: %w", eventType, err)
	}
	p.logger.Debug("Published event",
		zap.String("event_type", eventType),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// Close shuts down the underlying sarama producer.
func (p *Producer) Close() error {
	return p.producer.Close()
}

// NoopPublisher discards events; used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, eventType string, subject string, payload interface{}) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
