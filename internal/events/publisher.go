package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

const (
	TypeOrderCreated             = "order.created"
	TypeOrderStatusChanged       = "order.status_changed"
	TypeProductStockChanged      = "product.stock_changed"
	TypeIntegrationStatusChanged = "integration.status_changed"
	TypeWebhookFailed            = "webhook.failed"
)

// Event is the envelope published to the event topic. Data holds the
// event-specific payload and must be JSON-serializable.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	ShopID     uuid.UUID `json:"shop_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

func New(eventType string, shopID uuid.UUID, data any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		ShopID:     shopID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

type Publisher interface {
	Publish(event Event) error
	Close() error
}

// NewPublisher returns a Kafka-backed publisher, or a no-op one when no
// brokers are configured so single-node deployments run without Kafka.
func NewPublisher(brokers []string, topic string) (Publisher, error) {
	if len(brokers) == 0 {
		slog.Info("Kafka brokers not configured, event publishing disabled")
		return NoopPublisher{}, nil
	}
	return NewKafkaPublisher(brokers, topic)
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return &KafkaPublisher{producer: producer, topic: topic}, nil
}

// Publish sends the event keyed by shop id, which keeps per-shop ordering
// under the default hash partitioner.
func (p *KafkaPublisher) Publish(event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Type, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.ShopID.String()),
		Value: sarama.ByteEncoder(value),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send event %s: %w", event.Type, err)
	}

	slog.Debug("Event published",
		slog.String("type", event.Type),
		slog.String("shop_id", event.ShopID.String()),
		slog.Int64("partition", int64(partition)),
		slog.Int64("offset", offset))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher drops every event. Used when Kafka is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(Event) error { return nil }
func (NoopPublisher) Close() error        { return nil }
