package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

type DefaultKafkaPublisher struct {
	writer *kafka.Writer
}

func NewDefaultKafkaPublisher(brokers []string) *DefaultKafkaPublisher {
	return &DefaultKafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  5,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (k *DefaultKafkaPublisher) Publish(ctx context.Context, topic string, msgs ...domain.Message) error {
	km := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		km = append(km, kafka.Message{
			Key:   m.Key,
			Value: m.Value,
			Time:  time.Now(),
			Topic: topic,
		})
	}

	return k.writer.WriteMessages(ctx, km...)
}

func (k *DefaultKafkaPublisher) Close() error {
	return k.writer.Close()
}

// PaymentEventPublisher writes payment events keyed by tx_ref so every event
// of one transaction lands on the same partition.
type PaymentEventPublisher struct {
	port  domain.PublisherPort
	topic string
}

func NewPaymentEventPublisher(port domain.PublisherPort, topic string) *PaymentEventPublisher {
	return &PaymentEventPublisher{port: port, topic: topic}
}

func (p *PaymentEventPublisher) PublishPaymentEvent(ctx context.Context, event PaymentEvent) error {
	v, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}
	return p.port.Publish(ctx, p.topic, domain.Message{Key: []byte(event.TxRef), Value: v})
}
