package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher publishes order events to topic, keyed by order number so
// every event for one order lands on the same partition.
func NewKafkaPublisher(brokers []string, topic string) Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	log.Info().Strs("brokers", brokers).Str("topic", topic).Msg("Kafka order event publisher configured")
	return &kafkaPublisher{writer: w}
}

func (k *kafkaPublisher) PublishOrderEvent(ctx context.Context, e OrderEvent) error {
	msg, err := encode(e)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: failed to publish %s for %s: %w", e.Type, e.OrderNumber, err)
	}
	return nil
}

func (k *kafkaPublisher) Close() error {
	return k.writer.Close()
}

func encode(e OrderEvent) (kafka.Message, error) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("events: failed to marshal %s: %w", e.Type, err)
	}
	return kafka.Message{
		Key:   []byte(e.OrderNumber),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}, nil
}
