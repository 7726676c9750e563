// Package events emits domain events to Kafka for downstream consumers
// (notifications, analytics). Publishing is always best-effort.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/campuslink/backend/internal/dto"
	"github.com/campuslink/backend/internal/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const TypeMessageCreated = "message.created"

// Publisher sends chat events somewhere outside the process.
type Publisher interface {
	PublishMessageCreated(ctx context.Context, msg *dto.MessageResponse) error
	Close() error
}

// MessageCreated is the payload written for every persisted chat message.
type MessageCreated struct {
	Type       string               `json:"type"`
	Message    *dto.MessageResponse `json:"message"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// messageWriter is the slice of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher builds an async writer; WriteMessages returns once the
// message is queued, so chat delivery never waits on the broker.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.WarnWithFields("Kafka delivery failed", err, zap.Int("messages", len(messages)))
			}
		},
	}
	return &KafkaPublisher{w: w}
}

// PublishMessageCreated keys by conversation so one conversation's events
// land on one partition in order.
func (p *KafkaPublisher) PublishMessageCreated(ctx context.Context, msg *dto.MessageResponse) error {
	value, err := json.Marshal(MessageCreated{
		Type:       TypeMessageCreated,
		Message:    msg,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ConversationID),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(TypeMessageCreated)},
		},
	})
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishMessageCreated(context.Context, *dto.MessageResponse) error { return nil }
func (NopPublisher) Close() error                                                      { return nil }
