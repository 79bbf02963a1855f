package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/adapter"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaAuditPublisher mirrors committed audit entries to a topic, keyed by
// tag so one tag's history stays ordered within a partition.
type KafkaAuditPublisher struct {
	writer messageWriter
	topic  string
}

var _ adapter.AuditPublisher = (*KafkaAuditPublisher)(nil)

func NewKafkaAuditPublisher(brokers []string, topic string) (*KafkaAuditPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}
	return &KafkaAuditPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topic: topic,
	}, nil
}

type auditEvent struct {
	ID        string         `json:"id"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	TagID     string         `json:"tag_id,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (p *KafkaAuditPublisher) PublishAudit(ctx context.Context, e *model.AuditEntry) error {
	ev := auditEvent{
		ID:        e.ID,
		Actor:     e.Actor,
		Action:    string(e.Action),
		Meta:      e.Meta,
		CreatedAt: e.CreatedAt,
	}
	key := e.ID
	if e.TagID != nil {
		ev.TagID = *e.TagID
		key = *e.TagID
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(ev.Action)},
		},
	})
}

func (p *KafkaAuditPublisher) Close() error {
	return p.writer.Close()
}
