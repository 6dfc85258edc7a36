// Package kafka publishes accepted room messages for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/observability"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const EventMessageAccepted = "room.message.accepted"

// Event is the record value written for every accepted message.
type Event struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Message    *domain.Message `json:"message"`
}

type kgoRecordCarrier struct {
	record *kgo.Record
}

func (c kgoRecordCarrier) Get(key string) string {
	for _, h := range c.record.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c kgoRecordCarrier) Set(key string, value string) {
	for i, h := range c.record.Headers {
		if h.Key == key {
			c.record.Headers[i].Value = []byte(value)
			return
		}
	}
	c.record.Headers = append(c.record.Headers, kgo.RecordHeader{Key: key, Value: []byte(value)})
}

func (c kgoRecordCarrier) Keys() []string {
	keys := make([]string, 0, len(c.record.Headers))
	for _, h := range c.record.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}

type Producer struct {
	client *kgo.Client
	topic  string
}

func NewProducer(brokers []string, topic string) (*Producer, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RecordPartitioner(kgo.StickyKeyPartitioner(nil)),
	)
	if err != nil {
		return nil, err
	}
	return &Producer{client: cl, topic: topic}, nil
}

// Publish hands msg to the client without waiting for the broker ack.
// Failures are logged; the message is already durable and broadcast.
func (p *Producer) Publish(ctx context.Context, msg *domain.Message) {
	record, err := newRecord(ctx, p.topic, msg)
	if err != nil {
		observability.GetLogger(ctx).Error("kafka: encode failed", zap.String("room_id", msg.RoomID), zap.Error(err))
		return
	}

	p.client.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			observability.GetLogger(ctx).Warn("kafka: publish failed",
				zap.String("topic", r.Topic),
				zap.String("room_id", msg.RoomID),
				zap.Int64("sequence", msg.Sequence),
				zap.Error(err),
			)
		}
	})
}

// newRecord keys by room so a room's messages stay on one partition in order.
func newRecord(ctx context.Context, topic string, msg *domain.Message) (*kgo.Record, error) {
	value, err := json.Marshal(Event{
		Type:       EventMessageAccepted,
		OccurredAt: msg.CreatedAt,
		Message:    msg,
	})
	if err != nil {
		return nil, err
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(msg.RoomID),
		Value: value,
	}
	otel.GetTextMapPropagator().Inject(ctx, kgoRecordCarrier{record: record})
	return record, nil
}

// Close flushes buffered records and closes the client.
func (p *Producer) Close(ctx context.Context) {
	if p.client == nil {
		return
	}
	if err := p.client.Flush(ctx); err != nil {
		observability.GetLogger(ctx).Warn("kafka: flush failed", zap.Error(err))
	}
	p.client.Close()
}
