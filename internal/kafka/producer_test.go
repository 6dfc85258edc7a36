package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestNewRecord(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	msg := &domain.Message{
		ID:        "m1",
		RoomID:    "room-1",
		SenderID:  "alice",
		Sequence:  7,
		Content:   "hello",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	record, err := newRecord(ctx, "room-events", msg)
	require.NoError(t, err)
	assert.Equal(t, "room-events", record.Topic)
	assert.Equal(t, []byte("room-1"), record.Key)

	var ev Event
	require.NoError(t, json.Unmarshal(record.Value, &ev))
	assert.Equal(t, EventMessageAccepted, ev.Type)
	assert.Equal(t, int64(7), ev.Message.Sequence)

	carrier := kgoRecordCarrier{record: record}
	assert.Contains(t, carrier.Get("traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestCarrierSetReplaces(t *testing.T) {
	record := &kgo.Record{}
	c := kgoRecordCarrier{record: record}

	c.Set("k", "v1")
	c.Set("k", "v2")
	c.Set("other", "x")

	assert.Equal(t, "v2", c.Get("k"))
	assert.Equal(t, []string{"k", "other"}, c.Keys())
	assert.Equal(t, "", c.Get("missing"))
}
