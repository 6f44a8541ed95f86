package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerPublish_CountsByResult(t *testing.T) {
	const eventType = "metrics.published"
	ok := eventsPublished.WithLabelValues(eventType, "ok")
	failed := eventsPublished.WithLabelValues(eventType, "error")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	event, err := NewEvent(eventType, "a", "user", "test", nil)
	require.NoError(t, err)

	require.NoError(t, NewProducerWithWriter(&fakeWriter{}, nil, testLogger()).Publish(context.Background(), "t", event))
	require.Error(t, NewProducerWithWriter(&fakeWriter{err: errors.New("broker down")}, nil, testLogger()).Publish(context.Background(), "t", event))

	assert.InDelta(t, okBefore+1, testutil.ToFloat64(ok), 0.001)
	assert.InDelta(t, failedBefore+1, testutil.ToFloat64(failed), 0.001)
}

func TestIdempotentHandler_CountsDuplicates(t *testing.T) {
	dup := eventsConsumed.WithLabelValues("metrics.dup", outcomeDuplicate)
	before := testutil.ToFloat64(dup)

	h := IdempotentHandler(NewMemoryIdempotencyStore(time.Minute), func(context.Context, *Event) error { return nil }, testLogger())
	event := &Event{EventID: "dup-metric", EventType: "metrics.dup"}
	_ = h(context.Background(), event)
	_ = h(context.Background(), event)

	assert.InDelta(t, before+1, testutil.ToFloat64(dup), 0.001)
}

func TestConsumer_CountsOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		handler   Handler
		outcome   string
		dlq       string
	}{
		{"handled", "metrics.handled", func(context.Context, *Event) error { return nil }, outcomeHandled, ""},
		{"failed", "metrics.failed", func(context.Context, *Event) error { return errors.New("smtp down") }, outcomeFailed, "published"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := eventsConsumed.WithLabelValues(tt.eventType, tt.outcome)
			before := testutil.ToFloat64(counter)
			var dlqBefore float64
			if tt.dlq != "" {
				dlqBefore = testutil.ToFloat64(deadLetters.WithLabelValues(tt.dlq))
			}

			r := newFakeReader(eventMessage(t, tt.eventType))
			c := NewConsumerWithReader(r, ConsumerConfig{Topic: "gymtrack.notification.email", GroupID: "g", MaxRetries: 1},
				tt.handler, testLogger()).WithDLQ(NewDLQProducerWithWriter(&fakeWriter{}, testLogger()))
			runUntilDrained(t, c, r)

			assert.InDelta(t, before+1, testutil.ToFloat64(counter), 0.001)
			if tt.dlq != "" {
				assert.InDelta(t, dlqBefore+1, testutil.ToFloat64(deadLetters.WithLabelValues(tt.dlq)), 0.001)
			}
			assert.GreaterOrEqual(t, testutil.CollectAndCount(handleDuration), 1)
		})
	}
}

func TestConsumer_CountsUnreadableAndDropped(t *testing.T) {
	unreadable := eventsConsumed.WithLabelValues(eventTypeUnknown, outcomeUnreadable)
	dropped := deadLetters.WithLabelValues("dropped")
	unreadableBefore, droppedBefore := testutil.ToFloat64(unreadable), testutil.ToFloat64(dropped)

	r := newFakeReader(kafka.Message{Topic: "gymtrack.notification.email", Value: []byte(`{"event_type":"user.registered"}`)})
	c := NewConsumerWithReader(r, ConsumerConfig{Topic: "gymtrack.notification.email"},
		func(context.Context, *Event) error { return nil }, testLogger())
	runUntilDrained(t, c, r)

	assert.InDelta(t, unreadableBefore+1, testutil.ToFloat64(unreadable), 0.001)
	assert.InDelta(t, droppedBefore+1, testutil.ToFloat64(dropped), 0.001)
}
