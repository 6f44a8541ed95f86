package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// TopicPrefix is the prefix of every GymTrack topic.
const TopicPrefix = "gymtrack"

// Topic builds a fully-qualified topic name, e.g. Topic("user", "registered").
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}

const (
	defaultHandlerRetries = 3
	retryBaseBackoff      = 100 * time.Millisecond
)

// Handler processes one event.
type Handler func(ctx context.Context, event *Event) error

// MessageReader is the subset of *kafka.Reader used by Consumer.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers    []string
	GroupID    string
	Topic      string
	MinBytes   int
	MaxBytes   int
	MaxRetries int
}

// Consumer reads events from one topic and dispatches them to a Handler.
// Messages whose handler fails MaxRetries times go to the DLQ when one is
// configured, and are committed either way.
type Consumer struct {
	reader     MessageReader
	topic      string
	group      string
	maxRetries int
	handler    Handler
	dlq        *DLQProducer
	logger     *slog.Logger
	closeOnce  sync.Once
}

// NewConsumer creates a consumer group reader for cfg.Topic.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	return NewConsumerWithReader(r, cfg, handler, logger)
}

// NewConsumerWithReader builds a Consumer on an existing reader.
func NewConsumerWithReader(r MessageReader, cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultHandlerRetries
	}
	return &Consumer{
		reader:     r,
		topic:      cfg.Topic,
		group:      cfg.GroupID,
		maxRetries: retries,
		handler:    handler,
		logger:     logger,
	}
}

// WithDLQ routes poison messages to d.
func (c *Consumer) WithDLQ(d *DLQProducer) *Consumer {
	c.dlq = d
	return c
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started", slog.String("topic", c.topic), slog.String("group", c.group))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", slog.String("topic", c.topic))
				return c.Close()
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			continue
		}

		if err := c.process(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return c.Close()
			}
			c.logger.Error("message processing failed", slog.String("error", err.Error()))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message", slog.String("error", err.Error()))
		}
	}
}

// process runs the handler with retries. A non-nil return means the message
// could not be handled or dead-lettered; it is still committed by Start.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to unmarshal event",
			slog.String("error", err.Error()),
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
		)
		eventsConsumed.WithLabelValues(eventTypeUnknown, outcomeUnreadable).Inc()
		return c.deadLetter(ctx, msg, fmt.Errorf("unmarshal event: %w", err))
	}

	hctx := extractTrace(ctx, &msg)
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if lastErr = c.handler(hctx, event); lastErr == nil {
			break
		}
		c.logger.Warn("handler failed",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
			slog.String("error", lastErr.Error()),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", c.maxRetries),
		)
		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBaseBackoff):
			}
		}
	}
	handleDuration.WithLabelValues(event.EventType).Observe(time.Since(start).Seconds())

	if lastErr != nil {
		eventsConsumed.WithLabelValues(event.EventType, outcomeFailed).Inc()
		return c.deadLetter(ctx, msg, lastErr)
	}

	eventsConsumed.WithLabelValues(event.EventType, outcomeHandled).Inc()
	return nil
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	if c.dlq == nil {
		c.logger.Error("dropping poison message",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", cause.Error()),
		)
		deadLetters.WithLabelValues("dropped").Inc()
		return nil
	}
	if err := c.dlq.Publish(ctx, msg, cause, c.group); err != nil {
		deadLetters.WithLabelValues("error").Inc()
		return err
	}
	deadLetters.WithLabelValues("published").Inc()
	return nil
}

// Close closes the reader. It is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}
