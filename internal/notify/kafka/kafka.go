// Package kafka hands emails to the mailer worker through Kafka instead of
// delivering them in the request path.
package kafka

import (
	"context"
	"fmt"

	"github.com/utafrali/GymTrack/internal/event"
)

// EmailPublisher is implemented by *event.Producer.
type EmailPublisher interface {
	PublishEmailRequested(ctx context.Context, data event.EmailRequestedData) error
}

// Sender implements notify.Sender by publishing an email request event.
type Sender struct {
	publisher EmailPublisher
}

// New creates a Kafka-backed sender.
func New(publisher EmailPublisher) *Sender {
	return &Sender{publisher: publisher}
}

// Name returns the name of this sender.
func (s *Sender) Name() string { return "kafka" }

// Send publishes the email. Success means the request is durably queued,
// not that it was delivered.
func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	if err := s.publisher.PublishEmailRequested(ctx, event.EmailRequestedData{
		To:      to,
		Subject: subject,
		Body:    body,
	}); err != nil {
		return fmt.Errorf("queue email: %w", err)
	}
	return nil
}
