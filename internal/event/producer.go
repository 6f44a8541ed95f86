package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/GymTrack/internal/domain"
	pkgkafka "github.com/utafrali/GymTrack/pkg/kafka"
	"github.com/utafrali/GymTrack/pkg/logger"
)

// Kafka topic constants for account events.
const (
	TopicUserRegistered    = pkgkafka.TopicPrefix + ".user.registered"
	TopicUserVerified      = pkgkafka.TopicPrefix + ".user.verified"
	TopicUserUpdated       = pkgkafka.TopicPrefix + ".user.updated"
	TopicUserPasswordReset = pkgkafka.TopicPrefix + ".user.password_reset"

	// TopicEmailRequested carries outbound emails to the mailer.
	TopicEmailRequested = pkgkafka.TopicPrefix + ".notification.email"
)

// Aggregate type constants.
const (
	AggregateTypeUser  = "user"
	AggregateTypeEmail = "email"
)

// SourceAPI identifies events originating from the API server.
const SourceAPI = "gymtrack-api"

// UserData is the payload of user.registered, user.verified and
// user.password_reset events.
type UserData struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	IsVerified bool   `json:"is_verified"`
}

// UserUpdatedData is the payload for a user.updated event.
type UserUpdatedData struct {
	UserData
	EmailChanged    bool `json:"email_changed"`
	PasswordChanged bool `json:"password_changed"`
}

// EmailRequestedData is the payload of a notification.email event.
type EmailRequestedData struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Publisher is the subset of *pkgkafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes account events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func userData(u *domain.User) UserData {
	return UserData{ID: u.ID, Email: u.Email, Name: u.Name, IsVerified: u.IsVerified}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, u *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, u.ID, AggregateTypeUser, userData(u))
}

// PublishUserVerified publishes a user.verified event.
func (p *Producer) PublishUserVerified(ctx context.Context, u *domain.User) error {
	return p.publish(ctx, TopicUserVerified, u.ID, AggregateTypeUser, userData(u))
}

// PublishUserUpdated publishes a user.updated event.
func (p *Producer) PublishUserUpdated(ctx context.Context, u *domain.User, emailChanged, passwordChanged bool) error {
	return p.publish(ctx, TopicUserUpdated, u.ID, AggregateTypeUser, UserUpdatedData{
		UserData:        userData(u),
		EmailChanged:    emailChanged,
		PasswordChanged: passwordChanged,
	})
}

// PublishUserPasswordReset publishes a user.password_reset event.
func (p *Producer) PublishUserPasswordReset(ctx context.Context, u *domain.User) error {
	return p.publish(ctx, TopicUserPasswordReset, u.ID, AggregateTypeUser, userData(u))
}

// PublishEmailRequested hands an email to the mailer. The recipient is the
// partition key so mails to one address stay ordered.
func (p *Producer) PublishEmailRequested(ctx context.Context, data EmailRequestedData) error {
	return p.publish(ctx, TopicEmailRequested, data.To, AggregateTypeEmail, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceAPI, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("event_id", event.EventID),
	)

	return nil
}
