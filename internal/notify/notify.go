// Package notify delivers account emails. Every backend implements Sender;
// Breaker and Instrumented decorate any of them.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sender delivers a single plain-text email.
type Sender interface {
	Name() string
	Send(ctx context.Context, to, subject, body string) error
}

// Message is a rendered email.
type Message struct {
	Subject string
	Body    string
}

// VerificationEmail renders the "verify your email" message.
func VerificationEmail(name, link string) Message {
	return Message{
		Subject: "Verify your email",
		Body: fmt.Sprintf("Hi %s,\n\nUse the link below to verify your email address:\n\n%s\n\nIf you did not create a GymTrack account you can ignore this message.\n",
			greetingName(name), link),
	}
}

// PasswordResetEmail renders the "reset your password" message.
func PasswordResetEmail(name, link string) Message {
	return Message{
		Subject: "Reset your password",
		Body: fmt.Sprintf("Hi %s,\n\nUse the link below to reset your password:\n\n%s\n\nThe link stops working once your password has been changed.\n",
			greetingName(name), link),
	}
}

func greetingName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return "there"
	}
	return name
}

// LogSender writes emails to the logger instead of delivering them. Bodies
// are logged at debug level only.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a sender for local development.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Name returns the name of this sender.
func (s *LogSender) Name() string { return "log" }

// Send logs the message.
func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "email sent",
		slog.String("to", to),
		slog.String("subject", subject),
	)
	s.logger.DebugContext(ctx, "email body", slog.String("to", to), slog.String("body", body))
	return nil
}
