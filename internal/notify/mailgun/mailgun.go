// Package mailgun delivers email through the Mailgun HTTP API.
package mailgun

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mailgun/mailgun-go/v4"
)

// Config holds Mailgun settings.
type Config struct {
	Domain  string
	APIKey  string
	APIBase string
	From    string
	// HTTPClient replaces the SDK's default client when set.
	HTTPClient *http.Client
}

// Sender implements notify.Sender on Mailgun.
type Sender struct {
	mg     *mailgun.MailgunImpl
	from   string
	logger *slog.Logger
}

// New creates a Mailgun sender.
func New(cfg Config, logger *slog.Logger) *Sender {
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		mg.SetAPIBase(cfg.APIBase)
	}
	if cfg.HTTPClient != nil {
		mg.SetClient(cfg.HTTPClient)
	}
	return &Sender{mg: mg, from: cfg.From, logger: logger}
}

// Name returns the name of this sender.
func (s *Sender) Name() string { return "mailgun" }

// Send queues one plain-text message with Mailgun.
func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	m := s.mg.NewMessage(s.from, subject, body)
	if err := m.AddRecipient(to); err != nil {
		return fmt.Errorf("mailgun add recipient: %w", err)
	}

	_, id, err := s.mg.Send(ctx, m)
	if err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}

	s.logger.DebugContext(ctx, "mailgun message queued", slog.String("message_id", id))
	return nil
}
