package app

import (
	"fmt"
	"log/slog"

	"github.com/utafrali/GymTrack/internal/config"
	"github.com/utafrali/GymTrack/internal/notify"
	notifykafka "github.com/utafrali/GymTrack/internal/notify/kafka"
	"github.com/utafrali/GymTrack/internal/notify/mailgun"
	"github.com/utafrali/GymTrack/internal/notify/smtp"
	"github.com/utafrali/GymTrack/pkg/httpclient"
)

// mailSettings is the delivery configuration shared by the API server and
// the mailer.
type mailSettings struct {
	Backend string
	From    string
	SMTP    config.SMTP
	Mailgun config.Mailgun
	Breaker config.Breaker
}

// newSender builds the configured delivery backend. Remote backends are put
// behind a circuit breaker; every backend is instrumented. queue is only used
// by the kafka backend and may be nil otherwise.
func newSender(s mailSettings, queue notifykafka.EmailPublisher, logger *slog.Logger) (notify.Sender, error) {
	var backend notify.Sender
	switch s.Backend {
	case config.NotifyLog:
		return notify.NewInstrumented(notify.NewLogSender(logger)), nil
	case config.NotifySMTP:
		backend = smtp.New(smtp.Config{
			Host:        s.SMTP.Host,
			Port:        s.SMTP.Port,
			Username:    s.SMTP.Username,
			Password:    s.SMTP.Password,
			From:        s.From,
			ImplicitTLS: s.SMTP.ImplicitTLS,
		})
	case config.NotifyMailgun:
		backend = mailgun.New(mailgun.Config{
			Domain:     s.Mailgun.Domain,
			APIKey:     s.Mailgun.APIKey,
			APIBase:    s.Mailgun.APIBase,
			From:       s.From,
			HTTPClient: httpclient.New(httpclient.DefaultConfig()),
		}, logger)
	case config.NotifyKafka:
		if queue == nil {
			return nil, fmt.Errorf("notify backend %q requires a kafka producer", s.Backend)
		}
		backend = notifykafka.New(queue)
	default:
		return nil, fmt.Errorf("unknown notify backend %q", s.Backend)
	}

	breaker := notify.NewBreaker(backend, notify.BreakerConfig{
		Timeout:      s.Breaker.Timeout,
		Interval:     s.Breaker.Interval,
		FailureRatio: s.Breaker.FailureRatio,
		MinRequests:  s.Breaker.MinRequests,
	}, logger)
	return notify.NewInstrumented(breaker), nil
}
