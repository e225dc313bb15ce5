// Package mailer delivers composed alerts. Three transports share the
// same contract: direct SMTP, the alert-server uplink, and the EmailJS
// still-image variant. None of them retries; the retry rhythm belongs to
// the controller's cooldown cycle.
package mailer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	"github.com/mkallevig/sentrycam/internal/config"
	"github.com/mkallevig/sentrycam/pkg/alert"
)

// SMTPMailer sends alerts as HTML mail with a single video attachment.
type SMTPMailer struct {
	cfg  config.SMTP
	from string
}

// NewSMTP creates a mailer from SMTP settings.
func NewSMTP(cfg config.SMTP) *SMTPMailer {
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &SMTPMailer{cfg: cfg, from: from}
}

// Deliver sends one alert. Success returns the generated message ID.
func (s *SMTPMailer) Deliver(ctx context.Context, msg alert.Message) (alert.DeliveryResult, error) {
	if err := msg.Validate(); err != nil {
		return alert.DeliveryResult{}, err
	}

	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return alert.DeliveryResult{}, fmt.Errorf("mailer: from address: %w", err)
	}
	if err := m.To(msg.Recipient); err != nil {
		return alert.DeliveryResult{}, fmt.Errorf("mailer: recipient: %w", err)
	}

	id := fmt.Sprintf("<%s@sentrycam>", uuid.NewString())
	m.SetMessageIDWithValue(id)
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.BodyHTML)

	if err := m.AttachReader(msg.Filename, bytes.NewReader(msg.Attachment),
		mail.WithFileContentType(mail.ContentType(msg.MIMEType))); err != nil {
		return alert.DeliveryResult{}, fmt.Errorf("mailer: attach evidence: %w", err)
	}

	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.User),
		mail.WithPassword(s.cfg.Pass),
	)
	if err != nil {
		return alert.DeliveryResult{}, fmt.Errorf("mailer: client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return alert.DeliveryResult{}, fmt.Errorf("mailer: send: %w", err)
	}

	return alert.DeliveryResult{ID: id}, nil
}
