package notify

import (
	"context"
	"fmt"
	"net"
	"time"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	gomail "github.com/wneessen/go-mail"
)

// EmailSender delivers plain-text email. The sequence module shares this
// interface for its step messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// MailSender implements EmailSender over a direct SMTP connection.
type MailSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewMailSender creates an SMTP sender from configuration. Returns a
// logging no-op sender when email is disabled so callers never nil-check.
func NewMailSender(cfg config.MailConfig, log *logger.Logger) EmailSender {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		return &NoopEmailSender{log: log}
	}
	return &MailSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

// SendEmail delivers one message.
func (s *MailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("smtp: empty recipient")
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// NoopEmailSender logs instead of sending. Used in development and when
// email delivery is disabled.
type NoopEmailSender struct {
	log *logger.Logger
}

// SendEmail logs the message that would have been sent.
func (s *NoopEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	s.log.Info("email_skipped_disabled", "to", to, "subject", subject)
	return nil
}
