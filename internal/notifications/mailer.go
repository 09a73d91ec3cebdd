package notifications

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/hackhub/backend/config"
)

// Mailer delivers one rendered email. mocked is true when nothing left the
// process.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) (mocked bool, err error)
}

// SMTPMailer sends mail through an SMTP relay, or only logs it when no
// relay is configured.
type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
	logger   *zap.Logger
}

// NewSMTPMailer creates a mailer from config. An empty SMTP host yields a
// mocked mailer.
func NewSMTPMailer(cfg config.EmailConfig, logger *zap.Logger) *SMTPMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &SMTPMailer{from: cfg.FromAddress, fromName: cfg.FromName, logger: logger}
	if cfg.Mocked() {
		logger.Warn("SMTP not configured, emails will be logged only")
		return m
	}
	m.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	logger.Info("SMTP mailer ready", zap.String("host", cfg.SMTPHost), zap.Int("port", cfg.SMTPPort))
	return m
}

// Send implements Mailer.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) (bool, error) {
	if m.dialer == nil {
		m.logger.Info("email not mailed (mocked)", zap.String("to", to), zap.String("subject", subject))
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return false, fmt.Errorf("smtp send: %w", err)
	}
	return false, nil
}
