package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/orbitcart/auth-service/internal/config"
)

// Sender delivers transactional mail. Delivery is always best-effort from the
// caller's point of view: auth flows log failures and continue.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type smtpSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSender returns an SMTP sender when email is configured, otherwise a
// no-op sender that only logs, so development environments work without a
// mail relay.
func NewSender(cfg config.EmailConfig, logger *zap.Logger) Sender {
	if !cfg.Enabled || cfg.Host == "" {
		logger.Warn("email delivery disabled, using no-op sender")
		return &noopSender{logger: logger}
	}
	return &smtpSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

type noopSender struct {
	logger *zap.Logger
}

func (s *noopSender) Send(_ context.Context, to, subject, _ string) error {
	s.logger.Info("email suppressed (delivery disabled)",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}
