package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/zapdoc-api/internal/config"
)

type Service interface {
	Send(ctx context.Context, to, subject, body string) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

// NewService returns an SMTP sender, or a sender that only logs when SMTP
// is disabled.
func NewService(cfg config.SMTPConfig, logger zerolog.Logger) Service {
	if !cfg.Enabled {
		return &logService{logger: logger}
	}
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

type logService struct {
	logger zerolog.Logger
}

func (s *logService) Send(_ context.Context, to, subject, _ string) error {
	s.logger.Info().
		Str("to", to).
		Str("subject", subject).
		Msg("smtp disabled, email not sent")
	return nil
}
