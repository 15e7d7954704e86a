package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/zapdoc-api/internal/email"
	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/pkg/messaging"
	"github.com/jwalitptl/zapdoc-api/pkg/metrics"
)

// Channels are the outbox event types that produce an email.
var Channels = []string{
	model.EventApplicationApproved,
	model.EventApplicationRejected,
	model.EventContactSubmitted,
}

type Service struct {
	emailSvc     email.Service
	supportInbox string
	logger       zerolog.Logger
	metrics      *metrics.Metrics
}

func NewService(emailSvc email.Service, supportInbox string, logger zerolog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		emailSvc:     emailSvc,
		supportInbox: supportInbox,
		logger:       logger,
		metrics:      m,
	}
}

// Run consumes notification channels until ctx is cancelled. A failed
// delivery is logged and does not stop the consumer.
func (s *Service) Run(ctx context.Context, broker messaging.Broker) error {
	msgs, err := broker.Subscribe(ctx, Channels...)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	s.logger.Info().Strs("channels", Channels).Msg("notification consumer started")
	for msg := range msgs {
		if err := s.Handle(ctx, msg); err != nil {
			s.logger.Error().Err(err).Str("channel", msg.Channel).Msg("failed to deliver notification")
		}
	}
	return ctx.Err()
}

func (s *Service) Handle(ctx context.Context, msg messaging.Message) error {
	var (
		template, to, subject, body string
	)

	switch msg.Channel {
	case model.EventApplicationApproved, model.EventApplicationRejected:
		var decision model.ApplicationDecision
		if err := json.Unmarshal(msg.Payload, &decision); err != nil {
			return fmt.Errorf("invalid decision payload: %w", err)
		}
		template = string(decision.Status)
		to = decision.Email
		subject, body = decisionEmail(decision)

	case model.EventContactSubmitted:
		var contact model.ContactMessage
		if err := json.Unmarshal(msg.Payload, &contact); err != nil {
			return fmt.Errorf("invalid contact payload: %w", err)
		}
		template = "contact"
		to = s.supportInbox
		subject = fmt.Sprintf("[Contact] %s", contact.Subject)
		body = fmt.Sprintf("From: %s <%s>\n\n%s\n", contact.Name, contact.Email, contact.Message)

	default:
		s.logger.Debug().Str("channel", msg.Channel).Msg("ignoring message")
		return nil
	}

	if err := s.emailSvc.Send(ctx, to, subject, body); err != nil {
		s.metrics.EmailsSent.WithLabelValues(template, "error").Inc()
		return err
	}
	s.metrics.EmailsSent.WithLabelValues(template, "success").Inc()
	return nil
}

func decisionEmail(d model.ApplicationDecision) (string, string) {
	if d.Status == model.ApplicationStatusApproved {
		return "Your ZapDoc application was approved",
			fmt.Sprintf("Hello %s,\n\nYour application has been approved. You can now log in with the email and password you registered with.\n", d.Name)
	}
	return "Your ZapDoc application was not approved",
		fmt.Sprintf("Hello %s,\n\nAfter review, your application was not approved. Please contact support if you have questions.\n", d.Name)
}
