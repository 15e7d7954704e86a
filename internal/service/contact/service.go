package contact

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/internal/repository"
	"github.com/jwalitptl/zapdoc-api/internal/service/event"
)

type Service struct {
	tx     repository.Transactor
	repo   repository.ContactRepository
	events event.Emitter
}

func NewService(tx repository.Transactor, repo repository.ContactRepository, events event.Emitter) *Service {
	return &Service{tx: tx, repo: repo, events: events}
}

// Submit stores a contact form message and queues the support notification.
func (s *Service) Submit(ctx context.Context, req *model.ContactRequest) (*model.ContactMessage, error) {
	msg := &model.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, msg); err != nil {
			return err
		}
		return s.events.Emit(ctx, model.EventContactSubmitted, msg)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("contact_id", msg.ID.String()).Msg("contact message received")
	return msg, nil
}
