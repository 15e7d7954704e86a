package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/internal/repository"
)

type contactRepository struct {
	BaseRepository
}

func NewContactRepository(base BaseRepository) repository.ContactRepository {
	return &contactRepository{base}
}

func (r *contactRepository) Create(ctx context.Context, msg *model.ContactMessage) error {
	query := `
		INSERT INTO contact_messages (id, name, email, subject, message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	msg.UpdatedAt = msg.CreatedAt

	if _, err := r.exec(ctx, query, msg.ID, msg.Name, msg.Email, msg.Subject, msg.Message, msg.CreatedAt, msg.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create contact message: %w", err)
	}
	return nil
}
