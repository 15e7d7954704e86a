package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/internal/repository"
	apperrors "github.com/jwalitptl/zapdoc-api/pkg/errors"
)

const pendingApplicationConstraint = "applications_pending_email_key"

type applicationRepository struct {
	BaseRepository
}

func NewApplicationRepository(base BaseRepository) repository.ApplicationRepository {
	return &applicationRepository{base}
}

const applicationColumns = `
	id, name, email, password_hash, phone, clinic_name, clinic_address,
	specialization, qualifications, certificate, status, created_at, updated_at`

func (r *applicationRepository) Create(ctx context.Context, application *model.Application) error {
	query := `
		INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	application.ID = uuid.New()
	application.Status = model.ApplicationStatusPending
	application.CreatedAt = time.Now()
	application.UpdatedAt = application.CreatedAt

	_, err := r.exec(ctx, query,
		application.ID,
		application.Name,
		application.Email,
		application.PasswordHash,
		application.Phone,
		application.ClinicName,
		application.ClinicAddress,
		application.Specialization,
		application.Qualifications,
		application.Certificate,
		application.Status,
		application.CreatedAt,
		application.UpdatedAt,
	)
	if isUniqueViolation(err, pendingApplicationConstraint) {
		return apperrors.DuplicateApplicationErr
	}
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

func (r *applicationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	var application model.Application
	if err := r.get(ctx, &application, query, id); err != nil {
		return nil, notFound("Application", err)
	}
	return &application, nil
}

// GetForUpdate locks the row so concurrent approvals serialize on it.
func (r *applicationRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1 FOR UPDATE`

	var application model.Application
	if err := r.get(ctx, &application, query, id); err != nil {
		return nil, notFound("Application", err)
	}
	return &application, nil
}

func (r *applicationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ApplicationStatus) error {
	query := `UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.exec(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update application status: %w", err)
	}
	return expectRows(result, "Application")
}

func (r *applicationRepository) ListByEmail(ctx context.Context, email string) ([]*model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE email = $1 ORDER BY created_at`

	applications := []*model.Application{}
	if err := r.selectAll(ctx, &applications, query, email); err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return applications, nil
}

func (r *applicationRepository) ListByStatus(ctx context.Context, status model.ApplicationStatus) ([]*model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE status = $1 ORDER BY created_at`

	applications := []*model.Application{}
	if err := r.selectAll(ctx, &applications, query, status); err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return applications, nil
}
