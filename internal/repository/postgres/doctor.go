package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/internal/repository"
	apperrors "github.com/jwalitptl/zapdoc-api/pkg/errors"
)

const doctorEmailConstraint = "doctors_email_key"

type doctorRepository struct {
	BaseRepository
}

func NewDoctorRepository(base BaseRepository) repository.DoctorRepository {
	return &doctorRepository{base}
}

const doctorColumns = `
	id, name, email, password_hash, phone, clinic_name, clinic_address,
	specialization, qualifications, certificate, created_at, updated_at`

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO doctors (` + doctorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if doctor.ID == uuid.Nil {
		doctor.ID = uuid.New()
	}
	doctor.CreatedAt = time.Now()
	doctor.UpdatedAt = doctor.CreatedAt

	_, err := r.exec(ctx, query,
		doctor.ID,
		doctor.Name,
		doctor.Email,
		doctor.PasswordHash,
		doctor.Phone,
		doctor.ClinicName,
		doctor.ClinicAddress,
		doctor.Specialization,
		doctor.Qualifications,
		doctor.Certificate,
		doctor.CreatedAt,
		doctor.UpdatedAt,
	)
	if isUniqueViolation(err, doctorEmailConstraint) {
		return apperrors.DuplicateProfileErr
	}
	if err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1`

	var doctor model.Doctor
	if err := r.get(ctx, &doctor, query, id); err != nil {
		return nil, notFound("Doctor", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE email = $1`

	var doctor model.Doctor
	if err := r.get(ctx, &doctor, query, email); err != nil {
		return nil, notFound("Doctor", err)
	}
	return &doctor, nil
}

// GetByName matches the full name case-insensitively and returns the oldest match.
func (r *doctorRepository) GetByName(ctx context.Context, name string) (*model.Doctor, error) {
	query := `
		SELECT ` + doctorColumns + ` FROM doctors
		WHERE lower(name) = lower($1)
		ORDER BY created_at
		LIMIT 1
	`
	var doctor model.Doctor
	if err := r.get(ctx, &doctor, query, strings.TrimSpace(name)); err != nil {
		return nil, notFound("Doctor", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := r.get(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM doctors WHERE email = $1)`, email); err != nil {
		return false, fmt.Errorf("failed to check doctor email: %w", err)
	}
	return exists, nil
}

func (r *doctorRepository) List(ctx context.Context, filter *model.DoctorFilter) ([]*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors`
	var args []interface{}

	if filter != nil && filter.Specialization != "" {
		query += ` WHERE lower(specialization) = lower($1)`
		args = append(args, filter.Specialization)
	}
	query += ` ORDER BY name`

	doctors := []*model.Doctor{}
	if err := r.selectAll(ctx, &doctors, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}
