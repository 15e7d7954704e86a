package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/internal/repository"
	"github.com/jwalitptl/zapdoc-api/internal/service/event"
	"github.com/jwalitptl/zapdoc-api/pkg/errors"
	"github.com/jwalitptl/zapdoc-api/pkg/metrics"
	"github.com/jwalitptl/zapdoc-api/pkg/security"
	"github.com/jwalitptl/zapdoc-api/pkg/validator"
)

// Directory is notified when a new doctor becomes listable.
type Directory interface {
	Invalidate()
}

type Config struct {
	// AllowResubmitAfterRejection lets an applicant whose earlier
	// applications were all rejected apply again.
	AllowResubmitAfterRejection bool
}

type Service struct {
	tx           repository.Transactor
	applications repository.ApplicationRepository
	doctors      repository.DoctorRepository
	events       event.Emitter
	hasher       security.PasswordHasher
	validator    *validator.Validator
	directory    Directory
	metrics      *metrics.Metrics
	config       Config
}

func NewService(
	tx repository.Transactor,
	applications repository.ApplicationRepository,
	doctors repository.DoctorRepository,
	events event.Emitter,
	hasher security.PasswordHasher,
	directory Directory,
	m *metrics.Metrics,
	config Config,
) *Service {
	return &Service{
		tx:           tx,
		applications: applications,
		doctors:      doctors,
		events:       events,
		hasher:       hasher,
		validator:    validator.New(),
		directory:    directory,
		metrics:      m,
		config:       config,
	}
}

// Submit records a pending doctor application. The password is stored hashed.
func (s *Service) Submit(ctx context.Context, req *model.ApplicationSubmission) (*model.Application, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	prior, err := s.applications.ListByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up applications: %w", err)
	}
	for _, p := range prior {
		if s.blocks(p.Status) {
			return nil, errors.DuplicateApplicationErr
		}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.Internal(err)
	}

	qualifications := req.Qualifications
	if qualifications == nil {
		qualifications = model.Qualifications{}
	}
	application := &model.Application{
		ProfessionalFields: model.ProfessionalFields{
			Name:           req.Name,
			Email:          req.Email,
			Phone:          req.Phone,
			ClinicName:     req.ClinicName,
			ClinicAddress:  req.ClinicAddress,
			Specialization: req.Specialization,
			Qualifications: qualifications,
			Certificate:    req.Certificate,
		},
		PasswordHash: hash,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.applications.Create(ctx, application); err != nil {
			return err
		}
		return s.events.Emit(ctx, model.EventApplicationSubmitted, model.ApplicationSubmitted{
			ApplicationID:  application.ID,
			Name:           application.Name,
			Email:          application.Email,
			Specialization: application.Specialization,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ApplicationsSubmitted.Inc()
	log.Info().
		Str("application_id", application.ID.String()).
		Str("email", application.Email).
		Msg("doctor application submitted")

	return application, nil
}

func (s *Service) blocks(status model.ApplicationStatus) bool {
	if !s.config.AllowResubmitAfterRejection {
		return true
	}
	return status != model.ApplicationStatusRejected
}

// Approve turns a pending application into a doctor profile. The profile
// insert, the status change and the event commit together.
func (s *Service) Approve(ctx context.Context, session model.Session, rawID string) (*model.Application, *model.Doctor, error) {
	var doctor *model.Doctor
	application, err := s.decide(ctx, session, rawID, model.ApplicationStatusApproved, func(ctx context.Context, a *model.Application) (*uuid.UUID, error) {
		exists, err := s.doctors.ExistsByEmail(ctx, a.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check doctor email: %w", err)
		}
		if exists {
			return nil, errors.DuplicateProfileErr
		}

		doctor = &model.Doctor{
			ProfessionalFields: a.ProfessionalFields,
			PasswordHash:       a.PasswordHash,
		}
		if err := s.doctors.Create(ctx, doctor); err != nil {
			return nil, err
		}
		return &doctor.ID, nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.directory.Invalidate()
	log.Info().
		Str("application_id", application.ID.String()).
		Str("doctor_id", doctor.ID.String()).
		Str("approved_by", session.SubjectID.String()).
		Msg("doctor application approved")

	return application, doctor, nil
}

// Reject closes a pending application without creating a profile.
func (s *Service) Reject(ctx context.Context, session model.Session, rawID string) (*model.Application, error) {
	application, err := s.decide(ctx, session, rawID, model.ApplicationStatusRejected, nil)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("application_id", application.ID.String()).
		Str("rejected_by", session.SubjectID.String()).
		Msg("doctor application rejected")

	return application, nil
}

func (s *Service) decide(
	ctx context.Context,
	session model.Session,
	rawID string,
	status model.ApplicationStatus,
	apply func(ctx context.Context, a *model.Application) (*uuid.UUID, error),
) (*model.Application, error) {
	if !session.IsAdmin() {
		return nil, errors.Forbidden("Forbidden: Admins only")
	}
	id, ok := model.ParseID(rawID)
	if !ok {
		return nil, errors.InvalidIdentifier("application ID", nil)
	}

	var application *model.Application
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		application, err = s.applications.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if application.Status.Terminal() {
			return errors.AlreadyProcessedErr
		}

		var doctorID *uuid.UUID
		if apply != nil {
			if doctorID, err = apply(ctx, application); err != nil {
				return err
			}
		}

		if err := s.applications.UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		application.Status = status

		decision := model.ApplicationDecision{
			ApplicationID: application.ID,
			DoctorID:      doctorID,
			Name:          application.Name,
			Email:         application.Email,
			Status:        status,
		}
		eventType := model.EventApplicationRejected
		if status == model.ApplicationStatusApproved {
			eventType = model.EventApplicationApproved
		}
		return s.events.Emit(ctx, eventType, decision)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ApplicationDecisions.WithLabelValues(string(status)).Inc()
	return application, nil
}

// ListPending returns the applications awaiting a decision, oldest first.
func (s *Service) ListPending(ctx context.Context, session model.Session) ([]*model.Application, error) {
	if !session.IsAdmin() {
		return nil, errors.Forbidden("Forbidden: Admins only")
	}
	applications, err := s.applications.ListByStatus(ctx, model.ApplicationStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return applications, nil
}
