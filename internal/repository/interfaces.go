package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/zapdoc-api/internal/model"
)

// All repository interfaces in one file
type (
	// Transactor runs fn inside a single database transaction. Repositories
	// called with the ctx handed to fn join that transaction.
	Transactor interface {
		WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	}

	AppointmentRepository interface {
		// Create fails with SlotAlreadyBooked when another booked appointment
		// holds the same doctor, date and slot.
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error
		IsSlotBooked(ctx context.Context, doctorID uuid.UUID, date time.Time, slot string) (bool, error)
		BookedSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.PatientAppointment, error)
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.DoctorAppointment, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByEmail(ctx context.Context, email string) (*model.Doctor, error)
		GetByName(ctx context.Context, name string) (*model.Doctor, error)
		ExistsByEmail(ctx context.Context, email string) (bool, error)
		List(ctx context.Context, filter *model.DoctorFilter) ([]*model.Doctor, error)
	}

	ApplicationRepository interface {
		// Create fails with DuplicateApplication when a pending application
		// already exists for the email.
		Create(ctx context.Context, application *model.Application) error
		Get(ctx context.Context, id uuid.UUID) (*model.Application, error)
		GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Application, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.ApplicationStatus) error
		ListByEmail(ctx context.Context, email string) ([]*model.Application, error)
		ListByStatus(ctx context.Context, status model.ApplicationStatus) ([]*model.Application, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
	}

	ContactRepository interface {
		Create(ctx context.Context, msg *model.ContactMessage) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending returns up to limit pending events locked for the
		// transaction in ctx; concurrent workers skip rows already claimed.
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, failed bool) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
