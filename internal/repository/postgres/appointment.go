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

const bookedSlotConstraint = "appointments_booked_slot_key"

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

const appointmentColumns = `id, doctor_id, patient_id, date, slot, status, created_at, updated_at`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, doctor_id, patient_id, date, slot, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	appointment.ID = uuid.New()
	appointment.Date = model.NormalizeDate(appointment.Date)
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt
	if appointment.Status == "" {
		appointment.Status = model.AppointmentStatusBooked
	}

	_, err := r.exec(ctx, query,
		appointment.ID,
		appointment.DoctorID,
		appointment.PatientID,
		appointment.Date,
		appointment.Slot,
		appointment.Status,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if isUniqueViolation(err, bookedSlotConstraint) {
		return apperrors.SlotAlreadyBookedErr
	}
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	if err := r.get(ctx, &appointment, query, id); err != nil {
		return nil, notFound("Appointment", err)
	}
	return &appointment, nil
}

// GetForUpdate locks the row until the surrounding transaction ends.
func (r *appointmentRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`

	var appointment model.Appointment
	if err := r.get(ctx, &appointment, query, id); err != nil {
		return nil, notFound("Appointment", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	query := `UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.exec(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	return expectRows(result, "Appointment")
}

func (r *appointmentRepository) IsSlotBooked(ctx context.Context, doctorID uuid.UUID, date time.Time, slot string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND date = $2 AND slot = $3 AND status = 'booked'
		)
	`
	var booked bool
	if err := r.get(ctx, &booked, query, doctorID, model.NormalizeDate(date), slot); err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return booked, nil
}

func (r *appointmentRepository) BookedSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	query := `
		SELECT slot FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND status = 'booked'
	`
	slots := []string{}
	if err := r.selectAll(ctx, &slots, query, doctorID, model.NormalizeDate(date)); err != nil {
		return nil, fmt.Errorf("failed to list booked slots: %w", err)
	}
	return slots, nil
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.PatientAppointment, error) {
	query := `
		SELECT a.id, a.doctor_id, a.patient_id, a.date, a.slot, a.status,
			   a.created_at, a.updated_at,
			   d.id AS "doctor.id",
			   d.name AS "doctor.name",
			   d.specialization AS "doctor.specialization",
			   d.clinic_name AS "doctor.clinic_name",
			   d.clinic_address AS "doctor.clinic_address"
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.patient_id = $1
		ORDER BY a.date DESC, a.slot
	`
	appointments := []*model.PatientAppointment{}
	if err := r.selectAll(ctx, &appointments, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list patient appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.DoctorAppointment, error) {
	query := `
		SELECT a.id, a.doctor_id, a.patient_id, a.date, a.slot, a.status,
			   a.created_at, a.updated_at,
			   u.id AS "patient.id",
			   u.name AS "patient.name",
			   u.email AS "patient.email"
		FROM appointments a
		JOIN users u ON u.id = a.patient_id
		WHERE a.doctor_id = $1
		ORDER BY a.date DESC, a.slot
	`
	appointments := []*model.DoctorAppointment{}
	if err := r.selectAll(ctx, &appointments, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list doctor appointments: %w", err)
	}
	return appointments, nil
}
