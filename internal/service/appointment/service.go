package appointment

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
)

type Service struct {
	tx      repository.Transactor
	repo    repository.AppointmentRepository
	doctors repository.DoctorRepository
	events  event.Emitter
	metrics *metrics.Metrics
}

func NewService(
	tx repository.Transactor,
	repo repository.AppointmentRepository,
	doctors repository.DoctorRepository,
	events event.Emitter,
	m *metrics.Metrics,
) *Service {
	return &Service{
		tx:      tx,
		repo:    repo,
		doctors: doctors,
		events:  events,
		metrics: m,
	}
}

// AvailableSlots returns the catalog slots of the doctor's day that hold no
// booked appointment, in catalog order.
func (s *Service) AvailableSlots(ctx context.Context, rawDoctorID, rawDate string) (*model.Availability, error) {
	doctorID, ok := model.ParseID(rawDoctorID)
	if !ok {
		return nil, errors.InvalidIdentifier("doctor ID", nil)
	}
	date, ok := model.ParseDate(rawDate)
	if !ok {
		return nil, errors.MissingDateErr
	}

	booked, err := s.repo.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load booked slots: %w", err)
	}

	taken := make(map[string]struct{}, len(booked))
	for _, slot := range booked {
		taken[slot] = struct{}{}
	}

	available := make([]string, 0, len(model.Slots))
	for _, slot := range model.Slots {
		if _, ok := taken[slot]; !ok {
			available = append(available, slot)
		}
	}

	return &model.Availability{
		DoctorID:       doctorID,
		Date:           date.Format(model.DateLayout),
		AvailableSlots: available,
	}, nil
}

// Book reserves a slot for the calling patient.
func (s *Service) Book(ctx context.Context, session model.Session, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	if session.Role != model.RolePatient && !session.IsAdmin() {
		return nil, errors.Forbidden("Only patients can book appointments")
	}

	doctorID, ok := model.ParseID(req.DoctorID)
	if !ok {
		return nil, errors.InvalidIdentifier("doctor ID", nil)
	}
	if session.SubjectID == uuid.Nil {
		return nil, errors.InvalidIdentifier("patient ID", nil)
	}
	if !model.IsValidSlot(req.Slot) {
		return nil, errors.InvalidSlotErr
	}
	date, ok := model.ParseDate(req.Date)
	if !ok {
		return nil, errors.MissingDateErr
	}

	if _, err := s.doctors.Get(ctx, doctorID); err != nil {
		return nil, err
	}

	appointment := &model.Appointment{
		DoctorID:  doctorID,
		PatientID: session.SubjectID,
		Date:      date,
		Slot:      req.Slot,
		Status:    model.AppointmentStatusBooked,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		booked, err := s.repo.IsSlotBooked(ctx, doctorID, date, req.Slot)
		if err != nil {
			return err
		}
		if booked {
			return errors.SlotAlreadyBookedErr
		}

		// The partial unique index still rejects a concurrent booking that
		// passed the check above.
		if err := s.repo.Create(ctx, appointment); err != nil {
			return err
		}
		return s.events.Emit(ctx, model.EventAppointmentBooked, changeOf(appointment, nil))
	})
	if err != nil {
		if errors.Is(err, errors.SlotAlreadyBookedErr) {
			s.metrics.SlotConflicts.Inc()
		}
		return nil, err
	}

	s.metrics.AppointmentsBooked.Inc()
	log.Info().
		Str("appointment_id", appointment.ID.String()).
		Str("doctor_id", doctorID.String()).
		Str("patient_id", session.SubjectID.String()).
		Str("date", appointment.Date.Format(model.DateLayout)).
		Str("slot", appointment.Slot).
		Msg("appointment booked")

	return appointment, nil
}

// Cancel moves a booked appointment to cancelled. Only its patient, its
// doctor or an admin may do so.
func (s *Service) Cancel(ctx context.Context, session model.Session, rawID string) (*model.Appointment, error) {
	id, ok := model.ParseID(rawID)
	if !ok {
		return nil, errors.InvalidIdentifier("appointment ID", nil)
	}

	var appointment *model.Appointment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		appointment, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if !session.Owns(appointment.PatientID) && !session.Owns(appointment.DoctorID) {
			return errors.Forbidden("Not authorized to cancel this appointment")
		}
		if appointment.Status != model.AppointmentStatusBooked {
			return errors.InvalidStateTransitionErr
		}

		if err := s.repo.UpdateStatus(ctx, id, model.AppointmentStatusCancelled); err != nil {
			return err
		}
		appointment.Status = model.AppointmentStatusCancelled

		by := session.SubjectID
		return s.events.Emit(ctx, model.EventAppointmentCancelled, changeOf(appointment, &by))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AppointmentsCancelled.Inc()
	log.Info().
		Str("appointment_id", id.String()).
		Str("cancelled_by", session.SubjectID.String()).
		Str("role", string(session.Role)).
		Msg("appointment cancelled")

	return appointment, nil
}

func (s *Service) ListForPatient(ctx context.Context, session model.Session, rawPatientID string) ([]*model.PatientAppointment, error) {
	patientID, ok := model.ParseID(rawPatientID)
	if !ok {
		return nil, errors.InvalidIdentifier("user ID", nil)
	}
	if !session.Owns(patientID) {
		return nil, errors.Forbidden("Not authorized to view these appointments")
	}

	appointments, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (s *Service) ListForDoctor(ctx context.Context, session model.Session, rawDoctorID string) ([]*model.DoctorAppointment, error) {
	doctorID, ok := model.ParseID(rawDoctorID)
	if !ok {
		return nil, errors.InvalidIdentifier("doctor ID", nil)
	}
	if !session.Owns(doctorID) {
		return nil, errors.Forbidden("Not authorized to view these appointments")
	}

	appointments, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func changeOf(a *model.Appointment, cancelledBy *uuid.UUID) model.AppointmentChange {
	return model.AppointmentChange{
		AppointmentID: a.ID,
		DoctorID:      a.DoctorID,
		PatientID:     a.PatientID,
		Date:          a.Date.Format(model.DateLayout),
		Slot:          a.Slot,
		Status:        a.Status,
		CancelledBy:   cancelledBy,
	}
}
