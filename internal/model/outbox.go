package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Event types written to the outbox. They double as Redis channel names.
const (
	EventAppointmentBooked    = "appointment.booked"
	EventAppointmentCancelled = "appointment.cancelled"
	EventApplicationSubmitted = "application.submitted"
	EventApplicationApproved  = "application.approved"
	EventApplicationRejected  = "application.rejected"
	EventContactSubmitted     = "contact.submitted"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// ApplicationDecision is the payload of approval and rejection events.
type ApplicationDecision struct {
	ApplicationID uuid.UUID         `json:"application_id"`
	DoctorID      *uuid.UUID        `json:"doctor_id,omitempty"`
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	Status        ApplicationStatus `json:"status"`
}

// AppointmentChange is the payload of booking and cancellation events.
type AppointmentChange struct {
	AppointmentID uuid.UUID         `json:"appointment_id"`
	DoctorID      uuid.UUID         `json:"doctor_id"`
	PatientID     uuid.UUID         `json:"patient_id"`
	Date          string            `json:"date"`
	Slot          string            `json:"slot"`
	Status        AppointmentStatus `json:"status"`
	CancelledBy   *uuid.UUID        `json:"cancelled_by,omitempty"`
}

// ApplicationSubmitted is the payload of a new doctor application event.
type ApplicationSubmitted struct {
	ApplicationID  uuid.UUID `json:"application_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Specialization string    `json:"specialization"`
}
