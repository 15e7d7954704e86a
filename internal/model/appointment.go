package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusBooked    AppointmentStatus = "booked"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

type Appointment struct {
	Base
	DoctorID  uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	PatientID uuid.UUID         `db:"patient_id" json:"patient_id"`
	Date      time.Time         `db:"date" json:"date"`
	Slot      string            `db:"slot" json:"slot"`
	Status    AppointmentStatus `db:"status" json:"status"`
}

type BookAppointmentRequest struct {
	DoctorID string `json:"doctorId"`
	Date     string `json:"date"`
	Slot     string `json:"slot" binding:"omitempty,slot"`
}

// DoctorSummary is what a patient sees about the doctor of an appointment.
type DoctorSummary struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Specialization string    `db:"specialization" json:"specialization"`
	ClinicName     string    `db:"clinic_name" json:"clinic_name"`
	ClinicAddress  string    `db:"clinic_address" json:"clinic_address"`
}

// PatientSummary is what a doctor sees about the patient of an appointment.
type PatientSummary struct {
	ID    uuid.UUID `db:"id" json:"id"`
	Name  string    `db:"name" json:"name"`
	Email string    `db:"email" json:"email"`
}

type PatientAppointment struct {
	Appointment
	Doctor DoctorSummary `db:"doctor" json:"doctor"`
}

type DoctorAppointment struct {
	Appointment
	Patient PatientSummary `db:"patient" json:"patient"`
}

type Availability struct {
	DoctorID       uuid.UUID `json:"doctorId"`
	Date           string    `json:"date"`
	AvailableSlots []string  `json:"availableSlots"`
}
