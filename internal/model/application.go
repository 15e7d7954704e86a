package model

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationStatusApproved || s == ApplicationStatusRejected
}

type Application struct {
	Base
	ProfessionalFields
	PasswordHash string            `db:"password_hash" json:"-"`
	Status       ApplicationStatus `db:"status" json:"status"`
}

// ApplicationSubmission is the validated input of a doctor registration.
type ApplicationSubmission struct {
	Name           string         `json:"name" validate:"required,max=200"`
	Email          string         `json:"email" validate:"required,email"`
	Phone          string         `json:"phone" validate:"required,max=50"`
	ClinicName     string         `json:"clinicName" validate:"required,max=200"`
	ClinicAddress  string         `json:"clinicAddress" validate:"required,max=500"`
	Specialization string         `json:"specialization" validate:"required,max=100"`
	Password       string         `json:"password" validate:"required,min=6"`
	Qualifications Qualifications `json:"qualifications" validate:"dive"`
	Certificate    *string        `json:"-"`
}
