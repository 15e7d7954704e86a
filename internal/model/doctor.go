package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type Qualification struct {
	Degree      string `json:"degree" validate:"required"`
	Institution string `json:"institution" validate:"required"`
	Year        int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
}

// Qualifications is stored as a JSONB column.
type Qualifications []Qualification

func (q Qualifications) Value() (driver.Value, error) {
	if q == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(q)
}

func (q *Qualifications) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*q = Qualifications{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported qualifications type %T", src)
	}
	return json.Unmarshal(data, q)
}

// ProfessionalFields are shared by an application and the doctor profile it becomes.
type ProfessionalFields struct {
	Name           string         `db:"name" json:"name"`
	Email          string         `db:"email" json:"email"`
	Phone          string         `db:"phone" json:"phone"`
	ClinicName     string         `db:"clinic_name" json:"clinic_name"`
	ClinicAddress  string         `db:"clinic_address" json:"clinic_address"`
	Specialization string         `db:"specialization" json:"specialization"`
	Qualifications Qualifications `db:"qualifications" json:"qualifications"`
	Certificate    *string        `db:"certificate" json:"certificate,omitempty"`
}

type Doctor struct {
	Base
	ProfessionalFields
	PasswordHash string `db:"password_hash" json:"-"`
}

type DoctorFilter struct {
	Specialization string `form:"specialization"`
}
