package model

import (
	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// User is a patient or admin account. Doctors live in their own table.
type User struct {
	Base
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         Role   `json:"role" db:"role"`
}

// Session is the authenticated caller, established once by the auth middleware
// and passed explicitly to every operation that needs it.
type Session struct {
	SubjectID uuid.UUID
	Role      Role
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Owns reports whether the caller is the given party or an admin.
func (s Session) Owns(id uuid.UUID) bool {
	return s.IsAdmin() || s.SubjectID == id
}
