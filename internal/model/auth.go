package model

import "github.com/google/uuid"

// AuthRequest types
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SignupRequest struct {
	Name     string `json:"name" binding:"required,max=200"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// Login responses are sent without the success envelope; clients read
// token at the top level.
type UserLoginResponse struct {
	Message string    `json:"message,omitempty"`
	Token   string    `json:"token"`
	Role    Role      `json:"role"`
	UserID  uuid.UUID `json:"userId"`
}

type DoctorLoginResponse struct {
	Message  string    `json:"message,omitempty"`
	Token    string    `json:"token"`
	Role     Role      `json:"role"`
	DoctorID uuid.UUID `json:"doctorId"`
}
