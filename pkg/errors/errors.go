package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so sentinel values below
// can be used with errors.Is regardless of message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// StatusCode maps the error code to an HTTP status.
func (e *AppError) StatusCode() int {
	return e.Code.StatusCode()
}

const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrInvalidIdentifier
	ErrInvalidSlot
	ErrMissingDate
	ErrSlotAlreadyBooked
	ErrInvalidStateTransition
	ErrAlreadyProcessed
	ErrDuplicateApplication
	ErrDuplicateProfile
	ErrDuplicateAccount
)

func (c ErrorCode) StatusCode() int {
	switch c {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrInternal:
		return http.StatusInternalServerError
	case ErrBadRequest, ErrInvalidIdentifier, ErrInvalidSlot, ErrMissingDate,
		ErrSlotAlreadyBooked, ErrInvalidStateTransition, ErrAlreadyProcessed,
		ErrDuplicateApplication, ErrDuplicateProfile, ErrDuplicateAccount:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is checks.
var (
	NotFoundErr               = &AppError{Code: ErrNotFound, Message: "not found"}
	UnauthenticatedErr        = &AppError{Code: ErrUnauthorized, Message: "authentication required"}
	ForbiddenErr              = &AppError{Code: ErrForbidden, Message: "unauthorized access"}
	InvalidIdentifierErr      = &AppError{Code: ErrInvalidIdentifier, Message: "invalid identifier"}
	InvalidSlotErr            = &AppError{Code: ErrInvalidSlot, Message: "Invalid slot"}
	MissingDateErr            = &AppError{Code: ErrMissingDate, Message: "Date is required"}
	SlotAlreadyBookedErr      = &AppError{Code: ErrSlotAlreadyBooked, Message: "Slot already booked"}
	InvalidStateTransitionErr = &AppError{Code: ErrInvalidStateTransition, Message: "Appointment cannot be cancelled"}
	AlreadyProcessedErr       = &AppError{Code: ErrAlreadyProcessed, Message: "Application already processed"}
	DuplicateApplicationErr   = &AppError{Code: ErrDuplicateApplication, Message: "Application already submitted"}
	DuplicateProfileErr       = &AppError{Code: ErrDuplicateProfile, Message: "Doctor already registered"}
	DuplicateAccountErr       = &AppError{Code: ErrDuplicateAccount, Message: "User already exists"}
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

// Unauthenticated is returned when no valid credential was presented.
func Unauthenticated(message string, err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: message,
		Err:     err,
	}
}

// Forbidden is returned when a valid caller lacks rights for the operation.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

func InvalidIdentifier(field string, err error) *AppError {
	return &AppError{
		Code:    ErrInvalidIdentifier,
		Message: fmt.Sprintf("Invalid %s", field),
		Err:     err,
	}
}

// New builds an error with an explicit code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// StatusOf returns the HTTP status for err, 500 for anything that is not an AppError.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode()
	}
	return http.StatusInternalServerError
}

// As is re-exported so callers importing this package as "errors" keep access to it.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is re-exported so callers importing this package as "errors" keep access to it.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
