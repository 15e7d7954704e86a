package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/internal/repository"
	"github.com/jwalitptl/zapdoc-api/pkg/auth"
	"github.com/jwalitptl/zapdoc-api/pkg/errors"
	"github.com/jwalitptl/zapdoc-api/pkg/security"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password alike.
var ErrInvalidCredentials = errors.Unauthenticated("Invalid credentials", nil)

type Service struct {
	users   repository.UserRepository
	doctors repository.DoctorRepository
	jwtSvc  auth.JWTService
	hasher  security.PasswordHasher
}

func NewService(users repository.UserRepository, doctors repository.DoctorRepository,
	jwtSvc auth.JWTService, hasher security.PasswordHasher) *Service {
	return &Service{
		users:   users,
		doctors: doctors,
		jwtSvc:  jwtSvc,
		hasher:  hasher,
	}
}

// Signup creates a patient account.
func (s *Service) Signup(ctx context.Context, req *model.SignupRequest) (*model.User, error) {
	return s.createUser(ctx, req.Name, req.Email, req.Password, model.RolePatient)
}

// CreateAdmin seeds an admin account. An existing account with the same
// email is left untouched and reported as DuplicateAccount.
func (s *Service) CreateAdmin(ctx context.Context, name, email, password string) (*model.User, error) {
	return s.createUser(ctx, name, email, password, model.RoleAdmin)
}

func (s *Service) createUser(ctx context.Context, name, email, password string, role model.Role) (*model.User, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, errors.DuplicateAccountErr
	} else if !errors.Is(err, errors.NotFoundErr) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			return nil, errors.BadRequest(fmt.Sprintf("password must be at least %d characters", security.MinPasswordLen), err)
		}
		return nil, errors.Internal(err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", user.ID.String()).
		Str("role", string(role)).
		Msg("account created")

	return user, nil
}

// LoginUser authenticates a patient or admin.
func (s *Service) LoginUser(ctx context.Context, req *model.LoginRequest) (*model.UserLoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, s.credentialError(err)
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtSvc.GenerateAccessToken(user.ID, user.Role, user.Email)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to generate token: %w", err))
	}

	return &model.UserLoginResponse{Token: token, Role: user.Role, UserID: user.ID}, nil
}

// LoginDoctor authenticates an approved doctor.
func (s *Service) LoginDoctor(ctx context.Context, req *model.LoginRequest) (*model.DoctorLoginResponse, error) {
	doctor, err := s.doctors.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, s.credentialError(err)
	}
	if err := s.hasher.Compare(doctor.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtSvc.GenerateAccessToken(doctor.ID, model.RoleDoctor, doctor.Email)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to generate token: %w", err))
	}

	return &model.DoctorLoginResponse{Token: token, Role: model.RoleDoctor, DoctorID: doctor.ID}, nil
}

func (s *Service) credentialError(err error) error {
	if errors.Is(err, errors.NotFoundErr) {
		return ErrInvalidCredentials
	}
	return fmt.Errorf("failed to look up account: %w", err)
}
