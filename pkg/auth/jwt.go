package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/pkg/errors"
)

// Claims carried by every access token. The subject is the account id.
type Claims struct {
	Role  model.Role `json:"role"`
	Email string     `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Session converts verified claims into the caller identity.
func (c *Claims) Session() (model.Session, error) {
	id, ok := model.ParseID(c.Subject)
	if !ok || !c.Role.Valid() {
		return model.Session{}, errors.Unauthenticated("Invalid token", nil)
	}
	return model.Session{SubjectID: id, Role: c.Role}, nil
}

type JWTService interface {
	GenerateAccessToken(subjectID uuid.UUID, role model.Role, email string) (string, error)
	ValidateToken(token string) (*Claims, error)
}

type jwtService struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

func NewJWTService(secret, issuer string, expiry time.Duration) JWTService {
	return &jwtService{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
		now:    time.Now,
	}
}

func (s *jwtService) GenerateAccessToken(subjectID uuid.UUID, role model.Role, email string) (string, error) {
	now := s.now()
	claims := Claims{
		Role:  role,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks signature, algorithm, issuer and expiry. Any failure is
// reported as Unauthenticated.
func (s *jwtService) ValidateToken(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, errors.Unauthenticated("Invalid or expired token", err)
	}
	return claims, nil
}
