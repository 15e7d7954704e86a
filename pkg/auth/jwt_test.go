package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/pkg/errors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("secret", "zapdoc", time.Hour)
	id := uuid.New()

	token, err := svc.GenerateAccessToken(id, model.RoleDoctor, "doc@example.com")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleDoctor, claims.Role)
	assert.Equal(t, "doc@example.com", claims.Email)

	session, err := claims.Session()
	require.NoError(t, err)
	assert.Equal(t, id, session.SubjectID)
	assert.Equal(t, model.RoleDoctor, session.Role)
}

func TestValidateRejectsBadTokens(t *testing.T) {
	svc := NewJWTService("secret", "zapdoc", time.Hour)
	token, err := svc.GenerateAccessToken(uuid.New(), model.RolePatient, "")
	require.NoError(t, err)

	cases := map[string]string{
		"empty":     "",
		"garbage":   "not-a-token",
		"tampered":  token + "x",
		"wrong key": mustSign(t, NewJWTService("other", "zapdoc", time.Hour)),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(tok)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.UnauthenticatedErr))
		})
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	issued := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	svc := &jwtService{secret: []byte("secret"), issuer: "zapdoc", expiry: time.Hour, now: func() time.Time { return issued }}
	token, err := svc.GenerateAccessToken(uuid.New(), model.RolePatient, "")
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = svc.ValidateToken(token)
	assert.True(t, errors.Is(err, errors.UnauthenticatedErr))
}

func TestValidateRejectsOtherAlgorithms(t *testing.T) {
	svc := NewJWTService("secret", "zapdoc", time.Hour)
	claims := Claims{
		Role: model.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    "zapdoc",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestSessionRejectsMalformedClaims(t *testing.T) {
	_, err := (&Claims{Role: model.RolePatient, RegisteredClaims: jwt.RegisteredClaims{Subject: "abc"}}).Session()
	assert.Error(t, err)

	_, err = (&Claims{Role: "root", RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()}}).Session()
	assert.Error(t, err)
}

func mustSign(t *testing.T, svc JWTService) string {
	t.Helper()
	token, err := svc.GenerateAccessToken(uuid.New(), model.RolePatient, "")
	require.NoError(t, err)
	return token
}
