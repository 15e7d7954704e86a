package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/pkg/auth"
	"github.com/jwalitptl/zapdoc-api/pkg/errors"
	"github.com/jwalitptl/zapdoc-api/pkg/httputil"
)

const ContextSession = "session"

type AuthMiddleware struct {
	jwtSvc auth.JWTService
}

func NewAuthMiddleware(jwtSvc auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtSvc: jwtSvc}
}

// Authenticate verifies the bearer token and stores the caller's session in
// the context. Only the Authorization header is consulted.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, errors.Unauthenticated("Authentication required", nil))
			c.Abort()
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			httputil.RespondWithError(c, errors.Unauthenticated("Invalid authorization format", nil))
			c.Abort()
			return
		}

		claims, err := m.jwtSvc.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			httputil.RespondWithError(c, err)
			c.Abort()
			return
		}

		session, err := claims.Session()
		if err != nil {
			httputil.RespondWithError(c, err)
			c.Abort()
			return
		}

		c.Set(ContextSession, session)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed.
func (m *AuthMiddleware) RequireRole(message string, roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if !ok {
			httputil.RespondWithError(c, errors.Unauthenticated("Authentication required", nil))
			c.Abort()
			return
		}

		for _, role := range roles {
			if session.Role == role {
				c.Next()
				return
			}
		}

		httputil.RespondWithError(c, errors.Forbidden(message))
		c.Abort()
	}
}

// SessionFrom returns the session set by Authenticate.
func SessionFrom(c *gin.Context) (model.Session, bool) {
	v, ok := c.Get(ContextSession)
	if !ok {
		return model.Session{}, false
	}
	session, ok := v.(model.Session)
	return session, ok
}
