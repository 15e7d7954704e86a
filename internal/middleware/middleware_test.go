package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/zapdoc-api/internal/config"
	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	jwtSvc := auth.NewJWTService("secret", "zapdoc", time.Hour)
	m := NewAuthMiddleware(jwtSvc)

	r := gin.New()
	r.GET("/me", m.Authenticate(), func(c *gin.Context) {
		session, ok := SessionFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": session.SubjectID, "role": session.Role})
	})
	r.GET("/admin", m.Authenticate(), m.RequireRole("Forbidden: Admins only", model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	id := uuid.New()
	patientToken, err := jwtSvc.GenerateAccessToken(id, model.RolePatient, "p@example.com")
	require.NoError(t, err)
	adminToken, err := jwtSvc.GenerateAccessToken(uuid.New(), model.RoleAdmin, "a@example.com")
	require.NoError(t, err)

	cases := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"missing header", "/me", "", http.StatusUnauthorized, "Authentication required"},
		{"wrong scheme", "/me", "Basic abc", http.StatusUnauthorized, "Invalid authorization format"},
		{"garbage token", "/me", "Bearer abc", http.StatusUnauthorized, "Invalid or expired token"},
		{"valid token", "/me", "Bearer " + patientToken, http.StatusOK, id.String()},
		{"wrong role", "/admin", "Bearer " + patientToken, http.StatusForbidden, "Forbidden: Admins only"},
		{"admin", "/admin", "Bearer " + adminToken, http.StatusNoContent, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := serve(r, req)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}

func TestRateLimitPerClient(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 2})
	r := gin.New()
	r.GET("/", rl.RateLimit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(r, req).Code
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1"))
	assert.Equal(t, http.StatusOK, request("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.1"))
	assert.Equal(t, http.StatusOK, request("10.0.0.2"))
}

func TestRequestIDAndRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(HeaderXRequestID, "req-1")
	w := serve(r, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(HeaderXRequestID))
	assert.JSONEq(t, `{"status":"error","message":"Server error"}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderXRequestID))
}

func TestSizeLimit(t *testing.T) {
	r := gin.New()
	r.POST("/", SizeLimit(8), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(true), Logger())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS(config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := serve(r, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	open := gin.New()
	open.Use(CORS(config.CORSConfig{}))
	open.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://anywhere.example")
	w = serve(open, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
