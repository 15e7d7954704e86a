package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadConfigDefaultsAndEnvOverlay(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ZAPDOC_JWT_SECRET", "s3cret")
	t.Setenv("ZAPDOC_DATABASE_HOST", "db.internal")
	t.Setenv("ZAPDOC_APPLICATION_ALLOW_RESUBMIT_AFTER_REJECTION", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 10*time.Hour, cfg.JWT.Expiry())
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(10<<20), cfg.Uploads.MaxBytes)
	assert.True(t, cfg.Application.AllowResubmitAfterRejection)
}

func TestLoadConfigReadsYAML(t *testing.T) {
	dir := chdirTemp(t)
	yaml := []byte("server:\n  port: 9090\njwt:\n  secret: from-file\n  expiry_hours: 2\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, 2*time.Hour, cfg.JWT.Expiry())
	assert.False(t, cfg.Application.AllowResubmitAfterRejection)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 8080}, Database: DatabaseConfig{Driver: "postgres"}, JWT: JWTConfig{ExpiryHours: 1}}
	assert.Error(t, cfg.Validate())

	cfg.JWT.Secret = "x"
	assert.NoError(t, cfg.Validate())

	cfg.Database.Driver = "mongo"
	assert.Error(t, cfg.Validate())

	cfg.Database.Driver = "memory"
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())
}
