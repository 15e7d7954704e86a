package storage

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/zapdoc-api/internal/config"
	"github.com/jwalitptl/zapdoc-api/pkg/errors"
)

var pdf = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

func newStore(t *testing.T, maxBytes int64) (*CertificateStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := NewCertificateStore(fs, config.UploadsConfig{
		Dir:          "uploads",
		MaxBytes:     maxBytes,
		AllowedTypes: []string{"application/pdf", "image/png", "image/jpeg"},
	})
	require.NoError(t, err)
	s.now = func() time.Time { return time.Unix(0, 1700000000000000000) }
	return s, fs
}

func TestSaveWritesTimestampedFile(t *testing.T) {
	s, fs := newStore(t, 1<<20)

	path, err := s.Save("../../etc/license.pdf", bytes.NewReader(pdf))
	require.NoError(t, err)
	assert.Equal(t, "uploads/1700000000000000000-license.pdf", path)

	stored, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, pdf, stored)

	require.NoError(t, s.Remove(path))
	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, s.Remove(path))
}

func TestSaveRejectsInvalidUploads(t *testing.T) {
	s, _ := newStore(t, 64)

	_, err := s.Save("big.pdf", bytes.NewReader(append(pdf, bytes.Repeat([]byte("x"), 64)...)))
	assert.True(t, errors.Is(err, errors.New(errors.ErrBadRequest, "")))

	_, err = s.Save("notes.txt", strings.NewReader("just some text"))
	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Certificate must be a PDF, PNG or JPEG file", appErr.Message)

	_, err = s.Save("empty.pdf", bytes.NewReader(nil))
	assert.Error(t, err)
}
