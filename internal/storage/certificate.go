package storage

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/jwalitptl/zapdoc-api/internal/config"
	"github.com/jwalitptl/zapdoc-api/pkg/errors"
)

// CertificateStore keeps uploaded doctor certificates on a filesystem.
type CertificateStore struct {
	fs       afero.Fs
	dir      string
	maxBytes int64
	allowed  map[string]bool
	now      func() time.Time
}

func NewCertificateStore(fs afero.Fs, cfg config.UploadsConfig) (*CertificateStore, error) {
	if err := fs.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	allowed := make(map[string]bool, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[strings.ToLower(t)] = true
	}

	return &CertificateStore{
		fs:       fs,
		dir:      cfg.Dir,
		maxBytes: cfg.MaxBytes,
		allowed:  allowed,
		now:      time.Now,
	}, nil
}

// Save writes the upload as <unixnano>-<basename> and returns its path.
// The content type is sniffed from the data, not taken from the client.
func (s *CertificateStore) Save(filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", errors.BadRequest("Failed to read certificate", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", errors.BadRequest(fmt.Sprintf("Certificate exceeds %d bytes", s.maxBytes), nil)
	}
	if len(data) == 0 {
		return "", errors.BadRequest("Certificate is empty", nil)
	}

	contentType := http.DetectContentType(data)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if !s.allowed[contentType] {
		return "", errors.BadRequest("Certificate must be a PDF, PNG or JPEG file", nil)
	}

	base := filepath.Base(filepath.Clean("/" + filename))
	if base == "/" || base == "." {
		base = "certificate"
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%d-%s", s.now().UnixNano(), base))

	if err := afero.WriteReader(s.fs, path, bytes.NewReader(data)); err != nil {
		return "", errors.Internal(fmt.Errorf("failed to store certificate: %w", err))
	}
	return path, nil
}

// Remove deletes a stored certificate. Missing files are ignored.
func (s *CertificateStore) Remove(path string) error {
	if err := s.fs.Remove(path); err != nil {
		if exists, _ := afero.Exists(s.fs, path); !exists {
			return nil
		}
		return fmt.Errorf("failed to remove certificate: %w", err)
	}
	return nil
}
