package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/internal/repository"
	"github.com/jwalitptl/zapdoc-api/pkg/errors"
	"github.com/jwalitptl/zapdoc-api/pkg/metrics"
)

const listKeyPrefix = "doctors:"

// Service serves the public doctor directory. Listings are cached until the
// TTL passes or a new doctor is approved.
type Service struct {
	repo    repository.DoctorRepository
	cache   *gocache.Cache
	metrics *metrics.Metrics
}

func NewService(repo repository.DoctorRepository, ttl time.Duration, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		cache:   gocache.New(ttl, 2*ttl),
		metrics: m,
	}
}

func (s *Service) List(ctx context.Context, filter *model.DoctorFilter) ([]*model.Doctor, error) {
	key := listKeyPrefix
	if filter != nil {
		key += strings.ToLower(strings.TrimSpace(filter.Specialization))
	}

	if cached, ok := s.cache.Get(key); ok {
		s.metrics.CacheRequests.WithLabelValues("hit").Inc()
		return cached.([]*model.Doctor), nil
	}
	s.metrics.CacheRequests.WithLabelValues("miss").Inc()

	doctors, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	s.cache.SetDefault(key, doctors)
	return doctors, nil
}

func (s *Service) Get(ctx context.Context, rawID string) (*model.Doctor, error) {
	id, ok := model.ParseID(rawID)
	if !ok {
		return nil, errors.InvalidIdentifier("doctor ID", nil)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByName(ctx context.Context, name string) (*model.Doctor, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.NotFound("Doctor", nil)
	}
	return s.repo.GetByName(ctx, name)
}

// Invalidate drops every cached listing.
func (s *Service) Invalidate() {
	s.cache.Flush()
}
