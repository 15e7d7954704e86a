// Package app assembles repositories, services and handlers into the
// HTTP API and the background workers.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/zapdoc-api/internal/config"
	appointmentHandler "github.com/jwalitptl/zapdoc-api/internal/handler/appointment"
	contactHandler "github.com/jwalitptl/zapdoc-api/internal/handler/contact"
	doctorHandler "github.com/jwalitptl/zapdoc-api/internal/handler/doctor"
	"github.com/jwalitptl/zapdoc-api/internal/handler/health"
	promHandler "github.com/jwalitptl/zapdoc-api/internal/handler/prometheus"
	userHandler "github.com/jwalitptl/zapdoc-api/internal/handler/user"
	"github.com/jwalitptl/zapdoc-api/internal/middleware"
	"github.com/jwalitptl/zapdoc-api/internal/repository"
	"github.com/jwalitptl/zapdoc-api/internal/repository/memory"
	"github.com/jwalitptl/zapdoc-api/internal/repository/postgres"
	"github.com/jwalitptl/zapdoc-api/internal/router"
	applicationService "github.com/jwalitptl/zapdoc-api/internal/service/application"
	appointmentService "github.com/jwalitptl/zapdoc-api/internal/service/appointment"
	authService "github.com/jwalitptl/zapdoc-api/internal/service/auth"
	contactService "github.com/jwalitptl/zapdoc-api/internal/service/contact"
	doctorService "github.com/jwalitptl/zapdoc-api/internal/service/doctor"
	eventService "github.com/jwalitptl/zapdoc-api/internal/service/event"
	"github.com/jwalitptl/zapdoc-api/internal/storage"
	"github.com/jwalitptl/zapdoc-api/pkg/auth"
	"github.com/jwalitptl/zapdoc-api/pkg/errors"
	"github.com/jwalitptl/zapdoc-api/pkg/metrics"
	"github.com/jwalitptl/zapdoc-api/pkg/security"
)

// Stores is one backing implementation of every repository.
type Stores struct {
	Tx           repository.Transactor
	Appointments repository.AppointmentRepository
	Doctors      repository.DoctorRepository
	Applications repository.ApplicationRepository
	Users        repository.UserRepository
	Contacts     repository.ContactRepository
	Outbox       repository.OutboxRepository
	// DB is nil for the in-memory store.
	DB health.Pinger
}

func PostgresStores(db *sqlx.DB) *Stores {
	base := postgres.NewBaseRepository(db)
	return &Stores{
		Tx:           postgres.NewTransactor(base),
		Appointments: postgres.NewAppointmentRepository(base),
		Doctors:      postgres.NewDoctorRepository(base),
		Applications: postgres.NewApplicationRepository(base),
		Users:        postgres.NewUserRepository(base),
		Contacts:     postgres.NewContactRepository(base),
		Outbox:       postgres.NewOutboxRepository(base),
		DB:           db,
	}
}

func MemoryStores(s *memory.Store) *Stores {
	return &Stores{
		Tx:           s.Transactor(),
		Appointments: s.Appointments(),
		Doctors:      s.Doctors(),
		Applications: s.Applications(),
		Users:        s.Users(),
		Contacts:     s.Contacts(),
		Outbox:       s.Outbox(),
	}
}

// Options carries the process-level dependencies of the API.
type Options struct {
	Fs         afero.Fs
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	BcryptCost int
}

type API struct {
	Router  *router.Router
	Auth    *authService.Service
	Metrics *metrics.Metrics
}

func NewAPI(cfg *config.Config, stores *Stores, opts Options) (*API, error) {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	m := metrics.New("zapdoc", opts.Registerer)

	certificates, err := storage.NewCertificateStore(opts.Fs, cfg.Uploads)
	if err != nil {
		return nil, fmt.Errorf("failed to init certificate store: %w", err)
	}

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry())
	hasher := security.NewBcryptHasher(opts.BcryptCost)
	events := eventService.NewEventService(stores.Outbox)

	directorySvc := doctorService.NewService(stores.Doctors, cfg.Cache.DirectoryTTL, m)
	appointmentSvc := appointmentService.NewService(stores.Tx, stores.Appointments, stores.Doctors, events, m)
	applicationSvc := applicationService.NewService(
		stores.Tx,
		stores.Applications,
		stores.Doctors,
		events,
		hasher,
		directorySvc,
		m,
		applicationService.Config{AllowResubmitAfterRejection: cfg.Application.AllowResubmitAfterRejection},
	)
	authSvc := authService.NewService(stores.Users, stores.Doctors, jwtSvc, hasher)
	contactSvc := contactService.NewService(stores.Tx, stores.Contacts, events)

	r := router.NewRouter(
		middleware.NewAuthMiddleware(jwtSvc),
		promHandler.New(opts.Gatherer, m),
		router.RouterConfig{
			Mode:         cfg.Server.Mode,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
			RateLimit:    cfg.RateLimit,
			CORS:         cfg.CORS,
		},
		health.NewHandler(stores.DB),
		appointmentHandler.NewHandler(appointmentSvc),
		doctorHandler.NewHandler(directorySvc, applicationSvc, appointmentSvc, authSvc, certificates),
		userHandler.NewHandler(authSvc),
		contactHandler.NewHandler(contactSvc),
	)
	r.Setup()

	return &API{Router: r, Auth: authSvc, Metrics: m}, nil
}

// SeedAdmin creates an admin account. It reports false without error when
// the email is already registered.
func (a *API) SeedAdmin(ctx context.Context, name, email, password string) (bool, error) {
	_, err := a.Auth.CreateAdmin(ctx, name, email, password)
	if errors.Is(err, errors.DuplicateAccountErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
