package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/zapdoc-api/internal/app"
	"github.com/jwalitptl/zapdoc-api/internal/config"
	"github.com/jwalitptl/zapdoc-api/pkg/logger"
	"github.com/jwalitptl/zapdoc-api/pkg/messaging/redis"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "zapdoc-api",
		Short: "ZapDoc appointment booking API",
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Setup(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return cfg, nil
}

type serveOptions struct {
	withWorker bool
	admin      adminOptions
}

type adminOptions struct {
	name, email, password string
}

func (o *adminOptions) bind(cmd *cobra.Command, prefix string) {
	cmd.Flags().StringVar(&o.name, prefix+"name", "Admin", "Admin display name")
	cmd.Flags().StringVar(&o.email, prefix+"email", "adm@example.com", "Admin login email")
	cmd.Flags().StringVar(&o.password, prefix+"password", "Admin@123", "Admin login password")
}

func serveCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(opts)
		},
	}
	cmd.Flags().BoolVar(&opts.withWorker, "with-worker", false, "Also relay outbox events and send notifications from this process")
	// The in-memory store starts empty, so serve seeds its admin.
	opts.admin.bind(cmd, "admin-")
	return cmd
}

func serve(opts serveOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, closeStores, err := app.OpenStores(ctx, cfg.Database, true)
	if err != nil {
		return err
	}
	defer closeStores()

	api, err := app.NewAPI(cfg, stores, app.Options{
		Fs:         afero.NewOsFs(),
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
	})
	if err != nil {
		return err
	}

	if cfg.Database.Driver == "memory" {
		created, err := api.SeedAdmin(ctx, opts.admin.name, opts.admin.email, opts.admin.password)
		if err != nil {
			return fmt.Errorf("failed to seed admin: %w", err)
		}
		log.Info().Str("email", opts.admin.email).Bool("created", created).Msg("admin seeded")
	}

	if opts.withWorker {
		broker, err := redis.NewRedisBroker(ctx, app.BrokerConfig(cfg.Redis), log.Logger, api.Metrics)
		if err != nil {
			return err
		}
		defer broker.Close()

		if err := app.StartOutboxWorkers(ctx, cfg.Outbox, stores, broker, log.Logger, api.Metrics); err != nil {
			return err
		}
		go func() {
			if err := app.RunNotifier(ctx, cfg.SMTP, broker, log.Logger, api.Metrics); err != nil {
				log.Error().Err(err).Msg("notification consumer stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.Router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("driver", cfg.Database.Driver).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("server exited")
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Driver == "memory" {
				return errors.New("migrate needs the postgres driver")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			_, closeStores, err := app.OpenStores(ctx, cfg.Database, true)
			if err != nil {
				return err
			}
			return closeStores()
		},
	}
}

func createAdminCmd() *cobra.Command {
	var admin adminOptions
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Driver == "memory" {
				return errors.New("create-admin needs the postgres driver; serve seeds the admin of the in-memory store")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			stores, closeStores, err := app.OpenStores(ctx, cfg.Database, false)
			if err != nil {
				return err
			}
			defer closeStores()

			api, err := app.NewAPI(cfg, stores, app.Options{
				Fs:         afero.NewOsFs(),
				Registerer: prometheus.NewRegistry(),
				Gatherer:   prometheus.NewRegistry(),
			})
			if err != nil {
				return err
			}

			created, err := api.SeedAdmin(ctx, admin.name, admin.email, admin.password)
			if err != nil {
				return err
			}
			if !created {
				log.Info().Str("email", admin.email).Msg("admin already exists")
				return nil
			}
			log.Info().Str("email", admin.email).Msg("admin created")
			return nil
		},
	}
	admin.bind(cmd, "")
	return cmd
}
