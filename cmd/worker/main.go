package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/zapdoc-api/internal/app"
	"github.com/jwalitptl/zapdoc-api/internal/config"
	"github.com/jwalitptl/zapdoc-api/pkg/logger"
	"github.com/jwalitptl/zapdoc-api/pkg/messaging/redis"
	"github.com/jwalitptl/zapdoc-api/pkg/metrics"
)

// metricsPort serves /metrics for the worker process.
const metricsPort = 9091

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("worker failed")
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	l := logger.Setup(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if cfg.Database.Driver == "memory" {
		return errors.New("the worker needs the postgres driver; use serve --with-worker for the in-memory store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, closeStores, err := app.OpenStores(ctx, cfg.Database, false)
	if err != nil {
		return err
	}
	defer closeStores()

	m := metrics.New("zapdoc_worker", prometheus.DefaultRegisterer)

	broker, err := redis.NewRedisBroker(ctx, app.BrokerConfig(cfg.Redis), l, m)
	if err != nil {
		return err
	}
	defer broker.Close()

	if err := app.StartOutboxWorkers(ctx, cfg.Outbox, stores, broker, l, m); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.RunNotifier(ctx, cfg.SMTP, broker, l, m); err != nil {
			l.Error().Err(err).Msg("notification consumer stopped")
			stop()
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", metricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error().Err(err).Msg("metrics server failed")
		}
	}()

	l.Info().Msg("worker started")
	<-ctx.Done()

	l.Info().Msg("shutting down worker")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("metrics server shutdown failed")
	}
	wg.Wait()
	return nil
}
