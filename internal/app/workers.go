package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/zapdoc-api/internal/config"
	"github.com/jwalitptl/zapdoc-api/internal/email"
	"github.com/jwalitptl/zapdoc-api/internal/service/notification"
	"github.com/jwalitptl/zapdoc-api/pkg/messaging"
	"github.com/jwalitptl/zapdoc-api/pkg/messaging/redis"
	"github.com/jwalitptl/zapdoc-api/pkg/metrics"
	"github.com/jwalitptl/zapdoc-api/pkg/worker"
)

// StartOutboxWorkers runs the outbox processor and the retention cleanup
// until ctx is cancelled.
func StartOutboxWorkers(
	ctx context.Context,
	cfg config.OutboxConfig,
	stores *Stores,
	publisher worker.Publisher,
	logger zerolog.Logger,
	m *metrics.Metrics,
) error {
	processor, err := worker.NewOutboxProcessor(stores.Outbox, stores.Tx, publisher, worker.OutboxProcessorConfig{
		BatchSize:     cfg.BatchSize,
		PollInterval:  cfg.PollInterval,
		RetryAttempts: cfg.RetryAttempts,
	}, logger, m)
	if err != nil {
		return fmt.Errorf("failed to create outbox processor: %w", err)
	}
	go processor.Start(ctx)

	if cfg.RetentionPeriod > 0 {
		cleanup := worker.NewOutboxCleanupWorker(stores.Outbox, cfg.RetentionPeriod, time.Hour, logger)
		go cleanup.Start(ctx)
	}
	return nil
}

// RunNotifier sends the notification emails for broker events until ctx is
// cancelled.
func RunNotifier(ctx context.Context, cfg config.SMTPConfig, broker messaging.Broker, logger zerolog.Logger, m *metrics.Metrics) error {
	notifier := notification.NewService(email.NewService(cfg, logger), cfg.SupportInbox, logger, m)
	if err := notifier.Run(ctx, broker); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func BrokerConfig(cfg config.RedisConfig) redis.Config {
	return redis.Config{
		URL:          cfg.URL,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
}
