package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/internal/repository"
	"github.com/jwalitptl/zapdoc-api/pkg/metrics"
)

// Publisher is the part of a message broker the processor needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
}

// OutboxProcessor relays committed outbox rows to the broker. A row is marked
// processed once the broker accepts the publish, and a failed publish is
// retried on later ticks. The guarantee ends at the broker: Redis pub/sub
// drops a message no subscriber is connected to receive, so consumers that
// must not miss events need to be running before the relay.
type OutboxProcessor struct {
	repo      repository.OutboxRepository
	tx        repository.Transactor
	publisher Publisher
	config    OutboxProcessorConfig
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	tx repository.Transactor,
	publisher Publisher,
	config OutboxProcessorConfig,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than 0")
	}
	if config.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		return nil, fmt.Errorf("retry attempts must be greater than 0")
	}

	return &OutboxProcessor{
		repo:      repo,
		tx:        tx,
		publisher: publisher,
		config:    config,
		logger:    logger.With().Str("component", "outbox-processor").Logger(),
		metrics:   metrics,
	}, nil
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info().Msg("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error().Err(err).Msg("Failed to process events")
			}
		}
	}
}

// ProcessBatch claims one batch of pending events and tries to publish each
// of them. It returns the number of events published.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	published := 0
	err := p.tx.WithinTx(ctx, func(ctx context.Context) error {
		events, err := p.repo.ClaimPending(ctx, p.config.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to get pending events: %w", err)
		}

		for _, event := range events {
			ok, err := p.processEvent(ctx, event)
			if err != nil {
				return err
			}
			if ok {
				published++
			}
		}
		return nil
	})
	return published, err
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) (bool, error) {
	log := p.logger.With().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Logger()

	if pubErr := p.publisher.Publish(ctx, event.EventType, event.Payload); pubErr != nil {
		failed := event.RetryCount+1 >= p.config.RetryAttempts
		p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
		if failed {
			p.metrics.OutboxEventsFailed.Inc()
			log.Error().Err(pubErr).Int("attempts", event.RetryCount+1).Msg("Giving up on event")
		} else {
			log.Warn().Err(pubErr).Int("attempts", event.RetryCount+1).Msg("Failed to publish event, will retry")
		}

		if err := p.repo.MarkRetry(ctx, event.ID, pubErr.Error(), failed); err != nil {
			return false, fmt.Errorf("failed to update event status: %w", err)
		}
		return false, nil
	}

	if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
		return false, fmt.Errorf("failed to mark event %s processed: %w", event.ID, err)
	}
	p.metrics.OutboxEventsProcessed.Inc()
	log.Debug().Msg("Event published")
	return true, nil
}
