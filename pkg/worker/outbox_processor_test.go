package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/internal/repository/memory"
	"github.com/jwalitptl/zapdoc-api/pkg/metrics"
)

type fakePublisher struct {
	mu        sync.Mutex
	err       error
	published map[string][][]byte
}

func (f *fakePublisher) Publish(_ context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.published == nil {
		f.published = map[string][][]byte{}
	}
	f.published[channel] = append(f.published[channel], payload)
	return nil
}

func newProcessor(t *testing.T, store *memory.Store, pub Publisher, attempts int) *OutboxProcessor {
	t.Helper()
	p, err := NewOutboxProcessor(store.Outbox(), store.Transactor(), pub, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: attempts,
	}, zerolog.Nop(), metrics.NewNop())
	require.NoError(t, err)
	return p
}

func seed(t *testing.T, store *memory.Store, eventType string) {
	t.Helper()
	require.NoError(t, store.Outbox().Create(context.Background(), &model.OutboxEvent{
		EventType: eventType,
		Payload:   []byte(`{"ok":true}`),
	}))
}

func TestProcessBatchPublishesAndMarksProcessed(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, model.EventAppointmentBooked)
	seed(t, store, model.EventApplicationApproved)

	pub := &fakePublisher{}
	n, err := newProcessor(t, store, pub, 3).ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Len(t, pub.published[model.EventAppointmentBooked], 1)
	assert.JSONEq(t, `{"ok":true}`, string(pub.published[model.EventApplicationApproved][0]))
	for _, e := range store.OutboxEvents("") {
		assert.Equal(t, model.OutboxStatusProcessed, e.Status)
		assert.NotNil(t, e.ProcessedAt)
	}

	n, err = newProcessor(t, store, pub, 3).ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProcessBatchRetriesThenFails(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, model.EventContactSubmitted)

	pub := &fakePublisher{err: errors.New("redis down")}
	p := newProcessor(t, store, pub, 2)

	_, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	events := store.OutboxEvents(model.EventContactSubmitted)
	require.Len(t, events, 1)
	assert.Equal(t, model.OutboxStatusPending, events[0].Status)
	assert.Equal(t, 1, events[0].RetryCount)
	require.NotNil(t, events[0].ErrorMessage)
	assert.Equal(t, "redis down", *events[0].ErrorMessage)

	_, err = p.ProcessBatch(context.Background())
	require.NoError(t, err)
	events = store.OutboxEvents(model.EventContactSubmitted)
	assert.Equal(t, model.OutboxStatusFailed, events[0].Status)
	assert.Equal(t, 2, events[0].RetryCount)

	// Failed events are no longer claimed.
	pub.err = nil
	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewOutboxProcessorValidatesConfig(t *testing.T) {
	store := memory.NewStore()
	_, err := NewOutboxProcessor(store.Outbox(), store, &fakePublisher{}, OutboxProcessorConfig{}, zerolog.Nop(), metrics.NewNop())
	assert.Error(t, err)
}

func TestCleanupDeletesOldProcessedEvents(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, model.EventAppointmentCancelled)
	_, err := newProcessor(t, store, &fakePublisher{}, 1).ProcessBatch(context.Background())
	require.NoError(t, err)

	w := NewOutboxCleanupWorker(store.Outbox(), time.Hour, time.Minute, zerolog.Nop())
	rows, err := w.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rows)

	w.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	rows, err = w.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.Empty(t, store.OutboxEvents(""))
}
