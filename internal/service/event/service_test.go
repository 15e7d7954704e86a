package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/internal/repository/memory"
)

func TestEmitWritesPendingOutboxRow(t *testing.T) {
	store := memory.NewStore()
	svc := NewEventService(store.Outbox())

	require.NoError(t, svc.Emit(context.Background(), model.EventContactSubmitted, map[string]string{"email": "a@b.c"}))

	events := store.OutboxEvents(model.EventContactSubmitted)
	require.Len(t, events, 1)
	assert.Equal(t, model.OutboxStatusPending, events[0].Status)
	assert.JSONEq(t, `{"email":"a@b.c"}`, string(events[0].Payload))
}

func TestEmitRejectsUnmarshalablePayload(t *testing.T) {
	svc := NewEventService(memory.NewStore().Outbox())
	err := svc.Emit(context.Background(), model.EventContactSubmitted, make(chan int))
	assert.Error(t, err)
}
