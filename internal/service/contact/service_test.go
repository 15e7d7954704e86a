package contact

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/internal/repository/memory"
	"github.com/jwalitptl/zapdoc-api/internal/service/event"
)

func TestSubmitStoresMessageAndEvent(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store, store.Contacts(), event.NewEventService(store.Outbox()))

	msg, err := svc.Submit(context.Background(), &model.ContactRequest{
		Name:    "Pat",
		Email:   "pat@example.com",
		Subject: "Hours",
		Message: "Are you open on Sunday?",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)

	events := store.OutboxEvents(model.EventContactSubmitted)
	require.Len(t, events, 1)
	var payload model.ContactMessage
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, msg.ID, payload.ID)
	assert.Equal(t, "Hours", payload.Subject)
}

func TestSubmitFailureLeavesNoEvent(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store, store.Contacts(), event.NewEventService(store.Outbox()))
	store.FailNext = errors.New("disk full")

	_, err := svc.Submit(context.Background(), &model.ContactRequest{Name: "Pat", Email: "pat@example.com", Subject: "s", Message: "m"})
	require.Error(t, err)
	assert.Empty(t, store.OutboxEvents(""))
}
