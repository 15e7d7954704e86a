package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/pkg/messaging"
	"github.com/jwalitptl/zapdoc-api/pkg/metrics"
)

type sentEmail struct{ to, subject, body string }

type fakeEmail struct {
	err  error
	sent []sentEmail
}

func (f *fakeEmail) Send(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{to, subject, body})
	return nil
}

type fakeBroker struct {
	msgs []messaging.Message
}

func (b *fakeBroker) Publish(context.Context, string, []byte) error { return nil }
func (b *fakeBroker) Close() error                                  { return nil }

func (b *fakeBroker) Subscribe(_ context.Context, _ ...string) (<-chan messaging.Message, error) {
	ch := make(chan messaging.Message, len(b.msgs))
	for _, m := range b.msgs {
		ch <- m
	}
	close(ch)
	return ch, nil
}

func payload(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestHandleDecisionEmailsApplicant(t *testing.T) {
	mail := &fakeEmail{}
	m := metrics.NewNop()
	svc := NewService(mail, "support@zapdoc.local", zerolog.Nop(), m)

	err := svc.Handle(context.Background(), messaging.Message{
		Channel: model.EventApplicationApproved,
		Payload: payload(t, model.ApplicationDecision{
			ApplicationID: uuid.New(),
			Name:          "Dr. Grace",
			Email:         "grace@example.com",
			Status:        model.ApplicationStatusApproved,
		}),
	})
	require.NoError(t, err)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "grace@example.com", mail.sent[0].to)
	assert.Contains(t, mail.sent[0].subject, "approved")
	assert.Contains(t, mail.sent[0].body, "Dr. Grace")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EmailsSent.WithLabelValues("approved", "success")))
}

func TestHandleContactEmailsSupport(t *testing.T) {
	mail := &fakeEmail{}
	svc := NewService(mail, "support@zapdoc.local", zerolog.Nop(), metrics.NewNop())

	err := svc.Handle(context.Background(), messaging.Message{
		Channel: model.EventContactSubmitted,
		Payload: payload(t, model.ContactMessage{Name: "Pat", Email: "pat@example.com", Subject: "Hours", Message: "Open Sunday?"}),
	})
	require.NoError(t, err)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "support@zapdoc.local", mail.sent[0].to)
	assert.Equal(t, "[Contact] Hours", mail.sent[0].subject)
	assert.Contains(t, mail.sent[0].body, "pat@example.com")
}

func TestHandleErrors(t *testing.T) {
	m := metrics.NewNop()
	mail := &fakeEmail{err: errors.New("smtp down")}
	svc := NewService(mail, "support@zapdoc.local", zerolog.Nop(), m)
	ctx := context.Background()

	err := svc.Handle(ctx, messaging.Message{Channel: model.EventApplicationRejected, Payload: []byte("{")})
	assert.Error(t, err)

	err = svc.Handle(ctx, messaging.Message{
		Channel: model.EventApplicationRejected,
		Payload: payload(t, model.ApplicationDecision{Email: "x@example.com", Status: model.ApplicationStatusRejected}),
	})
	assert.EqualError(t, err, "smtp down")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EmailsSent.WithLabelValues("rejected", "error")))

	assert.NoError(t, svc.Handle(ctx, messaging.Message{Channel: "appointment.booked", Payload: []byte("{}")}))
}

func TestRunDrainsSubscription(t *testing.T) {
	mail := &fakeEmail{}
	svc := NewService(mail, "support@zapdoc.local", zerolog.Nop(), metrics.NewNop())
	broker := &fakeBroker{msgs: []messaging.Message{
		{Channel: model.EventContactSubmitted, Payload: payload(t, model.ContactMessage{Subject: "a"})},
		{Channel: model.EventContactSubmitted, Payload: []byte("not json")},
		{Channel: model.EventContactSubmitted, Payload: payload(t, model.ContactMessage{Subject: "b"})},
	}}

	require.NoError(t, svc.Run(context.Background(), broker))
	assert.Len(t, mail.sent, 2)
}
