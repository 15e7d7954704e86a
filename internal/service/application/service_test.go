package application

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/internal/repository/memory"
	"github.com/jwalitptl/zapdoc-api/internal/service/event"
	"github.com/jwalitptl/zapdoc-api/pkg/errors"
	"github.com/jwalitptl/zapdoc-api/pkg/metrics"
	"github.com/jwalitptl/zapdoc-api/pkg/security"
)

type countingDirectory struct{ invalidations int }

func (d *countingDirectory) Invalidate() { d.invalidations++ }

var admin = model.Session{SubjectID: uuid.New(), Role: model.RoleAdmin}

func newService(t *testing.T, cfg Config) (*Service, *memory.Store, *countingDirectory) {
	t.Helper()
	store := memory.NewStore()
	dir := &countingDirectory{}
	svc := NewService(
		store,
		store.Applications(),
		store.Doctors(),
		event.NewEventService(store.Outbox()),
		security.NewBcryptHasher(bcrypt.MinCost),
		dir,
		metrics.NewNop(),
		cfg,
	)
	return svc, store, dir
}

func messageOf(t *testing.T, err error) string {
	t.Helper()
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr.Message
}

func submission(email string) *model.ApplicationSubmission {
	return &model.ApplicationSubmission{
		Name:           "Dr. Grace",
		Email:          email,
		Phone:          "555-0100",
		ClinicName:     "Grace Clinic",
		ClinicAddress:  "2 Side St",
		Specialization: "Neurology",
		Password:       "hunter22",
		Qualifications: model.Qualifications{{Degree: "MD", Institution: "State U", Year: 2010}},
	}
}

func TestSubmitApproveScenario(t *testing.T) {
	svc, store, dir := newService(t, Config{})
	ctx := context.Background()

	app, err := svc.Submit(ctx, submission("grace@example.com"))
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusPending, app.Status)
	assert.NotEqual(t, "hunter22", app.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(app.PasswordHash), []byte("hunter22")))

	pending, err := svc.ListPending(ctx, admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	approved, doctor, err := svc.Approve(ctx, admin, app.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusApproved, approved.Status)
	assert.Equal(t, "grace@example.com", doctor.Email)
	assert.Equal(t, app.PasswordHash, doctor.PasswordHash)
	assert.Equal(t, 1, dir.invalidations)

	stored, err := store.Doctors().GetByEmail(ctx, "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, doctor.ID, stored.ID)
	assert.Len(t, stored.Qualifications, 1)

	_, _, err = svc.Approve(ctx, admin, app.ID.String())
	assert.True(t, errors.Is(err, errors.AlreadyProcessedErr))
	_, err = svc.Reject(ctx, admin, app.ID.String())
	assert.True(t, errors.Is(err, errors.AlreadyProcessedErr))

	pending, err = svc.ListPending(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, pending)

	events := store.OutboxEvents(model.EventApplicationApproved)
	require.Len(t, events, 1)
	var decision model.ApplicationDecision
	require.NoError(t, json.Unmarshal(events[0].Payload, &decision))
	require.NotNil(t, decision.DoctorID)
	assert.Equal(t, doctor.ID, *decision.DoctorID)
	assert.Len(t, store.OutboxEvents(model.EventApplicationSubmitted), 1)
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newService(t, Config{})

	req := submission("not-an-email")
	_, err := svc.Submit(context.Background(), req)
	assert.Equal(t, "email must be a valid email address", messageOf(t, err))

	req = submission("grace@example.com")
	req.Password = "123"
	_, err = svc.Submit(context.Background(), req)
	assert.Equal(t, "password must be at least 6 characters", messageOf(t, err))
	assert.Equal(t, 400, errors.StatusOf(err))
}

func TestSubmitDuplicatePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("any earlier application blocks by default", func(t *testing.T) {
		svc, _, _ := newService(t, Config{})
		app, err := svc.Submit(ctx, submission("a@example.com"))
		require.NoError(t, err)

		_, err = svc.Submit(ctx, submission("a@example.com"))
		assert.True(t, errors.Is(err, errors.DuplicateApplicationErr))

		_, err = svc.Reject(ctx, admin, app.ID.String())
		require.NoError(t, err)
		_, err = svc.Submit(ctx, submission("a@example.com"))
		assert.True(t, errors.Is(err, errors.DuplicateApplicationErr))
	})

	t.Run("rejected applicants may resubmit when allowed", func(t *testing.T) {
		svc, _, _ := newService(t, Config{AllowResubmitAfterRejection: true})
		app, err := svc.Submit(ctx, submission("b@example.com"))
		require.NoError(t, err)

		_, err = svc.Submit(ctx, submission("b@example.com"))
		assert.True(t, errors.Is(err, errors.DuplicateApplicationErr))

		_, err = svc.Reject(ctx, admin, app.ID.String())
		require.NoError(t, err)
		again, err := svc.Submit(ctx, submission("b@example.com"))
		require.NoError(t, err)

		_, _, err = svc.Approve(ctx, admin, again.ID.String())
		require.NoError(t, err)
		_, err = svc.Submit(ctx, submission("b@example.com"))
		assert.True(t, errors.Is(err, errors.DuplicateApplicationErr))
	})
}

func TestRejectCreatesNoProfile(t *testing.T) {
	svc, store, dir := newService(t, Config{})
	ctx := context.Background()

	app, err := svc.Submit(ctx, submission("r@example.com"))
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, admin, app.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusRejected, rejected.Status)
	assert.Zero(t, dir.invalidations)

	exists, err := store.Doctors().ExistsByEmail(ctx, "r@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Len(t, store.OutboxEvents(model.EventApplicationRejected), 1)
}

func TestDecisionPreconditions(t *testing.T) {
	svc, store, _ := newService(t, Config{})
	ctx := context.Background()

	app, err := svc.Submit(ctx, submission("p@example.com"))
	require.NoError(t, err)

	patient := model.Session{SubjectID: uuid.New(), Role: model.RolePatient}
	_, _, err = svc.Approve(ctx, patient, app.ID.String())
	assert.True(t, errors.Is(err, errors.ForbiddenErr))
	_, err = svc.Reject(ctx, model.Session{SubjectID: uuid.New(), Role: model.RoleDoctor}, app.ID.String())
	assert.True(t, errors.Is(err, errors.ForbiddenErr))
	_, err = svc.ListPending(ctx, patient)
	assert.True(t, errors.Is(err, errors.ForbiddenErr))

	_, _, err = svc.Approve(ctx, admin, "42")
	assert.True(t, errors.Is(err, errors.InvalidIdentifierErr))

	_, _, err = svc.Approve(ctx, admin, uuid.NewString())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.NotFoundErr))
	assert.Equal(t, "Application not found", err.Error())

	got, err := store.Applications().Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusPending, got.Status)
}

func TestApproveDuplicateProfileRollsBack(t *testing.T) {
	svc, store, dir := newService(t, Config{})
	ctx := context.Background()

	app, err := svc.Submit(ctx, submission("dup@example.com"))
	require.NoError(t, err)
	require.NoError(t, store.Doctors().Create(ctx, &model.Doctor{ProfessionalFields: model.ProfessionalFields{
		Name:  "Existing",
		Email: "dup@example.com",
	}}))

	_, _, err = svc.Approve(ctx, admin, app.ID.String())
	assert.True(t, errors.Is(err, errors.DuplicateProfileErr))
	assert.Zero(t, dir.invalidations)

	got, err := store.Applications().Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusPending, got.Status)
	assert.Empty(t, store.OutboxEvents(model.EventApplicationApproved))
}

type failingEmitter struct {
	event.Emitter
	failOn string
}

func (e failingEmitter) Emit(ctx context.Context, eventType string, payload interface{}) error {
	if eventType == e.failOn {
		return fmt.Errorf("outbox unavailable")
	}
	return e.Emitter.Emit(ctx, eventType, payload)
}

func TestApproveRollsBackWhenEventFails(t *testing.T) {
	store := memory.NewStore()
	dir := &countingDirectory{}
	svc := NewService(
		store,
		store.Applications(),
		store.Doctors(),
		failingEmitter{Emitter: event.NewEventService(store.Outbox()), failOn: model.EventApplicationApproved},
		security.NewBcryptHasher(bcrypt.MinCost),
		dir,
		metrics.NewNop(),
		Config{},
	)
	ctx := context.Background()

	app, err := svc.Submit(ctx, submission("tx@example.com"))
	require.NoError(t, err)

	_, _, err = svc.Approve(ctx, admin, app.ID.String())
	require.Error(t, err)
	assert.Zero(t, dir.invalidations)

	exists, err := store.Doctors().ExistsByEmail(ctx, "tx@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
	got, err := store.Applications().Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusPending, got.Status)
}
