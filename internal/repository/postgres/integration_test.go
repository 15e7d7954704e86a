package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	apperrors "github.com/jwalitptl/zapdoc-api/pkg/errors"
)

// openTestDB connects to the database named by ZAPDOC_TEST_DATABASE_URL and
// applies the schema. Tests are skipped when it is unset.
func openTestDB(t *testing.T) BaseRepository {
	t.Helper()
	dsn := os.Getenv("ZAPDOC_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ZAPDOC_TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(context.Background(), db))
	return NewBaseRepository(db)
}

// seedParties creates a doctor and a patient with unique emails.
func seedParties(t *testing.T, base BaseRepository) (doctorID, patientID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()

	doctor := &model.Doctor{
		ProfessionalFields: model.ProfessionalFields{
			Name:           "Dr " + suffix,
			Email:          "doc-" + suffix + "@example.com",
			Phone:          "5550100",
			ClinicName:     "Clinic",
			ClinicAddress:  "1 Main St",
			Specialization: "Cardiology",
		},
		PasswordHash: "hash",
	}
	require.NoError(t, NewDoctorRepository(base).Create(ctx, doctor))

	patient := &model.User{Name: "Pat", Email: "pat-" + suffix + "@example.com", PasswordHash: "hash"}
	require.NoError(t, NewUserRepository(base).Create(ctx, patient))

	return doctor.ID, patient.ID
}

func TestPostgresBookedSlotIsExclusiveUntilCancelled(t *testing.T) {
	base := openTestDB(t)
	ctx := context.Background()
	doctorID, patientID := seedParties(t, base)
	repo := NewAppointmentRepository(base)

	// A time of day on the requested date must not leak into the stored day.
	day := time.Date(2030, 3, 4, 15, 30, 0, 0, time.UTC)
	first := &model.Appointment{DoctorID: doctorID, PatientID: patientID, Date: day, Slot: "09:00-10:00"}
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, &model.Appointment{DoctorID: doctorID, PatientID: patientID, Date: day, Slot: "09:00-10:00"})
	assert.True(t, apperrors.Is(err, apperrors.SlotAlreadyBookedErr))

	stored, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, stored.Date.Equal(model.NormalizeDate(day)))

	slots, err := repo.BookedSlots(ctx, doctorID, day)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00-10:00"}, slots)

	require.NoError(t, repo.UpdateStatus(ctx, first.ID, model.AppointmentStatusCancelled))
	assert.NoError(t, repo.Create(ctx, &model.Appointment{DoctorID: doctorID, PatientID: patientID, Date: day, Slot: "09:00-10:00"}))
}

func TestPostgresWithinTxRollsBackLockedUpdate(t *testing.T) {
	base := openTestDB(t)
	ctx := context.Background()
	doctorID, patientID := seedParties(t, base)
	repo := NewAppointmentRepository(base)

	appt := &model.Appointment{DoctorID: doctorID, PatientID: patientID, Date: time.Date(2030, 3, 5, 0, 0, 0, 0, time.UTC), Slot: "10:00-11:00"}
	require.NoError(t, repo.Create(ctx, appt))

	boom := errors.New("boom")
	err := NewTransactor(base).WithinTx(ctx, func(ctx context.Context) error {
		locked, err := repo.GetForUpdate(ctx, appt.ID)
		if err != nil {
			return err
		}
		if err := repo.UpdateStatus(ctx, locked.ID, model.AppointmentStatusCompleted); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := repo.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusBooked, stored.Status)

	assert.True(t, apperrors.Is(repo.UpdateStatus(ctx, uuid.New(), model.AppointmentStatusCancelled), apperrors.NotFoundErr))
}

func TestPostgresPendingApplicationIsUniquePerEmail(t *testing.T) {
	base := openTestDB(t)
	ctx := context.Background()
	repo := NewApplicationRepository(base)

	fields := model.ProfessionalFields{
		Name:           "Applicant",
		Email:          "apply-" + uuid.NewString() + "@example.com",
		Phone:          "5550101",
		ClinicName:     "Clinic",
		ClinicAddress:  "2 Main St",
		Specialization: "Dermatology",
	}
	first := &model.Application{ProfessionalFields: fields, PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, &model.Application{ProfessionalFields: fields, PasswordHash: "hash"})
	assert.True(t, apperrors.Is(err, apperrors.DuplicateApplicationErr))

	require.NoError(t, repo.UpdateStatus(ctx, first.ID, model.ApplicationStatusRejected))
	assert.NoError(t, repo.Create(ctx, &model.Application{ProfessionalFields: fields, PasswordHash: "hash"}))
}
