// Package memory is an in-process implementation of the repository
// interfaces. It enforces the same uniqueness rules as the Postgres schema and
// backs the service and handler tests as well as the "memory" database driver.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/internal/repository"
	apperrors "github.com/jwalitptl/zapdoc-api/pkg/errors"
)

type txKey struct{}

type tables struct {
	users        map[uuid.UUID]model.User
	doctors      map[uuid.UUID]model.Doctor
	applications map[uuid.UUID]model.Application
	appointments map[uuid.UUID]model.Appointment
	contacts     map[uuid.UUID]model.ContactMessage
	outbox       map[uuid.UUID]model.OutboxEvent
}

func newTables() tables {
	return tables{
		users:        map[uuid.UUID]model.User{},
		doctors:      map[uuid.UUID]model.Doctor{},
		applications: map[uuid.UUID]model.Application{},
		appointments: map[uuid.UUID]model.Appointment{},
		contacts:     map[uuid.UUID]model.ContactMessage{},
		outbox:       map[uuid.UUID]model.OutboxEvent{},
	}
}

func (t tables) clone() tables {
	c := newTables()
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.doctors {
		c.doctors[k] = v
	}
	for k, v := range t.applications {
		c.applications[k] = v
	}
	for k, v := range t.appointments {
		c.appointments[k] = v
	}
	for k, v := range t.contacts {
		c.contacts[k] = v
	}
	for k, v := range t.outbox {
		c.outbox[k] = v
	}
	return c
}

// Store holds every table. Transactions and writes are serialized on txMu,
// so a transaction rolls back by restoring the snapshot taken when it began.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	t    tables
	now  func() time.Time

	// FailNext, when set, makes the next write return the error. Used by
	// tests to exercise rollback paths.
	FailNext error
}

func NewStore() *Store {
	return &Store{t: newTables(), now: time.Now}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.t.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.mu.Lock()
		s.t = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lockWrite serializes a write against open transactions, so a rollback
// never discards rows committed outside it. Writes inside a transaction
// already hold txMu.
func (s *Store) lockWrite(ctx context.Context) func() {
	inTx := s.inTx(ctx)
	if !inTx {
		s.txMu.Lock()
	}
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		if !inTx {
			s.txMu.Unlock()
		}
	}
}

func (s *Store) failure() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

func (s *Store) Transactor() repository.Transactor { return s }
func (s *Store) Appointments() repository.AppointmentRepository { return &appointmentRepo{s} }
func (s *Store) Doctors() repository.DoctorRepository { return &doctorRepo{s} }
func (s *Store) Applications() repository.ApplicationRepository { return &applicationRepo{s} }
func (s *Store) Users() repository.UserRepository { return &userRepo{s} }
func (s *Store) Contacts() repository.ContactRepository { return &contactRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository { return &outboxRepo{s} }

// OutboxEvents returns every outbox row of the given type, oldest first.
func (s *Store) OutboxEvents(eventType string) []model.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.OutboxEvent
	for _, e := range s.t.outbox {
		if eventType == "" || e.EventType == eventType {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) stamp(b *model.Base) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = s.now()
	b.UpdatedAt = b.CreatedAt
}

type appointmentRepo struct{ s *Store }

func (r *appointmentRepo) Create(ctx context.Context, a *model.Appointment) error {
	defer r.s.lockWrite(ctx)()
	if err := r.s.failure(); err != nil {
		return err
	}

	a.ID = uuid.Nil
	a.Date = model.NormalizeDate(a.Date)
	if a.Status == "" {
		a.Status = model.AppointmentStatusBooked
	}
	if a.Status == model.AppointmentStatusBooked {
		for _, other := range r.s.t.appointments {
			if other.Status == model.AppointmentStatusBooked && other.DoctorID == a.DoctorID &&
				other.Date.Equal(a.Date) && other.Slot == a.Slot {
				return apperrors.SlotAlreadyBookedErr
			}
		}
	}
	r.s.stamp(&a.Base)
	r.s.t.appointments[a.ID] = *a
	return nil
}

func (r *appointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.t.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("Appointment", nil)
	}
	return &a, nil
}

func (r *appointmentRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return r.Get(ctx, id)
}

func (r *appointmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	defer r.s.lockWrite(ctx)()
	if err := r.s.failure(); err != nil {
		return err
	}
	a, ok := r.s.t.appointments[id]
	if !ok {
		return apperrors.NotFound("Appointment", nil)
	}
	a.Status = status
	a.UpdatedAt = r.s.now()
	r.s.t.appointments[id] = a
	return nil
}

func (r *appointmentRepo) IsSlotBooked(ctx context.Context, doctorID uuid.UUID, date time.Time, slot string) (bool, error) {
	booked, err := r.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return false, err
	}
	for _, b := range booked {
		if b == slot {
			return true, nil
		}
	}
	return false, nil
}

func (r *appointmentRepo) BookedSlots(_ context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	day := model.NormalizeDate(date)
	slots := []string{}
	for _, a := range r.s.t.appointments {
		if a.DoctorID == doctorID && a.Status == model.AppointmentStatusBooked && a.Date.Equal(day) {
			slots = append(slots, a.Slot)
		}
	}
	return slots, nil
}

func (r *appointmentRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.PatientAppointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.PatientAppointment{}
	for _, a := range r.s.t.appointments {
		if a.PatientID != patientID {
			continue
		}
		d, ok := r.s.t.doctors[a.DoctorID]
		if !ok {
			continue
		}
		out = append(out, &model.PatientAppointment{
			Appointment: a,
			Doctor: model.DoctorSummary{
				ID:             d.ID,
				Name:           d.Name,
				Specialization: d.Specialization,
				ClinicName:     d.ClinicName,
				ClinicAddress:  d.ClinicAddress,
			},
		})
	}
	sort.Slice(out, func(i, j int) bool { return lessAppointment(out[i].Appointment, out[j].Appointment) })
	return out, nil
}

func (r *appointmentRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*model.DoctorAppointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.DoctorAppointment{}
	for _, a := range r.s.t.appointments {
		if a.DoctorID != doctorID {
			continue
		}
		u, ok := r.s.t.users[a.PatientID]
		if !ok {
			continue
		}
		out = append(out, &model.DoctorAppointment{
			Appointment: a,
			Patient:     model.PatientSummary{ID: u.ID, Name: u.Name, Email: u.Email},
		})
	}
	sort.Slice(out, func(i, j int) bool { return lessAppointment(out[i].Appointment, out[j].Appointment) })
	return out, nil
}

// lessAppointment orders newest day first, then by slot.
func lessAppointment(a, b model.Appointment) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.Slot < b.Slot
}

type doctorRepo struct{ s *Store }

func (r *doctorRepo) Create(ctx context.Context, d *model.Doctor) error {
	defer r.s.lockWrite(ctx)()
	if err := r.s.failure(); err != nil {
		return err
	}
	for _, other := range r.s.t.doctors {
		if other.Email == d.Email {
			return apperrors.DuplicateProfileErr
		}
	}
	r.s.stamp(&d.Base)
	r.s.t.doctors[d.ID] = *d
	return nil
}

func (r *doctorRepo) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.t.doctors[id]
	if !ok {
		return nil, apperrors.NotFound("Doctor", nil)
	}
	return &d, nil
}

func (r *doctorRepo) GetByEmail(_ context.Context, email string) (*model.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, d := range r.s.t.doctors {
		if d.Email == email {
			d := d
			return &d, nil
		}
	}
	return nil, apperrors.NotFound("Doctor", nil)
}

func (r *doctorRepo) GetByName(_ context.Context, name string) (*model.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var found *model.Doctor
	for _, d := range r.s.t.doctors {
		if strings.EqualFold(d.Name, strings.TrimSpace(name)) {
			if found == nil || d.CreatedAt.Before(found.CreatedAt) {
				d := d
				found = &d
			}
		}
	}
	if found == nil {
		return nil, apperrors.NotFound("Doctor", nil)
	}
	return found, nil
}

func (r *doctorRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if apperrors.Is(err, apperrors.NotFoundErr) {
		return false, nil
	}
	return err == nil, err
}

func (r *doctorRepo) List(_ context.Context, filter *model.DoctorFilter) ([]*model.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.Doctor{}
	for _, d := range r.s.t.doctors {
		if filter != nil && filter.Specialization != "" && !strings.EqualFold(d.Specialization, filter.Specialization) {
			continue
		}
		d := d
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type applicationRepo struct{ s *Store }

func (r *applicationRepo) Create(ctx context.Context, a *model.Application) error {
	defer r.s.lockWrite(ctx)()
	if err := r.s.failure(); err != nil {
		return err
	}
	for _, other := range r.s.t.applications {
		if other.Email == a.Email && other.Status == model.ApplicationStatusPending {
			return apperrors.DuplicateApplicationErr
		}
	}
	a.ID = uuid.Nil
	a.Status = model.ApplicationStatusPending
	r.s.stamp(&a.Base)
	r.s.t.applications[a.ID] = *a
	return nil
}

func (r *applicationRepo) Get(_ context.Context, id uuid.UUID) (*model.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.t.applications[id]
	if !ok {
		return nil, apperrors.NotFound("Application", nil)
	}
	return &a, nil
}

func (r *applicationRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	return r.Get(ctx, id)
}

func (r *applicationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ApplicationStatus) error {
	defer r.s.lockWrite(ctx)()
	if err := r.s.failure(); err != nil {
		return err
	}
	a, ok := r.s.t.applications[id]
	if !ok {
		return apperrors.NotFound("Application", nil)
	}
	a.Status = status
	a.UpdatedAt = r.s.now()
	r.s.t.applications[id] = a
	return nil
}

func (r *applicationRepo) ListByEmail(_ context.Context, email string) ([]*model.Application, error) {
	return r.list(func(a model.Application) bool { return a.Email == email }), nil
}

func (r *applicationRepo) ListByStatus(_ context.Context, status model.ApplicationStatus) ([]*model.Application, error) {
	return r.list(func(a model.Application) bool { return a.Status == status }), nil
}

func (r *applicationRepo) list(match func(model.Application) bool) []*model.Application {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.Application{}
	for _, a := range r.s.t.applications {
		if match(a) {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	defer r.s.lockWrite(ctx)()
	if err := r.s.failure(); err != nil {
		return err
	}
	for _, other := range r.s.t.users {
		if other.Email == u.Email {
			return apperrors.DuplicateAccountErr
		}
	}
	if u.Role == "" {
		u.Role = model.RolePatient
	}
	u.ID = uuid.Nil
	r.s.stamp(&u.Base)
	r.s.t.users[u.ID] = *u
	return nil
}

func (r *userRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.t.users[id]
	if !ok {
		return nil, apperrors.NotFound("User", nil)
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.t.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("User", nil)
}

type contactRepo struct{ s *Store }

func (r *contactRepo) Create(ctx context.Context, m *model.ContactMessage) error {
	defer r.s.lockWrite(ctx)()
	if err := r.s.failure(); err != nil {
		return err
	}
	m.ID = uuid.Nil
	r.s.stamp(&m.Base)
	r.s.t.contacts[m.ID] = *m
	return nil
}

type outboxRepo struct{ s *Store }

func (r *outboxRepo) Create(ctx context.Context, e *model.OutboxEvent) error {
	defer r.s.lockWrite(ctx)()
	if err := r.s.failure(); err != nil {
		return err
	}
	e.ID = uuid.New()
	e.Status = model.OutboxStatusPending
	e.CreatedAt = r.s.now()
	e.UpdatedAt = e.CreatedAt
	r.s.t.outbox[e.ID] = *e
	return nil
}

func (r *outboxRepo) ClaimPending(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.OutboxEvent{}
	for _, e := range r.s.t.outbox {
		if e.Status == model.OutboxStatusPending {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *outboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	defer r.s.lockWrite(ctx)()
	e, ok := r.s.t.outbox[id]
	if !ok {
		return apperrors.NotFound("Outbox event", nil)
	}
	now := r.s.now()
	e.Status = model.OutboxStatusProcessed
	e.ErrorMessage = nil
	e.ProcessedAt = &now
	e.UpdatedAt = now
	r.s.t.outbox[id] = e
	return nil
}

func (r *outboxRepo) MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, failed bool) error {
	defer r.s.lockWrite(ctx)()
	e, ok := r.s.t.outbox[id]
	if !ok {
		return apperrors.NotFound("Outbox event", nil)
	}
	e.RetryCount++
	e.ErrorMessage = &errMsg
	e.UpdatedAt = r.s.now()
	if failed {
		e.Status = model.OutboxStatusFailed
	}
	r.s.t.outbox[id] = e
	return nil
}

func (r *outboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	defer r.s.lockWrite(ctx)()
	var n int64
	for id, e := range r.s.t.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.s.t.outbox, id)
			n++
		}
	}
	return n, nil
}
