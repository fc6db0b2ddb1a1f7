package appointment

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinica-valencia/clinic-api/internal/model"
	"github.com/clinica-valencia/clinic-api/internal/repository"
	apperrors "github.com/clinica-valencia/clinic-api/pkg/errors"
	"github.com/clinica-valencia/clinic-api/pkg/logger"
)

type slotKey struct {
	practitioner uuid.UUID
	date         string
	startTime    string
}

type fakeAppointmentRepo struct {
	repository.AppointmentRepository

	byID  map[uuid.UUID]*model.Appointment
	slots map[slotKey]uuid.UUID

	statusUpdates []model.AppointmentStatus
	cancelled     []uuid.UUID
	rangeRows     []*model.AppointmentSummary
	summaryRows   []*model.AppointmentSummary
	lastFilters   *repository.AppointmentFilters

	skipExistsCheck bool
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{
		byID:  make(map[uuid.UUID]*model.Appointment),
		slots: make(map[slotKey]uuid.UUID),
	}
}

func key(practitioner uuid.UUID, date time.Time, startTime string) slotKey {
	return slotKey{practitioner: practitioner, date: date.Format("2006-01-02"), startTime: startTime}
}

func (r *fakeAppointmentRepo) Create(_ context.Context, appt *model.Appointment) error {
	k := key(appt.PractitionerID, appt.Date, appt.StartTime)
	if _, taken := r.slots[k]; taken {
		return repository.ErrDuplicateSlot
	}
	appt.ID = uuid.New()
	r.byID[appt.ID] = appt
	r.slots[k] = appt.ID
	return nil
}

func (r *fakeAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return appt, nil
}

func (r *fakeAppointmentRepo) ExistsActive(_ context.Context, practitionerID uuid.UUID, date time.Time, startTime string) (bool, error) {
	if r.skipExistsCheck {
		// Simulates the concurrent booker that passed the check first.
		return false, nil
	}
	_, taken := r.slots[key(practitionerID, date, startTime)]
	return taken, nil
}

func (r *fakeAppointmentRepo) OccupiedStartTimes(_ context.Context, practitionerID uuid.UUID, date time.Time) ([]string, error) {
	var out []string
	for k := range r.slots {
		if k.practitioner == practitionerID && k.date == date.Format("2006-01-02") {
			out = append(out, k.startTime)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) ListSummaries(_ context.Context, filters *repository.AppointmentFilters) ([]*model.AppointmentSummary, error) {
	r.lastFilters = filters
	return r.summaryRows, nil
}

func (r *fakeAppointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	r.statusUpdates = append(r.statusUpdates, status)
	if appt, ok := r.byID[id]; ok {
		appt.Status = status
	}
	return nil
}

func (r *fakeAppointmentRepo) Cancel(_ context.Context, id uuid.UUID) error {
	r.cancelled = append(r.cancelled, id)
	if appt, ok := r.byID[id]; ok {
		appt.Status = model.AppointmentStatusCancelled
	}
	return nil
}

func (r *fakeAppointmentRepo) ListByRange(_ context.Context, _, _ time.Time) ([]*model.AppointmentSummary, error) {
	return r.rangeRows, nil
}

type fakeAccountRepo struct {
	repository.AccountRepository

	accounts map[uuid.UUID]*model.Account
}

func (r *fakeAccountRepo) Get(_ context.Context, id uuid.UUID) (*model.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

type fakePractitionerRepo struct {
	rows  []*model.PractitionerInfo
	calls int
}

func (r *fakePractitionerRepo) AvailablePractitioners(_ context.Context) ([]*model.PractitionerInfo, error) {
	r.calls++
	return r.rows, nil
}

func (r *fakePractitionerRepo) ListSpecialties(_ context.Context) ([]*model.Specialty, error) {
	return nil, nil
}

type scheduledCall struct {
	appt         *model.Appointment
	practitioner *model.Account
	patient      *model.Account
}

type fakeNotifier struct {
	calls []scheduledCall
}

func (n *fakeNotifier) AppointmentScheduled(appt *model.Appointment, practitioner, patient *model.Account) {
	n.calls = append(n.calls, scheduledCall{appt: appt, practitioner: practitioner, patient: patient})
}

type fixture struct {
	svc          Service
	appointments *fakeAppointmentRepo
	practRepo    *fakePractitionerRepo
	notifier     *fakeNotifier

	practitioner *model.Account
	patient      *model.Account
	admin        *model.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	practitioner := &model.Account{
		Base: model.Base{ID: uuid.New()}, Username: "drsmith",
		Email: "drsmith@clinic.test", Role: model.RolePractitioner, Active: true,
		FirstName: "John", LastName: "Smith",
	}
	patient := &model.Account{
		Base: model.Base{ID: uuid.New()}, Username: "maria",
		Email: "maria@clinic.test", Role: model.RolePatient, Active: true,
		FirstName: "Maria", LastName: "Lopez",
	}
	admin := &model.Account{
		Base: model.Base{ID: uuid.New()}, Username: "root",
		Email: "root@clinic.test", Role: model.RoleAdmin, Active: true,
	}

	appointments := newFakeAppointmentRepo()
	accounts := &fakeAccountRepo{accounts: map[uuid.UUID]*model.Account{
		practitioner.ID: practitioner,
		patient.ID:      patient,
		admin.ID:        admin,
	}}
	practRepo := &fakePractitionerRepo{}
	notifier := &fakeNotifier{}

	log := logger.NewLogger(&logger.Config{
		Level: logger.ErrorLevel, TimeFormat: time.RFC3339, Output: io.Discard,
	})

	return &fixture{
		svc:          NewService(appointments, accounts, practRepo, notifier, DefaultSchedulerConfig(), log),
		appointments: appointments,
		practRepo:    practRepo,
		notifier:     notifier,
		practitioner: practitioner,
		patient:      patient,
		admin:        admin,
	}
}

func claims(a *model.Account) *model.TokenClaims {
	return &model.TokenClaims{AccountID: a.ID, Email: a.Email, Role: a.Role}
}

func (f *fixture) scheduleReq() *model.ScheduleAppointmentRequest {
	return &model.ScheduleAppointmentRequest{
		PractitionerID: f.practitioner.ID,
		PatientID:      f.patient.ID,
		Date:           "2024-06-01",
		StartTime:      "09:00",
		Motive:         "checkup",
	}
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestScheduleAsAdmin(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Schedule(context.Background(), claims(f.admin), f.scheduleReq())
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusPending, appt.Status)
	assert.Equal(t, 30, appt.DurationMins)

	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, f.practitioner.Email, f.notifier.calls[0].practitioner.Email)
	assert.Equal(t, f.patient.Email, f.notifier.calls[0].patient.Email)
}

func TestScheduleRejectsPatients(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Schedule(context.Background(), claims(f.patient), f.scheduleReq())
	assertCode(t, err, apperrors.ErrForbidden)
	assert.Empty(t, f.notifier.calls)
}

func TestSchedulePractitionerBooksOwnAgendaOnly(t *testing.T) {
	f := newFixture(t)

	// The form names another practitioner; the booking lands on the actor.
	req := f.scheduleReq()
	req.PractitionerID = uuid.New()

	appt, err := f.svc.Schedule(context.Background(), claims(f.practitioner), req)
	require.NoError(t, err)
	assert.Equal(t, f.practitioner.ID, appt.PractitionerID)
}

func TestScheduleExactSlotConflict(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Schedule(context.Background(), claims(f.admin), f.scheduleReq())
	require.NoError(t, err)

	_, err = f.svc.Schedule(context.Background(), claims(f.admin), f.scheduleReq())
	assertCode(t, err, apperrors.ErrConflict)
	assert.Len(t, f.notifier.calls, 1)
}

func TestScheduleDifferentTimeSameDay(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Schedule(context.Background(), claims(f.admin), f.scheduleReq())
	require.NoError(t, err)

	req := f.scheduleReq()
	req.StartTime = "09:30"
	_, err = f.svc.Schedule(context.Background(), claims(f.admin), req)
	assert.NoError(t, err)
}

func TestScheduleLosesRaceAtInsert(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Schedule(context.Background(), claims(f.admin), f.scheduleReq())
	require.NoError(t, err)

	// Existence check passes, insert hits the unique index.
	f.appointments.skipExistsCheck = true
	_, err = f.svc.Schedule(context.Background(), claims(f.admin), f.scheduleReq())
	assertCode(t, err, apperrors.ErrConflict)
}

func TestScheduleUnknownPatient(t *testing.T) {
	f := newFixture(t)

	req := f.scheduleReq()
	req.PatientID = uuid.New()
	_, err := f.svc.Schedule(context.Background(), claims(f.admin), req)
	assertCode(t, err, apperrors.ErrNotFound)
}

func TestScheduleSwappedRoles(t *testing.T) {
	f := newFixture(t)

	req := f.scheduleReq()
	req.PractitionerID = f.patient.ID
	req.PatientID = f.practitioner.ID
	_, err := f.svc.Schedule(context.Background(), claims(f.admin), req)
	assertCode(t, err, apperrors.ErrBadRequest)
}

func TestAvailableSlotsFullGrid(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	slots, err := f.svc.AvailableSlots(context.Background(), f.practitioner.ID, date)
	require.NoError(t, err)

	require.Len(t, slots, 18)
	assert.Equal(t, "08:00", slots[0])
	assert.Equal(t, "16:30", slots[len(slots)-1])
	assert.NotContains(t, slots, "17:00")
}

func TestAvailableSlotsExcludesOccupied(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Schedule(context.Background(), claims(f.admin), f.scheduleReq())
	require.NoError(t, err)

	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	slots, err := f.svc.AvailableSlots(context.Background(), f.practitioner.ID, date)
	require.NoError(t, err)

	assert.Len(t, slots, 17)
	assert.NotContains(t, slots, "09:00")
	for i := 1; i < len(slots); i++ {
		assert.Less(t, slots[i-1], slots[i])
	}
}

func TestAvailableSlotsOtherDayUnaffected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Schedule(context.Background(), claims(f.admin), f.scheduleReq())
	require.NoError(t, err)

	date := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	slots, err := f.svc.AvailableSlots(context.Background(), f.practitioner.ID, date)
	require.NoError(t, err)
	assert.Len(t, slots, 18)
}

func (f *fixture) mustSchedule(t *testing.T) *model.Appointment {
	t.Helper()
	appt, err := f.svc.Schedule(context.Background(), claims(f.admin), f.scheduleReq())
	require.NoError(t, err)
	return appt
}

func TestChangeStatusByAdmin(t *testing.T) {
	f := newFixture(t)
	appt := f.mustSchedule(t)

	updated, err := f.svc.ChangeStatus(context.Background(), claims(f.admin), appt.ID, model.AppointmentStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, updated.Status)
	assert.Equal(t, []model.AppointmentStatus{model.AppointmentStatusConfirmed}, f.appointments.statusUpdates)
}

func TestChangeStatusByOwningPractitioner(t *testing.T) {
	f := newFixture(t)
	appt := f.mustSchedule(t)

	_, err := f.svc.ChangeStatus(context.Background(), claims(f.practitioner), appt.ID, model.AppointmentStatusConfirmed)
	assert.NoError(t, err)
}

func TestChangeStatusByOtherPractitioner(t *testing.T) {
	f := newFixture(t)
	appt := f.mustSchedule(t)

	other := &model.TokenClaims{AccountID: uuid.New(), Role: model.RolePractitioner}
	_, err := f.svc.ChangeStatus(context.Background(), other, appt.ID, model.AppointmentStatusConfirmed)
	assertCode(t, err, apperrors.ErrForbidden)
}

func TestChangeStatusByPatient(t *testing.T) {
	f := newFixture(t)
	appt := f.mustSchedule(t)

	// Even the appointment's own patient cannot confirm or complete.
	_, err := f.svc.ChangeStatus(context.Background(), claims(f.patient), appt.ID, model.AppointmentStatusConfirmed)
	assertCode(t, err, apperrors.ErrForbidden)
}

func TestChangeStatusRejectsUnknownValue(t *testing.T) {
	f := newFixture(t)
	appt := f.mustSchedule(t)

	_, err := f.svc.ChangeStatus(context.Background(), claims(f.admin), appt.ID, model.AppointmentStatus("APPROVED"))
	assertCode(t, err, apperrors.ErrBadRequest)
	assert.Empty(t, f.appointments.statusUpdates)
}

func TestChangeStatusIllegalTransition(t *testing.T) {
	f := newFixture(t)
	appt := f.mustSchedule(t)

	// PENDING cannot jump straight to COMPLETED.
	_, err := f.svc.ChangeStatus(context.Background(), claims(f.admin), appt.ID, model.AppointmentStatusCompleted)
	assertCode(t, err, apperrors.ErrConflict)
}

func TestChangeStatusTerminalState(t *testing.T) {
	f := newFixture(t)
	appt := f.mustSchedule(t)

	_, err := f.svc.Cancel(context.Background(), claims(f.admin), appt.ID)
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(context.Background(), claims(f.admin), appt.ID, model.AppointmentStatusConfirmed)
	assertCode(t, err, apperrors.ErrConflict)
}

func TestChangeStatusUnknownAppointment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ChangeStatus(context.Background(), claims(f.admin), uuid.New(), model.AppointmentStatusConfirmed)
	assertCode(t, err, apperrors.ErrNotFound)
}

func TestCancelByOwningPatient(t *testing.T) {
	f := newFixture(t)
	appt := f.mustSchedule(t)

	cancelled, err := f.svc.Cancel(context.Background(), claims(f.patient), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
	assert.Equal(t, []uuid.UUID{appt.ID}, f.appointments.cancelled)
}

func TestCancelByOtherPatient(t *testing.T) {
	f := newFixture(t)
	appt := f.mustSchedule(t)

	other := &model.TokenClaims{AccountID: uuid.New(), Role: model.RolePatient}
	_, err := f.svc.Cancel(context.Background(), other, appt.ID)
	assertCode(t, err, apperrors.ErrForbidden)
}

func TestCancelTwice(t *testing.T) {
	f := newFixture(t)
	appt := f.mustSchedule(t)

	_, err := f.svc.Cancel(context.Background(), claims(f.patient), appt.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), claims(f.patient), appt.ID)
	assertCode(t, err, apperrors.ErrConflict)
}

func TestCancelFreesTheSlot(t *testing.T) {
	f := newFixture(t)
	appt := f.mustSchedule(t)

	_, err := f.svc.Cancel(context.Background(), claims(f.admin), appt.ID)
	require.NoError(t, err)

	// The fake keeps the slot map entry, so clear it the way the database
	// partial index would: cancelled rows stop counting.
	delete(f.appointments.slots, key(appt.PractitionerID, appt.Date, appt.StartTime))

	_, err = f.svc.Schedule(context.Background(), claims(f.admin), f.scheduleReq())
	assert.NoError(t, err)
}

func TestCalendarFiltersByRole(t *testing.T) {
	f := newFixture(t)
	f.appointments.rangeRows = []*model.AppointmentSummary{
		{ID: uuid.New(), PractitionerID: f.practitioner.ID, PatientID: f.patient.ID},
		{ID: uuid.New(), PractitionerID: uuid.New(), PatientID: uuid.New()},
	}

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	all, err := f.svc.Calendar(context.Background(), claims(f.admin), from, to)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.svc.Calendar(context.Background(), claims(f.practitioner), from, to)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, f.practitioner.ID, mine[0].PractitionerID)

	visits, err := f.svc.Calendar(context.Background(), claims(f.patient), from, to)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, f.patient.ID, visits[0].PatientID)
}

func TestHistoryFilters(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.History(context.Background(), claims(f.admin))
	require.NoError(t, err)
	assert.Nil(t, f.appointments.lastFilters.PractitionerID)
	assert.Nil(t, f.appointments.lastFilters.PatientID)

	_, err = f.svc.History(context.Background(), claims(f.practitioner))
	require.NoError(t, err)
	require.NotNil(t, f.appointments.lastFilters.PractitionerID)
	assert.Equal(t, f.practitioner.ID, *f.appointments.lastFilters.PractitionerID)

	_, err = f.svc.History(context.Background(), claims(f.patient))
	require.NoError(t, err)
	require.NotNil(t, f.appointments.lastFilters.PatientID)
	assert.Equal(t, f.patient.ID, *f.appointments.lastFilters.PatientID)
}

func TestAvailablePractitionersCached(t *testing.T) {
	f := newFixture(t)
	f.practRepo.rows = []*model.PractitionerInfo{{Name: "John Smith"}}

	first, err := f.svc.AvailablePractitioners(context.Background())
	require.NoError(t, err)
	second, err := f.svc.AvailablePractitioners(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.practRepo.calls)
}
