// Package appointment implements slot booking against the shared clinic
// agenda. A slot is the exact (practitioner, date, startTime) triple; the
// conflict rule is exact-match only, there is no interval overlap logic.
package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/clinica-valencia/clinic-api/internal/model"
	"github.com/clinica-valencia/clinic-api/internal/repository"
	apperrors "github.com/clinica-valencia/clinic-api/pkg/errors"
	"github.com/clinica-valencia/clinic-api/pkg/logger"
)

// SchedulerConfig fixes the bookable day grid. It is passed in at
// construction; nothing here is derived from the practitioner's configured
// working hours, which matches the legacy behavior.
type SchedulerConfig struct {
	DayStart            string
	DayEnd              string
	SlotMinutes         int
	DefaultDurationMins int
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		DayStart:            "08:00",
		DayEnd:              "17:00",
		SlotMinutes:         30,
		DefaultDurationMins: 30,
	}
}

// Notifier is the slice of the notification service used here.
type Notifier interface {
	AppointmentScheduled(appt *model.Appointment, practitioner, patient *model.Account)
}

type Service interface {
	// Schedule books a slot. Patients cannot call it; practitioners book
	// only for themselves; admins book for anyone.
	Schedule(ctx context.Context, actor *model.TokenClaims, req *model.ScheduleAppointmentRequest) (*model.Appointment, error)
	// AvailableSlots returns the free start times of the fixed day grid for
	// one practitioner and date, ascending.
	AvailableSlots(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]string, error)
	ChangeStatus(ctx context.Context, actor *model.TokenClaims, id uuid.UUID, next model.AppointmentStatus) (*model.Appointment, error)
	Cancel(ctx context.Context, actor *model.TokenClaims, id uuid.UUID) (*model.Appointment, error)
	// Calendar returns the date-range view, filtered to what the actor may
	// see.
	Calendar(ctx context.Context, actor *model.TokenClaims, from, to time.Time) ([]*model.AppointmentSummary, error)
	History(ctx context.Context, actor *model.TokenClaims) ([]*model.AppointmentSummary, error)
	AvailablePractitioners(ctx context.Context) ([]*model.PractitionerInfo, error)
	Specialties(ctx context.Context) ([]*model.Specialty, error)
}

const practitionersCacheKey = "available_practitioners"

type service struct {
	appointments  repository.AppointmentRepository
	accounts      repository.AccountRepository
	practitioners repository.PractitionerRepository
	notifier      Notifier
	cfg           SchedulerConfig
	cache         *gocache.Cache
	logger        *logger.Logger
}

func NewService(
	appointments repository.AppointmentRepository,
	accounts repository.AccountRepository,
	practitioners repository.PractitionerRepository,
	notifier Notifier,
	cfg SchedulerConfig,
	log *logger.Logger,
) Service {
	if cfg.SlotMinutes <= 0 {
		cfg = DefaultSchedulerConfig()
	}
	return &service{
		appointments:  appointments,
		accounts:      accounts,
		practitioners: practitioners,
		notifier:      notifier,
		cfg:           cfg,
		cache:         gocache.New(time.Minute, 5*time.Minute),
		logger:        log.WithComponent("appointment"),
	}
}

func (s *service) Schedule(ctx context.Context, actor *model.TokenClaims, req *model.ScheduleAppointmentRequest) (*model.Appointment, error) {
	practitionerID := req.PractitionerID
	switch actor.Role {
	case model.RoleAdmin:
		// Admins book on behalf of any practitioner.
	case model.RolePractitioner:
		// Practitioners book only their own agenda, whatever the form said.
		practitionerID = actor.AccountID
	case model.RolePatient:
		return nil, apperrors.Forbidden("patients cannot schedule appointments", nil)
	default:
		return nil, apperrors.Forbidden("unknown role", nil)
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, apperrors.BadRequest("invalid date", err)
	}

	practitioner, err := s.participant(ctx, practitionerID, model.RolePractitioner)
	if err != nil {
		return nil, err
	}
	patient, err := s.participant(ctx, req.PatientID, model.RolePatient)
	if err != nil {
		return nil, err
	}

	occupied, err := s.appointments.ExistsActive(ctx, practitionerID, date, req.StartTime)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if occupied {
		return nil, apperrors.Conflict("slot already booked", nil)
	}

	duration := req.DurationMins
	if duration <= 0 {
		duration = s.cfg.DefaultDurationMins
	}

	appt := &model.Appointment{
		PractitionerID: practitionerID,
		PatientID:      req.PatientID,
		Date:           date,
		StartTime:      req.StartTime,
		DurationMins:   duration,
		Motive:         req.Motive,
		Status:         model.AppointmentStatusPending,
	}

	if err := s.appointments.Create(ctx, appt); err != nil {
		if err == repository.ErrDuplicateSlot {
			// A concurrent booking won the slot between the check and the
			// insert; the unique index turned it into this error.
			return nil, apperrors.Conflict("slot already booked", err)
		}
		return nil, apperrors.Internal(err)
	}

	s.logger.Info("appointment scheduled",
		"appointment_id", appt.ID.String(),
		"practitioner_id", practitionerID.String(),
		"date", req.Date, "start_time", req.StartTime)

	s.notifier.AppointmentScheduled(appt, practitioner, patient)
	return appt, nil
}

// participant loads an account and checks it plays the expected role.
func (s *service) participant(ctx context.Context, id uuid.UUID, role model.Role) (*model.Account, error) {
	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperrors.NotFound("account", err)
		}
		return nil, apperrors.Internal(err)
	}
	if account.Role != role {
		return nil, apperrors.BadRequest(fmt.Sprintf("account is not a %s", role), nil)
	}
	return account, nil
}

func (s *service) AvailableSlots(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]string, error) {
	occupied, err := s.appointments.OccupiedStartTimes(ctx, practitionerID, date)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	taken := make(map[string]struct{}, len(occupied))
	for _, t := range occupied {
		taken[t] = struct{}{}
	}

	grid, err := s.slotGrid()
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	free := make([]string, 0, len(grid))
	for _, slot := range grid {
		if _, ok := taken[slot]; !ok {
			free = append(free, slot)
		}
	}
	return free, nil
}

// slotGrid expands the configured day window into start times, start
// inclusive and end exclusive.
func (s *service) slotGrid() ([]string, error) {
	start, err := time.Parse("15:04", s.cfg.DayStart)
	if err != nil {
		return nil, fmt.Errorf("invalid day start %q: %w", s.cfg.DayStart, err)
	}
	end, err := time.Parse("15:04", s.cfg.DayEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid day end %q: %w", s.cfg.DayEnd, err)
	}

	var grid []string
	step := time.Duration(s.cfg.SlotMinutes) * time.Minute
	for t := start; t.Before(end); t = t.Add(step) {
		grid = append(grid, t.Format("15:04"))
	}
	return grid, nil
}

func (s *service) ChangeStatus(ctx context.Context, actor *model.TokenClaims, id uuid.UUID, next model.AppointmentStatus) (*model.Appointment, error) {
	if !next.Valid() {
		return nil, apperrors.BadRequest("unknown appointment status", nil)
	}

	appt, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case model.RoleAdmin:
	case model.RolePractitioner:
		if appt.PractitionerID != actor.AccountID {
			return nil, apperrors.Forbidden("not your appointment", nil)
		}
	case model.RolePatient:
		// Patients only get the dedicated cancellation operation.
		return nil, apperrors.Forbidden("patients cannot change appointment status", nil)
	default:
		return nil, apperrors.Forbidden("unknown role", nil)
	}

	if !appt.Status.CanTransitionTo(next) {
		return nil, apperrors.Conflict(
			fmt.Sprintf("cannot move appointment from %s to %s", appt.Status, next), nil)
	}

	if err := s.appointments.UpdateStatus(ctx, id, next); err != nil {
		return nil, apperrors.Internal(err)
	}
	appt.Status = next
	return appt, nil
}

func (s *service) Cancel(ctx context.Context, actor *model.TokenClaims, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case model.RoleAdmin:
	case model.RolePractitioner:
		if appt.PractitionerID != actor.AccountID {
			return nil, apperrors.Forbidden("not your appointment", nil)
		}
	case model.RolePatient:
		if appt.PatientID != actor.AccountID {
			return nil, apperrors.Forbidden("not your appointment", nil)
		}
	default:
		return nil, apperrors.Forbidden("unknown role", nil)
	}

	if !appt.Status.CanTransitionTo(model.AppointmentStatusCancelled) {
		return nil, apperrors.Conflict(
			fmt.Sprintf("cannot cancel a %s appointment", appt.Status), nil)
	}

	if err := s.appointments.Cancel(ctx, id); err != nil {
		return nil, apperrors.Internal(err)
	}
	appt.Status = model.AppointmentStatusCancelled
	return appt, nil
}

func (s *service) Calendar(ctx context.Context, actor *model.TokenClaims, from, to time.Time) ([]*model.AppointmentSummary, error) {
	rows, err := s.appointments.ListByRange(ctx, from, to)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	switch actor.Role {
	case model.RoleAdmin:
		return rows, nil
	case model.RolePractitioner:
		return filterSummaries(rows, func(r *model.AppointmentSummary) bool {
			return r.PractitionerID == actor.AccountID
		}), nil
	case model.RolePatient:
		return filterSummaries(rows, func(r *model.AppointmentSummary) bool {
			return r.PatientID == actor.AccountID
		}), nil
	}
	return nil, apperrors.Forbidden("unknown role", nil)
}

func (s *service) History(ctx context.Context, actor *model.TokenClaims) ([]*model.AppointmentSummary, error) {
	filters := &repository.AppointmentFilters{}
	switch actor.Role {
	case model.RoleAdmin:
	case model.RolePractitioner:
		id := actor.AccountID
		filters.PractitionerID = &id
	case model.RolePatient:
		id := actor.AccountID
		filters.PatientID = &id
	default:
		return nil, apperrors.Forbidden("unknown role", nil)
	}

	rows, err := s.appointments.ListSummaries(ctx, filters)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return rows, nil
}

func (s *service) AvailablePractitioners(ctx context.Context) ([]*model.PractitionerInfo, error) {
	if cached, ok := s.cache.Get(practitionersCacheKey); ok {
		return cached.([]*model.PractitionerInfo), nil
	}

	rows, err := s.practitioners.AvailablePractitioners(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	s.cache.SetDefault(practitionersCacheKey, rows)
	return rows, nil
}

func (s *service) Specialties(ctx context.Context) ([]*model.Specialty, error) {
	rows, err := s.practitioners.ListSpecialties(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return rows, nil
}

func (s *service) get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.appointments.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}
	return appt, nil
}

func filterSummaries(rows []*model.AppointmentSummary, keep func(*model.AppointmentSummary) bool) []*model.AppointmentSummary {
	out := make([]*model.AppointmentSummary, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
