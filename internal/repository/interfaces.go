package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinica-valencia/clinic-api/internal/model"
)

// AppointmentFilters narrows summary listings. Nil fields are ignored.
type AppointmentFilters struct {
	PractitionerID *uuid.UUID
	PatientID      *uuid.UUID
	ActiveOnly     bool
	From           *time.Time
	To             *time.Time
}

// All repository interfaces in one file
type (
	// AccountRepository handles accounts and their role-specific profile rows.
	AccountRepository interface {
		Create(ctx context.Context, account *model.Account) error
		Get(ctx context.Context, id uuid.UUID) (*model.Account, error)
		// GetByIdentifier finds a single active account whose username or
		// email equals identifier.
		GetByIdentifier(ctx context.Context, identifier string) (*model.Account, error)
		Update(ctx context.Context, account *model.Account) error
		UpdateCredential(ctx context.Context, id uuid.UUID, credential string) error
		TouchLastLogin(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Account, error)
		// Delete delegates to the sp_delete_account stored procedure.
		Delete(ctx context.Context, id uuid.UUID) error

		CreatePractitionerProfile(ctx context.Context, profile *model.PractitionerProfile) error
		CreatePatientProfile(ctx context.Context, profile *model.PatientProfile) error
		GetPractitionerProfile(ctx context.Context, accountID uuid.UUID) (*model.PractitionerProfile, error)
		GetPatientProfile(ctx context.Context, accountID uuid.UUID) (*model.PatientProfile, error)
	}

	AppointmentRepository interface {
		// Create inserts a new appointment. A concurrent duplicate of an
		// active slot surfaces as ErrDuplicateSlot from the storage layer.
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// ExistsActive reports whether an active (PENDING or CONFIRMED)
		// appointment occupies the exact (practitioner, date, startTime) slot.
		ExistsActive(ctx context.Context, practitionerID uuid.UUID, date time.Time, startTime string) (bool, error)
		// OccupiedStartTimes returns the active start times (HH:MM, ascending)
		// of a practitioner's day.
		OccupiedStartTimes(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]string, error)
		ListSummaries(ctx context.Context, filters *AppointmentFilters) ([]*model.AppointmentSummary, error)

		// Stored-procedure calls, treated as opaque.
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error
		Cancel(ctx context.Context, id uuid.UUID) error
		ListByRange(ctx context.Context, from, to time.Time) ([]*model.AppointmentSummary, error)
	}

	PractitionerRepository interface {
		// AvailablePractitioners delegates to sp_available_practitioners.
		AvailablePractitioners(ctx context.Context) ([]*model.PractitionerInfo, error)
		ListSpecialties(ctx context.Context) ([]*model.Specialty, error)
	}

	// TokenRepository tracks revoked session tokens.
	TokenRepository interface {
		Revoke(ctx context.Context, token string, ttl time.Duration) error
		IsRevoked(ctx context.Context, token string) (bool, error)
	}
)
