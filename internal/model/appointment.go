package model

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus values match the status column of the pre-existing
// appointments table.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "PENDING"
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed,
		AppointmentStatusCancelled, AppointmentStatusCompleted:
		return true
	}
	return false
}

// Active reports whether the status counts toward slot conflicts.
func (s AppointmentStatus) Active() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

// CanTransitionTo reports whether the status machine permits moving to next.
// CANCELLED and COMPLETED are terminal.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case AppointmentStatusPending:
		return next == AppointmentStatusConfirmed || next == AppointmentStatusCancelled
	case AppointmentStatusConfirmed:
		return next == AppointmentStatusCompleted || next == AppointmentStatusCancelled
	case AppointmentStatusCancelled, AppointmentStatusCompleted:
		return false
	}
	return false
}

// Appointment links one practitioner and one patient to a dated time slot.
// Rows are never deleted; cancellation is a status transition.
type Appointment struct {
	Base
	PractitionerID uuid.UUID         `db:"practitioner_id" json:"practitioner_id"`
	PatientID      uuid.UUID         `db:"patient_id" json:"patient_id"`
	Date           time.Time         `db:"date" json:"date"`
	StartTime      string            `db:"start_time" json:"start_time"`
	DurationMins   int               `db:"duration_mins" json:"duration_mins"`
	Motive         string            `db:"motive" json:"motive,omitempty"`
	Status         AppointmentStatus `db:"status" json:"status"`
	Notes          string            `db:"notes" json:"notes,omitempty"`
}

// ScheduleAppointmentRequest represents the booking form. StartTime uses the
// same HH:MM wire format the slots endpoint returns.
type ScheduleAppointmentRequest struct {
	PractitionerID uuid.UUID `json:"practitioner_id" binding:"required"`
	PatientID      uuid.UUID `json:"patient_id" binding:"required"`
	Date           string    `json:"date" binding:"required,datetime=2006-01-02"`
	StartTime      string    `json:"start_time" binding:"required,datetime=15:04"`
	DurationMins   int       `json:"duration_mins" binding:"omitempty,min=1"`
	Motive         string    `json:"motive" binding:"max=1000"`
}

type ChangeStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required,apptstatus"`
}

// AppointmentSummary is a joined row returned by the history and calendar
// stored procedures.
type AppointmentSummary struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	PractitionerID   uuid.UUID         `db:"practitioner_id" json:"practitioner_id"`
	PatientID        uuid.UUID         `db:"patient_id" json:"patient_id"`
	Date             time.Time         `db:"date" json:"date"`
	StartTime        string            `db:"start_time" json:"start_time"`
	DurationMins     int               `db:"duration_mins" json:"duration_mins"`
	Status           AppointmentStatus `db:"status" json:"status"`
	Motive           string            `db:"motive" json:"motive,omitempty"`
	PractitionerName string            `db:"practitioner_name" json:"practitioner_name"`
	PatientName      string            `db:"patient_name" json:"patient_name"`
	Specialty        string            `db:"specialty" json:"specialty,omitempty"`
}
