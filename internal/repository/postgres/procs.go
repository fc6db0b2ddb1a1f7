package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinica-valencia/clinic-api/internal/model"
)

// Stored routines owned by the database. The core calls them as opaque
// black boxes: parameters in, row set or scalar out.

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	_, err := r.db.ExecContext(ctx, `SELECT sp_update_appointment_status($1, $2)`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `SELECT sp_cancel_appointment($1)`, id)
	if err != nil {
		return fmt.Errorf("failed to cancel appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) ListByRange(ctx context.Context, from, to time.Time) ([]*model.AppointmentSummary, error) {
	query := `
		SELECT id, practitioner_id, patient_id, date, start_time,
			   duration_mins, status, motive,
			   practitioner_name, patient_name, specialty
		FROM sp_appointments_by_range($1, $2)
	`
	var summaries []*model.AppointmentSummary
	if err := r.db.SelectContext(ctx, &summaries, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to fetch appointments by range: %w", err)
	}
	return summaries, nil
}

func (r *practitionerRepository) AvailablePractitioners(ctx context.Context) ([]*model.PractitionerInfo, error) {
	query := `
		SELECT account_id, name, specialty, work_start, work_end
		FROM sp_available_practitioners()
	`
	var practitioners []*model.PractitionerInfo
	if err := r.db.SelectContext(ctx, &practitioners, query); err != nil {
		return nil, fmt.Errorf("failed to fetch available practitioners: %w", err)
	}
	return practitioners, nil
}

func (r *practitionerRepository) ListSpecialties(ctx context.Context) ([]*model.Specialty, error) {
	query := `SELECT id, name, description FROM specialties ORDER BY name ASC`
	var specialties []*model.Specialty
	if err := r.db.SelectContext(ctx, &specialties, query); err != nil {
		return nil, fmt.Errorf("failed to list specialties: %w", err)
	}
	return specialties, nil
}
