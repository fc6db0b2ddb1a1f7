package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinica-valencia/clinic-api/internal/model"
	"github.com/clinica-valencia/clinic-api/internal/repository"
)

// start_time is stored as HH:MM text, matching the wire format of the slots
// endpoint, so exact-match comparisons need no time-zone handling.

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, practitioner_id, patient_id, date, start_time,
			duration_mins, motive, status, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PractitionerID,
		appointment.PatientID,
		appointment.Date,
		appointment.StartTime,
		appointment.DurationMins,
		appointment.Motive,
		appointment.Status,
		appointment.Notes,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		// The partial unique index over active statuses closes the
		// check-then-insert race: the loser lands here.
		if isUniqueViolation(err) {
			return repository.ErrDuplicateSlot
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, practitioner_id, patient_id, date, start_time,
			   duration_mins, motive, status, notes,
			   created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) ExistsActive(ctx context.Context, practitionerID uuid.UUID, date time.Time, startTime string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE practitioner_id = $1
			AND date = $2
			AND start_time = $3
			AND status IN ('PENDING', 'CONFIRMED')
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, practitionerID, date, startTime)
	if err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return exists, nil
}

func (r *appointmentRepository) OccupiedStartTimes(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]string, error) {
	query := `
		SELECT start_time FROM appointments
		WHERE practitioner_id = $1
		AND date = $2
		AND status IN ('PENDING', 'CONFIRMED')
		ORDER BY start_time ASC
	`
	var times []string
	if err := r.db.SelectContext(ctx, &times, query, practitionerID, date); err != nil {
		return nil, fmt.Errorf("failed to get occupied start times: %w", err)
	}
	return times, nil
}

func (r *appointmentRepository) ListSummaries(ctx context.Context, filters *repository.AppointmentFilters) ([]*model.AppointmentSummary, error) {
	query := `
		SELECT a.id, a.practitioner_id, a.patient_id, a.date, a.start_time,
			   a.duration_mins, a.status, a.motive,
			   TRIM(pr.first_name || ' ' || pr.last_name) AS practitioner_name,
			   TRIM(pa.first_name || ' ' || pa.last_name) AS patient_name,
			   COALESCE(sp.name, '') AS specialty
		FROM appointments a
		INNER JOIN accounts pr ON a.practitioner_id = pr.id
		INNER JOIN accounts pa ON a.patient_id = pa.id
		LEFT JOIN practitioner_profiles pp ON pr.id = pp.account_id
		LEFT JOIN specialties sp ON pp.specialty_id = sp.id
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.PractitionerID != nil {
			query += fmt.Sprintf(" AND a.practitioner_id = $%d", argCount)
			args = append(args, *filters.PractitionerID)
			argCount++
		}
		if filters.PatientID != nil {
			query += fmt.Sprintf(" AND a.patient_id = $%d", argCount)
			args = append(args, *filters.PatientID)
			argCount++
		}
		if filters.ActiveOnly {
			query += " AND a.status IN ('PENDING', 'CONFIRMED')"
		}
		if filters.From != nil {
			query += fmt.Sprintf(" AND a.date >= $%d", argCount)
			args = append(args, *filters.From)
			argCount++
		}
		if filters.To != nil {
			query += fmt.Sprintf(" AND a.date <= $%d", argCount)
			args = append(args, *filters.To)
			argCount++
		}
	}

	query += " ORDER BY a.date DESC, a.start_time DESC"

	var summaries []*model.AppointmentSummary
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return summaries, nil
}
