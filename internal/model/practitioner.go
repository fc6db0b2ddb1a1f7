package model

import (
	"time"

	"github.com/google/uuid"
)

// Specialty is a catalog entry classifying practitioners.
type Specialty struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`
}

// PractitionerProfile extends a practitioner account with professional data
// and the configured working window. One row per practitioner account.
type PractitionerProfile struct {
	ID            int64     `db:"id" json:"id"`
	AccountID     uuid.UUID `db:"account_id" json:"account_id"`
	SpecialtyID   *int64    `db:"specialty_id" json:"specialty_id,omitempty"`
	LicenseNumber string    `db:"license_number" json:"license_number,omitempty"`
	WorkStart     string    `db:"work_start" json:"work_start"`
	WorkEnd       string    `db:"work_end" json:"work_end"`
	WorkDays      string    `db:"work_days" json:"work_days"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// PractitionerInfo is a row of the active-practitioner directory returned by
// the sp_available_practitioners stored procedure.
type PractitionerInfo struct {
	AccountID uuid.UUID `db:"account_id" json:"account_id"`
	Name      string    `db:"name" json:"name"`
	Specialty string    `db:"specialty" json:"specialty,omitempty"`
	WorkStart string    `db:"work_start" json:"work_start"`
	WorkEnd   string    `db:"work_end" json:"work_end"`
}
