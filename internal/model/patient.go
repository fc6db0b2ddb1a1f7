package model

import (
	"time"

	"github.com/google/uuid"
)

// PatientProfile extends a patient account with optional medical metadata.
// One row per patient account.
type PatientProfile struct {
	ID        int64      `db:"id" json:"id"`
	AccountID uuid.UUID  `db:"account_id" json:"account_id"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	BloodType string     `db:"blood_type" json:"blood_type,omitempty"`
	Allergies string     `db:"allergies" json:"allergies,omitempty"`
	Notes     string     `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
