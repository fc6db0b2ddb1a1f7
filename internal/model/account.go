package model

import (
	"strings"
	"time"
)

// Role is the closed set of account roles. The integer values match the
// role column of the pre-existing accounts table.
type Role int

const (
	RoleAdmin        Role = 1
	RolePractitioner Role = 2
	RolePatient      Role = 3
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePractitioner, RolePatient:
		return true
	}
	return false
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RolePractitioner:
		return "practitioner"
	case RolePatient:
		return "patient"
	}
	return "unknown"
}

// Account represents a system user of any role.
type Account struct {
	Base
	Username    string     `db:"username" json:"username"`
	Email       string     `db:"email" json:"email"`
	Credential  string     `db:"credential" json:"-"`
	Role        Role       `db:"role" json:"role"`
	Active      bool       `db:"active" json:"active"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	Phone       string     `db:"phone" json:"phone,omitempty"`
	Address     string     `db:"address" json:"address,omitempty"`
	LastLoginAt *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// AccountDetail is an account together with its role-specific profile row,
// whichever applies.
type AccountDetail struct {
	*Account
	PractitionerProfile *PractitionerProfile `json:"practitioner_profile,omitempty"`
	PatientProfile      *PatientProfile      `json:"patient_profile,omitempty"`
}

// CreateAccountRequest represents the admin user-creation form.
type CreateAccountRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=150"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      Role   `json:"role" binding:"required,oneof=1 2 3"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`

	// Practitioner-only fields.
	SpecialtyID   *int64 `json:"specialty_id"`
	LicenseNumber string `json:"license_number"`
	WorkStart     string `json:"work_start" binding:"omitempty,datetime=15:04"`
	WorkEnd       string `json:"work_end" binding:"omitempty,datetime=15:04"`
	WorkDays      string `json:"work_days"`

	// Patient-only fields.
	BirthDate *string `json:"birth_date" binding:"omitempty,datetime=2006-01-02"`
	BloodType string  `json:"blood_type"`
	Allergies string  `json:"allergies"`
}

// UpdateAccountRequest represents the admin user-edit form. Nil fields are
// left untouched.
type UpdateAccountRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	Active    *bool   `json:"active"`
	// A new password is hashed before storage and announced by email.
	Password *string `json:"password" binding:"omitempty,min=8"`
}
