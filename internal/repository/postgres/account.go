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

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (
			id, username, email, credential, role, active,
			first_name, last_name, phone, address,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	account.ID = uuid.New()
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.Username,
		account.Email,
		account.Credential,
		account.Role,
		account.Active,
		account.FirstName,
		account.LastName,
		account.Phone,
		account.Address,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateAccount
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	query := `
		SELECT id, username, email, credential, role, active,
			   first_name, last_name, phone, address, last_login_at,
			   created_at, updated_at
		FROM accounts
		WHERE id = $1
	`
	var account model.Account
	err := r.db.GetContext(ctx, &account, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) GetByIdentifier(ctx context.Context, identifier string) (*model.Account, error) {
	query := `
		SELECT id, username, email, credential, role, active,
			   first_name, last_name, phone, address, last_login_at,
			   created_at, updated_at
		FROM accounts
		WHERE (username = $1 OR email = $1) AND active = true
		LIMIT 1
	`
	var account model.Account
	err := r.db.GetContext(ctx, &account, query, identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by identifier: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) Update(ctx context.Context, account *model.Account) error {
	query := `
		UPDATE accounts
		SET email = $1, first_name = $2, last_name = $3, phone = $4,
			address = $5, active = $6, credential = $7, updated_at = $8
		WHERE id = $9
	`
	account.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		account.Email,
		account.FirstName,
		account.LastName,
		account.Phone,
		account.Address,
		account.Active,
		account.Credential,
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateAccount
		}
		return fmt.Errorf("failed to update account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepository) UpdateCredential(ctx context.Context, id uuid.UUID, credential string) error {
	query := `UPDATE accounts SET credential = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, credential, id)
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}
	return nil
}

func (r *accountRepository) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE accounts SET last_login_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func (r *accountRepository) List(ctx context.Context) ([]*model.Account, error) {
	query := `
		SELECT id, username, email, credential, role, active,
			   first_name, last_name, phone, address, last_login_at,
			   created_at, updated_at
		FROM accounts
		ORDER BY role ASC, last_name ASC
	`
	var accounts []*model.Account
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// Delete removes the account and its dependents through the external
// sp_delete_account routine; the core never issues the deletes itself.
func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `SELECT sp_delete_account($1)`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

func (r *accountRepository) CreatePractitionerProfile(ctx context.Context, profile *model.PractitionerProfile) error {
	query := `
		INSERT INTO practitioner_profiles (
			account_id, specialty_id, license_number,
			work_start, work_end, work_days, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	profile.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		profile.AccountID,
		profile.SpecialtyID,
		profile.LicenseNumber,
		profile.WorkStart,
		profile.WorkEnd,
		profile.WorkDays,
		profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create practitioner profile: %w", err)
	}
	return nil
}

func (r *accountRepository) CreatePatientProfile(ctx context.Context, profile *model.PatientProfile) error {
	query := `
		INSERT INTO patient_profiles (
			account_id, birth_date, blood_type, allergies, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	profile.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		profile.AccountID,
		profile.BirthDate,
		profile.BloodType,
		profile.Allergies,
		profile.Notes,
		profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient profile: %w", err)
	}
	return nil
}

func (r *accountRepository) GetPractitionerProfile(ctx context.Context, accountID uuid.UUID) (*model.PractitionerProfile, error) {
	query := `
		SELECT id, account_id, specialty_id, license_number,
			   work_start, work_end, work_days, created_at
		FROM practitioner_profiles
		WHERE account_id = $1
	`
	var profile model.PractitionerProfile
	err := r.db.GetContext(ctx, &profile, query, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get practitioner profile: %w", err)
	}
	return &profile, nil
}

func (r *accountRepository) GetPatientProfile(ctx context.Context, accountID uuid.UUID) (*model.PatientProfile, error) {
	query := `
		SELECT id, account_id, birth_date, blood_type, allergies, notes, created_at
		FROM patient_profiles
		WHERE account_id = $1
	`
	var profile model.PatientProfile
	err := r.db.GetContext(ctx, &profile, query, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get patient profile: %w", err)
	}
	return &profile, nil
}
