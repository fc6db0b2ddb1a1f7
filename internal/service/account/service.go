// Package account implements the admin-facing user administration:
// creating accounts with their role-specific profile, editing them and
// removing them through the legacy delete procedure.
package account

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinica-valencia/clinic-api/internal/model"
	"github.com/clinica-valencia/clinic-api/internal/repository"
	apperrors "github.com/clinica-valencia/clinic-api/pkg/errors"
	"github.com/clinica-valencia/clinic-api/pkg/hash"
	"github.com/clinica-valencia/clinic-api/pkg/logger"
)

const (
	defaultWorkStart = "08:00"
	defaultWorkEnd   = "17:00"
	defaultWorkDays  = "MON-FRI"
)

// Notifier is the slice of the notification service used here.
type Notifier interface {
	Welcome(account *model.Account)
	PasswordChanged(account *model.Account)
}

type Service interface {
	Create(ctx context.Context, req *model.CreateAccountRequest) (*model.Account, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Account, error)
	// GetDetail returns the account with its role-specific profile attached.
	GetDetail(ctx context.Context, id uuid.UUID) (*model.AccountDetail, error)
	List(ctx context.Context) ([]*model.Account, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateAccountRequest) (*model.Account, error)
	// Delete removes an account through the legacy stored procedure. Actors
	// cannot delete themselves.
	Delete(ctx context.Context, actorID, id uuid.UUID) error
}

type service struct {
	accounts repository.AccountRepository
	hasher   *hash.Hasher
	notifier Notifier
	logger   *logger.Logger
}

func NewService(accounts repository.AccountRepository, hasher *hash.Hasher, notifier Notifier, log *logger.Logger) Service {
	return &service{
		accounts: accounts,
		hasher:   hasher,
		notifier: notifier,
		logger:   log.WithComponent("account"),
	}
}

func (s *service) Create(ctx context.Context, req *model.CreateAccountRequest) (*model.Account, error) {
	if !req.Role.Valid() {
		return nil, apperrors.BadRequest("unknown role", nil)
	}

	credential, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	account := &model.Account{
		Username:   req.Username,
		Email:      req.Email,
		Credential: credential,
		Role:       req.Role,
		Active:     true,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Address:    req.Address,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if err == repository.ErrDuplicateAccount {
			return nil, apperrors.Conflict("username or email already in use", err)
		}
		return nil, apperrors.Internal(err)
	}

	if err := s.createProfile(ctx, account, req); err != nil {
		return nil, err
	}

	s.logger.Info("account created",
		"account_id", account.ID.String(), "role", account.Role.String())
	s.notifier.Welcome(account)
	return account, nil
}

func (s *service) createProfile(ctx context.Context, account *model.Account, req *model.CreateAccountRequest) error {
	switch account.Role {
	case model.RolePractitioner:
		profile := &model.PractitionerProfile{
			AccountID:     account.ID,
			SpecialtyID:   req.SpecialtyID,
			LicenseNumber: req.LicenseNumber,
			WorkStart:     req.WorkStart,
			WorkEnd:       req.WorkEnd,
			WorkDays:      req.WorkDays,
		}
		if profile.WorkStart == "" {
			profile.WorkStart = defaultWorkStart
		}
		if profile.WorkEnd == "" {
			profile.WorkEnd = defaultWorkEnd
		}
		if profile.WorkDays == "" {
			profile.WorkDays = defaultWorkDays
		}
		if err := s.accounts.CreatePractitionerProfile(ctx, profile); err != nil {
			return apperrors.Internal(err)
		}
	case model.RolePatient:
		profile := &model.PatientProfile{
			AccountID: account.ID,
			BloodType: req.BloodType,
			Allergies: req.Allergies,
		}
		if req.BirthDate != nil {
			born, err := time.Parse("2006-01-02", *req.BirthDate)
			if err != nil {
				return apperrors.BadRequest("invalid birth date", err)
			}
			profile.BirthDate = &born
		}
		if err := s.accounts.CreatePatientProfile(ctx, profile); err != nil {
			return apperrors.Internal(err)
		}
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperrors.NotFound("account", err)
		}
		return nil, apperrors.Internal(err)
	}
	return account, nil
}

func (s *service) GetDetail(ctx context.Context, id uuid.UUID) (*model.AccountDetail, error) {
	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &model.AccountDetail{Account: account}
	switch account.Role {
	case model.RolePractitioner:
		profile, err := s.accounts.GetPractitionerProfile(ctx, id)
		if err != nil && err != repository.ErrNotFound {
			return nil, apperrors.Internal(err)
		}
		detail.PractitionerProfile = profile
	case model.RolePatient:
		profile, err := s.accounts.GetPatientProfile(ctx, id)
		if err != nil && err != repository.ErrNotFound {
			return nil, apperrors.Internal(err)
		}
		detail.PatientProfile = profile
	}
	return detail, nil
}

func (s *service) List(ctx context.Context) ([]*model.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return accounts, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateAccountRequest) (*model.Account, error) {
	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		account.Email = *req.Email
	}
	if req.FirstName != nil {
		account.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		account.LastName = *req.LastName
	}
	if req.Phone != nil {
		account.Phone = *req.Phone
	}
	if req.Address != nil {
		account.Address = *req.Address
	}
	if req.Active != nil {
		account.Active = *req.Active
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		if err == repository.ErrDuplicateAccount {
			return nil, apperrors.Conflict("email already in use", err)
		}
		return nil, apperrors.Internal(err)
	}

	if req.Password != nil {
		credential, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		if err := s.accounts.UpdateCredential(ctx, id, credential); err != nil {
			return nil, apperrors.Internal(err)
		}
		account.Credential = credential
		s.notifier.PasswordChanged(account)
	}

	return account, nil
}

func (s *service) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return apperrors.Forbidden("cannot delete your own account", nil)
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return apperrors.NotFound("account", err)
		}
		return apperrors.Internal(err)
	}
	s.logger.Info("account deleted", "account_id", id.String())
	return nil
}
