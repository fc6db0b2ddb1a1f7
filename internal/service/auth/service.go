// Package auth implements login against the mixed-format credential column:
// accounts carry either a salted PBKDF2 hash or a legacy plaintext password.
// Legacy credentials are upgraded in place on the first successful login.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/clinica-valencia/clinic-api/internal/model"
	"github.com/clinica-valencia/clinic-api/internal/repository"
	jwtauth "github.com/clinica-valencia/clinic-api/pkg/auth"
	apperrors "github.com/clinica-valencia/clinic-api/pkg/errors"
	"github.com/clinica-valencia/clinic-api/pkg/hash"
	"github.com/clinica-valencia/clinic-api/pkg/logger"
)

// ErrInvalidCredentials is the single failure returned for every login
// problem: unknown identifier, inactive account or wrong password. Callers
// must not distinguish between them.
var ErrInvalidCredentials = &apperrors.AppError{
	Code:    apperrors.ErrUnauthorized,
	Message: "invalid credentials",
}

type Service interface {
	Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, *model.Account, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error)
	// ValidateToken verifies the signature and rejects revoked tokens.
	ValidateToken(ctx context.Context, token string) (*model.TokenClaims, error)
}

type service struct {
	accounts    repository.AccountRepository
	tokens      repository.TokenRepository
	jwt         jwtauth.JWTService
	hasher      *hash.Hasher
	suffixMatch bool
	logger      *logger.Logger
}

func NewService(accounts repository.AccountRepository, tokens repository.TokenRepository, jwt jwtauth.JWTService, hasher *hash.Hasher, suffixMatch bool, log *logger.Logger) Service {
	return &service{
		accounts:    accounts,
		tokens:      tokens,
		jwt:         jwt,
		hasher:      hasher,
		suffixMatch: suffixMatch,
		logger:      log.WithComponent("auth"),
	}
}

func (s *service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, *model.Account, error) {
	if req.Identifier == "" || req.Password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByIdentifier(ctx, req.Identifier)
	if err != nil {
		if err != repository.ErrNotFound {
			s.logger.Error(err, "account lookup failed")
		}
		return nil, nil, ErrInvalidCredentials
	}

	ok, legacy := s.checkPassword(account.Credential, req.Password)
	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	if legacy {
		s.upgradeCredential(ctx, account, req.Password)
	}

	if err := s.accounts.TouchLastLogin(ctx, account.ID); err != nil {
		s.logger.Warn("failed to record last login", "account_id", account.ID.String(), "error", err.Error())
	}

	tokens, err := s.issueTokens(account)
	if err != nil {
		return nil, nil, err
	}
	return tokens, account, nil
}

// checkPassword reports whether password matches the stored credential and
// whether the credential is still in the legacy plaintext format.
func (s *service) checkPassword(stored, password string) (ok, legacy bool) {
	if hash.IsEncoded(stored) {
		return s.hasher.Verify(password, stored), false
	}
	if stored == password {
		return true, true
	}
	// Compatibility rule inherited from the previous system, disabled unless
	// explicitly configured: a password matching the tail of the stored
	// plaintext is accepted.
	if s.suffixMatch && strings.HasSuffix(stored, password) {
		return true, true
	}
	return false, false
}

// upgradeCredential replaces a plaintext credential with its hash. The login
// still succeeds when the write fails; the account simply stays legacy until
// the next successful login.
func (s *service) upgradeCredential(ctx context.Context, account *model.Account, password string) {
	encoded, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error(err, "failed to hash legacy credential", "account_id", account.ID.String())
		return
	}
	if err := s.accounts.UpdateCredential(ctx, account.ID, encoded); err != nil {
		s.logger.Error(err, "failed to upgrade legacy credential", "account_id", account.ID.String())
		return
	}
	account.Credential = encoded
	s.logger.Info("upgraded legacy credential", "account_id", account.ID.String())
}

func (s *service) Logout(ctx context.Context, token string) error {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return apperrors.Unauthorized(err)
	}
	if err := s.tokens.Revoke(ctx, token, time.Until(claims.ExpiresAt)); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	account, err := s.accounts.Get(ctx, claims.AccountID)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	if !account.Active {
		return nil, apperrors.Unauthorized(nil)
	}

	return s.issueTokens(account)
}

func (s *service) ValidateToken(ctx context.Context, token string) (*model.TokenClaims, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	revoked, err := s.tokens.IsRevoked(ctx, token)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if revoked {
		return nil, apperrors.Unauthorized(nil)
	}
	return claims, nil
}

func (s *service) issueTokens(account *model.Account) (*model.TokenResponse, error) {
	access, err := s.jwt.GenerateAccessToken(account)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(account)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.TokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}
